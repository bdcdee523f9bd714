package reconciliationrule

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/reconciliationrule"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconciliation"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers reconciliation rule routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
	g.POST("/:id/rematch", PreviewRematch)
	g.POST("/:id/rematch/commit", CommitRematch)
}

// List returns a page of reconciliation rules for the tenant
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.List")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var scope *string
	if s := c.QueryParam("scope"); s != "" {
		scope = &s
	}

	ctx, repo, err := ectoinject.GetContext[*reconciliationrule.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, tenantID, scope, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ReconciliationRuleListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a reconciliation rule by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.Get")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*reconciliationrule.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	rule, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rule)
}

// Create creates a new reconciliation rule
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.Create")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateReconciliationRuleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validateConditions(req.Conditions); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*reconciliationrule.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, tenantID, req)
	if err != nil {
		return err
	}

	emitRuleEvent(ctx, events.EventTypeRuleCreated, created)
	return c.JSON(http.StatusCreated, created)
}

// Update updates a reconciliation rule
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.Update")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.UpdateReconciliationRuleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Conditions != nil {
		if err := validateConditions(req.Conditions); err != nil {
			return err
		}
	}

	ctx, repo, err := ectoinject.GetContext[*reconciliationrule.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	updated, err := repo.Update(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	emitRuleEvent(ctx, events.EventTypeRuleUpdated, updated)
	return c.JSON(http.StatusOK, updated)
}

// Delete soft deletes a reconciliation rule
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.Delete")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reconciliationrule.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	rule, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	emitRuleEvent(ctx, events.EventTypeRuleDeleted, rule)
	return c.NoContent(http.StatusNoContent)
}

// PreviewRematch returns the before/after pairs a rule would change across
// the tenant's history, without persisting anything
func PreviewRematch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.PreviewRematch")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*reconciliation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	preview, err := svc.PreviewRematch(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preview)
}

// CommitRematch applies a rule's previewed changes to the tenant's history
func CommitRematch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule_handler.CommitRematch")
	defer span.End()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	// Optional body: the subset of previewed transactions the caller approved.
	// An absent or empty body commits every previewed pair.
	var req models.RematchCommitRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	ctx, svc, err := ectoinject.GetContext[*reconciliation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get service")
	}

	result, err := svc.CommitRematch(ctx, tenantID, c.Param("id"), req.TransactionIDs)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// validateConditions rejects field/operator combinations the engine would
// silently treat as no-match, so rule builders hear about mistakes at save
// time instead of wondering why a rule never fires
func validateConditions(conditions models.ConditionList) error {
	for i, cond := range conditions {
		if cond.Field == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("condition %d: field is required", i))
		}
		if _, known := models.AllowedOperators[cond.Field]; !known {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("condition %d: unknown field %q", i, cond.Field))
		}
		if !models.OperatorAllowed(cond.Field, cond.Operator) {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("condition %d: operator %q is not allowed for field %q", i, cond.Operator, cond.Field))
		}
		if cond.Field == models.ConditionFieldMetadata && cond.MetadataKey == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("condition %d: metadata_key is required for metadata conditions", i))
		}
		if cond.NextLogic != "" && cond.NextLogic != models.LogicAnd && cond.NextLogic != models.LogicOr {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("condition %d: next_logic must be AND or OR", i))
		}
	}
	return nil
}

// emitRuleEvent publishes a rule lifecycle event. Emission is best-effort;
// the write already succeeded.
func emitRuleEvent(ctx context.Context, eventType events.EventType, rule *models.ReconciliationRule) {
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil || emitter == nil {
		return
	}
	_ = emitter.EmitRuleChanged(ctx, eventType, rule)
}
