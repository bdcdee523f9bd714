package reconciliationrule

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "reconciliation_rules"

var columns = []string{
	"id", "tenant_id", "name", "scope", "conditions",
	"set_category_id", "set_payee_id", "set_counterparty_id", "set_location_id",
	"set_user_id", "set_transaction_type_id", "set_description",
	"assign_tag_ids", "skip_import", "is_active",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles reconciliation rule persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reconciliation rule repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new reconciliation rule
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateReconciliationRuleRequest) (*models.ReconciliationRule, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"name":      req.Name,
	})

	now := time.Now().UTC()
	rule := &models.ReconciliationRule{
		ID:                   uuid.New().String(),
		TenantID:             tenantID,
		Name:                 req.Name,
		Scope:                req.Scope,
		Conditions:           req.Conditions,
		SetCategoryID:        req.SetCategoryID,
		SetPayeeID:           req.SetPayeeID,
		SetCounterpartyID:    req.SetCounterpartyID,
		SetLocationID:        req.SetLocationID,
		SetUserID:            req.SetUserID,
		SetTransactionTypeID: req.SetTransactionTypeID,
		SetDescription:       req.SetDescription,
		AssignTagIDs:         req.AssignTagIDs,
		SkipImport:           req.SkipImport,
		IsActive:             req.IsActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(
		"id", "tenant_id", "name", "scope", "conditions",
		"set_category_id", "set_payee_id", "set_counterparty_id", "set_location_id",
		"set_user_id", "set_transaction_type_id", "set_description",
		"assign_tag_ids", "skip_import", "is_active", "created_at", "updated_at",
	)
	sb.Values(
		rule.ID, rule.TenantID, rule.Name, rule.Scope, rule.Conditions,
		rule.SetCategoryID, rule.SetPayeeID, rule.SetCounterpartyID, rule.SetLocationID,
		rule.SetUserID, rule.SetTransactionTypeID, rule.SetDescription,
		rule.AssignTagIDs, rule.SkipImport, rule.IsActive, rule.CreatedAt, rule.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create reconciliation rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create reconciliation rule")
	}

	log.WithFields(map[string]any{"id": rule.ID}).Info("Created reconciliation rule")
	return rule, nil
}

// Get retrieves a reconciliation rule by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ReconciliationRule, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var rule models.ReconciliationRule
	if err := r.db.GetContext(ctx, &rule, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reconciliation rule %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get reconciliation rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciliation rule")
	}

	return &rule, nil
}

// ListActive retrieves all active rules for a tenant in creation order, which
// is the order imports apply them in
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]models.ReconciliationRule, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var rules []models.ReconciliationRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active reconciliation rules")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active reconciliation rules")
	}

	return rules, nil
}

// List retrieves a page of reconciliation rules for a tenant
func (r *Repository) List(ctx context.Context, tenantID string, scope *string, page, pageSize int) ([]models.ReconciliationRule, int, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Count total
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	countWhere := []string{
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	}
	if scope != nil {
		countWhere = append(countWhere, countSb.Equal("scope", *scope))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count reconciliation rules")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count reconciliation rules")
	}

	// Fetch page
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	}
	if scope != nil {
		where = append(where, sb.Equal("scope", *scope))
	}
	sb.Where(where...)
	sb.OrderBy("created_at ASC", "id ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rules []models.ReconciliationRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reconciliation rules")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reconciliation rules")
	}

	return rules, totalCount, nil
}

// Update updates a reconciliation rule
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateReconciliationRuleRequest) (*models.ReconciliationRule, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Scope != nil {
		existing.Scope = *req.Scope
	}
	if req.Conditions != nil {
		existing.Conditions = req.Conditions
	}
	if req.SetCategoryID != nil {
		existing.SetCategoryID = req.SetCategoryID
	}
	if req.SetPayeeID != nil {
		existing.SetPayeeID = req.SetPayeeID
	}
	if req.SetCounterpartyID != nil {
		existing.SetCounterpartyID = req.SetCounterpartyID
	}
	if req.SetLocationID != nil {
		existing.SetLocationID = req.SetLocationID
	}
	if req.SetUserID != nil {
		existing.SetUserID = req.SetUserID
	}
	if req.SetTransactionTypeID != nil {
		existing.SetTransactionTypeID = req.SetTransactionTypeID
	}
	if req.SetDescription != nil {
		existing.SetDescription = req.SetDescription
	}
	if req.AssignTagIDs != nil {
		existing.AssignTagIDs = req.AssignTagIDs
	}
	if req.SkipImport != nil {
		existing.SkipImport = *req.SkipImport
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("name", existing.Name),
		sb.Assign("scope", existing.Scope),
		sb.Assign("conditions", existing.Conditions),
		sb.Assign("set_category_id", existing.SetCategoryID),
		sb.Assign("set_payee_id", existing.SetPayeeID),
		sb.Assign("set_counterparty_id", existing.SetCounterpartyID),
		sb.Assign("set_location_id", existing.SetLocationID),
		sb.Assign("set_user_id", existing.SetUserID),
		sb.Assign("set_transaction_type_id", existing.SetTransactionTypeID),
		sb.Assign("set_description", existing.SetDescription),
		sb.Assign("assign_tag_ids", existing.AssignTagIDs),
		sb.Assign("skip_import", existing.SkipImport),
		sb.Assign("is_active", existing.IsActive),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update reconciliation rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update reconciliation rule")
	}

	return existing, nil
}

// Delete soft deletes a reconciliation rule
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "reconciliationrule.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete reconciliation rule")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reconciliation rule")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reconciliation rule %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted reconciliation rule")
	return nil
}
