package transaction

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "transactions"

var columns = []string{
	"id", "tenant_id", "account_id", "description", "original_description",
	"amount", "category_id", "counterparty_id", "location_id", "user_id",
	"type_id", "tag_ids", "metadata", "is_ignored",
	"applied_rule_id", "applied_rule_ids",
	"occurred_at", "created_at", "updated_at",
}

// ListFilter narrows transaction listings
type ListFilter struct {
	AccountID      *string
	IncludeIgnored bool
}

// Repository handles transaction persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts a batch of transactions that have already been through
// the rule engine
func (r *Repository) CreateBatch(ctx context.Context, txs []models.Transaction) error {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.CreateBatch")
	defer span.End()

	if len(txs) == 0 {
		return nil
	}

	// re-running a feed import must not duplicate rows
	sb := database.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	for i := range txs {
		tx := &txs[i]
		sb.Values(
			tx.ID, tx.TenantID, tx.AccountID, tx.Description, tx.OriginalDescription,
			tx.Amount, tx.CategoryID, tx.CounterpartyID, tx.LocationID, tx.UserID,
			tx.TypeID, tx.TagIDs, tx.Metadata, tx.IsIgnored,
			tx.AppliedRuleID, tx.AppliedRuleIDs,
			tx.OccurredAt, tx.CreatedAt, tx.UpdatedAt,
		)
	}
	sb.OnConflictDoNothing()

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"count": len(txs),
		}).Error("Failed to insert transactions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert transactions")
	}

	return nil
}

// Get retrieves a transaction by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("transaction %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get transaction")
	}

	return &tx, nil
}

// List retrieves a page of transactions for a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string, filter ListFilter, page, pageSize int) ([]models.Transaction, int, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	countSb.Where(filterWhere(countSb, tenantID, filter)...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count transactions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count transactions")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(filterWhere(sb, tenantID, filter)...)
	sb.OrderBy("occurred_at DESC", "id DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var txs []models.Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list transactions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transactions")
	}

	return txs, totalCount, nil
}

func filterWhere(sb *sqlbuilder.SelectBuilder, tenantID string, filter ListFilter) []string {
	where := []string{sb.Equal("tenant_id", tenantID)}
	if filter.AccountID != nil {
		where = append(where, sb.Equal("account_id", *filter.AccountID))
	}
	if !filter.IncludeIgnored {
		where = append(where, sb.Equal("is_ignored", false))
	}
	return where
}

// ListAll retrieves every transaction for a tenant in import order. Used by
// the rematch preview, which walks the full history.
func (r *Repository) ListAll(ctx context.Context, tenantID string) ([]models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("occurred_at ASC", "id ASC")

	query, args := sb.Build()
	var txs []models.Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transactions")
	}

	return txs, nil
}

// UpdateAppliedBatch persists rule-assignable fields for a set of
// transactions in a single database transaction, so a rematch commit is all
// or nothing. Returns the number of rows updated.
func (r *Repository) UpdateAppliedBatch(ctx context.Context, tenantID string, txs []models.Transaction) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.UpdateAppliedBatch")
	defer span.End()

	if len(txs) == 0 {
		return 0, nil
	}

	ctx, dbTx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer dbTx.Rollback(ctx)

	now := time.Now().UTC()
	updated := 0
	for i := range txs {
		tx := &txs[i]
		sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		sb.Update(table)
		sb.Set(
			sb.Assign("description", tx.Description),
			sb.Assign("original_description", tx.OriginalDescription),
			sb.Assign("category_id", tx.CategoryID),
			sb.Assign("counterparty_id", tx.CounterpartyID),
			sb.Assign("location_id", tx.LocationID),
			sb.Assign("user_id", tx.UserID),
			sb.Assign("type_id", tx.TypeID),
			sb.Assign("tag_ids", tx.TagIDs),
			sb.Assign("is_ignored", tx.IsIgnored),
			sb.Assign("applied_rule_id", tx.AppliedRuleID),
			sb.Assign("applied_rule_ids", tx.AppliedRuleIDs),
			sb.Assign("updated_at", now),
		)
		sb.Where(
			sb.Equal("id", tx.ID),
			sb.Equal("tenant_id", tenantID),
		)

		query, args := sb.Build()
		result, err := dbTx.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"id": tx.ID,
			}).Error("Failed to update transaction in batch")
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update transactions")
		}
		rows, _ := result.RowsAffected()
		updated += int(rows)
	}

	if err := dbTx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction updates")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit transaction updates")
	}

	return updated, nil
}
