// Package reconciliation orchestrates the rule engine against persistence:
// imports run every active rule over incoming batches, and rematches preview
// then commit a single rule against history.
package reconciliation

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/repositories/account"
	"github.com/Ramsey-B/fern/internal/repositories/reconciliationrule"
	"github.com/Ramsey-B/fern/internal/repositories/transaction"
	"github.com/Ramsey-B/fern/pkg/engine"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Service runs the rule engine over repositories and emits lifecycle events
type Service struct {
	log       ectologger.Logger
	rulesRepo *reconciliationrule.Repository
	txRepo    *transaction.Repository
	acctRepo  *account.Repository
	emitter   *events.Emitter
}

// NewService creates a new reconciliation service
func NewService(
	log ectologger.Logger,
	rulesRepo *reconciliationrule.Repository,
	txRepo *transaction.Repository,
	acctRepo *account.Repository,
	emitter *events.Emitter,
) *Service {
	return &Service{
		log:       log,
		rulesRepo: rulesRepo,
		txRepo:    txRepo,
		acctRepo:  acctRepo,
		emitter:   emitter,
	}
}

// ImportTransactions runs every active rule over a raw batch, persists the
// results (including records the rules flagged as ignored), and emits import
// events. Event emission failures are logged but never fail the import.
func (s *Service) ImportTransactions(ctx context.Context, tenantID string, req models.ImportTransactionsRequest) (*models.ImportTransactionsResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliation.Service.ImportTransactions")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"count":     len(req.Transactions),
	})

	rules, err := s.rulesRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.acctRepo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := make([]models.Transaction, 0, len(req.Transactions))
	for _, raw := range req.Transactions {
		occurredAt := now
		if raw.OccurredAt != nil {
			occurredAt = raw.OccurredAt.UTC()
		}
		batch = append(batch, models.Transaction{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			AccountID:   raw.AccountID,
			Description: raw.Description,
			Amount:      raw.Amount,
			Metadata:    raw.Metadata,
			OccurredAt:  occurredAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	applied := engine.ApplyRules(batch, rules, accounts)

	if err := s.txRepo.CreateBatch(ctx, applied); err != nil {
		return nil, err
	}

	ignored := 0
	for i := range applied {
		if applied[i].IsIgnored {
			ignored++
		}
	}

	if err := s.emitter.EmitTransactionsImported(ctx, applied); err != nil {
		log.WithError(err).Warn("Import events were not emitted")
	}

	log.WithFields(map[string]any{"ignored": ignored}).Info("Imported transactions")
	return &models.ImportTransactionsResponse{
		Imported: applied,
		Ignored:  ignored,
	}, nil
}

// PreviewRematch runs one rule over the tenant's full history and returns the
// before/after pairs it would change. Nothing is persisted.
func (s *Service) PreviewRematch(ctx context.Context, tenantID, ruleID string) (*models.RematchResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliation.Service.PreviewRematch")
	defer span.End()

	pairs, err := s.rematchPairs(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	return &models.RematchResponse{
		RuleID:     ruleID,
		Pairs:      pairs,
		TotalPairs: len(pairs),
	}, nil
}

// CommitRematch applies one rule's previewed changes to history in a single
// database transaction and emits transaction.updated plus a rule.applied
// summary. When approvedIDs is non-empty only those transactions are
// committed; an empty list commits every previewed pair.
func (s *Service) CommitRematch(ctx context.Context, tenantID, ruleID string, approvedIDs []string) (*models.RematchCommitResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciliation.Service.CommitRematch")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"rule_id":   ruleID,
	})

	pairs, err := s.rematchPairs(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	approved := make(map[string]bool, len(approvedIDs))
	for _, id := range approvedIDs {
		approved[id] = true
	}

	changed := make([]models.Transaction, 0, len(pairs))
	for _, pair := range pairs {
		if len(approved) > 0 && !approved[pair.Updated.ID] {
			continue
		}
		changed = append(changed, recordApplied(pair.Updated, ruleID))
	}

	updated, err := s.txRepo.UpdateAppliedBatch(ctx, tenantID, changed)
	if err != nil {
		return nil, err
	}

	for i := range changed {
		if err := s.emitter.EmitTransactionUpdated(ctx, &changed[i]); err != nil {
			log.WithError(err).Warn("Rematch update event was not emitted")
			break
		}
	}
	if err := s.emitter.EmitRuleApplied(ctx, tenantID, ruleID, updated); err != nil {
		log.WithError(err).Warn("Rule applied event was not emitted")
	}

	log.WithFields(map[string]any{"updated": updated}).Info("Committed rematch")
	return &models.RematchCommitResponse{
		RuleID:  ruleID,
		Updated: updated,
	}, nil
}

func (s *Service) rematchPairs(ctx context.Context, tenantID, ruleID string) ([]models.RematchPair, error) {
	rule, err := s.rulesRepo.Get(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txRepo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.acctRepo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return engine.FindMatchingTransactions(txs, rule, accounts), nil
}

// recordApplied updates the bookkeeping fields before a rematch commit is
// persisted: the rule joins applied_rule_ids once, and becomes the primary
// applied rule when none was set
func recordApplied(tx models.Transaction, ruleID string) models.Transaction {
	if !tx.AppliedRuleIDs.Contains(ruleID) {
		ids := make(models.StringList, 0, len(tx.AppliedRuleIDs)+1)
		ids = append(ids, tx.AppliedRuleIDs...)
		ids = append(ids, ruleID)
		tx.AppliedRuleIDs = ids
	}
	if tx.AppliedRuleID == nil {
		id := ruleID
		tx.AppliedRuleID = &id
	}
	return tx
}
