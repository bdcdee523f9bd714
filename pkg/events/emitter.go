// Package events handles event emission for transaction and rule lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Fern
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitTransactionsImported emits one event per transaction in an import batch.
// Ignored records emit transaction.ignored so downstream consumers can skip
// them without inspecting payloads.
func (e *Emitter) EmitTransactionsImported(ctx context.Context, txs []models.Transaction) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTransactionsImported")
	defer span.End()

	if len(txs) == 0 {
		return nil
	}

	batch := make([]*kafka.TransactionEvent, 0, len(txs))
	for i := range txs {
		tx := &txs[i]
		eventType := string(EventTypeTransactionImported)
		if tx.IsIgnored {
			eventType = string(EventTypeTransactionIgnored)
		}

		data, err := json.Marshal(tx)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal transaction event payload")
			return err
		}

		batch = append(batch, &kafka.TransactionEvent{
			EventType:      eventType,
			TenantID:       tx.TenantID,
			TransactionID:  tx.ID,
			AppliedRuleIDs: tx.AppliedRuleIDs,
			Data:           data,
		})
	}

	if err := e.producer.PublishTransactionEvents(ctx, batch); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit transaction.imported events")
		return err
	}

	return nil
}

// EmitTransactionUpdated emits an event after a rematch commit rewrites a
// persisted transaction
func (e *Emitter) EmitTransactionUpdated(ctx context.Context, tx *models.Transaction) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTransactionUpdated")
	defer span.End()

	data, err := json.Marshal(tx)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal transaction event payload")
		return err
	}

	event := &kafka.TransactionEvent{
		EventType:      string(EventTypeTransactionUpdated),
		TenantID:       tx.TenantID,
		TransactionID:  tx.ID,
		AppliedRuleIDs: tx.AppliedRuleIDs,
		Data:           data,
	}

	if err := e.producer.PublishTransactionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit transaction.updated event")
		return err
	}

	return nil
}

// EmitRuleApplied emits a summary event after a rule is committed against
// historical transactions
func (e *Emitter) EmitRuleApplied(ctx context.Context, tenantID, ruleID string, updated int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRuleApplied")
	defer span.End()

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"updated_count":  updated,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.RuleEvent{
		EventType: string(EventTypeRuleApplied),
		TenantID:  tenantID,
		RuleID:    ruleID,
		Data:      data,
	}

	if err := e.producer.PublishRuleEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit rule.applied event")
		return err
	}

	return nil
}

// EmitRuleChanged emits a rule lifecycle event (created, updated, deleted)
func (e *Emitter) EmitRuleChanged(ctx context.Context, eventType EventType, rule *models.ReconciliationRule) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRuleChanged")
	defer span.End()

	data, err := json.Marshal(rule)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal rule event payload")
		return err
	}

	event := &kafka.RuleEvent{
		EventType: string(eventType),
		TenantID:  rule.TenantID,
		RuleID:    rule.ID,
		Data:      data,
	}

	if err := e.producer.PublishRuleEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("Failed to emit rule event")
		return err
	}

	return nil
}
