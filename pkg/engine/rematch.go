package engine

import "github.com/Ramsey-B/fern/pkg/models"

// FindMatchingTransactions previews one rule against persisted transactions.
// It returns (original, updated) pairs only for records the rule would
// visibly change, so an approve-before-apply list never contains no-op rows.
//
// A matching record is skipped when the rule's setters would leave every
// assignable field at its current value and add no new tags. The original
// side of each pair is the record exactly as persisted; the updated side has
// original_description backfilled when it was absent. Only the field setters
// and tag union run here; skip_import decides whether a record enters the
// books at import time and is never applied retroactively.
func FindMatchingTransactions(txs []models.Transaction, rule *models.ReconciliationRule, accounts []models.Account) []models.RematchPair {
	pairs := make([]models.RematchPair, 0)
	for i := range txs {
		original := txs[i]
		if !Matches(&original, rule, accounts) {
			continue
		}

		updated := original
		backfillOriginalDescription(&updated)
		updated = applyFieldSetters(updated, rule)

		if !wouldChange(&original, &updated) {
			continue
		}
		pairs = append(pairs, models.RematchPair{Original: original, Updated: updated})
	}
	return pairs
}

// wouldChange reports whether applying a rule altered any assignable field.
// original_description backfill alone does not count as a change.
func wouldChange(original, updated *models.Transaction) bool {
	if !equalPtr(original.CategoryID, updated.CategoryID) {
		return true
	}
	if !equalPtr(original.CounterpartyID, updated.CounterpartyID) {
		return true
	}
	if !equalPtr(original.LocationID, updated.LocationID) {
		return true
	}
	if !equalPtr(original.UserID, updated.UserID) {
		return true
	}
	if !equalPtr(original.TypeID, updated.TypeID) {
		return true
	}
	if original.Description != updated.Description {
		return true
	}
	// tags only ever accumulate, so growth means a new tag was assigned
	return len(updated.TagIDs) > len(original.TagIDs)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
