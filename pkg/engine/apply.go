package engine

import "github.com/Ramsey-B/fern/pkg/models"

// ApplyRules runs every rule, in the order given, over a batch of imported
// transactions and returns the resulting copies. The inputs are not mutated;
// the caller owns persisting the result. An empty rule list returns the batch
// unchanged.
//
// Each transaction folds through the rule chain one rule at a time, so later
// rules evaluate against the record as earlier rules left it. Per-field merge
// across the chain:
//   - single-value setters (category, counterparty, location, user, type,
//     description) overwrite, so the last matching rule wins
//   - tag assignments accumulate as a set union across all matching rules
//   - skip_import is sticky: once any matching rule sets it the record stays
//     ignored, regardless of later rules
func ApplyRules(txs []models.Transaction, rules []models.ReconciliationRule, accounts []models.Account) []models.Transaction {
	if len(rules) == 0 {
		return txs
	}

	out := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		out = append(out, applyChain(txs[i], rules, accounts))
	}
	return out
}

func applyChain(tx models.Transaction, rules []models.ReconciliationRule, accounts []models.Account) models.Transaction {
	next := tx
	backfillOriginalDescription(&next)

	var matched models.StringList
	for i := range rules {
		rule := &rules[i]
		if !Matches(&next, rule, accounts) {
			continue
		}
		next = applySetters(next, rule)
		matched = append(matched, rule.ID)
	}

	if len(matched) > 0 {
		next.AppliedRuleIDs = matched
		first := matched[0]
		next.AppliedRuleID = &first
	}
	return next
}

// backfillOriginalDescription preserves the bank's phrasing before any rule
// can rewrite the display description
func backfillOriginalDescription(tx *models.Transaction) {
	if tx.OriginalDescription == nil {
		original := tx.Description
		tx.OriginalDescription = &original
	}
}

// applySetters returns a copy of the transaction with one rule's mutations
// applied, including the sticky skip flag. Used on the import path.
func applySetters(tx models.Transaction, rule *models.ReconciliationRule) models.Transaction {
	next := applyFieldSetters(tx, rule)
	if rule.SkipImport {
		next.IsIgnored = true
	}
	return next
}

// applyFieldSetters applies only the field setters and tag union. The skip
// flag is an import-time decision and never touches already-persisted records,
// so the rematcher uses this form.
func applyFieldSetters(tx models.Transaction, rule *models.ReconciliationRule) models.Transaction {
	next := tx

	overwrite(&next.CategoryID, rule.SetCategoryID)
	overwrite(&next.CounterpartyID, rule.CounterpartySetter())
	overwrite(&next.LocationID, rule.SetLocationID)
	overwrite(&next.UserID, rule.SetUserID)
	overwrite(&next.TypeID, rule.SetTransactionTypeID)

	if rule.SetDescription != nil {
		next.Description = *rule.SetDescription
	}
	if len(rule.AssignTagIDs) > 0 {
		next.TagIDs = unionTags(next.TagIDs, rule.AssignTagIDs)
	}
	return next
}

func overwrite(dst **string, src *string) {
	if src == nil {
		return
	}
	value := *src
	*dst = &value
}

// unionTags merges two tag lists preserving first-seen order, without
// duplicates. Always returns a fresh slice so chained applications never
// share backing arrays with their inputs.
func unionTags(existing, assigned models.StringList) models.StringList {
	merged := make(models.StringList, 0, len(existing)+len(assigned))
	seen := make(map[string]struct{}, len(existing)+len(assigned))
	for _, list := range []models.StringList{existing, assigned} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
