package engine

import "github.com/Ramsey-B/fern/pkg/models"

// Matches reports whether a rule applies to a transaction.
//
// Conditions combine by a strict left-to-right fold: each condition's logic
// joins it to the NEXT condition, with no operator precedence. A, OR B, AND C
// evaluates as ((A or B) and C). A rule with no id or no evaluable conditions
// never matches.
func Matches(tx *models.Transaction, rule *models.ReconciliationRule, accounts []models.Account) bool {
	if rule == nil || rule.ID == "" {
		return false
	}

	conditions := rule.ValidConditions()
	if len(conditions) == 0 {
		return false
	}

	result := EvaluateCondition(tx, conditions[0], accounts)
	for i := 1; i < len(conditions); i++ {
		next := EvaluateCondition(tx, conditions[i], accounts)
		if conditions[i-1].Logic() == models.LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}
