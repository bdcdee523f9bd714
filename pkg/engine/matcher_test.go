package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func descriptionContains(value string, next models.ConditionLogic) models.RuleCondition {
	return models.RuleCondition{
		Field:     models.ConditionFieldDescription,
		Operator:  models.OperatorContains,
		Value:     models.StringValue(value),
		NextLogic: next,
	}
}

func TestMatches(t *testing.T) {
	tx := &models.Transaction{Description: "Starbucks Store #123", Amount: -6.75}

	t.Run("single condition", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID:         "rule-1",
			Conditions: models.ConditionList{descriptionContains("starbucks", "")},
		}

		assert.True(t, Matches(tx, rule, nil))
	})

	t.Run("AND requires both", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				descriptionContains("starbucks", models.LogicAnd),
				{
					Field:    models.ConditionFieldAmount,
					Operator: models.OperatorLessThan,
					Value:    models.NumberValue(5),
				},
			},
		}

		assert.False(t, Matches(tx, rule, nil))
	})

	t.Run("OR requires either", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				descriptionContains("dunkin", models.LogicOr),
				descriptionContains("starbucks", ""),
			},
		}

		assert.True(t, Matches(tx, rule, nil))
	})

	t.Run("fold is strict left-to-right with no precedence", func(t *testing.T) {
		// A=true OR B=false AND C=false folds as ((A or B) and C) = false
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				descriptionContains("starbucks", models.LogicOr),
				descriptionContains("dunkin", models.LogicAnd),
				descriptionContains("peets", ""),
			},
		}

		assert.False(t, Matches(tx, rule, nil))
	})

	t.Run("missing logic defaults to AND", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				descriptionContains("starbucks", ""),
				descriptionContains("dunkin", ""),
			},
		}

		assert.False(t, Matches(tx, rule, nil))
	})

	t.Run("rule without id never matches", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			Conditions: models.ConditionList{descriptionContains("starbucks", "")},
		}

		assert.False(t, Matches(tx, rule, nil))
	})

	t.Run("rule without conditions never matches", func(t *testing.T) {
		assert.False(t, Matches(tx, &models.ReconciliationRule{ID: "rule-1"}, nil))
		assert.False(t, Matches(tx, nil, nil))
	})

	t.Run("fieldless conditions are skipped, not fatal", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				{Operator: models.OperatorContains, Value: models.StringValue("ignored")},
				descriptionContains("starbucks", ""),
			},
		}

		assert.True(t, Matches(tx, rule, nil))
	})

	t.Run("rule with only fieldless conditions never matches", func(t *testing.T) {
		rule := &models.ReconciliationRule{
			ID: "rule-1",
			Conditions: models.ConditionList{
				{Operator: models.OperatorContains, Value: models.StringValue("ignored")},
			},
		}

		assert.False(t, Matches(tx, rule, nil))
	})
}
