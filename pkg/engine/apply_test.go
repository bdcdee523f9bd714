package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func ruleMatching(id, token string) models.ReconciliationRule {
	return models.ReconciliationRule{
		ID:         id,
		Conditions: models.ConditionList{descriptionContains(token, "")},
	}
}

func TestApplyRules(t *testing.T) {
	t.Run("empty rule list passes the batch through unchanged", func(t *testing.T) {
		txs := []models.Transaction{{ID: "tx-1", Description: "Starbucks"}}

		out := ApplyRules(txs, nil, nil)

		require.Len(t, out, 1)
		assert.Equal(t, txs[0], out[0])
		assert.Nil(t, out[0].OriginalDescription)
	})

	t.Run("backfills original description before mutating", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetDescription = strPtr("Coffee")

		out := ApplyRules([]models.Transaction{{Description: "STARBUCKS #123"}}, []models.ReconciliationRule{rule}, nil)

		require.Len(t, out, 1)
		assert.Equal(t, "Coffee", out[0].Description)
		require.NotNil(t, out[0].OriginalDescription)
		assert.Equal(t, "STARBUCKS #123", *out[0].OriginalDescription)
	})

	t.Run("does not overwrite an existing original description", func(t *testing.T) {
		rule := ruleMatching("rule-1", "coffee")
		rule.SetDescription = strPtr("Morning coffee")
		tx := models.Transaction{
			Description:         "Coffee",
			OriginalDescription: strPtr("SQ *BLUE BOTTLE"),
		}

		out := ApplyRules([]models.Transaction{tx}, []models.ReconciliationRule{rule}, nil)

		require.NotNil(t, out[0].OriginalDescription)
		assert.Equal(t, "SQ *BLUE BOTTLE", *out[0].OriginalDescription)
	})

	t.Run("last matching rule wins single-value fields", func(t *testing.T) {
		first := ruleMatching("rule-1", "starbucks")
		first.SetCategoryID = strPtr("cat-dining")
		second := ruleMatching("rule-2", "starbucks")
		second.SetCategoryID = strPtr("cat-coffee")

		out := ApplyRules(
			[]models.Transaction{{Description: "Starbucks"}},
			[]models.ReconciliationRule{first, second},
			nil,
		)

		require.NotNil(t, out[0].CategoryID)
		assert.Equal(t, "cat-coffee", *out[0].CategoryID)
	})

	t.Run("set_counterparty_id wins over legacy set_payee_id", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetPayeeID = strPtr("cp-legacy")
		rule.SetCounterpartyID = strPtr("cp-current")

		out := ApplyRules([]models.Transaction{{Description: "Starbucks"}}, []models.ReconciliationRule{rule}, nil)

		require.NotNil(t, out[0].CounterpartyID)
		assert.Equal(t, "cp-current", *out[0].CounterpartyID)
	})

	t.Run("legacy set_payee_id applies when it is the only counterparty setter", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetPayeeID = strPtr("cp-legacy")

		out := ApplyRules([]models.Transaction{{Description: "Starbucks"}}, []models.ReconciliationRule{rule}, nil)

		require.NotNil(t, out[0].CounterpartyID)
		assert.Equal(t, "cp-legacy", *out[0].CounterpartyID)
	})

	t.Run("tags union across matching rules", func(t *testing.T) {
		first := ruleMatching("rule-1", "starbucks")
		first.AssignTagIDs = models.StringList{"tag-a", "tag-b"}
		second := ruleMatching("rule-2", "starbucks")
		second.AssignTagIDs = models.StringList{"tag-b", "tag-c"}

		tx := models.Transaction{Description: "Starbucks", TagIDs: models.StringList{"tag-a"}}
		out := ApplyRules([]models.Transaction{tx}, []models.ReconciliationRule{first, second}, nil)

		assert.Equal(t, models.StringList{"tag-a", "tag-b", "tag-c"}, out[0].TagIDs)
	})

	t.Run("skip_import is sticky across the chain", func(t *testing.T) {
		skip := ruleMatching("rule-1", "starbucks")
		skip.SkipImport = true
		later := ruleMatching("rule-2", "starbucks")
		later.SetCategoryID = strPtr("cat-coffee")

		out := ApplyRules([]models.Transaction{{Description: "Starbucks"}}, []models.ReconciliationRule{skip, later}, nil)

		assert.True(t, out[0].IsIgnored)
		require.NotNil(t, out[0].CategoryID)
	})

	t.Run("tracks applied rules in match order with the first as primary", func(t *testing.T) {
		first := ruleMatching("rule-1", "starbucks")
		miss := ruleMatching("rule-2", "dunkin")
		third := ruleMatching("rule-3", "starbucks")

		out := ApplyRules(
			[]models.Transaction{{Description: "Starbucks"}},
			[]models.ReconciliationRule{first, miss, third},
			nil,
		)

		assert.Equal(t, models.StringList{"rule-1", "rule-3"}, out[0].AppliedRuleIDs)
		require.NotNil(t, out[0].AppliedRuleID)
		assert.Equal(t, "rule-1", *out[0].AppliedRuleID)
	})

	t.Run("later rules see earlier rules' mutations", func(t *testing.T) {
		rename := ruleMatching("rule-1", "sq *blue bottle")
		rename.SetDescription = strPtr("Blue Bottle")
		followup := ruleMatching("rule-2", "blue bottle")
		followup.SetCategoryID = strPtr("cat-coffee")

		out := ApplyRules(
			[]models.Transaction{{Description: "SQ *BLUE BOTTLE COFFEE"}},
			[]models.ReconciliationRule{rename, followup},
			nil,
		)

		assert.Equal(t, "Blue Bottle", out[0].Description)
		require.NotNil(t, out[0].CategoryID)
		assert.Equal(t, "cat-coffee", *out[0].CategoryID)
	})

	t.Run("non-matching transactions keep their fields", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetCategoryID = strPtr("cat-coffee")
		tx := models.Transaction{Description: "Hardware store", CategoryID: strPtr("cat-home")}

		out := ApplyRules([]models.Transaction{tx}, []models.ReconciliationRule{rule}, nil)

		require.NotNil(t, out[0].CategoryID)
		assert.Equal(t, "cat-home", *out[0].CategoryID)
		assert.Empty(t, out[0].AppliedRuleIDs)
		assert.Nil(t, out[0].AppliedRuleID)
		// original description is still captured for future rule runs
		require.NotNil(t, out[0].OriginalDescription)
		assert.Equal(t, "Hardware store", *out[0].OriginalDescription)
	})

	t.Run("input batch is not mutated", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetDescription = strPtr("Coffee")
		rule.AssignTagIDs = models.StringList{"tag-a"}
		txs := []models.Transaction{{Description: "Starbucks", TagIDs: models.StringList{"tag-z"}}}

		ApplyRules(txs, []models.ReconciliationRule{rule}, nil)

		assert.Equal(t, "Starbucks", txs[0].Description)
		assert.Nil(t, txs[0].OriginalDescription)
		assert.Equal(t, models.StringList{"tag-z"}, txs[0].TagIDs)
	})
}
