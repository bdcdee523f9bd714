package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestFindMatchingTransactions(t *testing.T) {
	t.Run("emits pairs only for records the rule would change", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetCategoryID = strPtr("cat-coffee")

		txs := []models.Transaction{
			{ID: "tx-1", Description: "Starbucks #1"},
			{ID: "tx-2", Description: "Hardware store"},
			{ID: "tx-3", Description: "Starbucks #2", CategoryID: strPtr("cat-coffee")},
		}

		pairs := FindMatchingTransactions(txs, &rule, nil)

		require.Len(t, pairs, 1)
		assert.Equal(t, "tx-1", pairs[0].Original.ID)
		assert.Nil(t, pairs[0].Original.CategoryID)
		require.NotNil(t, pairs[0].Updated.CategoryID)
		assert.Equal(t, "cat-coffee", *pairs[0].Updated.CategoryID)
	})

	t.Run("original side is the record exactly as persisted", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SetDescription = strPtr("Coffee")

		pairs := FindMatchingTransactions([]models.Transaction{{ID: "tx-1", Description: "Starbucks"}}, &rule, nil)

		require.Len(t, pairs, 1)
		assert.Nil(t, pairs[0].Original.OriginalDescription)
		require.NotNil(t, pairs[0].Updated.OriginalDescription)
		assert.Equal(t, "Starbucks", *pairs[0].Updated.OriginalDescription)
		assert.Equal(t, "Coffee", pairs[0].Updated.Description)
	})

	t.Run("tag growth counts as a change, existing tags do not", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.AssignTagIDs = models.StringList{"tag-a"}

		txs := []models.Transaction{
			{ID: "tx-1", Description: "Starbucks", TagIDs: models.StringList{"tag-a"}},
			{ID: "tx-2", Description: "Starbucks", TagIDs: models.StringList{"tag-b"}},
		}

		pairs := FindMatchingTransactions(txs, &rule, nil)

		require.Len(t, pairs, 1)
		assert.Equal(t, "tx-2", pairs[0].Original.ID)
		assert.Equal(t, models.StringList{"tag-b", "tag-a"}, pairs[0].Updated.TagIDs)
	})

	t.Run("skip-only rule emits nothing", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SkipImport = true

		pairs := FindMatchingTransactions([]models.Transaction{{ID: "tx-1", Description: "Starbucks"}}, &rule, nil)

		assert.Empty(t, pairs)
	})

	t.Run("skip flag never flips on persisted records", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")
		rule.SkipImport = true
		rule.SetCategoryID = strPtr("cat-coffee")

		pairs := FindMatchingTransactions([]models.Transaction{{ID: "tx-1", Description: "Starbucks"}}, &rule, nil)

		require.Len(t, pairs, 1)
		assert.False(t, pairs[0].Updated.IsIgnored)
		require.NotNil(t, pairs[0].Updated.CategoryID)
		assert.Equal(t, "cat-coffee", *pairs[0].Updated.CategoryID)
	})

	t.Run("matching rule with no effective setters emits nothing", func(t *testing.T) {
		rule := ruleMatching("rule-1", "starbucks")

		pairs := FindMatchingTransactions([]models.Transaction{{ID: "tx-1", Description: "Starbucks"}}, &rule, nil)

		assert.Empty(t, pairs)
	})

	t.Run("rule without id emits nothing", func(t *testing.T) {
		rule := models.ReconciliationRule{
			Conditions: models.ConditionList{descriptionContains("starbucks", "")},
		}
		rule.SetCategoryID = strPtr("cat-coffee")

		pairs := FindMatchingTransactions([]models.Transaction{{ID: "tx-1", Description: "Starbucks"}}, &rule, nil)

		assert.Empty(t, pairs)
	})
}
