package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestEvaluateCondition_Description(t *testing.T) {
	t.Run("contains matches case-insensitively with collapsed whitespace", func(t *testing.T) {
		tx := &models.Transaction{Description: "  STARBUCKS   Store #123  "}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorContains,
			Value:    models.StringValue("starbucks store"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("equals ignores case and whitespace differences", func(t *testing.T) {
		tx := &models.Transaction{Description: "Walmart   Store"}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorEquals,
			Value:    models.StringValue("walmart store"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("matches original description when current was rewritten", func(t *testing.T) {
		tx := &models.Transaction{
			Description:         "Coffee",
			OriginalDescription: strPtr("SQ *BLUE BOTTLE COFFEE ROASTERS"),
		}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorContains,
			Value:    models.StringValue("blue bottle"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("multi-token value matches any token", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorContains,
			Value:    models.StringValue("coffee||cafe"),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Description: "Corner Cafe"}, cond, nil))
		assert.True(t, EvaluateCondition(&models.Transaction{Description: "COFFEE SHOP"}, cond, nil))
		assert.False(t, EvaluateCondition(&models.Transaction{Description: "Hardware store"}, cond, nil))
	})

	t.Run("does_not_contain requires every token absent", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorDoesNotContain,
			Value:    models.StringValue("coffee||cafe"),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Description: "Hardware store"}, cond, nil))
		assert.False(t, EvaluateCondition(&models.Transaction{Description: "Corner Cafe"}, cond, nil))
		assert.False(t, EvaluateCondition(&models.Transaction{Description: "coffee shop"}, cond, nil))
	})

	t.Run("starts_with and ends_with", func(t *testing.T) {
		tx := &models.Transaction{Description: "AMZN Mktp US Amzn.com/bill"}

		starts := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorStartsWith,
			Value:    models.StringValue("amzn"),
		}
		ends := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorEndsWith,
			Value:    models.StringValue("/bill"),
		}

		assert.True(t, EvaluateCondition(tx, starts, nil))
		assert.True(t, EvaluateCondition(tx, ends, nil))
	})

	t.Run("regex_match compiles case-insensitively", func(t *testing.T) {
		tx := &models.Transaction{Description: "CHECK #1042"}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorRegexMatch,
			Value:    models.StringValue(`check #\d+`),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("invalid regex evaluates to false", func(t *testing.T) {
		tx := &models.Transaction{Description: "anything"}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: models.OperatorRegexMatch,
			Value:    models.StringValue("[unclosed"),
		}

		assert.False(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("unknown operator evaluates to false", func(t *testing.T) {
		tx := &models.Transaction{Description: "anything"}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldDescription,
			Operator: "fuzzy_match",
			Value:    models.StringValue("anything"),
		}

		assert.False(t, EvaluateCondition(tx, cond, nil))
	})
}

func TestEvaluateCondition_Metadata(t *testing.T) {
	tx := &models.Transaction{
		Description: "POS PURCHASE",
		Metadata: models.Metadata{
			"Merchant_Category": "Restaurants",
			"check_number":      float64(1042),
			"memo":              "  ",
		},
	}

	t.Run("key lookup is case-insensitive", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorContains,
			MetadataKey: "merchant_category",
			Value:       models.StringValue("restaurant"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("non-string values are stringified before comparing", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorEquals,
			MetadataKey: "check_number",
			Value:       models.StringValue("1042"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("exists requires a non-blank value", func(t *testing.T) {
		present := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorExists,
			MetadataKey: "merchant_category",
		}
		blank := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorExists,
			MetadataKey: "memo",
		}
		missing := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorExists,
			MetadataKey: "reference",
		}

		assert.True(t, EvaluateCondition(tx, present, nil))
		assert.False(t, EvaluateCondition(tx, blank, nil))
		assert.False(t, EvaluateCondition(tx, missing, nil))
	})

	t.Run("missing key compares as empty string", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:       models.ConditionFieldMetadata,
			Operator:    models.OperatorEquals,
			MetadataKey: "reference",
			Value:       models.StringValue(""),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("missing metadata key field evaluates exists to false", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldMetadata,
			Operator: models.OperatorExists,
		}

		assert.False(t, EvaluateCondition(tx, cond, nil))
	})
}

func TestEvaluateCondition_Amount(t *testing.T) {
	t.Run("equals within tolerance", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorEquals,
			Value:    models.NumberValue(100.005),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Amount: 100.004}, cond, nil))
		assert.False(t, EvaluateCondition(&models.Transaction{Amount: 100.02}, cond, nil))
	})

	t.Run("compares on magnitude so debits match credit-side rules", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorEquals,
			Value:    models.NumberValue(50),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Amount: -50}, cond, nil))
		assert.True(t, EvaluateCondition(&models.Transaction{Amount: 50}, cond, nil))
	})

	t.Run("greater_than and less_than on magnitude", func(t *testing.T) {
		greater := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorGreaterThan,
			Value:    models.NumberValue(100),
		}
		less := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorLessThan,
			Value:    models.NumberValue(100),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Amount: -150}, greater, nil))
		assert.False(t, EvaluateCondition(&models.Transaction{Amount: 99}, greater, nil))
		assert.True(t, EvaluateCondition(&models.Transaction{Amount: -99}, less, nil))
	})

	t.Run("string values parse as numbers", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorGreaterThan,
			Value:    models.StringValue("25.50"),
		}

		assert.True(t, EvaluateCondition(&models.Transaction{Amount: 30}, cond, nil))
	})

	t.Run("non-numeric value evaluates to false", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAmount,
			Operator: models.OperatorEquals,
			Value:    models.StringValue("lots"),
		}

		assert.False(t, EvaluateCondition(&models.Transaction{Amount: 10}, cond, nil))
	})
}

func TestEvaluateCondition_Account(t *testing.T) {
	accounts := []models.Account{
		{ID: "acct-1", Name: "Business Checking"},
		{ID: "acct-2", Name: "Personal Savings"},
	}
	tx := &models.Transaction{AccountID: strPtr("acct-1")}

	t.Run("equals compares the raw id", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAccount,
			Operator: models.OperatorEquals,
			Value:    models.StringValue("acct-1"),
		}

		assert.True(t, EvaluateCondition(tx, cond, accounts))
	})

	t.Run("contains resolves the id to the account name", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAccount,
			Operator: models.OperatorContains,
			Value:    models.StringValue("checking"),
		}

		assert.True(t, EvaluateCondition(tx, cond, accounts))
		assert.False(t, EvaluateCondition(&models.Transaction{AccountID: strPtr("acct-2")}, cond, accounts))
	})

	t.Run("unresolvable id compares against an empty name", func(t *testing.T) {
		unknown := &models.Transaction{AccountID: strPtr("acct-404")}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldAccount,
			Operator: models.OperatorContains,
			Value:    models.StringValue("checking"),
		}

		assert.False(t, EvaluateCondition(unknown, cond, accounts))
	})
}

func TestEvaluateCondition_CounterpartyAndLocation(t *testing.T) {
	tx := &models.Transaction{
		CounterpartyID: strPtr("cp-9"),
		LocationID:     strPtr("loc-3"),
	}

	t.Run("equals matches the id", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldCounterparty,
			Operator: models.OperatorEquals,
			Value:    models.StringValue("cp-9"),
		}

		assert.True(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("only equals is supported", func(t *testing.T) {
		cond := models.RuleCondition{
			Field:    models.ConditionFieldLocation,
			Operator: models.OperatorContains,
			Value:    models.StringValue("loc"),
		}

		assert.False(t, EvaluateCondition(tx, cond, nil))
	})

	t.Run("nil id only matches an empty value", func(t *testing.T) {
		bare := &models.Transaction{}
		cond := models.RuleCondition{
			Field:    models.ConditionFieldCounterparty,
			Operator: models.OperatorEquals,
			Value:    models.StringValue("cp-9"),
		}

		assert.False(t, EvaluateCondition(bare, cond, nil))
	})
}

func TestEvaluateCondition_UnknownField(t *testing.T) {
	tx := &models.Transaction{Description: "anything"}
	cond := models.RuleCondition{
		Field:    "merchant",
		Operator: models.OperatorContains,
		Value:    models.StringValue("anything"),
	}

	assert.False(t, EvaluateCondition(tx, cond, nil))
}
