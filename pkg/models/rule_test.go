package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionValue_JSON(t *testing.T) {
	t.Run("decodes string values", func(t *testing.T) {
		var cond RuleCondition
		require.NoError(t, json.Unmarshal([]byte(`{"field":"description","operator":"contains","value":"coffee||cafe"}`), &cond))

		assert.Equal(t, "coffee||cafe", cond.Value.String())
		_, numeric := cond.Value.Number()
		assert.False(t, numeric)
	})

	t.Run("decodes number values", func(t *testing.T) {
		var cond RuleCondition
		require.NoError(t, json.Unmarshal([]byte(`{"field":"amount","operator":"equals","value":100.5}`), &cond))

		n, numeric := cond.Value.Number()
		assert.True(t, numeric)
		assert.Equal(t, 100.5, n)
		assert.Equal(t, "100.5", cond.Value.String())
	})

	t.Run("numeric strings parse as numbers", func(t *testing.T) {
		n, ok := StringValue(" 42.25 ").Number()
		assert.True(t, ok)
		assert.Equal(t, 42.25, n)
	})

	t.Run("rejects other value types", func(t *testing.T) {
		var cond RuleCondition
		assert.Error(t, json.Unmarshal([]byte(`{"field":"amount","operator":"equals","value":{"nested":true}}`), &cond))
	})

	t.Run("round-trips preserving value type", func(t *testing.T) {
		number, err := json.Marshal(NumberValue(12))
		require.NoError(t, err)
		assert.Equal(t, `12`, string(number))

		str, err := json.Marshal(StringValue("12"))
		require.NoError(t, err)
		assert.Equal(t, `"12"`, string(str))
	})
}

func TestOperatorAllowed(t *testing.T) {
	assert.True(t, OperatorAllowed(ConditionFieldDescription, OperatorRegexMatch))
	assert.True(t, OperatorAllowed(ConditionFieldMetadata, OperatorExists))
	assert.True(t, OperatorAllowed(ConditionFieldCounterparty, OperatorEquals))

	assert.False(t, OperatorAllowed(ConditionFieldDescription, OperatorExists))
	assert.False(t, OperatorAllowed(ConditionFieldCounterparty, OperatorContains))
	assert.False(t, OperatorAllowed(ConditionFieldAmount, OperatorContains))
	assert.False(t, OperatorAllowed("merchant", OperatorContains))
}

func TestRuleCondition_Logic(t *testing.T) {
	assert.Equal(t, LogicOr, RuleCondition{NextLogic: LogicOr}.Logic())
	assert.Equal(t, LogicAnd, RuleCondition{NextLogic: LogicAnd}.Logic())
	assert.Equal(t, LogicAnd, RuleCondition{}.Logic())
	assert.Equal(t, LogicAnd, RuleCondition{NextLogic: "XOR"}.Logic())
}

func TestReconciliationRule_ValidConditions(t *testing.T) {
	rule := ReconciliationRule{
		ID: "rule-1",
		Conditions: ConditionList{
			{Field: ConditionFieldDescription, Operator: OperatorContains, Value: StringValue("coffee")},
			{Operator: OperatorContains, Value: StringValue("fieldless")},
			{Field: ConditionFieldAmount, Operator: OperatorLessThan, Value: NumberValue(10)},
		},
	}

	valid := rule.ValidConditions()

	require.Len(t, valid, 2)
	assert.Equal(t, ConditionFieldDescription, valid[0].Field)
	assert.Equal(t, ConditionFieldAmount, valid[1].Field)
}

func TestReconciliationRule_CounterpartySetter(t *testing.T) {
	current := "cp-current"
	legacy := "cp-legacy"

	both := ReconciliationRule{SetCounterpartyID: &current, SetPayeeID: &legacy}
	require.NotNil(t, both.CounterpartySetter())
	assert.Equal(t, "cp-current", *both.CounterpartySetter())

	legacyOnly := ReconciliationRule{SetPayeeID: &legacy}
	require.NotNil(t, legacyOnly.CounterpartySetter())
	assert.Equal(t, "cp-legacy", *legacyOnly.CounterpartySetter())

	assert.Nil(t, ReconciliationRule{}.CounterpartySetter())
}

func TestConditionList_Scan(t *testing.T) {
	var list ConditionList
	require.NoError(t, list.Scan([]byte(`[{"field":"description","operator":"contains","value":"coffee","next_logic":"OR"}]`)))

	require.Len(t, list, 1)
	assert.Equal(t, ConditionFieldDescription, list[0].Field)
	assert.Equal(t, LogicOr, list[0].NextLogic)

	require.NoError(t, list.Scan(nil))
	assert.Nil(t, list)
}
