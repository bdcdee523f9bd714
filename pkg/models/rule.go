package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConditionField identifies the transaction field a condition tests
type ConditionField string

const (
	ConditionFieldDescription  ConditionField = "description"
	ConditionFieldMetadata     ConditionField = "metadata"
	ConditionFieldAmount       ConditionField = "amount"
	ConditionFieldAccount      ConditionField = "accountId"
	ConditionFieldCounterparty ConditionField = "counterpartyId"
	ConditionFieldLocation     ConditionField = "locationId"
)

// ConditionOperator is the comparison applied between field and value
type ConditionOperator string

const (
	OperatorContains       ConditionOperator = "contains"
	OperatorDoesNotContain ConditionOperator = "does_not_contain"
	OperatorEquals         ConditionOperator = "equals"
	OperatorStartsWith     ConditionOperator = "starts_with"
	OperatorEndsWith       ConditionOperator = "ends_with"
	OperatorRegexMatch     ConditionOperator = "regex_match"
	OperatorGreaterThan    ConditionOperator = "greater_than"
	OperatorLessThan       ConditionOperator = "less_than"
	OperatorExists         ConditionOperator = "exists"
)

// ConditionLogic is the combinator between a condition and the next one in the list
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "AND"
	LogicOr  ConditionLogic = "OR"
)

// AllowedOperators is the legal operator set per field, enforced when rules are
// created or updated. counterpartyId and locationId deliberately support only
// equals; extending them would change which stored rules match which records.
var AllowedOperators = map[ConditionField][]ConditionOperator{
	ConditionFieldDescription: {
		OperatorContains, OperatorDoesNotContain, OperatorEquals,
		OperatorStartsWith, OperatorEndsWith, OperatorRegexMatch,
	},
	ConditionFieldMetadata: {
		OperatorContains, OperatorDoesNotContain, OperatorEquals,
		OperatorStartsWith, OperatorEndsWith, OperatorRegexMatch, OperatorExists,
	},
	ConditionFieldAmount: {
		OperatorEquals, OperatorGreaterThan, OperatorLessThan,
	},
	ConditionFieldAccount: {
		OperatorContains, OperatorDoesNotContain, OperatorEquals,
		OperatorStartsWith, OperatorEndsWith, OperatorRegexMatch,
	},
	ConditionFieldCounterparty: {OperatorEquals},
	ConditionFieldLocation:     {OperatorEquals},
}

// OperatorAllowed reports whether an operator is legal for a field
func OperatorAllowed(field ConditionField, op ConditionOperator) bool {
	for _, allowed := range AllowedOperators[field] {
		if allowed == op {
			return true
		}
	}
	return false
}

// ConditionValue holds a condition's comparison value, which rule builders may
// store as either a JSON string or a JSON number
type ConditionValue struct {
	raw      string
	number   float64
	isNumber bool
}

// StringValue creates a condition value from a string
func StringValue(s string) ConditionValue {
	return ConditionValue{raw: s}
}

// NumberValue creates a condition value from a number
func NumberValue(f float64) ConditionValue {
	return ConditionValue{
		raw:      strconv.FormatFloat(f, 'f', -1, 64),
		number:   f,
		isNumber: true,
	}
}

// String returns the value's text form
func (v ConditionValue) String() string {
	return v.raw
}

// Number returns the value's numeric form, parsing string values the way the
// rule builder's numeric inputs serialize them. The second return is false
// when the value is not numeric.
func (v ConditionValue) Number() (float64, bool) {
	if v.isNumber {
		return v.number, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("condition value must be a string or number: %w", err)
	}
	*v = NumberValue(f)
	return nil
}

func (v ConditionValue) MarshalJSON() ([]byte, error) {
	if v.isNumber {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.raw)
}

// RuleCondition is a single field/operator/value test against a transaction
type RuleCondition struct {
	Field       ConditionField    `json:"field"`
	Operator    ConditionOperator `json:"operator"`
	Value       ConditionValue    `json:"value"`
	MetadataKey string            `json:"metadata_key,omitempty"` // required when Field is metadata
	NextLogic   ConditionLogic    `json:"next_logic,omitempty"`   // combinator with the NEXT condition, default AND
}

// Valid reports whether the condition can be evaluated at all. Rules written by
// older versions may carry fieldless conditions; those are excluded from
// matching rather than treated as errors.
func (c RuleCondition) Valid() bool {
	return c.Field != ""
}

// Logic returns the combinator toward the next condition, defaulting to AND
func (c RuleCondition) Logic() ConditionLogic {
	if c.NextLogic == LogicOr {
		return LogicOr
	}
	return LogicAnd
}

// ConditionList is a JSONB-stored ordered condition list
type ConditionList []RuleCondition

func (l *ConditionList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("ConditionList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l ConditionList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ConditionList{})
	}
	return json.Marshal(l)
}

// ReconciliationRule is a named, ordered set of conditions plus the mutations
// applied to matching transactions
type ReconciliationRule struct {
	ID                   string        `json:"id" db:"id"`
	TenantID             string        `json:"tenant_id" db:"tenant_id"`
	Name                 string        `json:"name" db:"name"`
	Scope                string        `json:"scope,omitempty" db:"scope"` // informational grouping, never evaluated
	Conditions           ConditionList `json:"conditions" db:"conditions"`
	SetCategoryID        *string       `json:"set_category_id,omitempty" db:"set_category_id"`
	SetPayeeID           *string       `json:"set_payee_id,omitempty" db:"set_payee_id"`
	SetCounterpartyID    *string       `json:"set_counterparty_id,omitempty" db:"set_counterparty_id"`
	SetLocationID        *string       `json:"set_location_id,omitempty" db:"set_location_id"`
	SetUserID            *string       `json:"set_user_id,omitempty" db:"set_user_id"`
	SetTransactionTypeID *string       `json:"set_transaction_type_id,omitempty" db:"set_transaction_type_id"`
	SetDescription       *string       `json:"set_description,omitempty" db:"set_description"`
	AssignTagIDs         StringList    `json:"assign_tag_ids,omitempty" db:"assign_tag_ids"`
	SkipImport           bool          `json:"skip_import" db:"skip_import"`
	IsActive             bool          `json:"is_active" db:"is_active"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time    `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ValidConditions returns the conditions that can actually be evaluated,
// preserving their order
func (r ReconciliationRule) ValidConditions() []RuleCondition {
	valid := make([]RuleCondition, 0, len(r.Conditions))
	for _, cond := range r.Conditions {
		if cond.Valid() {
			valid = append(valid, cond)
		}
	}
	return valid
}

// CounterpartySetter resolves the counterparty mutation. set_payee_id is the
// legacy name for the same field; set_counterparty_id wins when both are set.
func (r ReconciliationRule) CounterpartySetter() *string {
	if r.SetCounterpartyID != nil {
		return r.SetCounterpartyID
	}
	return r.SetPayeeID
}

// CreateReconciliationRuleRequest is the request to create a rule
type CreateReconciliationRuleRequest struct {
	Name                 string        `json:"name" validate:"required"`
	Scope                string        `json:"scope,omitempty"`
	Conditions           ConditionList `json:"conditions" validate:"required,min=1"`
	SetCategoryID        *string       `json:"set_category_id,omitempty"`
	SetPayeeID           *string       `json:"set_payee_id,omitempty"`
	SetCounterpartyID    *string       `json:"set_counterparty_id,omitempty"`
	SetLocationID        *string       `json:"set_location_id,omitempty"`
	SetUserID            *string       `json:"set_user_id,omitempty"`
	SetTransactionTypeID *string       `json:"set_transaction_type_id,omitempty"`
	SetDescription       *string       `json:"set_description,omitempty"`
	AssignTagIDs         StringList    `json:"assign_tag_ids,omitempty"`
	SkipImport           bool          `json:"skip_import"`
	IsActive             bool          `json:"is_active"`
}

// UpdateReconciliationRuleRequest is the request to update a rule
type UpdateReconciliationRuleRequest struct {
	Name                 *string       `json:"name,omitempty"`
	Scope                *string       `json:"scope,omitempty"`
	Conditions           ConditionList `json:"conditions,omitempty"`
	SetCategoryID        *string       `json:"set_category_id,omitempty"`
	SetPayeeID           *string       `json:"set_payee_id,omitempty"`
	SetCounterpartyID    *string       `json:"set_counterparty_id,omitempty"`
	SetLocationID        *string       `json:"set_location_id,omitempty"`
	SetUserID            *string       `json:"set_user_id,omitempty"`
	SetTransactionTypeID *string       `json:"set_transaction_type_id,omitempty"`
	SetDescription       *string       `json:"set_description,omitempty"`
	AssignTagIDs         StringList    `json:"assign_tag_ids,omitempty"`
	SkipImport           *bool         `json:"skip_import,omitempty"`
	IsActive             *bool         `json:"is_active,omitempty"`
}

// ReconciliationRuleListResponse is the response for listing rules
type ReconciliationRuleListResponse struct {
	Items      []ReconciliationRule `json:"items"`
	TotalCount int                  `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
}
