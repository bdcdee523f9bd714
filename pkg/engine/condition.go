// Package engine evaluates reconciliation rules against transactions.
//
// Every function is pure: inputs are never mutated, and malformed rule data
// never produces an error. Unknown fields, unknown operators, non-numeric
// amount values, and invalid regex patterns all evaluate to "no match", so a
// single bad rule can degrade to inert without failing an import batch.
package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// amountTolerance absorbs float drift on amount equality checks
const amountTolerance = 0.01

// tokenSeparator splits a condition value into alternative tokens
const tokenSeparator = "||"

// EvaluateCondition evaluates a single condition against a transaction.
// Accounts are used to resolve account ids to display names for non-equals
// account conditions.
func EvaluateCondition(tx *models.Transaction, cond models.RuleCondition, accounts []models.Account) bool {
	switch cond.Field {
	case models.ConditionFieldDescription:
		return evaluateDescription(tx, cond)
	case models.ConditionFieldMetadata:
		return evaluateMetadata(tx, cond)
	case models.ConditionFieldAmount:
		return evaluateAmount(tx, cond)
	case models.ConditionFieldAccount:
		return evaluateAccount(tx, cond, accounts)
	case models.ConditionFieldCounterparty:
		return evaluateIDEquals(deref(tx.CounterpartyID), cond)
	case models.ConditionFieldLocation:
		return evaluateIDEquals(deref(tx.LocationID), cond)
	default:
		return false
	}
}

// evaluateDescription tests both the current description and the bank's
// original phrasing; matching either is enough. does_not_contain is the
// exception: with multiple tokens, every token must be absent from both.
func evaluateDescription(tx *models.Transaction, cond models.RuleCondition) bool {
	current := normalizers.Text(tx.Description)
	original := normalizers.Text(deref(tx.OriginalDescription))
	tokens := splitTokens(cond.Value.String())

	if len(tokens) > 1 {
		if cond.Operator == models.OperatorDoesNotContain {
			for _, token := range tokens {
				if stringCheck(models.OperatorContains, current, token) ||
					stringCheck(models.OperatorContains, original, token) {
					return false
				}
			}
			return true
		}
		for _, token := range tokens {
			if stringCheck(cond.Operator, current, token) ||
				stringCheck(cond.Operator, original, token) {
				return true
			}
		}
		return false
	}

	return stringCheck(cond.Operator, current, tokens[0]) ||
		stringCheck(cond.Operator, original, tokens[0])
}

// evaluateMetadata resolves the condition's key case-insensitively against the
// transaction's metadata. An unresolved key behaves as an empty value.
func evaluateMetadata(tx *models.Transaction, cond models.RuleCondition) bool {
	value, found := lookupMetadata(tx.Metadata, cond.MetadataKey)

	if cond.Operator == models.OperatorExists {
		return found && strings.TrimSpace(stringify(value)) != ""
	}

	return matchTokens(cond.Operator, normalizers.Text(stringify(value)), cond.Value.String())
}

func evaluateAmount(tx *models.Transaction, cond models.RuleCondition) bool {
	want, ok := cond.Value.Number()
	if !ok {
		return false
	}

	// comparisons are on magnitude, so a rule for 50.00 matches both the
	// debit and credit leg of the same charge
	got := math.Abs(tx.Amount)
	want = math.Abs(want)

	switch cond.Operator {
	case models.OperatorEquals:
		return math.Abs(got-want) < amountTolerance
	case models.OperatorGreaterThan:
		return got > want
	case models.OperatorLessThan:
		return got < want
	default:
		return false
	}
}

// evaluateAccount compares raw ids for equals; every other operator resolves
// the id to the account's display name first. An id with no known account
// resolves to an empty name.
func evaluateAccount(tx *models.Transaction, cond models.RuleCondition, accounts []models.Account) bool {
	id := deref(tx.AccountID)

	if cond.Operator == models.OperatorEquals {
		return normalizers.Text(id) == normalizers.Text(cond.Value.String())
	}

	name := ""
	if id != "" {
		for _, account := range accounts {
			if account.ID == id {
				name = account.Name
				break
			}
		}
	}

	return matchTokens(cond.Operator, normalizers.Text(name), cond.Value.String())
}

func evaluateIDEquals(id string, cond models.RuleCondition) bool {
	if cond.Operator != models.OperatorEquals {
		return false
	}
	return normalizers.Text(id) == normalizers.Text(cond.Value.String())
}

// matchTokens applies the token logic against a single normalized text
func matchTokens(op models.ConditionOperator, text, rawValue string) bool {
	tokens := splitTokens(rawValue)

	if len(tokens) > 1 {
		if op == models.OperatorDoesNotContain {
			for _, token := range tokens {
				if stringCheck(models.OperatorContains, text, token) {
					return false
				}
			}
			return true
		}
		for _, token := range tokens {
			if stringCheck(op, text, token) {
				return true
			}
		}
		return false
	}

	return stringCheck(op, text, tokens[0])
}

// stringCheck runs one operator against normalized text and a raw token.
// Non-regex operators normalize the token before comparing; regex_match
// compiles the token case-insensitively and treats an invalid pattern as no
// match.
func stringCheck(op models.ConditionOperator, text, token string) bool {
	switch op {
	case models.OperatorContains:
		return strings.Contains(text, normalizers.Text(token))
	case models.OperatorDoesNotContain:
		return !strings.Contains(text, normalizers.Text(token))
	case models.OperatorEquals:
		return text == normalizers.Text(token)
	case models.OperatorStartsWith:
		return strings.HasPrefix(text, normalizers.Text(token))
	case models.OperatorEndsWith:
		return strings.HasSuffix(text, normalizers.Text(token))
	case models.OperatorRegexMatch:
		re, err := regexp.Compile("(?i)" + strings.TrimSpace(token))
		if err != nil {
			return false
		}
		return re.MatchString(text)
	default:
		return false
	}
}

// splitTokens splits a condition value on "||" and trims each token. Always
// returns at least one token.
func splitTokens(value string) []string {
	parts := strings.Split(value, tokenSeparator)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, strings.TrimSpace(part))
	}
	return tokens
}

// lookupMetadata finds a metadata value by case-insensitive key
func lookupMetadata(metadata models.Metadata, key string) (any, bool) {
	if key == "" || len(metadata) == 0 {
		return nil, false
	}
	if value, ok := metadata[key]; ok {
		return value, true
	}
	for existing, value := range metadata {
		if strings.EqualFold(existing, key) {
			return value, true
		}
	}
	return nil, false
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
