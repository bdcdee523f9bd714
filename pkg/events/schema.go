package events

// EventType defines the type of event
type EventType string

const (
	// Transaction events
	EventTypeTransactionImported EventType = "transaction.imported"
	EventTypeTransactionUpdated  EventType = "transaction.updated"
	EventTypeTransactionIgnored  EventType = "transaction.ignored"

	// Rule events
	EventTypeRuleCreated EventType = "rule.created"
	EventTypeRuleUpdated EventType = "rule.updated"
	EventTypeRuleDeleted EventType = "rule.deleted"
	EventTypeRuleApplied EventType = "rule.applied"
)
