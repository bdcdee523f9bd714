package models

import "time"

// FeedMessage is a batch of transactions published by a bank feed connector.
// Each batch belongs to a single tenant and is imported through the rule
// engine the same way the HTTP import endpoint is.
type FeedMessage struct {
	TenantID     string              `json:"tenant_id"`
	FeedID       string              `json:"feed_id"`
	Transactions []ImportTransaction `json:"transactions"`
	Timestamp    time.Time           `json:"timestamp"`
}
