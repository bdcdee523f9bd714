package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	FeedMessage *models.FeedMessage
}

// ParseFeedMessage parses the message value as a feed batch
func (m *IncomingMessage) ParseFeedMessage() error {
	var msg models.FeedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.TenantID == "" && m.Headers["tenant_id"] == "" {
		return errors.New("feed message has no tenant id")
	}
	m.FeedMessage = &msg
	return nil
}

// GetTenantID returns the tenant ID from the feed message
func (m *IncomingMessage) GetTenantID() string {
	if m.FeedMessage != nil && m.FeedMessage.TenantID != "" {
		return m.FeedMessage.TenantID
	}
	// Fallback to header
	return m.Headers["tenant_id"]
}

// GetFeedID returns the feed identifier, if the connector set one
func (m *IncomingMessage) GetFeedID() string {
	if m.FeedMessage != nil && m.FeedMessage.FeedID != "" {
		return m.FeedMessage.FeedID
	}
	return m.Headers["feed_id"]
}
