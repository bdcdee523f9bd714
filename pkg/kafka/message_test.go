package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedMessage(t *testing.T) {
	t.Run("parses a feed batch", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"tenant_id":"tenant-1","feed_id":"plaid-checking","transactions":[{"description":"STARBUCKS #123","amount":-4.50}]}`),
		}

		require.NoError(t, msg.ParseFeedMessage())
		assert.Equal(t, "tenant-1", msg.GetTenantID())
		assert.Equal(t, "plaid-checking", msg.GetFeedID())
		require.Len(t, msg.FeedMessage.Transactions, 1)
		assert.Equal(t, "STARBUCKS #123", msg.FeedMessage.Transactions[0].Description)
	})

	t.Run("falls back to headers for tenant and feed", func(t *testing.T) {
		msg := &IncomingMessage{
			Value:   []byte(`{"transactions":[]}`),
			Headers: map[string]string{"tenant_id": "tenant-2", "feed_id": "manual-upload"},
		}

		require.NoError(t, msg.ParseFeedMessage())
		assert.Equal(t, "tenant-2", msg.GetTenantID())
		assert.Equal(t, "manual-upload", msg.GetFeedID())
	})

	t.Run("rejects a batch with no tenant anywhere", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"transactions":[]}`)}
		assert.Error(t, msg.ParseFeedMessage())
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`not json`)}
		assert.Error(t, msg.ParseFeedMessage())
	})
}
