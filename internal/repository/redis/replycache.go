package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	envelopeSeenPrefix = "envelope:seen:"
	envelopeSeenTTL    = 5 * time.Minute
)

// ReplyCache suppresses back-to-back duplicate envelope deliveries by
// remembering recently handled dedup tokens. Best effort only: exact
// de-duplication is out of scope, redelivery past the TTL produces one
// extra assistant message.
type ReplyCache struct {
	client *Client
}

// NewReplyCache creates a new reply cache
func NewReplyCache(client *Client) *ReplyCache {
	return &ReplyCache{client: client}
}

// Seen marks the token as handled and reports whether it already was.
func (c *ReplyCache) Seen(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("%s%s", envelopeSeenPrefix, token)

	set, err := c.client.rdb.SetNX(ctx, key, 1, envelopeSeenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check envelope token: %w", err)
	}
	return !set, nil
}
