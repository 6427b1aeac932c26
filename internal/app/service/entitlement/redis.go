package entitlement

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPropagator mirrors entitlement into a hash per user, <prefix>:<userId>,
// with fields subscribed ("1"/"0"), subscription_id and end_date (RFC 3339).
type RedisPropagator struct {
	client goredis.Cmdable
	prefix string
}

func NewRedisPropagator(client goredis.Cmdable, prefix string) *RedisPropagator {
	return &RedisPropagator{client: client, prefix: prefix}
}

func (p *RedisPropagator) Key(userID string) string {
	return p.prefix + ":" + userID
}

func (p *RedisPropagator) Propagate(ctx context.Context, u Update) error {
	subscribed, endDate := "0", ""
	if u.Subscribed {
		subscribed = "1"
	}
	if u.EndDate != nil {
		endDate = u.EndDate.UTC().Format(time.RFC3339)
	}
	if err := p.client.HSet(ctx, p.Key(u.UserID),
		"subscribed", subscribed,
		"subscription_id", u.SubscriptionID,
		"end_date", endDate,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return fmt.Errorf("hset entitlement for %s: %w", u.UserID, err)
	}
	return nil
}
