package sweeper

import (
	"context"
	"os"
	"time"

	"github.com/fatflowers/dukabill/pkg/tool"
	goredis "github.com/redis/go-redis/v9"
)

// Lease limits a sweep interval to one replica.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
}

// RedisLease is a SET NX PX lock that is never released explicitly; it
// expires after ttl, which should be shorter than the sweep interval.
type RedisLease struct {
	client goredis.Cmdable
	key    string
	owner  string
	ttl    time.Duration
}

func NewRedisLease(client goredis.Cmdable, key string, ttl time.Duration) *RedisLease {
	owner, _ := os.Hostname()
	return &RedisLease{
		client: client,
		key:    key,
		owner:  owner + "/" + tool.GenerateUUIDV7(),
		ttl:    ttl,
	}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}
