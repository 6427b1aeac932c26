package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/dukabill/pkg/config"
)

// NewClient connects to redis. A nil client is returned when no address is
// configured; consumers treat that as "redis disabled".
func NewClient(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (*goredis.Client, error) {
	if cfg.Redis.Addr == "" {
		l.Infow("redis address is empty, redis features disabled")
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	l.Infow("connected to redis", "addr", cfg.Redis.Addr)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Infow("closing redis client")
			return client.Close()
		},
	})
	return client, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
