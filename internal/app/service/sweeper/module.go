package sweeper

import (
	"context"
	"fmt"

	"github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/pkg/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const leaseKey = "sweeper:lease"

func NewFromConfig(cfg *config.Config, subs *subscription.Service, client *goredis.Client, log *zap.SugaredLogger) (*Sweeper, error) {
	if cfg.Sweeper.Enabled && cfg.Sweeper.Interval <= 0 {
		return nil, fmt.Errorf("sweeper.interval must be positive, got %s", cfg.Sweeper.Interval)
	}
	var opts []Option
	if client != nil && cfg.Sweeper.LeaseTTL > 0 {
		opts = append(opts, WithLease(NewRedisLease(client, leaseKey, cfg.Sweeper.LeaseTTL)))
	}
	return New(subs, cfg.Sweeper.Interval, log, opts...), nil
}

func register(lc fx.Lifecycle, cfg *config.Config, s *Sweeper, log *zap.SugaredLogger) {
	if !cfg.Sweeper.Enabled {
		log.Infow("expiry sweeper disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// the start context ends with startup; the loop lives until OnStop
			s.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewFromConfig),
	fx.Invoke(register),
)
