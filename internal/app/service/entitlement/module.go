package entitlement

import (
	"context"

	"github.com/fatflowers/dukabill/pkg/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPropagator writes to redis when a client is configured and only logs otherwise.
func NewPropagator(cfg *config.Config, client *goredis.Client, log *zap.SugaredLogger) Propagator {
	if client == nil {
		return NewLogPropagator(log)
	}
	return NewRedisPropagator(client, cfg.Entitlement.KeyPrefix)
}

func NewDispatcherFromConfig(lc fx.Lifecycle, cfg *config.Config, p Propagator, log *zap.SugaredLogger) *Dispatcher {
	d := NewDispatcher(p, cfg.Entitlement.Timeout, log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Infow("draining entitlement dispatcher")
			return d.Close(ctx)
		},
	})
	return d
}

var Module = fx.Options(
	fx.Provide(NewPropagator, NewDispatcherFromConfig),
)
