// Package entitlement pushes the "is subscribed" flag of a user to the
// profile store owned by the rest of the product.
package entitlement

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Update is one entitlement change for a user. SubscriptionID and EndDate
// are empty when access is withdrawn.
type Update struct {
	UserID         string
	Subscribed     bool
	SubscriptionID string
	EndDate        *time.Time
}

// Propagator writes an Update to the external profile store.
type Propagator interface {
	Propagate(ctx context.Context, u Update) error
}

// LogPropagator only logs updates. It is used when no profile store is configured.
type LogPropagator struct {
	log *zap.SugaredLogger
}

func NewLogPropagator(log *zap.SugaredLogger) *LogPropagator {
	return &LogPropagator{log: log}
}

func (p *LogPropagator) Propagate(_ context.Context, u Update) error {
	p.log.Infow("entitlement update", "user_id", u.UserID, "subscribed", u.Subscribed,
		"subscription_id", u.SubscriptionID, "end_date", u.EndDate)
	return nil
}
