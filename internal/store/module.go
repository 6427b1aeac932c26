package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stores groups the adapters picked for this process.
type Stores struct {
	fx.Out

	Subscriptions SubscriptionStore
	Audit         AuditStore
	CallbackLogs  CallbackLogStore
}

// New picks the postgres adapters when a database is configured and the
// in-memory ones otherwise.
func New(l *zap.SugaredLogger, db *gorm.DB) Stores {
	if db == nil {
		l.Warnw("using in-memory stores, data is lost on restart")
		return Stores{
			Subscriptions: NewMemorySubscriptionStore(),
			Audit:         NewMemoryAuditStore(),
			CallbackLogs:  NewMemoryCallbackLogStore(),
		}
	}
	return Stores{
		Subscriptions: NewGormSubscriptionStore(db),
		Audit:         NewGormAuditStore(db),
		CallbackLogs:  NewGormCallbackLogStore(db),
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
