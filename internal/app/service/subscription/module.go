package subscription

import (
	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	"github.com/fatflowers/dukabill/internal/app/service/catalog"
	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	"github.com/fatflowers/dukabill/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newFxService(st store.SubscriptionStore, cat *catalog.Catalog, audit *auditlog.Service, d *entitlement.Dispatcher, log *zap.SugaredLogger) *Service {
	return NewService(st, cat, audit, d, log)
}

// Module exposes the subscription service via Fx.
var Module = fx.Options(
	fx.Provide(newFxService),
)
