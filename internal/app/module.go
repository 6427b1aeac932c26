package app

import (
	"time"

	"github.com/fatflowers/dukabill/internal/app/api/server"
	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	"github.com/fatflowers/dukabill/internal/app/service/catalog"
	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	notificationlog "github.com/fatflowers/dukabill/internal/app/service/notification_log"
	"github.com/fatflowers/dukabill/internal/app/service/payment_callback"
	"github.com/fatflowers/dukabill/internal/app/service/statistics"
	"github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/app/service/sweeper"
	"github.com/fatflowers/dukabill/internal/platform/db"
	"github.com/fatflowers/dukabill/internal/platform/redis"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/logger"
	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// CoreModule wires storage and the subscription services without any
// long-running component. The CLI runs on it.
var CoreModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	redis.Module,
	store.Module,
	catalog.Module,
	auditlog.Module,
	notificationlog.Module,
	entitlement.Module,
	subscription.Module,
	statistics.Module,
)

// Module is the full API process: core services, callback matching, the
// expiry sweeper and the HTTP server.
var Module = fx.Options(
	CoreModule,
	payment_callback.Module,
	sweeper.Module,
	server.Module,
)
