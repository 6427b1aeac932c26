package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatflowers/dukabill/docs"
	"github.com/fatflowers/dukabill/internal/app/api/handlers"
	mw "github.com/fatflowers/dukabill/internal/app/api/middleware"
	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	notificationlog "github.com/fatflowers/dukabill/internal/app/service/notification_log"
	pc "github.com/fatflowers/dukabill/internal/app/service/payment_callback"
	"github.com/fatflowers/dukabill/internal/app/service/statistics"
	subsvc "github.com/fatflowers/dukabill/internal/app/service/subscription"
	cfgpkg "github.com/fatflowers/dukabill/pkg/config"
	metrics "github.com/fatflowers/dukabill/pkg/metrics"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type routeDeps struct {
	fx.In

	Log       *zap.SugaredLogger
	Cfg       *cfgpkg.Config
	DB        *gorm.DB
	Redis     *goredis.Client
	Subs      *subsvc.Service
	Matcher   *pc.Matcher
	Stats     *statistics.Service
	Audit     *auditlog.Service
	Callbacks *notificationlog.Service
}

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env != cfgpkg.EnvDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log := d.Log
	if d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{Logger: log})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}
	logged := []gin.HandlerFunc{mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log)}

	pub := r.Group("/", logged...)
	handlers.RegisterHealthRoutes(pub, d.DB, d.Redis)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1", logged...)
	handlers.RegisterSubscriptionRoutes(apiV1.Group("/subscription"), d.Subs, log)
	admin := apiV1.Group("/admin", mw.AdminAuthMiddleware(d.Cfg.Admin.JWTSecret, log))
	handlers.RegisterAdminRoutes(admin, handlers.AdminServices{
		Subscriptions: d.Subs,
		Stats:         d.Stats,
		Audit:         d.Audit,
		Callbacks:     d.Callbacks,
	}, log)

	limiter := mw.NewIPRateLimiter(d.Cfg.Callback.RateLimit, d.Cfg.Callback.RateBurst)
	apiV2Payment := r.Group("/api/v2/payment", append(logged, mw.RateLimitMiddleware(limiter))...)
	handlers.RegisterPaymentRoutes(apiV2Payment, d.Matcher, log)
}

func runServer(lc fx.Lifecycle, shutdown fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "err", err)
					_ = shutdown.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
