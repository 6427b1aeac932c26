package notification_log

import (
	"context"
	"time"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/tool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service records inbound gateway callbacks.
type Service struct {
	store store.CallbackLogStore
	log   *zap.SugaredLogger
}

func New(s store.CallbackLogStore, log *zap.SugaredLogger) *Service {
	return &Service{store: s, log: log}
}

// Save persists a payment notification log. Nil input is ignored and
// failures are logged, the callback itself is still processed.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	if log.ReceivedAt.IsZero() {
		log.ReceivedAt = time.Now()
	}
	if err := s.store.Save(ctx, log); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to save notification log", "log_id", log.ID, "err", err)
	}
}

func (s *Service) ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.PaymentNotificationLog, error) {
	return s.store.ListByCorrelationID(ctx, correlationID)
}

var Module = fx.Options(
	fx.Provide(New),
)
