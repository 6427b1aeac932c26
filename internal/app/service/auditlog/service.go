package auditlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/tool"
	"github.com/fatflowers/dukabill/pkg/types"
	"go.uber.org/fx"
	"gorm.io/datatypes"
)

var ErrInvalidEntry = errors.New("invalid subscription log entry")

// Service is the append-only trail of lifecycle actions.
type Service struct {
	store store.AuditStore
	now   func() time.Time
}

func New(s store.AuditStore) *Service {
	return &Service{store: s, now: time.Now}
}

// Append stores entry, filling ID and CreatedAt when empty.
func (s *Service) Append(ctx context.Context, entry *models.SubscriptionLog) error {
	if entry == nil || entry.SubscriptionID == "" {
		return fmt.Errorf("%w: missing subscription id", ErrInvalidEntry)
	}
	switch entry.Action {
	case types.SubscriptionActionCreate, types.SubscriptionActionActivate, types.SubscriptionActionExtend,
		types.SubscriptionActionRevoke, types.SubscriptionActionExpire:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, entry.Action)
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.Details == nil {
		entry.Details = datatypes.JSONMap{}
	}
	return s.store.Append(ctx, entry)
}

func (s *Service) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.SubscriptionLog, error) {
	return s.store.ListBySubscription(ctx, subscriptionID)
}

func (s *Service) ListAll(ctx context.Context, limit int) ([]*models.SubscriptionLog, error) {
	return s.store.ListAll(ctx, limit)
}

var Module = fx.Options(
	fx.Provide(New),
)
