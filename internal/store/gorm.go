package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type gormSubscriptionStore struct {
	db *gorm.DB
}

func NewGormSubscriptionStore(db *gorm.DB) SubscriptionStore {
	return &gormSubscriptionStore{db: db}
}

func (g *gormSubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	if err := g.db.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicateCorrelationID, err)
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (g *gormSubscriptionStore) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	return g.first(ctx, "id = ?", id)
}

func (g *gormSubscriptionStore) GetByCorrelationID(ctx context.Context, checkoutRequestID string) (*models.Subscription, error) {
	return g.first(ctx, "checkout_request_id = ?", checkoutRequestID)
}

func (g *gormSubscriptionStore) first(ctx context.Context, query string, arg any) (*models.Subscription, error) {
	var sub models.Subscription
	if err := g.db.WithContext(ctx).Where(query, arg).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (g *gormSubscriptionStore) ListByOwner(ctx context.Context, userID string) ([]*models.Subscription, error) {
	return g.Scan(ctx, &Filter{UserID: userID})
}

func (g *gormSubscriptionStore) Scan(ctx context.Context, filter *Filter) ([]*models.Subscription, error) {
	tx := g.db.WithContext(ctx).Model(&models.Subscription{})
	if conds := filter.Conditions(); len(conds) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: conds}}})
	}
	var rows []*models.Subscription
	if err := tx.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return rows, nil
}

func (g *gormSubscriptionStore) CompareAndSwap(ctx context.Context, sub *models.Subscription, expected types.SubscriptionStatus) (bool, error) {
	next := sub.Clone()
	next.Version = sub.Version + 1
	res := g.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ? AND version = ?", sub.ID, expected, sub.Version).
		Select("*").Omit("id", "created_at").
		Updates(next)
	if res.Error != nil {
		return false, fmt.Errorf("compare and swap subscription: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	sub.Version = next.Version
	return true, nil
}

type gormAuditStore struct {
	db *gorm.DB
}

func NewGormAuditStore(db *gorm.DB) AuditStore {
	return &gormAuditStore{db: db}
}

func (g *gormAuditStore) Append(ctx context.Context, entry *models.SubscriptionLog) error {
	if err := g.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append subscription log: %w", err)
	}
	return nil
}

func (g *gormAuditStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.SubscriptionLog, error) {
	var rows []*models.SubscriptionLog
	if err := g.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list subscription logs: %w", err)
	}
	return rows, nil
}

func (g *gormAuditStore) ListAll(ctx context.Context, limit int) ([]*models.SubscriptionLog, error) {
	tx := g.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []*models.SubscriptionLog
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list subscription logs: %w", err)
	}
	return rows, nil
}

type gormCallbackLogStore struct {
	db *gorm.DB
}

func NewGormCallbackLogStore(db *gorm.DB) CallbackLogStore {
	return &gormCallbackLogStore{db: db}
}

func (g *gormCallbackLogStore) Save(ctx context.Context, log *models.PaymentNotificationLog) error {
	if err := g.db.WithContext(ctx).Save(log).Error; err != nil {
		return fmt.Errorf("save payment notification log: %w", err)
	}
	return nil
}

func (g *gormCallbackLogStore) ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.PaymentNotificationLog, error) {
	var rows []*models.PaymentNotificationLog
	if err := g.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("received_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list payment notification logs: %w", err)
	}
	return rows, nil
}
