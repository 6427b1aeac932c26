// Package store persists subscriptions, their audit trail and inbound
// callback logs. Every store has an in-memory and a postgres (gorm) adapter.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/samber/lo"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateCorrelationID = errors.New("duplicate checkout request id")
	ErrDuplicateID            = errors.New("duplicate id")
)

// SubscriptionStore is the persistence contract of the lifecycle engine.
// Implementations return copies; mutating a returned record never changes
// stored state until it is written back.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	GetByCorrelationID(ctx context.Context, checkoutRequestID string) (*models.Subscription, error)
	// ListByOwner returns the user's records newest first.
	ListByOwner(ctx context.Context, userID string) ([]*models.Subscription, error)
	// Scan returns the records matching filter newest first. A nil filter matches everything.
	Scan(ctx context.Context, filter *Filter) ([]*models.Subscription, error)
	// CompareAndSwap writes sub only if the stored record still has status
	// expected and the same Version as sub. On success sub.Version is bumped.
	// It reports false, without error, when another writer got there first.
	CompareAndSwap(ctx context.Context, sub *models.Subscription, expected types.SubscriptionStatus) (bool, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *models.SubscriptionLog) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.SubscriptionLog, error)
	// ListAll returns at most limit entries newest first, limit <= 0 means no limit.
	ListAll(ctx context.Context, limit int) ([]*models.SubscriptionLog, error)
}

type CallbackLogStore interface {
	Save(ctx context.Context, log *models.PaymentNotificationLog) error
	ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.PaymentNotificationLog, error)
}

// Filter selects subscriptions. Zero fields are ignored.
type Filter struct {
	UserID        string
	Statuses      []types.SubscriptionStatus
	Currency      types.Currency
	EmailContains string
	// EndBefore matches records whose end date is set and strictly before it.
	EndBefore   *time.Time
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches evaluates the filter in memory.
func (f *Filter) Matches(s *models.Subscription) bool {
	if f == nil {
		return true
	}
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, s.Status) {
		return false
	}
	if f.Currency != "" && s.Currency != f.Currency {
		return false
	}
	if f.EmailContains != "" && !strings.Contains(strings.ToLower(s.Email), strings.ToLower(f.EmailContains)) {
		return false
	}
	if f.EndBefore != nil && (s.EndDate == nil || !s.EndDate.Before(*f.EndBefore)) {
		return false
	}
	if f.CreatedFrom != nil && s.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && s.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// Conditions converts the filter into SQL conditions for the gorm adapter.
func (f *Filter) Conditions() []*types.CommonFilter {
	if f == nil {
		return nil
	}
	var out []*types.CommonFilter
	add := func(field string, op types.CommonFilterOperator, values ...any) {
		out = append(out, &types.CommonFilter{Field: field, Operator: op, Values: values})
	}
	if f.UserID != "" {
		add("user_id", types.CommonFilterOperatorEq, f.UserID)
	}
	if len(f.Statuses) > 0 {
		add("status", types.CommonFilterOperatorIn, lo.ToAnySlice(f.Statuses)...)
	}
	if f.Currency != "" {
		add("currency", types.CommonFilterOperatorEq, f.Currency)
	}
	if f.EmailContains != "" {
		add("email", types.CommonFilterOperatorContains, f.EmailContains)
	}
	if f.EndBefore != nil {
		add("end_date", types.CommonFilterOperatorLt, *f.EndBefore)
	}
	if f.CreatedFrom != nil {
		add("created_at", types.CommonFilterOperatorGte, *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at", types.CommonFilterOperatorLte, *f.CreatedTo)
	}
	return out
}
