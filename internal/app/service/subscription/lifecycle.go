package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/metrics"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// maxWriteAttempts bounds retries of administrative writes that lose a
// conditional update to a concurrent writer.
const maxWriteAttempts = 3

// Activate marks a pending subscription as paid. Repeating the call with the
// same transaction id returns the already active record unchanged.
func (s *Service) Activate(ctx context.Context, id, transactionID string) (sub *models.Subscription, err error) {
	defer func() { observe(types.SubscriptionActionActivate, err) }()
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrValidation)
	}
	lg := logctx.FromCtx(ctx, s.log).With("subscription_id", id, "transaction_id", transactionID)

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if activatedWith(cur, transactionID) {
		lg.Infow("subscription already activated with transaction")
		return cur, nil
	}
	if cur.Status != types.SubscriptionStatusPending {
		return nil, fmt.Errorf("%w: cannot activate %s subscription %s", ErrInvalidState, cur.Status, id)
	}

	duration, err := s.catalog.Duration(cur.PlanType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	now := s.now()
	next := cur.Clone()
	next.Status = types.SubscriptionStatusActive
	next.StartDate = lo.ToPtr(now)
	next.EndDate = lo.ToPtr(now.Add(duration))
	next.TransactionID = lo.ToPtr(transactionID)
	next.UpdatedAt = now

	ok, err := s.compareAndSwap(ctx, next, types.SubscriptionStatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		// a concurrent callback won; accept its result when it carried the same payment
		winner, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if activatedWith(winner, transactionID) {
			lg.Infow("subscription activated concurrently with same transaction")
			return winner, nil
		}
		return nil, fmt.Errorf("%w: subscription %s changed to %s during activation", ErrInvalidState, id, winner.Status)
	}

	s.notify(ctx, entitlement.Update{UserID: next.UserID, Subscribed: true, SubscriptionID: next.ID, EndDate: next.EndDate})
	s.appendLog(ctx, &models.SubscriptionLog{
		SubscriptionID: next.ID,
		Action:         types.SubscriptionActionActivate,
		Details:        datatypes.JSONMap{"transaction_id": transactionID},
		Before:         datatypes.NewJSONType(cur),
		After:          datatypes.NewJSONType(next.Clone()),
	})
	lg.Infow("subscription activated", "end_date", next.EndDate)
	return next, nil
}

// MarkFailed records a declined payment. Dates are left untouched and no
// entitlement is granted or withdrawn.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) (err error) {
	defer func() { observe("fail", err) }()
	lg := logctx.FromCtx(ctx, s.log).With("subscription_id", id)

	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch cur.Status {
	case types.SubscriptionStatusFailed:
		return nil
	case types.SubscriptionStatusPending:
	default:
		return fmt.Errorf("%w: cannot fail %s subscription %s", ErrInvalidState, cur.Status, id)
	}

	next := cur.Clone()
	next.Status = types.SubscriptionStatusFailed
	next.UpdatedAt = s.now()
	ok, err := s.compareAndSwap(ctx, next, types.SubscriptionStatusPending)
	if err != nil {
		return err
	}
	if !ok {
		winner, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if winner.Status == types.SubscriptionStatusFailed {
			return nil
		}
		return fmt.Errorf("%w: subscription %s changed to %s", ErrInvalidState, id, winner.Status)
	}
	lg.Infow("subscription payment failed", "reason", reason)
	return nil
}

// Extend pushes the end date of a paid subscription forward by kind. Expired
// and cancelled subscriptions come back to life with a fresh start date.
func (s *Service) Extend(ctx context.Context, id string, kind types.ExtensionKind, adminID, reason string) (sub *models.Subscription, err error) {
	defer func() { observe(types.SubscriptionActionExtend, err) }()
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin id is required", ErrValidation)
	}
	extension, err := s.catalog.ExtensionDuration(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch cur.Status {
		case types.SubscriptionStatusActive, types.SubscriptionStatusExpired, types.SubscriptionStatusCancelled:
		default:
			return nil, fmt.Errorf("%w: cannot extend %s subscription %s", ErrInvalidState, cur.Status, id)
		}

		now := s.now()
		base := now
		if cur.EndDate != nil && cur.EndDate.After(now) {
			base = *cur.EndDate
		}
		next := cur.Clone()
		next.Status = types.SubscriptionStatusActive
		next.EndDate = lo.ToPtr(base.Add(extension))
		if cur.Status != types.SubscriptionStatusActive || cur.StartDate == nil {
			next.StartDate = lo.ToPtr(now)
		}
		next.UpdatedAt = now

		ok, err := s.compareAndSwap(ctx, next, cur.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		s.appendLog(ctx, &models.SubscriptionLog{
			SubscriptionID: id,
			Action:         types.SubscriptionActionExtend,
			AdminID:        lo.ToPtr(adminID),
			Reason:         optional(reason),
			Details: datatypes.JSONMap{
				"kind":              kind,
				"previous_status":   cur.Status,
				"previous_end_date": cur.EndDate,
				"new_end_date":      next.EndDate,
			},
			Before: datatypes.NewJSONType(cur),
			After:  datatypes.NewJSONType(next.Clone()),
		})
		s.notify(ctx, entitlement.Update{UserID: next.UserID, Subscribed: true, SubscriptionID: next.ID, EndDate: next.EndDate})
		logctx.FromCtx(ctx, s.log).Infow("subscription extended", "subscription_id", id, "kind", kind, "end_date", next.EndDate)
		return next, nil
	}
	return nil, fmt.Errorf("%w: subscription %s kept changing, retry", ErrInvalidState, id)
}

// Revoke cancels a paid subscription and ends its period immediately.
// Revoking an already cancelled subscription returns it unchanged.
func (s *Service) Revoke(ctx context.Context, id, adminID, reason string) (sub *models.Subscription, err error) {
	defer func() { observe(types.SubscriptionActionRevoke, err) }()
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin id is required", ErrValidation)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		switch cur.Status {
		case types.SubscriptionStatusCancelled:
			return cur, nil
		case types.SubscriptionStatusPending, types.SubscriptionStatusFailed:
			return nil, fmt.Errorf("%w: cannot revoke %s subscription %s", ErrInvalidState, cur.Status, id)
		}

		now := s.now()
		end := now
		if cur.EndDate != nil && cur.EndDate.Before(now) {
			end = *cur.EndDate
		}
		next := cur.Clone()
		next.Status = types.SubscriptionStatusCancelled
		next.EndDate = lo.ToPtr(end)
		next.UpdatedAt = now

		ok, err := s.compareAndSwap(ctx, next, cur.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		s.appendLog(ctx, &models.SubscriptionLog{
			SubscriptionID: id,
			Action:         types.SubscriptionActionRevoke,
			AdminID:        lo.ToPtr(adminID),
			Reason:         optional(reason),
			Details: datatypes.JSONMap{
				"previous_status":   cur.Status,
				"previous_end_date": cur.EndDate,
			},
			Before: datatypes.NewJSONType(cur),
			After:  datatypes.NewJSONType(next.Clone()),
		})
		s.notify(ctx, entitlement.Update{UserID: next.UserID, Subscribed: false})
		logctx.FromCtx(ctx, s.log).Infow("subscription revoked", "subscription_id", id, "previous_status", cur.Status)
		return next, nil
	}
	return nil, fmt.Errorf("%w: subscription %s kept changing, retry", ErrInvalidState, id)
}

// SweepExpired moves every active subscription whose end date is before now
// to expired and returns how many it moved. Records another runner already
// handled are skipped, per-record failures are logged and skipped.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	lg := logctx.FromCtx(ctx, s.log)

	candidates, err := s.store.Scan(ctx, &store.Filter{
		Statuses:  []types.SubscriptionStatus{types.SubscriptionStatusActive},
		EndBefore: &now,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: sweep scan: %v", ErrStorage, err)
	}

	expired := 0
	defer func() { metrics.ObserveSweep(start, expired) }()
	for _, cur := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if cur.Status != types.SubscriptionStatusActive || cur.EndDate == nil || !cur.EndDate.Before(now) {
			continue
		}

		next := cur.Clone()
		next.Status = types.SubscriptionStatusExpired
		next.UpdatedAt = now
		ok, err := s.store.CompareAndSwap(ctx, next, types.SubscriptionStatusActive)
		if err != nil {
			lg.Errorw("failed to expire subscription", "subscription_id", cur.ID, "err", err)
			observe(types.SubscriptionActionExpire, err)
			continue
		}
		if !ok {
			lg.Debugw("subscription changed before expiry, skipped", "subscription_id", cur.ID)
			continue
		}

		expired++
		observe(types.SubscriptionActionExpire, nil)
		s.notify(ctx, entitlement.Update{UserID: cur.UserID, Subscribed: false})
		s.appendLog(ctx, &models.SubscriptionLog{
			SubscriptionID: cur.ID,
			Action:         types.SubscriptionActionExpire,
			Details:        datatypes.JSONMap{"end_date": cur.EndDate, "swept_at": now},
			Before:         datatypes.NewJSONType(cur),
			After:          datatypes.NewJSONType(next.Clone()),
		})
	}
	if expired > 0 {
		lg.Infow("expired subscriptions", "count", expired, "candidates", len(candidates))
	}
	return expired, nil
}

func (s *Service) compareAndSwap(ctx context.Context, next *models.Subscription, expected types.SubscriptionStatus) (bool, error) {
	ok, err := s.store.CompareAndSwap(ctx, next, expected)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, next.ID)
		}
		return false, fmt.Errorf("%w: update %s: %v", ErrStorage, next.ID, err)
	}
	return ok, nil
}

func activatedWith(sub *models.Subscription, transactionID string) bool {
	return sub.Status == types.SubscriptionStatusActive &&
		sub.TransactionID != nil &&
		*sub.TransactionID == transactionID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func observe[A ~string](action A, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		result = "validation"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalidState):
		result = "invalid_state"
	default:
		result = "error"
	}
	metrics.ObserveTransition(string(action), result)
}
