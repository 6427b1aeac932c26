package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newSub(id, user string, status types.SubscriptionStatus, createdOffset time.Duration) *models.Subscription {
	return &models.Subscription{
		ID:                id,
		UserID:            user,
		Email:             user + "@Shop.example",
		Status:            status,
		Currency:          types.CurrencyKSH,
		Amount:            2000,
		CheckoutRequestID: lo.ToPtr("ws_CO_" + id),
		CreatedAt:         base.Add(createdOffset),
	}
}

func TestMemorySubscriptionStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()

	sub := newSub("s1", "u1", types.SubscriptionStatusPending, 0)
	require.NoError(t, s.Create(ctx, sub))

	got, err := s.GetByCorrelationID(ctx, "ws_CO_s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	// returned copies are detached from stored state
	got.Status = types.SubscriptionStatusActive
	again, err := s.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusPending, again.Status)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetByCorrelationID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := newSub("s2", "u1", types.SubscriptionStatusPending, 0)
	dup.CheckoutRequestID = lo.ToPtr("ws_CO_s1")
	assert.ErrorIs(t, s.Create(ctx, dup), ErrDuplicateCorrelationID)
	assert.ErrorIs(t, s.Create(ctx, newSub("s1", "u9", types.SubscriptionStatusPending, 0)), ErrDuplicateID)
}

func TestMemorySubscriptionStore_ListByOwnerNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()
	require.NoError(t, s.Create(ctx, newSub("a", "u1", types.SubscriptionStatusExpired, 0)))
	require.NoError(t, s.Create(ctx, newSub("b", "u1", types.SubscriptionStatusActive, time.Hour)))
	require.NoError(t, s.Create(ctx, newSub("c", "u2", types.SubscriptionStatusActive, 2*time.Hour)))

	got, err := s.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, lo.Map(got, func(s *models.Subscription, _ int) string { return s.ID }))

	none, err := s.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemorySubscriptionStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()
	require.NoError(t, s.Create(ctx, newSub("s1", "u1", types.SubscriptionStatusPending, 0)))

	next := newSub("s1", "u1", types.SubscriptionStatusActive, 0)
	ok, err := s.CompareAndSwap(ctx, next, types.SubscriptionStatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSwap(ctx, newSub("s1", "u1", types.SubscriptionStatusFailed, 0), types.SubscriptionStatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.GetByID(ctx, "s1")
	assert.Equal(t, types.SubscriptionStatusActive, got.Status)

	_, err = s.CompareAndSwap(ctx, newSub("zz", "u1", types.SubscriptionStatusActive, 0), types.SubscriptionStatusPending)
	assert.ErrorIs(t, err, ErrNotFound)

	stale := got.Clone()
	got.Status = types.SubscriptionStatusCancelled
	ok, err = s.CompareAndSwap(ctx, got, types.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), got.Version)

	stale.Status = types.SubscriptionStatusExpired
	ok, err = s.CompareAndSwap(ctx, stale, types.SubscriptionStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok, "stale version loses")
	got, _ = s.GetByID(ctx, "s1")
	assert.Equal(t, types.SubscriptionStatusCancelled, got.Status)
}

func TestMemorySubscriptionStore_ConcurrentCASHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()
	require.NoError(t, s.Create(ctx, newSub("s1", "u1", types.SubscriptionStatusActive, 0)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CompareAndSwap(ctx, newSub("s1", "u1", types.SubscriptionStatusExpired, 0), types.SubscriptionStatusActive)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestFilter_Matches(t *testing.T) {
	end := base.Add(24 * time.Hour)
	sub := newSub("s1", "u1", types.SubscriptionStatusActive, 0)
	sub.EndDate = &end

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", &Filter{}, true},
		{"status hit", &Filter{Statuses: []types.SubscriptionStatus{types.SubscriptionStatusExpired, types.SubscriptionStatusActive}}, true},
		{"status miss", &Filter{Statuses: []types.SubscriptionStatus{types.SubscriptionStatusPending}}, false},
		{"currency miss", &Filter{Currency: types.CurrencyUSD}, false},
		{"email substring case insensitive", &Filter{EmailContains: "shop.EX"}, true},
		{"email miss", &Filter{EmailContains: "other"}, false},
		{"end before hit", &Filter{EndBefore: lo.ToPtr(end.Add(time.Second))}, true},
		{"end before equal is miss", &Filter{EndBefore: &end}, false},
		{"created range hit", &Filter{CreatedFrom: lo.ToPtr(base.Add(-time.Hour)), CreatedTo: lo.ToPtr(base)}, true},
		{"created range miss", &Filter{CreatedFrom: lo.ToPtr(base.Add(time.Minute))}, false},
		{"user miss", &Filter{UserID: "u2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(sub))
		})
	}

	pending := newSub("s2", "u1", types.SubscriptionStatusPending, 0)
	assert.False(t, (&Filter{EndBefore: &end}).Matches(pending), "records without end date never match EndBefore")
}

func TestMemoryAuditStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAuditStore()
	for i, id := range []string{"a", "b", "c"} {
		sub := "s1"
		if i == 1 {
			sub = "s2"
		}
		require.NoError(t, s.Append(ctx, &models.SubscriptionLog{ID: id, SubscriptionID: sub, Action: types.SubscriptionActionExtend}))
	}

	bySub, err := s.ListBySubscription(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, lo.Map(bySub, func(l *models.SubscriptionLog, _ int) string { return l.ID }))

	all, err := s.ListAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, lo.Map(all, func(l *models.SubscriptionLog, _ int) string { return l.ID }))
}

func TestMemoryCallbackLogStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCallbackLogStore()
	log := &models.PaymentNotificationLog{ID: "l1", CorrelationID: "c1", Status: models.PaymentNotificationLogStatusReceived, ReceivedAt: base}
	require.NoError(t, s.Save(ctx, log))
	log.Status = models.PaymentNotificationLogStatusHandled
	require.NoError(t, s.Save(ctx, log))
	require.NoError(t, s.Save(ctx, &models.PaymentNotificationLog{ID: "l2", CorrelationID: "c1", ReceivedAt: base.Add(time.Minute)}))

	got, err := s.ListByCorrelationID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l2", got[0].ID)
	assert.Equal(t, models.PaymentNotificationLogStatusHandled, got[1].Status)
}

func TestMemorySubscriptionStore_CASRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySubscriptionStore()
	require.NoError(t, s.Create(ctx, newSub("s1", "u1", types.SubscriptionStatusActive, 0)))

	stale, _ := s.GetByID(ctx, "s1")
	fresh, _ := s.GetByID(ctx, "s1")

	fresh.EndDate = lo.ToPtr(base.Add(90 * 24 * time.Hour))
	ok, err := s.CompareAndSwap(ctx, fresh, types.SubscriptionStatusActive)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), fresh.Version)

	// same status, older version: an extension in between must not be overwritten
	stale.Status = types.SubscriptionStatusExpired
	ok, err = s.CompareAndSwap(ctx, stale, types.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.GetByID(ctx, "s1")
	assert.Equal(t, types.SubscriptionStatusActive, got.Status)
	assert.Equal(t, base.Add(90*24*time.Hour), *got.EndDate)
}
