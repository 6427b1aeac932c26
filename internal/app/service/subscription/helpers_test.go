package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	"github.com/fatflowers/dukabill/internal/app/service/catalog"
	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []entitlement.Update
}

func (r *recordingNotifier) Notify(_ context.Context, u entitlement.Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []entitlement.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entitlement.Update(nil), r.updates...)
}

type fixture struct {
	svc      *Service
	store    store.SubscriptionStore
	audit    *auditlog.Service
	notifier *recordingNotifier
	clock    *fakeClock
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(&config.Config{
		Plans: []*types.PlanItem{
			{Type: types.PlanTypeMonthly, Name: "Monthly Plan", DurationDays: 30, Prices: []*types.PlanPrice{
				{Currency: types.CurrencyKSH, Amount: 2000}, {Currency: types.CurrencyUSD, Amount: 10},
			}},
			{Type: types.PlanTypeYearly, Name: "Yearly Plan", DurationDays: 365, Prices: []*types.PlanPrice{
				{Currency: types.CurrencyKSH, Amount: 20000}, {Currency: types.CurrencyUSD, Amount: 100},
			}},
		},
		Extensions: []*types.ExtensionItem{
			{Kind: types.ExtensionKindOneMonth, DurationDays: 30},
			{Kind: types.ExtensionKindTwoMonths, DurationDays: 60},
		},
	})
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, store.NewMemorySubscriptionStore())
}

func newFixtureWithStore(t *testing.T, st store.SubscriptionStore) *fixture {
	t.Helper()
	clock := &fakeClock{now: t0}
	audit := auditlog.New(store.NewMemoryAuditStore())
	notifier := &recordingNotifier{}
	svc := NewService(st, testCatalog(t), audit, notifier, zap.NewNop().Sugar(), WithClock(clock.Now))
	return &fixture{svc: svc, store: st, audit: audit, notifier: notifier, clock: clock}
}

func (f *fixture) createPending(t *testing.T, user string, plan types.PlanType, currency types.Currency) *models.Subscription {
	t.Helper()
	sub, err := f.svc.CreatePending(context.Background(), &CreatePendingRequest{
		UserID:            user,
		Email:             user + "@shop.example",
		PhoneNumber:       "254700000000",
		PlanType:          plan,
		Currency:          currency,
		CheckoutRequestID: "ws_CO_" + user + "_" + f.clock.Now().Format("150405.000000000"),
	})
	require.NoError(t, err)
	return sub
}

func (f *fixture) createActive(t *testing.T, user string) *models.Subscription {
	t.Helper()
	sub := f.createPending(t, user, types.PlanTypeMonthly, types.CurrencyKSH)
	sub, err := f.svc.Activate(context.Background(), sub.ID, "TX-"+sub.ID)
	require.NoError(t, err)
	return sub
}

// flakyStore fails CompareAndSwap for the ids in failIDs and Scan when scanErr is set.
type flakyStore struct {
	store.SubscriptionStore
	failIDs map[string]bool
	scanErr error
}

var errDiskFull = errors.New("disk full")

func (f *flakyStore) CompareAndSwap(ctx context.Context, sub *models.Subscription, expected types.SubscriptionStatus) (bool, error) {
	if f.failIDs[sub.ID] {
		return false, errDiskFull
	}
	return f.SubscriptionStore.CompareAndSwap(ctx, sub, expected)
}

func (f *flakyStore) Scan(ctx context.Context, filter *store.Filter) ([]*models.Subscription, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.SubscriptionStore.Scan(ctx, filter)
}

// racingStore loses the next n CompareAndSwap calls once armed with loseNext,
// running interfere before each lost write as if another writer got there first.
type racingStore struct {
	store.SubscriptionStore
	mu        sync.Mutex
	lose      int
	attempts  int
	interfere func()
}

func (r *racingStore) loseNext(n int, interfere func()) {
	r.mu.Lock()
	r.lose, r.attempts, r.interfere = n, 0, interfere
	r.mu.Unlock()
}

func (r *racingStore) CompareAndSwap(ctx context.Context, sub *models.Subscription, expected types.SubscriptionStatus) (bool, error) {
	r.mu.Lock()
	r.attempts++
	lost := r.attempts <= r.lose
	interfere := r.interfere
	r.mu.Unlock()
	if lost {
		if interfere != nil {
			interfere()
		}
		return false, nil
	}
	return r.SubscriptionStore.CompareAndSwap(ctx, sub, expected)
}

func (r *racingStore) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}
