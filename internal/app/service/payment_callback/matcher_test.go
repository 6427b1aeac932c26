package payment_callback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	"github.com/fatflowers/dukabill/internal/app/service/catalog"
	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	notificationlog "github.com/fatflowers/dukabill/internal/app/service/notification_log"
	"github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify(context.Context, entitlement.Update) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

type env struct {
	matcher  *Matcher
	subs     *subscription.Service
	logs     store.CallbackLogStore
	notifier *countingNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cat, err := catalog.New(&config.Config{
		Plans: []*types.PlanItem{{Type: types.PlanTypeMonthly, Name: "Monthly Plan", DurationDays: 30, Prices: []*types.PlanPrice{
			{Currency: types.CurrencyKSH, Amount: 2000},
		}}},
	})
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	notifier := &countingNotifier{}
	subs := subscription.NewService(store.NewMemorySubscriptionStore(), cat, auditlog.New(store.NewMemoryAuditStore()), notifier, log,
		subscription.WithClock(func() time.Time { return now }))
	logs := store.NewMemoryCallbackLogStore()
	return &env{
		matcher:  NewMatcher(subs, notificationlog.New(logs, log), log),
		subs:     subs,
		logs:     logs,
		notifier: notifier,
	}
}

func (e *env) pending(t *testing.T, checkout string) *models.Subscription {
	t.Helper()
	sub, err := e.subs.CreatePending(context.Background(), &subscription.CreatePendingRequest{
		UserID: "u1", PlanType: types.PlanTypeMonthly, Currency: types.CurrencyKSH, CheckoutRequestID: checkout,
	})
	require.NoError(t, err)
	return sub
}

func success(checkout, tx string) *Callback {
	return &Callback{CorrelationID: checkout, Succeeded: true, TransactionID: tx, Amount: lo.ToPtr(int64(2000))}
}

func TestHandleCallback_Success(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	sub := e.pending(t, "c1")

	found, err := e.matcher.FindPendingByCorrelationID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	res, err := e.matcher.HandleCallback(ctx, success("c1", "T1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, res.Outcome)
	assert.Equal(t, types.SubscriptionStatusActive, res.Status)
	assert.Equal(t, now.Add(30*24*time.Hour), *res.EndDate)

	res, err = e.matcher.HandleCallback(ctx, success("c1", "T1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, now.Add(30*24*time.Hour), *res.EndDate)
	assert.Equal(t, 1, e.notifier.n)

	res, err = e.matcher.HandleCallback(ctx, success("c1", "T2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestHandleCallback_Failure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	sub := e.pending(t, "c1")

	res, err := e.matcher.HandleCallback(ctx, &Callback{CorrelationID: "c1", ResultReason: "Request cancelled by user"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, types.SubscriptionStatusFailed, res.Status)
	assert.Nil(t, res.EndDate)

	res, err = e.matcher.HandleCallback(ctx, &Callback{CorrelationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	res, err = e.matcher.HandleCallback(ctx, success("c1", "T1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome, "failed is terminal")

	got, _ := e.subs.Get(ctx, sub.ID)
	assert.Equal(t, types.SubscriptionStatusFailed, got.Status)
	assert.Zero(t, e.notifier.n)
}

func TestHandleCallback_LateFailureAfterActivation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.pending(t, "c1")

	_, err := e.matcher.HandleCallback(ctx, success("c1", "T1"))
	require.NoError(t, err)
	res, err := e.matcher.HandleCallback(ctx, &Callback{CorrelationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, types.SubscriptionStatusActive, res.Status)
}

func TestHandleCallback_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.matcher.HandleCallback(ctx, success("nope", "T1"))
	assert.ErrorIs(t, err, ErrUnmatchedCallback)

	_, err = e.matcher.HandleCallback(ctx, &Callback{})
	assert.ErrorIs(t, err, ErrInvalidCallback)

	e.pending(t, "c1")
	_, err = e.matcher.HandleCallback(ctx, &Callback{CorrelationID: "c1", Succeeded: true})
	assert.ErrorIs(t, err, ErrInvalidCallback)
}

func TestHandleCallback_ConcurrentRetries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	sub := e.pending(t, "c1")

	var wg sync.WaitGroup
	ends := make([]time.Time, 6)
	for i := range ends {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.matcher.HandleCallback(ctx, success("c1", "T1"))
			if assert.NoError(t, err) {
				ends[i] = *res.EndDate
			}
		}(i)
	}
	wg.Wait()

	got, _ := e.subs.Get(ctx, sub.ID)
	for _, end := range ends {
		assert.Equal(t, *got.EndDate, end)
	}
	assert.Equal(t, 1, e.notifier.n)
}

func TestHandle_RecordsCallbackLog(t *testing.T) {
	ctx := context.WithValue(context.Background(), "traceID", "trace-1") //nolint:staticcheck
	e := newEnv(t)
	e.pending(t, "ws_CO_191220191020363925")

	res, err := e.matcher.Handle(ctx, MpesaParser{}, []byte(mpesaSuccess))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, res.Outcome)

	logs, err := e.logs.ListByCorrelationID(ctx, "ws_CO_191220191020363925")
	require.NoError(t, err)
	require.Len(t, logs, 1, "received entry is updated in place")
	assert.Equal(t, models.PaymentNotificationLogStatusHandled, logs[0].Status)
	assert.Equal(t, "mpesa", logs[0].Provider)
	assert.Equal(t, "trace-1", logs[0].TraceID)
	assert.Equal(t, "NLJ7RT61SV", logs[0].TransactionID)
	assert.Equal(t, OutcomeActivated, logs[0].Result["outcome"])
	assert.Equal(t, res.SubscriptionID, *logs[0].SubscriptionID)
}

func TestHandle_UnmatchedAndInvalidAreRecorded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.matcher.Handle(ctx, MpesaParser{}, []byte(mpesaCancelled))
	assert.ErrorIs(t, err, ErrUnmatchedCallback)
	logs, _ := e.logs.ListByCorrelationID(ctx, "ws_CO_191220191020363925")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentNotificationLogStatusHandleFailed, logs[0].Status)
	assert.Contains(t, logs[0].Result["error"], "unmatched")

	_, err = e.matcher.Handle(ctx, GenericParser{}, []byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidCallback)
	logs, _ = e.logs.ListByCorrelationID(ctx, "")
	require.Len(t, logs, 1)
	assert.Equal(t, `"garbage"`, string(logs[0].Data))
}
