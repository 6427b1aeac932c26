package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePending(t *testing.T) {
	f := newFixture(t)
	sub := f.createPending(t, "u1", types.PlanTypeMonthly, types.CurrencyKSH)

	assert.Equal(t, types.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, int64(2000), sub.Amount)
	assert.Equal(t, "Monthly Plan", sub.PlanName)
	assert.Nil(t, sub.StartDate)
	assert.Nil(t, sub.EndDate)
	assert.Nil(t, sub.TransactionID)
	assert.Equal(t, t0, sub.CreatedAt)

	yearly := f.createPending(t, "u2", types.PlanTypeYearly, types.CurrencyUSD)
	assert.Equal(t, int64(100), yearly.Amount)

	logs, err := f.audit.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.SubscriptionActionCreate, logs[0].Action)
	assert.Nil(t, logs[0].AdminID)
}

func TestCreatePending_Validation(t *testing.T) {
	valid := func() *CreatePendingRequest {
		return &CreatePendingRequest{UserID: "u1", Email: "a@b.co", PlanType: types.PlanTypeMonthly, Currency: types.CurrencyKSH}
	}
	tests := []struct {
		name   string
		mutate func(r *CreatePendingRequest)
	}{
		{"unknown plan", func(r *CreatePendingRequest) { r.PlanType = "weekly" }},
		{"unknown currency", func(r *CreatePendingRequest) { r.Currency = "EUR" }},
		{"missing user", func(r *CreatePendingRequest) { r.UserID = "" }},
		{"bad email", func(r *CreatePendingRequest) { r.Email = "not-an-email" }},
		{"missing plan", func(r *CreatePendingRequest) { r.PlanType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := valid()
			tt.mutate(req)
			_, err := f.svc.CreatePending(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)

			all, _ := f.store.Scan(context.Background(), nil)
			assert.Empty(t, all, "rejected before any write")
		})
	}

	f := newFixture(t)
	_, err := f.svc.CreatePending(context.Background(), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePending_DuplicateCheckoutRequest(t *testing.T) {
	f := newFixture(t)
	req := &CreatePendingRequest{UserID: "u1", PlanType: types.PlanTypeMonthly, Currency: types.CurrencyKSH, CheckoutRequestID: "ws_CO_1"}
	_, err := f.svc.CreatePending(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CreatePending(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, store.ErrDuplicateCorrelationID)

	// records without a correlation id never collide
	req.CheckoutRequestID = ""
	_, err = f.svc.CreatePending(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.CreatePending(context.Background(), req)
	require.NoError(t, err)
}

func TestGetActiveSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	none, err := f.svc.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := f.createActive(t, "u1")
	f.clock.Set(t0.Add(day))
	f.createPending(t, "u1", types.PlanTypeYearly, types.CurrencyKSH)

	got, err := f.svc.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID, "newer pending record does not grant access")

	f.clock.Set(t0.Add(31 * day))
	got, err = f.svc.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got, "end date passed even though the sweep has not run")

	history, err := f.svc.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.clock.Set(t0.Add(time.Duration(i) * time.Minute))
		f.createPending(t, "u"+string(rune('a'+i)), types.PlanTypeMonthly, types.CurrencyKSH)
	}
	f.createPending(t, "usd", types.PlanTypeMonthly, types.CurrencyUSD)

	res, err := f.svc.List(ctx, &ListRequest{Filter: store.Filter{Currency: types.CurrencyKSH}, From: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "ud", res.Items[0].UserID)
	assert.Equal(t, "uc", res.Items[1].UserID)

	res, err = f.svc.List(ctx, &ListRequest{From: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)
	assert.Empty(t, res.Items)

	res, err = f.svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, res.Items, 6)
}
