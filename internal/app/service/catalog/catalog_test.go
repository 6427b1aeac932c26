package catalog

import (
	"testing"
	"time"

	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Plans: []*types.PlanItem{
			{Type: types.PlanTypeMonthly, Name: "Monthly Plan", DurationDays: 30, Prices: []*types.PlanPrice{
				{Currency: types.CurrencyKSH, Amount: 2000},
				{Currency: types.CurrencyUSD, Amount: 10},
			}},
			{Type: types.PlanTypeYearly, Name: "Yearly Plan", DurationDays: 365, Prices: []*types.PlanPrice{
				{Currency: types.CurrencyKSH, Amount: 20000},
				{Currency: types.CurrencyUSD, Amount: 100},
			}},
		},
		Extensions: []*types.ExtensionItem{
			{Kind: types.ExtensionKindOneMonth, DurationDays: 30},
			{Kind: types.ExtensionKindTwoMonths, DurationDays: 60},
		},
	}
}

func TestCatalog_Price(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	tests := []struct {
		plan     types.PlanType
		currency types.Currency
		want     int64
		wantErr  error
	}{
		{types.PlanTypeMonthly, types.CurrencyKSH, 2000, nil},
		{types.PlanTypeMonthly, types.CurrencyUSD, 10, nil},
		{types.PlanTypeYearly, types.CurrencyKSH, 20000, nil},
		{types.PlanTypeYearly, types.CurrencyUSD, 100, nil},
		{"weekly", types.CurrencyKSH, 0, ErrUnknownPlan},
		{types.PlanTypeMonthly, "EUR", 0, ErrUnknownCurrency},
	}
	for _, tt := range tests {
		got, err := c.Price(tt.plan, tt.currency)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCatalog_Durations(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	d, err := c.Duration(types.PlanTypeMonthly)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)

	d, err = c.Duration(types.PlanTypeYearly)
	require.NoError(t, err)
	assert.Equal(t, 365*24*time.Hour, d)

	d, err = c.ExtensionDuration(types.ExtensionKindTwoMonths)
	require.NoError(t, err)
	assert.Equal(t, 60*24*time.Hour, d)

	_, err = c.ExtensionDuration("3-months")
	assert.ErrorIs(t, err, ErrUnknownExtension)

	name, err := c.PlanName(types.PlanTypeYearly)
	require.NoError(t, err)
	assert.Equal(t, "Yearly Plan", name)
}

func TestNew_RejectsBadTables(t *testing.T) {
	cfg := testConfig()
	cfg.Plans[0].DurationDays = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Plans[1].Prices[0].Amount = -1
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Extensions[0].DurationDays = 0
	_, err = New(cfg)
	assert.Error(t, err)
}
