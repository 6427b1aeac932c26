package statistics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/fx"
)

const statsCacheKey = "stats"

// Stats summarizes every stored subscription. Revenue only counts records
// that reached a paid state.
type Stats struct {
	TotalRevenueByCurrency map[types.Currency]int64 `json:"total_revenue_by_currency"`
	// UnifiedTotal is the revenue expressed in KSH for display. It is not
	// suitable for settlement.
	UnifiedTotal   float64   `json:"unified_total"`
	ActiveCount    int64     `json:"active_count"`
	ExpiredCount   int64     `json:"expired_count"`
	PendingCount   int64     `json:"pending_count"`
	CancelledCount int64     `json:"cancelled_count"`
	FailedCount    int64     `json:"failed_count"`
	TotalCount     int64     `json:"total_count"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Service provides statistics operations
type Service struct {
	store        store.SubscriptionStore
	usdToKSHRate float64
	cache        *cache.Cache
}

func New(cfg *config.Config, st store.SubscriptionStore) *Service {
	s := &Service{store: st, usdToKSHRate: cfg.Stats.USDToKSHRate}
	if cfg.Stats.CacheTTL > 0 {
		s.cache = cache.New(cfg.Stats.CacheTTL, 2*cfg.Stats.CacheTTL)
	}
	return s
}

// ComputeStats scans all subscriptions. Results are served from a short lived
// cache when one is configured.
func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(statsCacheKey); ok {
			return v.(*Stats), nil
		}
	}

	subs, err := s.store.Scan(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}

	stats := &Stats{TotalRevenueByCurrency: map[types.Currency]int64{}, ComputedAt: time.Now()}
	for _, sub := range subs {
		stats.TotalCount++
		switch sub.Status {
		case types.SubscriptionStatusActive:
			stats.ActiveCount++
		case types.SubscriptionStatusExpired:
			stats.ExpiredCount++
		case types.SubscriptionStatusPending:
			stats.PendingCount++
		case types.SubscriptionStatusCancelled:
			stats.CancelledCount++
		case types.SubscriptionStatusFailed:
			stats.FailedCount++
		}
		if sub.Status.Paid() {
			stats.TotalRevenueByCurrency[sub.Currency] += sub.Amount
		}
	}
	stats.UnifiedTotal = s.unify(stats.TotalRevenueByCurrency)

	if s.cache != nil {
		s.cache.SetDefault(statsCacheKey, stats)
	}
	return stats, nil
}

func (s *Service) unify(byCurrency map[types.Currency]int64) float64 {
	total := float64(byCurrency[types.CurrencyKSH]) + float64(byCurrency[types.CurrencyUSD])*s.usdToKSHRate
	return math.Round(total*100) / 100
}

var Module = fx.Options(
	fx.Provide(New),
)
