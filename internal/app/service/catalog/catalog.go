package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/fatflowers/dukabill/pkg/types"
	"go.uber.org/fx"
)

var (
	ErrUnknownPlan      = errors.New("unknown plan type")
	ErrUnknownCurrency  = errors.New("plan is not sold in currency")
	ErrUnknownExtension = errors.New("unknown extension kind")
)

const day = 24 * time.Hour

// Catalog answers price and duration questions from the configured plan tables.
type Catalog struct {
	plans      map[types.PlanType]*types.PlanItem
	extensions map[types.ExtensionKind]*types.ExtensionItem
}

func New(cfg *config.Config) (*Catalog, error) {
	c := &Catalog{
		plans:      make(map[types.PlanType]*types.PlanItem, len(cfg.Plans)),
		extensions: make(map[types.ExtensionKind]*types.ExtensionItem, len(cfg.Extensions)),
	}
	for _, p := range cfg.Plans {
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("plan %q: duration_days must be positive", p.Type)
		}
		for _, price := range p.Prices {
			if price.Amount <= 0 {
				return nil, fmt.Errorf("plan %q: %s price must be positive", p.Type, price.Currency)
			}
		}
		c.plans[p.Type] = p
	}
	for _, e := range cfg.Extensions {
		if e.DurationDays <= 0 {
			return nil, fmt.Errorf("extension %q: duration_days must be positive", e.Kind)
		}
		c.extensions[e.Kind] = e
	}
	return c, nil
}

func (c *Catalog) plan(planType types.PlanType) (*types.PlanItem, error) {
	p, ok := c.plans[planType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
	}
	return p, nil
}

// Price returns the amount charged for planType in currency, in whole units.
func (c *Catalog) Price(planType types.PlanType, currency types.Currency) (int64, error) {
	p, err := c.plan(planType)
	if err != nil {
		return 0, err
	}
	price := p.PriceIn(currency)
	if price == nil {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownCurrency, planType, currency)
	}
	return price.Amount, nil
}

func (c *Catalog) Duration(planType types.PlanType) (time.Duration, error) {
	p, err := c.plan(planType)
	if err != nil {
		return 0, err
	}
	return time.Duration(p.DurationDays) * day, nil
}

func (c *Catalog) PlanName(planType types.PlanType) (string, error) {
	p, err := c.plan(planType)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (c *Catalog) ExtensionDuration(kind types.ExtensionKind) (time.Duration, error) {
	e, ok := c.extensions[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownExtension, kind)
	}
	return time.Duration(e.DurationDays) * day, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
