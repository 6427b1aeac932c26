package types

// PlanPrice is the price of a plan in one currency, in whole currency units.
type PlanPrice struct {
	Currency Currency `json:"currency" mapstructure:"currency"`
	Amount   int64    `json:"amount" mapstructure:"amount"`
}

// PlanItem describes a billing tier loaded from configuration.
type PlanItem struct {
	Type         PlanType     `json:"type" mapstructure:"type"`
	Name         string       `json:"name" mapstructure:"name"`
	DurationDays int          `json:"duration_days" mapstructure:"duration_days"`
	Prices       []*PlanPrice `json:"prices" mapstructure:"prices"`
}

// PriceIn returns the plan price in currency, or nil when the plan is not sold in it.
func (p *PlanItem) PriceIn(currency Currency) *PlanPrice {
	if p == nil {
		return nil
	}
	for _, price := range p.Prices {
		if price.Currency == currency {
			return price
		}
	}
	return nil
}

// ExtensionItem is a fixed-length administrative extension.
type ExtensionItem struct {
	Kind         ExtensionKind `json:"kind" mapstructure:"kind"`
	DurationDays int           `json:"duration_days" mapstructure:"duration_days"`
}
