package types

type PlanType string

const (
	PlanTypeMonthly PlanType = "monthly"
	PlanTypeYearly  PlanType = "yearly"
)

type Currency string

const (
	CurrencyKSH Currency = "KSH"
	CurrencyUSD Currency = "USD"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Paid reports whether a subscription in this status has ever been paid for.
func (s SubscriptionStatus) Paid() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusExpired || s == SubscriptionStatusCancelled
}

// ExtensionKind is an administrative extension length, e.g. "1-month".
type ExtensionKind string

const (
	ExtensionKindOneMonth  ExtensionKind = "1-month"
	ExtensionKindTwoMonths ExtensionKind = "2-months"
)

type SubscriptionAction string

const (
	SubscriptionActionCreate   SubscriptionAction = "create"
	SubscriptionActionActivate SubscriptionAction = "activate"
	SubscriptionActionExtend   SubscriptionAction = "extend"
	SubscriptionActionRevoke   SubscriptionAction = "revoke"
	SubscriptionActionExpire   SubscriptionAction = "expire"
)
