package models

import (
	"time"

	"github.com/fatflowers/dukabill/pkg/types"
)

// Subscription is one paid period of access bought by a user. Renewals create
// new records; administrative changes mutate the existing one.
// Use IsActive(now) to decide whether it grants access.
type Subscription struct {
	ID          string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_subscription_user_created,priority:1" json:"user_id"`
	Email       string                   `gorm:"column:email;type:varchar(255)" json:"email"`
	PhoneNumber string                   `gorm:"column:phone_number;type:varchar(32)" json:"phone_number"`
	PlanType    types.PlanType           `gorm:"column:plan_type;type:varchar(32);not null" json:"plan_type"`
	PlanName    string                   `gorm:"column:plan_name;type:varchar(128);not null" json:"plan_name"`
	Status      types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	// Amount is in whole currency units.
	Amount   int64          `gorm:"column:amount;not null" json:"amount"`
	Currency types.Currency `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	// StartDate and EndDate are nil while pending.
	StartDate *time.Time `gorm:"column:start_date;default:null" json:"start_date"`
	EndDate   *time.Time `gorm:"column:end_date;default:null;index" json:"end_date"`
	// TransactionID is the gateway receipt, set on activation.
	TransactionID *string `gorm:"column:transaction_id;type:varchar(128);default:null" json:"transaction_id"`
	// CheckoutRequestID correlates the gateway callback with this record.
	CheckoutRequestID *string `gorm:"column:checkout_request_id;type:varchar(128);default:null;uniqueIndex" json:"checkout_request_id"`
	// Version is bumped on every write and guards conditional updates.
	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"index:idx_subscription_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// IsActive reports whether s grants access at now.
func (s *Subscription) IsActive(now time.Time) bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.EndDate != nil &&
		now.Before(*s.EndDate)
}

// Clone returns a deep copy, so callers can mutate it without touching shared state.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.StartDate = cloneTime(s.StartDate)
	c.EndDate = cloneTime(s.EndDate)
	c.TransactionID = cloneString(s.TransactionID)
	c.CheckoutRequestID = cloneString(s.CheckoutRequestID)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
