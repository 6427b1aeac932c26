package payment_callback

import (
	"errors"
	"time"

	"github.com/fatflowers/dukabill/pkg/types"
)

var (
	// ErrUnmatchedCallback means no subscription carries the callback's
	// correlation id, i.e. the pending record was lost or the id is wrong.
	ErrUnmatchedCallback = errors.New("unmatched payment callback")
	ErrInvalidCallback   = errors.New("invalid payment callback")
)

// Callback is a gateway payment result reduced to the fields the engine uses.
type Callback struct {
	CorrelationID string    `json:"correlation_id"`
	Succeeded     bool      `json:"succeeded"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        *int64    `json:"amount,omitempty"`
	PayerPhone    string    `json:"payer_phone,omitempty"`
	ResultReason  string    `json:"result_reason,omitempty"`
	PaidAt        time.Time `json:"paid_at,omitempty"`
}

type Outcome string

const (
	OutcomeActivated Outcome = "activated"
	OutcomeFailed    Outcome = "failed"
	// OutcomeDuplicate is a replay of a callback that was already applied.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored is a late callback against a record that moved on.
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Outcome        Outcome                  `json:"outcome"`
	SubscriptionID string                   `json:"subscription_id"`
	Status         types.SubscriptionStatus `json:"status"`
	EndDate        *time.Time               `json:"end_date,omitempty"`
}
