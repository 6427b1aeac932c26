package payment_callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	notificationlog "github.com/fatflowers/dukabill/internal/app/service/notification_log"
	"github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/metrics"
	"github.com/fatflowers/dukabill/pkg/tool"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Matcher routes gateway callbacks to the pending subscription they pay for.
type Matcher struct {
	subs *subscription.Service
	logs *notificationlog.Service
	log  *zap.SugaredLogger
}

func NewMatcher(subs *subscription.Service, logs *notificationlog.Service, log *zap.SugaredLogger) *Matcher {
	return &Matcher{subs: subs, logs: logs, log: log}
}

// FindPendingByCorrelationID returns the subscription created for the
// checkout, whatever its current status.
func (m *Matcher) FindPendingByCorrelationID(ctx context.Context, checkoutRequestID string) (*models.Subscription, error) {
	return m.subs.GetByCorrelationID(ctx, checkoutRequestID)
}

// Handle parses body with parser, records it in the callback log and applies it.
func (m *Matcher) Handle(ctx context.Context, parser Parser, body []byte) (res *Result, resErr error) {
	entry := &models.PaymentNotificationLog{
		ID:         tool.GenerateUUIDV7(),
		Provider:   parser.Provider(),
		ReceivedAt: time.Now(),
		Data:       rawJSON(body),
		Status:     models.PaymentNotificationLogStatusReceived,
	}
	if traceID, ok := ctx.Value(logctx.KeyTraceID).(string); ok {
		entry.TraceID = traceID
	}

	cb, parseErr := parser.Parse(body)
	if parseErr == nil {
		entry.CorrelationID = cb.CorrelationID
		entry.TransactionID = cb.TransactionID
	}
	m.logs.Save(ctx, entry)

	defer func() {
		entry.Status = models.PaymentNotificationLogStatusHandled
		entry.Result = datatypes.JSONMap{}
		if res != nil {
			entry.Result["outcome"] = res.Outcome
			entry.SubscriptionID = lo.ToPtr(res.SubscriptionID)
		}
		if resErr != nil {
			entry.Status = models.PaymentNotificationLogStatusHandleFailed
			entry.Result["error"] = resErr.Error()
		}
		m.logs.Save(ctx, entry)
	}()

	if parseErr != nil {
		logctx.FromCtx(ctx, m.log).Warnw("unparseable payment callback", "provider", parser.Provider(), "err", parseErr)
		metrics.ObserveCallback("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, parseErr)
	}
	return m.HandleCallback(ctx, cb)
}

// HandleCallback applies a payment result. A success activates the matched
// subscription, a failure marks it failed. Replays and late callbacks against
// records that already moved on are reported through Result.Outcome, not as errors.
func (m *Matcher) HandleCallback(ctx context.Context, cb *Callback) (res *Result, err error) {
	defer func() {
		switch {
		case err == nil:
			metrics.ObserveCallback(string(res.Outcome))
		case errors.Is(err, ErrUnmatchedCallback):
			metrics.ObserveCallback("unmatched")
		default:
			metrics.ObserveCallback("error")
		}
	}()
	if cb == nil || cb.CorrelationID == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrInvalidCallback)
	}
	lg := logctx.FromCtx(ctx, m.log).With("checkout_request_id", cb.CorrelationID, "succeeded", cb.Succeeded)

	sub, err := m.FindPendingByCorrelationID(ctx, cb.CorrelationID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			lg.Errorw("payment callback matches no subscription", "transaction_id", cb.TransactionID, "payer_phone", cb.PayerPhone)
			return nil, fmt.Errorf("%w: checkout request %s", ErrUnmatchedCallback, cb.CorrelationID)
		}
		return nil, err
	}
	lg = lg.With("subscription_id", sub.ID, "status", sub.Status)

	if cb.Succeeded {
		return m.applySuccess(ctx, lg, sub, cb)
	}
	return m.applyFailure(ctx, lg, sub, cb)
}

func (m *Matcher) applySuccess(ctx context.Context, lg *zap.SugaredLogger, sub *models.Subscription, cb *Callback) (*Result, error) {
	if cb.TransactionID == "" {
		return nil, fmt.Errorf("%w: successful callback without transaction id", ErrInvalidCallback)
	}
	if cb.Amount != nil && *cb.Amount != sub.Amount {
		lg.Warnw("paid amount differs from subscription price", "paid", *cb.Amount, "price", sub.Amount, "currency", sub.Currency)
	}
	if sub.Status == types.SubscriptionStatusActive && sub.TransactionID != nil && *sub.TransactionID == cb.TransactionID {
		lg.Infow("duplicate payment callback")
		return result(OutcomeDuplicate, sub), nil
	}

	activated, err := m.subs.Activate(ctx, sub.ID, cb.TransactionID)
	if err != nil {
		if errors.Is(err, subscription.ErrInvalidState) {
			lg.Warnw("late payment callback ignored", "transaction_id", cb.TransactionID, "err", err)
			return m.current(ctx, OutcomeIgnored, sub)
		}
		return nil, err
	}
	return result(OutcomeActivated, activated), nil
}

func (m *Matcher) applyFailure(ctx context.Context, lg *zap.SugaredLogger, sub *models.Subscription, cb *Callback) (*Result, error) {
	if sub.Status == types.SubscriptionStatusFailed {
		return result(OutcomeDuplicate, sub), nil
	}
	if err := m.subs.MarkFailed(ctx, sub.ID, cb.ResultReason); err != nil {
		if errors.Is(err, subscription.ErrInvalidState) {
			lg.Warnw("late failure callback ignored", "reason", cb.ResultReason)
			return m.current(ctx, OutcomeIgnored, sub)
		}
		return nil, err
	}
	return m.current(ctx, OutcomeFailed, sub)
}

// current reloads sub so the result reflects what is stored now.
func (m *Matcher) current(ctx context.Context, outcome Outcome, sub *models.Subscription) (*Result, error) {
	latest, err := m.subs.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return result(outcome, latest), nil
}

func result(outcome Outcome, sub *models.Subscription) *Result {
	return &Result{Outcome: outcome, SubscriptionID: sub.ID, Status: sub.Status, EndDate: sub.EndDate}
}

// rawJSON keeps body as-is when it is JSON and stores it as a JSON string otherwise.
func rawJSON(body []byte) datatypes.JSON {
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	quoted, _ := json.Marshal(string(body))
	return datatypes.JSON(quoted)
}

var Module = fx.Options(
	fx.Provide(NewMatcher),
)
