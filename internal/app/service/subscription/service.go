package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/dukabill/internal/app/service/catalog"
	"github.com/fatflowers/dukabill/internal/app/service/entitlement"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/tool"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Auditor records lifecycle actions.
type Auditor interface {
	Append(ctx context.Context, entry *models.SubscriptionLog) error
}

// Notifier receives entitlement changes. Notify must not block.
type Notifier interface {
	Notify(ctx context.Context, u entitlement.Update)
}

// Service is the subscription lifecycle engine.
type Service struct {
	store    store.SubscriptionStore
	catalog  *catalog.Catalog
	audit    Auditor
	notifier Notifier
	validate *validator.Validate
	log      *zap.SugaredLogger
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.SubscriptionStore, cat *catalog.Catalog, audit Auditor, notifier Notifier, log *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		catalog:  cat,
		audit:    audit,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreatePendingRequest struct {
	UserID            string         `json:"user_id" validate:"required,max=64"`
	Email             string         `json:"email" validate:"omitempty,email,max=255"`
	PhoneNumber       string         `json:"phone_number" validate:"omitempty,max=32"`
	PlanType          types.PlanType `json:"plan_type" validate:"required"`
	Currency          types.Currency `json:"currency" validate:"required"`
	CheckoutRequestID string         `json:"checkout_request_id" validate:"omitempty,max=128"`
}

// CreatePending records a new unpaid subscription priced from the catalog.
func (s *Service) CreatePending(ctx context.Context, req *CreatePendingRequest) (sub *models.Subscription, err error) {
	defer func() { observe(types.SubscriptionActionCreate, err) }()
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrValidation)
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	amount, err := s.catalog.Price(req.PlanType, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	planName, err := s.catalog.PlanName(req.PlanType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.now()
	sub = &models.Subscription{
		ID:          tool.GenerateUUIDV7(),
		UserID:      req.UserID,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		PlanType:    req.PlanType,
		PlanName:    planName,
		Status:      types.SubscriptionStatusPending,
		Amount:      amount,
		Currency:    req.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.CheckoutRequestID != "" {
		sub.CheckoutRequestID = lo.ToPtr(req.CheckoutRequestID)
	}

	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, store.ErrDuplicateCorrelationID) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: create: %v", ErrStorage, err)
	}

	s.appendLog(ctx, &models.SubscriptionLog{
		SubscriptionID: sub.ID,
		Action:         types.SubscriptionActionCreate,
		Details:        datatypes.JSONMap{"amount": sub.Amount, "currency": sub.Currency, "plan_type": sub.PlanType},
		After:          datatypes.NewJSONType(sub.Clone()),
	})
	logctx.FromCtx(ctx, s.log).Infow("pending subscription created", "subscription_id", sub.ID, "plan_type", sub.PlanType, "currency", sub.Currency)
	return sub, nil
}

// Get loads a subscription by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, id, err)
	}
	return sub, nil
}

// GetByCorrelationID loads the subscription a gateway checkout belongs to, in any status.
func (s *Service) GetByCorrelationID(ctx context.Context, checkoutRequestID string) (*models.Subscription, error) {
	sub, err := s.store.GetByCorrelationID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: checkout request %s", ErrNotFound, checkoutRequestID)
		}
		return nil, fmt.Errorf("%w: get by checkout request %s: %v", ErrStorage, checkoutRequestID, err)
	}
	return sub, nil
}

// ListByOwner returns the user's subscription history newest first.
func (s *Service) ListByOwner(ctx context.Context, userID string) ([]*models.Subscription, error) {
	subs, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list by owner: %v", ErrStorage, err)
	}
	return subs, nil
}

// GetActiveSubscription returns the newest subscription granting access now, or nil.
func (s *Service) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	subs, err := s.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sub, ok := lo.Find(subs, func(sub *models.Subscription) bool { return sub.IsActive(now) })
	if !ok {
		return nil, nil
	}
	return sub, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

type ListRequest struct {
	Filter store.Filter
	From   int `json:"from"`
	Size   int `json:"size"`
}

type ListResult struct {
	Total int                    `json:"total"`
	Items []*models.Subscription `json:"items"`
}

// List is the administrative listing. Pagination happens over the filtered scan.
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResult, error) {
	if req == nil {
		req = &ListRequest{}
	}
	size := req.Size
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	subs, err := s.store.Scan(ctx, &req.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %v", ErrStorage, err)
	}
	from := min(max(req.From, 0), len(subs))
	end := min(from+size, len(subs))
	return &ListResult{Total: len(subs), Items: subs[from:end]}, nil
}

func (s *Service) appendLog(ctx context.Context, entry *models.SubscriptionLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to append subscription log",
			"subscription_id", entry.SubscriptionID, "action", entry.Action, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, u entitlement.Update) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, u)
}
