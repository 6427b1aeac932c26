package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/types"
)

// memorySubscriptionStore keeps records in a map. Scans are full scans.
type memorySubscriptionStore struct {
	mu            sync.RWMutex
	byID          map[string]*models.Subscription
	byCorrelation map[string]string
}

func NewMemorySubscriptionStore() SubscriptionStore {
	return &memorySubscriptionStore{
		byID:          make(map[string]*models.Subscription),
		byCorrelation: make(map[string]string),
	}
}

func (m *memorySubscriptionStore) Create(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[sub.ID]; ok {
		return ErrDuplicateID
	}
	if sub.CheckoutRequestID != nil {
		if _, ok := m.byCorrelation[*sub.CheckoutRequestID]; ok {
			return ErrDuplicateCorrelationID
		}
		m.byCorrelation[*sub.CheckoutRequestID] = sub.ID
	}
	m.byID[sub.ID] = sub.Clone()
	return nil
}

func (m *memorySubscriptionStore) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (m *memorySubscriptionStore) GetByCorrelationID(_ context.Context, checkoutRequestID string) (*models.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCorrelation[checkoutRequestID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.byID[id].Clone(), nil
}

func (m *memorySubscriptionStore) ListByOwner(ctx context.Context, userID string) ([]*models.Subscription, error) {
	return m.Scan(ctx, &Filter{UserID: userID})
}

func (m *memorySubscriptionStore) Scan(_ context.Context, filter *Filter) ([]*models.Subscription, error) {
	m.mu.RLock()
	out := make([]*models.Subscription, 0)
	for _, sub := range m.byID {
		if filter.Matches(sub) {
			out = append(out, sub.Clone())
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (m *memorySubscriptionStore) CompareAndSwap(_ context.Context, sub *models.Subscription, expected types.SubscriptionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[sub.ID]
	if !ok {
		return false, ErrNotFound
	}
	if cur.Status != expected || cur.Version != sub.Version {
		return false, nil
	}
	sub.Version++
	m.byID[sub.ID] = sub.Clone()
	return true, nil
}

func sortNewestFirst(subs []*models.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].ID > subs[j].ID
	})
}

type memoryAuditStore struct {
	mu      sync.RWMutex
	entries []*models.SubscriptionLog
}

func NewMemoryAuditStore() AuditStore {
	return &memoryAuditStore{}
}

func (m *memoryAuditStore) Append(_ context.Context, entry *models.SubscriptionLog) error {
	cp := *entry
	m.mu.Lock()
	m.entries = append(m.entries, &cp)
	m.mu.Unlock()
	return nil
}

func (m *memoryAuditStore) ListBySubscription(_ context.Context, subscriptionID string) ([]*models.SubscriptionLog, error) {
	return m.list(func(e *models.SubscriptionLog) bool { return e.SubscriptionID == subscriptionID }, 0), nil
}

func (m *memoryAuditStore) ListAll(_ context.Context, limit int) ([]*models.SubscriptionLog, error) {
	return m.list(nil, limit), nil
}

func (m *memoryAuditStore) list(keep func(*models.SubscriptionLog) bool, limit int) []*models.SubscriptionLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.SubscriptionLog, 0)
	// entries are appended in time order, walk backwards for newest first
	for i := len(m.entries) - 1; i >= 0; i-- {
		if keep != nil && !keep(m.entries[i]) {
			continue
		}
		cp := *m.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type memoryCallbackLogStore struct {
	mu   sync.RWMutex
	logs map[string]*models.PaymentNotificationLog
}

func NewMemoryCallbackLogStore() CallbackLogStore {
	return &memoryCallbackLogStore{logs: make(map[string]*models.PaymentNotificationLog)}
}

func (m *memoryCallbackLogStore) Save(_ context.Context, log *models.PaymentNotificationLog) error {
	cp := *log
	m.mu.Lock()
	m.logs[log.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memoryCallbackLogStore) ListByCorrelationID(_ context.Context, correlationID string) ([]*models.PaymentNotificationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.PaymentNotificationLog, 0)
	for _, l := range m.logs {
		if l.CorrelationID == correlationID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out, nil
}
