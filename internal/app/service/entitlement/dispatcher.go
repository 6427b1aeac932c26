package entitlement

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	shardCount = 8
	queueSize  = 256
)

var ErrDispatcherClosed = errors.New("entitlement dispatcher closed")

type job struct {
	update Update
	log    *zap.SugaredLogger
}

// Dispatcher delivers updates in the background. Updates for the same user
// are delivered in submission order; calls to the propagator go through a
// circuit breaker so a dead profile store does not pile up timeouts.
type Dispatcher struct {
	propagator Propagator
	breaker    *gobreaker.CircuitBreaker[any]
	timeout    time.Duration
	log        *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	shards []chan job
	wg     sync.WaitGroup
}

func NewDispatcher(p Propagator, timeout time.Duration, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		propagator: p,
		timeout:    timeout,
		log:        log,
		shards:     make([]chan job, shardCount),
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "entitlement",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnw("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
	for i := range d.shards {
		d.shards[i] = make(chan job, queueSize)
		d.wg.Add(1)
		go d.run(d.shards[i])
	}
	return d
}

// Notify queues u and returns immediately. Failures are logged, never returned
// to the caller.
func (d *Dispatcher) Notify(ctx context.Context, u Update) {
	lg := logctx.FromCtx(ctx, d.log).With("entitlement_user_id", u.UserID, "subscribed", u.Subscribed)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		lg.Errorw("entitlement update dropped", "err", ErrDispatcherClosed)
		metrics.ObserveEntitlementError()
		return
	}
	select {
	case d.shards[shardOf(u.UserID)] <- job{update: u, log: lg}:
	default:
		lg.Errorw("entitlement update dropped, queue full")
		metrics.ObserveEntitlementError()
	}
}

func (d *Dispatcher) run(queue <-chan job) {
	defer d.wg.Done()
	for j := range queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	_, err := d.breaker.Execute(func() (any, error) {
		return nil, d.propagator.Propagate(ctx, j.update)
	})
	if err != nil {
		j.log.Errorw("failed to propagate entitlement", "err", err)
		metrics.ObserveEntitlementError()
	}
}

// Close stops accepting updates and waits for queued ones, up to ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.shards {
			close(q)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shardOf(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % shardCount)
}
