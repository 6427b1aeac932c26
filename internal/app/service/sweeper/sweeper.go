package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine expires overdue subscriptions.
type Engine interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically expires active subscriptions whose end date passed.
// It is owned by the hosting process through Start and Stop.
type Sweeper struct {
	engine   Engine
	lease    Lease
	interval time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Sweeper)

// WithLease makes every run acquire lease first. Runs that lose it are skipped.
func WithLease(l Lease) Option {
	return func(s *Sweeper) { s.lease = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func New(engine Engine, interval time.Duration, log *zap.SugaredLogger, opts ...Option) *Sweeper {
	s := &Sweeper{
		engine:   engine,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop in a goroutine until Stop is called or ctx is done.
// Calling Start on a running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.run(ctx)
	s.log.Infow("expiry sweeper started", "interval", s.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Infow("expiry sweeper stopped")
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Errorw("expiry sweep failed", "err", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns the number of expired records.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.lease != nil {
		acquired, err := s.lease.Acquire(ctx)
		switch {
		case err != nil:
			// the sweep is safe to run twice, so a broken lease only costs duplicate work
			s.log.Warnw("sweep lease unavailable, sweeping anyway", "err", err)
		case !acquired:
			s.log.Debugw("sweep lease held by another instance")
			return 0, nil
		}
	}

	now := s.now()
	n, err := s.engine.SweepExpired(ctx, now)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.log.Infow("expired subscriptions", "count", n, "now", now)
	}
	return n, nil
}
