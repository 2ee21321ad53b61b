package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/pkg/logging"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

// VisitRecorder counts one visit per successful resolution. Loggers taken
// from ctx are expected to carry the short code already. Record never
// returns an error and never fails the redirect it belongs to.
type VisitRecorder interface {
	Record(ctx context.Context, shortCode string)
}

// SyncVisitRecorder increments inline, bounded by its own timeout and
// detached from the caller's cancellation.
type SyncVisitRecorder struct {
	repo    domain.MappingRepository
	metrics metrics.Registry
	timeout time.Duration
}

func NewSyncVisitRecorder(repo domain.MappingRepository, registry metrics.Registry, timeout time.Duration) *SyncVisitRecorder {
	return &SyncVisitRecorder{repo: repo, metrics: registry, timeout: timeout}
}

func (s *SyncVisitRecorder) Record(ctx context.Context, shortCode string) {
	incrementVisit(context.WithoutCancel(ctx), s.repo, s.metrics, logging.FromContext(ctx), s.timeout, shortCode)
}

type visit struct {
	shortCode string
	logger    *slog.Logger
}

// AsyncVisitRecorder hands visits to a fixed pool of workers through a
// bounded queue. A full queue drops the visit instead of blocking.
type AsyncVisitRecorder struct {
	repo    domain.MappingRepository
	metrics metrics.Registry
	timeout time.Duration
	workers int

	queue chan visit
	group errgroup.Group

	mu      sync.RWMutex
	started bool
	stopped bool
}

func NewAsyncVisitRecorder(repo domain.MappingRepository, registry metrics.Registry, workers, queueSize int, timeout time.Duration) *AsyncVisitRecorder {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &AsyncVisitRecorder{
		repo:    repo,
		metrics: registry,
		timeout: timeout,
		workers: workers,
		queue:   make(chan visit, queueSize),
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (a *AsyncVisitRecorder) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started || a.stopped {
		return
	}
	a.started = true

	for i := 0; i < a.workers; i++ {
		a.group.Go(func() error {
			for v := range a.queue {
				incrementVisit(context.Background(), a.repo, a.metrics, v.logger, a.timeout, v.shortCode)
			}
			return nil
		})
	}
	slog.Info("Visit recorder started", "workers", a.workers, "queue_size", cap(a.queue))
}

func (a *AsyncVisitRecorder) Record(ctx context.Context, shortCode string) {
	logger := logging.FromContext(ctx)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.stopped {
		a.drop(logger, "recorder stopped")
		return
	}

	select {
	case a.queue <- visit{shortCode: shortCode, logger: logger}:
	default:
		a.drop(logger, "queue full")
	}
}

// Stop closes the queue and waits for queued visits to be written, or for
// ctx to expire.
func (a *AsyncVisitRecorder) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	started := a.started
	close(a.queue)
	a.mu.Unlock()

	if !started {
		for v := range a.queue {
			incrementVisit(ctx, a.repo, a.metrics, v.logger, a.timeout, v.shortCode)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- a.group.Wait() }()

	select {
	case err := <-done:
		slog.Info("Visit recorder drained")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *AsyncVisitRecorder) drop(logger *slog.Logger, reason string) {
	a.metrics.IncVisitIncrement(metrics.VisitDropped)
	logger.Warn("Visit dropped", "reason", reason)
}

func incrementVisit(ctx context.Context, repo domain.MappingRepository, registry metrics.Registry, logger *slog.Logger, timeout time.Duration, shortCode string) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := repo.IncrementVisits(ctx, shortCode); err != nil {
		registry.IncVisitIncrement(metrics.VisitFailed)
		// The mapping can be deleted between resolution and increment.
		if errors.Is(err, domain.ErrNotFound) {
			logger.Info("Visit not recorded, mapping gone")
			return
		}
		logger.Warn("Failed to record visit", "error", err)
		return
	}
	registry.IncVisitIncrement(metrics.VisitRecorded)
}
