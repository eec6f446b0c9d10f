package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/pkg/distlock"
	"github.com/ignite/square-listmonk-sync/internal/pkg/logger"
)

// releaseTimeout bounds lock release after a run, which happens on a
// context that is not tied to the scheduler's lifetime.
const releaseTimeout = 10 * time.Second

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// Scheduler fires a run immediately and then every interval. Runs execute on
// their own goroutine so the timer keeps ticking; a tick that finds the run
// lock held is dropped rather than queued.
type Scheduler struct {
	runner   Runner
	lock     distlock.DistLock
	interval time.Duration

	mu      sync.RWMutex
	last    *domain.RunReport
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	runs    sync.WaitGroup
	skipped atomic.Int64
}

// NewScheduler creates a scheduler. A nil lock means an in-process guard.
func NewScheduler(runner Runner, lock distlock.DistLock, interval time.Duration) *Scheduler {
	if lock == nil {
		lock = distlock.NewLocalLock()
	}
	return &Scheduler{
		runner:   runner,
		lock:     lock,
		interval: interval,
	}
}

// Start begins the tick loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.ctx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})

	logger.Info("Starting sync scheduler", "interval", s.interval)
	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for any in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.runs.Wait()
	logger.Info("Sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.launch(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		n := s.skipped.Add(1)
		logger.Warn("Previous sync still running, skipping tick", "skipped_total", n)
	default:
		logger.Error("Failed to start sync", "error", err)
	}
}

// TriggerNow starts a run outside the regular schedule. It returns
// ErrRunInProgress when a run is already going and ErrStopped when the
// scheduler is not running.
func (s *Scheduler) TriggerNow() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrStopped
	}
	return s.launch(s.ctx)
}

func (s *Scheduler) launch(ctx context.Context) error {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRunInProgress
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.release()

		hbCtx, stopHeartbeat := context.WithCancel(ctx)
		hbDone := s.heartbeat(hbCtx)
		s.execute(ctx)
		stopHeartbeat()
		<-hbDone
	}()
	return nil
}

// heartbeat keeps an expiring lock alive while a run is executing. It
// refreshes at a third of the TTL until ctx is cancelled.
func (s *Scheduler) heartbeat(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ext, ok := s.lock.(distlock.Extender)
	if !ok || ext.TTL()/3 <= 0 {
		close(done)
		return done
	}

	ttl := ext.TTL()
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ext.Extend(ctx, ttl); err != nil && ctx.Err() == nil {
					logger.Warn("Failed to extend sync lock", "error", err)
				}
			}
		}
	}()
	return done
}

func (s *Scheduler) release() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(ctx); err != nil {
		logger.Error("Failed to release sync lock", "error", err)
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	report, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if err != nil {
		logger.Error("Failed to sync!", "run_id", report.RunID, "error", err)
		return
	}
	logger.Info("Sync complete.",
		"run_id", report.RunID,
		"duration", report.Duration().Round(time.Millisecond),
		"subscribed", report.Uploaded[domain.ModeSubscribe],
		"blocklisted", report.Uploaded[domain.ModeBlocklist])
}

// LastReport returns the most recent finished run, if any.
func (s *Scheduler) LastReport() (domain.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.RunReport{}, false
	}
	return *s.last, true
}

// SkippedTicks returns how many ticks were dropped because a run was active.
func (s *Scheduler) SkippedTicks() int64 {
	return s.skipped.Load()
}
