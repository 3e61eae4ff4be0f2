// Package scheduler runs the periodic maintenance jobs on cron schedules.
// A job never overlaps with itself inside one process; when a Locker is
// configured it also never overlaps across replicas.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work. Run reports how many records it
// changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// ErrStopped is returned by Register after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Scheduler wraps a cron runner in UTC.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker makes every run take a lock named after the job first.
func WithLocker(l Locker) Option { return func(s *Scheduler) { s.locker = l } }

// WithTimeout bounds a single run. Zero means no bound.
func WithTimeout(d time.Duration) Option { return func(s *Scheduler) { s.timeout = d } }

func New(opts ...Option) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: 30 * time.Minute,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds job on the standard five-field cron spec (or a
// descriptor such as @daily).
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", job.Name(), spec, err)
	}
	log.Printf("scheduler: registered %s at %q (UTC)", job.Name(), spec)
	return nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("scheduler: started with %d job(s)", len(s.cron.Entries()))
}

// Stop prevents new runs, cancels running ones and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		log.Printf("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes job immediately with the same locking and logging as a
// scheduled run. It returns false when the run was skipped or failed.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) bool {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, job.Name(), s.lockTTL())
		if err != nil {
			log.Printf("scheduler: %s: lock error: %v", job.Name(), err)
			return false
		}
		if !ok {
			log.Printf("scheduler: %s: already running elsewhere, skipping", job.Name())
			return false
		}
		defer release()
	}

	start := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		log.Printf("scheduler: %s failed after %s: %v", job.Name(), time.Since(start).Round(time.Millisecond), err)
		return false
	}
	log.Printf("scheduler: %s done in %s, %d record(s)", job.Name(), time.Since(start).Round(time.Millisecond), n)
	return true
}

func (s *Scheduler) lockTTL() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return time.Hour
}
