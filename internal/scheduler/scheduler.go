package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the window after a completion during which the same
// task is not run again.
const DefaultDebounce = 200 * time.Millisecond

// Task is one named unit of work. It always runs to completion.
type Task func(ctx context.Context) error

// Clock supplies wall-clock time for debounce decisions.
// Implemented by systemClock (production) and testutil.ManualClock (tests).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Scheduler serializes named tasks.
//
// State machine: Idle -> Running -> (Idle | Running next queued).
//
// Thread-safety: all methods are safe for concurrent use. Tasks themselves
// run on the goroutine of the caller that started them, outside the lock.
type Scheduler struct {
	mu            sync.Mutex
	tasks         map[string]Task
	lastCompleted map[string]time.Time
	queue         pendingQueue
	inFlight      bool
	paused        bool

	debounce time.Duration
	clock    Clock
	logger   *slog.Logger
}

// Option allows configuration of scheduler parameters.
type Option func(*Scheduler)

// WithDebounce sets the debounce window. Zero disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		s.debounce = d
	}
}

// WithClock sets the clock used for debounce decisions.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the logger used for follow-up task failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates an idle, unpaused scheduler with no tasks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:         make(map[string]Task),
		lastCompleted: make(map[string]time.Time),
		debounce:      DefaultDebounce,
		clock:         systemClock{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a named task. Registering a name twice is an error.
func (s *Scheduler) Register(name string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[name]; ok {
		return &TaskError{Code: ErrCodeDuplicateTask, Name: name}
	}
	s.tasks[name] = task
	return nil
}

// Run executes the named task under the single-flight rules.
//
//   - Unregistered name: returns an UNKNOWN_TASK TaskError.
//   - Completed within the debounce window: returns nil without running.
//   - Another task in flight, or scheduler paused: queues the name and
//     returns nil without waiting for it to execute.
//   - Otherwise: runs the task, then drains the queue oldest first, and
//     returns the task's own error.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return newUnknownTaskError(name)
	}

	if s.completedRecently(name) {
		s.mu.Unlock()
		s.logger.Debug("task debounced", "task", name)
		return nil
	}

	if s.inFlight || s.paused {
		if s.queue.Enqueue(name) {
			s.logger.Debug("task queued", "task", name, "paused", s.paused, "pending", s.queue.Len())
		}
		s.mu.Unlock()
		return nil
	}

	s.inFlight = true
	s.mu.Unlock()

	err := s.invoke(ctx, name, task)
	s.drain(ctx, false)
	return err
}

// Pause sends every subsequent Run to the queue until Resume is called.
// A task already in flight is unaffected.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume lifts a pause and runs whatever was queued meanwhile.
// Errors from those runs are logged.
func (s *Scheduler) Resume(ctx context.Context) {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()

	s.drain(ctx, false)
}

// ForceRunQueued runs every queued task now, even while paused.
// Returns the joined errors of the tasks it ran.
// If a task is already in flight, the queue is left for it to drain.
func (s *Scheduler) ForceRunQueued(ctx context.Context) error {
	return s.drain(ctx, true)
}

// IsPaused reports whether the scheduler is paused.
func (s *Scheduler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// IsRunning reports whether a task is currently in flight.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Queued returns the waiting task names, oldest first.
func (s *Scheduler) Queued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Names()
}

// completedRecently must be called with s.mu held.
func (s *Scheduler) completedRecently(name string) bool {
	if s.debounce <= 0 {
		return false
	}
	last, ok := s.lastCompleted[name]
	if !ok {
		return false
	}
	return s.clock.Now().Sub(last) < s.debounce
}

// invoke runs a task the caller has already marked in flight, then records
// its completion and clears the in-flight flag.
func (s *Scheduler) invoke(ctx context.Context, name string, task Task) error {
	started := s.clock.Now()
	err := task(ctx)

	s.mu.Lock()
	s.lastCompleted[name] = s.clock.Now()
	s.inFlight = false
	s.mu.Unlock()

	s.logger.Debug("task completed", "task", name, "duration", s.clock.Now().Sub(started), "error", err)
	return err
}

// drain runs queued tasks oldest first until the queue is empty, another
// task takes the flight slot, or (unless force) the scheduler is paused.
//
// Queued names were admitted past the debounce check when they were queued,
// so they are not debounced again here.
func (s *Scheduler) drain(ctx context.Context, force bool) error {
	var errs []error
	for {
		s.mu.Lock()
		if s.inFlight || (s.paused && !force) {
			s.mu.Unlock()
			return errors.Join(errs...)
		}
		name, ok := s.queue.TryDequeue()
		if !ok {
			s.mu.Unlock()
			return errors.Join(errs...)
		}
		task := s.tasks[name]
		s.inFlight = true
		s.mu.Unlock()

		if err := s.invoke(ctx, name, task); err != nil {
			if !force {
				s.logger.Warn("queued task failed", "task", name, "error", err)
			}
			errs = append(errs, err)
		}
	}
}
