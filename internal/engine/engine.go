package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/runview/internal/producer"
	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/runs"
	"github.com/roach88/runview/internal/scheduler"
	"github.com/roach88/runview/internal/schema"
	"github.com/roach88/runview/internal/selection"
	"github.com/roach88/runview/internal/slots"
	"github.com/roach88/runview/internal/store"
)

// Task names registered on the scheduler.
const (
	TaskUpdate = "update"
	TaskReset  = "reset"
)

// Engine owns the live view.
//
// Thread-safety model:
//   - Snapshot(): lock-free, safe from any goroutine
//   - Refresh(), Reset(), Watch(): safe from any goroutine; the scheduler
//     serializes the tasks they start
//   - Mutations: safe from any goroutine, serialized by the engine lock
//
// INVARIANTS:
//   - Only the pass in flight or a mutation holding mu touches the
//     selection model, filter registry, sort list or allocator
//   - A published Snapshot is never modified
type Engine struct {
	producer producer.Producer
	sched    *scheduler.Scheduler
	store    *store.Store
	clock    *Clock
	ids      IDGenerator
	wall     scheduler.Clock
	logger   *slog.Logger

	debounce time.Duration
	palette  slots.Palette

	mu        sync.Mutex
	selection *selection.Model
	filters   *query.Filters
	sorts     []query.SortDefinition
	allocator *slots.Allocator
	pass      pass

	current atomic.Pointer[Snapshot]

	subMu    sync.Mutex
	subs     map[int]chan *Snapshot
	nextSub  int
	lastSent int64
}

// pass is the payload-derived part of the view, replaced by each update.
type pass struct {
	id           string
	at           time.Time
	coll         *runs.Collection
	schema       *schema.Schema
	changes      []string
	files        []string
	filesChanged bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStore journals every committed pass to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithDebounce sets the scheduler debounce window.
//
// Default: scheduler.DefaultDebounce (200ms).
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithClock sets the wall clock used for debounce and pass timing.
func WithClock(c scheduler.Clock) Option {
	return func(e *Engine) {
		e.wall = c
	}
}

// WithSeqClock sets the logical clock. Use NewClockAt with the journal's
// last seq to continue numbering after a restart.
func WithSeqClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPalette sets the slot palette. Empty means slots.DefaultPalette.
func WithPalette(p slots.Palette) Option {
	return func(e *Engine) {
		e.palette = p
	}
}

// WithIDGenerator sets the generator for update-pass ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithFilters installs initial filters. Invalid definitions are dropped
// with a warning.
func WithFilters(defs ...query.FilterDefinition) Option {
	return func(e *Engine) {
		for _, def := range defs {
			if err := def.Validate(); err != nil {
				e.logger.Warn("dropping invalid filter", "filter", def.String(), "error", err)
				continue
			}
			e.filters.Add(def)
		}
	}
}

// WithSort installs the initial sort keys.
func WithSort(defs ...query.SortDefinition) Option {
	return func(e *Engine) {
		e.sorts = slices.Clone(defs)
	}
}

// New creates an engine reading payloads from p.
//
// The initial Snapshot is empty with Seq equal to the logical clock's
// current value. Nothing runs until Refresh or Watch is called.
func New(p producer.Producer, opts ...Option) *Engine {
	e := &Engine{
		producer:  p,
		clock:     NewClock(),
		ids:       UUIDv7Generator{},
		wall:      wallClock{},
		logger:    slog.Default(),
		debounce:  scheduler.DefaultDebounce,
		selection: selection.New(),
		filters:   query.NewFilters(),
		subs:      make(map[int]chan *Snapshot),
		pass: pass{
			coll:   runs.Collect(nil),
			schema: schema.New(),
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.allocator = slots.NewAllocator(e.palette)
	e.palette = e.allocator.Palette()
	e.sched = scheduler.New(
		scheduler.WithDebounce(e.debounce),
		scheduler.WithClock(e.wall),
		scheduler.WithLogger(e.logger),
	)
	mustRegister(e.sched, TaskUpdate, e.update)
	mustRegister(e.sched, TaskReset, e.reset)

	e.current.Store(e.build(e.clock.Current()))
	return e
}

func mustRegister(s *scheduler.Scheduler, name string, task scheduler.Task) {
	if err := s.Register(name, task); err != nil {
		panic(err)
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Snapshot returns the last committed view.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Palette returns the slot palette in use.
func (e *Engine) Palette() slots.Palette {
	return e.palette.Clone()
}

// Scheduler exposes the task scheduler, for pausing and inspection.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

// Refresh runs an update pass through the scheduler.
//
// Returns nil without waiting when the pass was debounced or queued behind
// another task. A producer failure is returned as a PRODUCER_FAILURE
// EngineError and leaves the current Snapshot in place.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.sched.Run(ctx, TaskUpdate)
}

// Reset frees every slot and reassigns them over the current runs.
func (e *Engine) Reset(ctx context.Context) error {
	return e.sched.Run(ctx, TaskReset)
}

// Watch calls Refresh for each change event until ctx is done or events is
// closed. Refresh errors are logged and do not stop the watch.
func (e *Engine) Watch(ctx context.Context, events <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-events:
			if !ok {
				return nil
			}
			e.logger.Debug("change detected", "path", path)
			if err := e.Refresh(ctx); err != nil {
				e.logger.Warn("refresh failed", "path", path, "error", err)
			}
		}
	}
}

// Subscribe returns a channel receiving every snapshot published from now
// on. A slow reader only misses intermediate snapshots: the channel always
// ends up holding the newest one. Call cancel to stop delivery; it closes
// the channel.
func (e *Engine) Subscribe() (<-chan *Snapshot, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan *Snapshot, 1)
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			delete(e.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// update is the TaskUpdate body.
func (e *Engine) update(ctx context.Context) error {
	id := e.ids.Generate()
	started := e.wall.Now()

	payload, err := e.producer.Produce(ctx)
	if err != nil {
		perr := NewProducerError(id, err)
		e.journal(ctx, store.UpdateRecord{
			ID:        id,
			Seq:       e.clock.Next(),
			Task:      TaskUpdate,
			StartedAt: started,
			Duration:  e.wall.Now().Sub(started),
			Error:     perr.Error(),
		}, nil)
		return perr
	}

	coll := runs.Collect(payload)
	sch := schema.Collect(payload)
	changes := schema.Changes(payload)
	files := schema.Files(payload)

	e.mu.Lock()
	e.pass = pass{
		id:           id,
		at:           started,
		coll:         coll,
		schema:       sch,
		changes:      changes,
		files:        files,
		filesChanged: !schema.SameFiles(e.pass.files, files),
	}
	e.selection.Sync(sch.Descriptors())
	e.allocator.Reconcile(runs.ByPriority(coll.TopLevel()), coll.CheckpointsByTip)
	snap := e.publishLocked()
	e.mu.Unlock()

	e.commit(ctx, snap, TaskUpdate, started)
	e.logger.Info("update committed",
		"update_id", id,
		"seq", snap.Seq,
		"runs", coll.Len(),
		"fields", len(snap.Descriptors),
		"files_changed", snap.FilesChanged,
	)
	return nil
}

// reset is the TaskReset body.
func (e *Engine) reset(ctx context.Context) error {
	id := e.ids.Generate()
	started := e.wall.Now()

	e.mu.Lock()
	e.pass.id = id
	e.pass.at = started
	e.allocator.Reset()
	e.allocator.Reconcile(runs.ByPriority(e.pass.coll.TopLevel()), e.pass.coll.CheckpointsByTip)
	snap := e.publishLocked()
	e.mu.Unlock()

	e.commit(ctx, snap, TaskReset, started)
	e.logger.Info("slots reset", "update_id", id, "seq", snap.Seq, "plotted", snap.Assignment.Assigned())
	return nil
}

// publishLocked builds a snapshot from the current state and makes it
// current. Must be called with e.mu held.
func (e *Engine) publishLocked() *Snapshot {
	s := e.build(e.clock.Next())
	e.current.Store(s)
	return s
}

// build assembles a snapshot without publishing it. Must be called with
// e.mu held, or before the engine is shared.
func (e *Engine) build(seq int64) *Snapshot {
	p := e.pass
	filters := e.filters.List()
	sorts := slices.Clone(e.sorts)

	return &Snapshot{
		Seq:            seq,
		UpdateID:       p.id,
		UpdatedAt:      p.at,
		Runs:           p.coll,
		Descriptors:    p.schema.Descriptors(),
		Statuses:       e.selection.Statuses(),
		SelectedLeaves: e.selection.SelectedLeaves(),
		Assignment:     e.allocator.Assignment(),
		Available:      e.allocator.Available(),
		Filters:        filters,
		Sorts:          sorts,
		Rows:           runs.Rows(p.coll, filters, sorts),
		Changes:        slices.Clone(p.changes),
		Files:          slices.Clone(p.files),
		FilesChanged:   p.filesChanged,
	}
}

// commit journals a task's snapshot and notifies subscribers.
func (e *Engine) commit(ctx context.Context, snap *Snapshot, task string, started time.Time) {
	e.journal(ctx, store.UpdateRecord{
		ID:         snap.UpdateID,
		Seq:        snap.Seq,
		Task:       task,
		StartedAt:  started,
		Duration:   e.wall.Now().Sub(started),
		RunCount:   snap.Runs.Len(),
		FieldCount: len(snap.Descriptors),
		Files:      snap.Files,
	}, runRecords(snap))
	e.notify(snap)
}

// notify delivers snap to every subscriber, replacing any snapshot a reader
// has not taken yet. Snapshots older than one already sent are dropped.
func (e *Engine) notify(snap *Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if snap.Seq <= e.lastSent {
		return
	}
	e.lastSent = snap.Seq

	for _, ch := range e.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
