package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runview/internal/testutil"
)

func newTestScheduler(clock *testutil.ManualClock) *Scheduler {
	return New(
		WithClock(clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// blockingTask blocks its first invocation until release is closed.
type blockingTask struct {
	calls   atomic.Int32
	release chan struct{}
}

func newBlockingTask() *blockingTask {
	return &blockingTask{release: make(chan struct{})}
}

func (b *blockingTask) Run(ctx context.Context) error {
	if b.calls.Add(1) == 1 {
		<-b.release
	}
	return nil
}

// startBlocked runs name in the background and waits until it is in flight.
func startBlocked(t *testing.T, s *Scheduler, name string) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), name)
	}()
	require.Eventually(t, s.IsRunning, time.Second, time.Millisecond, "task should be in flight")
	return done
}

func TestRun_UnknownTask(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())

	err := s.Run(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, IsUnknownTask(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register("update", noop))
	err := s.Register("update", noop)

	require.Error(t, err)
	assert.False(t, IsUnknownTask(err))
}

func TestRun_Debounce(t *testing.T) {
	clock := testutil.NewManualClock()
	s := newTestScheduler(clock)

	var calls atomic.Int32
	require.NoError(t, s.Register("refresh", func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "refresh"))
	require.NoError(t, s.Run(ctx, "refresh"))
	clock.Advance(199 * time.Millisecond)
	require.NoError(t, s.Run(ctx, "refresh"))
	assert.Equal(t, int32(1), calls.Load(), "calls within 200ms of completion are debounced")

	clock.Advance(time.Millisecond)
	require.NoError(t, s.Run(ctx, "refresh"))
	assert.Equal(t, int32(2), calls.Load(), "a call at the window edge runs")
}

func TestRun_DebounceIsPerTask(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())

	var a, b atomic.Int32
	require.NoError(t, s.Register("a", func(context.Context) error { a.Add(1); return nil }))
	require.NoError(t, s.Register("b", func(context.Context) error { b.Add(1); return nil }))

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "a"))
	require.NoError(t, s.Run(ctx, "b"))

	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestRun_QueuesWhileInFlight(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	task := newBlockingTask()
	require.NoError(t, s.Register("refresh", task.Run))

	done := startBlocked(t, s, "refresh")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Run(ctx, "refresh"), "queued calls resolve without waiting")
	}
	assert.Equal(t, []string{"refresh"}, s.Queued(), "the queue holds one entry per name")
	assert.Equal(t, int32(1), task.calls.Load())

	close(task.release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), task.calls.Load(), "the queued call runs after the first finishes")
	assert.Empty(t, s.Queued())
	assert.False(t, s.IsRunning())
}

func TestRun_SingleFlightIsGlobal(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	update := newBlockingTask()
	require.NoError(t, s.Register("update", update.Run))

	var mu sync.Mutex
	var order []string
	require.NoError(t, s.Register("reset", func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "reset")
		return nil
	}))

	done := startBlocked(t, s, "update")

	require.NoError(t, s.Run(context.Background(), "reset"))
	mu.Lock()
	assert.Empty(t, order, "reset waits for any in-flight task, not only its own name")
	mu.Unlock()

	close(update.release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reset"}, order)
}

func TestRun_QueueIsOrderedSet(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	first := newBlockingTask()
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register("first", first.Run))
	require.NoError(t, s.Register("b", noop))
	require.NoError(t, s.Register("c", noop))

	done := startBlocked(t, s, "first")

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "b"))
	require.NoError(t, s.Run(ctx, "c"))
	require.NoError(t, s.Run(ctx, "b"))

	assert.Equal(t, []string{"b", "c"}, s.Queued())

	close(first.release)
	require.NoError(t, <-done)
	assert.Empty(t, s.Queued())
}

func TestRun_ReturnsTaskError(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	boom := errors.New("producer failed")
	require.NoError(t, s.Register("update", func(context.Context) error { return boom }))

	err := s.Run(context.Background(), "update")

	assert.ErrorIs(t, err, boom)
	assert.False(t, s.IsRunning(), "a failed task still clears the in-flight flag")
}

func TestRun_FollowUpErrorIsNotReturned(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	first := newBlockingTask()
	require.NoError(t, s.Register("first", first.Run))
	require.NoError(t, s.Register("failing", func(context.Context) error {
		return errors.New("follow-up failed")
	}))

	done := startBlocked(t, s, "first")
	require.NoError(t, s.Run(context.Background(), "failing"))

	close(first.release)
	assert.NoError(t, <-done, "the starter only sees its own task's error")
}

func TestPause_QueuesUntilResume(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())

	var calls atomic.Int32
	require.NoError(t, s.Register("update", func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	s.Pause()
	assert.True(t, s.IsPaused())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Run(ctx, "update"))
	}
	assert.Equal(t, int32(0), calls.Load(), "all calls are queued while paused")
	assert.Equal(t, []string{"update"}, s.Queued())

	s.Resume(ctx)

	assert.False(t, s.IsPaused())
	assert.Equal(t, int32(1), calls.Load(), "the queue is flushed on resume")
	assert.Empty(t, s.Queued())
}

func TestForceRunQueued_WhilePaused(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())

	var partial, full atomic.Int32
	require.NoError(t, s.Register("partialUpdate", func(context.Context) error { partial.Add(1); return nil }))
	require.NoError(t, s.Register("fullUpdate", func(context.Context) error { full.Add(1); return nil }))

	s.Pause()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Run(ctx, "partialUpdate"))
		require.NoError(t, s.Run(ctx, "fullUpdate"))
	}
	assert.Equal(t, int32(0), partial.Load())
	assert.Equal(t, int32(0), full.Load())

	require.NoError(t, s.ForceRunQueued(ctx))

	assert.Equal(t, int32(1), partial.Load())
	assert.Equal(t, int32(1), full.Load())
	assert.True(t, s.IsPaused(), "forcing the queue does not unpause")
}

func TestForceRunQueued_JoinsErrors(t *testing.T) {
	s := newTestScheduler(testutil.NewManualClock())
	boom := errors.New("boom")
	require.NoError(t, s.Register("update", func(context.Context) error { return boom }))

	s.Pause()
	require.NoError(t, s.Run(context.Background(), "update"))

	err := s.ForceRunQueued(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPendingQueue(t *testing.T) {
	var q pendingQueue

	assert.True(t, q.Enqueue("a"))
	assert.True(t, q.Enqueue("b"))
	assert.False(t, q.Enqueue("a"))
	assert.Equal(t, 2, q.Len())

	name, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "a", name)

	name, ok = q.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "b", name)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
	assert.True(t, q.Enqueue("a"), "a dequeued name may be queued again")
}
