package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runview/internal/model"
	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/runs"
	"github.com/roach88/runview/internal/selection"
	"github.com/roach88/runview/internal/slots"
	"github.com/roach88/runview/internal/store"
	"github.com/roach88/runview/internal/testutil"
)

var (
	mainSha = testutil.Sha(1)
	expA    = testutil.Sha(0xa)
	expACp1 = testutil.Sha(0xa1)
	expACp2 = testutil.Sha(0xa2)
	expB    = testutil.Sha(0xb)
	queued  = testutil.Sha(0xe0)
)

const epochsPath = "params/params.yaml/epochs"

func params(kv ...any) model.Tree {
	return testutil.File("params.yaml", testutil.Values(kv...))
}

// viewPayload has a workspace, one branch and two experiments. The first
// experiment is running and has two checkpoints; the second carries a
// timestamp.
func viewPayload() *model.Payload {
	return testutil.NewPayload(model.Fields{Params: params("epochs", 1.0)}).
		Branch(mainSha,
			testutil.Record(model.Fields{Name: "main", Params: params("epochs", 2.0)}),
			testutil.Run(expACp2, model.Fields{CheckpointTip: expA, Params: params("epochs", 3.0)}),
			testutil.Run(expA, model.Fields{Name: "exp-a", CheckpointTip: expA, Running: true, Params: params("epochs", 3.0)}),
			testutil.Run(expACp1, model.Fields{CheckpointTip: expA, Params: params("epochs", 1.0)}),
			testutil.Run(expB, model.Fields{Timestamp: "2021-01-14T10:57:59", Params: params("epochs", 9.0)}),
		).
		Build()
}

// stubProducer hands out payloads in order, repeating the last one, and
// fails while err is set.
type stubProducer struct {
	mu       sync.Mutex
	payloads []*model.Payload
	err      error
	calls    int
}

func newStubProducer(payloads ...*model.Payload) *stubProducer {
	return &stubProducer{payloads: payloads}
}

func (p *stubProducer) Produce(ctx context.Context) (*model.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	next := p.payloads[0]
	if len(p.payloads) > 1 {
		p.payloads = p.payloads[1:]
	}
	return next, nil
}

func (p *stubProducer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProducer) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T, p *stubProducer, opts ...Option) (*Engine, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock()
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequenceIDGenerator("update")),
	}
	return New(p, append(base, opts...)...), clock
}

func refresh(t *testing.T, e *Engine) *Snapshot {
	t.Helper()
	require.NoError(t, e.Refresh(context.Background()))
	return e.Snapshot()
}

func rowIDs(rows []runs.Row) []string {
	var out []string
	runs.Flatten(rows, func(run model.Run, _ int) {
		out = append(out, run.ID)
	})
	return out
}

func TestEngine_InitialSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))

	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, int64(0), snap.Seq)
	assert.Empty(t, snap.UpdateID)
	assert.Empty(t, snap.Rows)
	assert.Empty(t, snap.Descriptors)
	assert.Zero(t, snap.Runs.Len())
	assert.Equal(t, slots.DefaultPalette, e.Palette())
}

func TestEngine_Refresh_CommitsSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))

	snap := refresh(t, e)

	assert.Equal(t, int64(1), snap.Seq)
	assert.Equal(t, "update-1", snap.UpdateID)
	assert.Equal(t, testutil.Epoch, snap.UpdatedAt)
	assert.Equal(t, 6, snap.Runs.Len())

	require.Len(t, snap.Descriptors, 2)
	assert.Equal(t, "params/params.yaml", snap.Descriptors[0].Path)
	assert.Equal(t, epochsPath, snap.Descriptors[1].Path)
	assert.Equal(t, []string{epochsPath}, snap.SelectedLeaves)
	assert.Equal(t, selection.Selected, snap.Statuses["params/params.yaml"])

	assert.Equal(t,
		[]string{model.WorkspaceID, mainSha, expA, expACp2, expACp1, expB},
		rowIDs(snap.Rows))

	assert.Equal(t, []string{epochsPath}, snap.Changes)
	assert.Equal(t, []string{"params/params.yaml"}, snap.Files)
	assert.True(t, snap.FilesChanged, "first pass reports its files as changed")
}

func TestEngine_Refresh_SlotPriority(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	palette := e.Palette()

	snap := refresh(t, e)

	// Running first, then newest timestamp, then discovery order.
	assert.Equal(t, palette[0], snap.Slot(expA))
	assert.Equal(t, palette[1], snap.Slot(expB))
	assert.Equal(t, palette[2], snap.Slot(model.WorkspaceID))
	assert.Equal(t, palette[3], snap.Slot(mainSha))
	assert.Equal(t, slots.Unassigned, snap.Slot(expACp1), "checkpoints never draw a new slot")
	assert.Equal(t, []string{expA, expB, model.WorkspaceID, mainSha}, snap.Plotted(palette))
	assert.Equal(t, []slots.Slot(palette[4:]), snap.Available)
}

func TestEngine_Refresh_Debounced(t *testing.T) {
	p := newStubProducer(viewPayload())
	e, clock := newTestEngine(t, p)

	first := refresh(t, e)
	second := refresh(t, e)
	assert.Equal(t, 1, p.Calls(), "second refresh inside the window is debounced")
	assert.Same(t, first, second)

	clock.Advance(time.Second)
	third := refresh(t, e)
	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, int64(2), third.Seq)
	assert.False(t, third.FilesChanged, "same file list as the previous pass")
}

func TestEngine_Refresh_ProducerFailure(t *testing.T) {
	p := newStubProducer(viewPayload())
	e, clock := newTestEngine(t, p)
	before := refresh(t, e)

	p.Fail(errors.New("exp show exited 255"))
	clock.Advance(time.Second)
	err := e.Refresh(context.Background())

	require.Error(t, err)
	assert.True(t, IsProducerFailure(err))
	assert.Contains(t, err.Error(), "update-2")
	assert.Same(t, before, e.Snapshot(), "failed pass keeps the committed snapshot")
}

func TestEngine_Refresh_NewRunsKeepSlots(t *testing.T) {
	next := testutil.NewPayload(model.Fields{Params: params("epochs", 1.0)}).
		Branch(mainSha,
			testutil.Record(model.Fields{Name: "main", Params: params("epochs", 2.0)}),
			testutil.Run(expB, model.Fields{Params: params("epochs", 9.0)}),
			testutil.Run(queued, model.Fields{Queued: true, Params: params("epochs", 4.0)}),
		).
		Build()
	p := newStubProducer(viewPayload(), next)
	e, clock := newTestEngine(t, p)
	palette := e.Palette()

	refresh(t, e)
	clock.Advance(time.Second)
	snap := refresh(t, e)

	assert.Equal(t, palette[1], snap.Slot(expB), "surviving run keeps its slot")
	_, held := snap.Assignment[expA]
	assert.False(t, held, "dropped run is forgotten")
	_, held = snap.Assignment[queued]
	assert.False(t, held, "queued runs are not assigned")
	assert.Equal(t, palette[0], snap.Available[0], "reclaimed slot is handed out first")
}

func TestEngine_ToggleField(t *testing.T) {
	p := newStubProducer(viewPayload())
	e, clock := newTestEngine(t, p)
	refresh(t, e)

	status, err := e.ToggleField("params/params.yaml")
	require.NoError(t, err)
	assert.Equal(t, selection.Unselected, status)

	snap := e.Snapshot()
	assert.Equal(t, int64(2), snap.Seq)
	assert.Empty(t, snap.SelectedLeaves)
	assert.Equal(t, selection.Unselected, snap.Statuses[epochsPath])

	clock.Advance(time.Second)
	snap = refresh(t, e)
	assert.Empty(t, snap.SelectedLeaves, "selection survives an update")

	_, err = e.ToggleField("params/params.yaml/missing")
	assert.ErrorIs(t, err, selection.ErrUnknownPath)
}

func TestEngine_FieldChildren(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	refresh(t, e)

	top := e.FieldChildren("params")
	require.Len(t, top, 1)
	assert.Equal(t, "params/params.yaml", top[0].Path)
	assert.True(t, top[0].HasChildren)

	leaves := e.FieldChildren("params/params.yaml")
	require.Len(t, leaves, 1)
	assert.Equal(t, "epochs", leaves[0].Name)
}

func TestEngine_Filters(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	refresh(t, e)

	def := query.FilterDefinition{Path: epochsPath, Operator: query.GreaterThan, Value: "5"}
	added, err := e.AddFilter(def)
	require.NoError(t, err)
	assert.True(t, added)

	snap := e.Snapshot()
	assert.Equal(t, []string{model.WorkspaceID, mainSha, expB}, rowIDs(snap.Rows))
	assert.Equal(t, []query.FilterDefinition{def}, snap.Filters)

	added, err = e.AddFilter(def)
	require.NoError(t, err)
	assert.False(t, added, "same filter twice is a no-op")

	_, err = e.AddFilter(query.FilterDefinition{Path: epochsPath, Operator: "~"})
	assert.ErrorIs(t, err, query.ErrUnknownOperator)

	assert.True(t, e.RemoveFilter(def.ID()))
	assert.False(t, e.RemoveFilter(def.ID()))
	assert.Len(t, rowIDs(e.Snapshot().Rows), 6)
}

func TestEngine_SetSort(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	refresh(t, e)

	e.SetSort(query.SortDefinition{Path: epochsPath, Descending: true})
	assert.Equal(t,
		[]string{model.WorkspaceID, mainSha, expB, expA, expACp2, expACp1},
		rowIDs(e.Snapshot().Rows))

	e.SetSort()
	assert.Equal(t,
		[]string{model.WorkspaceID, mainSha, expA, expACp2, expACp1, expB},
		rowIDs(e.Snapshot().Rows))
}

func TestEngine_InitialFiltersAndSort(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()),
		WithFilters(
			query.FilterDefinition{Path: epochsPath, Operator: query.LessThan, Value: "5"},
			query.FilterDefinition{Path: epochsPath, Operator: "bogus", Value: "1"},
		),
		WithSort(query.SortDefinition{Path: epochsPath}),
	)

	snap := refresh(t, e)
	assert.Len(t, snap.Filters, 1, "invalid filter dropped")
	assert.Equal(t, []string{model.WorkspaceID, mainSha, expA, expACp2, expACp1}, rowIDs(snap.Rows))
}

func TestEngine_SelectRuns(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	palette := e.Palette()
	refresh(t, e)

	assignment, err := e.SelectRuns([]string{expB})
	require.NoError(t, err)
	assert.Equal(t, palette[1], assignment[expB])
	assert.Equal(t, []string{expB}, e.Snapshot().Plotted(palette))

	_, err = e.SelectRuns([]string{"nope"})
	assert.True(t, IsUnknownRun(err))
}

func TestEngine_ToggleRun(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	palette := e.Palette()
	refresh(t, e)

	slot, err := e.ToggleRun(expA)
	require.NoError(t, err)
	assert.Equal(t, slots.Unassigned, slot)

	slot, err = e.ToggleRun(expACp1)
	require.NoError(t, err)
	assert.Equal(t, palette[0], slot, "lowest free slot is drawn")

	_, err = e.ToggleRun("nope")
	assert.True(t, IsUnknownRun(err))
}

func TestEngine_ToggleRun_NoFreeSlot(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()), WithPalette(slots.Palette{"#000000"}))
	refresh(t, e)

	_, err := e.ToggleRun(expB)
	assert.ErrorIs(t, err, slots.ErrNoFreeSlot)
}

func TestEngine_Reset(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	palette := e.Palette()
	refresh(t, e)
	_, err := e.SelectRuns([]string{expB})
	require.NoError(t, err)

	require.NoError(t, e.Reset(context.Background()))

	snap := e.Snapshot()
	assert.Equal(t, "update-2", snap.UpdateID)
	assert.Equal(t, []string{expA, expB, model.WorkspaceID, mainSha}, snap.Plotted(palette))
}

func TestEngine_Journal(t *testing.T) {
	s := setupTestStore(t)
	p := newStubProducer(viewPayload())
	e, clock := newTestEngine(t, p, WithStore(s))
	ctx := context.Background()

	refresh(t, e)
	p.Fail(errors.New("exp show exited 255"))
	clock.Advance(time.Second)
	require.Error(t, e.Refresh(ctx))

	updates, err := s.ReadUpdates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	failed, ok := updates[0], updates[1]
	assert.Equal(t, "update-2", failed.ID)
	assert.Contains(t, failed.Error, "PRODUCER_FAILURE")

	assert.Equal(t, "update-1", ok.ID)
	assert.Equal(t, int64(1), ok.Seq)
	assert.Equal(t, TaskUpdate, ok.Task)
	assert.Equal(t, 6, ok.RunCount)
	assert.Equal(t, 2, ok.FieldCount)
	assert.Equal(t, []string{"params/params.yaml"}, ok.Files)
	assert.Empty(t, ok.Error)

	records, err := s.ReadRuns(ctx, "update-1")
	require.NoError(t, err)
	require.Len(t, records, 6)

	kinds := make([]string, len(records))
	parents := make([]string, len(records))
	for i, r := range records {
		kinds[i] = r.Kind
		parents[i] = r.Parent
	}
	assert.Equal(t, []string{
		store.KindWorkspace, store.KindBranch, store.KindExperiment,
		store.KindCheckpoint, store.KindCheckpoint, store.KindExperiment,
	}, kinds)
	assert.Equal(t, []string{"", "", mainSha, expA, expA, mainSha}, parents)
	assert.Equal(t, string(e.Palette()[0]), records[2].Slot)
	assert.True(t, records[2].Running)
}

func TestEngine_ResumesSeq(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, _ := newTestEngine(t, newStubProducer(viewPayload()), WithStore(s))
	refresh(t, first)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)

	second, _ := newTestEngine(t, newStubProducer(viewPayload()),
		WithStore(s),
		WithIDGenerator(NewFixedGenerator("resumed")),
		WithSeqClock(NewClockAt(last)),
	)
	assert.Equal(t, last, second.Snapshot().Seq)

	snap := refresh(t, second)
	assert.Equal(t, last+1, snap.Seq)
}

func TestEngine_Subscribe(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	ch, cancel := e.Subscribe()

	refresh(t, e)
	_, err := e.ToggleField(epochsPath)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, int64(2), snap.Seq, "reader sees the newest snapshot")
	default:
		t.Fatal("no snapshot delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open, "cancel closes the channel")
}

func TestEngine_Watch(t *testing.T) {
	p := newStubProducer(viewPayload())
	e, _ := newTestEngine(t, p)

	events := make(chan string, 3)
	events <- "params.yaml"
	events <- "metrics/summary.json"
	close(events)

	require.NoError(t, e.Watch(context.Background(), events))
	assert.Equal(t, 1, p.Calls(), "burst collapses into one pass")
	assert.Equal(t, int64(1), e.Snapshot().Seq)
}

func TestEngine_Watch_LogsFailures(t *testing.T) {
	p := newStubProducer(viewPayload())
	p.Fail(errors.New("boom"))
	e, _ := newTestEngine(t, p)

	events := make(chan string, 1)
	events <- "params.yaml"
	close(events)

	assert.NoError(t, e.Watch(context.Background(), events))
	assert.Equal(t, 1, p.Calls())
}

func TestEngine_Watch_Cancelled(t *testing.T) {
	e, _ := newTestEngine(t, newStubProducer(viewPayload()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Watch(ctx, make(chan string))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ConcurrentReads(t *testing.T) {
	p := newStubProducer(viewPayload())
	e, clock := newTestEngine(t, p)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := e.Snapshot()
			// A published snapshot is always internally consistent.
			assert.Equal(t, len(snap.Descriptors) == 0, snap.Runs.Len() == 0)
		}
	}()

	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		refresh(t, e)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 20, p.Calls())
}
