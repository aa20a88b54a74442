package focus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Megamind2600/TimerAD/internal/core/model"
)

type fakeStore struct {
	mu       sync.Mutex
	task     model.Task
	deltas   []model.TimerDelta
	getErr   error
	applyErr error
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	task := f.task
	return &task, nil
}

func (f *fakeStore) ApplyTimerDelta(_ context.Context, id string, delta model.TimerDelta) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.deltas = append(f.deltas, delta)
	f.task.TimeSpent += delta.TimeSpent
	f.task.DistractionTime += delta.Distraction
	task := f.task
	return &task, nil
}

func (f *fakeStore) appliedDeltas() []model.TimerDelta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TimerDelta(nil), f.deltas...)
}

type fakeHandle struct {
	mu      sync.Mutex
	views   []ViewModel
	closed  bool
	onClose func()
}

func (f *fakeHandle) Render(view ViewModel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
}

func (f *fakeHandle) OnClose(fn func()) {
	f.mu.Lock()
	closed := f.closed
	if !closed {
		f.onClose = fn
	}
	f.mu.Unlock()
	if closed && fn != nil {
		fn()
	}
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	fn := f.onClose
	f.onClose = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// simulateUserClose mimics the user closing the window directly.
func (f *fakeHandle) simulateUserClose() { f.Close() }

func (f *fakeHandle) lastView() (ViewModel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.views) == 0 {
		return ViewModel{}, false
	}
	return f.views[len(f.views)-1], true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSurface struct {
	mu        sync.Mutex
	err       error
	acquired  int
	handles   []*fakeHandle
	onAcquire func()
}

func (f *fakeSurface) Acquire(_ context.Context, _ SizeHint) (SurfaceHandle, error) {
	f.mu.Lock()
	onAcquire := f.onAcquire
	f.mu.Unlock()
	if onAcquire != nil {
		onAcquire()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	handle := &fakeHandle{}
	f.handles = append(f.handles, handle)
	return handle, nil
}

func (f *fakeSurface) lastHandle() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

type fakeSignal struct {
	mu         sync.Mutex
	distracted bool
	onChange   func(bool)
	cancelled  bool
}

func (f *fakeSignal) Distracted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.distracted
}

func (f *fakeSignal) Subscribe(onChange func(bool)) func() {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	}
}

func (f *fakeSignal) flip(distracted bool) {
	f.mu.Lock()
	f.distracted = distracted
	onChange := f.onChange
	f.mu.Unlock()
	if onChange != nil {
		onChange(distracted)
	}
}

// silentClock never pulses so tests drive ticks through processTick.
type silentClock struct {
	mu           sync.Mutex
	unsubscribed bool
}

func (f *silentClock) Subscribe() (<-chan time.Time, func()) {
	ch := make(chan time.Time)
	return ch, func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}
}

func testTask() model.Task {
	return model.Task{
		ID:       "task1",
		Title:    "Write report",
		Priority: model.PriorityMedium,
		Status:   model.TaskStatusPending,
	}
}

func newTestController(t *testing.T, store *fakeStore, surface *fakeSurface, signal *fakeSignal) *Controller {
	t.Helper()
	controller, err := NewController(ControllerConfig{
		Store:   store,
		Surface: surface,
		Clock:   &silentClock{},
		Signal:  signal,
	})
	require.NoError(t, err)
	return controller
}

func drainEvents(events <-chan Event) []Event {
	var got []Event
	for {
		select {
		case event := <-events:
			got = append(got, event)
		default:
			return got
		}
	}
}

func TestControllerStart(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	signal := &fakeSignal{}
	controller := newTestController(t, store, surface, signal)
	events := controller.Subscribe(8)

	err := controller.Start(context.Background(), "task1")
	require.NoError(err)

	assert.Equal(StateActive, controller.State())
	assert.Equal("task1", controller.ActiveTaskID())

	view, ok := surface.lastHandle().lastView()
	require.True(ok)
	assert.Equal("Write report", view.TaskName)
	assert.Equal("00:00:00", view.TimeSpent)
	assert.Equal("00:00:00", view.DistractionTime)
	assert.False(view.Distracted)

	got := drainEvents(events)
	require.Len(got, 1)
	assert.Equal(EventSessionStarted, got[0].Type)
	assert.Equal("task1", got[0].TaskID)
}

func TestControllerStartWhileActive(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	controller := newTestController(t, store, surface, &fakeSignal{})

	require.NoError(controller.Start(context.Background(), "task1"))
	err := controller.Start(context.Background(), "task2")

	assert.ErrorIs(err, model.ErrAlreadyActive)
	assert.Equal("task1", controller.ActiveTaskID())
	assert.Equal(1, surface.acquired)
	assert.False(surface.lastHandle().isClosed())
}

func TestControllerStartFailures(t *testing.T) {
	tests := map[string]struct {
		store   *fakeStore
		surface *fakeSurface
		expErr  error
	}{
		"An unknown task should fail the start and return to idle.": {
			store:   &fakeStore{getErr: model.ErrNotFound},
			surface: &fakeSurface{},
			expErr:  model.ErrNotFound,
		},
		"A failed surface acquisition should fail the start and return to idle.": {
			store:   &fakeStore{task: testTask()},
			surface: &fakeSurface{err: fmt.Errorf("no window: %w", model.ErrSurfaceUnavailable)},
			expErr:  model.ErrSurfaceUnavailable,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			controller := newTestController(t, test.store, test.surface, &fakeSignal{})

			err := controller.Start(context.Background(), "task1")
			require.Error(err)
			assert.ErrorIs(err, test.expErr)
			assert.Equal(StateIdle, controller.State())
			assert.Empty(test.store.appliedDeltas())

			// A failed start must not poison subsequent starts.
			test.store.getErr = nil
			test.store.task = testTask()
			test.surface.err = nil
			require.NoError(controller.Start(context.Background(), "task1"))
			assert.Equal(StateActive, controller.State())
		})
	}
}

func TestControllerTickAttribution(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	signal := &fakeSignal{}
	controller := newTestController(t, store, surface, signal)
	events := controller.Subscribe(32)

	require.NoError(controller.Start(context.Background(), "task1"))
	sess := controller.session
	require.NotNil(sess)

	for i := 0; i < 3; i++ {
		controller.processTick(sess, time.Now())
	}
	signal.flip(true)
	for i := 0; i < 2; i++ {
		controller.processTick(sess, time.Now())
	}

	// Every tick lands in exactly one bucket, never both, never neither.
	deltas := store.appliedDeltas()
	require.Len(deltas, 5)
	for _, delta := range deltas {
		assert.Equal(1, delta.TimeSpent+delta.Distraction)
	}
	assert.Equal(3, store.task.TimeSpent)
	assert.Equal(2, store.task.DistractionTime)

	view, ok := surface.lastHandle().lastView()
	require.True(ok)
	assert.Equal("00:00:03", view.TimeSpent)
	assert.Equal("00:00:02", view.DistractionTime)
	assert.True(view.Distracted)

	var ticks, flips int
	for _, event := range drainEvents(events) {
		switch event.Type {
		case EventTick:
			ticks++
		case EventDistractionChange:
			flips++
		}
	}
	assert.Equal(5, ticks)
	assert.Equal(1, flips)
}

func TestControllerDistractionChangeRestylesImmediately(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	signal := &fakeSignal{}
	controller := newTestController(t, store, surface, signal)

	require.NoError(controller.Start(context.Background(), "task1"))

	signal.flip(true)

	view, ok := surface.lastHandle().lastView()
	require.True(ok)
	assert.True(view.Distracted)
	// Restyle must not touch the store; only ticks write.
	assert.Empty(store.appliedDeltas())

	// Repeating the same value must not rerender.
	renders := len(surface.lastHandle().views)
	controller.handleDistractionChange(true)
	assert.Len(surface.lastHandle().views, renders)
}

func TestControllerDistractionActiveFromSessionStart(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	signal := &fakeSignal{distracted: true}
	controller := newTestController(t, store, surface, signal)

	require.NoError(controller.Start(context.Background(), "task1"))
	controller.processTick(controller.session, time.Now())

	// The signal was already distracted when the session began, so the
	// very first tick lands in the distraction bucket.
	deltas := store.appliedDeltas()
	require.Len(deltas, 1)
	assert.Equal(model.TimerDelta{Distraction: 1}, deltas[0])
}

func TestControllerStop(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	signal := &fakeSignal{}
	clock := &silentClock{}
	controller, err := NewController(ControllerConfig{
		Store:   store,
		Surface: surface,
		Clock:   clock,
		Signal:  signal,
	})
	require.NoError(err)
	events := controller.Subscribe(8)

	require.NoError(controller.Start(context.Background(), "task1"))
	sess := controller.session

	controller.Stop()

	assert.Equal(StateIdle, controller.State())
	assert.Equal("", controller.ActiveTaskID())
	assert.True(surface.lastHandle().isClosed())
	assert.True(clock.unsubscribed)
	assert.True(signal.cancelled)

	// Pulses delivered after the stop must not write the store.
	controller.processTick(sess, time.Now())
	assert.Empty(store.appliedDeltas())

	// Stop is idempotent.
	controller.Stop()

	var stops int
	for _, event := range drainEvents(events) {
		if event.Type == EventSessionStopped {
			stops++
		}
	}
	assert.Equal(1, stops)
}

func TestControllerStopWhileIdleIsNoop(t *testing.T) {
	controller := newTestController(t, &fakeStore{task: testTask()}, &fakeSurface{}, &fakeSignal{})
	controller.Stop()
	assert.Equal(t, StateIdle, controller.State())
}

func TestControllerStopDuringAcquisition(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	controller := newTestController(t, store, surface, &fakeSignal{})

	// Stop arrives while the surface is still being acquired.
	surface.onAcquire = controller.Stop

	err := controller.Start(context.Background(), "task1")
	require.NoError(err)

	assert.Equal(StateIdle, controller.State())
	assert.True(surface.lastHandle().isClosed())
	assert.Empty(store.appliedDeltas())
}

func TestControllerSurfaceClosedByUser(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	controller := newTestController(t, store, surface, &fakeSignal{})
	events := controller.Subscribe(8)

	require.NoError(controller.Start(context.Background(), "task1"))
	sess := controller.session
	controller.processTick(sess, time.Now())

	surface.lastHandle().simulateUserClose()

	assert.Equal(StateIdle, controller.State())

	// Pulses already in flight when the window went away change nothing.
	controller.processTick(sess, time.Now())
	assert.Len(store.appliedDeltas(), 1)

	var stopped bool
	for _, event := range drainEvents(events) {
		if event.Type == EventSessionStopped {
			stopped = true
		}
	}
	assert.True(stopped)

	// A fresh session can start right away.
	store.task = testTask()
	require.NoError(controller.Start(context.Background(), "task1"))
	assert.Equal(StateActive, controller.State())
}

func TestControllerStoreFailureStopsSession(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	surface := &fakeSurface{}
	controller := newTestController(t, store, surface, &fakeSignal{})
	events := controller.Subscribe(8)

	require.NoError(controller.Start(context.Background(), "task1"))
	sess := controller.session

	store.mu.Lock()
	store.applyErr = model.ErrNotFound
	store.mu.Unlock()

	controller.processTick(sess, time.Now())

	assert.Equal(StateIdle, controller.State())
	assert.True(surface.lastHandle().isClosed())

	var gotError bool
	for _, event := range drainEvents(events) {
		if event.Type == EventSessionError {
			gotError = true
			assert.Equal("task1", event.TaskID)
		}
	}
	assert.True(gotError)
}

func TestControllerClose(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := &fakeStore{task: testTask()}
	controller := newTestController(t, store, &fakeSurface{}, &fakeSignal{})
	events := controller.Subscribe(8)

	require.NoError(controller.Start(context.Background(), "task1"))
	controller.Close()

	assert.Equal(StateIdle, controller.State())
	for range events {
	}
	_, open := <-events
	assert.False(open)
}
