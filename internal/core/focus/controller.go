package focus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/log"
)

// TaskStore is the slice of the task repository the controller consumes.
// Updates are relative deltas keyed by task id, never full-record writes.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ApplyTimerDelta(ctx context.Context, id string, delta model.TimerDelta) (*model.Task, error)
}

// ControllerConfig is the configuration for the focus timer controller.
type ControllerConfig struct {
	Store   TaskStore
	Surface Surface
	Clock   Clock
	Signal  DistractionSource
	// SizeHint is passed to the surface on acquisition.
	SizeHint SizeHint
	Logger   log.Logger
}

func (c *ControllerConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("task store is required")
	}
	if c.Surface == nil {
		return fmt.Errorf("surface is required")
	}
	if c.Clock == nil {
		c.Clock = NewTickerClock(time.Second)
	}
	if c.Signal == nil {
		c.Signal = neverDistracted{}
	}
	if c.SizeHint == (SizeHint{}) {
		c.SizeHint = SizeHint{Width: 280, Height: 150}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "focus.Controller"})
	return nil
}

// Controller owns the single active timer session. It drives the floating
// display surface, attributes each clock pulse to exactly one of the target
// task's time buckets, and resolves every failure path back to idle so a new
// session can always be attempted.
type Controller struct {
	mu          sync.Mutex
	state       State
	session     *session
	pendingStop bool
	events      []chan Event

	store    TaskStore
	surface  Surface
	clock    Clock
	signal   DistractionSource
	sizeHint SizeHint
	logger   log.Logger
}

// session exists only between a successful start and a stop. At most one
// instance exists process-wide.
type session struct {
	taskID            string
	taskTitle         string
	handle            SurfaceHandle
	distracted        bool
	timeSpent         int
	distractionTime   int
	pulses            <-chan time.Time
	unsubscribeClock  func()
	unsubscribeSignal func()
	stopCh            chan struct{}
}

func (s *session) viewLocked() ViewModel {
	return ViewModel{
		TaskName:        s.taskTitle,
		TimeSpent:       FormatSeconds(s.timeSpent),
		DistractionTime: FormatSeconds(s.distractionTime),
		Distracted:      s.distracted,
	}
}

// NewController creates a focus timer controller in the idle state.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Controller{
		state:    StateIdle,
		store:    cfg.Store,
		surface:  cfg.Surface,
		clock:    cfg.Clock,
		signal:   cfg.Signal,
		sizeHint: cfg.SizeHint,
		logger:   cfg.Logger,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveTaskID returns the task targeted by the running session, or "" when
// no session is active.
func (c *Controller) ActiveTaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.taskID
}

// Subscribe registers a new observer channel.
func (c *Controller) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	c.mu.Lock()
	c.events = append(c.events, ch)
	c.mu.Unlock()
	return ch
}

// Start begins timing the given task. It is only accepted while idle: a
// running or starting session is never cancelled or replaced by Start. The
// call awaits surface acquisition; on acquisition failure the controller
// returns to idle without any partial session.
func (c *Controller) Start(ctx context.Context, taskID string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("cannot start a second timer: %w", model.ErrAlreadyActive)
	}
	c.state = StateAcquiring
	c.pendingStop = false
	c.mu.Unlock()

	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		c.setIdle()
		return fmt.Errorf("could not get task: %w", err)
	}

	handle, err := c.surface.Acquire(ctx, c.sizeHint)
	if err != nil {
		c.setIdle()
		return fmt.Errorf("could not acquire display surface: %w", err)
	}

	c.mu.Lock()
	if c.pendingStop {
		// Stop was requested while acquiring; release the surface and
		// stay idle instead of entering active.
		c.pendingStop = false
		c.state = StateIdle
		c.mu.Unlock()
		handle.Close()
		c.logger.Debugf("session for task %s stopped during acquisition", task.ID)
		return nil
	}

	pulses, unsubscribeClock := c.clock.Subscribe()
	sess := &session{
		taskID:           task.ID,
		taskTitle:        task.Title,
		handle:           handle,
		distracted:       c.signal.Distracted(),
		timeSpent:        task.TimeSpent,
		distractionTime:  task.DistractionTime,
		pulses:           pulses,
		unsubscribeClock: unsubscribeClock,
		stopCh:           make(chan struct{}),
	}
	sess.unsubscribeSignal = c.signal.Subscribe(c.handleDistractionChange)
	c.session = sess
	c.state = StateActive
	view := sess.viewLocked()
	c.mu.Unlock()

	handle.OnClose(func() { c.handleSurfaceClosed(sess) })
	handle.Render(view)
	go c.run(sess)

	c.logger.Infof("focus session started for task %s", task.ID)
	c.emit(Event{
		Type:            EventSessionStarted,
		TaskID:          sess.taskID,
		TaskTitle:       sess.taskTitle,
		TimeSpent:       sess.timeSpent,
		DistractionTime: sess.distractionTime,
		Distracted:      view.Distracted,
		At:              time.Now(),
	})
	return nil
}

// Stop ends the active session: unsubscribes the clock and the distraction
// signal, closes the surface and returns to idle. It is idempotent, a no-op
// while idle, and safe to call from within a surface close callback.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateAcquiring {
		c.pendingStop = true
		c.mu.Unlock()
		return
	}
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return
	}
	c.detachSessionLocked(sess)
	c.mu.Unlock()

	c.finishSession(sess)
}

// Close stops any running session and closes the observer channels.
func (c *Controller) Close() {
	c.Stop()

	c.mu.Lock()
	events := c.events
	c.events = nil
	c.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (c *Controller) run(sess *session) {
	for {
		select {
		case <-sess.stopCh:
			return
		case pulseTime, ok := <-sess.pulses:
			if !ok {
				return
			}
			c.processTick(sess, pulseTime)
		}
	}
}

// processTick attributes exactly one second to one of the task's two time
// buckets, then refreshes the surface. The store write happens before and
// independently of rendering, so a gone surface never loses a tick.
func (c *Controller) processTick(sess *session, pulseTime time.Time) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}

	delta := model.TimerDelta{TimeSpent: 1}
	if sess.distracted {
		delta = model.TimerDelta{Distraction: 1}
	}

	task, err := c.store.ApplyTimerDelta(context.Background(), sess.taskID, delta)
	if err != nil {
		// The task may have been deleted mid-session; stop instead of
		// ticking against a nonexistent record.
		c.detachSessionLocked(sess)
		c.mu.Unlock()
		c.logger.Errorf("could not update task %s, stopping session: %v", sess.taskID, err)
		c.finishSession(sess)
		c.emit(Event{Type: EventSessionError, TaskID: sess.taskID, TaskTitle: sess.taskTitle, Message: err.Error(), At: pulseTime})
		return
	}

	sess.timeSpent = task.TimeSpent
	sess.distractionTime = task.DistractionTime
	handle := sess.handle
	view := sess.viewLocked()
	event := Event{
		Type:            EventTick,
		TaskID:          sess.taskID,
		TaskTitle:       sess.taskTitle,
		TimeSpent:       sess.timeSpent,
		DistractionTime: sess.distractionTime,
		Distracted:      sess.distracted,
		At:              pulseTime,
	}
	c.mu.Unlock()

	handle.Render(view)
	c.emit(event)
}

// handleDistractionChange records the latest signal value and restyles the
// surface right away; distraction feedback is not tied to the tick cadence.
func (c *Controller) handleDistractionChange(distracted bool) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.distracted == distracted {
		c.mu.Unlock()
		return
	}
	sess.distracted = distracted
	handle := sess.handle
	view := sess.viewLocked()
	event := Event{
		Type:            EventDistractionChange,
		TaskID:          sess.taskID,
		TaskTitle:       sess.taskTitle,
		TimeSpent:       sess.timeSpent,
		DistractionTime: sess.distractionTime,
		Distracted:      distracted,
		At:              time.Now(),
	}
	c.mu.Unlock()

	handle.Render(view)
	c.emit(event)
}

// handleSurfaceClosed runs when the surface closes for any reason, including
// the user closing the floating window directly.
func (c *Controller) handleSurfaceClosed(sess *session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	c.detachSessionLocked(sess)
	c.mu.Unlock()

	c.logger.Debugf("surface closed, stopping session for task %s", sess.taskID)
	c.finishSession(sess)
}

// detachSessionLocked removes the session from the controller and cancels
// its subscriptions. Once detached no tick can touch the store: processTick
// re-checks session identity under the same lock.
func (c *Controller) detachSessionLocked(sess *session) {
	sess.unsubscribeClock()
	sess.unsubscribeSignal()
	close(sess.stopCh)
	c.session = nil
	c.state = StateIdle
}

// finishSession releases the surface and notifies observers. Runs unlocked:
// closing the surface may reenter the controller through its close callback.
func (c *Controller) finishSession(sess *session) {
	sess.handle.Close()
	c.logger.Infof("focus session stopped for task %s", sess.taskID)
	c.emit(Event{
		Type:            EventSessionStopped,
		TaskID:          sess.taskID,
		TaskTitle:       sess.taskTitle,
		TimeSpent:       sess.timeSpent,
		DistractionTime: sess.distractionTime,
		At:              time.Now(),
	})
}

func (c *Controller) setIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.pendingStop = false
	c.mu.Unlock()
}

func (c *Controller) emit(event Event) {
	c.mu.Lock()
	events := append([]chan Event(nil), c.events...)
	c.mu.Unlock()

	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}
