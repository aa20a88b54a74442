package platform

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/log"
)

// VisibilityWatcherConfig is the configuration for the visibility watcher.
type VisibilityWatcherConfig struct {
	// Idle is optional; when set, user inactivity beyond IdleAfter also
	// counts as distraction.
	Idle              IdleProvider
	IdleAfter         time.Duration
	IdleCheckInterval time.Duration
	Logger            log.Logger
}

func (c *VisibilityWatcherConfig) defaults() error {
	if c.Idle != nil {
		if c.IdleAfter <= 0 {
			c.IdleAfter = 3 * time.Minute
		}
		if c.IdleCheckInterval <= 0 {
			c.IdleCheckInterval = 5 * time.Second
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "platform.VisibilityWatcher"})
	return nil
}

// VisibilityWatcher fuses the app foreground state and user idle time into a
// single "distracted" boolean and notifies subscribers on every flip. It
// keeps no history: readers always observe the most recent value.
type VisibilityWatcher struct {
	mu          sync.Mutex
	foreground  bool
	idle        bool
	subscribers map[int]func(bool)
	nextID      int
	running     bool
	stopCh      chan struct{}

	idleProvider      IdleProvider
	idleAfter         time.Duration
	idleCheckInterval time.Duration
	logger            log.Logger
}

// NewVisibilityWatcher creates a watcher that initially reports the app as
// foregrounded and the user as active.
func NewVisibilityWatcher(cfg VisibilityWatcherConfig) (*VisibilityWatcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &VisibilityWatcher{
		foreground:        true,
		subscribers:       map[int]func(bool){},
		idleProvider:      cfg.Idle,
		idleAfter:         cfg.IdleAfter,
		idleCheckInterval: cfg.IdleCheckInterval,
		logger:            cfg.Logger,
	}, nil
}

// Distracted returns the latest fused value.
func (w *VisibilityWatcher) Distracted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.distractedLocked()
}

// Subscribe registers a change callback and returns its cancel function.
func (w *VisibilityWatcher) Subscribe(onChange func(distracted bool)) (cancel func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subscribers[id] = onChange
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subscribers, id)
		w.mu.Unlock()
	}
}

// SetForeground records whether the app is currently in the foreground.
// Wire it to the host environment's lifecycle notifications.
func (w *VisibilityWatcher) SetForeground(foreground bool) {
	w.mu.Lock()
	before := w.distractedLocked()
	w.foreground = foreground
	w.notifyLocked(before)
}

// Start launches the idle polling loop when an idle provider is configured.
func (w *VisibilityWatcher) Start() {
	w.mu.Lock()
	if w.running || w.idleProvider == nil {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	go w.pollIdle(stopCh)
}

// Stop terminates the idle polling loop.
func (w *VisibilityWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()
}

func (w *VisibilityWatcher) pollIdle(stopCh chan struct{}) {
	ticker := time.NewTicker(w.idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !w.checkIdle() {
				return
			}
		}
	}
}

// checkIdle samples the idle provider once. It reports false when polling
// should stop because idle detection turned out to be unsupported.
func (w *VisibilityWatcher) checkIdle() bool {
	idleFor, err := w.idleProvider.IdleDuration()
	if err != nil {
		if errors.Is(err, model.ErrIdleUnsupported) {
			w.logger.Warningf("idle detection unsupported, disabling idle tracking")
			w.setIdle(false)
			return false
		}
		w.logger.Errorf("idle check failed: %v", err)
		return true
	}

	w.setIdle(idleFor >= w.idleAfter)
	return true
}

func (w *VisibilityWatcher) setIdle(idle bool) {
	w.mu.Lock()
	before := w.distractedLocked()
	w.idle = idle
	w.notifyLocked(before)
}

func (w *VisibilityWatcher) distractedLocked() bool {
	return !w.foreground || w.idle
}

// notifyLocked compares the fused value against before and fans out the
// change. It unlocks: callbacks must run outside the lock so they can call
// back into the watcher.
func (w *VisibilityWatcher) notifyLocked(before bool) {
	after := w.distractedLocked()
	if after == before {
		w.mu.Unlock()
		return
	}
	subscribers := make([]func(bool), 0, len(w.subscribers))
	for _, onChange := range w.subscribers {
		subscribers = append(subscribers, onChange)
	}
	w.mu.Unlock()

	w.logger.Debugf("distraction changed to %t", after)
	for _, onChange := range subscribers {
		onChange(after)
	}
}
