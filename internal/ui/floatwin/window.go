package floatwin

import (
	"context"
	"fmt"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/Megamind2600/TimerAD/internal/core/focus"
	"github.com/Megamind2600/TimerAD/internal/core/model"
)

// Config defines floating timer visuals.
type Config struct {
	Opacity uint8
}

var (
	focusedColor    = color.NRGBA{R: 16, G: 20, B: 28, A: 255}
	distractedColor = color.NRGBA{R: 96, G: 24, B: 24, A: 255}
	timerColor      = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
	textColor       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	mutedColor      = color.NRGBA{R: 180, G: 180, B: 180, A: 255}
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// Surface opens floating always-on-top timer windows and implements the
// focus.Surface contract. At most one window may be open at a time.
type Surface struct {
	app     fyne.App
	opacity uint8

	mu     sync.Mutex
	active *Handle
}

// New creates a floating timer surface provider.
func New(app fyne.App, config Config) *Surface {
	opacity := config.Opacity
	if opacity == 0 {
		opacity = 255
	}
	return &Surface{app: app, opacity: opacity}
}

// Acquire opens the floating timer window. It fails wrapping
// model.ErrSurfaceUnavailable when a window is already open or the request
// context is done.
func (s *Surface) Acquire(ctx context.Context, hint focus.SizeHint) (focus.SurfaceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, fmt.Errorf("floating timer already open: %w", model.ErrSurfaceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquisition aborted: %v: %w", err, model.ErrSurfaceUnavailable)
	}

	window := s.app.NewWindow("Focus")
	if driver, ok := s.app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated and stays above normal windows.
		window = driver.CreateSplashWindow()
	}
	window.SetPadded(false)

	background := canvas.NewRectangle(withAlpha(focusedColor, s.opacity))

	taskLabel := canvas.NewText("", textColor)
	taskLabel.TextStyle = fyne.TextStyle{Bold: true}
	taskLabel.TextSize = 15

	spentLabel := canvas.NewText("00:00:00", timerColor)
	spentLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	spentLabel.TextSize = 26

	distractionLabel := canvas.NewText("distracted 00:00:00", mutedColor)
	distractionLabel.TextStyle = fyne.TextStyle{Monospace: true}
	distractionLabel.TextSize = 12

	statusLabel := canvas.NewText("focusing", mutedColor)
	statusLabel.TextSize = 12

	stopButton := widget.NewButton("Stop", nil)

	content := container.NewVBox(taskLabel, spentLabel, distractionLabel, statusLabel, stopButton)
	root := container.NewMax(background, container.NewPadded(content))
	window.SetContent(root)
	if hint.Width > 0 && hint.Height > 0 {
		window.Resize(fyne.NewSize(hint.Width, hint.Height))
	}

	handle := &Handle{
		surface:          s,
		window:           window,
		opacity:          s.opacity,
		background:       background,
		taskLabel:        taskLabel,
		spentLabel:       spentLabel,
		distractionLabel: distractionLabel,
		statusLabel:      statusLabel,
	}
	stopButton.OnTapped = handle.Close
	window.SetOnClosed(handle.handleClosed)
	window.Show()

	s.active = handle
	return handle, nil
}

func (s *Surface) release(h *Handle) {
	s.mu.Lock()
	if s.active == h {
		s.active = nil
	}
	s.mu.Unlock()
}

// Handle is a live floating timer window. It goes stale once the window
// closes, by user action or a Close call; stale handles ignore Render and
// Close instead of erroring.
type Handle struct {
	surface *Surface
	window  fyne.Window
	opacity uint8

	mu      sync.Mutex
	stale   bool
	onClose func()

	background       *canvas.Rectangle
	taskLabel        *canvas.Text
	spentLabel       *canvas.Text
	distractionLabel *canvas.Text
	statusLabel      *canvas.Text
}

// Render replaces the displayed content. No-op on a stale handle.
func (h *Handle) Render(view focus.ViewModel) {
	h.mu.Lock()
	if h.stale {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	fyne.Do(func() {
		h.taskLabel.Text = view.TaskName
		h.spentLabel.Text = view.TimeSpent
		h.distractionLabel.Text = "distracted " + view.DistractionTime
		if view.Distracted {
			h.statusLabel.Text = "come back!"
			h.background.FillColor = withAlpha(distractedColor, h.opacity)
		} else {
			h.statusLabel.Text = "focusing"
			h.background.FillColor = withAlpha(focusedColor, h.opacity)
		}
		h.taskLabel.Refresh()
		h.spentLabel.Refresh()
		h.distractionLabel.Refresh()
		h.statusLabel.Refresh()
		canvas.Refresh(h.background)
	})
}

// OnClose registers a one-shot close notification. When the handle is
// already stale the callback fires immediately.
func (h *Handle) OnClose(fn func()) {
	h.mu.Lock()
	if h.stale {
		h.mu.Unlock()
		if fn != nil {
			fn()
		}
		return
	}
	h.onClose = fn
	h.mu.Unlock()
}

// Close destroys the window. Idempotent; the close notification is delivered
// through the window's closed callback exactly once.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.stale {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	fyne.Do(func() {
		h.window.Close()
	})
}

// handleClosed runs once the window is gone, whatever closed it.
func (h *Handle) handleClosed() {
	h.mu.Lock()
	if h.stale {
		h.mu.Unlock()
		return
	}
	h.stale = true
	fn := h.onClose
	h.onClose = nil
	h.mu.Unlock()

	h.surface.release(h)
	if fn != nil {
		fn()
	}
}

func withAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = alpha
	return c
}
