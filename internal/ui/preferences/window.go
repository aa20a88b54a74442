package preferences

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window    fyne.Window
	settings  Settings
	onSave    func(Settings)
	onCancel  func()
	opacity   *widget.Slider
	idleCheck *widget.Check
	idleAfter *widget.Entry
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("TimerAD Settings")

	opacity := widget.NewSlider(0.5, 1.0)
	opacity.Value = settings.SurfaceOpacity
	opacity.Step = 0.01

	idleCheck := widget.NewCheck("Count keyboard/mouse inactivity as distraction", nil)
	idleCheck.SetChecked(settings.IdleEnabled)

	idleAfter := widget.NewEntry()
	idleAfter.SetText(fmt.Sprintf("%d", int(settings.IdleAfter.Minutes())))

	form := container.NewVBox(
		widget.NewLabelWithStyle("Focus timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Floating timer opacity"),
		opacity,
		idleCheck,
		container.NewHBox(widget.NewLabel("Idle after"), idleAfter, widget.NewLabel("min")),
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(380, 260))

	prefs := &Window{
		window:    window,
		settings:  settings,
		onSave:    onSave,
		opacity:   opacity,
		idleCheck: idleCheck,
		idleAfter: idleAfter,
	}

	saveButton.OnTapped = prefs.handleSave
	cancelButton.OnTapped = func() {
		window.Hide()
		if prefs.onCancel != nil {
			prefs.onCancel()
		}
	}
	window.SetCloseIntercept(window.Hide)

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.opacity.Value = settings.SurfaceOpacity
	prefs.opacity.Refresh()
	prefs.idleCheck.SetChecked(settings.IdleEnabled)
	prefs.idleAfter.SetText(fmt.Sprintf("%d", int(settings.IdleAfter.Minutes())))
}

func (prefs *Window) handleSave() {
	settings := prefs.settings

	settings.SurfaceOpacity = prefs.opacity.Value
	settings.IdleEnabled = prefs.idleCheck.Checked
	if minutes, ok := parsePositiveInt(prefs.idleAfter.Text); ok {
		settings.IdleAfter = time.Duration(minutes) * time.Minute
	}

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
