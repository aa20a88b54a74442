package preferences

import (
	"time"

	"github.com/Megamind2600/TimerAD/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	// SurfaceOpacity is the floating timer background opacity.
	SurfaceOpacity float64
	// IdleEnabled counts keyboard/mouse inactivity as distraction.
	IdleEnabled bool
	IdleAfter   time.Duration
}

// DefaultSettings returns default settings for TimerAD.
func DefaultSettings() Settings {
	return Settings{
		SurfaceOpacity: 0.85,
		IdleEnabled:    true,
		IdleAfter:      3 * time.Minute,
	}
}

// FocusConfig converts settings to FocusConfig.
func (settings Settings) FocusConfig() model.FocusConfig {
	return model.FocusConfig{
		TickInterval:      time.Second,
		IdleAsDistraction: settings.IdleEnabled,
		IdleAfter:         settings.IdleAfter,
		IdleCheckInterval: 5 * time.Second,
	}
}
