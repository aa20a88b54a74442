package model

import "time"

// FocusConfig contains runtime settings for the focus timer subsystem.
type FocusConfig struct {
	// TickInterval is the nominal pulse interval of the clock source.
	TickInterval time.Duration

	// IdleAsDistraction counts user inactivity as distraction in addition
	// to the app being backgrounded.
	IdleAsDistraction bool
	IdleAfter         time.Duration
	IdleCheckInterval time.Duration
}
