package focus

// DistractionSource reports whether the user is currently away from the app
// (backgrounded window, or idle when the source fuses inactivity in). The
// value is unbuffered: consumers always read the most recent observation.
type DistractionSource interface {
	// Distracted returns the latest observed value.
	Distracted() bool
	// Subscribe registers a change callback and returns its cancel
	// function. The callback fires only when the fused value flips.
	Subscribe(onChange func(distracted bool)) (cancel func())
}

// neverDistracted is the default source when none is configured.
type neverDistracted struct{}

func (neverDistracted) Distracted() bool { return false }

func (neverDistracted) Subscribe(func(bool)) (cancel func()) { return func() {} }
