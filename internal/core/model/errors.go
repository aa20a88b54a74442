package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyActive is returned when a timer session is requested while
	// another one is running. The running session is left untouched.
	ErrAlreadyActive = errors.New("timer session already active")
	// ErrSurfaceUnavailable is returned when a display surface cannot be
	// acquired (unsupported platform, refused, or already open).
	ErrSurfaceUnavailable = errors.New("display surface unavailable")
	// ErrIdleUnsupported indicates idle detection is not available on this system.
	ErrIdleUnsupported = errors.New("idle detection unsupported")
)
