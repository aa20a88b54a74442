package focus

import "context"

// SizeHint suggests the initial surface dimensions in device pixels.
type SizeHint struct {
	Width  float32
	Height float32
}

// SurfaceHandle is a live reference to an acquired display surface. The
// surface's close lifecycle is independent of its owner: the user can close
// it at any moment, so Render and Close must tolerate a handle that has
// already gone stale.
type SurfaceHandle interface {
	// Render replaces the displayed content. Calling Render on a stale
	// handle is a no-op, not an error.
	Render(view ViewModel)
	// OnClose registers a one-shot callback fired when the surface closes
	// by any means, user action or a Close call. Registering on an already
	// closed handle fires the callback immediately.
	OnClose(fn func())
	// Close requests destruction of the surface. Idempotent.
	Close()
}

// Surface acquires detachable, always-on-top display surfaces.
type Surface interface {
	// Acquire opens a new surface. It fails wrapping
	// model.ErrSurfaceUnavailable when the platform refuses, the feature is
	// unsupported, or a surface is already open.
	Acquire(ctx context.Context, hint SizeHint) (SurfaceHandle, error)
}
