package webviewruntime

import "context"

// Driver is the low-level binding to an embedded browser engine. The native
// library (or a headless stand-in) implements it; the engine package wraps it
// with explicit lifecycle and pumping.
type Driver interface {
	// DoMessageWork performs one unit of engine-internal message processing.
	// Invocations are serialized by the caller, never concurrent with
	// themselves.
	DoMessageWork()

	// NeedsExternalPump reports whether the host must drive the engine's
	// message loop at a fixed cadence. Platform-dependent: false when the
	// engine self-drives.
	NeedsExternalPump() bool

	// Close shuts the engine binding down and releases its resources.
	Close(ctx context.Context) error
}
