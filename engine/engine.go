package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	webviewruntime "github.com/glasspane/webview-runtime"
	"github.com/glasspane/webview-runtime/errors"
)

// DefaultPumpInterval is the cadence the embedded engine expects its message
// loop to be driven at on externally pumped platforms: 60 Hz.
const DefaultPumpInterval = time.Second / 60

// Settings configures engine launch.
type Settings struct {
	// CachePath is the on-disk cache directory handed to the engine.
	// Empty means in-memory.
	CachePath string

	// UserAgent overrides the engine's default user agent when non-empty.
	UserAgent string
}

// launched guards the process-global engine state. The embedded engine's
// internal message loop exists once per process; a second launch is refused
// until the first handle is closed.
var launched atomic.Bool

// Engine is the owned handle to the process-global embedded engine.
// Lifecycle is explicit: Launch before first use, pump during runtime on
// platforms that need it, Close before process exit.
type Engine struct {
	driver   webviewruntime.Driver
	settings Settings

	mu     sync.Mutex
	pump   *Pump
	closed bool
}

// Launch initializes the embedded engine through the given driver. Exactly
// one engine may be live per process.
func Launch(driver webviewruntime.Driver, settings Settings) (*Engine, error) {
	if driver == nil {
		return nil, errors.InvalidInput(errors.PhaseLaunch, "driver cannot be nil")
	}
	if !launched.CompareAndSwap(false, true) {
		return nil, errors.AlreadyLaunched()
	}

	Logger().Debug("engine launched",
		zap.String("cache_path", settings.CachePath),
		zap.Bool("external_pump", driver.NeedsExternalPump()))

	return &Engine{driver: driver, settings: settings}, nil
}

// Settings returns the launch settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// DoMessageWork performs one unit of engine-internal message processing.
// Callers must serialize invocations; the pump does.
func (e *Engine) DoMessageWork() {
	e.driver.DoMessageWork()
}

// NeedsExternalPump reports whether the host must drive the engine's message
// loop. Platform detection lives in the driver; hosts check this once at
// startup and start a pump only when it reports true.
func (e *Engine) NeedsExternalPump() bool {
	return e.driver.NeedsExternalPump()
}

// StartPump begins driving the message loop at the given interval.
// It refuses to pump a self-driving engine and refuses a second pump.
func (e *Engine) StartPump(interval time.Duration) (*Pump, error) {
	if !e.driver.NeedsExternalPump() {
		return nil, errors.InvalidInput(errors.PhasePump, "engine drives its own message loop")
	}
	if interval <= 0 {
		interval = DefaultPumpInterval
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.NotInitialized(errors.PhasePump, "engine")
	}
	if e.pump != nil {
		return nil, errors.InvalidInput(errors.PhasePump, "pump already running")
	}

	e.pump = startPump(e, interval)
	return e.pump, nil
}

// Close stops the pump, shuts the driver down and releases the process-global
// launch slot. The handle is unusable afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	pump := e.pump
	e.pump = nil
	e.mu.Unlock()

	if pump != nil {
		pump.Stop()
	}
	err := e.driver.Close(ctx)
	launched.Store(false)

	Logger().Debug("engine closed")
	return err
}
