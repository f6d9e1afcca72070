package headless

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/bridge"
	"github.com/glasspane/webview-runtime/relay"
)

// HostModule is the import namespace guest pages use to reach the bridge.
const HostModule = "webview_bridge"

type config struct {
	log       *zap.Logger
	selfDrive bool
	forced    bool
}

// Option configures the headless host.
type Option func(*config)

// WithLogger sets the host's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithExternalPump forces pump-driven mode: queued engine work runs only
// inside DoMessageWork calls.
func WithExternalPump() Option {
	return func(c *config) { c.selfDrive = false; c.forced = true }
}

// WithSelfDrive forces self-driving mode: a background goroutine consumes
// engine work continuously and no pump is required.
func WithSelfDrive() Option {
	return func(c *config) { c.selfDrive = true; c.forced = true }
}

// Host is a wazero-backed headless engine. It stands in for the native
// webview library when none is linked (tests, CI, demos): pages are wasm
// guest modules, and script-issued calls reach the bridge through the
// webview_bridge host module.
//
// Host implements the engine Driver boundary. Whether it self-drives follows
// the native engine's platform split unless overridden: pump-driven on
// Linux, self-driving elsewhere.
type Host struct {
	rt   wazero.Runtime
	disp *bridge.Dispatcher
	log  *zap.Logger

	// work is the engine-internal message queue. All guest memory writes go
	// through it, so one guest module is never touched concurrently.
	work      *relay.Relay[func()]
	selfDrive bool
	driveDone chan struct{}

	mu    sync.Mutex
	pages map[string]*Page

	nextPage atomic.Uint64
	closed   atomic.Bool
}

// New creates a headless host over the given registry and instantiates the
// webview_bridge host module.
func New(ctx context.Context, reg *bridge.Registry, opts ...Option) (*Host, error) {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.forced {
		cfg.selfDrive = runtime.GOOS != "linux"
	}

	h := &Host{
		rt:        wazero.NewRuntime(ctx),
		log:       cfg.log,
		work:      relay.New[func()](),
		selfDrive: cfg.selfDrive,
		pages:     make(map[string]*Page),
	}
	h.disp = bridge.NewDispatcher(reg)

	if err := h.instantiateBridgeModule(ctx); err != nil {
		h.rt.Close(ctx)
		return nil, err
	}

	if h.selfDrive {
		h.driveDone = make(chan struct{})
		go h.drive()
	}
	return h, nil
}

// instantiateBridgeModule exports the call surface guests import:
//
//	invoke(call_id: i64, name_ptr, name_len, args_ptr, args_len: i32)
//
// name is a UTF-8 function name; args is a JSON array of arguments. Results
// are not returned inline: they come back through the guest's on_result
// export, keyed by call_id, which keeps sync and async handlers uniform at
// the wire level.
func (h *Host) instantiateBridgeModule(ctx context.Context) error {
	_, err := h.rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.invoke),
			[]api.ValueType{api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			nil).
		Export("invoke").
		Instantiate(ctx)
	return err
}

func (h *Host) invoke(_ context.Context, mod api.Module, stack []uint64) {
	callID := stack[0]
	namePtr, nameLen := uint32(stack[1]), uint32(stack[2])
	argsPtr, argsLen := uint32(stack[3]), uint32(stack[4])

	page := h.pageFor(mod.Name())
	if page == nil {
		h.log.Warn("call from unknown page module", zap.String("module", mod.Name()))
		return
	}

	nameBytes, ok := mod.Memory().Read(namePtr, nameLen)
	if !ok {
		h.log.Warn("call name out of guest memory bounds", zap.Uint64("call", callID))
		return
	}
	name := string(nameBytes)

	var args []json.RawMessage
	if argsLen > 0 {
		argBytes, ok := mod.Memory().Read(argsPtr, argsLen)
		if !ok {
			h.log.Warn("call args out of guest memory bounds",
				zap.String("func", name), zap.Uint64("call", callID))
			return
		}
		if err := json.Unmarshal(argBytes, &args); err != nil {
			h.log.Warn("call args are not a JSON array",
				zap.String("func", name), zap.Uint64("call", callID), zap.Error(err))
			return
		}
	}

	h.disp.Dispatch(bridge.CallRequest{
		Name:   name,
		Args:   args,
		ID:     callID,
		Origin: page.Frame(),
	})
}

func (h *Host) pageFor(moduleName string) *Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pages[moduleName]
}

// schedule queues one unit of engine work. Work submitted after Close is
// discarded.
func (h *Host) schedule(task func()) {
	h.work.Push(task)
}

// DoMessageWork drains the currently queued engine work. One call is one
// pump tick's worth of processing.
func (h *Host) DoMessageWork() {
	for {
		task, ok := h.work.TryPop()
		if !ok {
			return
		}
		task()
	}
}

// NeedsExternalPump reports whether queued work waits for DoMessageWork.
func (h *Host) NeedsExternalPump() bool {
	return !h.selfDrive
}

// drive consumes engine work continuously in self-driving mode.
func (h *Host) drive() {
	defer close(h.driveDone)
	for {
		task, ok := h.work.Pop()
		if !ok {
			return
		}
		task()
	}
}

// Close tears down all pages and the wazero runtime. In-flight work queued
// before Close is still drained in self-driving mode.
func (h *Host) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.mu.Lock()
	pages := make([]*Page, 0, len(h.pages))
	for _, p := range h.pages {
		pages = append(pages, p)
	}
	h.mu.Unlock()

	for _, p := range pages {
		p.Close(ctx)
	}

	h.work.Close()
	if h.driveDone != nil {
		<-h.driveDone
	}
	return h.rt.Close(ctx)
}
