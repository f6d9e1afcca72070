package headless

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/bridge"
)

// Page is one loaded guest module: the headless analog of a browser page,
// owning exactly one script context. Guests export:
//
//	bridge_alloc(size: i32) -> i32      allocate delivery buffers
//	on_result(ptr, len: i32)            receive call results
//	on_event(ptr, len: i32)             receive emitted events (optional)
type Page struct {
	host  *Host
	mod   api.Module
	frame *bridge.Frame

	alloc    api.Function
	onResult api.Function
	onEvent  api.Function
}

// resultWire is the JSON form of a call result written into the guest.
type resultWire struct {
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// LoadPage instantiates a guest module and binds a fresh script context to
// it. The guest's start function is not run automatically; call Run for
// reactor-style entry points.
func (h *Host) LoadPage(ctx context.Context, wasm []byte) (*Page, error) {
	id := h.nextPage.Add(1)
	name := fmt.Sprintf("page-%d", id)

	mod, err := h.rt.InstantiateWithConfig(ctx, wasm,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("instantiate page module: %w", err)
	}

	alloc := mod.ExportedFunction("bridge_alloc")
	onResult := mod.ExportedFunction("on_result")
	if alloc == nil || onResult == nil {
		mod.Close(ctx)
		return nil, fmt.Errorf("page module must export bridge_alloc and on_result")
	}

	p := &Page{
		host:     h,
		mod:      mod,
		frame:    bridge.NewFrame(id, h.log),
		alloc:    alloc,
		onResult: onResult,
		onEvent:  mod.ExportedFunction("on_event"),
	}

	h.mu.Lock()
	h.pages[name] = p
	h.mu.Unlock()

	go p.deliverLoop()
	return p, nil
}

// Frame returns the script context bound to this page.
func (p *Page) Frame() *bridge.Frame {
	return p.frame
}

// Run invokes a guest export by name, typically the page's entry point.
func (p *Page) Run(ctx context.Context, entry string, params ...uint64) ([]uint64, error) {
	fn := p.mod.ExportedFunction(entry)
	if fn == nil {
		return nil, fmt.Errorf("page module does not export %q", entry)
	}
	return fn.Call(ctx, params...)
}

// deliverLoop drains the frame outbox and reschedules each envelope onto the
// engine work queue, so guest memory is only ever written by the engine's
// single work consumer.
func (p *Page) deliverLoop() {
	for {
		env, ok := p.frame.Outbox().Pop()
		if !ok {
			return
		}
		p.host.schedule(func() { p.write(env) })
	}
}

func (p *Page) write(env bridge.Envelope) {
	ctx := context.Background()

	switch {
	case env.Result != nil:
		res := env.Result
		wire := resultWire{ID: res.ID, OK: res.OK(), Value: res.Value, Error: res.Err}
		payload, err := json.Marshal(wire)
		if err != nil {
			p.host.log.Error("marshal result wire", zap.Error(err))
			return
		}
		p.callback(ctx, p.onResult, payload)
	case env.Event != nil:
		if p.onEvent == nil {
			p.host.log.Debug("page has no on_event export, event dropped",
				zap.Uint64("frame", p.frame.ID()))
			return
		}
		p.callback(ctx, p.onEvent, env.Event)
	}
}

// callback copies payload into guest memory via bridge_alloc and hands it to
// the given export.
func (p *Page) callback(ctx context.Context, fn api.Function, payload []byte) {
	size := uint64(len(payload))
	ret, err := p.alloc.Call(ctx, size)
	if err != nil {
		p.host.log.Warn("guest allocation failed", zap.Error(err))
		return
	}
	ptr := uint32(ret[0])
	if !p.mod.Memory().Write(ptr, payload) {
		p.host.log.Warn("guest delivery buffer out of bounds",
			zap.Uint32("ptr", ptr), zap.Uint64("len", size))
		return
	}
	if _, err := fn.Call(ctx, uint64(ptr), size); err != nil {
		p.host.log.Warn("guest delivery callback failed", zap.Error(err))
	}
}

// Close destroys the script context and the guest module. Deliveries already
// scheduled are dropped by the bridge once the frame is gone.
func (p *Page) Close(ctx context.Context) error {
	p.frame.Close()

	p.host.mu.Lock()
	delete(p.host.pages, p.mod.Name())
	p.host.mu.Unlock()

	return p.mod.Close(ctx)
}
