package bridge

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/codec"
	"github.com/glasspane/webview-runtime/relay"
)

// Frame is the host-side handle to one script execution context inside the
// embedded engine (one loaded page). Handlers receive the originating Frame
// when their first parameter is *Frame.
//
// Results and events are not written into the engine directly: they are
// queued on the frame's outbox relay and consumed by whatever goroutine owns
// the engine side of this context. That is the deliver-on-owner handoff; no
// handler goroutine ever touches engine state.
type Frame struct {
	id  uint64
	log *zap.Logger
	out *relay.Relay[Envelope]

	mu     sync.Mutex
	closed bool
}

// Envelope is one unit of frame-bound delivery: either a call result or an
// unsolicited event, never both.
type Envelope struct {
	Result *CallResult
	Event  json.RawMessage
}

// NewFrame creates a live frame handle. logger may be nil.
func NewFrame(id uint64, logger *zap.Logger) *Frame {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frame{
		id:  id,
		log: logger,
		out: relay.New[Envelope](),
	}
}

// ID returns the frame's identity token.
func (f *Frame) ID() uint64 {
	return f.id
}

// Outbox returns the relay the context owner must drain. Envelopes appear in
// delivery order; emissions issued by one handler invocation are never
// reordered against each other.
func (f *Frame) Outbox() *relay.Relay[Envelope] {
	return f.out
}

// Alive reports whether the frame can still accept deliveries.
func (f *Frame) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// Close tears the frame down. Pending outbox entries remain drainable;
// every later delivery attempt is dropped.
func (f *Frame) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.out.Close()
}

// Emit pushes an unsolicited event payload into this context, uncorrelated to
// any call. Emitting to a destroyed frame is not an error: the emission is
// dropped and logged, same policy as an undeliverable call result. Only an
// unencodable payload fails.
func (f *Frame) Emit(payload any) error {
	raw, err := codec.Encode(payload)
	if err != nil {
		return err
	}
	if !f.push(Envelope{Event: raw}) {
		f.log.Debug("event dropped, script context gone",
			zap.Uint64("frame", f.id))
	}
	return nil
}

// push queues an envelope, reporting false if the frame is closed.
func (f *Frame) push(env Envelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	return f.out.Push(env)
}
