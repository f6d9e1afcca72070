package bridge

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/errors"
)

// CallRequest is one named call surfaced by the embedded engine. It is
// consumed exactly once by Dispatch and never persisted.
type CallRequest struct {
	Name   string
	Args   []json.RawMessage
	ID     uint64
	Origin *Frame
}

// CallResult is the outcome written back to the originating context, keyed by
// the call id. Err carries the failure description; Value is meaningful only
// when Err is empty.
type CallResult struct {
	ID    uint64
	Value json.RawMessage
	Err   string
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool {
	return r.Err == ""
}

// callState is the settled portion of a call's lifecycle. Receipt and
// argument decoding happen inline before a call is ever tracked, so only the
// states a call can be observed in are modeled.
type callState uint8

const (
	stateInvoking callState = iota
	stateCompleted
	stateFailed
)

func (s callState) String() string {
	switch s {
	case stateInvoking:
		return "invoking"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// callKey identifies one in-flight call. Call ids are correlation tokens
// chosen per originating context; two contexts may use the same id for
// unrelated calls, so the id alone does not identify a call.
type callKey struct {
	frame uint64
	call  uint64
}

func keyFor(req CallRequest) callKey {
	return callKey{frame: req.Origin.ID(), call: req.ID}
}

// Dispatcher routes call requests from the engine boundary to registered
// handlers and delivers exactly one result per request back into the
// originating frame, or drops the delivery when that frame is gone.
//
// Dispatch is safe for concurrent use; failure isolation is per call.
type Dispatcher struct {
	reg *Registry
	log *zap.Logger

	mu       sync.Mutex
	inflight map[callKey]callState
}

// NewDispatcher creates a dispatcher over an immutable registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		log:      reg.log,
		inflight: make(map[callKey]callState),
	}
}

// Dispatch runs one call request. Synchronous handlers complete before it
// returns; asynchronous handlers leave the call in flight and Dispatch
// returns as soon as the work is scheduled.
func (d *Dispatcher) Dispatch(req CallRequest) {
	if req.Origin == nil {
		d.log.Error("call request without origin context",
			zap.String("func", req.Name), zap.Uint64("call", req.ID))
		return
	}

	h, ok := d.reg.handlers[req.Name]
	if !ok {
		d.finish(req, nil, errors.UnknownFunction(req.Name))
		return
	}
	h.handle(d, req)
}

// InFlight returns the number of asynchronous calls awaiting resolution.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// track records an async call before its work is spawned.
func (d *Dispatcher) track(req CallRequest) {
	d.mu.Lock()
	d.inflight[keyFor(req)] = stateInvoking
	d.mu.Unlock()
}

// resolve completes an in-flight async call from whatever goroutine the
// spawned work finished on. A call that is no longer tracked has already
// been answered; the second resolution is refused, never delivered.
func (d *Dispatcher) resolve(req CallRequest, value json.RawMessage, err error) {
	key := keyFor(req)
	d.mu.Lock()
	_, ok := d.inflight[key]
	if ok {
		delete(d.inflight, key)
	}
	d.mu.Unlock()

	if !ok {
		d.log.Warn("refusing duplicate call resolution",
			zap.String("func", req.Name),
			zap.Uint64("call", req.ID),
			zap.Uint64("frame", req.Origin.ID()))
		return
	}
	d.finish(req, value, err)
}

// finish performs the single delivery attempt for a request. Delivery into a
// closed frame is dropped and logged, not retried: there is no caller left to
// notify.
func (d *Dispatcher) finish(req CallRequest, value json.RawMessage, err error) {
	res := CallResult{ID: req.ID, Value: value}
	state := stateCompleted
	if err != nil {
		res.Err = err.Error()
		res.Value = nil
		state = stateFailed
	}

	if !req.Origin.push(Envelope{Result: &res}) {
		d.log.Debug("result dropped, script context gone",
			zap.String("func", req.Name),
			zap.Uint64("call", req.ID),
			zap.Uint64("frame", req.Origin.ID()),
			zap.Stringer("state", state))
		return
	}

	d.log.Debug("call finished",
		zap.String("func", req.Name),
		zap.Uint64("call", req.ID),
		zap.Stringer("state", state))
}
