package bridge

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/glasspane/webview-runtime/codec"
	"github.com/glasspane/webview-runtime/errors"
)

// handler is the closed polymorphic unit behind every registered name.
// Exactly two variants exist: sync (completes before returning control to the
// engine boundary) and async (schedules the invocation on the spawner and
// completes later).
type handler interface {
	handle(d *Dispatcher, req CallRequest)
}

var (
	frameType = reflect.TypeOf((*Frame)(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// invoker is the signature-specific glue compiled once at registration:
// argument codec, frame injection, and result mapping. Dispatch performs no
// reflection over the handler signature.
type invoker struct {
	name       string
	fn         reflect.Value
	args       *codec.ArgsCodec
	wantsFrame bool
	valIndex   int
	errIndex   int
}

func compileInvoker(name string, fn any) (*invoker, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}

	t := rv.Type()
	if t.IsVariadic() {
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			GoType(t.String()).
			Detail("variadic handlers are not supported").
			Build()
	}

	iv := &invoker{
		name:     name,
		fn:       rv,
		valIndex: -1,
		errIndex: -1,
	}

	start := 0
	if t.NumIn() > 0 && t.In(0) == frameType {
		iv.wantsFrame = true
		start = 1
	}

	paramTypes := make([]reflect.Type, 0, t.NumIn()-start)
	for i := start; i < t.NumIn(); i++ {
		paramTypes = append(paramTypes, t.In(i))
	}
	args, err := codec.CompileArgs(paramTypes)
	if err != nil {
		return nil, err
	}
	iv.args = args

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			iv.errIndex = 0
		} else {
			iv.valIndex = 0
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
				GoType(t.String()).
				Detail("second return value must be error").
				Build()
		}
		iv.valIndex = 0
		iv.errIndex = 1
	default:
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			GoType(t.String()).
			Detail("handlers return at most one value and one error").
			Build()
	}

	return iv, nil
}

// decode converts the raw script arguments. Runs inline on the dispatching
// goroutine for both handler variants.
func (iv *invoker) decode(args []json.RawMessage) ([]reflect.Value, error) {
	return iv.args.Decode(args)
}

// invoke calls the native function and encodes its result. A panicking
// handler is recovered here and surfaced as a handler failure; nothing may
// unwind into the engine's control flow.
func (iv *invoker) invoke(origin *Frame, vals []reflect.Value) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.HandlerFailed(iv.name, fmt.Errorf("panic: %v", r))
		}
	}()

	in := vals
	if iv.wantsFrame {
		in = make([]reflect.Value, 0, len(vals)+1)
		in = append(in, reflect.ValueOf(origin))
		in = append(in, vals...)
	}

	out := iv.fn.Call(in)

	if iv.errIndex >= 0 && !out[iv.errIndex].IsNil() {
		return nil, errors.HandlerFailed(iv.name, out[iv.errIndex].Interface().(error))
	}
	if iv.valIndex < 0 {
		return json.RawMessage("null"), nil
	}
	return codec.Encode(out[iv.valIndex].Interface())
}

// syncHandler decodes, invokes and encodes inline on the calling goroutine.
type syncHandler struct {
	iv *invoker
}

func (h *syncHandler) handle(d *Dispatcher, req CallRequest) {
	vals, err := h.iv.decode(req.Args)
	if err != nil {
		d.finish(req, nil, err)
		return
	}
	value, err := h.iv.invoke(req.Origin, vals)
	d.finish(req, value, err)
}

// asyncHandler decodes inline, then hands the invocation to the registry's
// spawner and returns immediately; the call stays in flight until the
// deferred computation resolves.
type asyncHandler struct {
	iv    *invoker
	spawn Spawner
}

func (h *asyncHandler) handle(d *Dispatcher, req CallRequest) {
	vals, err := h.iv.decode(req.Args)
	if err != nil {
		d.finish(req, nil, err)
		return
	}

	d.track(req)
	p := &pending{onDone: func(value json.RawMessage, err error) {
		d.resolve(req, value, err)
	}}
	h.spawn(func() {
		p.settle(h.iv.invoke(req.Origin, vals))
	})
}

// pending is the deferred computation handle for one in-flight async call.
// The dispatcher subscribes via onDone; settle fires it exactly once no
// matter which goroutine the work completed on.
type pending struct {
	once   sync.Once
	onDone func(json.RawMessage, error)
}

func (p *pending) settle(value json.RawMessage, err error) {
	p.once.Do(func() {
		p.onDone(value, err)
	})
}
