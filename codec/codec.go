package codec

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/glasspane/webview-runtime/errors"
)

// Shape names for script-side values, used in decode diagnostics.
const (
	ShapeNumber  = "number"
	ShapeString  = "string"
	ShapeBoolean = "boolean"
	ShapeObject  = "object"
	ShapeArray   = "array"
	ShapeNull    = "null"
	ShapeEmpty   = "empty"
	ShapeUnknown = "unknown"
)

// Shape classifies a raw script value by its JSON form without parsing it.
func Shape(raw json.RawMessage) string {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return ShapeEmpty
	}
	switch c := trimmed[0]; {
	case c == '{':
		return ShapeObject
	case c == '[':
		return ShapeArray
	case c == '"':
		return ShapeString
	case c == 't' || c == 'f':
		return ShapeBoolean
	case c == 'n':
		return ShapeNull
	case c == '-' || (c >= '0' && c <= '9'):
		return ShapeNumber
	default:
		return ShapeUnknown
	}
}

// Encode converts a native value into its script-side representation.
// Values the codec cannot represent (channels, functions, cyclic data, NaN)
// yield a structured encode error; the failure is surfaced to the caller,
// never dropped.
func Encode(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		switch e := err.(type) {
		case *json.UnsupportedTypeError:
			return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
				GoType(e.Type.String()).
				Detail("type cannot be represented as a script value").
				Build()
		case *json.UnsupportedValueError:
			return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
				Detail("value cannot be represented as a script value: %s", e.Str).
				Build()
		default:
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Cause(err).
				Detail("encode native value").
				Build()
		}
	}
	return raw, nil
}

// ArgsCodec decodes an ordered script argument list into typed native values.
// It is compiled once per registration from the handler's parameter types;
// dispatch performs no signature reflection of its own.
type ArgsCodec struct {
	params []*paramCodec
}

type paramCodec struct {
	typ    reflect.Type
	shape  string
	decode func(raw json.RawMessage, path string) (reflect.Value, error)
}

// CompileArgs builds an ArgsCodec for the given native parameter types.
// Unsupported parameter kinds fail here, at registration time, not at call
// time.
func CompileArgs(types []reflect.Type) (*ArgsCodec, error) {
	params := make([]*paramCodec, len(types))
	for i, t := range types {
		pc, err := compileParam(t)
		if err != nil {
			return nil, err
		}
		params[i] = pc
	}
	return &ArgsCodec{params: params}, nil
}

// Arity returns the number of script arguments the codec expects.
func (c *ArgsCodec) Arity() int {
	return len(c.params)
}

// Decode converts raw script arguments into native values, in order.
// A count mismatch or per-argument shape mismatch fails the whole decode;
// no partially decoded argument list is ever returned.
func (c *ArgsCodec) Decode(args []json.RawMessage) ([]reflect.Value, error) {
	if len(args) != len(c.params) {
		return nil, errors.ArityMismatch(errors.PhaseDecode, len(c.params), len(args))
	}

	out := make([]reflect.Value, len(args))
	for i, pc := range c.params {
		v, err := pc.decode(args[i], "arg["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func compileParam(t reflect.Type) (*paramCodec, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return compileInt(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return compileUint(t), nil
	case reflect.Float32, reflect.Float64:
		return compileFloat(t), nil
	case reflect.Bool:
		return compileExact(t, ShapeBoolean), nil
	case reflect.String:
		return compileExact(t, ShapeString), nil
	case reflect.Struct, reflect.Map:
		return compileExact(t, ShapeObject), nil
	case reflect.Slice, reflect.Array:
		if t == reflect.TypeOf(json.RawMessage(nil)) {
			return compileRaw(t), nil
		}
		return compileExact(t, ShapeArray), nil
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return compilePointer(t), nil
		}
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return compileAny(t), nil
		}
	}
	return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
		GoType(t.String()).
		Detail("parameter type cannot be decoded from a script value").
		Build()
}

// compileInt parses the raw number text directly so 64-bit values survive
// without float truncation.
func compileInt(t reflect.Type) *paramCodec {
	bits := t.Bits()
	return &paramCodec{typ: t, shape: ShapeNumber, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		if s := Shape(raw); s != ShapeNumber {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{path}, t.String(), s)
		}
		n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, bits)
		if err != nil {
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				return reflect.Value{}, errors.Overflow(errors.PhaseDecode, []string{path}, string(raw), t.String())
			}
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path).
				GoType(t.String()).
				ScriptShape(ShapeNumber).
				Detail("not an integer: %s", raw).
				Build()
		}
		v := reflect.New(t).Elem()
		v.SetInt(n)
		return v, nil
	}}
}

func compileUint(t reflect.Type) *paramCodec {
	bits := t.Bits()
	return &paramCodec{typ: t, shape: ShapeNumber, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		if s := Shape(raw); s != ShapeNumber {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{path}, t.String(), s)
		}
		n, err := strconv.ParseUint(string(bytes.TrimSpace(raw)), 10, bits)
		if err != nil {
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				return reflect.Value{}, errors.Overflow(errors.PhaseDecode, []string{path}, string(raw), t.String())
			}
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path).
				GoType(t.String()).
				ScriptShape(ShapeNumber).
				Detail("not an unsigned integer: %s", raw).
				Build()
		}
		v := reflect.New(t).Elem()
		v.SetUint(n)
		return v, nil
	}}
}

func compileFloat(t reflect.Type) *paramCodec {
	bits := t.Bits()
	return &paramCodec{typ: t, shape: ShapeNumber, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		if s := Shape(raw); s != ShapeNumber {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{path}, t.String(), s)
		}
		f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), bits)
		if err != nil {
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path).
				GoType(t.String()).
				ScriptShape(ShapeNumber).
				Detail("not a number: %s", raw).
				Build()
		}
		v := reflect.New(t).Elem()
		v.SetFloat(f)
		return v, nil
	}}
}

// compileExact handles types whose JSON shape must match exactly and whose
// body encoding/json can finish on its own: bool, string, struct, map, slice.
func compileExact(t reflect.Type, shape string) *paramCodec {
	return &paramCodec{typ: t, shape: shape, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		if s := Shape(raw); s != shape {
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{path}, t.String(), s)
		}
		v := reflect.New(t)
		if err := json.Unmarshal(raw, v.Interface()); err != nil {
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path).
				GoType(t.String()).
				ScriptShape(shape).
				Cause(err).
				Detail("value does not fit the native type").
				Build()
		}
		return v.Elem(), nil
	}}
}

// compilePointer accepts null for *struct parameters.
func compilePointer(t reflect.Type) *paramCodec {
	return &paramCodec{typ: t, shape: ShapeObject, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		switch s := Shape(raw); s {
		case ShapeNull:
			return reflect.Zero(t), nil
		case ShapeObject:
			v := reflect.New(t.Elem())
			if err := json.Unmarshal(raw, v.Interface()); err != nil {
				return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
					Path(path).
					GoType(t.String()).
					ScriptShape(s).
					Cause(err).
					Detail("value does not fit the native type").
					Build()
			}
			return v, nil
		default:
			return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, []string{path}, t.String(), s)
		}
	}}
}

func compileRaw(t reflect.Type) *paramCodec {
	return &paramCodec{typ: t, shape: ShapeUnknown, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		return reflect.ValueOf(cp), nil
	}}
}

func compileAny(t reflect.Type) *paramCodec {
	return &paramCodec{typ: t, shape: ShapeUnknown, decode: func(raw json.RawMessage, path string) (reflect.Value, error) {
		var v any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
				Path(path).
				Cause(err).
				Detail("malformed script value").
				Build()
		}
		rv := reflect.New(t).Elem()
		if v != nil {
			rv.Set(reflect.ValueOf(v))
		}
		return rv, nil
	}}
}
