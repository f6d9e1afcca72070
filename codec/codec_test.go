package codec

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/glasspane/webview-runtime/errors"
)

func TestShape(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`42`, ShapeNumber},
		{`-7`, ShapeNumber},
		{`3.25`, ShapeNumber},
		{`"hi"`, ShapeString},
		{`true`, ShapeBoolean},
		{`false`, ShapeBoolean},
		{`null`, ShapeNull},
		{`{"a":1}`, ShapeObject},
		{`[1,2]`, ShapeArray},
		{`  42`, ShapeNumber},
		{``, ShapeEmpty},
		{`?`, ShapeUnknown},
	}
	for _, tt := range tests {
		if got := Shape(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("Shape(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDecodeIntegers(t *testing.T) {
	c, err := CompileArgs([]reflect.Type{
		reflect.TypeOf(int32(0)),
		reflect.TypeOf(uint64(0)),
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	vals, err := c.Decode([]json.RawMessage{
		json.RawMessage(`-12`),
		json.RawMessage(`18446744073709551615`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := vals[0].Interface().(int32); got != -12 {
		t.Errorf("arg[0] = %d", got)
	}
	if got := vals[1].Interface().(uint64); got != 18446744073709551615 {
		t.Errorf("arg[1] = %d, uint64 range must survive decoding", got)
	}
}

func TestDecodeShapeMismatch(t *testing.T) {
	c, err := CompileArgs([]reflect.Type{reflect.TypeOf(int32(0))})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	_, err = c.Decode([]json.RawMessage{json.RawMessage(`"x"`)})
	if err == nil {
		t.Fatal("decoding a string into int32 should fail")
	}
	var e *errors.Error
	if !errorsAs(err, &e) {
		t.Fatalf("error is not structured: %v", err)
	}
	if e.Kind != errors.KindTypeMismatch || e.GoType != "int32" || e.ScriptShape != ShapeString {
		t.Errorf("unexpected error fields: %+v", e)
	}
	if !strings.Contains(e.Error(), "arg[0]") {
		t.Errorf("error %q missing argument path", e.Error())
	}
}

func TestDecodeArityMismatch(t *testing.T) {
	c, _ := CompileArgs([]reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)})

	_, err := c.Decode([]json.RawMessage{json.RawMessage(`1`)})
	if err == nil {
		t.Fatal("wrong argument count should fail")
	}
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindArityMismatch {
		t.Errorf("want arity_mismatch, got %v", err)
	}
}

func TestDecodeOverflow(t *testing.T) {
	c, _ := CompileArgs([]reflect.Type{reflect.TypeOf(int8(0))})

	_, err := c.Decode([]json.RawMessage{json.RawMessage(`1000`)})
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindOverflow {
		t.Errorf("want overflow, got %v", err)
	}
}

func TestDecodeNegativeIntoUnsigned(t *testing.T) {
	c, _ := CompileArgs([]reflect.Type{reflect.TypeOf(uint32(0))})

	if _, err := c.Decode([]json.RawMessage{json.RawMessage(`-1`)}); err == nil {
		t.Error("decoding -1 into uint32 should fail")
	}
}

func TestDecodeStruct(t *testing.T) {
	type point struct {
		X int    `json:"x"`
		Y int    `json:"y"`
		L string `json:"label"`
	}
	c, err := CompileArgs([]reflect.Type{reflect.TypeOf(point{})})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	vals, err := c.Decode([]json.RawMessage{json.RawMessage(`{"x":3,"y":4,"label":"p"}`)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := vals[0].Interface().(point)
	if got.X != 3 || got.Y != 4 || got.L != "p" {
		t.Errorf("decoded struct = %+v", got)
	}

	if _, err := c.Decode([]json.RawMessage{json.RawMessage(`[1,2]`)}); err == nil {
		t.Error("array into struct should fail")
	}
}

func TestDecodePointerStructAcceptsNull(t *testing.T) {
	type opts struct{ N int }
	c, _ := CompileArgs([]reflect.Type{reflect.TypeOf(&opts{})})

	vals, err := c.Decode([]json.RawMessage{json.RawMessage(`null`)})
	if err != nil {
		t.Fatalf("decode null: %v", err)
	}
	if !vals[0].IsNil() {
		t.Error("null should decode to nil pointer")
	}
}

func TestCompileRejectsUnsupported(t *testing.T) {
	_, err := CompileArgs([]reflect.Type{reflect.TypeOf(make(chan int))})
	if err == nil {
		t.Fatal("channel parameter should fail at compile time")
	}
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindUnsupported || e.Phase != errors.PhaseRegister {
		t.Errorf("want [register] unsupported, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	raw, err := Encode(map[string]any{"event": "custom", "data": "ok"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var back map[string]string
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["event"] != "custom" || back["data"] != "ok" {
		t.Errorf("round trip = %v", back)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := Encode(make(chan int))
	if err == nil {
		t.Fatal("channels are not encodable")
	}
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindUnsupported || e.Phase != errors.PhaseEncode {
		t.Errorf("want [encode] unsupported, got %v", err)
	}
}

func TestDecodeRawPassthrough(t *testing.T) {
	c, _ := CompileArgs([]reflect.Type{reflect.TypeOf(json.RawMessage(nil))})
	vals, err := c.Decode([]json.RawMessage{json.RawMessage(`{"keep":"verbatim"}`)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(vals[0].Interface().(json.RawMessage)) != `{"keep":"verbatim"}` {
		t.Errorf("raw passthrough mangled: %s", vals[0].Interface())
	}
}

// errorsAs avoids importing the stdlib errors package under a second name.
func errorsAs(err error, target **errors.Error) bool {
	for err != nil {
		if e, ok := err.(*errors.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
