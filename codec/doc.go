// Package codec converts values between the host's native Go types and the
// script-neutral representation crossing the embedded-engine boundary.
//
// The script-neutral form is JSON. Encoding takes any marshalable Go value;
// decoding is driven by a compiled ArgsCodec built once per handler
// registration from the handler's parameter types, so no per-call signature
// reflection happens on the dispatch path.
//
// Shape mismatches produce structured decode errors carrying the expected Go
// type and the actual script-side shape:
//
//	[decode] type_mismatch at arg[0]: Go type int32, script shape string
//
// Integers are parsed through their textual JSON form rather than float64,
// so the full uint64/int64 range round-trips without precision loss.
package codec
