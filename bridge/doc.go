// Package bridge implements the native-function call bridge between host Go
// code and script running inside the embedded engine.
//
// A Registry exposes host functions under case-sensitive string names. It is
// built once at startup and shared, read-only, by every script context:
//
//	reg, err := bridge.NewBuilder().
//		WithSpawner(func(task func()) { pool.Submit(task) }).
//		Register("toUppercase", strings.ToUpper).
//		Register("addInt", func(a, b int32) int32 { return a + b }).
//		Register("parseInt", func(s string) (int32, error) {
//			n, err := strconv.ParseInt(s, 10, 32)
//			return int32(n), err
//		}).
//		RegisterAsync("sleep", func(ms uint64) string {
//			time.Sleep(time.Duration(ms) * time.Millisecond)
//			return "ok"
//		}).
//		Register("emit", func(frame *bridge.Frame) {
//			frame.Emit(map[string]string{"event": "custom", "data": "ok"})
//		}).
//		Build()
//
// The Dispatcher consumes CallRequests surfaced by the engine boundary and
// guarantees that every request yields exactly one delivery attempt: a
// success, a structured failure, or a logged drop when the originating
// context no longer exists. Results never cross call ids.
//
// Handler signatures are compiled once at registration into decode/invoke/
// encode glue; decoding failures fail the call before the handler runs.
// Synchronous handlers run inline on the calling goroutine and must not block
// it unboundedly. Asynchronous handlers are scheduled through the registry's
// spawner; a slow async handler delays only its own call. The bridge enforces
// no timeouts: a handler wanting bounded latency builds its own.
package bridge
