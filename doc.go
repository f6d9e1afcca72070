// Package webviewruntime embeds a browser-rendering engine inside a native
// application and bridges script code running in loaded pages to host-defined
// Go functions.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	webviewruntime/      Root package with the engine Driver boundary
//	├── bridge/          Function registry, call dispatcher, frame handles
//	├── codec/           Value conversion between Go types and script values
//	├── engine/          Engine lifecycle and message loop pumping
//	├── relay/           Unbounded SPSC queue backing pump and delivery
//	├── headless/        wazero-backed headless engine for tests and CI
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Register host functions, launch the engine, and pump where required:
//
//	reg, err := bridge.NewBuilder().
//		Register("addInt", func(a, b int32) int32 { return a + b }).
//		RegisterAsync("sleep", func(ms uint64) string {
//			time.Sleep(time.Duration(ms) * time.Millisecond)
//			return "ok"
//		}).
//		Build()
//
//	eng, err := engine.Launch(driver, engine.Settings{})
//	defer eng.Close(ctx)
//
//	if eng.NeedsExternalPump() {
//		pump, _ := eng.StartPump(engine.DefaultPumpInterval)
//		defer pump.Stop()
//	}
//
// Script-issued calls arrive as bridge.CallRequest values at the dispatcher;
// every request yields exactly one delivery attempt back into its originating
// frame. Handlers may also push unsolicited events into a frame with Emit.
//
// # Thread Safety
//
// Registry is immutable after Build and safe for concurrent lookups without
// locking. Dispatch is safe for concurrent use. A Frame's outbox has exactly
// one consumer: the goroutine owning the engine side of that context.
package webviewruntime
