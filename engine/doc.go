// Package engine owns the lifecycle of the process-global embedded browser
// engine and its message pump.
//
// The engine's internal message loop is process-wide state. It is modeled as
// a single owned handle with explicit lifecycle, never ambient:
//
//	eng, err := engine.Launch(driver, engine.Settings{})
//	defer eng.Close(ctx)
//
//	if eng.NeedsExternalPump() {
//		pump, _ := eng.StartPump(engine.DefaultPumpInterval)
//		defer pump.Stop()
//	}
//
// Whether pumping is required is platform-dependent: some platforms need the
// host to call the engine's "do pending work" primitive at a fixed cadence,
// others self-drive. The driver answers that question once at startup.
//
// The pump decouples tick production from tick consumption through an
// unbounded relay, so a slow work unit delays later ticks but never blocks
// the timer goroutine or loses forward progress.
package engine
