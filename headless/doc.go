// Package headless provides a wazero-backed stand-in for the native webview
// engine, for environments where no browser library is linked: unit tests,
// CI, and the demo harness.
//
// Pages are WebAssembly guest modules. A guest issues bridged calls through
// the webview_bridge host module's invoke import and receives results and
// events through its own on_result/on_event exports, correlated by call id.
// All values crossing the boundary are JSON.
//
// The host implements the engine Driver boundary, including the platform
// split: pump-driven on Linux (engine work runs inside DoMessageWork),
// self-driving elsewhere. Options force either mode for tests.
package headless
