package headless

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glasspane/webview-runtime/bridge"
)

func testRegistry(t *testing.T) *bridge.Registry {
	t.Helper()
	reg, err := bridge.NewBuilder().
		Register("addInt", func(a, b int32) int32 { return a + b }).
		RegisterAsync("sleep", func(ms uint64) string {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return "ok"
		}).
		Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func TestNewAndClose(t *testing.T) {
	ctx := context.Background()
	h, err := New(ctx, testRegistry(t))
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestPumpModes(t *testing.T) {
	ctx := context.Background()

	pumped, err := New(ctx, testRegistry(t), WithExternalPump())
	if err != nil {
		t.Fatalf("create pumped host: %v", err)
	}
	defer pumped.Close(ctx)
	if !pumped.NeedsExternalPump() {
		t.Error("WithExternalPump host should require pumping")
	}

	driven, err := New(ctx, testRegistry(t), WithSelfDrive())
	if err != nil {
		t.Fatalf("create self-driving host: %v", err)
	}
	defer driven.Close(ctx)
	if driven.NeedsExternalPump() {
		t.Error("WithSelfDrive host should not require pumping")
	}
}

func TestWorkRunsOnlyInsideDoMessageWork(t *testing.T) {
	ctx := context.Background()
	h, err := New(ctx, testRegistry(t), WithExternalPump())
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	defer h.Close(ctx)

	var ran atomic.Int32
	h.schedule(func() { ran.Add(1) })
	h.schedule(func() { ran.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if n := ran.Load(); n != 0 {
		t.Fatalf("%d work units ran before DoMessageWork", n)
	}

	h.DoMessageWork()
	if n := ran.Load(); n != 2 {
		t.Errorf("DoMessageWork drained %d of 2 units", n)
	}
}

func TestSelfDriveRunsWorkWithoutPump(t *testing.T) {
	ctx := context.Background()
	h, err := New(ctx, testRegistry(t), WithSelfDrive())
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	defer h.Close(ctx)

	done := make(chan struct{})
	h.schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("self-driving host never ran scheduled work")
	}
}

func TestLoadPageRejectsModuleWithoutBridgeExports(t *testing.T) {
	ctx := context.Background()
	h, err := New(ctx, testRegistry(t), WithSelfDrive())
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	defer h.Close(ctx)

	// Minimal empty wasm module: magic + version, no exports.
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if _, err := h.LoadPage(ctx, empty); err == nil {
		t.Error("page without bridge exports should be refused")
	}
}

// TestGuestRoundTrip exercises the full path: a guest wasm module calling
// addInt through webview_bridge.invoke and receiving the result via
// on_result. The guest binary is a prebuilt testbed artifact.
func TestGuestRoundTrip(t *testing.T) {
	data, err := os.ReadFile("../testbed/bridge_demo.wasm")
	if err != nil {
		t.Skip("bridge_demo.wasm not found in testbed - this test requires a guest module")
	}

	ctx := context.Background()
	h, err := New(ctx, testRegistry(t), WithSelfDrive())
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	defer h.Close(ctx)

	page, err := h.LoadPage(ctx, data)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	defer page.Close(ctx)

	// The demo guest's run export issues addInt(2,3) and an emit() call.
	// emit is not registered here, so the guest must observe two result
	// deliveries: one success and one unknown-function failure.
	if _, err := page.Run(ctx, "run"); err != nil {
		t.Fatalf("run guest: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		out, err := page.Run(ctx, "result_count")
		if err != nil {
			t.Fatalf("read result count: %v", err)
		}
		if uint32(out[0]) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("guest never observed both results, count %d", uint32(out[0]))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResultWireShape(t *testing.T) {
	wire := resultWire{ID: 7, OK: true, Value: json.RawMessage("5")}
	payload, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(payload, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["id"].(float64) != 7 || back["ok"] != true || back["value"].(float64) != 5 {
		t.Errorf("wire shape = %v", back)
	}
	if _, present := back["error"]; present {
		t.Error("empty error should be omitted from the wire")
	}
}
