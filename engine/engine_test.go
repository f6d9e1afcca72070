package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDriver counts message work and detects overlapping invocations.
type fakeDriver struct {
	pumped  bool
	delay   time.Duration
	work    atomic.Uint64
	busy    atomic.Int32
	overlap atomic.Bool
	closed  atomic.Bool
}

func (d *fakeDriver) DoMessageWork() {
	if d.busy.Add(1) != 1 {
		d.overlap.Store(true)
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.work.Add(1)
	d.busy.Add(-1)
}

func (d *fakeDriver) NeedsExternalPump() bool { return d.pumped }

func (d *fakeDriver) Close(context.Context) error {
	d.closed.Store(true)
	return nil
}

func TestLaunchLifecycle(t *testing.T) {
	ctx := context.Background()
	drv := &fakeDriver{pumped: true}

	eng, err := Launch(drv, Settings{CachePath: "/tmp/cache"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if eng.Settings().CachePath != "/tmp/cache" {
		t.Errorf("settings lost: %+v", eng.Settings())
	}
	if !eng.NeedsExternalPump() {
		t.Error("engine should reflect driver pump requirement")
	}

	if _, err := Launch(&fakeDriver{}, Settings{}); err == nil {
		t.Error("second launch in one process should fail")
	}

	if err := eng.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !drv.closed.Load() {
		t.Error("driver not shut down")
	}
	if err := eng.Close(ctx); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	// Launch slot released: a new engine may come up.
	eng2, err := Launch(&fakeDriver{}, Settings{})
	if err != nil {
		t.Fatalf("relaunch after close: %v", err)
	}
	eng2.Close(ctx)
}

func TestLaunchNilDriver(t *testing.T) {
	if _, err := Launch(nil, Settings{}); err == nil {
		t.Fatal("nil driver should be refused")
	}
}

func TestStartPumpOnSelfDrivingEngine(t *testing.T) {
	ctx := context.Background()
	eng, err := Launch(&fakeDriver{pumped: false}, Settings{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer eng.Close(ctx)

	if _, err := eng.StartPump(DefaultPumpInterval); err == nil {
		t.Error("pumping a self-driving engine should be refused")
	}
}

func TestPumpCadence(t *testing.T) {
	ctx := context.Background()
	drv := &fakeDriver{pumped: true}
	eng, err := Launch(drv, Settings{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer eng.Close(ctx)

	pump, err := eng.StartPump(DefaultPumpInterval)
	if err != nil {
		t.Fatalf("start pump: %v", err)
	}
	if _, err := eng.StartPump(DefaultPumpInterval); err == nil {
		t.Error("second pump should be refused")
	}

	time.Sleep(time.Second)
	pump.Stop()

	// 60 Hz over one second, with generous scheduling tolerance.
	produced := pump.Produced()
	if produced < 40 || produced > 80 {
		t.Errorf("produced %d ticks over 1s at 60 Hz", produced)
	}
	if consumed := pump.Consumed(); consumed != produced {
		t.Errorf("consumed %d of %d ticks: progress lost", consumed, produced)
	}
	if got := drv.work.Load(); got != produced {
		t.Errorf("driver did %d work units for %d ticks", got, produced)
	}
	if drv.overlap.Load() {
		t.Error("DoMessageWork invocations overlapped")
	}
}

func TestPumpBacklogQueuesInsteadOfDropping(t *testing.T) {
	ctx := context.Background()
	drv := &fakeDriver{pumped: true, delay: 5 * time.Millisecond}
	eng, err := Launch(drv, Settings{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer eng.Close(ctx)

	// Producer at 1ms outpaces a 5ms consumer; ticks must queue, not drop.
	pump, err := eng.StartPump(time.Millisecond)
	if err != nil {
		t.Fatalf("start pump: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	pump.Stop()

	if pump.Consumed() != pump.Produced() {
		t.Errorf("consumed %d of %d produced ticks after drain",
			pump.Consumed(), pump.Produced())
	}
	if drv.overlap.Load() {
		t.Error("slow work units overlapped")
	}
}

func TestPumpStopIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, err := Launch(&fakeDriver{pumped: true}, Settings{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer eng.Close(ctx)

	pump, err := eng.StartPump(time.Millisecond)
	if err != nil {
		t.Fatalf("start pump: %v", err)
	}
	pump.Stop()
	pump.Stop()
}

func TestCloseStopsPump(t *testing.T) {
	eng, err := Launch(&fakeDriver{pumped: true}, Settings{})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if _, err := eng.StartPump(time.Millisecond); err != nil {
		t.Fatalf("start pump: %v", err)
	}
	if err := eng.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := eng.StartPump(time.Millisecond); err == nil {
		t.Error("pump on closed engine should be refused")
	}
}
