// Command browse is a terminal demo harness for the webview bridge: the
// stand-in for a browser window with an address bar. It registers the demo
// host functions, launches the headless engine, pumps it where the platform
// requires, and lets you issue bridged calls against a live script context.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/glasspane/webview-runtime/bridge"
	"github.com/glasspane/webview-runtime/engine"
	"github.com/glasspane/webview-runtime/headless"
)

var callID atomic.Uint64

func main() {
	var (
		configPath = flag.String("config", "", "Path to TOML config file")
		moduleFile = flag.String("module", "", "Guest wasm page to load (overrides config)")
		lineOnly   = flag.Bool("line", false, "Force non-interactive line mode")
	)
	flag.Parse()

	if err := run(*configPath, *moduleFile, *lineOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, moduleFile string, lineOnly bool) error {
	ctx := context.Background()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if moduleFile != "" {
		cfg.Headless.Module = moduleFile
	}

	log := buildLogger(cfg.Log)
	defer log.Sync()
	engine.SetLogger(log)

	reg, err := demoRegistry(log)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	var opts []headless.Option
	opts = append(opts, headless.WithLogger(log))
	switch cfg.Headless.Mode {
	case "pump":
		opts = append(opts, headless.WithExternalPump())
	case "self":
		opts = append(opts, headless.WithSelfDrive())
	}
	host, err := headless.New(ctx, reg, opts...)
	if err != nil {
		return fmt.Errorf("create headless host: %w", err)
	}

	eng, err := engine.Launch(host, engine.Settings{})
	if err != nil {
		return fmt.Errorf("launch engine: %w", err)
	}
	defer eng.Close(ctx)

	if eng.NeedsExternalPump() {
		pump, err := eng.StartPump(time.Second / time.Duration(cfg.PumpHz))
		if err != nil {
			return fmt.Errorf("start pump: %w", err)
		}
		defer pump.Stop()
		log.Info("pump running", zap.Int("hz", cfg.PumpHz))
	}

	if cfg.Headless.Module != "" {
		data, err := os.ReadFile(cfg.Headless.Module)
		if err != nil {
			return fmt.Errorf("read page module: %w", err)
		}
		page, err := host.LoadPage(ctx, data)
		if err != nil {
			return fmt.Errorf("load page: %w", err)
		}
		defer page.Close(ctx)
		log.Info("page loaded", zap.String("module", cfg.Headless.Module))
	}

	// The harness drives the bridge through a loopback script context:
	// what a page's script would issue, typed at a prompt instead.
	disp := bridge.NewDispatcher(reg)
	frame := bridge.NewFrame(0, log)
	defer frame.Close()

	envelopes := make(chan bridge.Envelope, 64)
	go func() {
		defer close(envelopes)
		for {
			env, ok := frame.Outbox().Pop()
			if !ok {
				return
			}
			envelopes <- env
		}
	}()

	if !lineOnly && term.IsTerminal(int(os.Stdout.Fd())) {
		return runTUI(&cfg, reg, disp, frame, envelopes)
	}
	return lineMode(reg, disp, frame, envelopes)
}

// buildLogger writes structured logs to a rotated file, keeping stdout free
// for the UI. Without a file, logging is off.
func buildLogger(cfg LogConfig) *zap.Logger {
	if cfg.File == "" {
		return zap.NewNop()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		w,
		level,
	)
	return zap.New(core)
}

// demoRegistry exposes the demo function set pages script against.
func demoRegistry(log *zap.Logger) (*bridge.Registry, error) {
	return bridge.NewBuilder().
		WithLogger(log).
		Register("toUppercase", strings.ToUpper).
		Register("addInt", func(a, b int32) int32 { return a + b }).
		Register("parseInt", func(s string) (int32, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			return int32(n), err
		}).
		RegisterAsync("sleep", func(ms uint64) string {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return "ok"
		}).
		Register("emit", func(frame *bridge.Frame) {
			frame.Emit(map[string]string{"event": "custom", "data": "ok"})
		}).
		Build()
}

// parseCommand splits "name arg arg ..." into a call. Each argument is taken
// verbatim when it is valid JSON and quoted as a string otherwise, so both
// `addInt 2 3` and `toUppercase hello` read naturally.
func parseCommand(line string) (string, []json.RawMessage, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}

	args := make([]json.RawMessage, 0, len(fields)-1)
	for _, f := range fields[1:] {
		if json.Valid([]byte(f)) {
			args = append(args, json.RawMessage(f))
			continue
		}
		quoted, err := json.Marshal(f)
		if err != nil {
			return "", nil, err
		}
		args = append(args, json.RawMessage(quoted))
	}
	return fields[0], args, nil
}

func lineMode(reg *bridge.Registry, disp *bridge.Dispatcher, frame *bridge.Frame, envelopes <-chan bridge.Envelope) error {
	fmt.Printf("Registered functions: %s\n", strings.Join(reg.Names(), ", "))
	fmt.Println("Enter calls as: <name> [args...], e.g. addInt 2 3")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		name, args, err := parseCommand(scanner.Text())
		if err != nil {
			continue
		}
		disp.Dispatch(bridge.CallRequest{
			Name:   name,
			Args:   args,
			ID:     callID.Add(1),
			Origin: frame,
		})
		printEnvelopes(envelopes)
	}
	return scanner.Err()
}

// printEnvelopes prints everything delivered for one call: any events it
// emitted, then its result.
func printEnvelopes(envelopes <-chan bridge.Envelope) {
	for {
		select {
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			switch {
			case env.Result != nil:
				if env.Result.OK() {
					fmt.Printf("ok: %s\n", env.Result.Value)
				} else {
					fmt.Printf("failed: %s\n", env.Result.Err)
				}
				return
			case env.Event != nil:
				fmt.Printf("event: %s\n", env.Event)
			}
		case <-time.After(10 * time.Second):
			fmt.Println("timed out waiting for result")
			return
		}
	}
}
