package bridge

import (
	"sort"

	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/errors"
)

// Spawner schedules one unit of asynchronous work on the host's task
// scheduler. The default spawner runs each task on its own goroutine.
type Spawner func(task func())

// Registry maps function names to handlers. It is immutable after Build and
// shared by reference: every script context sees the same mapping, and
// concurrent lookups need no locking.
type Registry struct {
	handlers map[string]handler
	names    []string
	spawn    Spawner
	log      *zap.Logger
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the sorted registered function names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Builder accumulates (name, handler) pairs and the spawner capability.
// Names are case-sensitive; registering a name twice silently replaces the
// earlier handler, which keeps replacement behavior deterministic for tests.
type Builder struct {
	handlers map[string]handler
	spawn    Spawner
	log      *zap.Logger
	err      error
}

func NewBuilder() *Builder {
	return &Builder{
		handlers: make(map[string]handler),
	}
}

// WithSpawner sets the capability used to schedule async handler work.
func (b *Builder) WithSpawner(s Spawner) *Builder {
	b.spawn = s
	return b
}

// WithLogger sets the logger used for drop-and-log delivery paths.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.log = l
	return b
}

// Register adds a synchronous handler. fn runs inline on whatever goroutine
// the call arrives on: decode, invoke, encode, all before control returns to
// the engine boundary. fn may take *Frame as its first parameter to receive
// the originating script context.
func (b *Builder) Register(name string, fn any) *Builder {
	b.add(name, fn, false)
	return b
}

// RegisterAsync adds an asynchronous handler. Arguments are decoded inline;
// the invocation itself is handed to the spawner and the call completes when
// it resolves. A slow fn delays only its own call.
func (b *Builder) RegisterAsync(name string, fn any) *Builder {
	b.add(name, fn, true)
	return b
}

func (b *Builder) add(name string, fn any, async bool) {
	if name == "" {
		b.fail(errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty"))
		return
	}
	iv, err := compileInvoker(name, fn)
	if err != nil {
		b.fail(errors.Registration(name, err))
		return
	}
	// Last registration wins; the variant is decided here so Build only
	// snapshots.
	if async {
		b.handlers[name] = &asyncHandler{iv: iv}
	} else {
		b.handlers[name] = &syncHandler{iv: iv}
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build produces the immutable registry. The first registration error, if
// any, is returned here rather than where it happened, so registration reads
// as a single fluent chain.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	spawn := b.spawn
	if spawn == nil {
		spawn = func(task func()) { go task() }
	}
	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	handlers := make(map[string]handler, len(b.handlers))
	names := make([]string, 0, len(b.handlers))
	for name, h := range b.handlers {
		if ah, ok := h.(*asyncHandler); ok {
			ah.spawn = spawn
		}
		handlers[name] = h
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{
		handlers: handlers,
		names:    names,
		spawn:    spawn,
		log:      log,
	}, nil
}
