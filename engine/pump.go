package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/glasspane/webview-runtime/relay"
)

// Pump cooperatively interleaves the engine's required periodic message
// processing with the host scheduler. A background timer produces ticks into
// an unbounded relay; a single consumer goroutine performs one DoMessageWork
// call per tick, serially, in enqueue order. If the consumer falls behind,
// ticks queue rather than drop: total forward progress is preserved at the
// cost of real-time pacing, which is acceptable since one work unit is cheap.
type Pump struct {
	ticks *relay.Relay[struct{}]

	stopOnce     sync.Once
	stopProducer chan struct{}
	consumerDone chan struct{}

	produced atomic.Uint64
	consumed atomic.Uint64
}

func startPump(e *Engine, interval time.Duration) *Pump {
	p := &Pump{
		ticks:        relay.New[struct{}](),
		stopProducer: make(chan struct{}),
		consumerDone: make(chan struct{}),
	}

	go p.produce(interval)
	go p.consume(e)

	Logger().Debug("pump started", zap.Duration("interval", interval))
	return p
}

func (p *Pump) produce(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !p.ticks.Push(struct{}{}) {
				return
			}
			p.produced.Add(1)
		case <-p.stopProducer:
			return
		}
	}
}

// consume terminates only on relay closure. Draining the backlog before
// exiting keeps the forward-progress count intact.
func (p *Pump) consume(e *Engine) {
	defer close(p.consumerDone)

	for {
		_, ok := p.ticks.Pop()
		if !ok {
			return
		}
		e.DoMessageWork()
		p.consumed.Add(1)
	}
}

// Stop halts tick production, lets the consumer drain the backlog and waits
// for it to exit. Safe to call more than once.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopProducer)
		p.ticks.Close()
		<-p.consumerDone
		Logger().Debug("pump stopped",
			zap.Uint64("produced", p.produced.Load()),
			zap.Uint64("consumed", p.consumed.Load()))
	})
}

// Produced returns the number of ticks enqueued so far.
func (p *Pump) Produced() uint64 {
	return p.produced.Load()
}

// Consumed returns the number of DoMessageWork calls performed so far.
func (p *Pump) Consumed() uint64 {
	return p.consumed.Load()
}

// Backlog returns the ticks queued but not yet consumed.
func (p *Pump) Backlog() int {
	return p.ticks.Len()
}
