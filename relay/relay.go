package relay

import "sync"

// Relay is an unbounded queue decoupling one producer from one consumer.
// Push never blocks; Pop blocks until an item arrives or the relay is closed
// and drained. A closed relay still yields its backlog, so no item pushed
// before Close is lost.
type Relay[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func New[T any]() *Relay[T] {
	r := &Relay[T]{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push appends v to the backlog. It reports false if the relay is closed;
// the item is discarded in that case.
func (r *Relay[T]) Push(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.items = append(r.items, v)
	r.cond.Signal()
	return true
}

// Pop removes and returns the oldest item, blocking while the relay is open
// and empty. It reports false once the relay is closed and fully drained.
func (r *Relay[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.items) == 0 && !r.closed {
		r.cond.Wait()
	}

	var zero T
	if len(r.items) == 0 {
		return zero, false
	}

	v := r.items[0]
	r.items[0] = zero
	r.items = r.items[1:]
	return v, true
}

// TryPop removes and returns the oldest item without blocking.
func (r *Relay[T]) TryPop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if len(r.items) == 0 {
		return zero, false
	}

	v := r.items[0]
	r.items[0] = zero
	r.items = r.items[1:]
	return v, true
}

// Len returns the current backlog size.
func (r *Relay[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close marks the relay closed and wakes any blocked consumer. Items already
// queued remain poppable; further pushes are rejected. Close is idempotent.
func (r *Relay[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (r *Relay[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
