package asyncsync

import "sync/atomic"

// WaiterPool is a lock-free Treiber stack of idle Waiters, reused across
// acquisitions so steady-state use allocates nothing once warmed up. This
// mirrors the teacher's preference for a single CAS loop over a mutex in its
// own event primitives (Gate, Latch, Pulse all park a packed state word
// behind one CAS rather than a lock), generalized here to a pointer-stack
// free list rather than a bitfield.
//
// Every queueing primitive (Mutex, ReadWriteLock, Semaphore and both reset
// events) owns one WaiterPool and goes through its CAS loop: get is called
// while the primitive's critical section is held, and put is called from
// Waiter.consume after the caller wakes, outside any lock.
type WaiterPool[R any] struct {
	top atomic.Pointer[Waiter[R]]
}

// NewWaiterPool returns an empty pool.
func NewWaiterPool[R any]() *WaiterPool[R] {
	return &WaiterPool[R]{}
}

// get pops an idle Waiter, or allocates a fresh one if the pool is empty.
func (p *WaiterPool[R]) get() *Waiter[R] {
	for {
		top := p.top.Load()
		if top == nil {
			return &Waiter[R]{pool: p}
		}
		next := top.poolNext()
		if p.top.CompareAndSwap(top, next) {
			top.setPoolNext(nil)
			return top
		}
	}
}

// put returns w to the pool for reuse. w must not be queued or otherwise
// reachable from anywhere else.
func (p *WaiterPool[R]) put(w *Waiter[R]) {
	for {
		top := p.top.Load()
		w.setPoolNext(top)
		if p.top.CompareAndSwap(top, w) {
			return
		}
	}
}
