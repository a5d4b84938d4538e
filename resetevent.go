package asyncsync

// resetEventCore is the state and queue shared by ManualResetEvent and
// AutoResetEvent: a signaled flag, a FIFO queue of parked waiters, and a
// disposed flag. The two event types differ only in what Set and Wait do
// with that shared state — grounded on gate.go ("Open wakes everyone, stays
// open") for the manual variant and pulse.go/latch.go ("wakes at most one,
// generation-style") for the auto variant — so the core lives in one place
// and each variant is a thin set of methods over it.
type resetEventCore struct {
	_ noCopy

	mu       TicketLock
	signaled bool
	disposed bool

	waiters WaiterQueue[struct{}]
	pool    *WaiterPool[struct{}]

	syncContinuations bool
}

func newResetEventCore(initialState, runContinuationsSynchronously bool) resetEventCore {
	return resetEventCore{
		signaled:          initialState,
		pool:              NewWaiterPool[struct{}](),
		syncContinuations: runContinuationsSynchronously,
	}
}

// IsSet reports whether the event is currently in the signaled state.
func (c *resetEventCore) IsSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signaled
}

// dispose marks the event disposed. Waiters already parked in the queue at
// the moment of disposal are left exactly as they are — suspended forever,
// matching the behavior of an OS-level reset event whose handle is closed
// out from under a pending wait. Only new calls observe ErrDisposed; the
// idle waiter pool is dropped since nothing will ever rent from it again.
func (c *resetEventCore) dispose() {
	c.mu.Lock()
	c.disposed = true
	c.pool = nil
	c.mu.Unlock()
}
