package asyncsync

// ManualResetEvent is a broadcast gate: once Set, every current and future
// Wait call returns immediately, until Reset puts it back to unsignaled.
// Grounded directly on gate.go's Open/Close/Wait shape, generalized from a
// raw double-buffered semaphore to the cancellable Waiter/WaiterQueue
// backbone so a caller can abandon a Wait without leaking it.
type ManualResetEvent struct {
	resetEventCore
}

// NewManualResetEvent returns a ManualResetEvent in the given initial
// state.
func NewManualResetEvent(initialState, runContinuationsSynchronously bool) *ManualResetEvent {
	return &ManualResetEvent{resetEventCore: newResetEventCore(initialState, runContinuationsSynchronously)}
}

// Set puts the event into the signaled state and wakes every waiter
// currently queued, all at once.
func (e *ManualResetEvent) Set() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.signaled = true
	drained := e.waiters.DrainAll(nil)
	e.mu.Unlock()

	for _, w := range drained {
		if w.tryClaimResult(struct{}{}) {
			dispatchContinuation(e.syncContinuations, w.notify)
		}
		// A concurrently cancelled waiter needs no repair here: unlike
		// Mutex/ReadWriteLock there is no ownership to hand back, just a
		// broadcast that waiter no longer wants.
	}
	return nil
}

// Reset puts the event back into the unsignaled state. It does not affect
// any waiter already granted by a prior Set.
func (e *ManualResetEvent) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	e.signaled = false
	return nil
}

// Wait blocks until the event is signaled or token fires first.
func (e *ManualResetEvent) Wait(token CancelToken) error {
	if token == nil {
		token = None
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.signaled {
		e.mu.Unlock()
		return nil
	}
	if token.IsCancelled() {
		e.mu.Unlock()
		return ErrCancelled
	}

	w := e.pool.get()
	version := w.version.Load()
	e.waiters.PushBack(w)
	w.bindCancellation(token, func() { e.onWaiterCancelled(w) })
	e.mu.Unlock()

	_, err := w.consume(version)
	return err
}

func (e *ManualResetEvent) onWaiterCancelled(w *Waiter[struct{}]) {
	e.mu.Lock()
	e.waiters.Remove(w)
	e.mu.Unlock()
}

// Dispose marks the event disposed. See resetEventCore.dispose.
func (e *ManualResetEvent) Dispose() { e.dispose() }
