package asyncsync

// AutoResetEvent wakes at most one waiter per Set call: if a waiter is
// queued, Set hands it the signal directly and the event stays unsignaled;
// otherwise the signal is stored and consumed by the next Wait. Grounded on
// pulse.go/latch.go's "wakes at most one, generation-style" semantics,
// generalized to the cancellable backbone.
//
// The canonical subtlety this primitive has to get right is the race
// between a Set that is choosing a waiter to hand the signal to and a Wait
// that is simultaneously deciding whether to consume a stored signal or
// enqueue itself. Set resolves it with the iterative form: pop a head and
// try to claim it; if that waiter was independently claimed by a
// cancellation in the same instant, move on to the next head rather than
// recursing. This package's uniform critical section (every primitive's
// state flags and queue share one TicketLock) removes the separate
// "re-check after enqueue" step a lock-free implementation needs: Wait's
// signaled check and its enqueue are one atomic section here, so no Set can
// land in the gap between them, and there is nothing left to re-check.
type AutoResetEvent struct {
	resetEventCore
}

// NewAutoResetEvent returns an AutoResetEvent in the given initial state.
func NewAutoResetEvent(initialState, runContinuationsSynchronously bool) *AutoResetEvent {
	return &AutoResetEvent{resetEventCore: newResetEventCore(initialState, runContinuationsSynchronously)}
}

// Set signals the event. If a waiter is queued, exactly one is woken and
// the event remains unsignaled; otherwise the signal is stored for the next
// Wait.
func (e *AutoResetEvent) Set() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}

	for {
		w := e.waiters.PopFront()
		if w == nil {
			break
		}
		e.mu.Unlock()
		if w.tryClaimResult(struct{}{}) {
			dispatchContinuation(e.syncContinuations, w.notify)
			return nil
		}
		// This head lost its claim to a concurrent cancellation; try the
		// next one instead of recursing back into Set.
		e.mu.Lock()
	}

	// No head was claimable: either the queue was empty, or every head
	// lost its race to cancellation. Either way, store the signal.
	e.signaled = true
	e.mu.Unlock()
	return nil
}

// Wait blocks until the event is signaled or token fires first. A
// successful Wait always consumes exactly one signal.
func (e *AutoResetEvent) Wait(token CancelToken) error {
	if token == nil {
		token = None
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.signaled {
		e.signaled = false
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

func (e *AutoResetEvent) onWaiterCancelled(w *Waiter[struct{}]) {
	e.mu.Lock()
	e.waiters.Remove(w)
	e.mu.Unlock()
}

// Dispose marks the event disposed. See resetEventCore.dispose.
func (e *AutoResetEvent) Dispose() { e.dispose() }
