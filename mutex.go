package asyncsync

// Mutex is an exclusive, asynchronous, FIFO-fair lock: at most one caller
// holds it at a time, and queued callers are granted it in the order they
// called Enter. Grounded on fair_semaphore.go's TicketLock-guarded queue of
// parked waiters, generalized from an n-permit counter down to the single
// boolean active flag a mutex needs.
type Mutex struct {
	_ noCopy

	mu     TicketLock
	active bool

	waiters WaiterQueue[struct{}]
	pool    *WaiterPool[struct{}]

	syncContinuations bool
}

// NewMutex returns an unheld Mutex. runContinuationsSynchronously controls
// whether a waiting caller is woken inline on the releasing goroutine
// (true) or on a freshly spawned goroutine (false, the default most callers
// want).
func NewMutex(runContinuationsSynchronously bool) *Mutex {
	return &Mutex{
		pool:              NewWaiterPool[struct{}](),
		syncContinuations: runContinuationsSynchronously,
	}
}

// Enter acquires the lock, blocking the calling goroutine until it is
// granted or token fires first. A nil token behaves like None.
func (m *Mutex) Enter(token CancelToken) (*Releaser, error) {
	if token == nil {
		token = None
	}
	if token.IsCancelled() {
		return nil, ErrCancelled
	}

	m.mu.Lock()
	if !m.active {
		m.active = true
		m.mu.Unlock()
		r := newReleaser(m.release)
		return &r, nil
	}

	w := m.pool.get()
	version := w.version.Load()
	m.waiters.PushBack(w)
	w.bindCancellation(token, func() { m.onWaiterCancelled(w) })
	m.mu.Unlock()

	if _, err := w.consume(version); err != nil {
		return nil, err
	}
	r := newReleaser(m.release)
	return &r, nil
}

// release hands the lock to the next queued waiter, or marks it unheld if
// the queue is empty. Called as the Releaser's Dispose callback.
func (m *Mutex) release() {
	m.mu.Lock()
	m.releaseNextLocked()
}

// releaseNextLocked runs with m.mu held and unlocks before returning.
func (m *Mutex) releaseNextLocked() {
	w := m.waiters.PopFront()
	if w == nil {
		m.active = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.grant(w)
}

func (m *Mutex) grant(w *Waiter[struct{}]) {
	if w.tryClaimResult(struct{}{}) {
		dispatchContinuation(m.syncContinuations, w.notify)
		return
	}
	// A concurrent cancellation already claimed this waiter and, per
	// onWaiterCancelled below, owns repairing the lock's state; nothing
	// further to do here.
}

// onWaiterCancelled runs from w's cancellation callback after it has
// already won the claimed CAS.
func (m *Mutex) onWaiterCancelled(w *Waiter[struct{}]) {
	m.mu.Lock()
	if m.waiters.Remove(w) {
		m.mu.Unlock()
		return
	}
	// w was already popped by a concurrent release, which then lost the
	// claim race to this cancellation: the lock is effectively unowned
	// even though active is still true. Select the next waiter exactly as
	// a normal release would.
	m.releaseNextLocked()
}
