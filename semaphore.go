package asyncsync

// Semaphore is an asynchronous, FIFO-fair counting semaphore: up to N
// permits may be held concurrently, and queued acquirers are granted a
// permit in the order they called Acquire. It supersedes the teacher's
// earlier pairing of a Dijkstra-style Semaphore plus a separate
// FairSemaphore for the FIFO case: once acquisition goes through the
// cancellable WaiterQueue backbone, FIFO ordering is the queue's own
// invariant rather than something a second type needs to add, so a single
// Semaphore now covers both. It is Mutex generalized from a boolean active
// flag to an integer permit count.
type Semaphore struct {
	_ noCopy

	mu      TicketLock
	permits int64

	waiters WaiterQueue[struct{}]
	pool    *WaiterPool[struct{}]

	syncContinuations bool
}

// NewSemaphore returns a Semaphore with the given number of initial
// permits.
func NewSemaphore(initialPermits int64, runContinuationsSynchronously bool) *Semaphore {
	if initialPermits < 0 {
		misuse("semaphore initial permits must not be negative")
	}
	return &Semaphore{
		permits:           initialPermits,
		pool:              NewWaiterPool[struct{}](),
		syncContinuations: runContinuationsSynchronously,
	}
}

// Acquire takes one permit, blocking until one is available or token fires
// first.
func (s *Semaphore) Acquire(token CancelToken) (*Releaser, error) {
	if token == nil {
		token = None
	}
	if token.IsCancelled() {
		return nil, ErrCancelled
	}

	s.mu.Lock()
	if s.permits > 0 {
		s.permits--
		s.mu.Unlock()
		r := newReleaser(s.release)
		return &r, nil
	}

	w := s.pool.get()
	version := w.version.Load()
	s.waiters.PushBack(w)
	w.bindCancellation(token, func() { s.onWaiterCancelled(w) })
	s.mu.Unlock()

	if _, err := w.consume(version); err != nil {
		return nil, err
	}
	r := newReleaser(s.release)
	return &r, nil
}

// TryAcquire takes one permit without blocking, reporting whether one was
// available.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}

func (s *Semaphore) release() {
	s.mu.Lock()
	w := s.waiters.PopFront()
	if w == nil {
		s.permits++
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.grant(w)
}

func (s *Semaphore) grant(w *Waiter[struct{}]) {
	if w.tryClaimResult(struct{}{}) {
		dispatchContinuation(s.syncContinuations, w.notify)
		return
	}
	// Lost the claim race to a concurrent cancellation, which owns repair.
}

func (s *Semaphore) onWaiterCancelled(w *Waiter[struct{}]) {
	s.mu.Lock()
	if s.waiters.Remove(w) {
		s.mu.Unlock()
		return
	}
	// Already dequeued by a concurrent release that lost the claim race:
	// hand the permit it would have granted to the next queued waiter, or
	// return it to the count if none is queued.
	next := s.waiters.PopFront()
	if next == nil {
		s.permits++
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.grant(next)
}
