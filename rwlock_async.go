package asyncsync

// ReadWriteLock is an asynchronous, writer-preferring reader/writer lock:
// any number of readers may hold it concurrently, a writer holds it
// exclusively, and once a writer is queued or active, newly arriving
// readers queue behind it rather than jumping ahead — starving writers is
// the one thing this lock refuses to do. Grounded on rwlock_group.go's
// refcounted admission shape (there keyed per-entry; here the bare
// primitive) and rw_lock.go's writer-preference bit-packing, translated
// from a spin loop to the queue-wait every primitive in this package uses.
type ReadWriteLock struct {
	_ noCopy

	mu           TicketLock
	readerCount  int64
	writerActive bool

	readerQueue WaiterQueue[struct{}]
	writerQueue WaiterQueue[struct{}]
	pool        *WaiterPool[struct{}]

	syncReaderContinuations bool
	syncWriterContinuations bool
}

// NewReadWriteLock returns an unheld ReadWriteLock. The two continuation
// flags are configured independently, since waking a batch of readers and
// waking a single writer are different enough workloads that a caller may
// want different policies for each.
func NewReadWriteLock(syncReaderContinuations, syncWriterContinuations bool) *ReadWriteLock {
	return &ReadWriteLock{
		pool:                    NewWaiterPool[struct{}](),
		syncReaderContinuations: syncReaderContinuations,
		syncWriterContinuations: syncWriterContinuations,
	}
}

// EnterReader acquires a shared (read) hold.
func (l *ReadWriteLock) EnterReader(token CancelToken) (*Releaser, error) {
	if token == nil {
		token = None
	}
	if token.IsCancelled() {
		return nil, ErrCancelled
	}

	l.mu.Lock()
	if !l.writerActive && l.writerQueue.Empty() {
		l.readerCount++
		l.mu.Unlock()
		r := newReleaser(l.releaseReader)
		return &r, nil
	}

	w := l.pool.get()
	w.class = classReader
	version := w.version.Load()
	l.readerQueue.PushBack(w)
	w.bindCancellation(token, func() { l.onWaiterCancelled(w) })
	l.mu.Unlock()

	if _, err := w.consume(version); err != nil {
		return nil, err
	}
	r := newReleaser(l.releaseReader)
	return &r, nil
}

// EnterWriter acquires an exclusive (write) hold.
func (l *ReadWriteLock) EnterWriter(token CancelToken) (*Releaser, error) {
	if token == nil {
		token = None
	}
	if token.IsCancelled() {
		return nil, ErrCancelled
	}

	l.mu.Lock()
	if !l.writerActive && l.readerCount == 0 {
		l.writerActive = true
		l.mu.Unlock()
		r := newReleaser(l.releaseWriter)
		return &r, nil
	}

	w := l.pool.get()
	w.class = classWriter
	version := w.version.Load()
	l.writerQueue.PushBack(w)
	w.bindCancellation(token, func() { l.onWaiterCancelled(w) })
	l.mu.Unlock()

	if _, err := w.consume(version); err != nil {
		return nil, err
	}
	r := newReleaser(l.releaseWriter)
	return &r, nil
}

func (l *ReadWriteLock) releaseReader() {
	l.mu.Lock()
	l.readerCount--
	l.afterReleaseLocked()
}

func (l *ReadWriteLock) releaseWriter() {
	l.mu.Lock()
	l.writerActive = false
	l.afterReleaseLocked()
}

// afterReleaseLocked runs the admission-selection algorithm. Called with
// l.mu held; it unlocks before returning. Writer preference falls out of
// checking the writer queue before the reader queue.
func (l *ReadWriteLock) afterReleaseLocked() {
	if l.writerActive {
		l.mu.Unlock()
		return
	}
	if l.readerCount == 0 {
		if w := l.writerQueue.PopFront(); w != nil {
			l.writerActive = true
			l.mu.Unlock()
			l.grant(w)
			return
		}
	}
	if l.writerQueue.Empty() && !l.readerQueue.Empty() {
		drained := l.readerQueue.DrainAll(nil)
		l.readerCount += int64(len(drained))
		l.mu.Unlock()
		for _, w := range drained {
			l.grant(w)
		}
		return
	}
	l.mu.Unlock()
}

func (l *ReadWriteLock) grant(w *Waiter[struct{}]) {
	if w.tryClaimResult(struct{}{}) {
		sync := l.syncReaderContinuations
		if w.class == classWriter {
			sync = l.syncWriterContinuations
		}
		dispatchContinuation(sync, w.notify)
		return
	}
	// Lost the claim race to a concurrent cancellation, which owns repair.
}

func (l *ReadWriteLock) onWaiterCancelled(w *Waiter[struct{}]) {
	var q *WaiterQueue[struct{}]
	if w.class == classReader {
		q = &l.readerQueue
	} else {
		q = &l.writerQueue
	}

	l.mu.Lock()
	if q.Remove(w) {
		l.mu.Unlock()
		return
	}
	// Already dequeued by a concurrent release, which tentatively admitted
	// it before losing the claim race: repair the counter that release
	// optimistically updated, then re-run selection for the freed slot.
	if w.class == classReader {
		l.readerCount--
	} else {
		l.writerActive = false
	}
	l.afterReleaseLocked()
}
