package asyncsync

import (
	"sync/atomic"

	"github.com/coopsync/asyncsync/internal/opt"
)

// waiterClass tags which admission class a parked waiter belongs to. Only
// ReadWriteLock uses more than classNone; it lets the release algorithm tell
// readers and writers apart without a type switch.
type waiterClass uint8

const (
	classNone waiterClass = iota
	classReader
	classWriter
)

// Waiter is one parked caller: a single-consumer, single-producer slot that
// is delivered exactly once, by whichever of {the primitive granting a
// result} or {the caller's token cancelling} wins a CAS, then returned to its
// pool. It is the one parked-waiter shape every primitive in this package
// queues.
//
// Parking uses opt.Sema (the teacher's runtime_Semacquire/Semrelease
// wrapper) rather than a fresh channel per acquisition: the semaphore field
// is reused across pool cycles at no cost, where a chan struct{} would need
// reallocating every time since a closed channel can't be reopened. Exactly
// one of the grant path or the cancellation path calls Release, decided by
// the claimed CAS below; the consumer's single Acquire unblocks on whichever
// one wins.
type Waiter[R any] struct {
	_ noCopy

	pool *WaiterPool[R]

	// version guards against a caller's captured rental being consumed
	// twice, or consumed after the Waiter has been recycled to a new
	// caller; see seq_lock.go's odd/even counter for the idiom this
	// generalizes.
	version atomic.Uint64

	// claimed arbitrates which of {grant, cancel} delivers the outcome.
	claimed atomic.Uint32
	// consuming arbitrates a single in-flight consume() call per rental,
	// independent of claimed (claimed is about who produces the result;
	// consuming is about who is allowed to wait for and consume it).
	consuming atomic.Bool

	class waiterClass

	sema opt.Sema

	result R
	err    error

	reg CancelRegistration

	// next/prev link this Waiter into its owning WaiterQueue. The same
	// next field doubles as the free-list link when the Waiter sits in a
	// WaiterPool instead, since a Waiter is never in both at once.
	next, prev *Waiter[R]
	inQueue    bool

	_ [opt.CacheLineSize_]byte
}

// poolNext/setPoolNext give the pool its own name for the reused next
// field, so waiterpool.go reads like it's using a field that belongs to it;
// waiterqueue.go uses next directly.
func (w *Waiter[R]) poolNext() *Waiter[R]     { return w.next }
func (w *Waiter[R]) setPoolNext(n *Waiter[R]) { w.next = n }

// tryClaimResult attempts to deliver r as this Waiter's outcome. It returns
// false if the claim was already taken, by either a concurrent grant or a
// concurrent cancellation.
func (w *Waiter[R]) tryClaimResult(r R) bool {
	if w.claimed.CompareAndSwap(0, 1) {
		w.result = r
		return true
	}
	return false
}

// tryClaimCancel attempts to deliver err as this Waiter's outcome, invoked
// from a cancellation-token callback.
func (w *Waiter[R]) tryClaimCancel(err error) bool {
	if w.claimed.CompareAndSwap(0, 1) {
		w.err = err
		return true
	}
	return false
}

// notify wakes the goroutine blocked in consume. Must be called exactly
// once, only after winning the claimed CAS above.
func (w *Waiter[R]) notify() {
	w.sema.Release()
}

// bindCancellation registers onCancelled to run if token fires before this
// Waiter is otherwise claimed. onCancelled is responsible for removing the
// Waiter from whatever queue it sits in and repairing any state the owning
// primitive had tentatively updated. A token that can never be cancelled
// (None, or a context with no Done channel) costs nothing here.
func (w *Waiter[R]) bindCancellation(token CancelToken, onCancelled func()) {
	if token == nil || !token.CanBeCancelled() {
		return
	}
	w.reg = token.Register(func() {
		if w.tryClaimCancel(ErrCancelled) {
			w.notify()
			onCancelled()
		}
	})
}

// consume blocks until this Waiter's outcome is delivered, then resets and
// returns the Waiter to its pool. It must be called exactly once per
// rental, with the version captured at rental time; a mismatched version,
// or a second concurrent call, is a programmer error.
func (w *Waiter[R]) consume(version uint64) (R, error) {
	if w.version.Load() != version || !w.consuming.CompareAndSwap(false, true) {
		misuse("waiter result consumed more than once")
	}

	w.sema.Acquire()
	result, err := w.result, w.err

	if w.reg != nil {
		w.reg.Unregister()
		w.reg = nil
	}

	w.reset()
	if p := w.pool; p != nil {
		p.put(w)
	}

	return result, err
}

// reset clears a Waiter for its next rental and bumps version so a stale
// version captured by a previous rental is rejected by consume.
func (w *Waiter[R]) reset() {
	var zero R
	w.result = zero
	w.err = nil
	w.class = classNone
	w.claimed.Store(0)
	w.consuming.Store(false)
	w.next, w.prev = nil, nil
	w.inQueue = false
	w.version.Add(1)
}
