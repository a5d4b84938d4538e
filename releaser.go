package asyncsync

import "sync/atomic"

// Releaser is returned by a successful acquisition on Mutex, ReadWriteLock,
// Semaphore, KeyedMutex or KeyedSemaphore. Dispose must be called exactly
// once to release the held resource; a second call is a programmer error,
// the same contract spec.md gives every acquire operation's return value.
type Releaser struct {
	fn   func()
	used atomic.Bool
}

func newReleaser(fn func()) Releaser {
	return Releaser{fn: fn}
}

// Dispose releases the resource this Releaser was granted for. Calling it
// more than once panics.
func (r *Releaser) Dispose() {
	if !r.used.CompareAndSwap(false, true) {
		misuse("releaser disposed more than once")
	}
	r.fn()
}

// dispatchContinuation runs fn either inline on the caller's goroutine
// (synchronous continuations, opt-in, matching spec.md's
// runs-continuations-synchronously policy) or on a freshly spawned goroutine
// (the default). Since every Waiter parks on a semaphore rather than
// resuming inline the way a C#/.NET continuation would, the "synchronous"
// option here only controls whether the Release of that semaphore happens
// on the releasing goroutine's own stack or is handed off — there is no
// arbitrary user continuation code to run inline either way, just the
// wakeup itself.
func dispatchContinuation(synchronous bool, fn func()) {
	if synchronous {
		fn()
		return
	}
	go fn()
}
