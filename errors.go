package asyncsync

import "errors"

// Sentinel errors returned by the blocking operations in this package.
// Callers should compare against these with errors.Is.
var (
	// ErrCancelled is returned when a wait is aborted by its cancellation
	// token, either before it begins or while it is queued.
	ErrCancelled = errors.New("asyncsync: operation was cancelled")

	// ErrDisposed is returned by an operation on a primitive that has
	// already been disposed.
	ErrDisposed = errors.New("asyncsync: primitive has been disposed")

	// ErrModeUnsupported is returned by LazyCell.Get when the cell was
	// constructed with an unrecognized LazyMode value.
	ErrModeUnsupported = errors.New("asyncsync: lazy mode is not supported")
)

// misuseError marks a programmer error: a contract violation that a correct
// caller can never trigger, as opposed to the ordinary failures above. These
// are panics rather than errors, mirroring sync.Mutex.Unlock panicking on an
// unlocked mutex.
type misuseError struct{ msg string }

func (e *misuseError) Error() string { return e.msg }

func misuse(msg string) {
	panic(&misuseError{msg: "asyncsync: " + msg})
}
