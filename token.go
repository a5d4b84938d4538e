package asyncsync

import "context"

// CancelRegistration is returned by CancelToken.Register. Unregister must be
// idempotent-safe to call once, and must block until any callback invocation
// already in flight has returned, so that callers can safely free state the
// callback might still touch.
type CancelRegistration interface {
	Unregister()
}

// CancelToken is the minimal cancellation collaborator every blocking
// operation in this package accepts. A nil CancelToken is treated the same
// as None: a token that can never be cancelled.
type CancelToken interface {
	IsCancelled() bool
	CanBeCancelled() bool
	Register(f func()) CancelRegistration
}

type noopRegistration struct{}

func (noopRegistration) Unregister() {}

type noneToken struct{}

func (noneToken) IsCancelled() bool                  { return false }
func (noneToken) CanBeCancelled() bool               { return false }
func (noneToken) Register(func()) CancelRegistration { return noopRegistration{} }

// None is a CancelToken that can never be cancelled.
var None CancelToken = noneToken{}

// ContextToken adapts a context.Context to CancelToken.
type ContextToken struct {
	ctx context.Context
}

// FromContext returns a CancelToken backed by ctx. If ctx is nil or carries
// no deadline/cancel machinery (ctx.Done() == nil), it returns None so
// callers don't pay for registration on a context that can never fire.
func FromContext(ctx context.Context) CancelToken {
	if ctx == nil || ctx.Done() == nil {
		return None
	}
	return ContextToken{ctx: ctx}
}

func (t ContextToken) IsCancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

func (t ContextToken) CanBeCancelled() bool { return t.ctx.Done() != nil }

// ctxRegistration wraps context.AfterFunc's stop function. AfterFunc's own
// stop() reports whether it prevented f from running, but does not wait for
// an already-started f to finish; finished closes once f returns, letting
// Unregister honor the block-until-callback-finished contract.
type ctxRegistration struct {
	stop     func() bool
	finished chan struct{}
}

func (t ContextToken) Register(f func()) CancelRegistration {
	finished := make(chan struct{})
	stop := context.AfterFunc(t.ctx, func() {
		defer close(finished)
		f()
	})
	return &ctxRegistration{stop: stop, finished: finished}
}

func (r *ctxRegistration) Unregister() {
	if r.stop() {
		return
	}
	<-r.finished
}
