package step

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds an inner step. Reaching the deadline is not a failure: the
// inner step is cancelled, allowed to finish its cleanup, and Timeout
// completes successfully.
type Timeout struct {
	Base
	inner Step
	limit time.Duration
}

// NewTimeout wraps inner with a deadline of limit.
func NewTimeout(inner Step, limit time.Duration) (*Timeout, error) {
	if isNil(inner) {
		return nil, invalid("timeout: nil step")
	}
	if err := validDuration("timeout", "limit", limit, false); err != nil {
		return nil, err
	}
	return &Timeout{Base: Base{kind: "timeout"}, inner: inner, limit: limit}, nil
}

// Children implements Composite.
func (t *Timeout) Children() []Step { return []Step{t.inner} }

// Run executes the inner step under the deadline.
// Cancellation from the parent and every inner failure propagate unchanged.
func (t *Timeout) Run(ctx context.Context, env *Env) error {
	tctx, cancel := context.WithTimeoutCause(ctx, t.limit, ErrTimeoutExceeded)
	defer cancel()

	err := runStep(tctx, env, t.inner)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if isCancellation(err) && errors.Is(context.Cause(tctx), ErrTimeoutExceeded) {
		env.log().Warn("step timed out", "step", NameOf(t.inner), "limit", t.limit)
		return nil
	}
	return err
}

// ShouldContinueMoving reports the inner step's answer.
func (t *Timeout) ShouldContinueMoving() bool { return t.inner.ShouldContinueMoving() }

// CallOnExit forwards the handoff to the inner step.
func (t *Timeout) CallOnExit(next Step) { t.inner.CallOnExit(next) }
