package step

import "context"

// Loop repeats a child step, either a fixed number of times or until
// cancelled.
type Loop struct {
	Base
	child      Step
	iterations int // 0 means forever
}

// NewLoopFor repeats child n times.
func NewLoopFor(child Step, n int) (*Loop, error) {
	if isNil(child) {
		return nil, invalid("loop: nil step")
	}
	if n <= 0 || n > MaxIterations {
		return nil, invalid("loop: iterations %d not in [1, %d]", n, MaxIterations)
	}
	return &Loop{Base: Base{kind: "loop_for"}, child: child, iterations: n}, nil
}

// NewLoopForever repeats child until the loop is cancelled or the child fails.
func NewLoopForever(child Step) (*Loop, error) {
	if isNil(child) {
		return nil, invalid("loop: nil step")
	}
	return &Loop{Base: Base{kind: "loop_forever"}, child: child}, nil
}

// Children implements Composite.
func (l *Loop) Children() []Step { return []Step{l.child} }

// Run executes the iterations. Between iterations the child hands off to
// itself, so a driving body keeps moving from one pass to the next.
func (l *Loop) Run(ctx context.Context, env *Env) error {
	for i := 0; l.iterations == 0 || i < l.iterations; i++ {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		if i > 0 {
			l.child.CallOnExit(l.child)
		}
		if err := runStep(ctx, env, l.child); err != nil {
			return err
		}
	}
	return nil
}

// ShouldContinueMoving reports the child's answer.
func (l *Loop) ShouldContinueMoving() bool { return l.child.ShouldContinueMoving() }

// CallOnExit forwards the handoff to the child.
func (l *Loop) CallOnExit(next Step) { l.child.CallOnExit(next) }
