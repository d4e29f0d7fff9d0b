package step

import "context"

// DoWhileActive runs a task for as long as a reference step is running.
// When the reference finishes the task is cancelled.
type DoWhileActive struct {
	Base
	reference Step
	task      Step
}

// NewDoWhileActive creates the composer.
func NewDoWhileActive(reference, task Step) (*DoWhileActive, error) {
	if isNil(reference) || isNil(task) {
		return nil, invalid("do_while_active: nil step")
	}
	return &DoWhileActive{Base: Base{kind: "do_while_active"}, reference: reference, task: task}, nil
}

// Children implements Composite.
func (d *DoWhileActive) Children() []Step { return []Step{d.reference, d.task} }

// Run starts the task in the background, runs the reference, then cancels
// the task and waits for it to unwind. The task's own failures propagate
// unless the reference failed first.
func (d *DoWhileActive) Run(ctx context.Context, env *Env) error {
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runStep(tctx, env, d.task)
	}()

	refErr := runStep(ctx, env, d.reference)
	cancel()
	taskErr := <-done
	d.task.CallOnExit(nil)

	if refErr != nil {
		return refErr
	}
	if taskErr != nil && !isCancellation(taskErr) {
		return taskErr
	}
	return nil
}

// ShouldContinueMoving reports whether either child keeps moving.
func (d *DoWhileActive) ShouldContinueMoving() bool {
	return d.reference.ShouldContinueMoving() || d.task.ShouldContinueMoving()
}

// CallOnExit forwards the handoff to the reference step.
func (d *DoWhileActive) CallOnExit(next Step) { d.reference.CallOnExit(next) }
