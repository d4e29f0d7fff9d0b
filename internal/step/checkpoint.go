package step

import (
	"context"
	"time"
)

// WaitForCheckpoint blocks until the mission clock reaches a checkpoint.
type WaitForCheckpoint struct {
	Base
	at time.Duration
}

// NewWaitForCheckpoint waits until at on the mission clock.
func NewWaitForCheckpoint(at time.Duration) (*WaitForCheckpoint, error) {
	if err := validDuration("wait_for_checkpoint", "checkpoint", at, true); err != nil {
		return nil, err
	}
	return &WaitForCheckpoint{Base: Base{kind: "wait_for_checkpoint"}, at: at}, nil
}

// Run waits on the synchroniser. A passed checkpoint returns immediately.
func (w *WaitForCheckpoint) Run(ctx context.Context, env *Env) error {
	if env == nil || env.Sync == nil {
		return ErrNotRecording
	}
	return env.Sync.WaitUntilCheckpoint(ctx, w.at)
}

// DoUntilCheckpoint runs a child until a checkpoint and cancels it there.
type DoUntilCheckpoint struct {
	Base
	at    time.Duration
	child Step
}

// NewDoUntilCheckpoint runs child until at on the mission clock.
func NewDoUntilCheckpoint(at time.Duration, child Step) (*DoUntilCheckpoint, error) {
	if isNil(child) {
		return nil, invalid("do_until_checkpoint: nil step")
	}
	if err := validDuration("do_until_checkpoint", "checkpoint", at, true); err != nil {
		return nil, err
	}
	return &DoUntilCheckpoint{Base: Base{kind: "do_until_checkpoint"}, at: at, child: child}, nil
}

// Children implements Composite.
func (d *DoUntilCheckpoint) Children() []Step { return []Step{d.child} }

// Run completes at the checkpoint whether or not the child finished first.
func (d *DoUntilCheckpoint) Run(ctx context.Context, env *Env) error {
	if env == nil || env.Sync == nil {
		return ErrNotRecording
	}
	return env.Sync.RunUntilCheckpoint(ctx, d.at, func(actx context.Context) error {
		return runStep(actx, env, d.child)
	})
}

// ShouldContinueMoving reports the child's answer.
func (d *DoUntilCheckpoint) ShouldContinueMoving() bool { return d.child.ShouldContinueMoving() }

// CallOnExit forwards the handoff to the child.
func (d *DoUntilCheckpoint) CallOnExit(next Step) { d.child.CallOnExit(next) }
