package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/mission-core/internal/step"
)

// trackedMission wraps a built tree so each execution produces a Run
// record. It is transparent to motion handoff.
type trackedMission struct {
	c    *Controller
	name string
	kind Kind
	tree step.Step
}

func (t *trackedMission) Kind() string               { return "mission" }
func (t *trackedMission) Name() string               { return t.name }
func (t *trackedMission) Children() []step.Step      { return []step.Step{t.tree} }
func (t *trackedMission) ShouldContinueMoving() bool { return t.tree.ShouldContinueMoving() }
func (t *trackedMission) CallOnExit(next step.Step)  { t.tree.CallOnExit(next) }

// Run executes the tree between two run records. The completion record is
// written even when the tree panics; the panic is returned as an error.
func (t *trackedMission) Run(ctx context.Context, env *step.Env) (err error) {
	start := time.Now()
	run := &Run{
		ID:        GenerateRunID(),
		RobotID:   t.c.opts.RobotID,
		Mission:   t.name,
		Kind:      t.kind,
		Status:    StatusRunning,
		StartedAt: start.UTC(),
	}
	t.c.record(ctx, run, true)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", step.ErrStepPanic, t.name, r)
		}

		completed := time.Now().UTC()
		run.CompletedAt = &completed
		run.Duration = time.Since(start)
		if env != nil && env.Sync != nil {
			run.Lead = env.Sync.Elapsed()
		}
		run.Status = statusOf(err)
		if err != nil {
			run.Error = err.Error()
		}
		t.c.record(ctx, run, false)
	}()

	return t.tree.Run(ctx, env)
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, ErrAutoShutdown):
		return StatusTimedOut
	case errors.Is(err, step.ErrCancelledByParent),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusFailed
	}
}
