package step

import (
	"context"
	"sync"
)

// Sequential runs its children one after another, handing motion off
// between neighbours.
type Sequential struct {
	Base
	steps []Step

	mu      sync.Mutex
	entered int // index of the last child whose Run began, -1 before any
}

// NewSequential creates a sequential composer. An empty sequence is valid
// and completes immediately.
func NewSequential(steps ...Step) (*Sequential, error) {
	if err := checkChildren("sequential", steps); err != nil {
		return nil, err
	}
	return &Sequential{Base: Base{kind: "sequential"}, steps: steps, entered: -1}, nil
}

// Children implements Composite.
func (s *Sequential) Children() []Step { return s.steps }

// Run executes the children in order. After child i succeeds it receives
// CallOnExit(child i+1); the last child's exit is left to whoever runs this
// sequence. The first failure aborts the sequence.
func (s *Sequential) Run(ctx context.Context, env *Env) error {
	s.setEntered(-1)
	for i, st := range s.steps {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		s.setEntered(i)
		if err := runStep(ctx, env, st); err != nil {
			return err
		}
		if i+1 < len(s.steps) {
			st.CallOnExit(s.steps[i+1])
		}
	}
	return nil
}

// ShouldContinueMoving reports whether the first child keeps moving.
func (s *Sequential) ShouldContinueMoving() bool {
	if len(s.steps) == 0 {
		return false
	}
	return s.steps[0].ShouldContinueMoving()
}

// CallOnExit forwards the handoff to the last child that started. A
// sequence cut short hands off from the step that was interrupted, not from
// a later one that never ran.
func (s *Sequential) CallOnExit(next Step) {
	s.mu.Lock()
	i := s.entered
	s.mu.Unlock()

	if i < 0 {
		return
	}
	s.steps[i].CallOnExit(next)
}

func (s *Sequential) setEntered(i int) {
	s.mu.Lock()
	s.entered = i
	s.mu.Unlock()
}
