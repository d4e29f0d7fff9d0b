package step

import (
	"context"
	"sync"
)

// Parallel runs its children concurrently and completes when all of them
// have finished.
//
// Every child that finishes while others are still running immediately gets
// CallOnExit(nil). Only the child that finishes last keeps its handoff
// pending, so the step that follows the Parallel can continue the motion it
// started.
type Parallel struct {
	Base
	steps []Step

	mu   sync.Mutex
	last Step
}

type branchResult struct {
	idx int
	err error
}

// NewParallel creates a parallel composer.
func NewParallel(steps ...Step) (*Parallel, error) {
	if err := checkChildren("parallel", steps); err != nil {
		return nil, err
	}
	return &Parallel{Base: Base{kind: "parallel"}, steps: steps}, nil
}

// Children implements Composite.
func (p *Parallel) Children() []Step { return p.steps }

// Run starts every child in its own goroutine and waits for all of them.
// A failing child does not cancel its siblings; the first failure in
// completion order is returned once everything has settled.
func (p *Parallel) Run(ctx context.Context, env *Env) error {
	p.mu.Lock()
	p.last = nil
	p.mu.Unlock()

	if len(p.steps) == 0 {
		return nil
	}

	results := make(chan branchResult, len(p.steps))
	for i, st := range p.steps {
		go func(i int, st Step) {
			results <- branchResult{idx: i, err: runStep(ctx, env, st)}
		}(i, st)
	}

	var firstErr error
	for remaining := len(p.steps); remaining > 0; remaining-- {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}

		finished := p.steps[r.idx]
		if remaining > 1 {
			finished.CallOnExit(nil)
			continue
		}

		p.mu.Lock()
		p.last = finished
		p.mu.Unlock()
	}

	if firstErr != nil {
		env.log().Debug("parallel branch failed", "step", p.Name(), "error", firstErr)
	}
	return firstErr
}

// ShouldContinueMoving reports whether any child keeps moving.
func (p *Parallel) ShouldContinueMoving() bool {
	for _, st := range p.steps {
		if st.ShouldContinueMoving() {
			return true
		}
	}
	return false
}

// CallOnExit forwards the handoff to the child that finished last.
func (p *Parallel) CallOnExit(next Step) {
	p.mu.Lock()
	last := p.last
	p.last = nil
	p.mu.Unlock()

	if last != nil {
		last.CallOnExit(next)
	}
}
