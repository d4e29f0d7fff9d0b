package step

import (
	"context"
	"time"
)

// Wait pauses for a fixed duration.
type Wait struct {
	Base
	d time.Duration
}

// NewWait creates a wait step. A zero duration completes immediately.
func NewWait(d time.Duration) (*Wait, error) {
	if err := validDuration("wait", "duration", d, true); err != nil {
		return nil, err
	}
	return &Wait{Base: Base{kind: "wait"}, d: d}, nil
}

// Run sleeps for the configured duration.
func (w *Wait) Run(ctx context.Context, _ *Env) error {
	return sleep(ctx, w.d)
}
