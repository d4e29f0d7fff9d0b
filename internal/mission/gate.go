package mission

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// StartGate blocks until the match may begin.
type StartGate interface {
	Wait(ctx context.Context) error
}

// GateFunc adapts a function to StartGate.
type GateFunc func(ctx context.Context) error

// Wait calls f.
func (f GateFunc) Wait(ctx context.Context) error { return f(ctx) }

const (
	defaultGatePoll    = 10 * time.Millisecond
	defaultGateConfirm = 3
)

// LightGate opens when the start lamp shines on a light sensor.
type LightGate struct {
	Sensor hardware.LightSensor
	// Poll is the sampling period (default 10ms).
	Poll time.Duration
	// Confirm is how many consecutive bright readings are required
	// (default 3), which rejects flicker from ambient light.
	Confirm int
}

// Wait polls the sensor until it reads bright Confirm times in a row.
func (g LightGate) Wait(ctx context.Context) error {
	if g.Sensor == nil {
		return fmt.Errorf("%w: light gate has no sensor", ErrInvalidMission)
	}
	poll := g.Poll
	if poll <= 0 {
		poll = defaultGatePoll
	}
	confirm := g.Confirm
	if confirm <= 0 {
		confirm = defaultGateConfirm
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	seen := 0
	for {
		if g.Sensor.IsOnWhite() {
			seen++
			if seen >= confirm {
				return nil
			}
		} else {
			seen = 0
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}
