package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// DefaultTick is the control period of the simulated drive loop.
const DefaultTick = 10 * time.Millisecond

// Recorded device call names.
const (
	CallSetSpeedWhile = "set_speed_while"
	CallStop          = "stop"
	CallResetRamps    = "reset_ramps"
	CallResetState    = "reset_state"
)

var _ hardware.Device = (*Device)(nil)

// Device is a simulated drive base.
type Device struct {
	mu       sync.Mutex
	tick     time.Duration
	calls    []string
	speed    hardware.Speed
	odometer hardware.DriveState
	fail     error
}

// NewDevice creates a simulated drive base. A non-positive tick selects
// DefaultTick.
func NewDevice(tick time.Duration) *Device {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Device{tick: tick}
}

// SetSpeedWhile runs a dead-reckoned control loop. The last commanded speed
// is left in place on return.
func (d *Device) SetSpeedWhile(ctx context.Context, cond hardware.Condition, speed hardware.SpeedFunc, _ bool) error {
	d.record(CallSetSpeedWhile)
	if err := d.takeFault(); err != nil {
		return err
	}

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	var state hardware.DriveState
	last := time.Now()
	for {
		if !cond(state) {
			return nil
		}
		s := speed(state)
		d.mu.Lock()
		d.speed = s
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			state = hardware.Integrate(state, s, dt)

			d.mu.Lock()
			d.odometer = hardware.Integrate(d.odometer, s, dt)
			d.mu.Unlock()
		}
	}
}

// Stop zeroes the commanded speed.
func (d *Device) Stop() {
	d.mu.Lock()
	d.speed = hardware.Speed{}
	d.mu.Unlock()
	d.record(CallStop)
}

// ResetRamps records a ramp reset.
func (d *Device) ResetRamps() { d.record(CallResetRamps) }

// ResetState records a controller state reset.
func (d *Device) ResetState() { d.record(CallResetState) }

// FailNext makes the next SetSpeedWhile return err wrapped in
// hardware.ErrDeviceFault.
func (d *Device) FailNext(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

// Calls returns a copy of the recorded call names in order.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// Count returns how many times the named call was recorded.
func (d *Device) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Speed returns the last commanded speed.
func (d *Device) Speed() hardware.Speed {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// Odometer returns the accumulated dead-reckoned motion since creation.
func (d *Device) Odometer() hardware.DriveState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.odometer
}

func (d *Device) record(name string) {
	d.mu.Lock()
	d.calls = append(d.calls, name)
	d.mu.Unlock()
}

func (d *Device) takeFault() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail == nil {
		return nil
	}
	err := d.fail
	d.fail = nil
	return fmt.Errorf("%w: %v", hardware.ErrDeviceFault, err)
}
