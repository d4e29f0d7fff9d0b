package step

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// Drive runs the device's closed-loop controller until its condition ends.
//
// A Drive never stops the chassis on its own. When it exits it looks at the
// next step: if that step keeps moving too, the motors stay engaged and the
// ramps keep their state; otherwise the device is stopped and its ramps
// reset.
type Drive struct {
	Base
	cond         hardware.Condition
	speed        hardware.SpeedFunc
	doCorrection bool

	mu     sync.Mutex
	device hardware.Device
}

// NewDrive creates a drive step.
func NewDrive(cond hardware.Condition, speed hardware.SpeedFunc, doCorrection bool) (*Drive, error) {
	if cond == nil {
		return nil, invalid("drive: nil condition")
	}
	if speed == nil {
		return nil, invalid("drive: nil speed function")
	}
	return &Drive{
		Base:         Base{kind: "drive"},
		cond:         cond,
		speed:        speed,
		doCorrection: doCorrection,
	}, nil
}

// Run drives until the condition reports false.
func (d *Drive) Run(ctx context.Context, env *Env) error {
	if env == nil || env.Device == nil {
		return ErrNoDevice
	}

	d.mu.Lock()
	d.device = env.Device
	d.mu.Unlock()

	err := env.Device.SetSpeedWhile(ctx, d.cond, d.speed, d.doCorrection)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return deviceFault(err)
}

// ShouldContinueMoving reports true.
func (d *Drive) ShouldContinueMoving() bool { return true }

// CallOnExit resets the controller state and stops the device unless next
// keeps moving. It does nothing if the drive never ran.
func (d *Drive) CallOnExit(next Step) {
	d.mu.Lock()
	dev := d.device
	d.mu.Unlock()

	if dev == nil {
		return
	}

	dev.ResetState()
	if next == nil || !next.ShouldContinueMoving() {
		dev.Stop()
		dev.ResetRamps()
	}
}

// DriveForward drives straight ahead for d at metres per second.
func DriveForward(d time.Duration, speed float64) (*Drive, error) {
	return timedDrive("drive_forward", d, speed, hardware.Speed{Forward: speed})
}

// DriveBackward drives straight back for d at metres per second.
func DriveBackward(d time.Duration, speed float64) (*Drive, error) {
	return timedDrive("drive_backward", d, speed, hardware.Speed{Forward: -speed})
}

// StrafeLeft strafes left for d at metres per second.
func StrafeLeft(d time.Duration, speed float64) (*Drive, error) {
	return timedDrive("strafe_left", d, speed, hardware.Speed{Strafe: speed})
}

// StrafeRight strafes right for d at metres per second.
func StrafeRight(d time.Duration, speed float64) (*Drive, error) {
	return timedDrive("strafe_right", d, speed, hardware.Speed{Strafe: -speed})
}

// TurnCW turns clockwise by degrees at rate radians per second.
func TurnCW(degrees, rate float64) (*Drive, error) {
	return turn("turn_cw", degrees, rate, hardware.ForCWRotation(degrees), -rate)
}

// TurnCCW turns counter-clockwise by degrees at rate radians per second.
func TurnCCW(degrees, rate float64) (*Drive, error) {
	return turn("turn_ccw", degrees, rate, hardware.ForCCWRotation(degrees), rate)
}

// DriveUntil drives at a constant speed while cond holds.
func DriveUntil(cond hardware.Condition, speed hardware.Speed) (*Drive, error) {
	return NewDrive(cond, hardware.ConstantSpeed(speed), true)
}

func timedDrive(name string, d time.Duration, speed float64, s hardware.Speed) (*Drive, error) {
	if err := validDuration(name, "duration", d, false); err != nil {
		return nil, err
	}
	if err := validSpeed(name, speed, MaxSpeed); err != nil {
		return nil, err
	}
	dr, err := NewDrive(hardware.ForSeconds(d), hardware.ConstantSpeed(s), true)
	if err != nil {
		return nil, err
	}
	dr.SetName(name)
	return dr, nil
}

func turn(name string, degrees, rate float64, cond hardware.Condition, angular float64) (*Drive, error) {
	if math.IsNaN(degrees) || degrees <= 0 || degrees > 3600 {
		return nil, invalid("%s: degrees %v not in (0, 3600]", name, degrees)
	}
	if err := validSpeed(name, rate, MaxAngularSpeed); err != nil {
		return nil, err
	}
	dr, err := NewDrive(cond, hardware.ConstantSpeed(hardware.Speed{Angular: angular}), false)
	if err != nil {
		return nil, err
	}
	dr.SetName(fmt.Sprintf("%s(%g)", name, degrees))
	return dr, nil
}
