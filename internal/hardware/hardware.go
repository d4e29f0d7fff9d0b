package hardware

import (
	"context"
	"time"
)

// Speed is a commanded chassis velocity.
// Forward and Strafe are in metres per second (Strafe positive to the left),
// Angular in radians per second (positive is counter-clockwise).
type Speed struct {
	Forward float64
	Strafe  float64
	Angular float64
}

// IsZero reports whether the speed commands no motion.
func (s Speed) IsZero() bool {
	return s.Forward == 0 && s.Strafe == 0 && s.Angular == 0
}

// DriveState is the odometry snapshot handed to conditions and speed
// functions. All values are relative to the start of the current drive loop.
type DriveState struct {
	Elapsed  time.Duration
	Distance float64 // metres travelled, always positive
	Heading  float64 // degrees turned, counter-clockwise positive
}

// Condition reports whether a drive loop should keep running.
type Condition func(state DriveState) bool

// SpeedFunc returns the speed to command for the given state.
type SpeedFunc func(state DriveState) Speed

// ConstantSpeed returns a SpeedFunc that always commands s.
func ConstantSpeed(s Speed) SpeedFunc {
	return func(DriveState) Speed { return s }
}

// Device is the drive base.
//
// SetSpeedWhile runs the device's closed-loop controller until cond returns
// false or ctx is cancelled. It must leave the motors running at their last
// commanded speed when it returns; stopping is the caller's decision.
// Stop, ResetRamps and ResetState are fire-and-forget.
type Device interface {
	SetSpeedWhile(ctx context.Context, cond Condition, speed SpeedFunc, doCorrection bool) error
	Stop()
	ResetRamps()
	ResetState()
}

// Motor is a single DC motor port. Velocity is in device units
// (see PercentToVelocity).
type Motor interface {
	SetVelocity(velocity int) error
	Stop() error
}

// Servo is a positional servo port. Positions are in device units
// (see AngleToPosition).
type Servo interface {
	Enable() error
	SetPosition(position int) error
	// SetPositionOver moves to position with eased interpolation spread
	// over d, returning when the move completes or ctx is cancelled.
	SetPositionOver(ctx context.Context, position int, d time.Duration) error
	Position() int
}

// LightSensor is an analog reflectance sensor with calibrated thresholds.
type LightSensor interface {
	Value() float64
	IsOnWhite() bool
	IsOnBlack() bool
}
