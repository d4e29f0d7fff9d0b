package step

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// minServoDwell keeps ShakeServo from spinning when both angles are equal.
const minServoDwell = 10 * time.Millisecond

// SetMotor commands a motor velocity, optionally holding it for a while and
// then stopping.
type SetMotor struct {
	Base
	motor    hardware.Motor
	velocity int
	hold     time.Duration
}

// NewSetMotor sets motor to percent of full speed. With a positive hold the
// motor runs for that long and is then set to zero.
func NewSetMotor(motor hardware.Motor, percent float64, hold time.Duration) (*SetMotor, error) {
	if motor == nil {
		return nil, invalid("set_motor: nil motor")
	}
	v, err := hardware.PercentToVelocity(percent)
	if err != nil {
		return nil, invalid("set_motor: %v", err)
	}
	if err := validDuration("set_motor", "hold", hold, true); err != nil {
		return nil, err
	}
	return &SetMotor{Base: Base{kind: "set_motor"}, motor: motor, velocity: v, hold: hold}, nil
}

// Run commands the velocity. A cancelled hold stops the motor before returning.
func (m *SetMotor) Run(ctx context.Context, _ *Env) error {
	if err := m.motor.SetVelocity(m.velocity); err != nil {
		return deviceFault(err)
	}
	if m.hold <= 0 {
		return nil
	}
	if err := sleep(ctx, m.hold); err != nil {
		return errors.Join(err, deviceFault(m.motor.SetVelocity(0)))
	}
	return deviceFault(m.motor.SetVelocity(0))
}

// StopMotor stops a motor.
type StopMotor struct {
	Base
	motor hardware.Motor
}

// NewStopMotor creates a stop step.
func NewStopMotor(motor hardware.Motor) (*StopMotor, error) {
	if motor == nil {
		return nil, invalid("stop_motor: nil motor")
	}
	return &StopMotor{Base: Base{kind: "stop_motor"}, motor: motor}, nil
}

// Run stops the motor.
func (m *StopMotor) Run(context.Context, *Env) error {
	return deviceFault(m.motor.Stop())
}

// EnableServo powers a servo.
type EnableServo struct {
	Base
	servo hardware.Servo
}

// NewEnableServo creates an enable step.
func NewEnableServo(servo hardware.Servo) (*EnableServo, error) {
	if servo == nil {
		return nil, invalid("enable_servo: nil servo")
	}
	return &EnableServo{Base: Base{kind: "enable_servo"}, servo: servo}, nil
}

// Run enables the servo.
func (e *EnableServo) Run(context.Context, *Env) error {
	return deviceFault(e.servo.Enable())
}

// SetServo moves a servo to an angle and waits for the estimated travel time.
type SetServo struct {
	Base
	servo    hardware.Servo
	angle    float64
	position int
}

// NewSetServo creates a servo move to angle degrees.
func NewSetServo(servo hardware.Servo, angle float64) (*SetServo, error) {
	if servo == nil {
		return nil, invalid("set_servo: nil servo")
	}
	pos, err := hardware.AngleToPosition(angle)
	if err != nil {
		return nil, invalid("set_servo: %v", err)
	}
	return &SetServo{Base: Base{kind: "set_servo"}, servo: servo, angle: angle, position: pos}, nil
}

// Run commands the position.
func (s *SetServo) Run(ctx context.Context, _ *Env) error {
	from := hardware.PositionToAngle(s.servo.Position())
	if err := s.servo.SetPosition(s.position); err != nil {
		return deviceFault(err)
	}
	return sleep(ctx, hardware.ServoTravelTime(from, s.angle))
}

// SlowServo moves a servo to an angle over a fixed duration.
type SlowServo struct {
	Base
	servo    hardware.Servo
	position int
	d        time.Duration
}

// NewSlowServo creates an eased servo move lasting d.
func NewSlowServo(servo hardware.Servo, angle float64, d time.Duration) (*SlowServo, error) {
	if servo == nil {
		return nil, invalid("slow_servo: nil servo")
	}
	pos, err := hardware.AngleToPosition(angle)
	if err != nil {
		return nil, invalid("slow_servo: %v", err)
	}
	if err := validDuration("slow_servo", "duration", d, false); err != nil {
		return nil, err
	}
	return &SlowServo{Base: Base{kind: "slow_servo"}, servo: servo, position: pos, d: d}, nil
}

// Run delegates the interpolation to the servo driver.
func (s *SlowServo) Run(ctx context.Context, _ *Env) error {
	err := s.servo.SetPositionOver(ctx, s.position, s.d)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return deviceFault(err)
}

// ShakeServo alternates a servo between two angles for a duration.
type ShakeServo struct {
	Base
	servo      hardware.Servo
	d          time.Duration
	posA, posB int
	dwell      time.Duration
}

// NewShakeServo shakes servo between angles a and b for d.
func NewShakeServo(servo hardware.Servo, d time.Duration, a, b float64) (*ShakeServo, error) {
	if servo == nil {
		return nil, invalid("shake_servo: nil servo")
	}
	if err := validDuration("shake_servo", "duration", d, true); err != nil {
		return nil, err
	}
	posA, err := hardware.AngleToPosition(a)
	if err != nil {
		return nil, invalid("shake_servo: %v", err)
	}
	posB, err := hardware.AngleToPosition(b)
	if err != nil {
		return nil, invalid("shake_servo: %v", err)
	}
	return &ShakeServo{
		Base:  Base{kind: "shake_servo"},
		servo: servo,
		d:     d,
		posA:  posA,
		posB:  posB,
		dwell: max(hardware.ServoTravelTime(a, b), minServoDwell),
	}, nil
}

// Run shakes until the duration has elapsed.
func (s *ShakeServo) Run(ctx context.Context, _ *Env) error {
	if err := s.servo.Enable(); err != nil {
		return deviceFault(err)
	}

	end := time.Now().Add(s.d)
	positions := [2]int{s.posA, s.posB}
	for i := 0; time.Now().Before(end); i++ {
		if err := s.servo.SetPosition(positions[i%2]); err != nil {
			return deviceFault(err)
		}
		if err := sleep(ctx, s.dwell); err != nil {
			return err
		}
	}
	return nil
}
