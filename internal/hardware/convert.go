package hardware

import (
	"fmt"
	"math"
	"time"
)

// Motor and servo limits of the controller board.
const (
	// MaxMotorVelocity is the device velocity for 100 percent.
	MaxMotorVelocity = 1500

	// MaxServoAngle is the largest reachable servo angle in degrees.
	MaxServoAngle = 170.0

	// MaxServoPosition is the device position for MaxServoAngle.
	MaxServoPosition = 2047

	// ServoDegreesPerSecond is the nominal unloaded servo speed.
	ServoDegreesPerSecond = 200.0
)

// PercentToVelocity converts a percentage in [-100, 100] to device units.
func PercentToVelocity(percent float64) (int, error) {
	if math.IsNaN(percent) || percent < -100 || percent > 100 {
		return 0, fmt.Errorf("%w: motor percent %v not in [-100, 100]", ErrOutOfRange, percent)
	}
	return int(math.Round(percent / 100 * MaxMotorVelocity)), nil
}

// AngleToPosition converts a servo angle in degrees to device units.
func AngleToPosition(angle float64) (int, error) {
	if math.IsNaN(angle) || angle < 0 || angle > MaxServoAngle {
		return 0, fmt.Errorf("%w: servo angle %v not in [0, %v]", ErrOutOfRange, angle, MaxServoAngle)
	}
	return int(math.Round(angle / MaxServoAngle * MaxServoPosition)), nil
}

// PositionToAngle converts device units back to degrees.
func PositionToAngle(position int) float64 {
	return float64(position) / MaxServoPosition * MaxServoAngle
}

// ServoTravelTime estimates how long the servo needs to move between two
// angles at ServoDegreesPerSecond.
func ServoTravelTime(from, to float64) time.Duration {
	return time.Duration(math.Abs(to-from) / ServoDegreesPerSecond * float64(time.Second))
}
