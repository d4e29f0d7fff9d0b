package hardware

import (
	"math"
	"time"
)

// ForSeconds keeps a drive running until d has elapsed.
func ForSeconds(d time.Duration) Condition {
	return func(s DriveState) bool { return s.Elapsed < d }
}

// ForDistance keeps a drive running until metres have been travelled.
func ForDistance(metres float64) Condition {
	return func(s DriveState) bool { return s.Distance < metres }
}

// ForCWRotation keeps a drive running until the chassis has turned
// degrees clockwise.
func ForCWRotation(degrees float64) Condition {
	return func(s DriveState) bool { return -s.Heading < degrees }
}

// ForCCWRotation keeps a drive running until the chassis has turned
// degrees counter-clockwise.
func ForCCWRotation(degrees float64) Condition {
	return func(s DriveState) bool { return s.Heading < degrees }
}

// WhileTrue keeps a drive running as long as probe reports true.
func WhileTrue(probe func() bool) Condition {
	return func(DriveState) bool { return probe() }
}

// WhileFalse keeps a drive running until probe reports true.
func WhileFalse(probe func() bool) Condition {
	return func(DriveState) bool { return !probe() }
}

// All keeps a drive running while every condition holds.
func All(conds ...Condition) Condition {
	return func(s DriveState) bool {
		for _, c := range conds {
			if !c(s) {
				return false
			}
		}
		return true
	}
}

// Integrate advances state by one control tick at speed for dt.
// Drivers without wheel odometry (and the simulator) use it to dead-reckon.
func Integrate(state DriveState, speed Speed, dt time.Duration) DriveState {
	sec := dt.Seconds()
	state.Elapsed += dt
	state.Distance += math.Hypot(speed.Forward, speed.Strafe) * sec
	state.Heading += speed.Angular * sec * 180 / math.Pi
	return state
}
