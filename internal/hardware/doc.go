// Package hardware defines the capabilities the mission core drives.
//
// The core never talks to a physical board directly. It consumes a small
// set of interfaces that a platform driver (or the simulator in package sim)
// implements:
//
//	┌────────────────────────────────────────────────────────┐
//	│ Device      SetSpeedWhile / Stop / ResetRamps / ResetState
//	│ Motor       SetVelocity / Stop
//	│ Servo       Enable / SetPosition / SetPositionOver / Position
//	│ LightSensor Value / IsOnWhite / IsOnBlack
//	└────────────────────────────────────────────────────────┘
//
// Drive loops are described by two functions evaluated on every control
// tick: a Condition that reports whether the loop should keep running and a
// SpeedFunc that yields the commanded chassis Speed. Both receive a
// DriveState measured from the start of the current SetSpeedWhile call, so
// the same condition value can be reused by a step that runs more than once.
//
// Named capabilities are bound in a Registry at start-up. Mission trees
// resolve their motors, servos and sensors through the registry while they
// are being built, so a typo in a port name fails before anything moves.
package hardware
