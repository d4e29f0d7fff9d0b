package hardware

import "errors"

// Domain errors for the hardware package.
//
// Drivers wrap their failures in ErrDeviceFault so callers can check:
//
//	if errors.Is(err, hardware.ErrDeviceFault) {
//	    // actuator or sensor failed
//	}
var (
	// ErrDeviceFault is returned when a device, motor, servo or sensor
	// reports a failure.
	ErrDeviceFault = errors.New("hardware: device fault")

	// ErrCapabilityNotFound is returned when a named capability is not registered.
	ErrCapabilityNotFound = errors.New("hardware: capability not found")

	// ErrCapabilityExists is returned when registering a name twice.
	ErrCapabilityExists = errors.New("hardware: capability already registered")

	// ErrInvalidName is returned when a capability name is empty or too long.
	ErrInvalidName = errors.New("hardware: invalid name")

	// ErrOutOfRange is returned when a percent or angle is outside its valid range.
	ErrOutOfRange = errors.New("hardware: value out of range")
)
