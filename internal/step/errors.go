package step

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// Domain errors for the step package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, step.ErrInvalidStep) {
//	    // mission tree was built with a bad argument
//	}
var (
	// ErrDeviceFault is returned when an actuator or sensor fails mid-step.
	ErrDeviceFault = hardware.ErrDeviceFault

	// ErrTimeoutExceeded is the cancellation cause used by Timeout.
	// Timeout itself never returns it; steps cancelled by a Timeout wrap it.
	ErrTimeoutExceeded = errors.New("step: timeout exceeded")

	// ErrInvalidStep is returned when a step is constructed with an invalid
	// argument or a tree fails validation.
	ErrInvalidStep = errors.New("step: invalid configuration")

	// ErrCancelledByParent is returned by a step whose context was cancelled
	// by an enclosing composer or the mission runner.
	ErrCancelledByParent = errors.New("step: cancelled by parent")

	// ErrCheckpointReached is the cancellation cause for actions cut off by
	// a checkpoint.
	ErrCheckpointReached = errors.New("step: checkpoint reached")

	// ErrNotRecording is returned when a checkpoint is awaited before the
	// synchroniser clock was started.
	ErrNotRecording = errors.New("step: synchroniser not recording")

	// ErrNoDevice is returned when a mission is run without a drive base.
	ErrNoDevice = errors.New("step: no device")

	// ErrStepPanic is returned when a step panics.
	ErrStepPanic = errors.New("step: panic")
)

// cancelled reports ctx's cancellation as ErrCancelledByParent while keeping
// the cause (ErrTimeoutExceeded, ErrCheckpointReached, ...) visible to errors.Is.
func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelledByParent, context.Cause(ctx))
}

// isCancellation reports whether err only says the step was cut short.
func isCancellation(err error) bool {
	return errors.Is(err, ErrCancelledByParent) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// deviceFault wraps a driver error in ErrDeviceFault unless it already is one.
func deviceFault(err error) error {
	if err == nil || errors.Is(err, ErrDeviceFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDeviceFault, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStep, fmt.Sprintf(format, args...))
}
