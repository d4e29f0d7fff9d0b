package mission

import "errors"

// Domain errors for the mission package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, mission.ErrBuildFailed) {
//	    // a mission tree could not be constructed; nothing moved
//	}
var (
	// ErrInvalidMission is returned when a mission definition is malformed.
	ErrInvalidMission = errors.New("mission: invalid definition")

	// ErrBuildFailed is returned when a mission's Build function fails or
	// panics. No mission runs when any build fails.
	ErrBuildFailed = errors.New("mission: build failed")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("mission: run not found")

	// ErrAutoShutdown is the cancellation cause when the match time runs out.
	// Execute does not return it.
	ErrAutoShutdown = errors.New("mission: auto shutdown")

	// ErrAlreadyExecuted is returned when Execute is called twice.
	ErrAlreadyExecuted = errors.New("mission: controller already executed")

	// ErrStartAborted is returned when the start gate fails.
	ErrStartAborted = errors.New("mission: start aborted")
)
