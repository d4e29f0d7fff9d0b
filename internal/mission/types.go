package mission

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/step"
)

// MaxNameLength bounds mission names.
const MaxNameLength = 64

// Kind says where in the match lifecycle a mission runs.
type Kind string

// Mission kinds.
const (
	KindSetup    Kind = "setup"
	KindMain     Kind = "main"
	KindShutdown Kind = "shutdown"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSetup, KindMain, KindShutdown:
		return true
	}
	return false
}

// Status is the state of a Run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// IsTerminal reports whether the run has finished.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// BuildFunc constructs a mission's step tree, resolving named capabilities
// through the registry.
type BuildFunc func(reg *hardware.Registry) (step.Step, error)

// Mission is a named, buildable step tree.
type Mission struct {
	Name  string
	Build BuildFunc
}

// Validate checks the name and build function. Names appear in MQTT topics,
// so topic separators and wildcards are rejected.
func (m Mission) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidMission)
	case len(m.Name) > MaxNameLength:
		return fmt.Errorf("%w: name %q longer than %d", ErrInvalidMission, m.Name, MaxNameLength)
	case strings.ContainsAny(m.Name, "/+# "):
		return fmt.Errorf("%w: name %q contains one of '/+# '", ErrInvalidMission, m.Name)
	case m.Build == nil:
		return fmt.Errorf("%w: %s has no build function", ErrInvalidMission, m.Name)
	}
	return nil
}

// Run records one execution of a mission.
type Run struct {
	ID          string        `json:"id"`
	RobotID     string        `json:"robot_id"`
	Mission     string        `json:"mission"`
	Kind        Kind          `json:"kind"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	// Lead is the match clock reading when the run finished.
	Lead  time.Duration `json:"lead_ns"`
	Error string        `json:"error,omitempty"`
}

// GenerateRunID returns a new unique run ID.
func GenerateRunID() string {
	return "run-" + uuid.NewString()
}

// Stats summarises completed run durations of one mission.
type Stats struct {
	Mission string        `json:"mission"`
	Count   int           `json:"count"`
	Mean    time.Duration `json:"mean_ns"`
	StdDev  time.Duration `json:"stddev_ns"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
}
