package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementStep    = "step_duration"
	MeasurementMission = "mission_run"
)

// StepSample is one finished step execution.
type StepSample struct {
	Kind     string
	Name     string
	Duration time.Duration
	Failed   bool
	At       time.Time
}

// MissionSample is one finished mission run.
type MissionSample struct {
	Mission  string
	Kind     string
	Status   string
	Duration time.Duration
	// Lead is the match clock when the mission finished.
	Lead time.Duration
	At   time.Time
}

// WriteStep records a step duration.
func (c *Client) WriteStep(s StepSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(stepPoint(s))
}

// WriteMission records a mission run.
func (c *Client) WriteMission(s MissionSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(missionPoint(s))
}

// WritePoint writes a point with arbitrary tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}

func stepPoint(s StepSample) *write.Point {
	return write.NewPoint(
		MeasurementStep,
		map[string]string{
			"kind": s.Kind,
			"name": s.Name,
		},
		map[string]any{
			"duration_ms": float64(s.Duration) / float64(time.Millisecond),
			"failed":      s.Failed,
		},
		s.At,
	)
}

func missionPoint(s MissionSample) *write.Point {
	return write.NewPoint(
		MeasurementMission,
		map[string]string{
			"mission": s.Mission,
			"kind":    s.Kind,
			"status":  s.Status,
		},
		map[string]any{
			"duration_ms": s.Duration.Milliseconds(),
			"lead_ms":     s.Lead.Milliseconds(),
		},
		s.At,
	)
}
