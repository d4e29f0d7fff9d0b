package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

var (
	_ hardware.Motor       = (*Motor)(nil)
	_ hardware.Servo       = (*Servo)(nil)
	_ hardware.LightSensor = (*LightSensor)(nil)
)

// Motor is a simulated motor port that records every velocity it is given.
type Motor struct {
	mu         sync.Mutex
	velocities []int
	fail       error
}

// NewMotor creates a simulated motor.
func NewMotor() *Motor { return &Motor{} }

// SetVelocity records velocity.
func (m *Motor) SetVelocity(velocity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		err := m.fail
		m.fail = nil
		return fmt.Errorf("%w: %v", hardware.ErrDeviceFault, err)
	}
	m.velocities = append(m.velocities, velocity)
	return nil
}

// Stop records a zero velocity.
func (m *Motor) Stop() error { return m.SetVelocity(0) }

// FailNext makes the next command fail with err.
func (m *Motor) FailNext(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Velocities returns a copy of every commanded velocity in order.
func (m *Motor) Velocities() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.velocities))
	copy(out, m.velocities)
	return out
}

// Velocity returns the last commanded velocity.
func (m *Motor) Velocity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.velocities) == 0 {
		return 0
	}
	return m.velocities[len(m.velocities)-1]
}

// Servo is a simulated servo port.
type Servo struct {
	mu        sync.Mutex
	enabled   bool
	position  int
	positions []int
}

// NewServo creates a simulated servo resting at position.
func NewServo(position int) *Servo { return &Servo{position: position} }

// Enable powers the servo.
func (s *Servo) Enable() error {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return nil
}

// SetPosition jumps to position.
func (s *Servo) SetPosition(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.positions = append(s.positions, position)
	return nil
}

// SetPositionOver waits d then lands on position.
func (s *Servo) SetPositionOver(ctx context.Context, position int, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return s.SetPosition(position)
}

// Position returns the current position.
func (s *Servo) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Enabled reports whether Enable was called.
func (s *Servo) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Positions returns a copy of every commanded position in order.
func (s *Servo) Positions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.positions))
	copy(out, s.positions)
	return out
}

// Raw readings reported by the simulated light sensor.
const (
	WhiteValue = 300.0
	BlackValue = 3600.0
)

// LightSensor is a scripted reflectance sensor. Each IsOnWhite call consumes
// one scripted reading; the last reading repeats once the script runs out.
type LightSensor struct {
	mu       sync.Mutex
	readings []bool
	reads    int
}

// NewLightSensor creates a sensor that reports the given white readings in order.
// With no readings it always reports black.
func NewLightSensor(readings ...bool) *LightSensor {
	return &LightSensor{readings: readings}
}

// Set replaces the script with a constant reading.
func (l *LightSensor) Set(white bool) {
	l.mu.Lock()
	l.readings = []bool{white}
	l.mu.Unlock()
}

// IsOnWhite returns the next scripted reading.
func (l *LightSensor) IsOnWhite() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next()
}

// IsOnBlack is the inverse of IsOnWhite.
func (l *LightSensor) IsOnBlack() bool { return !l.IsOnWhite() }

// Value maps the next reading to a raw value.
func (l *LightSensor) Value() float64 {
	if l.IsOnWhite() {
		return WhiteValue
	}
	return BlackValue
}

// Reads returns how many readings have been taken.
func (l *LightSensor) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

func (l *LightSensor) next() bool {
	if len(l.readings) == 0 {
		l.reads++
		return false
	}
	i := l.reads
	if i >= len(l.readings) {
		i = len(l.readings) - 1
	}
	l.reads++
	return l.readings[i]
}
