package step

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// Phase is a state of the PhaseMachine.
type Phase int

// Phases in the order they normally run.
const (
	PhaseInitialClear Phase = iota
	PhaseAwaitAppear
	PhaseAwaitClear
	PhaseUnjam
	PhaseFinalLift
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitialClear:
		return "initial_clear"
	case PhaseAwaitAppear:
		return "await_appear"
	case PhaseAwaitClear:
		return "await_clear"
	case PhaseUnjam:
		return "unjam"
	case PhaseFinalLift:
		return "final_lift"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// finalLiftGrace bounds the final lift beyond its hold time.
const finalLiftGrace = time.Second

var errPhaseTimedOut = errors.New("step: phase time exceeded")

// PhaseConfig tunes the PhaseMachine.
type PhaseConfig struct {
	UpPercent     float64       // motor percent that lifts the head
	DownPercent   float64       // motor percent that lowers the head
	ShakeInterval time.Duration // length of one half shake cycle
	HoldTime      time.Duration // duration of a full lift or lower
	PollInterval  time.Duration // sensor sampling period
	MaxPhaseTime  time.Duration // bound on AwaitAppear
	MaxRetries    int           // unjam attempts after AwaitAppear times out
}

// DefaultPhaseConfig returns the tuning used on the competition robot.
func DefaultPhaseConfig() PhaseConfig {
	return PhaseConfig{
		UpPercent:     -60,
		DownPercent:   60,
		ShakeInterval: 100 * time.Millisecond,
		HoldTime:      300 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		MaxPhaseTime:  2500 * time.Millisecond,
		MaxRetries:    1,
	}
}

// Validate checks the configuration.
func (c PhaseConfig) Validate() error {
	if _, err := hardware.PercentToVelocity(c.UpPercent); err != nil {
		return invalid("phase_machine: up: %v", err)
	}
	if _, err := hardware.PercentToVelocity(c.DownPercent); err != nil {
		return invalid("phase_machine: down: %v", err)
	}
	for what, d := range map[string]time.Duration{
		"shake interval": c.ShakeInterval,
		"hold time":      c.HoldTime,
		"poll interval":  c.PollInterval,
		"max phase time": c.MaxPhaseTime,
	} {
		if err := validDuration("phase_machine", what, d, false); err != nil {
			return err
		}
	}
	if c.MaxRetries < 0 {
		return invalid("phase_machine: max retries %d is negative", c.MaxRetries)
	}
	return nil
}

// PhaseMachine shakes a hopper motor until a light sensor sees an object
// appear and then disappear, unjamming when nothing shows up in time.
//
//	InitialClear ──▶ AwaitAppear ──appeared──▶ AwaitClear ──▶ FinalLift
//	                   │   ▲
//	           timeout │   │ retries left
//	                   ▼   │
//	                   Unjam
//
// AwaitAppear is bounded by MaxPhaseTime; AwaitClear is not, since by then
// an object is known to be in the chute. FinalLift runs exactly once on
// every exit path, including failure and cancellation.
type PhaseMachine struct {
	Base
	motor  hardware.Motor
	sensor hardware.LightSensor
	cfg    PhaseConfig
	up     int
	down   int
	polls  int

	mu     sync.Mutex
	phases []Phase
}

// NewPhaseMachine creates the step.
func NewPhaseMachine(motor hardware.Motor, sensor hardware.LightSensor, cfg PhaseConfig) (*PhaseMachine, error) {
	if motor == nil {
		return nil, invalid("phase_machine: nil motor")
	}
	if sensor == nil {
		return nil, invalid("phase_machine: nil sensor")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	up, _ := hardware.PercentToVelocity(cfg.UpPercent)
	down, _ := hardware.PercentToVelocity(cfg.DownPercent)
	return &PhaseMachine{
		Base:   Base{kind: "phase_machine"},
		motor:  motor,
		sensor: sensor,
		cfg:    cfg,
		up:     up,
		down:   down,
		polls:  max(1, int(cfg.ShakeInterval/cfg.PollInterval)),
	}, nil
}

// ShakeUntilDropped is a PhaseMachine with DefaultPhaseConfig.
func ShakeUntilDropped(motor hardware.Motor, sensor hardware.LightSensor) (*PhaseMachine, error) {
	m, err := NewPhaseMachine(motor, sensor, DefaultPhaseConfig())
	if err != nil {
		return nil, err
	}
	m.SetName("shake_until_dropped")
	return m, nil
}

// Phases returns the phases entered during the last run, in order.
func (m *PhaseMachine) Phases() []Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Phase, len(m.phases))
	copy(out, m.phases)
	return out
}

// Run executes the phase machine.
func (m *PhaseMachine) Run(ctx context.Context, env *Env) (err error) {
	m.mu.Lock()
	m.phases = m.phases[:0]
	m.mu.Unlock()

	log := env.log()
	defer func() {
		m.enter(log, PhaseFinalLift)
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.HoldTime+finalLiftGrace)
		defer cancel()
		if liftErr := m.pulse(lctx, m.up); liftErr != nil && err == nil {
			err = liftErr
		}
	}()

	m.enter(log, PhaseInitialClear)
	if err := m.pulse(ctx, m.down); err != nil {
		return err
	}

	retries := m.cfg.MaxRetries
	for {
		m.enter(log, PhaseAwaitAppear)
		actx, cancel := context.WithTimeoutCause(ctx, m.cfg.MaxPhaseTime, errPhaseTimedOut)
		err := m.shakeUntil(actx, true)
		cancel()

		if err == nil {
			m.enter(log, PhaseAwaitClear)
			return m.shakeUntil(ctx, false)
		}
		if ctx.Err() != nil || !errors.Is(err, errPhaseTimedOut) {
			return err
		}

		if retries == 0 {
			log.Warn("nothing appeared, giving up", "step", m.Name(), "retries", m.cfg.MaxRetries)
			return nil
		}
		retries--

		m.enter(log, PhaseUnjam)
		if err := m.unjam(ctx); err != nil {
			return err
		}
	}
}

func (m *PhaseMachine) enter(log Logger, p Phase) {
	m.mu.Lock()
	m.phases = append(m.phases, p)
	m.mu.Unlock()
	log.Debug("phase entered", "step", m.Name(), "phase", p.String())
}

// pulse runs the motor at velocity for HoldTime and stops it, even when the
// hold is cut short.
func (m *PhaseMachine) pulse(ctx context.Context, velocity int) error {
	if err := m.motor.SetVelocity(velocity); err != nil {
		return deviceFault(err)
	}
	if err := sleep(ctx, m.cfg.HoldTime); err != nil {
		return errors.Join(err, deviceFault(m.motor.SetVelocity(0)))
	}
	return deviceFault(m.motor.SetVelocity(0))
}

func (m *PhaseMachine) unjam(ctx context.Context) error {
	if err := m.pulse(ctx, m.up); err != nil {
		return err
	}
	return m.pulse(ctx, m.down)
}

// shakeUntil alternates down and up half cycles, polling the sensor, until
// it reads want.
func (m *PhaseMachine) shakeUntil(ctx context.Context, want bool) error {
	for {
		for _, v := range [2]int{m.down, m.up} {
			if err := m.motor.SetVelocity(v); err != nil {
				return deviceFault(err)
			}
			for range m.polls {
				if m.sensor.IsOnWhite() == want {
					return nil
				}
				if err := sleep(ctx, m.cfg.PollInterval); err != nil {
					return err
				}
			}
		}
	}
}
