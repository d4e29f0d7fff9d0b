package main

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/infrastructure/config"
	"github.com/nerrad567/mission-core/internal/infrastructure/logging"
	"github.com/nerrad567/mission-core/internal/step"
)

func testRegistry(t *testing.T) (*config.Config, *hardware.Registry) {
	t.Helper()

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error = %v", err)
	}
	cfg.Simulation.TickMS = 2

	log := logging.NewWithWriter(io.Discard, cfg.Logging, cfg.Robot.ID, "test")
	reg, err := newSimRegistry(cfg, log)
	if err != nil {
		t.Fatalf("newSimRegistry() error = %v", err)
	}
	return cfg, reg
}

func TestNewSimRegistry(t *testing.T) {
	cfg, reg := testRegistry(t)

	names := reg.Names()
	if want := []string{motorConveyor, motorHopper}; !slices.Equal(names["motor"], want) {
		t.Errorf("motors = %v, want %v", names["motor"], want)
	}
	if want := []string{servoArm, servoClaw}; !slices.Equal(names["servo"], want) {
		t.Errorf("servos = %v, want %v", names["servo"], want)
	}
	if _, err := reg.Sensor(cfg.Mission.StartSensor); err != nil {
		t.Errorf("start sensor not bound: %v", err)
	}
}

func TestNewSimRegistry_SensorClash(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error = %v", err)
	}
	cfg.Mission.StartSensor = sensorHopper

	log := logging.NewWithWriter(io.Discard, cfg.Logging, cfg.Robot.ID, "test")
	if _, err := newSimRegistry(cfg, log); err == nil {
		t.Error("newSimRegistry() should reject a start sensor named like the hopper sensor")
	}
}

func TestMissionSetBuilds(t *testing.T) {
	cfg, reg := testRegistry(t)
	set := newMissionSet(cfg)

	all := append([]string{set.setup.Name}, set.shutdown.Name)
	builds := map[string]func(*hardware.Registry) (step.Step, error){
		set.setup.Name:    set.setup.Build,
		set.shutdown.Name: set.shutdown.Build,
	}
	for _, m := range set.main {
		all = append(all, m.Name)
		builds[m.Name] = m.Build
	}

	for _, name := range all {
		t.Run(name, func(t *testing.T) {
			tree, err := builds[name](reg)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if err := step.Validate(tree); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestPhaseConfig(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error = %v", err)
	}

	if got := phaseConfig(cfg.Hopper); got != step.DefaultPhaseConfig() {
		t.Errorf("phaseConfig(defaults) = %+v, want %+v", got, step.DefaultPhaseConfig())
	}
}

// TestHopperDrop runs the hopper phase machine against the scripted
// simulator: one object appears and clears without an unjam.
func TestHopperDrop(t *testing.T) {
	cfg, reg := testRegistry(t)

	motor, err := reg.Motor(motorHopper)
	if err != nil {
		t.Fatal(err)
	}
	sensor, err := reg.Sensor(sensorHopper)
	if err != nil {
		t.Fatal(err)
	}
	dump, err := step.NewPhaseMachine(motor, sensor, phaseConfig(cfg.Hopper))
	if err != nil {
		t.Fatalf("NewPhaseMachine() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := step.RunMission(ctx, dump, &step.Env{Device: reg.Device()}); err != nil {
		t.Fatalf("RunMission() error = %v", err)
	}

	want := []step.Phase{
		step.PhaseInitialClear,
		step.PhaseAwaitAppear,
		step.PhaseAwaitClear,
		step.PhaseFinalLift,
	}
	if got := dump.Phases(); !slices.Equal(got, want) {
		t.Errorf("Phases() = %v, want %v", got, want)
	}
}
