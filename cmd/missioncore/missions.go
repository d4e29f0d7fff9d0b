package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/hardware/sim"
	"github.com/nerrad567/mission-core/internal/infrastructure/config"
	"github.com/nerrad567/mission-core/internal/mission"
	"github.com/nerrad567/mission-core/internal/step"
)

// Port names bound in the registry.
const (
	motorHopper   = "hopper"
	motorConveyor = "conveyor"
	servoArm      = "arm"
	servoClaw     = "claw"
	sensorHopper  = "hopper_light"
)

// Arm and claw angles in degrees.
const (
	armStowed  = 160
	armDown    = 40
	clawOpen   = 120
	clawClosed = 20
)

// Match checkpoints, measured from the start signal.
const (
	collectUntil = 60 * time.Second
	parkBy       = 100 * time.Second
)

// newSimRegistry binds the simulated robot. The hopper sensor sees one
// object pass shortly after shaking starts; the start sensor sees the lamp
// after a short delay.
func newSimRegistry(cfg *config.Config, log hardware.Logger) (*hardware.Registry, error) {
	reg := hardware.NewRegistry(sim.NewDevice(cfg.GetSimulationTick()))
	reg.SetLogger(log)

	hopperScript := make([]bool, 0, 64)
	for range 40 {
		hopperScript = append(hopperScript, false)
	}
	for range 10 {
		hopperScript = append(hopperScript, true)
	}
	hopperScript = append(hopperScript, false)

	startScript := make([]bool, 0, 32)
	for range 25 {
		startScript = append(startScript, false)
	}
	startScript = append(startScript, true)

	bindings := []func() error{
		func() error { return reg.RegisterMotor(motorHopper, sim.NewMotor()) },
		func() error { return reg.RegisterMotor(motorConveyor, sim.NewMotor()) },
		func() error { return reg.RegisterServo(servoArm, sim.NewServo(armStowed)) },
		func() error { return reg.RegisterServo(servoClaw, sim.NewServo(clawClosed)) },
		func() error { return reg.RegisterSensor(sensorHopper, sim.NewLightSensor(hopperScript...)) },
		func() error { return reg.RegisterSensor(cfg.Mission.StartSensor, sim.NewLightSensor(startScript...)) },
	}
	for _, bind := range bindings {
		if err := bind(); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// phaseConfig maps the hopper section onto the phase machine tuning.
func phaseConfig(h config.HopperConfig) step.PhaseConfig {
	return step.PhaseConfig{
		UpPercent:     h.UpPercent,
		DownPercent:   h.DownPercent,
		ShakeInterval: h.ShakeInterval(),
		HoldTime:      h.HoldTime(),
		PollInterval:  h.PollInterval(),
		MaxPhaseTime:  h.MaxPhaseTime(),
		MaxRetries:    h.MaxRetries,
	}
}

// missionSet is the match plan for the competition table.
type missionSet struct {
	setup    mission.Mission
	main     []mission.Mission
	shutdown mission.Mission
}

func newMissionSet(cfg *config.Config) missionSet {
	hopper := phaseConfig(cfg.Hopper)

	return missionSet{
		setup: mission.Mission{Name: "setup", Build: buildSetup},
		main: []mission.Mission{
			{Name: "leave_start", Build: buildLeaveStart},
			{Name: "collect", Build: buildCollect},
			{Name: "deliver", Build: func(reg *hardware.Registry) (step.Step, error) {
				return buildDeliver(reg, hopper)
			}},
			{Name: "park", Build: buildPark},
		},
		shutdown: mission.Mission{Name: "shutdown", Build: buildShutdown},
	}
}

func buildSetup(reg *hardware.Registry) (step.Step, error) {
	arm, err := reg.Servo(servoArm)
	if err != nil {
		return nil, err
	}
	claw, err := reg.Servo(servoClaw)
	if err != nil {
		return nil, err
	}

	return step.NewSequential(
		step.Must(step.NewEnableServo(arm)),
		step.Must(step.NewEnableServo(claw)),
		step.Must(step.NewSetServo(arm, armStowed)),
		step.Must(step.NewSetServo(claw, clawClosed)),
	)
}

func buildLeaveStart(*hardware.Registry) (step.Step, error) {
	return step.NewSequential(
		step.Must(step.DriveForward(1200*time.Millisecond, 0.6)),
		step.Must(step.TurnCW(90, 1.5)),
		step.Must(step.DriveForward(800*time.Millisecond, 0.6)),
	)
}

// buildCollect sweeps the field with the claw open while the conveyor pulls
// objects in, then closes the claw once the collection window has passed.
func buildCollect(reg *hardware.Registry) (step.Step, error) {
	arm, err := reg.Servo(servoArm)
	if err != nil {
		return nil, err
	}
	claw, err := reg.Servo(servoClaw)
	if err != nil {
		return nil, err
	}
	conveyor, err := reg.Motor(motorConveyor)
	if err != nil {
		return nil, err
	}

	lower := step.Must(step.NewParallel(
		step.Must(step.StrafeLeft(500*time.Millisecond, 0.3)),
		step.Must(step.NewSetServo(arm, armDown)),
		step.Must(step.NewSetServo(claw, clawOpen)),
	))

	sweep := step.Must(step.NewDoWhileActive(
		step.Must(step.DriveForward(2*time.Second, 0.4)),
		step.Must(step.NewLoopForever(step.Must(step.NewSetMotor(conveyor, 80, 250*time.Millisecond)))),
	))

	return step.NewSequential(
		lower,
		step.Must(step.NewDoUntilCheckpoint(collectUntil, step.Must(step.NewLoopFor(sweep, 3)))),
		step.Must(step.NewStopMotor(conveyor)),
		step.Must(step.NewSetServo(claw, clawClosed)),
		step.Must(step.NewSlowServo(arm, armStowed, 600*time.Millisecond)),
	)
}

func buildDeliver(reg *hardware.Registry, cfg step.PhaseConfig) (step.Step, error) {
	motor, err := reg.Motor(motorHopper)
	if err != nil {
		return nil, err
	}
	sensor, err := reg.Sensor(sensorHopper)
	if err != nil {
		return nil, err
	}

	dump, err := step.NewPhaseMachine(motor, sensor, cfg)
	if err != nil {
		return nil, fmt.Errorf("hopper: %w", err)
	}

	return step.NewSequential(
		step.Must(step.TurnCCW(45, 1.5)),
		step.Must(step.DriveBackward(600*time.Millisecond, 0.5)),
		step.Must(step.NewTimeout(step.Named(dump, "dump_hopper"), 10*time.Second)),
		step.Must(step.NewCustom(reportOdometer)),
	)
}

func buildPark(reg *hardware.Registry) (step.Step, error) {
	claw, err := reg.Servo(servoClaw)
	if err != nil {
		return nil, err
	}

	return step.NewSequential(
		step.Must(step.DriveForward(1500*time.Millisecond, 0.8)),
		step.Must(step.TurnCW(180, 2)),
		step.Must(step.NewWaitForCheckpoint(parkBy)),
		step.Must(step.NewShakeServo(claw, time.Second, clawClosed, 60)),
	)
}

// buildShutdown leaves every actuator at rest with the arm stowed.
func buildShutdown(reg *hardware.Registry) (step.Step, error) {
	hopper, err := reg.Motor(motorHopper)
	if err != nil {
		return nil, err
	}
	conveyor, err := reg.Motor(motorConveyor)
	if err != nil {
		return nil, err
	}
	arm, err := reg.Servo(servoArm)
	if err != nil {
		return nil, err
	}

	return step.NewSequential(
		step.Must(step.NewStopMotor(hopper)),
		step.Must(step.NewStopMotor(conveyor)),
		step.Must(step.NewSetServo(arm, armStowed)),
	)
}

func reportOdometer(_ context.Context, env *step.Env) error {
	if sd, ok := env.Device.(*sim.Device); ok {
		odo := sd.Odometer()
		env.Logger.Info("odometer", "distance", odo.Distance, "heading", odo.Heading)
	}
	return nil
}
