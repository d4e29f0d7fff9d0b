package mission

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/hardware/sim"
	"github.com/nerrad567/mission-core/internal/step"
)

func TestNewController_Validation(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	tests := []struct {
		name string
		opts Options
	}{
		{"no registry", Options{}},
		{"registry without device", Options{Registry: hardware.NewRegistry(nil)}},
		{"negative auto shutdown", Options{Registry: reg, AutoShutdown: -time.Second}},
		{"invalid mission", Options{Registry: reg, Missions: []Mission{{Name: "a/b"}}}},
		{"duplicate names", Options{
			Registry: reg,
			Missions: []Mission{tracedMission(tr, "a", nil)},
			Shutdown: missionPtr(tracedMission(tr, "a", nil)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.opts); !errors.Is(err, ErrInvalidMission) {
				t.Errorf("NewController() error = %v, want ErrInvalidMission", err)
			}
		})
	}
}

func TestExecute_Lifecycle(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{
		RobotID:  "bot-7",
		Registry: reg,
		Setup:    missionPtr(tracedMission(tr, "setup", nil)),
		Missions: []Mission{
			tracedMission(tr, "first", nil),
			tracedMission(tr, "second", nil),
		},
		Shutdown: missionPtr(tracedMission(tr, "shutdown", nil)),
		StartGate: GateFunc(func(context.Context) error {
			tr.add("gate")
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"setup", "gate", "first", "second", "shutdown"}
	if got := tr.get(); !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if !c.Synchroniser().Started() {
		t.Error("match clock should be running after the start signal")
	}

	runs := c.Runs()
	if len(runs) != 4 {
		t.Fatalf("Runs() = %d, want 4", len(runs))
	}
	wantKinds := []Kind{KindSetup, KindMain, KindMain, KindShutdown}
	for i, run := range runs {
		if run.Kind != wantKinds[i] || run.Status != StatusCompleted || run.RobotID != "bot-7" {
			t.Errorf("run %d = %s/%s/%s", i, run.Mission, run.Kind, run.Status)
		}
		if run.CompletedAt == nil {
			t.Errorf("run %d has no completion time", i)
		}
	}

	if err := c.Execute(context.Background()); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("second Execute() error = %v, want ErrAlreadyExecuted", err)
	}
}

func TestExecute_MotionContinuityAcrossMissions(t *testing.T) {
	reg, dev := newRegistry(t)
	drive := func(name string) Mission {
		return Mission{Name: name, Build: func(*hardware.Registry) (step.Step, error) {
			return step.DriveForward(6*time.Millisecond, 0.2)
		}}
	}

	c, err := NewController(Options{Registry: reg, Missions: []Mission{drive("out"), drive("back")}})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{
		sim.CallSetSpeedWhile, sim.CallResetState,
		sim.CallSetSpeedWhile, sim.CallResetState, sim.CallStop, sim.CallResetRamps,
		sim.CallStop,
	}
	if got := dev.Calls(); !slices.Equal(got, want) {
		t.Errorf("device calls = %v, want %v", got, want)
	}
}

func TestExecute_AutoShutdown(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{
		Registry:     reg,
		Missions:     []Mission{waitMission("long", time.Minute), tracedMission(tr, "never", nil)},
		Shutdown:     missionPtr(tracedMission(tr, "shutdown", nil)),
		AutoShutdown: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	start := time.Now()
	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v, auto shutdown is not an error", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Execute() took %v, auto shutdown did not cut the match", elapsed)
	}

	if got := tr.get(); !slices.Equal(got, []string{"shutdown"}) {
		t.Errorf("trace = %v, want only the shutdown mission", got)
	}
	runs := c.Runs()
	if len(runs) != 2 || runs[0].Status != StatusTimedOut {
		t.Fatalf("runs = %+v, want timed out main then shutdown", runs)
	}
	if runs[1].Kind != KindShutdown || runs[1].Status != StatusCompleted {
		t.Errorf("shutdown run = %s/%s", runs[1].Kind, runs[1].Status)
	}
}

func TestExecute_FailureStillRunsShutdown(t *testing.T) {
	reg, dev := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{
		Registry: reg,
		Missions: []Mission{tracedMission(tr, "broken", errBoom), tracedMission(tr, "skipped", nil)},
		Shutdown: missionPtr(tracedMission(tr, "shutdown", nil)),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	err = c.Execute(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want errBoom", err)
	}
	if got := tr.get(); !slices.Equal(got, []string{"broken", "shutdown"}) {
		t.Errorf("trace = %v", got)
	}
	if runs := c.Runs(); runs[0].Status != StatusFailed || runs[0].Error == "" {
		t.Errorf("failed run = %+v", runs[0])
	}
	if dev.Count(sim.CallStop) == 0 {
		t.Error("device was not stopped after failure")
	}
}

func TestExecute_ParentCancellation(t *testing.T) {
	reg, _ := newRegistry(t)

	var shutdownCtxErr error
	shutdownRan := false
	c, err := NewController(Options{
		Registry: reg,
		Missions: []Mission{waitMission("long", time.Minute)},
		Shutdown: missionPtr(customMission("shutdown", func(ctx context.Context, _ *step.Env) error {
			shutdownRan = true
			shutdownCtxErr = ctx.Err()
			return nil
		})),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err = c.Execute(ctx)
	if !errors.Is(err, step.ErrCancelledByParent) {
		t.Errorf("Execute() error = %v, want ErrCancelledByParent", err)
	}
	if !shutdownRan {
		t.Fatal("shutdown mission did not run after cancellation")
	}
	if shutdownCtxErr != nil {
		t.Errorf("shutdown ran on a cancelled context: %v", shutdownCtxErr)
	}
	if runs := c.Runs(); runs[0].Status != StatusCancelled {
		t.Errorf("main run status = %s, want cancelled", runs[0].Status)
	}
}

func TestExecute_ShutdownTimeout(t *testing.T) {
	reg, _ := newRegistry(t)

	c, err := NewController(Options{
		Registry:        reg,
		Shutdown:        missionPtr(waitMission("slow_shutdown", time.Minute)),
		ShutdownTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	err = c.Execute(context.Background())
	if !errors.Is(err, step.ErrCancelledByParent) {
		t.Errorf("Execute() error = %v, want the bounded shutdown to be cancelled", err)
	}
}

func TestExecute_StartAborted(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{
		Registry:  reg,
		Missions:  []Mission{tracedMission(tr, "main", nil)},
		Shutdown:  missionPtr(tracedMission(tr, "shutdown", nil)),
		StartGate: GateFunc(func(context.Context) error { return errBoom }),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	err = c.Execute(context.Background())
	if !errors.Is(err, ErrStartAborted) || !errors.Is(err, errBoom) {
		t.Errorf("Execute() error = %v, want ErrStartAborted wrapping errBoom", err)
	}
	if got := tr.get(); !slices.Equal(got, []string{"shutdown"}) {
		t.Errorf("trace = %v, want only the shutdown mission", got)
	}
}

func TestExecute_BuildFailure(t *testing.T) {
	tests := []struct {
		name  string
		build BuildFunc
	}{
		{"error", func(*hardware.Registry) (step.Step, error) { return nil, errBoom }},
		{"panic", func(*hardware.Registry) (step.Step, error) {
			return step.Must(step.NewWait(-time.Second)), nil
		}},
		{"nil tree", func(*hardware.Registry) (step.Step, error) { return nil, nil }},
		{"missing capability", func(reg *hardware.Registry) (step.Step, error) {
			motor, err := reg.Motor("arm")
			if err != nil {
				return nil, err
			}
			return step.NewStopMotor(motor)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, dev := newRegistry(t)
			tr := &trace{}

			c, err := NewController(Options{
				Registry: reg,
				Setup:    missionPtr(tracedMission(tr, "setup", nil)),
				Missions: []Mission{{Name: "bad", Build: tt.build}},
				Shutdown: missionPtr(tracedMission(tr, "shutdown", nil)),
			})
			if err != nil {
				t.Fatalf("NewController() error = %v", err)
			}

			if err := c.Execute(context.Background()); !errors.Is(err, ErrBuildFailed) {
				t.Fatalf("Execute() error = %v, want ErrBuildFailed", err)
			}
			if got := tr.get(); len(got) != 0 {
				t.Errorf("missions ran after a build failure: %v", got)
			}
			if calls := dev.Calls(); len(calls) != 0 {
				t.Errorf("device touched after a build failure: %v", calls)
			}
		})
	}
}

func TestExecute_HistoryAndTelemetry(t *testing.T) {
	reg, _ := newRegistry(t)
	repo := openTestRepository(t)
	pub := &recordingPublisher{}
	tr := &trace{}

	c, err := NewController(Options{
		RobotID:      "bot-7",
		Registry:     reg,
		Missions:     []Mission{tracedMission(tr, "collect", nil), tracedMission(tr, "deliver", errBoom)},
		Repository:   repo,
		HistoryLimit: 10,
		Publisher:    pub,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if err := c.Execute(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want errBoom", err)
	}

	published := pub.get()
	wantStatus := []Status{StatusRunning, StatusCompleted, StatusRunning, StatusFailed}
	if len(published) != len(wantStatus) {
		t.Fatalf("published %d transitions, want %d", len(published), len(wantStatus))
	}
	for i, run := range published {
		if run.Status != wantStatus[i] {
			t.Errorf("transition %d = %s, want %s", i, run.Status, wantStatus[i])
		}
	}

	ctx := context.Background()
	stored, err := repo.Get(ctx, published[3].ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Mission != "deliver" || stored.Status != StatusFailed || stored.RobotID != "bot-7" {
		t.Errorf("stored run = %+v", stored)
	}

	stats, err := c.Stats(ctx, "collect")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 1 {
		t.Errorf("Stats().Count = %d, want 1", stats.Count)
	}
	stats, err = c.Stats(ctx, "deliver")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 0 {
		t.Errorf("failed runs counted in stats: %+v", stats)
	}
}

func TestStats_WithoutRepository(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{Registry: reg, Missions: []Mission{tracedMission(tr, "collect", nil)}})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if err := c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	stats, err := c.Stats(context.Background(), "collect")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 1 || stats.Min != stats.Max {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestExecute_PanickingMissionIsRecorded(t *testing.T) {
	reg, _ := newRegistry(t)
	tr := &trace{}

	c, err := NewController(Options{
		Registry: reg,
		Missions: []Mission{customMission("explode", func(context.Context, *step.Env) error {
			panic("servo bracket snapped")
		})},
		Shutdown: missionPtr(tracedMission(tr, "shutdown", nil)),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	if err := c.Execute(context.Background()); !errors.Is(err, step.ErrStepPanic) {
		t.Fatalf("Execute() error = %v, want ErrStepPanic", err)
	}
	if got := tr.get(); !slices.Equal(got, []string{"shutdown"}) {
		t.Errorf("trace = %v, want the shutdown mission after the panic", got)
	}

	runs := c.Runs()
	if len(runs) != 2 {
		t.Fatalf("runs = %+v, want the panicked main run then shutdown", runs)
	}
	if runs[0].Mission != "explode" || runs[0].Status != StatusFailed || runs[0].CompletedAt == nil {
		t.Errorf("panicked run = %+v, want a completed failed record", runs[0])
	}
	if runs[0].Error == "" {
		t.Error("panicked run has no error message")
	}
}
