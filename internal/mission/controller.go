package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/step"
)

// DefaultShutdownTimeout bounds the shutdown mission when Options leaves it
// unset.
const DefaultShutdownTimeout = 5 * time.Second

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RunPublisher is told about every run transition. Implementations must not
// block the mission for long; failures are theirs to log.
type RunPublisher interface {
	PublishRun(ctx context.Context, run Run)
}

// RunPublishers fans run transitions out to several publishers in order.
type RunPublishers []RunPublisher

// PublishRun implements RunPublisher.
func (p RunPublishers) PublishRun(ctx context.Context, run Run) {
	for _, pub := range p {
		pub.PublishRun(ctx, run)
	}
}

// Options configures a Controller.
type Options struct {
	RobotID  string
	Registry *hardware.Registry

	// Setup runs before the start gate, on its own clock.
	Setup *Mission
	// Missions run in order as one sequence after the start signal, with
	// motion continuity across mission boundaries.
	Missions []Mission
	// Shutdown runs exactly once at the end, even after failure or
	// cancellation.
	Shutdown *Mission

	StartGate StartGate
	// AutoShutdown ends the main missions this long after the start
	// signal. Zero disables the limit.
	AutoShutdown    time.Duration
	ShutdownTimeout time.Duration

	Repository   Repository
	HistoryLimit int
	Publisher    RunPublisher
	Observer     step.Observer
	Logger       Logger
}

// Controller drives one match: setup, start gate, main missions under the
// match timer, then the shutdown mission.
type Controller struct {
	opts     Options
	logger   Logger
	sync     *step.Synchroniser
	executed atomic.Bool

	mu   sync.Mutex
	runs []Run
}

type plan struct {
	setup    step.Step
	main     []step.Step
	shutdown step.Step
}

// NewController validates the mission set.
func NewController(opts Options) (*Controller, error) {
	if opts.Registry == nil || opts.Registry.Device() == nil {
		return nil, fmt.Errorf("%w: registry with a drive base is required", ErrInvalidMission)
	}
	if opts.AutoShutdown < 0 {
		return nil, fmt.Errorf("%w: negative auto shutdown %v", ErrInvalidMission, opts.AutoShutdown)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	seen := make(map[string]bool)
	for _, m := range opts.all() {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("%w: duplicate mission name %q", ErrInvalidMission, m.Name)
		}
		seen[m.Name] = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Controller{
		opts:   opts,
		logger: logger,
		sync:   step.NewSynchroniser(logger),
	}, nil
}

func (o Options) all() []Mission {
	out := make([]Mission, 0, len(o.Missions)+2)
	if o.Setup != nil {
		out = append(out, *o.Setup)
	}
	out = append(out, o.Missions...)
	if o.Shutdown != nil {
		out = append(out, *o.Shutdown)
	}
	return out
}

// Synchroniser returns the match clock. It starts at the start signal.
func (c *Controller) Synchroniser() *step.Synchroniser {
	return c.sync
}

// Execute runs the match. Every tree is built before anything moves; a
// build failure returns ErrBuildFailed with the robot untouched. Once
// building succeeds the shutdown mission is guaranteed to run, on a context
// that ignores ctx's cancellation and is bounded by ShutdownTimeout.
//
// Reaching AutoShutdown is not an error. Execute may only be called once.
func (c *Controller) Execute(ctx context.Context) (err error) {
	if !c.executed.CompareAndSwap(false, true) {
		return ErrAlreadyExecuted
	}

	p, err := c.build()
	if err != nil {
		return err
	}

	device := c.opts.Registry.Device()
	env := &step.Env{
		Device:   device,
		Sync:     c.sync,
		Logger:   c.logger,
		Observer: c.opts.Observer,
	}

	defer func() {
		device.Stop()
		err = errors.Join(err, c.runShutdown(ctx, p.shutdown, env))
	}()

	if p.setup != nil {
		setupEnv := *env
		setupEnv.Sync = nil
		if err := step.RunMission(ctx, p.setup, &setupEnv); err != nil {
			return fmt.Errorf("setup mission: %w", err)
		}
	}

	if c.opts.StartGate != nil {
		c.logger.Info("waiting for start signal")
		if err := c.opts.StartGate.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrStartAborted, err)
		}
		c.logger.Info("start signal received")
	}

	c.sync.StartRecording()
	return c.runMain(ctx, p.main, env)
}

func (c *Controller) runMain(ctx context.Context, missions []step.Step, env *step.Env) error {
	if len(missions) == 0 {
		return nil
	}
	root, err := step.NewSequential(missions...)
	if err != nil {
		return err
	}

	mainCtx := ctx
	if c.opts.AutoShutdown > 0 {
		var cancel context.CancelFunc
		mainCtx, cancel = context.WithTimeoutCause(ctx, c.opts.AutoShutdown, ErrAutoShutdown)
		defer cancel()
	}

	err = step.RunMission(mainCtx, step.Named(root, "main"), env)
	if err != nil && ctx.Err() == nil && errors.Is(context.Cause(mainCtx), ErrAutoShutdown) {
		c.logger.Info("auto shutdown reached",
			"limit", c.opts.AutoShutdown,
			"clock", c.sync.Elapsed(),
		)
		return nil
	}
	return err
}

func (c *Controller) runShutdown(ctx context.Context, tree step.Step, env *step.Env) error {
	if tree == nil {
		return nil
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	err := step.RunMission(sctx, tree, env)
	c.logger.Info("shutdown mission finished", "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		return fmt.Errorf("shutdown mission: %w", err)
	}
	return nil
}

func (c *Controller) build() (plan, error) {
	var p plan
	var err error

	if c.opts.Setup != nil {
		if p.setup, err = c.track(*c.opts.Setup, KindSetup); err != nil {
			return plan{}, err
		}
	}
	for _, m := range c.opts.Missions {
		tracked, err := c.track(m, KindMain)
		if err != nil {
			return plan{}, err
		}
		p.main = append(p.main, tracked)
	}
	if c.opts.Shutdown != nil {
		if p.shutdown, err = c.track(*c.opts.Shutdown, KindShutdown); err != nil {
			return plan{}, err
		}
	}
	return p, nil
}

func (c *Controller) track(m Mission, kind Kind) (step.Step, error) {
	tree, err := buildTree(m, c.opts.Registry)
	if err != nil {
		return nil, err
	}
	return &trackedMission{c: c, name: m.Name, kind: kind, tree: tree}, nil
}

func buildTree(m Mission, reg *hardware.Registry) (tree step.Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrBuildFailed, m.Name, r)
		}
	}()

	tree, err = m.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuildFailed, m.Name, err)
	}
	if err := step.Validate(tree); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuildFailed, m.Name, err)
	}
	return tree, nil
}

// record persists and announces a run transition. History and telemetry
// failures are logged and never fail the mission.
func (c *Controller) record(ctx context.Context, run *Run, created bool) {
	ctx = context.WithoutCancel(ctx)

	if created {
		c.logger.Info("mission started", "mission", run.Mission, "kind", run.Kind, "run_id", run.ID)
	} else {
		c.remember(*run)
		c.logger.Info("mission finished",
			"mission", run.Mission,
			"kind", run.Kind,
			"status", run.Status,
			"duration_ms", run.Duration.Milliseconds(),
			"lead_ms", run.Lead.Milliseconds(),
		)
	}

	if repo := c.opts.Repository; repo != nil {
		var err error
		if created {
			err = repo.Create(ctx, run)
		} else {
			err = repo.Update(ctx, run)
		}
		if err != nil {
			c.logger.Warn("recording mission run failed", "mission", run.Mission, "error", err)
		}
		if !created && c.opts.HistoryLimit > 0 {
			if _, err := repo.Prune(ctx, run.Mission, c.opts.HistoryLimit); err != nil {
				c.logger.Warn("pruning run history failed", "mission", run.Mission, "error", err)
			}
		}
	}

	if pub := c.opts.Publisher; pub != nil {
		pub.PublishRun(ctx, *run)
	}
}

func (c *Controller) remember(run Run) {
	c.mu.Lock()
	c.runs = append(c.runs, run)
	c.mu.Unlock()
}

// Runs returns the finished runs of this controller in completion order.
func (c *Controller) Runs() []Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Run, len(c.runs))
	copy(out, c.runs)
	return out
}

// Stats summarises completed runs of a mission. With a repository it covers
// the stored history; without one, only this controller's runs.
func (c *Controller) Stats(ctx context.Context, mission string) (Stats, error) {
	if repo := c.opts.Repository; repo != nil {
		durations, err := repo.CompletedDurations(ctx, mission)
		if err != nil {
			return Stats{}, err
		}
		return ComputeStats(mission, durations), nil
	}

	var durations []time.Duration
	for _, run := range c.Runs() {
		if run.Mission == mission && run.Status == StatusCompleted {
			durations = append(durations, run.Duration)
		}
	}
	return ComputeStats(mission, durations), nil
}
