package step

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
)

// Step is a unit of robot behaviour.
//
// Run performs the behaviour and returns when it completes, fails or ctx is
// cancelled. CallOnExit is invoked synchronously by the parent after the step
// finishes and receives the step that will run next (nil when none follows);
// it must not block. ShouldContinueMoving is queried by the previous step's
// CallOnExit and reports whether this step will keep the chassis moving.
type Step interface {
	Run(ctx context.Context, env *Env) error
	CallOnExit(next Step)
	ShouldContinueMoving() bool
}

// Composite is implemented by steps that own child steps.
type Composite interface {
	Children() []Step
}

// Base supplies the default handoff behaviour and a display name.
// Embed it in every step type.
type Base struct {
	kind string
	name string
}

// CallOnExit does nothing.
func (b *Base) CallOnExit(Step) {}

// ShouldContinueMoving reports false.
func (b *Base) ShouldContinueMoving() bool { return false }

// Kind returns the step type, e.g. "drive" or "parallel".
func (b *Base) Kind() string { return b.kind }

// Name returns the display name, defaulting to the kind.
func (b *Base) Name() string {
	if b.name != "" {
		return b.name
	}
	return b.kind
}

// SetName overrides the display name used in logs and telemetry.
func (b *Base) SetName(name string) { b.name = name }

// Named sets the display name of s and returns it.
func Named[T interface {
	Step
	SetName(string)
}](s T, name string) T {
	s.SetName(name)
	return s
}

// Must panics if err is non-nil. It is meant for static mission trees
// built once at start-up.
func Must[T Step](s T, err error) T {
	if err != nil {
		panic(err)
	}
	return s
}

// NameOf returns a display name for any step.
func NameOf(s Step) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// KindOf returns the kind of any step.
func KindOf(s Step) string {
	if k, ok := s.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return "custom"
}

// Logger defines the logging interface used by steps.
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

// Env is what a running step may touch.
type Env struct {
	Device   hardware.Device
	Sync     *Synchroniser
	Logger   Logger
	Observer Observer
}

func (e *Env) log() Logger {
	if e == nil || e.Logger == nil {
		return noopLogger{}
	}
	return e.Logger
}

func (e *Env) observer() Observer {
	if e == nil || e.Observer == nil {
		return noopObserver{}
	}
	return e.Observer
}

// runStep runs s with observer notifications and turns a panic into an error.
func runStep(ctx context.Context, env *Env, s Step) (err error) {
	ev := Event{Kind: KindOf(s), Name: NameOf(s), Started: time.Now()}
	if env != nil && env.Sync != nil {
		ev.Clock = env.Sync.Elapsed()
	}
	obs := env.observer()
	obs.StepStarted(ev)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStepPanic, ev.Name, r)
			env.log().Error("step panicked", "step", ev.Name, "panic", r)
		}
		ev.Duration = time.Since(ev.Started)
		ev.Err = err
		obs.StepFinished(ev)
	}()

	return s.Run(ctx, env)
}

// sleep waits d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return cancelled(ctx)
	}
}

func checkChildren(kind string, steps []Step) error {
	for i, s := range steps {
		if isNil(s) {
			return invalid("%s: child %d is nil", kind, i)
		}
	}
	return nil
}
