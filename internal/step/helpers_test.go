package step

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware/sim"
)

// ─── Test Doubles ───────────────────────────────────────────────────────────

var errBoom = errors.New("boom")

// probe is a configurable step that records its runs and handoffs.
type probe struct {
	Base
	moving bool
	delay  time.Duration
	err    error

	mu    sync.Mutex
	runs  int
	exits []Step
	done  bool
}

func newProbe(name string) *probe {
	p := &probe{Base: Base{kind: "probe"}}
	p.SetName(name)
	return p
}

func (p *probe) Run(ctx context.Context, _ *Env) error {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	if err := sleep(ctx, p.delay); err != nil {
		return err
	}

	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	return p.err
}

func (p *probe) CallOnExit(next Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exits = append(p.exits, next)
}

func (p *probe) ShouldContinueMoving() bool { return p.moving }

func (p *probe) getRuns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *probe) getExits() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Step, len(p.exits))
	copy(out, p.exits)
	return out
}

func (p *probe) finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// recordingObserver collects step events.
type recordingObserver struct {
	mu       sync.Mutex
	started  []Event
	finished []Event
}

func (r *recordingObserver) StepStarted(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, ev)
}

func (r *recordingObserver) StepFinished(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, ev)
}

func (r *recordingObserver) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started), len(r.finished)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// setupEnv returns an env backed by a simulated device with the mission
// clock already running.
func setupEnv(t *testing.T) (*Env, *sim.Device) {
	t.Helper()
	dev := sim.NewDevice(2 * time.Millisecond)
	syn := NewSynchroniser(nil)
	syn.StartRecording()
	return &Env{Device: dev, Sync: syn}, dev
}

func assertCalls(t *testing.T, dev *sim.Device, want ...string) {
	t.Helper()
	got := dev.Calls()
	if len(got) != len(want) {
		t.Fatalf("device calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("device calls = %v, want %v", got, want)
		}
	}
}
