package mission

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/hardware/sim"
	"github.com/nerrad567/mission-core/internal/infrastructure/database"
	"github.com/nerrad567/mission-core/internal/step"
	"github.com/nerrad567/mission-core/migrations"
)

var errBoom = errors.New("boom")

// trace records the order in which test missions ran.
type trace struct {
	mu      sync.Mutex
	entries []string
}

func (tr *trace) add(s string) {
	tr.mu.Lock()
	tr.entries = append(tr.entries, s)
	tr.mu.Unlock()
}

func (tr *trace) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]string, len(tr.entries))
	copy(out, tr.entries)
	return out
}

// recordingPublisher collects published run transitions.
type recordingPublisher struct {
	mu   sync.Mutex
	runs []Run
}

func (p *recordingPublisher) PublishRun(_ context.Context, run Run) {
	p.mu.Lock()
	p.runs = append(p.runs, run)
	p.mu.Unlock()
}

func (p *recordingPublisher) get() []Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Run, len(p.runs))
	copy(out, p.runs)
	return out
}

func newRegistry(t *testing.T) (*hardware.Registry, *sim.Device) {
	t.Helper()
	dev := sim.NewDevice(2 * time.Millisecond)
	return hardware.NewRegistry(dev), dev
}

// customMission builds a mission around fn.
func customMission(name string, fn step.ActionFunc) Mission {
	return Mission{
		Name: name,
		Build: func(*hardware.Registry) (step.Step, error) {
			return step.NewCustom(fn)
		},
	}
}

// tracedMission appends its name to tr and returns err.
func tracedMission(tr *trace, name string, err error) Mission {
	return customMission(name, func(context.Context, *step.Env) error {
		tr.add(name)
		return err
	})
}

// waitMission blocks for d or until cancelled.
func waitMission(name string, d time.Duration) Mission {
	return Mission{
		Name: name,
		Build: func(*hardware.Registry) (step.Step, error) {
			return step.NewWait(d)
		},
	}
}

func missionPtr(m Mission) *Mission { return &m }

func openTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "runs.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}
