package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mission-core/internal/mission"
	"github.com/nerrad567/mission-core/internal/step"
)

type published struct {
	topic    string
	payload  any
	retained bool
}

type fakeMessages struct {
	mu    sync.Mutex
	sent  []published
	err   error
	block chan struct{}
}

func (f *fakeMessages) PublishJSON(topic string, v any, retained bool) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{topic: topic, payload: v, retained: retained})
	return f.err
}

func (f *fakeMessages) get() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]published, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeMetrics struct {
	mu       sync.Mutex
	steps    []influxdb.StepSample
	missions []influxdb.MissionSample
}

func (f *fakeMetrics) WriteStep(s influxdb.StepSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, s)
}

func (f *fakeMetrics) WriteMission(s influxdb.MissionSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missions = append(f.missions, s)
}

func TestPublisher_StepEvents(t *testing.T) {
	msgs := &fakeMessages{}
	metrics := &fakeMetrics{}
	pub := NewPublisher(msgs, metrics, "bot-7", nil)
	pub.Start(context.Background())

	started := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	ev := step.Event{Kind: "drive", Name: "drive_forward", Started: started, Clock: 3 * time.Second}
	pub.StepStarted(ev)
	ev.Duration = 250 * time.Millisecond
	ev.Err = errors.New("stalled")
	pub.StepFinished(ev)
	pub.Close()

	sent := msgs.get()
	if len(sent) != 2 {
		t.Fatalf("published %d messages, want 2", len(sent))
	}
	for _, m := range sent {
		if m.topic != "missioncore/bot-7/step/event" || m.retained {
			t.Errorf("message on %q retained=%v", m.topic, m.retained)
		}
	}

	first, ok := sent[0].payload.(StepMessage)
	if !ok || first.Event != "started" || first.ClockMS != 3000 {
		t.Errorf("started payload = %+v", sent[0].payload)
	}
	second, ok := sent[1].payload.(StepMessage)
	if !ok || second.Event != "finished" || second.DurationMS != 250 || second.Error != "stalled" {
		t.Errorf("finished payload = %+v", sent[1].payload)
	}

	if len(metrics.steps) != 1 {
		t.Fatalf("wrote %d step samples, want 1", len(metrics.steps))
	}
	if s := metrics.steps[0]; s.Name != "drive_forward" || !s.Failed || s.Duration != 250*time.Millisecond {
		t.Errorf("step sample = %+v", s)
	}
}

func TestPublisher_RunTransitions(t *testing.T) {
	msgs := &fakeMessages{}
	metrics := &fakeMetrics{}
	pub := NewPublisher(msgs, metrics, "bot-7", nil)
	pub.Start(context.Background())

	run := mission.Run{ID: "run-1", Mission: "collect", Kind: mission.KindMain, Status: mission.StatusRunning, StartedAt: time.Now()}
	pub.PublishRun(context.Background(), run)
	run.Status = mission.StatusCompleted
	run.Duration = 4 * time.Second
	run.Lead = 40 * time.Second
	pub.PublishRun(context.Background(), run)
	pub.Close()

	sent := msgs.get()
	if len(sent) != 2 {
		t.Fatalf("published %d messages, want 2", len(sent))
	}
	if sent[1].topic != "missioncore/bot-7/mission/collect/status" || !sent[1].retained {
		t.Errorf("run status on %q retained=%v", sent[1].topic, sent[1].retained)
	}
	if msg := sent[1].payload.(RunMessage); msg.Status != "completed" || msg.DurationMS != 4000 || msg.LeadMS != 40000 {
		t.Errorf("run payload = %+v", msg)
	}

	if len(metrics.missions) != 1 {
		t.Fatalf("wrote %d mission samples, want only the finished run", len(metrics.missions))
	}
	if m := metrics.missions[0]; m.Mission != "collect" || m.Status != "completed" {
		t.Errorf("mission sample = %+v", m)
	}
}

func TestPublisher_NilSinks(t *testing.T) {
	pub := NewPublisher(nil, nil, "bot-7", nil)
	pub.Start(context.Background())
	pub.StepStarted(step.Event{Kind: "wait"})
	pub.PublishRun(context.Background(), mission.Run{Mission: "m", Status: mission.StatusFailed})
	pub.Close()
}

func TestPublisher_PublishErrorsIgnored(t *testing.T) {
	msgs := &fakeMessages{err: errors.New("not connected")}
	pub := NewPublisher(msgs, nil, "bot-7", nil)
	pub.Start(context.Background())
	pub.StepStarted(step.Event{Kind: "wait"})
	pub.StepStarted(step.Event{Kind: "wait"})
	pub.Close()

	if got := len(msgs.get()); got != 2 {
		t.Errorf("attempted %d publishes, want 2", got)
	}
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	msgs := &fakeMessages{block: make(chan struct{})}
	pub := NewPublisher(msgs, nil, "bot-7", nil)
	pub.Start(context.Background())

	// One event may be held by the blocked worker; the rest fill the queue.
	total := DefaultQueueSize + 10
	for range total {
		pub.StepStarted(step.Event{Kind: "wait"})
	}
	if pub.Dropped() < 9 {
		t.Errorf("Dropped() = %d, want at least 9", pub.Dropped())
	}

	close(msgs.block)
	pub.Close()

	if got := int64(len(msgs.get())) + pub.Dropped(); got != int64(total) {
		t.Errorf("sent + dropped = %d, want %d", got, total)
	}
}

func TestPublisher_CloseWithoutStart(t *testing.T) {
	msgs := &fakeMessages{}
	pub := NewPublisher(msgs, nil, "bot-7", nil)
	pub.StepStarted(step.Event{Kind: "wait"})
	pub.Close()
	pub.Close()

	if got := len(msgs.get()); got != 1 {
		t.Errorf("queued event not drained on Close: sent %d", got)
	}
	pub.StepStarted(step.Event{Kind: "wait"})
	if pub.Dropped() != 1 {
		t.Errorf("event after Close should be dropped, Dropped() = %d", pub.Dropped())
	}
}

func TestPublisher_ObservesMission(t *testing.T) {
	msgs := &fakeMessages{}
	pub := NewPublisher(msgs, nil, "bot-7", nil)
	pub.Start(context.Background())

	env := &step.Env{Device: newStubDevice(), Observer: pub}
	root, err := step.NewSequential(
		step.Must(step.NewWait(0)),
		step.Must(step.NewWait(0)),
	)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}
	if err := step.RunMission(context.Background(), root, env); err != nil {
		t.Fatalf("RunMission() error = %v", err)
	}
	pub.Close()

	// root plus two children, each started and finished
	if got := len(msgs.get()); got != 6 {
		t.Errorf("published %d step events, want 6", got)
	}
}
