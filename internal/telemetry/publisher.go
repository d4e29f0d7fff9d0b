package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mission-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mission-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mission-core/internal/mission"
	"github.com/nerrad567/mission-core/internal/step"
)

// DefaultQueueSize is the number of events buffered before dropping.
const DefaultQueueSize = 1024

// MessagePublisher sends JSON to an MQTT topic. *mqtt.Client satisfies it.
type MessagePublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MetricsWriter records timings. *influxdb.Client satisfies it.
type MetricsWriter interface {
	WriteStep(s influxdb.StepSample)
	WriteMission(s influxdb.MissionSample)
}

// Logger defines the logging interface used by telemetry.
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

// StepMessage is the JSON payload for step events.
type StepMessage struct {
	Event      string  `json:"event"` // "started" or "finished"
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Timestamp  string  `json:"timestamp"`
	ClockMS    int64   `json:"clock_ms"`
	DurationMS float64 `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RunMessage is the JSON payload for mission run transitions.
type RunMessage struct {
	ID         string `json:"id"`
	Mission    string `json:"mission"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	LeadMS     int64  `json:"lead_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

type message struct {
	topic    string
	payload  any
	retained bool
	step     *influxdb.StepSample
	mission  *influxdb.MissionSample
}

// Publisher fans step events and run transitions out to MQTT and InfluxDB.
// Either sink may be nil.
type Publisher struct {
	messages MessagePublisher
	metrics  MetricsWriter
	topics   mqtt.Topics
	logger   Logger

	queue   chan message
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

var (
	_ step.Observer        = (*Publisher)(nil)
	_ mission.RunPublisher = (*Publisher)(nil)
)

// NewPublisher creates a publisher with a DefaultQueueSize queue.
func NewPublisher(messages MessagePublisher, metrics MetricsWriter, robotID string, logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{
		messages: messages,
		metrics:  metrics,
		topics:   mqtt.Topics{Robot: robotID},
		logger:   logger,
		queue:    make(chan message, DefaultQueueSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. It stops when ctx is cancelled or Close is
// called, after draining what is already queued.
func (p *Publisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

// Close drains the queue and stops the worker. Safe to call more than once
// and without Start.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() { close(p.closing) })
	p.Start(context.Background())
	<-p.done
}

// Dropped returns how many events were discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// NewStepStarted builds the payload announcing that a step began.
func NewStepStarted(ev step.Event) StepMessage {
	return StepMessage{
		Event:     "started",
		Kind:      ev.Kind,
		Name:      ev.Name,
		Timestamp: ev.Started.UTC().Format(time.RFC3339Nano),
		ClockMS:   ev.Clock.Milliseconds(),
	}
}

// NewStepFinished builds the payload announcing that a step ended.
func NewStepFinished(ev step.Event) StepMessage {
	msg := StepMessage{
		Event:      "finished",
		Kind:       ev.Kind,
		Name:       ev.Name,
		Timestamp:  ev.Started.Add(ev.Duration).UTC().Format(time.RFC3339Nano),
		ClockMS:    ev.Clock.Milliseconds(),
		DurationMS: float64(ev.Duration) / float64(time.Millisecond),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// NewRunMessage builds the payload for a run transition.
func NewRunMessage(run mission.Run) RunMessage {
	return RunMessage{
		ID:         run.ID,
		Mission:    run.Mission,
		Kind:       string(run.Kind),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationMS: run.Duration.Milliseconds(),
		LeadMS:     run.Lead.Milliseconds(),
		Error:      run.Error,
	}
}

// StepStarted implements step.Observer.
func (p *Publisher) StepStarted(ev step.Event) {
	p.enqueue(message{
		topic:   p.topics.StepEvent(),
		payload: NewStepStarted(ev),
	})
}

// StepFinished implements step.Observer.
func (p *Publisher) StepFinished(ev step.Event) {
	p.enqueue(message{
		topic:   p.topics.StepEvent(),
		payload: NewStepFinished(ev),
		step: &influxdb.StepSample{
			Kind:     ev.Kind,
			Name:     ev.Name,
			Duration: ev.Duration,
			Failed:   ev.Err != nil,
			At:       ev.Started,
		},
	})
}

// PublishRun implements mission.RunPublisher. The latest transition of each
// mission is retained on its status topic.
func (p *Publisher) PublishRun(_ context.Context, run mission.Run) {
	msg := message{
		topic:    p.topics.MissionStatus(run.Mission),
		retained: true,
		payload:  NewRunMessage(run),
	}
	if run.Status.IsTerminal() {
		msg.mission = &influxdb.MissionSample{
			Mission:  run.Mission,
			Kind:     string(run.Kind),
			Status:   string(run.Status),
			Duration: run.Duration,
			Lead:     run.Lead,
			At:       run.StartedAt,
		}
	}
	p.enqueue(msg)
}

func (p *Publisher) enqueue(m message) {
	select {
	case <-p.closing:
		p.dropped.Add(1)
		return
	default:
	}

	select {
	case p.queue <- m:
	default:
		if p.dropped.Add(1) == 1 {
			p.logger.Warn("telemetry queue full, dropping events")
		}
	}
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case m := <-p.queue:
			p.send(m)
		case <-ctx.Done():
			p.drain()
			return
		case <-p.closing:
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case m := <-p.queue:
			p.send(m)
		default:
			return
		}
	}
}

func (p *Publisher) send(m message) {
	if p.messages != nil {
		if err := p.messages.PublishJSON(m.topic, m.payload, m.retained); err != nil {
			p.logger.Debug("telemetry publish failed", "topic", m.topic, "error", err)
		}
	}
	if p.metrics != nil {
		if m.step != nil {
			p.metrics.WriteStep(*m.step)
		}
		if m.mission != nil {
			p.metrics.WriteMission(*m.mission)
		}
	}
}
