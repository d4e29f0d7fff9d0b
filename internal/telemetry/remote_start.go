package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/mission-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mission-core/internal/mission"
)

// Subscriber is the part of *mqtt.Client used by RemoteStart.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// StartCommand is the payload expected on the start topic. An empty
// payload also starts the match.
type StartCommand struct {
	Start bool `json:"start"`
}

// RemoteStart opens when an operator publishes a start command.
type RemoteStart struct {
	client Subscriber
	topic  string
	logger Logger
}

var _ mission.StartGate = (*RemoteStart)(nil)

// NewRemoteStart creates a gate listening on the robot's start topic.
func NewRemoteStart(client Subscriber, robotID string, logger Logger) *RemoteStart {
	if logger == nil {
		logger = noopLogger{}
	}
	return &RemoteStart{
		client: client,
		topic:  mqtt.Topics{Robot: robotID}.StartCommand(),
		logger: logger,
	}
}

// Topic returns the subscribed topic.
func (r *RemoteStart) Topic() string { return r.topic }

// Wait subscribes and blocks until a start command arrives or ctx ends.
// Malformed payloads and {"start":false} are ignored.
func (r *RemoteStart) Wait(ctx context.Context) error {
	started := make(chan struct{})
	var once sync.Once

	handler := func(_ string, payload []byte) error {
		if len(payload) > 0 {
			var cmd StartCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return fmt.Errorf("decoding start command: %w", err)
			}
			if !cmd.Start {
				return nil
			}
		}
		once.Do(func() { close(started) })
		return nil
	}

	if err := r.client.Subscribe(r.topic, 1, handler); err != nil {
		return fmt.Errorf("subscribing to start topic: %w", err)
	}
	defer func() {
		if err := r.client.Unsubscribe(r.topic); err != nil {
			r.logger.Debug("unsubscribing start topic failed", "error", err)
		}
	}()

	r.logger.Info("waiting for remote start", "topic", r.topic)
	select {
	case <-started:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
