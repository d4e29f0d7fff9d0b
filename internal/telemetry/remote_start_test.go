package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/infrastructure/mqtt"
)

// fakeBroker delivers Deliver calls to the subscribed handler.
type fakeBroker struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	subErr       error
	subscribed   chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		handlers:   make(map[string]mqtt.MessageHandler),
		subscribed: make(chan struct{}, 1),
	}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if b.subErr != nil {
		return b.subErr
	}
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	b.subscribed <- struct{}{}
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func (b *fakeBroker) Deliver(topic, payload string) error {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber")
	}
	return h(topic, []byte(payload))
}

// stubDevice is a drive base that does nothing.
type stubDevice struct{}

func newStubDevice() hardware.Device { return stubDevice{} }

func (stubDevice) SetSpeedWhile(context.Context, hardware.Condition, hardware.SpeedFunc, bool) error {
	return nil
}
func (stubDevice) Stop()       {}
func (stubDevice) ResetRamps() {}
func (stubDevice) ResetState() {}

func TestRemoteStart(t *testing.T) {
	broker := newFakeBroker()
	gate := NewRemoteStart(broker, "bot-7", nil)
	if gate.Topic() != "missioncore/bot-7/command/start" {
		t.Fatalf("Topic() = %q", gate.Topic())
	}

	result := make(chan error, 1)
	go func() { result <- gate.Wait(context.Background()) }()
	<-broker.subscribed

	if err := broker.Deliver(gate.Topic(), "not json"); err == nil {
		t.Error("malformed payload should be reported to the client")
	}
	if err := broker.Deliver(gate.Topic(), `{"start":false}`); err != nil {
		t.Errorf("Deliver(start=false) error = %v", err)
	}
	select {
	case err := <-result:
		t.Fatalf("gate opened early: %v", err)
	case <-time.After(10 * time.Millisecond):
	}

	if err := broker.Deliver(gate.Topic(), `{"start":true}`); err != nil {
		t.Errorf("Deliver(start=true) error = %v", err)
	}
	// A repeated command must not panic on a closed channel.
	if err := broker.Deliver(gate.Topic(), ``); err != nil && err.Error() != "no subscriber" {
		t.Errorf("repeat Deliver() error = %v", err)
	}

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("gate did not open")
	}

	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.unsubscribed) != 1 {
		t.Errorf("unsubscribed %v, want the start topic once", broker.unsubscribed)
	}
}

func TestRemoteStart_Cancelled(t *testing.T) {
	broker := newFakeBroker()
	gate := NewRemoteStart(broker, "bot-7", nil)

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		<-broker.subscribed
		cancel(errors.New("match abandoned"))
	}()

	err := gate.Wait(ctx)
	if err == nil || err.Error() != "match abandoned" {
		t.Errorf("Wait() error = %v, want the cancellation cause", err)
	}
}

func TestRemoteStart_SubscribeFails(t *testing.T) {
	broker := newFakeBroker()
	broker.subErr = mqtt.ErrNotConnected
	gate := NewRemoteStart(broker, "bot-7", nil)

	if err := gate.Wait(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Wait() error = %v, want ErrNotConnected", err)
	}
}
