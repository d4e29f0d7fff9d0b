package step

import "time"

// Event describes one step execution.
type Event struct {
	Kind    string
	Name    string
	Started time.Time
	// Clock is the mission clock reading when the step started
	// (zero when the synchroniser is not recording).
	Clock    time.Duration
	Duration time.Duration // set on StepFinished
	Err      error         // set on StepFinished
}

// Observer is notified around every step execution.
// Implementations must be safe for concurrent use: parallel branches report
// from their own goroutines.
type Observer interface {
	StepStarted(ev Event)
	StepFinished(ev Event)
}

type noopObserver struct{}

func (noopObserver) StepStarted(Event)  {}
func (noopObserver) StepFinished(Event) {}

// Observers fans events out to several observers in order.
type Observers []Observer

// StepStarted implements Observer.
func (o Observers) StepStarted(ev Event) {
	for _, obs := range o {
		obs.StepStarted(ev)
	}
}

// StepFinished implements Observer.
func (o Observers) StepFinished(ev Event) {
	for _, obs := range o {
		obs.StepFinished(ev)
	}
}
