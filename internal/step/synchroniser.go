package step

import (
	"context"
	"sync"
	"time"
)

// Synchroniser is the mission clock. Checkpoints are offsets from the
// moment StartRecording was called, measured on the monotonic clock.
//
// All methods are safe for concurrent use.
type Synchroniser struct {
	mu      sync.RWMutex
	start   time.Time
	started bool
	logger  Logger
}

// NewSynchroniser creates a stopped clock.
func NewSynchroniser(logger Logger) *Synchroniser {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Synchroniser{logger: logger}
}

// StartRecording anchors the clock at now. Calling it again re-anchors.
func (s *Synchroniser) StartRecording() {
	s.mu.Lock()
	s.start = time.Now()
	s.started = true
	s.mu.Unlock()

	s.logger.Info("mission clock started")
}

// Started reports whether the clock is running.
func (s *Synchroniser) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Elapsed returns the time since StartRecording, or zero before it.
func (s *Synchroniser) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0
	}
	return time.Since(s.start)
}

// WaitUntilCheckpoint blocks until the clock reaches checkpoint. A
// checkpoint that is already behind the clock logs a warning and returns
// at once.
func (s *Synchroniser) WaitUntilCheckpoint(ctx context.Context, checkpoint time.Duration) error {
	delta, err := s.until(checkpoint)
	if err != nil {
		return err
	}
	if delta <= 0 {
		s.logger.Warn("checkpoint already passed", "checkpoint", checkpoint, "late_by", -delta)
		return nil
	}
	return sleep(ctx, delta)
}

// RunUntilCheckpoint runs action until the clock reaches checkpoint and
// cancels it there. It always returns at the checkpoint: an action that
// finishes early does not shorten the wait, and the action's own result is
// only logged. A checkpoint already behind the clock skips the action.
func (s *Synchroniser) RunUntilCheckpoint(ctx context.Context, checkpoint time.Duration, action func(ctx context.Context) error) error {
	delta, err := s.until(checkpoint)
	if err != nil {
		return err
	}
	if delta <= 0 {
		s.logger.Warn("checkpoint already passed, action skipped", "checkpoint", checkpoint, "late_by", -delta)
		return nil
	}

	actx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan error, 1)
	go func() {
		done <- action(actx)
	}()

	waitErr := sleep(ctx, delta)
	cancel(ErrCheckpointReached)
	actErr := <-done

	if waitErr != nil {
		return waitErr
	}
	if actErr != nil && !isCancellation(actErr) {
		s.logger.Warn("action before checkpoint failed", "checkpoint", checkpoint, "error", actErr)
	}
	return nil
}

func (s *Synchroniser) until(checkpoint time.Duration) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotRecording
	}
	return checkpoint - time.Since(s.start), nil
}
