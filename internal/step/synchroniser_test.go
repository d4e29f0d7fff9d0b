package step

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynchroniser_NotRecording(t *testing.T) {
	s := NewSynchroniser(nil)
	if s.Elapsed() != 0 {
		t.Error("Elapsed should be zero before recording")
	}
	if err := s.WaitUntilCheckpoint(context.Background(), time.Second); !errors.Is(err, ErrNotRecording) {
		t.Errorf("WaitUntilCheckpoint error = %v, want ErrNotRecording", err)
	}
	err := s.RunUntilCheckpoint(context.Background(), time.Second, func(context.Context) error { return nil })
	if !errors.Is(err, ErrNotRecording) {
		t.Errorf("RunUntilCheckpoint error = %v, want ErrNotRecording", err)
	}
}

func TestSynchroniser_WaitUntilCheckpoint(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()

	if err := s.WaitUntilCheckpoint(context.Background(), 40*time.Millisecond); err != nil {
		t.Fatalf("WaitUntilCheckpoint: %v", err)
	}
	if e := s.Elapsed(); e < 40*time.Millisecond {
		t.Errorf("returned at %v, before the checkpoint", e)
	}
}

func TestSynchroniser_PastCheckpointReturnsImmediately(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	if err := s.WaitUntilCheckpoint(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("WaitUntilCheckpoint: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Errorf("past checkpoint took %v", elapsed)
	}
}

func TestSynchroniser_WaitCancelled(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := s.WaitUntilCheckpoint(ctx, time.Second); !errors.Is(err, ErrCancelledByParent) {
		t.Errorf("WaitUntilCheckpoint error = %v, want ErrCancelledByParent", err)
	}
}

func TestSynchroniser_RunUntilCheckpointCancelsAction(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()

	var cause atomic.Value
	err := s.RunUntilCheckpoint(context.Background(), 40*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		cause.Store(context.Cause(ctx))
		return cancelled(ctx)
	})
	if err != nil {
		t.Fatalf("RunUntilCheckpoint: %v", err)
	}
	if e := s.Elapsed(); e < 40*time.Millisecond {
		t.Errorf("returned at %v, before the checkpoint", e)
	}
	if got, _ := cause.Load().(error); !errors.Is(got, ErrCheckpointReached) {
		t.Errorf("action cancelled with %v, want ErrCheckpointReached", got)
	}
}

func TestSynchroniser_RunUntilCheckpointEarlyFinishStillWaits(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()

	err := s.RunUntilCheckpoint(context.Background(), 30*time.Millisecond, func(context.Context) error {
		return errBoom
	})
	if err != nil {
		t.Fatalf("RunUntilCheckpoint error = %v, want action failure swallowed", err)
	}
	if e := s.Elapsed(); e < 30*time.Millisecond {
		t.Errorf("returned at %v, before the checkpoint", e)
	}
}

func TestSynchroniser_RunUntilPastCheckpointSkipsAction(t *testing.T) {
	s := NewSynchroniser(nil)
	s.StartRecording()
	time.Sleep(5 * time.Millisecond)

	var ran atomic.Bool
	err := s.RunUntilCheckpoint(context.Background(), time.Millisecond, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("RunUntilCheckpoint: %v", err)
	}
	if ran.Load() {
		t.Error("action should not run for a passed checkpoint")
	}
}
