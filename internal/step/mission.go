package step

import (
	"context"
	"time"
)

// RunMission validates and runs a mission tree.
//
// Missing optional parts of env are filled in: a nil Sync gets a fresh
// clock, started now; a nil Logger or Observer discards. On success the root
// receives CallOnExit(nil), which brings the chassis to rest. On failure the
// device is stopped and its ramps reset before the error is returned.
func RunMission(ctx context.Context, root Step, env *Env) error {
	if env == nil || env.Device == nil {
		return ErrNoDevice
	}
	if err := Validate(root); err != nil {
		return err
	}

	e := *env
	e.Logger = env.log()
	e.Observer = env.observer()
	if e.Sync == nil {
		e.Sync = NewSynchroniser(e.Logger)
	}
	if !e.Sync.Started() {
		e.Sync.StartRecording()
	}

	name := NameOf(root)
	start := time.Now()
	e.Logger.Info("mission started", "mission", name)

	if err := runStep(ctx, &e, root); err != nil {
		e.Device.Stop()
		e.Device.ResetRamps()
		e.Logger.Error("mission failed",
			"mission", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return err
	}

	root.CallOnExit(nil)
	e.Logger.Info("mission complete",
		"mission", name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
