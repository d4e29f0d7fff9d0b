// Package step is the mission step engine.
//
// A mission is a tree of steps. Leaves talk to hardware (drive, motor,
// servo, wait); composers arrange other steps in time:
//
//	┌───────────────────────────────────────────────────────────┐
//	│                   RunMission (mission.go)                  │
//	│  Validate tree ─▶ start clock ─▶ root.Run ─▶ CallOnExit    │
//	│                                                           │
//	│   Sequential ── children in order, handoff i ─▶ i+1        │
//	│   Parallel   ── goroutine per child, last finisher keeps   │
//	│                 the handoff, others get CallOnExit(nil)    │
//	│   Timeout    ── deadline ends the child, not the mission   │
//	│   Loop, DoWhileActive, DoUntilCheckpoint                   │
//	│                                                           │
//	│   Synchroniser ── mission clock for checkpoints            │
//	└───────────────────────────────────────────────────────────┘
//
// # Motion continuity
//
// A Drive does not stop the chassis when its condition ends. Its parent
// calls CallOnExit(next) and the drive stops the device only if next does
// not report ShouldContinueMoving. Back-to-back drives therefore blend
// without a halt, while a drive followed by anything else stops cleanly.
// Composers forward the handoff: Sequential to its last child, Parallel to
// its last finisher, Timeout and Loop to their single child.
//
// # Cancellation
//
// Steps observe ctx. A step cut short returns an error wrapping
// ErrCancelledByParent together with the cancellation cause
// (ErrTimeoutExceeded, ErrCheckpointReached, ...). Cleanup that must
// survive cancellation, such as the PhaseMachine's final lift, runs on a
// context detached with context.WithoutCancel.
//
// # Usage
//
//	tree := step.Must(step.NewSequential(
//	    step.Must(step.DriveForward(2*time.Second, 0.3)),
//	    step.Must(step.TurnCW(90, 1.5)),
//	    step.Must(step.NewParallel(
//	        step.Must(step.DriveForward(time.Second, 0.2)),
//	        step.Must(step.NewSetServo(arm, 120)),
//	    )),
//	))
//
//	err := step.RunMission(ctx, tree, &step.Env{Device: dev, Logger: log})
//
// Steps are single-use per tree position: Validate rejects a tree that
// contains the same step instance twice.
package step
