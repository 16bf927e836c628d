package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

// countingRecorder tallies recorder callbacks so tests can assert the
// engine reports what it does.
type countingRecorder struct {
	steps          int
	solves         int
	rejected       int
	slackBridles   int
	groundContacts int
}

func (r *countingRecorder) RecordStep(time.Duration, *Snapshot) { r.steps++ }
func (r *countingRecorder) RecordSolve(string, int, bool)       { r.solves++ }
func (r *countingRecorder) RecordRejectedStep()                 { r.rejected++ }
func (r *countingRecorder) RecordSlackBridle(string, int)       { r.slackBridles++ }
func (r *countingRecorder) RecordGroundContact()                { r.groundContacts++ }

func testEngine(t *testing.T, cfg *SimConfig) *SimulationEngine {
	t.Helper()
	eng, err := NewSimulationEngine(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	return eng
}

func TestEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Line.Stiffness = -1
	if _, err := NewSimulationEngine(cfg, nil, nil); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
}

func TestEngine_FreeFallWithSlackLines(t *testing.T) {
	cfg := DefaultSimConfig()
	// High above the winches but close enough that the lines stay
	// slack; no wind.
	cfg.InitialPosition = Vec3{Y: 12, Z: -5}
	eng := testEngine(t, cfg)

	snap := eng.Step(1.0/240, 0)

	if snap.Lines.LeftTension != 0 || snap.Lines.RightTension != 0 {
		t.Fatalf("slack lines must carry zero tension, got %g / %g",
			snap.Lines.LeftTension, snap.Lines.RightTension)
	}
	if snap.Forces.Line.Norm() > 1e-9 {
		t.Fatalf("slack lines must apply no force, got %+v", snap.Forces.Line)
	}
	if math.Abs(snap.State.Acceleration.Y+cfg.Gravity) > 1e-9 {
		t.Fatalf("first-step acceleration = %g, want %g", snap.State.Acceleration.Y, -cfg.Gravity)
	}
	if snap.State.Velocity.Y >= 0 {
		t.Fatalf("kite should be falling, velocity %+v", snap.State.Velocity)
	}

	// Tension stays zero for as long as the lines remain slack.
	for i := 0; i < 20; i++ {
		snap = eng.Step(1.0/240, 0)
		if snap.Lines.LeftTension != 0 {
			t.Fatalf("tension appeared at step %d while slack: %g", i, snap.Lines.LeftTension)
		}
	}
}

func TestEngine_SmokeFlightStaysBounded(t *testing.T) {
	cfg := DefaultSimConfig()
	eng := testEngine(t, cfg)
	eng.SetWind(WindFromSpeedAndHeading(12, 0, 0))

	const dt = 1.0 / 60
	var sawTension bool
	var snap Snapshot
	for i := 0; i < 300; i++ {
		snap = eng.Step(dt, 0)
		if snap.Rejected {
			t.Fatalf("step %d rejected during nominal flight", i)
		}
		if !snap.State.IsFinite() {
			t.Fatalf("non-finite state at step %d: %+v", i, snap.State)
		}
		if snap.State.Position.Y < -10 || snap.State.Position.Y > 100 {
			t.Fatalf("altitude escaped at step %d: %g", i, snap.State.Position.Y)
		}
		if snap.State.Velocity.Norm() > cfg.Integrator.MaxVelocity+1e-6 {
			t.Fatalf("velocity cap violated at step %d: %g", i, snap.State.Velocity.Norm())
		}
		if math.Abs(snap.State.Orientation.Norm()-1) > 1e-5 {
			t.Fatalf("orientation drifted off unit norm at step %d: %g",
				i, snap.State.Orientation.Norm())
		}
		if snap.Lines.LeftTension > 0 || snap.Lines.RightTension > 0 {
			sawTension = true
		}
	}
	if !sawTension {
		t.Fatal("wind never loaded the lines over a 5s run")
	}
	if math.Abs(snap.Elapsed-300*dt) > 1e-9 {
		t.Fatalf("elapsed = %g, want %g", snap.Elapsed, 300*dt)
	}
}

func TestEngine_ResetReproducesRun(t *testing.T) {
	cfg := DefaultSimConfig()
	eng := testEngine(t, cfg)
	eng.SetWind(WindFromSpeedAndHeading(8, 0, 0))
	initial := eng.Body().State

	const dt = 1.0 / 120
	var first Snapshot
	for i := 0; i < 50; i++ {
		first = eng.Step(dt, 0.1)
	}

	eng.Reset(initial)
	var second Snapshot
	for i := 0; i < 50; i++ {
		second = eng.Step(dt, 0.1)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reset run diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEngine_RejectsNonFinitePrediction(t *testing.T) {
	cfg := DefaultSimConfig()
	rec := &countingRecorder{}
	eng, err := NewSimulationEngine(cfg, nil, rec)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	bad := eng.Body().State
	bad.Velocity = Vec3{X: math.NaN()}
	eng.Reset(bad)

	snap := eng.Step(1.0/60, 0)
	if !snap.Rejected {
		t.Fatal("expected the step to be rejected")
	}
	if rec.rejected != 1 {
		t.Fatalf("rejected steps recorded = %d, want 1", rec.rejected)
	}

	// The engine recovers once given a valid state again.
	good := bad
	good.Velocity = Vec3{}
	eng.Reset(good)
	snap = eng.Step(1.0/60, 0)
	if snap.Rejected {
		t.Fatal("engine did not recover after reset to a valid state")
	}
}

func TestEngine_GroundClampStopsPenetration(t *testing.T) {
	cfg := DefaultSimConfig()
	// Start with the wingtips already below ground, falling.
	cfg.InitialPosition = Vec3{Y: 0.2, Z: -5}
	rec := &countingRecorder{}
	eng, err := NewSimulationEngine(cfg, nil, rec)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	st := eng.Body().State
	st.Velocity = Vec3{Y: -2}
	eng.Reset(st)

	snap := eng.Step(1.0/240, 0)

	_, _, alt := eng.Body().LowestPoint()
	if alt < -1e-9 {
		t.Fatalf("lowest vertex still below ground: %g", alt)
	}
	if snap.State.Velocity.Y < 0 {
		t.Fatalf("downward velocity survived the bounce: %+v", snap.State.Velocity)
	}
	if rec.groundContacts == 0 {
		t.Fatal("ground contact not recorded")
	}
}

func TestEngine_StepRecordsMetrics(t *testing.T) {
	cfg := DefaultSimConfig()
	rec := &countingRecorder{}
	eng, err := NewSimulationEngine(cfg, nil, rec)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}

	for i := 0; i < 5; i++ {
		eng.Step(1.0/60, 0)
	}
	if rec.steps != 5 {
		t.Fatalf("steps recorded = %d, want 5", rec.steps)
	}
	if rec.solves != 10 {
		t.Fatalf("solves recorded = %d, want one per side per step (10)", rec.solves)
	}
}
