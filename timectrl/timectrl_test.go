package timectrl

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/signalsfoundry/kite-simulator/core"
)

// fakeStepper counts calls and records the control inputs it was given.
type fakeStepper struct {
	steps    int
	controls []float64
	elapsed  float64
}

func (f *fakeStepper) Step(dt, controlDelta float64) core.Snapshot {
	f.steps++
	f.controls = append(f.controls, controlDelta)
	f.elapsed += dt
	return core.Snapshot{Elapsed: f.elapsed, Dt: dt}
}

func TestRunner_AcceleratedStepsExactly(t *testing.T) {
	eng := &fakeStepper{}
	r := NewRunner(10*time.Millisecond, Accelerated)

	steps := r.Run(context.Background(), eng, time.Second, nil)

	if steps != 100 {
		t.Fatalf("steps = %d, want 100", steps)
	}
	if eng.steps != steps {
		t.Fatalf("runner reported %d steps but stepper saw %d", steps, eng.steps)
	}
	if r.Elapsed() < 1.0 {
		t.Fatalf("elapsed = %g, want >= 1.0", r.Elapsed())
	}
	if r.Last().Dt != 0.01 {
		t.Fatalf("last snapshot dt = %g, want 0.01", r.Last().Dt)
	}
}

func TestRunner_ListenersSeeEverySnapshot(t *testing.T) {
	eng := &fakeStepper{}
	r := NewRunner(10*time.Millisecond, Accelerated)

	var seen []core.Snapshot
	r.AddListener(func(s core.Snapshot) { seen = append(seen, s) })

	steps := r.Run(context.Background(), eng, 100*time.Millisecond, nil)
	if len(seen) != steps {
		t.Fatalf("listener saw %d snapshots, want %d", len(seen), steps)
	}
	if !reflect.DeepEqual(seen[len(seen)-1], r.Last()) {
		t.Fatalf("last listener snapshot differs from Last()")
	}
}

func TestRunner_ControlReceivesElapsedTime(t *testing.T) {
	eng := &fakeStepper{}
	r := NewRunner(10*time.Millisecond, Accelerated)

	var inputs []float64
	control := func(elapsed float64) float64 {
		inputs = append(inputs, elapsed)
		return elapsed * 2
	}
	r.Run(context.Background(), eng, 30*time.Millisecond, control)

	if len(inputs) != 3 {
		t.Fatalf("control called %d times, want 3", len(inputs))
	}
	if inputs[0] != 0 {
		t.Fatalf("first control call saw elapsed %g, want 0", inputs[0])
	}
	for i, c := range eng.controls {
		if c != inputs[i]*2 {
			t.Fatalf("step %d received control %g, want %g", i, c, inputs[i]*2)
		}
	}
}

func TestRunner_CancelledContextStops(t *testing.T) {
	eng := &fakeStepper{}
	r := NewRunner(10*time.Millisecond, Accelerated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps := r.Run(ctx, eng, time.Second, nil)
	if steps != 0 {
		t.Fatalf("cancelled run took %d steps, want 0", steps)
	}
}

func TestRunner_RealTimeReachesTarget(t *testing.T) {
	eng := &fakeStepper{}
	r := NewRunner(10*time.Millisecond, RealTime)

	steps := r.Run(context.Background(), eng, 50*time.Millisecond, nil)
	if steps != 5 {
		t.Fatalf("steps = %d, want 5", steps)
	}
	if r.Elapsed() < 0.05 {
		t.Fatalf("elapsed = %g, want >= 0.05", r.Elapsed())
	}
}
