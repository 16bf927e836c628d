// Package timectrl drives the physics engine at a fixed timestep,
// decoupling the caller's variable rate from the simulation tick via a
// time accumulator.
package timectrl

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/kite-simulator/core"
)

// Stepper is the engine-facing contract: advance one fixed timestep with
// the given control input and return the resulting snapshot.
type Stepper interface {
	Step(dt, controlDelta float64) core.Snapshot
}

// ControlFunc supplies the signed line-length differential (m) for a given
// elapsed simulation time. Manual input and autopilots both fit here.
type ControlFunc func(elapsed float64) float64

// Mode describes how the Runner advances simulation time.
type Mode int

const (
	// RealTime paces ticks against the wall clock.
	RealTime Mode = iota
	// Accelerated steps as quickly as the loop can run.
	Accelerated
)

// Runner owns the fixed-step loop around a Stepper. The accumulator is
// clamped so a stalled caller catches up over a few frames instead of
// spiralling.
type Runner struct {
	mu sync.RWMutex

	// Tick is the fixed physics timestep.
	Tick time.Duration
	Mode Mode

	// MaxCatchUp caps how much backlog a single frame may drain.
	MaxCatchUp time.Duration

	elapsed   float64
	last      core.Snapshot
	listeners []func(core.Snapshot)
}

// NewRunner constructs a runner for the given timestep and mode.
func NewRunner(tick time.Duration, mode Mode) *Runner {
	return &Runner{
		Tick:       tick,
		Mode:       mode,
		MaxCatchUp: 250 * time.Millisecond,
	}
}

// AddListener registers a callback invoked with every emitted snapshot.
// Listeners must be registered before Run starts.
func (r *Runner) AddListener(fn func(core.Snapshot)) {
	r.listeners = append(r.listeners, fn)
}

// Elapsed returns the simulation time advanced so far (s).
func (r *Runner) Elapsed() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.elapsed
}

// Last returns the most recent snapshot.
func (r *Runner) Last() core.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run drives the stepper for the given simulation duration, or until the
// context is cancelled. In RealTime mode ticks are paced by the wall
// clock through the accumulator; in Accelerated mode the loop runs flat
// out. It returns the number of steps taken.
func (r *Runner) Run(ctx context.Context, engine Stepper, duration time.Duration, control ControlFunc) int {
	if control == nil {
		control = func(float64) float64 { return 0 }
	}
	dt := r.Tick.Seconds()
	target := duration.Seconds()
	steps := 0
	tracer := otel.Tracer("timectrl")

	if r.Mode == Accelerated {
		_, span := tracer.Start(ctx, "sim.run",
			trace.WithAttributes(attribute.Float64("tick_seconds", dt)))
		defer func() {
			span.SetAttributes(attribute.Int("steps", steps))
			span.End()
		}()
		for r.Elapsed() < target {
			if ctx.Err() != nil {
				return steps
			}
			r.step(engine, dt, control)
			steps++
		}
		return steps
	}

	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	prev := time.Now()
	var backlog time.Duration
	for r.Elapsed() < target {
		select {
		case <-ctx.Done():
			return steps
		case now := <-ticker.C:
			backlog += now.Sub(prev)
			prev = now
			if backlog > r.MaxCatchUp {
				backlog = r.MaxCatchUp
			}
			if backlog < r.Tick {
				continue
			}
			// One span per drained batch; with tracing disabled this
			// is the noop provider.
			_, span := tracer.Start(ctx, "sim.batch",
				trace.WithAttributes(attribute.Float64("backlog_seconds", backlog.Seconds())))
			batch := 0
			for backlog >= r.Tick && r.Elapsed() < target {
				backlog -= r.Tick
				r.step(engine, dt, control)
				steps++
				batch++
			}
			span.SetAttributes(attribute.Int("steps", batch))
			span.End()
		}
	}
	return steps
}

func (r *Runner) step(engine Stepper, dt float64, control ControlFunc) {
	snap := engine.Step(dt, control(r.Elapsed()))

	r.mu.Lock()
	r.elapsed += dt
	r.last = snap
	r.mu.Unlock()

	for _, fn := range r.listeners {
		fn(snap)
	}
}
