package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/kite-simulator/internal/logging"
)

// LineState is the reportable line configuration and measurement for one
// frame.
type LineState struct {
	BaseLength    float64 `json:"base_length"`
	LeftLength    float64 `json:"left_length"`
	RightLength   float64 `json:"right_length"`
	LeftTension   float64 `json:"left_tension"`
	RightTension  float64 `json:"right_tension"`
	LeftDistance  float64 `json:"left_distance"`
	RightDistance float64 `json:"right_distance"`
}

// Snapshot is the complete simulation output for one step. Consumers
// (rendering, UI, telemetry) treat it as read-only.
type Snapshot struct {
	State        MotionState `json:"state"`
	Forces       ForceBundle `json:"forces"`
	Lines        LineState   `json:"lines"`
	Wind         WindState   `json:"wind"`
	Aero         AeroResult  `json:"aero"`
	ControlLeft  Vec3        `json:"control_left"`
	ControlRight Vec3        `json:"control_right"`
	Elapsed      float64     `json:"elapsed"`
	Dt           float64     `json:"dt"`
	// Rejected is set when the predicted state was non-finite and the
	// previous committed state was re-emitted unchanged.
	Rejected bool `json:"rejected,omitempty"`
}

// MetricsRecorder receives step-level observations. The observability
// package provides a Prometheus-backed implementation; the engine works
// against this interface so the core carries no collector types.
type MetricsRecorder interface {
	RecordStep(duration time.Duration, snap *Snapshot)
	RecordSolve(side string, iterations int, converged bool)
	RecordRejectedStep()
	RecordSlackBridle(side string, count int)
	RecordGroundContact()
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(time.Duration, *Snapshot) {}
func (nopRecorder) RecordSolve(string, int, bool)       {}
func (nopRecorder) RecordRejectedStep()                 {}
func (nopRecorder) RecordSlackBridle(string, int)       {}
func (nopRecorder) RecordGroundContact()                {}

// SimulationEngine is the root of the physics core. It owns the body's
// motion state exclusively and advances it once per fixed timestep
// through the predict → validate → resolve → velocity-correct →
// ground-clamp → commit pipeline. All calls are synchronous and
// single-threaded.
type SimulationEngine struct {
	cfg        *SimConfig
	body       *BodyState
	wind       WindState
	aero       *AeroForceCalculator
	gravity    *GravityForceCalculator
	lines      *LineForceModel
	integrator *Integrator

	log     logging.Logger
	metrics MetricsRecorder

	elapsed  float64
	lastLine LineResult
	lastAero AeroResult
}

// NewSimulationEngine validates the config, builds the kite geometry, and
// wires the force calculators. A nil logger or recorder falls back to a
// no-op.
func NewSimulationEngine(cfg *SimConfig, log logging.Logger, metrics MetricsRecorder) (*SimulationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}

	geo, err := NewDeltaKite(cfg.Body)
	if err != nil {
		return nil, err
	}

	return &SimulationEngine{
		cfg:        cfg,
		body:       NewBodyState(geo, cfg.Body, cfg.InitialPosition),
		wind:       NewWindState(Vec3{}, 0),
		aero:       NewAeroForceCalculator(cfg.Aero),
		gravity:    NewGravityForceCalculator(cfg.Gravity, cfg.Body.Mass, geo),
		lines:      NewLineForceModel(cfg.Line, cfg.Solver, cfg.BaseLineLength, cfg.WinchLeft, cfg.WinchRight, log),
		integrator: NewIntegrator(cfg.Integrator),
		log:        log,
		metrics:    metrics,
	}, nil
}

// Body exposes the body state container for read access by callers such
// as visualization; the motion state itself must only be mutated through
// Step and Reset.
func (e *SimulationEngine) Body() *BodyState {
	return e.body
}

// Wind returns the current wind state.
func (e *SimulationEngine) Wind() WindState {
	return e.wind
}

// SetWind replaces the ambient wind.
func (e *SimulationEngine) SetWind(w WindState) {
	e.wind = w
}

// SetBaseLineLength replaces the rest length of both lines.
func (e *SimulationEngine) SetBaseLineLength(length float64) {
	e.lines.SetBaseLength(length)
}

// SetWinchPositions replaces the two line anchor positions.
func (e *SimulationEngine) SetWinchPositions(left, right Vec3) {
	e.lines.SetWinchPositions(left, right)
}

// Reset clears all per-run solver caches and smoothed tensions and adopts
// the given state as the new committed state.
func (e *SimulationEngine) Reset(initial MotionState) {
	initial.Orientation = initial.Orientation.Normalized()
	e.body.State = initial
	e.lines.Reset()
	e.elapsed = 0
	e.lastLine = LineResult{}
	e.lastAero = AeroResult{}
}

// Step advances the simulation by one fixed timestep and returns the
// resulting snapshot. It never panics and never returns an invalid state:
// a non-finite prediction is discarded and the previous committed state
// re-emitted.
func (e *SimulationEngine) Step(dt, controlDelta float64) Snapshot {
	start := time.Now()
	prev := e.body.State

	// 1. Predict: free integration under aerodynamic and gravity
	// forces, ignoring line constraints.
	aeroRes := e.aero.Compute(e.body, e.wind)
	gravForce := e.gravity.Compute()
	gravTorque := e.gravity.ComputeTorque(e.body)

	freeForce := aeroRes.Force.Add(gravForce)
	freeTorque := aeroRes.Torque.Add(gravTorque)
	predicted := e.integrator.Advance(prev, freeForce, freeTorque, dt,
		e.body.Mass, e.body.Span, e.body.Height)

	// 2. Validate: fail soft on numerical invalidity.
	if !predicted.IsFinite() {
		e.log.Warn(context.Background(), "non-finite predicted state, re-emitting previous state",
			logging.Float64("elapsed", e.elapsed))
		e.metrics.RecordRejectedStep()
		e.elapsed += dt
		snap := e.buildSnapshot(e.lastAero, gravForce, gravTorque, e.lastLine, dt, true)
		e.metrics.RecordStep(time.Since(start), &snap)
		return snap
	}

	// 3. Resolve geometry and line forces against the predicted state.
	e.body.State = predicted
	lineRes := e.lines.Compute(e.body, controlDelta)

	// Body-pose projection onto the bridle constraints. Deliberately the
	// identity for now; a future correction step will move the body here
	// instead of relying purely on the velocity impulse below.
	projected := e.projectBridleConstraints(predicted)

	// 4. Velocity correction (position-based rule): derive velocities
	// from the realized position/orientation change, then add the line
	// elastic/damping impulse. Clamps are re-applied so the configured
	// caps hold after the impulse too.
	corrected := projected
	corrected.Velocity = projected.Position.Sub(prev.Position).Scale(1 / dt).
		Add(lineRes.Force.Scale(dt / e.body.Mass)).
		ClampNorm(e.cfg.Integrator.MaxVelocity)

	delta := projected.Orientation.Mul(prev.Orientation.Conjugate())
	axis, angle := delta.AxisAngle()
	angular := Vec3{}
	if angle > 0 {
		angular = axis.Scale(angle / dt)
	}
	inertia := e.body.Mass * (e.body.Span*e.body.Span + e.body.Height*e.body.Height) / 12
	corrected.AngularVelocity = angular.
		Add(lineRes.Torque.Scale(dt / inertia)).
		ClampNorm(e.cfg.Integrator.MaxAngularVelocity)
	corrected.Orientation = projected.Orientation.Normalized()

	// 5. Ground clamp on the geometrically lowest vertex.
	e.body.State = corrected
	e.clampToGround()

	// 6. Commit and emit.
	e.elapsed += dt
	e.lastLine = lineRes
	e.lastAero = aeroRes

	snap := e.buildSnapshot(aeroRes, gravForce, gravTorque, lineRes, dt, false)

	e.metrics.RecordSolve(SideLeft.String(), lineRes.Left.Stats.Iterations, lineRes.Left.Stats.Converged)
	e.metrics.RecordSolve(SideRight.String(), lineRes.Right.Stats.Iterations, lineRes.Right.Stats.Converged)
	if lineRes.Left.SlackCount > 0 {
		e.metrics.RecordSlackBridle(SideLeft.String(), lineRes.Left.SlackCount)
	}
	if lineRes.Right.SlackCount > 0 {
		e.metrics.RecordSlackBridle(SideRight.String(), lineRes.Right.SlackCount)
	}
	e.metrics.RecordStep(time.Since(start), &snap)
	return snap
}

// projectBridleConstraints is the extension point for a future body-pose
// correction against the bridle constraints. It currently returns the
// state unchanged; constraint feedback reaches the body through the
// velocity impulse instead.
func (e *SimulationEngine) projectBridleConstraints(st MotionState) MotionState {
	return st
}

// clampToGround pushes the body up when its lowest vertex has penetrated
// the ground, reflects a fraction of the vertical velocity, applies
// horizontal friction and angular damping, and zeroes near-rest
// velocities to stop contact micro-jitter.
func (e *SimulationEngine) clampToGround() {
	_, _, alt := e.body.LowestPoint()
	if alt >= 0 {
		return
	}
	g := e.cfg.Ground
	st := &e.body.State

	st.Position.Y -= alt
	if st.Velocity.Y < 0 {
		st.Velocity.Y = -st.Velocity.Y * g.Restitution
	}
	st.Velocity.X *= g.Friction
	st.Velocity.Z *= g.Friction
	st.AngularVelocity = st.AngularVelocity.Scale(g.AngularDamping)

	if st.Velocity.Norm() < g.RestVelocity {
		st.Velocity = Vec3{}
	}
	if st.AngularVelocity.Norm() < g.RestAngularVelocity {
		st.AngularVelocity = Vec3{}
	}
	e.metrics.RecordGroundContact()
}

func (e *SimulationEngine) buildSnapshot(aero AeroResult, gravForce, gravTorque Vec3, lines LineResult, dt float64, rejected bool) Snapshot {
	total := aero.Force.Add(gravForce).Add(lines.Force)
	torque := aero.Torque.Add(gravTorque).Add(lines.Torque)

	return Snapshot{
		State: e.body.State,
		Forces: ForceBundle{
			Aerodynamic: aero.Force,
			Gravity:     gravForce,
			Line:        lines.Force,
			LineLeft:    lines.Left.Force,
			LineRight:   lines.Right.Force,
			Total:       total,
			Torque:      torque,
		},
		Lines: LineState{
			BaseLength:    e.lines.BaseLength(),
			LeftLength:    lines.Left.TargetLength,
			RightLength:   lines.Right.TargetLength,
			LeftTension:   lines.Left.Tension,
			RightTension:  lines.Right.Tension,
			LeftDistance:  lines.Left.Distance,
			RightDistance: lines.Right.Distance,
		},
		Wind:         e.wind,
		Aero:         aero,
		ControlLeft:  lines.Left.ControlPoint,
		ControlRight: lines.Right.ControlPoint,
		Elapsed:      e.elapsed,
		Dt:           dt,
		Rejected:     rejected,
	}
}
