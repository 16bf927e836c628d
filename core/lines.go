package core

import (
	"math"

	"github.com/signalsfoundry/kite-simulator/internal/logging"
)

// SideResult is the per-side output of one line computation.
type SideResult struct {
	Force        Vec3
	Torque       Vec3
	Tension      float64
	Distance     float64
	TargetLength float64
	ControlPoint Vec3
	Tensions     [3]float64
	Stats        SolveStats
	Singular     bool
	SlackCount   int
}

// LineResult aggregates both sides for one frame.
type LineResult struct {
	Force  Vec3
	Torque Vec3
	Left   SideResult
	Right  SideResult
}

// LineForceModel runs the per-frame 3-pass line calculation for both
// sides: resolve geometry with a zero dummy force, compute the scalar
// spring-damper tension from the just-resolved position, then rerun the
// bridle distribution with the real force vector. The two smoothed
// tension accumulators and the two warm-start caches are the model's only
// persistent state; each is written by exactly one call site per step.
type LineForceModel struct {
	cfg        LineConfig
	solvers    [2]*BridleSolver
	baseLength float64
	winch      [2]Vec3
	log        logging.Logger

	smoothed  [2]float64
	warm      [2]Vec3
	warmValid [2]bool
}

// NewLineForceModel builds the model with one bridle solver per side.
func NewLineForceModel(lineCfg LineConfig, solverCfg SolverConfig, baseLength float64, winchLeft, winchRight Vec3, log logging.Logger) *LineForceModel {
	if log == nil {
		log = logging.Noop()
	}
	return &LineForceModel{
		cfg: lineCfg,
		solvers: [2]*BridleSolver{
			NewBridleSolver(solverCfg, SideLeft, log),
			NewBridleSolver(solverCfg, SideRight, log),
		},
		baseLength: baseLength,
		winch:      [2]Vec3{winchLeft, winchRight},
		log:        log,
	}
}

// SetBaseLength replaces the rest length of both lines.
func (m *LineForceModel) SetBaseLength(length float64) {
	m.baseLength = length
}

// BaseLength returns the current rest length.
func (m *LineForceModel) BaseLength() float64 {
	return m.baseLength
}

// SetWinchPositions replaces the two winch anchor positions.
func (m *LineForceModel) SetWinchPositions(left, right Vec3) {
	m.winch[SideLeft] = left
	m.winch[SideRight] = right
}

// WinchPosition returns the anchor position for a side.
func (m *LineForceModel) WinchPosition(side Side) Vec3 {
	return m.winch[side]
}

// Reset zeroes the smoothed-tension accumulators and discards the
// warm-start caches; the next frame solves cold.
func (m *LineForceModel) Reset() {
	m.smoothed = [2]float64{}
	m.warmValid = [2]bool{}
}

// Compute runs the full line calculation for the frame. controlDelta is
// the signed length differential: the left line is shortened and the
// right lengthened by it.
func (m *LineForceModel) Compute(body *BodyState, controlDelta float64) LineResult {
	var res LineResult
	res.Left = m.computeSide(body, SideLeft, m.baseLength-controlDelta)
	res.Right = m.computeSide(body, SideRight, m.baseLength+controlDelta)
	res.Force = res.Left.Force.Add(res.Right.Force)
	res.Torque = res.Left.Torque.Add(res.Right.Torque)
	return res
}

func (m *LineForceModel) computeSide(body *BodyState, side Side, targetLength float64) SideResult {
	solver := m.solvers[side]
	winch := m.winch[side]
	warm := m.warmStart(side)

	// Pass 1: pure geometry against this frame's state, zero dummy
	// force, seeded with last frame's position.
	geom := solver.BridleForces(Vec3{}, winch, targetLength, body, warm)
	m.warm[side] = geom.ControlPoint
	m.warmValid[side] = true

	// Pass 2: scalar tension from the just-resolved position. The
	// smoothed value is this side's persistent accumulator.
	distance := geom.ControlPoint.DistanceTo(winch)
	raw := m.rawTension(body, geom.ControlPoint, winch, distance, targetLength)
	m.smoothed[side] = m.cfg.Smoothing*raw + (1-m.cfg.Smoothing)*m.smoothed[side]
	tension := m.smoothed[side]

	// Pass 3: redistribute the true tension-derived force. The position
	// is already resolved, so the warm-started solve is cheap.
	lineForce := winch.Sub(geom.ControlPoint).Normalized().Scale(tension)
	final := solver.BridleForces(lineForce, winch, targetLength, body, &geom.ControlPoint)
	m.warm[side] = final.ControlPoint

	return SideResult{
		Force:        final.Force,
		Torque:       final.Torque,
		Tension:      tension,
		Distance:     distance,
		TargetLength: targetLength,
		ControlPoint: final.ControlPoint,
		Tensions:     final.Tensions,
		Stats:        final.Stats,
		Singular:     final.Singular,
		SlackCount:   final.SlackCount,
	}
}

// rawTension is the bi-regime spring-damper law. Below the slack band the
// line carries nothing; inside the band tension ramps linearly up to the
// minimum, standing in for line self-weight and air friction; taut lines
// get the piecewise linear/exponential spring plus radial damping.
func (m *LineForceModel) rawTension(body *BodyState, ctrl, winch Vec3, distance, restLength float64) float64 {
	switch {
	case distance < restLength-m.cfg.SlackTolerance:
		return 0
	case distance < restLength:
		frac := 1 - (restLength-distance)/m.cfg.SlackTolerance
		return m.cfg.MinTension * frac
	}

	ext := distance - restLength

	var spring float64
	if ext <= m.cfg.ExpThreshold {
		spring = m.cfg.Stiffness * ext
	} else {
		// Runaway-stretch protection: exponential past the threshold,
		// continuous with the linear zone at the switch point.
		spring = m.cfg.ExpStiffness*(math.Exp(m.cfg.ExpRate*(ext-m.cfg.ExpThreshold))-1) +
			m.cfg.Stiffness*m.cfg.ExpThreshold
	}

	lineDir := ctrl.Sub(winch).Normalized()
	radialVel := body.PointVelocity(ctrl).Dot(lineDir)
	tension := spring + m.cfg.Damping*radialVel

	if tension < m.cfg.MinTension {
		tension = m.cfg.MinTension
	}
	return tension
}

func (m *LineForceModel) warmStart(side Side) *Vec3 {
	if !m.warmValid[side] {
		return nil
	}
	w := m.warm[side]
	return &w
}
