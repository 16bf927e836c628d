package core

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/kite-simulator/internal/logging"
)

// SolveStats reports how a control-point resolution went.
type SolveStats struct {
	Iterations int
	// Residual is the weighted RMS distance-constraint error (m) of the
	// returned point.
	Residual  float64
	Converged bool
}

// BridleResult is the full force distribution for one line side.
type BridleResult struct {
	// Force and Torque are the aggregate line contribution on the body.
	Force  Vec3
	Torque Vec3
	// ControlPoint is the resolved world position.
	ControlPoint Vec3
	// Tensions and AttachForces are per-attachment, in nose,
	// intermediate, center order. Tensions are never negative.
	Tensions     [3]float64
	AttachForces [3]Vec3
	Stats        SolveStats
	// Singular is set when the bridle directions were coplanar and the
	// tension solve fell back to an even split.
	Singular bool
	// SlackCount is the number of bridles whose solved tension came out
	// negative and was clamped to zero.
	SlackCount int
}

// BridleSolver resolves one side's control-point position from its four
// distance constraints and distributes the line force into the three
// bridle tensions. One instance exists per line side; the solver itself is
// stateless between calls, warm starts are supplied by the caller.
type BridleSolver struct {
	cfg  SolverConfig
	side Side
	log  logging.Logger
}

// NewBridleSolver builds a solver for one line side.
func NewBridleSolver(cfg SolverConfig, side Side, log logging.Logger) *BridleSolver {
	if log == nil {
		log = logging.Noop()
	}
	return &BridleSolver{cfg: cfg, side: side, log: log}
}

// ResolveControlPoint finds the point satisfying the four sphere
// constraints: distance to the winch equals the target line length
// (weighted by the configured repeat count) and distance to each
// attachment equals its bridle length.
//
// The solver alternates projections onto the constraint spheres, tracks
// the best point seen by weighted RMS residual, stops early on
// convergence, and bails out with the best point when the residual grows
// past twice the best found. With a warm start from the previous frame it
// typically converges in 1–3 iterations; cold starts begin from the
// barycenter of the attachments.
func (s *BridleSolver) ResolveControlPoint(winch Vec3, lineLength float64, attach [3]Vec3, lengths [3]float64, warmStart *Vec3) (Vec3, SolveStats) {
	est := attach[0].Add(attach[1]).Add(attach[2]).Scale(1.0 / 3.0)
	if warmStart != nil {
		est = *warmStart
	}

	best := est
	bestRes := s.residual(est, winch, lineLength, attach, lengths)
	stats := SolveStats{Residual: bestRes}
	if bestRes < s.cfg.Tolerance {
		stats.Converged = true
		return best, stats
	}

	for it := 1; it <= s.cfg.MaxIterations; it++ {
		for k := 0; k < s.cfg.WinchWeight; k++ {
			est = s.project(est, winch, lineLength)
		}
		for i := 0; i < 3; i++ {
			est = s.project(est, attach[i], lengths[i])
		}

		res := s.residual(est, winch, lineLength, attach, lengths)
		stats.Iterations = it

		if res < bestRes {
			best = est
			bestRes = res
		}
		if res < s.cfg.Tolerance {
			break
		}
		if res > 2*bestRes {
			// Diverging; the best point found so far wins.
			s.log.Debug(context.Background(), "control point solve diverging, keeping best",
				logging.String("side", s.side.String()),
				logging.Int("iteration", it),
				logging.Float64("residual", res),
				logging.Float64("best_residual", bestRes))
			break
		}
	}

	stats.Residual = bestRes
	stats.Converged = bestRes < s.cfg.Tolerance
	return best, stats
}

// project moves p toward the sphere (center, radius) by the relaxation
// factor. A point sitting exactly on the centre is nudged along +Y so the
// projection has a direction.
func (s *BridleSolver) project(p, center Vec3, radius float64) Vec3 {
	dir := p.Sub(center)
	n := dir.Norm()
	if n < 1e-12 {
		dir = Vec3{Y: 1}
		n = 1
	}
	onSphere := center.Add(dir.Scale(radius / n))
	return p.Add(onSphere.Sub(p).Scale(s.cfg.Relaxation))
}

// residual is the weighted RMS error over the four distance constraints,
// with the winch constraint counted WinchWeight times.
func (s *BridleSolver) residual(p, winch Vec3, lineLength float64, attach [3]Vec3, lengths [3]float64) float64 {
	w := float64(s.cfg.WinchWeight)
	e := p.DistanceTo(winch) - lineLength
	sum := w * e * e
	for i := 0; i < 3; i++ {
		e = p.DistanceTo(attach[i]) - lengths[i]
		sum += e * e
	}
	return math.Sqrt(sum / (w + 3))
}

// DistributeTension solves J·T = -F for the three bridle tensions, where
// J's columns are the unit directions from the control point to each
// attachment. Coplanar directions fall back to an even split of the force
// magnitude. Negative solutions mean a slack bridle and are clamped to
// zero; the resulting loss of exact force conservation is by-observation
// behaviour, not corrected.
func (s *BridleSolver) DistributeTension(lineForce Vec3, dirs [3]Vec3) ([3]float64, bool, int) {
	jac := mat.NewDense(3, 3, []float64{
		dirs[0].X, dirs[1].X, dirs[2].X,
		dirs[0].Y, dirs[1].Y, dirs[2].Y,
		dirs[0].Z, dirs[1].Z, dirs[2].Z,
	})

	if det := mat.Det(jac); math.Abs(det) < 1e-9 {
		s.log.Warn(context.Background(), "coplanar bridle directions, splitting line force evenly",
			logging.String("side", s.side.String()),
			logging.Float64("determinant", det))
		even := lineForce.Norm() / 3
		return [3]float64{even, even, even}, true, 0
	}

	var inv mat.Dense
	if err := inv.Inverse(jac); err != nil {
		s.log.Warn(context.Background(), "bridle jacobian inversion failed, splitting line force evenly",
			logging.String("side", s.side.String()),
			logging.Any("error", err))
		even := lineForce.Norm() / 3
		return [3]float64{even, even, even}, true, 0
	}

	rhs := mat.NewVecDense(3, []float64{-lineForce.X, -lineForce.Y, -lineForce.Z})
	var sol mat.VecDense
	sol.MulVec(&inv, rhs)

	var tensions [3]float64
	slack := 0
	for i := 0; i < 3; i++ {
		t := sol.AtVec(i)
		if t < 0 {
			// A bridle can only pull. Clamping breaks exact force
			// conservation for this frame.
			s.log.Debug(context.Background(), "slack bridle, clamping negative tension",
				logging.String("side", s.side.String()),
				logging.Int("bridle", i),
				logging.Float64("tension", t))
			t = 0
			slack++
		}
		tensions[i] = t
	}
	return tensions, false, slack
}

// BridleForces composes position resolution and tension distribution into
// the full per-side force result: resolve the control point, distribute
// the line force into tensions along the bridle directions, convert to
// force vectors at the attachments, and accumulate torque about the
// centre of mass.
func (s *BridleSolver) BridleForces(lineForce Vec3, winch Vec3, targetLength float64, body *BodyState, warmStart *Vec3) BridleResult {
	attachNames := body.Geometry.BridleAttachments(s.side)
	var attach [3]Vec3
	var lengths [3]float64
	nominal := body.ToWorld(body.Geometry.NominalControlPoint(s.side))
	for i, name := range attachNames {
		world, err := body.GlobalPoint(name)
		if err != nil {
			// Estimate from the nominal control point so a missing
			// point degrades rather than halts the step.
			s.log.Warn(context.Background(), "bridle attachment lookup failed, using estimate",
				logging.String("side", s.side.String()),
				logging.String("point", name),
				logging.Any("error", err))
			world = body.CenterOfMass()
		}
		attach[i] = world
		lengths[i] = world.DistanceTo(nominal)
	}

	ctrl, stats := s.ResolveControlPoint(winch, targetLength, attach, lengths, warmStart)

	var dirs [3]Vec3
	for i := 0; i < 3; i++ {
		dirs[i] = attach[i].Sub(ctrl).Normalized()
	}

	tensions, singular, slack := s.DistributeTension(lineForce, dirs)

	res := BridleResult{
		ControlPoint: ctrl,
		Tensions:     tensions,
		Stats:        stats,
		Singular:     singular,
		SlackCount:   slack,
	}

	com := body.CenterOfMass()
	for i := 0; i < 3; i++ {
		// The bridle pulls the attachment toward the control point.
		f := dirs[i].Scale(-tensions[i])
		res.AttachForces[i] = f
		res.Force = res.Force.Add(f)
		res.Torque = res.Torque.Add(attach[i].Sub(com).Cross(f))
	}

	// Fade forces out continuously while the solve is out of tolerance,
	// so transient divergence cannot inject force spikes.
	if scale := s.errorSmoothing(stats.Residual); scale < 1 {
		res.Force = res.Force.Scale(scale)
		res.Torque = res.Torque.Scale(scale)
		for i := range res.AttachForces {
			res.AttachForces[i] = res.AttachForces[i].Scale(scale)
		}
	}

	return res
}

// errorSmoothing maps the solve residual to a force scale in [0.05, 1]:
// exp(-k·(e-1)²) for normalized error e above 1, floored at 5%.
func (s *BridleSolver) errorSmoothing(residual float64) float64 {
	e := residual / s.cfg.Tolerance
	if e <= 1 {
		return 1
	}
	scale := math.Exp(-s.cfg.ErrorSmoothingRate * (e - 1) * (e - 1))
	if scale < 0.05 {
		scale = 0.05
	}
	return scale
}
