package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadConfig wraps every configuration validation failure.
var ErrBadConfig = errors.New("invalid simulation config")

// LineConfig tunes the bi-regime spring-damper line model shared by both
// lines.
type LineConfig struct {
	// Stiffness is the linear spring constant (N/m) for moderate
	// stretch.
	Stiffness float64 `json:"stiffness"`
	// Damping scales the radial-velocity term (N·s/m).
	Damping float64 `json:"damping"`
	// Smoothing is the exponential blend factor applied to the raw
	// tension each frame, in (0, 1]. 1 disables smoothing.
	Smoothing float64 `json:"smoothing"`
	// MinTension (N) is carried by any taut line regardless of stretch,
	// standing in for line weight and air drag on the line itself.
	MinTension float64 `json:"min_tension"`
	// SlackTolerance (m) is the band below the rest length over which
	// tension ramps from zero up to MinTension.
	SlackTolerance float64 `json:"slack_tolerance"`
	// ExpThreshold (m) is the stretch past which the spring switches
	// from linear to exponential.
	ExpThreshold float64 `json:"exp_threshold"`
	// ExpStiffness and ExpRate shape the exponential zone.
	ExpStiffness float64 `json:"exp_stiffness"`
	ExpRate      float64 `json:"exp_rate"`
}

// SolverConfig tunes the control-point constraint solver.
type SolverConfig struct {
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the weighted RMS residual (m) below which the solve
	// counts as converged.
	Tolerance float64 `json:"tolerance"`
	// Relaxation scales each sphere projection; 1 projects fully.
	Relaxation float64 `json:"relaxation"`
	// WinchWeight is the integer repeat count of the winch-sphere
	// projection per iteration, biasing the solve toward holding the
	// line length.
	WinchWeight int `json:"winch_weight"`
	// ErrorSmoothingRate shapes the force fade applied while the solve
	// is out of tolerance.
	ErrorSmoothingRate float64 `json:"error_smoothing_rate"`
}

// IntegratorConfig tunes the semi-implicit integrator.
type IntegratorConfig struct {
	// Damping multiplies velocities once per step; 1 disables it.
	Damping float64 `json:"damping"`
	// MaxVelocity and MaxAngularVelocity cap speeds after every update;
	// zero or below disables a cap.
	MaxVelocity        float64 `json:"max_velocity"`
	MaxAngularVelocity float64 `json:"max_angular_velocity"`
}

// AeroConfig tunes the per-panel flat-plate aerodynamics.
type AeroConfig struct {
	AirDensity float64 `json:"air_density"`
	// LiftRef is the lift coefficient at the reference angle of attack;
	// LiftStall the flat post-stall value.
	LiftRef   float64 `json:"lift_ref"`
	LiftStall float64 `json:"lift_stall"`
	// DragBase and DragQuad form Cd = DragBase + DragQuad·alpha².
	DragBase float64 `json:"drag_base"`
	DragQuad float64 `json:"drag_quad"`
	// MinApparentWind (m/s) is the speed below which aerodynamics are
	// skipped entirely.
	MinApparentWind float64 `json:"min_apparent_wind"`
}

// BodyConfig describes the kite's mass and geometry. Bridle lengths run
// from the three attachment points to each side's control point.
type BodyConfig struct {
	Mass   float64 `json:"mass"`
	Span   float64 `json:"span"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`

	BridleNose         float64 `json:"bridle_nose"`
	BridleIntermediate float64 `json:"bridle_intermediate"`
	BridleCenter       float64 `json:"bridle_center"`
}

// GroundConfig tunes the ground contact response.
type GroundConfig struct {
	// Restitution is the fraction of vertical velocity reflected on
	// impact.
	Restitution float64 `json:"restitution"`
	// Friction multiplies horizontal velocity on contact.
	Friction float64 `json:"friction"`
	// AngularDamping multiplies angular velocity on contact.
	AngularDamping float64 `json:"angular_damping"`
	// RestVelocity and RestAngularVelocity are the thresholds below
	// which motion is zeroed to stop contact micro-jitter.
	RestVelocity        float64 `json:"rest_velocity"`
	RestAngularVelocity float64 `json:"rest_angular_velocity"`
}

// SimConfig is the complete tuning surface of the simulation.
type SimConfig struct {
	Gravity        float64 `json:"gravity"`
	BaseLineLength float64 `json:"base_line_length"`

	WinchLeft       Vec3 `json:"winch_left"`
	WinchRight      Vec3 `json:"winch_right"`
	InitialPosition Vec3 `json:"initial_position"`

	Line       LineConfig       `json:"line"`
	Solver     SolverConfig     `json:"solver"`
	Integrator IntegratorConfig `json:"integrator"`
	Aero       AeroConfig       `json:"aero"`
	Body       BodyConfig       `json:"body"`
	Ground     GroundConfig     `json:"ground"`
}

// DefaultSimConfig returns the tuning for a 2m delta kite on 25m lines.
func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		Gravity:        9.81,
		BaseLineLength: 25,

		WinchLeft:       Vec3{X: -0.4, Y: 1.2},
		WinchRight:      Vec3{X: 0.4, Y: 1.2},
		InitialPosition: Vec3{Y: 12, Z: -22},

		Line: LineConfig{
			Stiffness:      1200,
			Damping:        15,
			Smoothing:      0.35,
			MinTension:     2,
			SlackTolerance: 0.05,
			ExpThreshold:   0.3,
			ExpStiffness:   60,
			ExpRate:        4,
		},
		Solver: SolverConfig{
			MaxIterations:      20,
			Tolerance:          0.001,
			Relaxation:         1.0,
			WinchWeight:        3,
			ErrorSmoothingRate: 2.0,
		},
		Integrator: IntegratorConfig{
			Damping:            0.998,
			MaxVelocity:        50,
			MaxAngularVelocity: 25,
		},
		Aero: AeroConfig{
			AirDensity:      1.225,
			LiftRef:         0.9,
			LiftStall:       0.6,
			DragBase:        0.08,
			DragQuad:        1.2,
			MinApparentWind: 0.1,
		},
		Body: BodyConfig{
			Mass:               0.28,
			Span:               2.0,
			Height:             0.8,
			Depth:              0.25,
			BridleNose:         0.60,
			BridleIntermediate: 0.55,
			BridleCenter:       0.50,
		},
		Ground: GroundConfig{
			Restitution:         0.15,
			Friction:            0.85,
			AngularDamping:      0.7,
			RestVelocity:        0.01,
			RestAngularVelocity: 0.02,
		},
	}
}

// Validate checks every tuning value and reports all problems at once,
// wrapped in ErrBadConfig.
func (c *SimConfig) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Gravity <= 0 {
		bad("gravity must be positive, got %g", c.Gravity)
	}
	if c.BaseLineLength <= 0 {
		bad("base_line_length must be positive, got %g", c.BaseLineLength)
	}

	if c.Line.Stiffness <= 0 {
		bad("line.stiffness must be positive, got %g", c.Line.Stiffness)
	}
	if c.Line.Damping < 0 {
		bad("line.damping must not be negative, got %g", c.Line.Damping)
	}
	if c.Line.Smoothing <= 0 || c.Line.Smoothing > 1 {
		bad("line.smoothing must be in (0, 1], got %g", c.Line.Smoothing)
	}
	if c.Line.MinTension < 0 {
		bad("line.min_tension must not be negative, got %g", c.Line.MinTension)
	}
	if c.Line.SlackTolerance <= 0 {
		bad("line.slack_tolerance must be positive, got %g", c.Line.SlackTolerance)
	}
	if c.Line.ExpThreshold <= 0 {
		bad("line.exp_threshold must be positive, got %g", c.Line.ExpThreshold)
	}
	if c.Line.ExpStiffness <= 0 {
		bad("line.exp_stiffness must be positive, got %g", c.Line.ExpStiffness)
	}
	if c.Line.ExpRate <= 0 {
		bad("line.exp_rate must be positive, got %g", c.Line.ExpRate)
	}

	if c.Solver.MaxIterations < 1 {
		bad("solver.max_iterations must be at least 1, got %d", c.Solver.MaxIterations)
	}
	if c.Solver.Tolerance <= 0 {
		bad("solver.tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.Relaxation <= 0 || c.Solver.Relaxation > 1 {
		bad("solver.relaxation must be in (0, 1], got %g", c.Solver.Relaxation)
	}
	if c.Solver.WinchWeight < 1 {
		bad("solver.winch_weight must be at least 1, got %d", c.Solver.WinchWeight)
	}
	if c.Solver.ErrorSmoothingRate <= 0 {
		bad("solver.error_smoothing_rate must be positive, got %g", c.Solver.ErrorSmoothingRate)
	}

	if c.Integrator.Damping <= 0 || c.Integrator.Damping > 1 {
		bad("integrator.damping must be in (0, 1], got %g", c.Integrator.Damping)
	}

	if c.Aero.AirDensity <= 0 {
		bad("aero.air_density must be positive, got %g", c.Aero.AirDensity)
	}
	if c.Aero.LiftRef <= 0 {
		bad("aero.lift_ref must be positive, got %g", c.Aero.LiftRef)
	}
	if c.Aero.LiftStall < 0 {
		bad("aero.lift_stall must not be negative, got %g", c.Aero.LiftStall)
	}
	if c.Aero.DragBase < 0 || c.Aero.DragQuad < 0 {
		bad("aero drag coefficients must not be negative, got %g/%g", c.Aero.DragBase, c.Aero.DragQuad)
	}
	if c.Aero.MinApparentWind <= 0 {
		bad("aero.min_apparent_wind must be positive, got %g", c.Aero.MinApparentWind)
	}

	if c.Body.Mass <= 0 {
		bad("body.mass must be positive, got %g", c.Body.Mass)
	}
	if c.Body.Span <= 0 || c.Body.Height <= 0 || c.Body.Depth <= 0 {
		bad("body dimensions must be positive, got span %g height %g depth %g",
			c.Body.Span, c.Body.Height, c.Body.Depth)
	}
	if c.Body.BridleNose <= 0 || c.Body.BridleIntermediate <= 0 || c.Body.BridleCenter <= 0 {
		bad("bridle lengths must be positive, got %g/%g/%g",
			c.Body.BridleNose, c.Body.BridleIntermediate, c.Body.BridleCenter)
	}

	if c.Ground.Restitution < 0 || c.Ground.Restitution > 1 {
		bad("ground.restitution must be in [0, 1], got %g", c.Ground.Restitution)
	}
	if c.Ground.Friction < 0 || c.Ground.Friction > 1 {
		bad("ground.friction must be in [0, 1], got %g", c.Ground.Friction)
	}
	if c.Ground.AngularDamping < 0 || c.Ground.AngularDamping > 1 {
		bad("ground.angular_damping must be in [0, 1], got %g", c.Ground.AngularDamping)
	}
	if c.Ground.RestVelocity < 0 || c.Ground.RestAngularVelocity < 0 {
		bad("ground rest thresholds must not be negative, got %g/%g",
			c.Ground.RestVelocity, c.Ground.RestAngularVelocity)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrBadConfig, strings.Join(problems, "; "))
	}
	return nil
}
