package core

import (
	"math"
	"testing"
)

func TestIntegrator_FreeFall(t *testing.T) {
	in := NewIntegrator(IntegratorConfig{Damping: 1, MaxVelocity: 0, MaxAngularVelocity: 0})

	const (
		mass = 2.0
		g    = 9.81
		dt   = 0.01
	)
	st := NewMotionState(Vec3{Y: 100})

	weight := Vec3{Y: -mass * g}
	for i := 0; i < 100; i++ {
		st = in.Advance(st, weight, Vec3{}, dt, mass, 2, 0.8)
	}

	// Semi-implicit Euler after n steps: v = -g*n*dt exactly.
	wantV := -g * 100 * dt
	if math.Abs(st.Velocity.Y-wantV) > 1e-9 {
		t.Fatalf("free-fall velocity = %g, want %g", st.Velocity.Y, wantV)
	}
	if st.Velocity.X != 0 || st.Velocity.Z != 0 {
		t.Fatalf("free fall must stay vertical, got %+v", st.Velocity)
	}
	if st.Position.Y >= 100 {
		t.Fatalf("body did not fall: y = %g", st.Position.Y)
	}
	if math.Abs(st.Time-1.0) > 1e-9 {
		t.Fatalf("elapsed time = %g, want 1.0", st.Time)
	}
}

func TestIntegrator_VelocityClamp(t *testing.T) {
	cfg := DefaultSimConfig().Integrator
	in := NewIntegrator(cfg)

	st := NewMotionState(Vec3{})
	huge := Vec3{Z: 1e6}
	st = in.Advance(st, huge, Vec3{}, 0.1, 1, 2, 0.8)
	if math.Abs(st.Velocity.Norm()-cfg.MaxVelocity) > 1e-9 {
		t.Fatalf("velocity not clamped: |v| = %g, want %g", st.Velocity.Norm(), cfg.MaxVelocity)
	}

	st = NewMotionState(Vec3{})
	st = in.Advance(st, Vec3{}, huge, 0.1, 1, 2, 0.8)
	if math.Abs(st.AngularVelocity.Norm()-cfg.MaxAngularVelocity) > 1e-9 {
		t.Fatalf("angular velocity not clamped: |w| = %g, want %g",
			st.AngularVelocity.Norm(), cfg.MaxAngularVelocity)
	}
}

func TestIntegrator_DampingBleedsVelocity(t *testing.T) {
	in := NewIntegrator(IntegratorConfig{Damping: 0.9, MaxVelocity: 100, MaxAngularVelocity: 100})

	st := NewMotionState(Vec3{})
	st.Velocity = Vec3{X: 10}
	st = in.Advance(st, Vec3{}, Vec3{}, 0.01, 1, 2, 0.8)
	if math.Abs(st.Velocity.X-9) > 1e-12 {
		t.Fatalf("damped velocity = %g, want 9", st.Velocity.X)
	}
}

func TestIntegrator_RotationTracksAngularVelocity(t *testing.T) {
	in := NewIntegrator(IntegratorConfig{Damping: 1, MaxVelocity: 0, MaxAngularVelocity: 0})

	// Constant spin about Y at pi/2 rad/s for one second.
	st := NewMotionState(Vec3{})
	st.AngularVelocity = Vec3{Y: math.Pi / 2}
	for i := 0; i < 1000; i++ {
		st = in.Advance(st, Vec3{}, Vec3{}, 0.001, 1, 2, 0.8)
	}

	// Local +Z should now point along world +X.
	got := st.Orientation.Rotate(Vec3{Z: 1})
	if math.Abs(got.X-1) > 1e-6 || math.Abs(got.Z) > 1e-6 || math.Abs(got.Y) > 1e-9 {
		t.Fatalf("quarter turn about Y should map +Z to +X, got %+v", got)
	}
	if math.Abs(st.Orientation.Norm()-1) > 1e-9 {
		t.Fatalf("orientation drifted off unit norm: %g", st.Orientation.Norm())
	}
}

func TestIntegrator_TorqueSpinsUpByInertia(t *testing.T) {
	in := NewIntegrator(IntegratorConfig{Damping: 1, MaxVelocity: 0, MaxAngularVelocity: 0})

	const (
		mass   = 0.28
		span   = 2.0
		height = 0.8
		dt     = 0.01
	)
	inertia := mass * (span*span + height*height) / 12

	st := NewMotionState(Vec3{})
	st = in.Advance(st, Vec3{}, Vec3{X: 1}, dt, mass, span, height)
	want := dt / inertia
	if math.Abs(st.AngularVelocity.X-want) > 1e-12 {
		t.Fatalf("angular velocity = %g, want %g", st.AngularVelocity.X, want)
	}
}
