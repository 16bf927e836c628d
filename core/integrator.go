package core

// Integrator advances linear and angular motion from net force and torque
// using semi-implicit integration: velocity first, damped and clamped,
// then position from the new velocity.
type Integrator struct {
	cfg IntegratorConfig
}

// NewIntegrator builds an integrator with the given tuning.
func NewIntegrator(cfg IntegratorConfig) *Integrator {
	return &Integrator{cfg: cfg}
}

// Advance returns the state one step ahead of st under the given force
// and torque. The moment of inertia is approximated from the body's span
// and height as a flat plate. Acceleration fields on the returned state
// are diagnostics only.
func (in *Integrator) Advance(st MotionState, force, torque Vec3, dt, mass, span, height float64) MotionState {
	next := st

	accel := force.Scale(1 / mass)
	next.Velocity = st.Velocity.Add(accel.Scale(dt)).
		Scale(in.cfg.Damping).
		ClampNorm(in.cfg.MaxVelocity)
	next.Position = st.Position.Add(next.Velocity.Scale(dt))
	next.Acceleration = accel

	inertia := mass * (span*span + height*height) / 12
	angAccel := torque.Scale(1 / inertia)
	next.AngularVelocity = st.AngularVelocity.Add(angAccel.Scale(dt)).
		Scale(in.cfg.Damping).
		ClampNorm(in.cfg.MaxAngularVelocity)
	next.AngularAcceleration = angAccel

	omega := next.AngularVelocity
	if angle := omega.Norm() * dt; angle > 0 {
		rot := QuatFromAxisAngle(omega, angle)
		next.Orientation = rot.Mul(st.Orientation).Normalized()
	}

	next.Time = st.Time + dt
	return next
}
