package core

// MotionState is the complete motion state of the body at one instant.
// Acceleration fields are diagnostics cached by the integrator, never read
// back by the pipeline.
type MotionState struct {
	Position            Vec3    `json:"position"`
	Velocity            Vec3    `json:"velocity"`
	Acceleration        Vec3    `json:"acceleration"`
	Orientation         Quat    `json:"orientation"`
	AngularVelocity     Vec3    `json:"angular_velocity"`
	AngularAcceleration Vec3    `json:"angular_acceleration"`
	Time                float64 `json:"time"`
}

// NewMotionState returns a state at rest at the given position.
func NewMotionState(position Vec3) MotionState {
	return MotionState{
		Position:    position,
		Orientation: IdentityQuat(),
	}
}

// IsFinite reports whether every component of the state is finite.
func (m MotionState) IsFinite() bool {
	return m.Position.IsFinite() &&
		m.Velocity.IsFinite() &&
		m.Orientation.IsFinite() &&
		m.AngularVelocity.IsFinite()
}

// BodyState couples the static geometry with the mutable motion state and
// provides local-to-world transforms. The motion state is owned by the
// simulation engine and mutated in place once per step; nothing outside
// the engine's call stack holds a mutable reference.
type BodyState struct {
	Geometry *BodyGeometry
	State    MotionState
	Mass     float64
	Span     float64
	Height   float64
}

// NewBodyState builds the container from a geometry and body parameters,
// at rest at the initial position.
func NewBodyState(geo *BodyGeometry, cfg BodyConfig, initial Vec3) *BodyState {
	return &BodyState{
		Geometry: geo,
		State:    NewMotionState(initial),
		Mass:     cfg.Mass,
		Span:     cfg.Span,
		Height:   cfg.Height,
	}
}

// CenterOfMass returns the world position of the body's centre of mass,
// which coincides with the local-frame origin.
func (b *BodyState) CenterOfMass() Vec3 {
	return b.State.Position
}

// ToWorld transforms a local-frame point to world coordinates.
func (b *BodyState) ToWorld(local Vec3) Vec3 {
	return b.State.Position.Add(b.State.Orientation.Rotate(local))
}

// ToWorldDirection rotates a local-frame direction into the world frame
// without translating it.
func (b *BodyState) ToWorldDirection(local Vec3) Vec3 {
	return b.State.Orientation.Rotate(local)
}

// GlobalPoint returns the world position of a named geometry point.
func (b *BodyState) GlobalPoint(name string) (Vec3, error) {
	local, err := b.Geometry.Point(name)
	if err != nil {
		return Vec3{}, err
	}
	return b.ToWorld(local), nil
}

// GlobalPanelNormal returns the world-frame outward normal of panel i.
func (b *BodyState) GlobalPanelNormal(i int) (Vec3, error) {
	p, err := b.Geometry.PanelAt(i)
	if err != nil {
		return Vec3{}, err
	}
	return b.ToWorldDirection(p.Normal), nil
}

// GlobalPanelCentroid returns the world position of panel i's centroid.
func (b *BodyState) GlobalPanelCentroid(i int) (Vec3, error) {
	p, err := b.Geometry.PanelAt(i)
	if err != nil {
		return Vec3{}, err
	}
	return b.ToWorld(p.Centroid), nil
}

// PointVelocity returns the rigid-body velocity of a world-frame point on
// the body, including the rotational contribution ω×r.
func (b *BodyState) PointVelocity(world Vec3) Vec3 {
	r := world.Sub(b.State.Position)
	return b.State.Velocity.Add(b.State.AngularVelocity.Cross(r))
}

// LowestPoint scans all structural geometry points and returns the name,
// world position, and altitude of the lowest one. Ground contact uses
// this rather than the centre of mass so a wingtip touching down is
// detected.
func (b *BodyState) LowestPoint() (string, Vec3, float64) {
	lowestName := ""
	var lowest Vec3
	first := true
	for name, local := range b.Geometry.points {
		world := b.ToWorld(local)
		if first || world.Y < lowest.Y {
			lowestName = name
			lowest = world
			first = false
		}
	}
	return lowestName, lowest, lowest.Y
}
