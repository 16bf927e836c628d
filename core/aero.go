package core

import "math"

// PanelAero is the per-panel aerodynamic result, retained for external
// visualization. Only the summed force and torque feed the integrator.
type PanelAero struct {
	Lift          Vec3    `json:"lift"`
	Drag          Vec3    `json:"drag"`
	AngleOfAttack float64 `json:"angle_of_attack"`
}

// AeroResult is the output of one aerodynamic evaluation.
type AeroResult struct {
	Force        Vec3        `json:"force"`
	Torque       Vec3        `json:"torque"`
	PerPanel     []PanelAero `json:"per_panel"`
	ApparentWind Vec3        `json:"apparent_wind"`
	// AngleOfAttack is the area-weighted mean over all panels (radians).
	AngleOfAttack float64 `json:"angle_of_attack"`
}

// AeroForceCalculator accumulates lift and drag over the body's flat
// panels. It is a pure function of state and wind; all scratch values are
// locals.
type AeroForceCalculator struct {
	cfg AeroConfig
}

// NewAeroForceCalculator builds a calculator with the given tuning.
func NewAeroForceCalculator(cfg AeroConfig) *AeroForceCalculator {
	return &AeroForceCalculator{cfg: cfg}
}

// Compute evaluates per-panel lift and drag for the current state against
// the ambient wind, plus the net torque about the centre of mass. Below
// the minimum apparent wind speed the result is all zeros.
func (a *AeroForceCalculator) Compute(body *BodyState, wind WindState) AeroResult {
	apparent := wind.Velocity.Sub(body.State.Velocity)
	speed := apparent.Norm()

	res := AeroResult{
		ApparentWind: apparent,
		PerPanel:     make([]PanelAero, body.Geometry.PanelCount()),
	}
	if speed < a.cfg.MinApparentWind {
		return res
	}

	windDir := apparent.Scale(1 / speed)
	q := 0.5 * a.cfg.AirDensity * speed * speed
	com := body.CenterOfMass()

	var weightedAoA, totalArea float64
	for i := 0; i < body.Geometry.PanelCount(); i++ {
		panel, err := body.Geometry.PanelAt(i)
		if err != nil {
			continue
		}
		normal := body.ToWorldDirection(panel.Normal)

		sinAlpha := normal.Dot(windDir)
		alpha := math.Asin(clampUnit(math.Abs(sinAlpha)))

		cl := a.liftCoefficient(alpha)
		cd := a.cfg.DragBase + a.cfg.DragQuad*alpha*alpha

		// Lift acts along the component of the panel normal
		// perpendicular to the apparent wind (double cross product);
		// drag acts downwind.
		liftDir := windDir.Cross(normal.Cross(windDir))
		if sinAlpha > 0 {
			// Normal points downwind; the loaded face is -normal.
			liftDir = liftDir.Scale(-1)
		}
		liftDir = liftDir.Normalized()

		lift := liftDir.Scale(q * panel.Area * cl)
		drag := windDir.Scale(q * panel.Area * cd)

		res.PerPanel[i] = PanelAero{Lift: lift, Drag: drag, AngleOfAttack: alpha}

		panelForce := lift.Add(drag)
		res.Force = res.Force.Add(panelForce)

		lever := body.ToWorld(panel.Centroid).Sub(com)
		res.Torque = res.Torque.Add(lever.Cross(panelForce))

		weightedAoA += alpha * panel.Area
		totalArea += panel.Area
	}
	if totalArea > 0 {
		res.AngleOfAttack = weightedAoA / totalArea
	}
	return res
}

// liftCoefficient is the piecewise lift curve: linear to LiftRef at 15°,
// interpolating down to the flat post-stall value past 25°.
func (a *AeroForceCalculator) liftCoefficient(alpha float64) float64 {
	const (
		alphaRef   = 15 * math.Pi / 180
		alphaStall = 25 * math.Pi / 180
	)
	switch {
	case alpha <= alphaRef:
		return a.cfg.LiftRef * alpha / alphaRef
	case alpha >= alphaStall:
		return a.cfg.LiftStall
	default:
		t := (alpha - alphaRef) / (alphaStall - alphaRef)
		return a.cfg.LiftRef + t*(a.cfg.LiftStall-a.cfg.LiftRef)
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
