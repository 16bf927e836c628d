package core

// GravityForceCalculator applies gravity with the body mass distributed
// across panels in proportion to panel area. The distribution is what
// produces pitch/roll coupling from a tilted body instead of the flat
// response of a point mass.
type GravityForceCalculator struct {
	g           float64
	totalMass   float64
	panelMasses []float64
}

// NewGravityForceCalculator distributes the body mass over the geometry's
// panels at construction time.
func NewGravityForceCalculator(g float64, mass float64, geo *BodyGeometry) *GravityForceCalculator {
	calc := &GravityForceCalculator{
		g:           g,
		totalMass:   mass,
		panelMasses: make([]float64, geo.PanelCount()),
	}
	totalArea := geo.TotalPanelArea()
	for i := 0; i < geo.PanelCount(); i++ {
		p, err := geo.PanelAt(i)
		if err != nil {
			continue
		}
		if totalArea > 0 {
			calc.panelMasses[i] = mass * p.Area / totalArea
		}
	}
	return calc
}

// Compute returns the total gravitational force.
func (c *GravityForceCalculator) Compute() Vec3 {
	return Vec3{Y: -c.totalMass * c.g}
}

// ComputeTorque sums per-panel gravity torque about the centre of mass.
func (c *GravityForceCalculator) ComputeTorque(body *BodyState) Vec3 {
	com := body.CenterOfMass()
	var torque Vec3
	for i, m := range c.panelMasses {
		centroid, err := body.GlobalPanelCentroid(i)
		if err != nil {
			continue
		}
		lever := centroid.Sub(com)
		torque = torque.Add(lever.Cross(Vec3{Y: -m * c.g}))
	}
	return torque
}
