package core

import "math"

// WindState is the ambient wind for one frame. Direction and Speed are
// derived from Velocity at construction so consumers never recompute
// them.
type WindState struct {
	Velocity   Vec3    `json:"velocity"`
	Direction  Vec3    `json:"direction"`
	Speed      float64 `json:"speed"`
	Turbulence float64 `json:"turbulence"`
}

// NewWindState builds a wind state from a velocity vector. Turbulence is
// clamped to [0, 1].
func NewWindState(velocity Vec3, turbulence float64) WindState {
	if turbulence < 0 {
		turbulence = 0
	}
	if turbulence > 1 {
		turbulence = 1
	}
	return WindState{
		Velocity:   velocity,
		Direction:  velocity.Normalized(),
		Speed:      velocity.Norm(),
		Turbulence: turbulence,
	}
}

// WindFromSpeedAndHeading builds a wind state from a speed in m/s and a
// heading in degrees. Heading 0 blows along -Z, from behind the pilot
// toward the kite; positive headings rotate clockwise seen from above.
func WindFromSpeedAndHeading(speed, headingDeg, turbulence float64) WindState {
	rad := headingDeg * math.Pi / 180
	v := Vec3{
		X: -speed * math.Sin(rad),
		Z: -speed * math.Cos(rad),
	}
	return NewWindState(v, turbulence)
}

// Gusted returns the wind modulated by a deterministic pseudo-gust at
// elapsed time t. Two incommensurate sinusoids scale the speed by up to
// ±80% of the turbulence factor; zero turbulence returns the wind
// unchanged.
func (w WindState) Gusted(t float64) WindState {
	if w.Turbulence == 0 {
		return w
	}
	gust := 0.5*math.Sin(2*math.Pi*0.11*t) + 0.3*math.Sin(2*math.Pi*0.43*t+1.7)
	factor := 1 + w.Turbulence*gust
	return NewWindState(w.Velocity.Scale(factor), w.Turbulence)
}
