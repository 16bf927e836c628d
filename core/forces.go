package core

// ForceKind is the closed set of force contributions acting on the body.
// The engine dispatches each kind explicitly; there is deliberately no
// open-ended calculator registry.
type ForceKind int

const (
	ForceAerodynamic ForceKind = iota
	ForceGravity
	ForceLine
)

func (k ForceKind) String() string {
	switch k {
	case ForceAerodynamic:
		return "aerodynamic"
	case ForceGravity:
		return "gravity"
	case ForceLine:
		return "line"
	default:
		return "unknown"
	}
}

// ForceBundle is the engine's per-step scratch/report of every force and
// torque contribution. It is rebuilt from scratch on each step and is not
// part of the physical state.
type ForceBundle struct {
	Aerodynamic Vec3 `json:"aerodynamic"`
	Gravity     Vec3 `json:"gravity"`
	Line        Vec3 `json:"line"`
	LineLeft    Vec3 `json:"line_left"`
	LineRight   Vec3 `json:"line_right"`
	Total       Vec3 `json:"total"`
	Torque      Vec3 `json:"torque"`
}
