package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPointNotFound indicates a named geometry point does not exist.
	ErrPointNotFound = errors.New("geometry point not found")
	// ErrPanelOutOfRange indicates a panel index outside the panel list.
	ErrPanelOutOfRange = errors.New("panel index out of range")
	// ErrDegenerateGeometry indicates point placements the derived
	// quantities cannot be computed from (coincident or collinear
	// sphere centres, zero-area panels).
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Side identifies one of the two line sides.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Well-known point names of the delta-kite layout. The local frame has X
// along the span (left negative), Y up, and Z pointing from the sail
// toward the pilot; wingtips are swept back to -Z by the depth parameter.
const (
	PointNose         = "nose"
	PointTail         = "tail"
	PointSpine        = "spine"
	PointTipLeft      = "tip_left"
	PointTipRight     = "tip_right"
	PointAttachLeft   = "attach_left"
	PointAttachRight  = "attach_right"
	PointAttachCenter = "attach_center"
	PointControlLeft  = "control_left"
	PointControlRight = "control_right"
)

// Panel is a flat sail element derived from an ordered point tuple. The
// winding of the tuple determines the outward normal.
type Panel struct {
	PointNames []string
	Normal     Vec3
	Area       float64
	Centroid   Vec3
}

// BodyGeometry is the static point/panel layout of the kite in its local
// frame. Structural points, connections, and panels are immutable after
// construction. The two nominal control points are derived once by
// trilateration and kept separately from the per-step resolved positions,
// which live on the line model.
type BodyGeometry struct {
	points      map[string]Vec3
	connections [][2]string
	panels      []Panel

	nominalControl map[Side]Vec3
}

// NewDeltaKite builds the standard four-panel delta kite layout from the
// body parameters and solves the one-time trilateration for the two
// nominal control points.
func NewDeltaKite(cfg BodyConfig) (*BodyGeometry, error) {
	s, h, d := cfg.Span, cfg.Height, cfg.Depth
	if s <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: span and height must be positive", ErrDegenerateGeometry)
	}

	points := map[string]Vec3{
		PointNose:         {X: 0, Y: h / 2, Z: 0},
		PointTail:         {X: 0, Y: -h / 2, Z: 0},
		PointSpine:        {X: 0, Y: 0, Z: 0},
		PointTipLeft:      {X: -s / 2, Y: -h / 2, Z: -d},
		PointTipRight:     {X: s / 2, Y: -h / 2, Z: -d},
		PointAttachLeft:   {X: -s * 0.25, Y: -h * 0.1, Z: -d / 2},
		PointAttachRight:  {X: s * 0.25, Y: -h * 0.1, Z: -d / 2},
		PointAttachCenter: {X: 0, Y: -h * 0.25, Z: 0},
	}

	connections := [][2]string{
		{PointNose, PointTipLeft},
		{PointNose, PointTipRight},
		{PointTipLeft, PointTail},
		{PointTipRight, PointTail},
		{PointNose, PointTail},
		{PointSpine, PointTipLeft},
		{PointSpine, PointTipRight},
	}

	// Winding chosen so panel normals point to +Z, the side facing the
	// pilot and, in level flight, the wind.
	panelNames := [][]string{
		{PointNose, PointTipLeft, PointSpine},
		{PointSpine, PointTipLeft, PointTail},
		{PointNose, PointSpine, PointTipRight},
		{PointSpine, PointTail, PointTipRight},
	}

	g := &BodyGeometry{
		points:         points,
		connections:    connections,
		nominalControl: make(map[Side]Vec3, 2),
	}

	for _, names := range panelNames {
		p, err := g.buildPanel(names)
		if err != nil {
			return nil, err
		}
		g.panels = append(g.panels, p)
	}

	for _, side := range []Side{SideLeft, SideRight} {
		attach := g.BridleAttachments(side)
		a, _ := g.Point(attach[0])
		b, _ := g.Point(attach[1])
		c, _ := g.Point(attach[2])
		front, back, err := Trilaterate(a, b, c,
			cfg.BridleNose, cfg.BridleIntermediate, cfg.BridleCenter)
		if err != nil {
			return nil, fmt.Errorf("solve %s control point: %w", side, err)
		}
		// The control point hangs on the pilot side of the sail.
		pick := front
		if back.Z > front.Z {
			pick = back
		}
		g.nominalControl[side] = pick
	}

	return g, nil
}

// BridleAttachments returns the three attachment point names for a side in
// nose, intermediate, center order.
func (g *BodyGeometry) BridleAttachments(side Side) [3]string {
	if side == SideLeft {
		return [3]string{PointNose, PointAttachLeft, PointAttachCenter}
	}
	return [3]string{PointNose, PointAttachRight, PointAttachCenter}
}

// ControlPointName returns the control point name for a side.
func (g *BodyGeometry) ControlPointName(side Side) string {
	if side == SideLeft {
		return PointControlLeft
	}
	return PointControlRight
}

// Point returns the local-frame position of a named point, including the
// two nominal control points.
func (g *BodyGeometry) Point(name string) (Vec3, error) {
	if p, ok := g.points[name]; ok {
		return p, nil
	}
	switch name {
	case PointControlLeft:
		return g.nominalControl[SideLeft], nil
	case PointControlRight:
		return g.nominalControl[SideRight], nil
	}
	return Vec3{}, fmt.Errorf("%w: %q", ErrPointNotFound, name)
}

// NominalControlPoint returns the trilaterated local-frame control point
// for a side. It is never overwritten at runtime; per-step resolved
// positions are tracked by the line model.
func (g *BodyGeometry) NominalControlPoint(side Side) Vec3 {
	return g.nominalControl[side]
}

// PointNames returns the structural point names (control points excluded).
func (g *BodyGeometry) PointNames() []string {
	names := make([]string, 0, len(g.points))
	for name := range g.points {
		names = append(names, name)
	}
	return names
}

// Connections returns the visual-only structural connections.
func (g *BodyGeometry) Connections() [][2]string {
	return g.connections
}

// PanelCount returns the number of panels.
func (g *BodyGeometry) PanelCount() int {
	return len(g.panels)
}

// PanelAt returns the derived panel data for index i.
func (g *BodyGeometry) PanelAt(i int) (Panel, error) {
	if i < 0 || i >= len(g.panels) {
		return Panel{}, fmt.Errorf("%w: %d", ErrPanelOutOfRange, i)
	}
	return g.panels[i], nil
}

// TotalPanelArea returns the summed area of all panels.
func (g *BodyGeometry) TotalPanelArea() float64 {
	var total float64
	for _, p := range g.panels {
		total += p.Area
	}
	return total
}

// buildPanel derives normal, area, and centroid from an ordered point
// tuple using Newell's method, which also handles slightly non-planar
// quads gracefully.
func (g *BodyGeometry) buildPanel(names []string) (Panel, error) {
	if len(names) < 3 {
		return Panel{}, fmt.Errorf("%w: panel needs at least 3 points", ErrDegenerateGeometry)
	}
	pts := make([]Vec3, len(names))
	for i, name := range names {
		p, err := g.Point(name)
		if err != nil {
			return Panel{}, err
		}
		pts[i] = p
	}

	var newell, centroid Vec3
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		newell = newell.Add(Vec3{
			X: (a.Y - b.Y) * (a.Z + b.Z),
			Y: (a.Z - b.Z) * (a.X + b.X),
			Z: (a.X - b.X) * (a.Y + b.Y),
		})
		centroid = centroid.Add(a)
	}
	area := newell.Norm() / 2
	if area == 0 {
		return Panel{}, fmt.Errorf("%w: zero-area panel %v", ErrDegenerateGeometry, names)
	}

	return Panel{
		PointNames: names,
		Normal:     newell.Normalized(),
		Area:       area,
		Centroid:   centroid.Scale(1 / float64(len(pts))),
	}, nil
}

// Trilaterate finds the two intersection points of three spheres given by
// centres p1,p2,p3 and radii r1,r2,r3. When the spheres only nearly touch,
// the separation term is clamped to zero and both returned points collapse
// onto the trilateration plane. Degenerate centre placement (coincident or
// collinear) is an error.
func Trilaterate(p1, p2, p3 Vec3, r1, r2, r3 float64) (Vec3, Vec3, error) {
	ex := p2.Sub(p1)
	d := ex.Norm()
	if d < 1e-9 {
		return Vec3{}, Vec3{}, fmt.Errorf("%w: coincident sphere centres", ErrDegenerateGeometry)
	}
	ex = ex.Scale(1 / d)

	p31 := p3.Sub(p1)
	i := ex.Dot(p31)
	eyRaw := p31.Sub(ex.Scale(i))
	j := eyRaw.Norm()
	if j < 1e-9 {
		return Vec3{}, Vec3{}, fmt.Errorf("%w: collinear sphere centres", ErrDegenerateGeometry)
	}
	ey := eyRaw.Scale(1 / j)
	ez := ex.Cross(ey)

	x := (r1*r1 - r2*r2 + d*d) / (2 * d)
	y := (r1*r1-r3*r3+i*i+j*j)/(2*j) - (i/j)*x

	z2 := r1*r1 - x*x - y*y
	if z2 < 0 {
		// Spheres do not quite meet; project onto the plane.
		z2 = 0
	}
	z := math.Sqrt(z2)

	base := p1.Add(ex.Scale(x)).Add(ey.Scale(y))
	return base.Add(ez.Scale(z)), base.Sub(ez.Scale(z)), nil
}
