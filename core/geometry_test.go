package core

import (
	"errors"
	"math"
	"testing"
)

func TestTrilaterate_RecoversKnownPoint(t *testing.T) {
	c1 := Vec3{X: 0, Y: 0, Z: 0}
	c2 := Vec3{X: 1, Y: 0, Z: 0}
	c3 := Vec3{X: 0, Y: 1, Z: 0}
	want := Vec3{X: 0.3, Y: 0.4, Z: 0.7}

	front, back, err := Trilaterate(c1, c2, c3,
		want.DistanceTo(c1), want.DistanceTo(c2), want.DistanceTo(c3))
	if err != nil {
		t.Fatalf("Trilaterate: %v", err)
	}

	hit := front
	if back.DistanceTo(want) < front.DistanceTo(want) {
		hit = back
	}
	if d := hit.DistanceTo(want); d > 1e-9 {
		t.Fatalf("neither solution recovers the known point, closest is %.3g m away", d)
	}
}

func TestTrilaterate_DegenerateCentres(t *testing.T) {
	p := Vec3{X: 1, Y: 2, Z: 3}
	if _, _, err := Trilaterate(p, p, Vec3{X: 4}, 1, 1, 1); !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("coincident centres: got %v, want ErrDegenerateGeometry", err)
	}
	// Collinear centres along X.
	if _, _, err := Trilaterate(Vec3{}, Vec3{X: 1}, Vec3{X: 2}, 1, 1, 1); !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("collinear centres: got %v, want ErrDegenerateGeometry", err)
	}
}

func TestNewDeltaKite_ControlPointsSatisfyBridleLengths(t *testing.T) {
	cfg := DefaultSimConfig().Body
	geo, err := NewDeltaKite(cfg)
	if err != nil {
		t.Fatalf("NewDeltaKite: %v", err)
	}

	lengths := [3]float64{cfg.BridleNose, cfg.BridleIntermediate, cfg.BridleCenter}
	for _, side := range []Side{SideLeft, SideRight} {
		ctrl := geo.NominalControlPoint(side)
		for i, name := range geo.BridleAttachments(side) {
			attach, err := geo.Point(name)
			if err != nil {
				t.Fatalf("Point(%q): %v", name, err)
			}
			if d := ctrl.DistanceTo(attach); math.Abs(d-lengths[i]) > 1e-9 {
				t.Errorf("%s bridle %d: distance %.6f, want %.6f", side, i, d, lengths[i])
			}
		}
		if ctrl.Z <= 0 {
			t.Errorf("%s control point should sit on the pilot side (+Z), got %+v", side, ctrl)
		}
	}
}

func TestNewDeltaKite_ControlPointsMirror(t *testing.T) {
	geo, err := NewDeltaKite(DefaultSimConfig().Body)
	if err != nil {
		t.Fatalf("NewDeltaKite: %v", err)
	}
	left := geo.NominalControlPoint(SideLeft)
	right := geo.NominalControlPoint(SideRight)

	if math.Abs(left.X+right.X) > 1e-9 || math.Abs(left.Y-right.Y) > 1e-9 || math.Abs(left.Z-right.Z) > 1e-9 {
		t.Fatalf("control points are not mirror images: left %+v right %+v", left, right)
	}
}

func TestNewDeltaKite_PanelsFaceForward(t *testing.T) {
	geo, err := NewDeltaKite(DefaultSimConfig().Body)
	if err != nil {
		t.Fatalf("NewDeltaKite: %v", err)
	}
	if geo.PanelCount() != 4 {
		t.Fatalf("panel count = %d, want 4", geo.PanelCount())
	}
	for i := 0; i < geo.PanelCount(); i++ {
		p, err := geo.PanelAt(i)
		if err != nil {
			t.Fatalf("PanelAt(%d): %v", i, err)
		}
		if p.Normal.Z <= 0 {
			t.Errorf("panel %d normal should point to +Z, got %+v", i, p.Normal)
		}
		if p.Area <= 0 {
			t.Errorf("panel %d area = %g, want positive", i, p.Area)
		}
		if n := p.Normal.Norm(); math.Abs(n-1) > 1e-12 {
			t.Errorf("panel %d normal not unit length: %g", i, n)
		}
	}
}

func TestBodyGeometry_PointNotFound(t *testing.T) {
	geo, err := NewDeltaKite(DefaultSimConfig().Body)
	if err != nil {
		t.Fatalf("NewDeltaKite: %v", err)
	}
	if _, err := geo.Point("no_such_point"); !errors.Is(err, ErrPointNotFound) {
		t.Fatalf("got %v, want ErrPointNotFound", err)
	}
	if _, err := geo.PanelAt(99); !errors.Is(err, ErrPanelOutOfRange) {
		t.Fatalf("got %v, want ErrPanelOutOfRange", err)
	}
}

func TestBodyState_LowestPoint(t *testing.T) {
	cfg := DefaultSimConfig()
	geo, err := NewDeltaKite(cfg.Body)
	if err != nil {
		t.Fatalf("NewDeltaKite: %v", err)
	}
	body := NewBodyState(geo, cfg.Body, Vec3{Y: 5})

	name, world, alt := body.LowestPoint()
	// With identity orientation the lowest structural points are the
	// tail and the two tips, all at local Y = -height/2.
	if math.Abs(alt-(5-cfg.Body.Height/2)) > 1e-9 {
		t.Fatalf("lowest altitude = %g, want %g (point %q at %+v)",
			alt, 5-cfg.Body.Height/2, name, world)
	}
}
