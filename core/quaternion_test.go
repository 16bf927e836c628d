package core

import (
	"math"
	"testing"
)

func TestQuatFromAxisAngle_RotatesVector(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	got := q.Rotate(Vec3{X: 1})

	want := Vec3{Y: 1}
	if got.DistanceTo(want) > 1e-12 {
		t.Fatalf("rotating X about Z by 90°: got %+v, want %+v", got, want)
	}
}

func TestQuat_AxisAngleRoundTrip(t *testing.T) {
	axis := Vec3{X: 1, Y: 2, Z: -0.5}.Normalized()
	angle := 0.7

	gotAxis, gotAngle := QuatFromAxisAngle(axis, angle).AxisAngle()
	if math.Abs(gotAngle-angle) > 1e-12 {
		t.Fatalf("angle = %g, want %g", gotAngle, angle)
	}
	if gotAxis.DistanceTo(axis) > 1e-12 {
		t.Fatalf("axis = %+v, want %+v", gotAxis, axis)
	}
}

func TestQuat_AxisAngleIdentity(t *testing.T) {
	axis, angle := IdentityQuat().AxisAngle()
	if angle != 0 || axis != (Vec3{}) {
		t.Fatalf("identity should have zero axis/angle, got %+v / %g", axis, angle)
	}
}

func TestQuat_MulComposesRotations(t *testing.T) {
	qz := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	qx := QuatFromAxisAngle(Vec3{X: 1}, math.Pi/2)

	v := Vec3{X: 1}
	sequential := qx.Rotate(qz.Rotate(v))
	composed := qx.Mul(qz).Rotate(v)

	if sequential.DistanceTo(composed) > 1e-12 {
		t.Fatalf("composition mismatch: sequential %+v, composed %+v", sequential, composed)
	}
}

func TestQuat_NormalizedRecoversUnitNorm(t *testing.T) {
	q := Quat{W: 3, X: 1, Y: -2, Z: 0.5}.Normalized()
	if math.Abs(q.Norm()-1) > 1e-12 {
		t.Fatalf("norm = %g, want 1", q.Norm())
	}
}
