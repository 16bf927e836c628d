package core

import "math"

// Quat is a unit quaternion representing the body's orientation. W is the
// scalar component.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IdentityQuat returns the no-rotation quaternion.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle builds a rotation of angle radians about axis. The
// axis need not be normalized; a zero axis yields the identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	u := axis.Normalized()
	if u == (Vec3{}) {
		return IdentityQuat()
	}
	half := angle / 2
	s := math.Sin(half)
	return Quat{
		W: math.Cos(half),
		X: u.X * s,
		Y: u.Y * s,
		Z: u.Z * s,
	}
}

// Mul returns the Hamilton product q·o, the rotation o followed by q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Conjugate returns the inverse rotation for a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Norm returns the quaternion's Euclidean norm.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns the unit quaternion along q, or the identity when q
// is (near-)zero.
func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuat()
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Rotate applies the rotation to v using the expanded sandwich product,
// valid for unit quaternions.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	uv := u.Cross(v)
	return v.Add(uv.Scale(2 * q.W)).Add(u.Cross(uv).Scale(2))
}

// AxisAngle decomposes the rotation into a unit axis and an angle in
// [0, pi]. The identity (and anything numerically indistinguishable from
// it) reports a zero axis and zero angle.
func (q Quat) AxisAngle() (Vec3, float64) {
	if q.W < 0 {
		q = Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	w := q.W
	if w > 1 {
		w = 1
	}
	s := math.Sqrt(1 - w*w)
	if s < 1e-12 {
		return Vec3{}, 0
	}
	angle := 2 * math.Acos(w)
	return Vec3{X: q.X / s, Y: q.Y / s, Z: q.Z / s}, angle
}

// IsFinite reports whether all components are finite numbers.
func (q Quat) IsFinite() bool {
	return isFinite(q.W) && isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z)
}
