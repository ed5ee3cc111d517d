package math

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion rotating by angle radians around
// axis. The axis does not need to be normalized; a zero axis yields the
// identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	if axis.LengthSq() == 0 {
		return QuatIdentity()
	}
	return quatFromNumber(quat.Number(r3.NewRotation(angle, axis.Vec)))
}

func quatFromNumber(n quat.Number) Quat {
	return Quat{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

func (q Quat) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Length returns the quaternion norm.
func (q Quat) Length() float64 {
	return quat.Abs(q.number())
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length < 1e-12 {
		return QuatIdentity()
	}
	return quatFromNumber(quat.Scale(1/length, q.number()))
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return quatFromNumber(quat.Conj(q.number()))
}

// Mul multiplies two quaternions (combines rotations, other applied first).
func (q Quat) Mul(other Quat) Quat {
	return quatFromNumber(quat.Mul(q.number(), other.number()))
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	return Vec3{r3.Rotation(q.Normalize().number()).Rotate(v.Vec)}
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	// Normalize first
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
