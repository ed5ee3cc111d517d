// Package math provides the vector, matrix and quaternion types used by the
// kinematics packages. All values are float64; vectors are backed by gonum's
// r3 package so they interoperate with its rotations and boxes.
package math

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3D vector.
type Vec3 struct {
	r3.Vec
}

// V3 returns the vector (x, y, z).
func V3(x, y, z float64) Vec3 {
	return Vec3{Vec: r3.Vec{X: x, Y: y, Z: z}}
}

// Unit axes.
var (
	AxisX = V3(1, 0, 0)
	AxisY = V3(0, 1, 0)
	AxisZ = V3(0, 0, 1)
)

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{r3.Add(v.Vec, other.Vec)}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{r3.Sub(v.Vec, other.Vec)}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{r3.Scale(s, v.Vec)}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float64 {
	return r3.Dot(v.Vec, other.Vec)
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{r3.Cross(v.Vec, other.Vec)}
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return r3.Norm(v.Vec)
}

// LengthSq returns the squared magnitude.
func (v Vec3) LengthSq() float64 {
	return r3.Norm2(v.Vec)
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	if v.LengthSq() == 0 {
		return Vec3{}
	}
	return Vec3{r3.Unit(v.Vec)}
}

// Unit returns the unit vector of v and true, or the zero vector and false
// when the length of v is not above minLength.
func (v Vec3) Unit(minLength float64) (Vec3, bool) {
	l := v.Length()
	if !(l > minLength) {
		return Vec3{}, false
	}
	return v.Scale(1 / l), true
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float64 {
	return v.Sub(other).Length()
}

// DistanceSq returns the squared distance to another point.
func (v Vec3) DistanceSq(other Vec3) float64 {
	return v.Sub(other).LengthSq()
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v.Array() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Axis returns component i (0 = X, 1 = Y, 2 = Z).
func (v Vec3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic("math: axis index out of range")
}

// WithAxis returns a copy of v with component i replaced.
func (v Vec3) WithAxis(i int, value float64) Vec3 {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	default:
		panic("math: axis index out of range")
	}
	return v
}

// Array returns the components as an array.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Vec3FromArray builds a Vec3 from an array.
func Vec3FromArray(a [3]float64) Vec3 {
	return V3(a[0], a[1], a[2])
}
