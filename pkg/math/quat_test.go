package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	if math.Abs(n.Length()-1.0) > 1e-12 {
		t.Errorf("Normalized quaternion length should be 1, got %v", n.Length())
	}
}

func TestQuatNormalizeZero(t *testing.T) {
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("Normalize of zero quaternion should be identity, got %v", got)
	}
}

func TestQuatToMat4(t *testing.T) {
	// Identity quaternion should produce identity matrix
	m := QuatIdentity().ToMat4()

	if !m.ApproxEqual(Identity(), 1e-15) {
		t.Errorf("Identity quat should produce identity matrix, got %v", m)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Y axis
	q := QuatFromAxisAngle(V3(0, 1, 0), math.Pi/2)

	// Should have Y component and W = cos(45deg)
	expectedW := math.Cos(math.Pi / 4)
	expectedY := math.Sin(math.Pi / 4)

	if math.Abs(q.W-expectedW) > 1e-12 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(q.Y-expectedY) > 1e-12 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatFromAxisAngleUnnormalizedAxis(t *testing.T) {
	a := QuatFromAxisAngle(V3(0, 0, 5), 0.8)
	b := QuatFromAxisAngle(AxisZ, 0.8)

	if math.Abs(a.Z-b.Z) > 1e-12 || math.Abs(a.W-b.W) > 1e-12 {
		t.Errorf("axis length should not matter: %v vs %v", a, b)
	}
}

func TestQuatFromAxisAngleZeroAxis(t *testing.T) {
	if got := QuatFromAxisAngle(Vec3{}, 1); got != QuatIdentity() {
		t.Errorf("zero axis should yield identity, got %v", got)
	}
}

func TestQuatMatchesRotateAxis(t *testing.T) {
	axis := V3(-1, 2, 0.5).Normalize()
	for _, angle := range []float64{-2, -0.4, 0.1, 1.3, 3} {
		got := QuatFromAxisAngle(axis, angle).ToMat4()
		want := RotateAxis(axis, angle)
		if !got.ApproxEqual(want, 1e-12) {
			t.Errorf("angle %v: quat matrix %v, want %v", angle, got, want)
		}
	}
}

func TestQuatRotateMatchesMatrix(t *testing.T) {
	q := QuatFromAxisAngle(V3(1, 1, 0), 0.9)
	v := V3(0.3, -2, 1)

	got := q.Rotate(v)
	want := q.ToMat4().TransformDirection(v)
	if !near(got, want, 1e-12) {
		t.Errorf("Rotate: got %v, want %v", got, want)
	}
}

func TestQuatMul(t *testing.T) {
	// Two quarter turns around Z make a half turn.
	q := QuatFromAxisAngle(AxisZ, math.Pi/2)
	half := q.Mul(q)

	got := half.Rotate(AxisX)
	if !near(got, V3(-1, 0, 0), 1e-12) {
		t.Errorf("two quarter turns: got %v, want (-1, 0, 0)", got)
	}

	back := half.Mul(half.Conjugate())
	if math.Abs(back.W-1) > 1e-12 {
		t.Errorf("q * conj(q) should be identity, got %v", back)
	}
}
