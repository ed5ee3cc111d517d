package ik

import (
	gomath "math"

	"github.com/Faultbox/boneik/pkg/math"
)

// DegreeEpsilon is how far inside a limit a clamped angle is placed.
const DegreeEpsilon = 0.1

// ClampDelta corrects a proposed rotation delta for one axis whose current
// angle is current, all in degrees.
//
// The delta is first folded by whole turns until current+delta lies in
// [-180, 180]. If the result then exceeds max it is pulled back to
// max-DegreeEpsilon, and below min to min+DegreeEpsilon. Axes are clamped
// independently; this is a box constraint, not a cone.
//
// A non-finite delta yields 0.
func ClampDelta(delta, current, min, max float64) float64 {
	if gomath.IsNaN(delta) || gomath.IsInf(delta, 0) {
		return 0
	}

	if delta+current > 180 {
		delta -= 360
	}
	if delta+current < -180 {
		delta += 360
	}
	if sum := delta + current; sum > 180 || sum < -180 {
		// More than one and a half turns away.
		delta -= 360 * gomath.Floor((sum+180)/360)
	}

	if delta+current > max {
		delta = max - current - DegreeEpsilon
	}
	if delta+current < min {
		delta = min - current + DegreeEpsilon
	}
	return delta
}

// ApplyDelta clamps delta against segment i's limits axis by axis, adds it
// to the stored rotation, folds the result into (-360, 360) and returns the
// change actually applied.
func (c *Chain) ApplyDelta(i int, delta math.Vec3) math.Vec3 {
	s := &c.segments[i]

	before := s.Rotation
	r := before
	for axis := 0; axis < 3; axis++ {
		cur := r.Axis(axis)
		d := ClampDelta(delta.Axis(axis), cur, s.Limits.Min.Axis(axis), s.Limits.Max.Axis(axis))
		r = r.WithAxis(axis, cur+d)
	}
	s.Rotation = wrapRotation(r)

	return s.Rotation.Sub(before)
}
