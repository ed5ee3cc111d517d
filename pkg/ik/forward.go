package ik

import "github.com/Faultbox/boneik/pkg/math"

// RootCorrection orients the whole chain: segments extend along local +Z,
// and the -90 degree turn about world X makes the rest pose point up (+Y).
var RootCorrection = math.RotateX(math.Radians(-90))

// localRotation builds the rotation of a segment: X first, then Y about the
// already rotated frame, then Z about the twice rotated frame.
func localRotation(s *Segment) math.Mat4 {
	r := math.RadiansVec(s.Rotation)
	return math.RotateEulerXYZ(r.X, r.Y, r.Z)
}

// baseTransform returns the frame a segment's own rotation is applied in:
// the parent's transform moved to the parent's tip, or RootCorrection for
// the root. Its origin is the segment's pivot.
func (c *Chain) baseTransform(i int) math.Mat4 {
	s := &c.segments[i]
	if s.parent == NoParent {
		return RootCorrection
	}
	parent := &c.segments[s.parent]
	return c.Transform(s.parent).Mul(math.Translate(0, 0, parent.Length))
}

// Transform returns the world transform of segment i's pivot. It reads the
// current rotations and never modifies the chain.
func (c *Chain) Transform(i int) math.Mat4 {
	path := c.Path(i)

	m := RootCorrection
	for k := len(path) - 1; k >= 0; k-- {
		s := &c.segments[path[k]]
		if s.parent != NoParent {
			m = m.Mul(math.Translate(0, 0, c.segments[s.parent].Length))
		}
		m = m.Mul(localRotation(s))
	}
	return m
}

// Pivot returns the world position of segment i's pivot.
func (c *Chain) Pivot(i int) math.Vec3 {
	return c.Transform(i).Origin()
}

// Tip returns the world position of segment i's far end.
func (c *Chain) Tip(i int) math.Vec3 {
	return TipPoint(c.Transform(i), c.segments[i].Length)
}

// TipPoint returns the point length units along the local +Z axis of m.
func TipPoint(m math.Mat4, length float64) math.Vec3 {
	return m.TransformPoint(math.V3(0, 0, length))
}

// Forward computes the world transform of every segment in one pass and
// stores it in buf[i]. buf is reused when it has room for Len() entries;
// the filled slice is returned.
func (c *Chain) Forward(buf []math.Mat4) []math.Mat4 {
	n := len(c.segments)
	if cap(buf) < n {
		buf = make([]math.Mat4, n)
	}
	buf = buf[:n]

	for i := range c.segments {
		s := &c.segments[i]
		if s.parent == NoParent {
			buf[i] = RootCorrection.Mul(localRotation(s))
			continue
		}
		// Parents precede children, so buf[s.parent] is already final.
		base := buf[s.parent].Mul(math.Translate(0, 0, c.segments[s.parent].Length))
		buf[i] = base.Mul(localRotation(s))
	}
	return buf
}
