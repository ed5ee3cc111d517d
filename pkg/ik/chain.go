// Package ik implements cyclic-coordinate-descent (CCD) inverse kinematics
// over chains of rigid segments.
//
// A Chain is an arena of segments addressed by index. Index 0 is the root;
// every other segment is appended below an existing parent, so parents always
// precede their children and a single pass in index order visits the tree
// top-down. Rotations are stored per segment as X/Y/Z angles in degrees.
package ik

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/boneik/pkg/math"
)

// NoParent is the parent index of the root segment.
const NoParent = -1

// Chain construction errors.
var (
	ErrInvalidLimits  = errors.New("invalid rotation limits")
	ErrNegativeLength = errors.New("negative segment length")
	ErrNoSuchSegment  = errors.New("no such segment")
	ErrNonFinite      = errors.New("non-finite value")
	ErrDuplicateName  = errors.New("duplicate segment name")
	ErrNotLeaf        = errors.New("segment has children")
)

// Limits bounds each rotation axis of a segment, in degrees.
type Limits struct {
	Min math.Vec3
	Max math.Vec3
}

// Unconstrained returns limits that admit every representable angle.
func Unconstrained() Limits {
	return Limits{
		Min: math.V3(-360, -360, -360),
		Max: math.V3(360, 360, 360),
	}
}

// Symmetric returns limits of [-deg, deg] on every axis.
func Symmetric(deg float64) Limits {
	return Limits{
		Min: math.V3(-deg, -deg, -deg),
		Max: math.V3(deg, deg, deg),
	}
}

// Validate checks that every axis satisfies -360 <= min <= max <= 360.
func (l Limits) Validate() error {
	if !l.Min.IsFinite() || !l.Max.IsFinite() {
		return fmt.Errorf("limits %v..%v: %w", l.Min, l.Max, ErrNonFinite)
	}
	for axis := 0; axis < 3; axis++ {
		lo, hi := l.Min.Axis(axis), l.Max.Axis(axis)
		if lo > hi {
			return fmt.Errorf("axis %c: min %g > max %g: %w", axisName(axis), lo, hi, ErrInvalidLimits)
		}
		if lo < -360 || hi > 360 {
			return fmt.Errorf("axis %c: [%g, %g] outside [-360, 360]: %w", axisName(axis), lo, hi, ErrInvalidLimits)
		}
	}
	return nil
}

func axisName(axis int) rune {
	return rune('x' + axis)
}

// Segment is one rigid bone of a chain.
type Segment struct {
	Name     string
	Length   float64
	Rotation math.Vec3 // Local X/Y/Z angles in degrees, each in (-360, 360)
	Limits   Limits

	parent   int
	children []int
}

// Parent returns the parent index, or NoParent for the root.
func (s Segment) Parent() int {
	return s.parent
}

// Children returns the indices of the direct children.
func (s Segment) Children() []int {
	return append([]int(nil), s.children...)
}

// IsRoot reports whether the segment has no parent.
func (s Segment) IsRoot() bool {
	return s.parent == NoParent
}

// SegmentOption configures a segment at construction time.
type SegmentOption func(*Segment)

// WithName names the segment. Non-empty names must be unique within a chain.
func WithName(name string) SegmentOption {
	return func(s *Segment) {
		s.Name = name
	}
}

// WithRotation sets the initial rotation in degrees.
func WithRotation(x, y, z float64) SegmentOption {
	return func(s *Segment) {
		s.Rotation = math.V3(x, y, z)
	}
}

// WithLimits sets the per-axis rotation limits.
func WithLimits(l Limits) SegmentOption {
	return func(s *Segment) {
		s.Limits = l
	}
}

// Chain is a tree of segments with a designated end effector.
// It is not safe for concurrent use.
type Chain struct {
	segments    []Segment
	names       map[string]int
	endEffector int
}

// NewChain creates a chain holding only a root segment of the given length.
func NewChain(rootLength float64, opts ...SegmentOption) (*Chain, error) {
	c := &Chain{names: make(map[string]int)}
	if _, err := c.add(NoParent, rootLength, opts); err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	return c, nil
}

// AddSegment appends a segment below parent and returns its index.
// The newest leaf becomes the end effector.
func (c *Chain) AddSegment(parent int, length float64, opts ...SegmentOption) (int, error) {
	if parent < 0 || parent >= len(c.segments) {
		return 0, fmt.Errorf("parent %d: %w", parent, ErrNoSuchSegment)
	}
	return c.add(parent, length, opts)
}

func (c *Chain) add(parent int, length float64, opts []SegmentOption) (int, error) {
	s := Segment{
		Length: length,
		Limits: Unconstrained(),
		parent: parent,
	}
	for _, opt := range opts {
		opt(&s)
	}

	if gomath.IsNaN(length) || gomath.IsInf(length, 0) {
		return 0, fmt.Errorf("length %v: %w", length, ErrNonFinite)
	}
	if length < 0 {
		return 0, fmt.Errorf("length %g: %w", length, ErrNegativeLength)
	}
	if !s.Rotation.IsFinite() {
		return 0, fmt.Errorf("rotation %v: %w", s.Rotation, ErrNonFinite)
	}
	if err := s.Limits.Validate(); err != nil {
		return 0, err
	}
	if s.Name != "" {
		if _, exists := c.names[s.Name]; exists {
			return 0, fmt.Errorf("%q: %w", s.Name, ErrDuplicateName)
		}
	}

	s.Rotation = wrapRotation(s.Rotation)

	idx := len(c.segments)
	c.segments = append(c.segments, s)
	if parent != NoParent {
		c.segments[parent].children = append(c.segments[parent].children, idx)
	}
	if s.Name != "" {
		c.names[s.Name] = idx
	}
	c.endEffector = idx
	return idx, nil
}

// Len returns the number of segments.
func (c *Chain) Len() int {
	return len(c.segments)
}

// Root returns the root index.
func (c *Chain) Root() int {
	return 0
}

// Segment returns a copy of segment i.
func (c *Chain) Segment(i int) Segment {
	s := c.segments[i]
	s.children = s.Children()
	return s
}

// Parent returns the parent of segment i, or NoParent.
func (c *Chain) Parent(i int) int {
	return c.segments[i].parent
}

// Children returns the child indices of segment i.
func (c *Chain) Children(i int) []int {
	return c.segments[i].Children()
}

// Lookup finds a segment by name.
func (c *Chain) Lookup(name string) (int, bool) {
	i, ok := c.names[name]
	return i, ok
}

// Leaves returns the indices of segments without children, in index order.
func (c *Chain) Leaves() []int {
	var leaves []int
	for i := range c.segments {
		if len(c.segments[i].children) == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// EndEffector returns the index of the segment whose tip the solver drives.
func (c *Chain) EndEffector() int {
	return c.endEffector
}

// SetEndEffector selects a leaf segment as the end effector.
func (c *Chain) SetEndEffector(i int) error {
	if i < 0 || i >= len(c.segments) {
		return fmt.Errorf("end effector %d: %w", i, ErrNoSuchSegment)
	}
	if len(c.segments[i].children) != 0 {
		return fmt.Errorf("end effector %d: %w", i, ErrNotLeaf)
	}
	c.endEffector = i
	return nil
}

// Rotation returns the local rotation of segment i in degrees.
func (c *Chain) Rotation(i int) math.Vec3 {
	return c.segments[i].Rotation
}

// SetRotation replaces the local rotation of segment i. Each angle is folded
// into (-360, 360); limits are not applied.
func (c *Chain) SetRotation(i int, r math.Vec3) {
	c.segments[i].Rotation = wrapRotation(r)
}

// Rotations returns a snapshot of every segment's rotation.
func (c *Chain) Rotations() []math.Vec3 {
	out := make([]math.Vec3, len(c.segments))
	for i := range c.segments {
		out[i] = c.segments[i].Rotation
	}
	return out
}

// SetRotations restores a snapshot taken with Rotations.
func (c *Chain) SetRotations(rs []math.Vec3) error {
	if len(rs) != len(c.segments) {
		return fmt.Errorf("snapshot has %d rotations, chain has %d segments: %w", len(rs), len(c.segments), ErrNoSuchSegment)
	}
	for i, r := range rs {
		if !r.IsFinite() {
			return fmt.Errorf("segment %d rotation %v: %w", i, r, ErrNonFinite)
		}
	}
	for i, r := range rs {
		c.SetRotation(i, r)
	}
	return nil
}

// Path returns the indices from segment i up to and including the root.
func (c *Chain) Path(i int) []int {
	var path []int
	for j := i; j != NoParent; j = c.segments[j].parent {
		path = append(path, j)
	}
	return path
}

// Reach returns the summed length of the movable segments between the root
// and the tip of segment i. It is the farthest the tip of i can get from the
// tip of the root.
func (c *Chain) Reach(i int) float64 {
	var total float64
	for j := i; c.segments[j].parent != NoParent; j = c.segments[j].parent {
		total += c.segments[j].Length
	}
	return total
}

// Clone returns an independent copy of the chain.
func (c *Chain) Clone() *Chain {
	out := &Chain{
		segments:    make([]Segment, len(c.segments)),
		names:       make(map[string]int, len(c.names)),
		endEffector: c.endEffector,
	}
	for i, s := range c.segments {
		s.children = s.Children()
		out.segments[i] = s
	}
	for name, i := range c.names {
		out.names[name] = i
	}
	return out
}

func wrapRotation(r math.Vec3) math.Vec3 {
	return math.V3(math.WrapDegrees(r.X), math.WrapDegrees(r.Y), math.WrapDegrees(r.Z))
}
