package formats

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/boneik/pkg/ik"
	"github.com/Faultbox/boneik/pkg/math"
)

// Rig format errors.
var (
	ErrRigNoRoot          = errors.New("rig has no root segment")
	ErrRigMultipleRoots   = errors.New("rig has more than one root segment")
	ErrRigUnnamedSegment  = errors.New("rig segment has no name")
	ErrRigDuplicateName   = errors.New("duplicate rig segment name")
	ErrRigUnknownParent   = errors.New("unknown parent segment")
	ErrRigCycle           = errors.New("rig segments form a cycle")
	ErrRigUnknownEffector = errors.New("unknown end effector")
)

// RigLimits bounds the rotation of a segment, in degrees per axis.
type RigLimits struct {
	Min [3]float64 `yaml:"min,flow"`
	Max [3]float64 `yaml:"max,flow"`
}

// RigSegment describes one segment of a rig.
type RigSegment struct {
	Name     string     `yaml:"name"`             // Unique segment name
	Parent   string     `yaml:"parent,omitempty"` // Parent segment name (empty for root)
	Length   float64    `yaml:"length"`           // Segment length
	Rotation [3]float64 `yaml:"rotation,flow"`    // Initial X, Y, Z rotation in degrees
	Limits   *RigLimits `yaml:"limits,omitempty"` // Nil means unconstrained
}

// Rig is a YAML description of a segment chain.
type Rig struct {
	Name        string       `yaml:"name"`
	EndEffector string       `yaml:"end_effector,omitempty"` // Defaults to the last leaf
	Segments    []RigSegment `yaml:"segments"`
}

// DefaultRig returns the demo arm: a zero-length mount and six 0.4 segments
// bending alternately by +10 and -10 degrees about Y.
func DefaultRig() *Rig {
	r := &Rig{
		Name:     "snake",
		Segments: []RigSegment{{Name: "base"}},
	}
	parent := "base"
	for i, y := range []float64{0, 10, -10, 10, -10, 10} {
		name := fmt.Sprintf("bone%d", i+1)
		r.Segments = append(r.Segments, RigSegment{
			Name:     name,
			Parent:   parent,
			Length:   0.4,
			Rotation: [3]float64{0, y, 0},
		})
		parent = name
	}
	return r
}

// ParseRig parses and validates a rig from YAML data.
func ParseRig(data []byte) (*Rig, error) {
	var r Rig
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding rig: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadRig parses a rig file from disk.
func LoadRig(path string) (*Rig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rig file: %w", err)
	}
	return ParseRig(data)
}

// Marshal encodes the rig as YAML.
func (r *Rig) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// GetSegmentByName returns a segment by its name, or nil if not found.
func (r *Rig) GetSegmentByName(name string) *RigSegment {
	for i := range r.Segments {
		if r.Segments[i].Name == name {
			return &r.Segments[i]
		}
	}
	return nil
}

// GetRootSegment returns the first segment without a parent.
func (r *Rig) GetRootSegment() *RigSegment {
	for i := range r.Segments {
		if r.Segments[i].Parent == "" {
			return &r.Segments[i]
		}
	}
	return nil
}

// GetChildSegments returns all segments that have the given parent name.
func (r *Rig) GetChildSegments(parentName string) []*RigSegment {
	var children []*RigSegment
	for i := range r.Segments {
		if r.Segments[i].Parent == parentName && parentName != "" {
			children = append(children, &r.Segments[i])
		}
	}
	return children
}

// Validate checks names, parent references and that the segments form a
// single tree.
func (r *Rig) Validate() error {
	_, err := r.order()
	return err
}

// order returns segment indices with every parent before its children.
// The order is stable for a given file.
func (r *Rig) order() ([]int, error) {
	index := make(map[string]int, len(r.Segments))
	for i, s := range r.Segments {
		if s.Name == "" {
			return nil, fmt.Errorf("segment %d: %w", i, ErrRigUnnamedSegment)
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("%q: %w", s.Name, ErrRigDuplicateName)
		}
		index[s.Name] = i
	}

	g := simple.NewDirectedGraph()
	for i := range r.Segments {
		g.AddNode(simple.Node(i))
	}

	roots := 0
	for i, s := range r.Segments {
		if s.Parent == "" {
			roots++
			continue
		}
		p, ok := index[s.Parent]
		if !ok {
			return nil, fmt.Errorf("%q parent %q: %w", s.Name, s.Parent, ErrRigUnknownParent)
		}
		if p == i {
			return nil, fmt.Errorf("%q is its own parent: %w", s.Name, ErrRigCycle)
		}
		g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(i)))
	}
	switch {
	case roots == 0 && len(r.Segments) == 0:
		return nil, ErrRigNoRoot
	case roots == 0:
		return nil, fmt.Errorf("every segment has a parent: %w", ErrRigCycle)
	case roots > 1:
		return nil, fmt.Errorf("%d roots: %w", roots, ErrRigMultipleRoots)
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID() < nodes[b].ID() })
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrRigCycle)
	}

	if r.EndEffector != "" {
		i, ok := index[r.EndEffector]
		if !ok {
			return nil, fmt.Errorf("%q: %w", r.EndEffector, ErrRigUnknownEffector)
		}
		if g.From(int64(i)).Len() != 0 {
			return nil, fmt.Errorf("end effector %q: %w", r.EndEffector, ik.ErrNotLeaf)
		}
	}

	order := make([]int, len(sorted))
	for k, n := range sorted {
		order[k] = int(n.ID())
	}
	return order, nil
}

// Build validates the rig and constructs the chain it describes.
func (r *Rig) Build() (*ik.Chain, error) {
	order, err := r.order()
	if err != nil {
		return nil, err
	}

	var c *ik.Chain
	indices := make(map[string]int, len(order))
	for _, i := range order {
		s := &r.Segments[i]
		opts := []ik.SegmentOption{
			ik.WithName(s.Name),
			ik.WithRotation(s.Rotation[0], s.Rotation[1], s.Rotation[2]),
		}
		if s.Limits != nil {
			opts = append(opts, ik.WithLimits(ik.Limits{
				Min: math.Vec3FromArray(s.Limits.Min),
				Max: math.Vec3FromArray(s.Limits.Max),
			}))
		}

		var idx int
		if s.Parent == "" {
			c, err = ik.NewChain(s.Length, opts...)
		} else {
			idx, err = c.AddSegment(indices[s.Parent], s.Length, opts...)
		}
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", s.Name, err)
		}
		indices[s.Name] = idx
	}

	if r.EndEffector != "" {
		if err := c.SetEndEffector(indices[r.EndEffector]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RigFromChain describes an existing chain, including its current
// rotations. Unnamed segments are named after their index.
func RigFromChain(name string, c *ik.Chain) *Rig {
	r := &Rig{Name: name, Segments: make([]RigSegment, c.Len())}

	names := make([]string, c.Len())
	for i := range names {
		names[i] = segmentName(c, i)
	}

	for i := range r.Segments {
		s := c.Segment(i)
		rs := RigSegment{
			Name:     names[i],
			Length:   s.Length,
			Rotation: s.Rotation.Array(),
		}
		if !s.IsRoot() {
			rs.Parent = names[s.Parent()]
		}
		if s.Limits != ik.Unconstrained() {
			rs.Limits = &RigLimits{Min: s.Limits.Min.Array(), Max: s.Limits.Max.Array()}
		}
		r.Segments[i] = rs
	}
	r.EndEffector = names[c.EndEffector()]
	return r
}

func segmentName(c *ik.Chain, i int) string {
	if name := c.Segment(i).Name; name != "" {
		return name
	}
	return fmt.Sprintf("segment%d", i)
}
