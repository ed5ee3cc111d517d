package formats

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/boneik/pkg/ik"
	"github.com/Faultbox/boneik/pkg/math"
)

// ErrPoseMismatch is returned when a pose names a segment the chain lacks.
var ErrPoseMismatch = errors.New("pose does not match chain")

// PoseSegment is the solved state of one segment.
type PoseSegment struct {
	Name     string     `yaml:"name"`
	Rotation [3]float64 `yaml:"rotation,flow"` // Local X, Y, Z in degrees
	Pivot    [3]float64 `yaml:"pivot,flow"`    // World position of the joint
	Tip      [3]float64 `yaml:"tip,flow"`      // World position of the far end
}

// Pose is a snapshot of a chain after a solve, ready for a renderer.
type Pose struct {
	Rig        string        `yaml:"rig,omitempty"`
	Target     [3]float64    `yaml:"target,flow"`
	Outcome    string        `yaml:"outcome,omitempty"`
	Iterations int           `yaml:"iterations"`
	DistanceSq float64       `yaml:"distance_sq"`
	Segments   []PoseSegment `yaml:"segments"`
}

// PoseFromChain captures rotations and world positions of every segment.
// The solve fields are filled from res.
func PoseFromChain(rig string, c *ik.Chain, target math.Vec3, res ik.Result) *Pose {
	p := &Pose{
		Rig:        rig,
		Target:     target.Array(),
		Iterations: res.Iterations,
		DistanceSq: res.DistanceSq,
		Segments:   make([]PoseSegment, c.Len()),
	}
	if res.State != ik.Idle {
		p.Outcome = res.State.String()
	}

	world := c.Forward(nil)
	for i, m := range world {
		s := c.Segment(i)
		p.Segments[i] = PoseSegment{
			Name:     segmentName(c, i),
			Rotation: s.Rotation.Array(),
			Pivot:    m.Origin().Array(),
			Tip:      ik.TipPoint(m, s.Length).Array(),
		}
	}
	return p
}

// ParsePose decodes a pose from YAML data.
func ParsePose(data []byte) (*Pose, error) {
	var p Pose
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pose: %w", err)
	}
	return &p, nil
}

// LoadPose parses a pose file from disk.
func LoadPose(path string) (*Pose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pose file: %w", err)
	}
	return ParsePose(data)
}

// Marshal encodes the pose as YAML.
func (p *Pose) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Apply restores the pose's rotations onto c, matching segments by name.
// Nothing is changed unless every pose segment exists in c and has a
// finite rotation.
func (p *Pose) Apply(c *ik.Chain) error {
	rotations := c.Rotations()
	for _, ps := range p.Segments {
		i, ok := lookupSegment(c, ps.Name)
		if !ok {
			return fmt.Errorf("segment %q: %w", ps.Name, ErrPoseMismatch)
		}
		r := math.Vec3FromArray(ps.Rotation)
		if !r.IsFinite() {
			return fmt.Errorf("segment %q rotation: %w", ps.Name, ErrPoseMismatch)
		}
		rotations[i] = r
	}
	return c.SetRotations(rotations)
}

func lookupSegment(c *ik.Chain, name string) (int, bool) {
	if i, ok := c.Lookup(name); ok {
		return i, true
	}
	for i := 0; i < c.Len(); i++ {
		if segmentName(c, i) == name {
			return i, true
		}
	}
	return 0, false
}
