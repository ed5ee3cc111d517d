package ik

import (
	"context"
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/boneik/pkg/math"
)

// Solver defaults.
const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 0.001
	DefaultAlignCos      = 0.99 // about 8.1 degrees
)

const (
	// Directions shorter than this have no usable orientation.
	degenerateLength = 1e-9
	// Stall refinement never tightens 1-alignCos below this.
	minAlignGap = 1e-12
)

// ErrInvalidOptions is returned by NewSolver for out-of-range options.
var ErrInvalidOptions = errors.New("invalid solver options")

// State is the phase of a solve.
type State int

// Solve states. Converged, Exhausted and Interrupted are terminal.
const (
	Idle State = iota
	Iterating
	Converged
	Exhausted
	Interrupted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Iterating:
		return "Iterating"
	case Converged:
		return "Converged"
	case Exhausted:
		return "Exhausted"
	case Interrupted:
		return "Interrupted"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Options configures a Solver. Zero fields take their defaults.
type Options struct {
	// MaxIterations caps the number of passes from end effector to root.
	MaxIterations int
	// Tolerance is the distance below which the tip counts as on target.
	Tolerance float64
	// AlignCos skips a joint when the cosine between its tip and target
	// directions is at least this value.
	AlignCos float64
	// Logger receives one debug entry per solve. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the default solver configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		AlignCos:      DefaultAlignCos,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.AlignCos == 0 {
		o.AlignCos = DefaultAlignCos
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) validate() error {
	if o.MaxIterations < 0 {
		return fmt.Errorf("max iterations %d: %w", o.MaxIterations, ErrInvalidOptions)
	}
	if !(o.Tolerance > 0) || gomath.IsInf(o.Tolerance, 0) {
		return fmt.Errorf("tolerance %v: %w", o.Tolerance, ErrInvalidOptions)
	}
	if !(o.AlignCos > -1 && o.AlignCos <= 1) {
		return fmt.Errorf("align cos %v: %w", o.AlignCos, ErrInvalidOptions)
	}
	return nil
}

// Result describes the outcome of a solve.
type Result struct {
	State      State
	Iterations int       // Passes started
	Updates    int       // Joint rotations that changed a stored angle
	DistanceSq float64   // Squared distance from tip to target at the end
	Tip        math.Vec3 // End effector tip at the end
}

// Converged reports whether the tip reached the target.
func (r Result) Converged() bool {
	return r.State == Converged
}

// Solver runs CCD on one chain. The chain is mutated in place; callers must
// not read or modify it from other goroutines while a solve runs.
type Solver struct {
	chain *Chain
	opts  Options
	state State
}

// NewSolver creates a solver for chain.
func NewSolver(chain *Chain, opts Options) (*Solver, error) {
	if chain == nil {
		return nil, fmt.Errorf("nil chain: %w", ErrInvalidOptions)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Solver{chain: chain, opts: opts}, nil
}

// Chain returns the chain the solver drives.
func (s *Solver) Chain() *Chain {
	return s.chain
}

// Options returns the effective options.
func (s *Solver) Options() Options {
	return s.opts
}

// State returns the state of the most recent solve.
func (s *Solver) State() State {
	return s.state
}

// Solve moves the end effector's tip toward target.
func (s *Solver) Solve(target math.Vec3) (Result, error) {
	return s.SolveContext(context.Background(), target)
}

// SolveContext is Solve with cancellation checked between passes. A
// cancelled solve keeps the rotations applied so far and reports
// Interrupted together with the context error.
//
// Each pass walks from the end effector up to the child of the root; the
// root is the fixed mount and is never rotated. At every joint the tip is
// turned about the joint's pivot toward the target, the turn is clamped to
// the joint's limits, and the solve ends as soon as the tip is within
// Tolerance. Exhausting MaxIterations is a normal outcome, not an error.
func (s *Solver) SolveContext(ctx context.Context, target math.Vec3) (Result, error) {
	if !target.IsFinite() {
		return Result{State: s.state}, fmt.Errorf("target %v: %w", target, ErrNonFinite)
	}

	c := s.chain
	end := c.EndEffector()
	tolSq := s.opts.Tolerance * s.opts.Tolerance
	gap := 1 - s.opts.AlignCos

	s.state = Iterating
	res := Result{State: Iterating}

	for iter := 0; iter < s.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return s.finish(res, Interrupted, target), err
		}
		res.Iterations++

		rotated := false
		for j := end; c.segments[j].parent != NoParent; j = c.segments[j].parent {
			if s.rotateJoint(j, end, target, 1-gap) {
				rotated = true
				res.Updates++
			}
			if c.Tip(end).DistanceSq(target) < tolSq {
				return s.finish(res, Converged, target), nil
			}
		}

		// Chains whose end effector has no movable joint skip the check
		// above.
		if c.Tip(end).DistanceSq(target) < tolSq {
			return s.finish(res, Converged, target), nil
		}

		// A pass that turned nothing would repeat forever; the tip is
		// parked inside the alignment band. Narrow the band.
		if !rotated && gap > minAlignGap {
			gap = gomath.Max(gap/10, minAlignGap)
		}
	}

	return s.finish(res, Exhausted, target), nil
}

func (s *Solver) finish(res Result, state State, target math.Vec3) Result {
	s.state = state
	res.State = state
	res.Tip = s.chain.Tip(s.chain.EndEffector())
	res.DistanceSq = res.Tip.DistanceSq(target)

	s.opts.Logger.Debug("ik solve finished",
		zap.Stringer("state", state),
		zap.Int("iterations", res.Iterations),
		zap.Int("updates", res.Updates),
		zap.Float64("distance_sq", res.DistanceSq),
	)
	return res
}

// rotateJoint turns joint j so the tip of end points at target as seen from
// the joint's pivot. It reports whether the stored rotation changed.
func (s *Solver) rotateJoint(j, end int, target math.Vec3, alignCos float64) bool {
	c := s.chain
	base := c.baseTransform(j)
	pivot := base.Origin()

	toTarget, ok := target.Sub(pivot).Unit(degenerateLength)
	if !ok {
		return false
	}
	toTip, ok := c.Tip(end).Sub(pivot).Unit(degenerateLength)
	if !ok {
		return false
	}

	cos := math.Clamp(toTip.Dot(toTarget), -1, 1)
	if cos >= alignCos {
		return false
	}
	axis, ok := toTip.Cross(toTarget).Unit(degenerateLength)
	if !ok {
		// Parallel or opposite: no unique axis.
		return false
	}
	angle := gomath.Acos(cos)

	// Express the world-space turn in the joint's base frame and compose it
	// with the current local rotation.
	seg := &c.segments[j]
	localAxis := base.Rotation().Transpose().TransformDirection(axis)
	turned := math.QuatFromAxisAngle(localAxis, angle).ToMat4().Mul(localRotation(seg))
	want := math.DegreesVec(turned.EulerXYZ())

	applied := c.ApplyDelta(j, want.Sub(seg.Rotation))
	return applied != math.Vec3{}
}
