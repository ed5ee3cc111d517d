// Package session drives a chain interactively: it owns the chain, a target
// kept inside a control volume, and the solver, and records recent outcomes.
package session

import (
	"context"
	"errors"
	"fmt"
	gomath "math"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/boneik/pkg/formats"
	"github.com/Faultbox/boneik/pkg/ik"
	"github.com/Faultbox/boneik/pkg/math"
)

// Session errors.
var (
	ErrInvalidVolume = errors.New("invalid control volume")
	ErrInvalidAxis   = errors.New("axis must be 0, 1 or 2")
)

// Options configures a Session.
type Options struct {
	Volume  r3.Box        // Targets are clamped into this box
	Initial math.Vec3     // Target after New and Reset
	Step    float64       // Distance moved by Nudge
	History int           // Outcomes kept; 0 keeps none
	Timeout time.Duration // Per-solve deadline; 0 means none
	Solver  ik.Options
	Logger  *zap.Logger
}

// DefaultOptions returns the demo control volume around the default arm.
func DefaultOptions() Options {
	return Options{
		Volume:  r3.Box{Min: r3.Vec{X: -1.5, Y: 0, Z: -1.5}, Max: r3.Vec{X: 1.5, Y: 4, Z: 1.5}},
		Initial: math.V3(0, 1.5, 0),
		Step:    0.1,
		History: 32,
		Solver:  ik.DefaultOptions(),
	}
}

// Outcome records one solve.
type Outcome struct {
	Target   math.Vec3
	Result   ik.Result
	Duration time.Duration
}

// Session is safe for concurrent use. Solves are serialized; Pose may be
// called from another goroutine and always sees the rotations between
// solves, never a partially solved chain.
type Session struct {
	mu      sync.Mutex
	rig     string
	chain   *ik.Chain
	solver  *ik.Solver
	rest    []math.Vec3
	volume  r3.Box
	initial math.Vec3
	target  math.Vec3
	step    float64
	timeout time.Duration
	last    ik.Result
	history []Outcome
	keep    int
	log     *zap.Logger
}

// New creates a session for chain. The chain's current rotations become the
// rest pose restored by Reset.
func New(rig string, chain *ik.Chain, opts Options) (*Session, error) {
	for i := 0; i < 3; i++ {
		if vecAxis(opts.Volume.Min, i) > vecAxis(opts.Volume.Max, i) {
			return nil, fmt.Errorf("axis %d: min %v > max %v: %w",
				i, vecAxis(opts.Volume.Min, i), vecAxis(opts.Volume.Max, i), ErrInvalidVolume)
		}
	}
	if !opts.Initial.IsFinite() {
		return nil, fmt.Errorf("initial target %v: %w", opts.Initial, ik.ErrNonFinite)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	solverOpts := opts.Solver
	if solverOpts.Logger == nil {
		solverOpts.Logger = log
	}
	solver, err := ik.NewSolver(chain, solverOpts)
	if err != nil {
		return nil, err
	}

	s := &Session{
		rig:     rig,
		chain:   chain,
		solver:  solver,
		rest:    chain.Rotations(),
		volume:  opts.Volume,
		step:    opts.Step,
		timeout: opts.Timeout,
		keep:    opts.History,
		log:     log,
	}
	s.initial = s.clamp(opts.Initial)
	s.target = s.initial

	s.log.Debug("session created",
		zap.String("rig", rig),
		zap.Int("segments", chain.Len()),
		vecField("volume", math.Vec3{Vec: opts.Volume.Size()}),
	)
	return s, nil
}

// Volume returns the control volume.
func (s *Session) Volume() r3.Box {
	return s.volume
}

// Target returns the current target.
func (s *Session) Target() math.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetTarget moves the target to p, clamped into the control volume, and
// returns where it ended up.
func (s *Session) SetTarget(p math.Vec3) (math.Vec3, error) {
	if !p.IsFinite() {
		return math.Vec3{}, fmt.Errorf("target %v: %w", p, ik.ErrNonFinite)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTarget(p), nil
}

// MoveTarget offsets the target by d.
func (s *Session) MoveTarget(d math.Vec3) (math.Vec3, error) {
	if !d.IsFinite() {
		return math.Vec3{}, fmt.Errorf("offset %v: %w", d, ik.ErrNonFinite)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTarget(s.target.Add(d)), nil
}

func (s *Session) setTarget(p math.Vec3) math.Vec3 {
	s.target = s.clamp(p)
	if s.target != p {
		s.log.Debug("target clamped to control volume",
			vecField("requested", p),
			vecField("target", s.target),
		)
	}
	return s.target
}

// Nudge moves the target one step along an axis (0, 1, 2 for X, Y, Z) in
// the direction of dir's sign.
func (s *Session) Nudge(axis int, dir float64) (math.Vec3, error) {
	if axis < 0 || axis > 2 {
		return s.Target(), fmt.Errorf("axis %d: %w", axis, ErrInvalidAxis)
	}
	var d math.Vec3
	switch {
	case dir > 0:
		d = d.WithAxis(axis, s.step)
	case dir < 0:
		d = d.WithAxis(axis, -s.step)
	}
	return s.MoveTarget(d)
}

// Solve runs the solver toward the current target. An Exhausted solve is
// not an error; cancellation of ctx or the configured timeout is.
func (s *Session) Solve(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.solver.SolveContext(ctx, s.target)
	out := Outcome{Target: s.target, Result: res, Duration: time.Since(start)}
	s.last = res
	s.record(out)

	fields := []zap.Field{
		zap.Stringer("state", res.State),
		zap.Int("iterations", res.Iterations),
		zap.Float64("distance", gomath.Sqrt(res.DistanceSq)),
		zap.Duration("took", out.Duration),
	}
	switch {
	case err != nil:
		s.log.Warn("solve interrupted", append(fields, zap.Error(err))...)
		return out, err
	case res.Converged():
		s.log.Info("target reached", fields...)
	default:
		s.log.Warn("target out of reach", fields...)
	}
	return out, nil
}

// Pose snapshots the chain together with the last solve.
func (s *Session) Pose() *formats.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return formats.PoseFromChain(s.rig, s.chain, s.target, s.last)
}

// Reset restores the rest pose and the initial target and clears history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// rest was taken from this chain, so it always fits.
	_ = s.chain.SetRotations(s.rest)
	s.target = s.initial
	s.last = ik.Result{}
	s.history = nil
	s.log.Debug("session reset")
}

// History returns the recorded outcomes, oldest first.
func (s *Session) History() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Outcome(nil), s.history...)
}

func (s *Session) record(o Outcome) {
	if s.keep <= 0 {
		return
	}
	if len(s.history) == s.keep {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.keep-1]
	}
	s.history = append(s.history, o)
}

// clamp limits p to the control volume axis by axis.
func (s *Session) clamp(p math.Vec3) math.Vec3 {
	for i := 0; i < 3; i++ {
		p = p.WithAxis(i, math.Clamp(p.Axis(i), vecAxis(s.volume.Min, i), vecAxis(s.volume.Max, i)))
	}
	return p
}

func vecAxis(v r3.Vec, i int) float64 {
	return math.Vec3{Vec: v}.Axis(i)
}

func vecField(key string, v math.Vec3) zap.Field {
	a := v.Array()
	return zap.Float64s(key, a[:])
}
