package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	gomath "math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/boneik/internal/config"
	"github.com/Faultbox/boneik/internal/logger"
	"github.com/Faultbox/boneik/internal/session"
	"github.com/Faultbox/boneik/pkg/formats"
	"github.com/Faultbox/boneik/pkg/math"
)

func cmdSolve(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	target := fs.String("target", formatVec(math.Vec3FromArray(cfg.Target.Initial)), "Target position x,y,z")
	out := fs.String("out", "", "Write the pose to this file instead of stdout")
	clamp := fs.Bool("clamp", false, "Clamp the target into the configured control volume")
	fs.Parse(args)

	p, err := parseVec(strings.Split(*target, ","))
	if err != nil {
		return fmt.Errorf("-target: %w", err)
	}

	name, chain, err := loadChain(cfg)
	if err != nil {
		return err
	}
	opts := sessionOptions(cfg)
	opts.Initial = p
	if !*clamp {
		inf := gomath.Inf(1)
		opts.Volume = r3.Box{Min: r3.Vec{X: -inf, Y: -inf, Z: -inf}, Max: r3.Vec{X: inf, Y: inf, Z: inf}}
	}
	s, err := session.New(name, chain, opts)
	if err != nil {
		return err
	}

	res, err := s.Solve(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s after %d iterations, distance %.6f\n",
		res.Result.State, res.Result.Iterations, gomath.Sqrt(res.Result.DistanceSq))

	return writePose(s.Pose(), *out)
}

func cmdPose(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("pose", flag.ExitOnError)
	asYAML := fs.Bool("yaml", false, "Print YAML instead of a table")
	fs.Parse(args)

	name, chain, err := loadChain(cfg)
	if err != nil {
		return err
	}
	s, err := session.New(name, chain, sessionOptions(cfg))
	if err != nil {
		return err
	}
	if *asYAML {
		return writePose(s.Pose(), "")
	}
	printPoseTable(os.Stdout, s.Pose())
	return nil
}

func cmdRig(args []string) error {
	fs := flag.NewFlagSet("rig", flag.ExitOnError)
	out := fs.String("out", "", "Write the rig to this file instead of stdout")
	fs.Parse(args)

	data, err := formats.DefaultRig().Marshal()
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		return err
	}
	logger.Info("rig written", zap.String("path", *out))
	fmt.Fprintf(os.Stderr, "Wrote %s\n", *out)
	return nil
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Parse(args)

	name, chain, err := loadChain(cfg)
	if err != nil {
		return err
	}
	s, err := session.New(name, chain, sessionOptions(cfg))
	if err != nil {
		return err
	}
	return runCommands(ctx, s, os.Stdin, os.Stdout)
}

// runCommands executes one command per input line until quit or EOF.
// Bad commands are reported and skipped.
func runCommands(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch cmd, args := fields[0], fields[1:]; cmd {
		case "quit", "exit":
			return nil
		case "target":
			p, err := parseVec(args)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			p, err = s.SetTarget(p)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "target %s\n", formatVec(p))
		case "move":
			d, err := parseVec(args)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			p, err := s.MoveTarget(d)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "target %s\n", formatVec(p))
		case "nudge":
			axis, dir, err := parseNudge(args)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			p, _ := s.Nudge(axis, dir)
			fmt.Fprintf(out, "target %s\n", formatVec(p))
		case "solve":
			o, err := s.Solve(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s iterations=%d distance=%.6f\n",
				o.Result.State, o.Result.Iterations, gomath.Sqrt(o.Result.DistanceSq))
		case "pose":
			printPoseTable(out, s.Pose())
		case "history":
			for i, o := range s.History() {
				fmt.Fprintf(out, "%3d %s %s iterations=%d\n", i, formatVec(o.Target), o.Result.State, o.Result.Iterations)
			}
		case "reset":
			s.Reset()
			fmt.Fprintf(out, "target %s\n", formatVec(s.Target()))
		case "help":
			fmt.Fprintln(out, "commands: target x y z | move dx dy dz | nudge x|y|z +|- | solve | pose | history | reset | quit")
		default:
			logger.Warn("unknown command skipped", zap.String("command", cmd))
			fmt.Fprintf(out, "error: unknown command %q\n", cmd)
		}
	}
	return scanner.Err()
}

func printPoseTable(w io.Writer, p *formats.Pose) {
	fmt.Fprintf(w, "%-12s %-26s %-26s %s\n", "SEGMENT", "ROTATION", "PIVOT", "TIP")
	for _, s := range p.Segments {
		fmt.Fprintf(w, "%-12s %-26s %-26s %s\n", s.Name,
			formatVec(math.Vec3FromArray(s.Rotation)),
			formatVec(math.Vec3FromArray(s.Pivot)),
			formatVec(math.Vec3FromArray(s.Tip)))
	}
}

func writePose(p *formats.Pose, path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	logger.Info("pose written", zap.String("path", path), zap.String("outcome", p.Outcome))
	return nil
}

// parseVec reads three numbers, either as separate fields or one
// comma-separated field.
func parseVec(fields []string) (math.Vec3, error) {
	if len(fields) == 1 {
		fields = strings.Split(fields[0], ",")
	}
	if len(fields) != 3 {
		return math.Vec3{}, fmt.Errorf("want 3 coordinates, got %d", len(fields))
	}
	var a [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return math.Vec3{}, err
		}
		a[i] = v
	}
	p := math.Vec3FromArray(a)
	if !p.IsFinite() {
		return math.Vec3{}, fmt.Errorf("coordinates must be finite: %s", strings.Join(fields, ","))
	}
	return p, nil
}

func parseNudge(args []string) (axis int, dir float64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("usage: nudge x|y|z +|-")
	}
	switch args[0] {
	case "x":
		axis = 0
	case "y":
		axis = 1
	case "z":
		axis = 2
	default:
		return 0, 0, fmt.Errorf("unknown axis %q", args[0])
	}
	switch args[1] {
	case "+":
		dir = 1
	case "-":
		dir = -1
	default:
		return 0, 0, fmt.Errorf("direction must be + or -, got %q", args[1])
	}
	return axis, dir, nil
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("%.4g,%.4g,%.4g", v.X, v.Y, v.Z)
}
