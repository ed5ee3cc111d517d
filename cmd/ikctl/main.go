// ikctl solves inverse kinematics for segment chains from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/boneik/internal/config"
	"github.com/Faultbox/boneik/internal/logger"
	"github.com/Faultbox/boneik/internal/session"
	"github.com/Faultbox/boneik/pkg/formats"
	"github.com/Faultbox/boneik/pkg/ik"
	"github.com/Faultbox/boneik/pkg/math"
)

func main() {
	// Parse global flags first
	config.ParseFlags()

	args := flag.Args()
	if len(args) < 1 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	command, args := args[0], args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage(os.Stdout)
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Setup(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    logFile(cfg.Logging.LogFile),
		Console: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "solve":
		err = cmdSolve(ctx, cfg, args)
	case "pose":
		err = cmdPose(cfg, args)
	case "rig":
		err = cmdRig(args)
	case "run":
		err = cmdRun(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ikctl - CCD inverse kinematics for segment chains

Usage:
  ikctl [global flags] <command> [options]

Commands:
  solve [-target x,y,z] [-clamp] [-out pose.yaml]
                                          Solve once and print the pose;
                                          -clamp keeps the target inside
                                          the configured control volume
  pose [-yaml]                            Show the rig's forward kinematics
                                          as a table, or as YAML
  rig [-out rig.yaml]                     Write the built-in demo rig
  run                                     Read commands from stdin
                                          (target, move, nudge, solve,
                                          pose, history, reset, quit)

Global flags:
  -config file      Config file (default ./config.yaml or user config dir)
  -rig file         Rig file (default: built-in demo arm)
  -iterations n     Maximum solver iterations
  -tolerance d      Convergence distance
  -debug            Enable debug logging
  -log file         Also log to a rotating file
  -json             Log as JSON

Examples:
  ikctl solve -target 0.5,1.2,0.3
  ikctl -rig arm.yaml solve -target 0,1.5,0 -out pose.yaml
  ikctl rig -out arm.yaml
  echo "target 1 1 0
solve
pose" | ikctl run`)
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

// loadChain builds the configured rig, or the demo arm when none is set.
func loadChain(cfg *config.Config) (string, *ik.Chain, error) {
	rig := formats.DefaultRig()
	if cfg.Rig.Path != "" {
		var err error
		if rig, err = formats.LoadRig(cfg.Rig.Path); err != nil {
			return "", nil, err
		}
	}
	chain, err := rig.Build()
	if err != nil {
		return "", nil, fmt.Errorf("rig %s: %w", rig.Name, err)
	}
	logger.Debug("rig loaded",
		zap.String("name", rig.Name),
		zap.Int("segments", chain.Len()),
		zap.Float64("reach", chain.Reach(chain.EndEffector())),
	)
	return rig.Name, chain, nil
}

// sessionOptions maps the configuration onto a session.
func sessionOptions(cfg *config.Config) session.Options {
	solver := cfg.Solver.Options()
	solver.Logger = logger.Named("ik")

	return session.Options{
		Volume: r3.Box{
			Min: math.Vec3FromArray(cfg.Target.Min).Vec,
			Max: math.Vec3FromArray(cfg.Target.Max).Vec,
		},
		Initial: math.Vec3FromArray(cfg.Target.Initial),
		Step:    cfg.Target.Step,
		History: cfg.Solver.History,
		Timeout: cfg.Solver.Timeout,
		Solver:  solver,
		Logger:  logger.Named("session"),
	}
}
