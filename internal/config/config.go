// Package config handles ikctl configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/boneik/pkg/ik"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all ikctl settings.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Target  TargetConfig  `yaml:"target"`
	Rig     RigConfig     `yaml:"rig"`
	Logging LoggingConfig `yaml:"logging"`
}

// SolverConfig holds CCD solver settings.
type SolverConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	Tolerance     float64       `yaml:"tolerance"`
	AlignCos      float64       `yaml:"align_cos"`
	Timeout       time.Duration `yaml:"timeout"` // 0 means no deadline
	History       int           `yaml:"history"` // Outcomes kept by a session
}

// TargetConfig holds the target control volume.
type TargetConfig struct {
	Initial [3]float64 `yaml:"initial,flow"`
	Min     [3]float64 `yaml:"min,flow"`
	Max     [3]float64 `yaml:"max,flow"`
	Step    float64    `yaml:"step"` // Distance moved per nudge
}

// RigConfig selects the chain to solve.
type RigConfig struct {
	Path string `yaml:"path"` // Rig YAML file; empty means the built-in demo arm
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // "console" or "json"
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			MaxIterations: ik.DefaultMaxIterations,
			Tolerance:     ik.DefaultTolerance,
			AlignCos:      ik.DefaultAlignCos,
			Timeout:       0,
			History:       32,
		},
		Target: TargetConfig{
			Initial: [3]float64{0, 1.5, 0},
			Min:     [3]float64{-1.5, 0, -1.5},
			Max:     [3]float64{1.5, 4, 1.5},
			Step:    0.1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	s := c.Solver
	if s.MaxIterations <= 0 {
		return fmt.Errorf("solver.max_iterations %d must be positive: %w", s.MaxIterations, ErrInvalid)
	}
	if !(s.Tolerance > 0) {
		return fmt.Errorf("solver.tolerance %v must be positive: %w", s.Tolerance, ErrInvalid)
	}
	if !(s.AlignCos > -1 && s.AlignCos <= 1) {
		return fmt.Errorf("solver.align_cos %v must be in (-1, 1]: %w", s.AlignCos, ErrInvalid)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("solver.timeout %v is negative: %w", s.Timeout, ErrInvalid)
	}
	if s.History < 0 {
		return fmt.Errorf("solver.history %d is negative: %w", s.History, ErrInvalid)
	}

	tg := c.Target
	for i := range tg.Min {
		if tg.Min[i] > tg.Max[i] {
			return fmt.Errorf("target volume axis %d: min %v > max %v: %w", i, tg.Min[i], tg.Max[i], ErrInvalid)
		}
	}
	if tg.Step < 0 {
		return fmt.Errorf("target.step %v is negative: %w", tg.Step, ErrInvalid)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %v: %w", err, ErrInvalid)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q: %w", c.Logging.Format, ErrInvalid)
	}
	return nil
}

// Options converts the solver settings to solver options.
func (s SolverConfig) Options() ik.Options {
	return ik.Options{
		MaxIterations: s.MaxIterations,
		Tolerance:     s.Tolerance,
		AlignCos:      s.AlignCos,
	}
}
