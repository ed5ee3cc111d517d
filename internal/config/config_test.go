package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test solver defaults
	if cfg.Solver.MaxIterations != 1000 {
		t.Errorf("expected max iterations 1000, got %d", cfg.Solver.MaxIterations)
	}
	if cfg.Solver.Tolerance != 0.001 {
		t.Errorf("expected tolerance 0.001, got %v", cfg.Solver.Tolerance)
	}
	if cfg.Solver.AlignCos != 0.99 {
		t.Errorf("expected align cos 0.99, got %v", cfg.Solver.AlignCos)
	}
	if cfg.Solver.Timeout != 0 {
		t.Errorf("expected no timeout, got %v", cfg.Solver.Timeout)
	}

	// Test target defaults
	if cfg.Target.Initial != [3]float64{0, 1.5, 0} {
		t.Errorf("expected initial target (0, 1.5, 0), got %v", cfg.Target.Initial)
	}
	if cfg.Target.Step != 0.1 {
		t.Errorf("expected step 0.1, got %v", cfg.Target.Step)
	}

	// Test rig defaults
	if cfg.Rig.Path != "" {
		t.Errorf("expected built-in rig, got %s", cfg.Rig.Path)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
solver:
  max_iterations: 250
  tolerance: 0.01
  align_cos: 0.995
  timeout: 50ms
  history: 4

target:
  initial: [0.5, 1, 0]
  min: [-2, 0, -2]
  max: [2, 3, 2]
  step: 0.25

rig:
  path: "arm.yaml"

logging:
  level: "debug"
  format: "json"
  log_file: "ik.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Solver.MaxIterations != 250 {
		t.Errorf("expected max iterations 250, got %d", cfg.Solver.MaxIterations)
	}
	if cfg.Solver.Tolerance != 0.01 {
		t.Errorf("expected tolerance 0.01, got %v", cfg.Solver.Tolerance)
	}
	if cfg.Solver.Timeout != 50*time.Millisecond {
		t.Errorf("expected timeout 50ms, got %v", cfg.Solver.Timeout)
	}
	if cfg.Solver.History != 4 {
		t.Errorf("expected history 4, got %d", cfg.Solver.History)
	}

	if cfg.Target.Initial != [3]float64{0.5, 1, 0} {
		t.Errorf("expected initial (0.5, 1, 0), got %v", cfg.Target.Initial)
	}
	if cfg.Target.Max != [3]float64{2, 3, 2} {
		t.Errorf("expected max (2, 3, 2), got %v", cfg.Target.Max)
	}

	if cfg.Rig.Path != "arm.yaml" {
		t.Errorf("expected rig path arm.yaml, got %s", cfg.Rig.Path)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected format 'json', got %s", cfg.Logging.Format)
	}
	if cfg.Logging.LogFile != "ik.log" {
		t.Errorf("expected log file 'ik.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  tolerance: 0.05\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Solver.Tolerance != 0.05 {
		t.Errorf("expected tolerance 0.05, got %v", cfg.Solver.Tolerance)
	}
	// Untouched settings keep their defaults.
	if cfg.Solver.MaxIterations != 1000 {
		t.Errorf("expected max iterations 1000, got %d", cfg.Solver.MaxIterations)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if err := loadFromFile(Default(), configPath); err != nil {
		t.Errorf("expected empty file to load, got %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax": `
solver:
  max_iterations: not a number
  invalid syntax here
`,
		"unknown key": `
graphics:
  width: 800
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			// Try to load - should error
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero iterations", func(c *Config) { c.Solver.MaxIterations = 0 }},
		{"negative tolerance", func(c *Config) { c.Solver.Tolerance = -1 }},
		{"align cos above one", func(c *Config) { c.Solver.AlignCos = 1.1 }},
		{"negative timeout", func(c *Config) { c.Solver.Timeout = -time.Second }},
		{"negative history", func(c *Config) { c.Solver.History = -1 }},
		{"inverted volume", func(c *Config) { c.Target.Min[1] = 5 }},
		{"negative step", func(c *Config) { c.Target.Step = -0.1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSolverOptions(t *testing.T) {
	s := SolverConfig{MaxIterations: 10, Tolerance: 0.5, AlignCos: 0.9}
	opts := s.Options()
	if opts.MaxIterations != 10 || opts.Tolerance != 0.5 || opts.AlignCos != 0.9 {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Point the user config dir somewhere empty
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  tolerance: 0.1\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Solver.MaxIterations = 42
	cfg.Rig.Path = "custom.yaml"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Solver.MaxIterations != 42 || loaded.Rig.Path != "custom.yaml" {
		t.Errorf("saved config did not round-trip: %+v", loaded)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config) error
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				return nil
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "rig flag",
			setup: func() {
				*flagRig = "arm.yaml"
			},
			verify: func(cfg *Config) error {
				if cfg.Rig.Path != "arm.yaml" {
					t.Errorf("expected rig arm.yaml, got %s", cfg.Rig.Path)
				}
				return nil
			},
			teardown: func() {
				*flagRig = ""
			},
		},
		{
			name: "solver flags",
			setup: func() {
				*flagIterations = 50
				*flagTolerance = 0.02
			},
			verify: func(cfg *Config) error {
				if cfg.Solver.MaxIterations != 50 {
					t.Errorf("expected max iterations 50, got %d", cfg.Solver.MaxIterations)
				}
				if cfg.Solver.Tolerance != 0.02 {
					t.Errorf("expected tolerance 0.02, got %v", cfg.Solver.Tolerance)
				}
				return nil
			},
			teardown: func() {
				*flagIterations = 0
				*flagTolerance = 0
			},
		},
		{
			name: "logging flags",
			setup: func() {
				*flagLogFile = "out.log"
				*flagJSON = true
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
				if cfg.Logging.Format != "json" {
					t.Errorf("expected json format, got %s", cfg.Logging.Format)
				}
				return nil
			},
			teardown: func() {
				*flagLogFile = ""
				*flagJSON = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
solver:
  max_iterations: 300
  tolerance: 0.004
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagIterations = 700
	defer func() {
		*flagConfig = ""
		*flagIterations = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Iterations should be from flag (700), not file (300)
	if cfg.Solver.MaxIterations != 700 {
		t.Errorf("expected max iterations 700 from flag, got %d", cfg.Solver.MaxIterations)
	}

	// Tolerance should be from file since no flag override
	if cfg.Solver.Tolerance != 0.004 {
		t.Errorf("expected tolerance 0.004 from file, got %v", cfg.Solver.Tolerance)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  align_cos: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
