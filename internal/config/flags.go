package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagRig        = flag.String("rig", "", "Path to rig file")
	flagIterations = flag.Int("iterations", 0, "Maximum solver iterations")
	flagTolerance  = flag.Float64("tolerance", 0, "Convergence distance")
	flagLogFile    = flag.String("log", "", "Write logs to this file")
	flagJSON       = flag.Bool("json", false, "Log as JSON")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagRig != "" {
		cfg.Rig.Path = *flagRig
	}
	if *flagIterations > 0 {
		cfg.Solver.MaxIterations = *flagIterations
	}
	if *flagTolerance > 0 {
		cfg.Solver.Tolerance = *flagTolerance
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagJSON {
		cfg.Logging.Format = "json"
	}
}
