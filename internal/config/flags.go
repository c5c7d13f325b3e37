package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagBackend = flag.String("backend", "", "Executor backend: soft or gl")
	flagFrames  = flag.Int("frames", 0, "Number of frames to run")
	flagOut     = flag.String("out", "", "Directory for slice dumps")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments left after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Window.Debug = true
	}
	if *flagBackend != "" {
		cfg.Run.Backend = *flagBackend
	}
	if *flagFrames > 0 {
		cfg.Run.Frames = *flagFrames
	}
	if *flagOut != "" {
		cfg.Run.OutputDir = *flagOut
	}
}
