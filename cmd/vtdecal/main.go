// vtdecal runs tile decal captures from a scene file and dumps the
// resulting virtual texture slices.
package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/app"
	"github.com/Faultbox/midgard-vt/internal/config"
	"github.com/Faultbox/midgard-vt/internal/logger"
	"github.com/Faultbox/midgard-vt/internal/scenefile"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "run":
		cmdRun(args)
	case "validate", "check":
		cmdValidate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vtdecal - virtual texture decal capture tool

Usage:
  vtdecal [flags] <command> [arguments]

Commands:
  run <scene.yaml>       Run the scene's tile requests and dump every slice
  validate <scene.yaml>  Check a scene file
  help                   Show this help

Flags:
  -config <file>   Config file (default ./config.yaml or the user config dir)
  -backend <name>  soft or gl
  -frames <n>      Minimum number of frames to run
  -out <dir>       Directory for slice dumps
  -debug           Debug logging and a debug GL context

Examples:
  vtdecal run scenes/road.yaml
  vtdecal -backend gl -out ./dump run scenes/road.yaml`)
}

func cmdRun(args []string) {
	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the scene and dumps every slice. Deferred cleanup runs
// before the caller exits.
func run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: vtdecal run <scene.yaml>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("=== midgard-vt decal capture ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	scene, err := scenefile.Load(args[0])
	if err != nil {
		logger.Error("failed to load scene", zap.Error(err))
		return err
	}

	a, err := app.New(cfg, scene)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return err
	}
	defer a.Close()

	runErr := a.Run()
	if runErr != nil {
		logger.Error("run error", zap.Error(runErr))
	}

	paths, err := a.Dump()
	if err != nil {
		logger.Error("dump error", zap.Error(err))
		return err
	}
	fmt.Printf("Wrote %d slice images to %s\n", len(paths), cfg.Run.OutputDir)

	return runErr
}

func cmdValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vtdecal validate <scene.yaml>")
		os.Exit(1)
	}

	scene, err := scenefile.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scene: %s\n", args[0])
	fmt.Printf("  Slices:    %d\n", scene.Slices)
	fmt.Printf("  Renderers: %d\n", len(scene.Renderers))
	fmt.Printf("  Requests:  %d over %d frames\n", len(scene.Requests), scene.Frames())
}
