// Package app drives the tile updater over a scene file for a number of
// frames on the configured backend.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/config"
	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/debug"
	"github.com/Faultbox/midgard-vt/internal/engine/glgpu"
	"github.com/Faultbox/midgard-vt/internal/engine/pipeline"
	"github.com/Faultbox/midgard-vt/internal/engine/softgpu"
	"github.com/Faultbox/midgard-vt/internal/engine/surface"
	"github.com/Faultbox/midgard-vt/internal/engine/terrain"
	"github.com/Faultbox/midgard-vt/internal/engine/tileupdate"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
	"github.com/Faultbox/midgard-vt/internal/engine/window"
	"github.com/Faultbox/midgard-vt/internal/logger"
	"github.com/Faultbox/midgard-vt/internal/scenefile"
)

// Smallest edge of dumped images.
const dumpMinSize = 256

// App is one run of a scene.
type App struct {
	cfg   *config.Config
	scene *scenefile.File

	window *window.Window
	gl     *glgpu.Device
	dev    cmdbuf.Device

	built     *scenefile.Built
	engine    *tileupdate.Engine
	scheduler *pipeline.Scheduler
	log       *zap.Logger
}

// Options builds engine options from configuration.
func Options(cfg *config.Config) (tileupdate.Options, error) {
	hc, err := tileupdate.ParseHeightClear(cfg.Decal.HeightClear)
	if err != nil {
		return tileupdate.Options{}, err
	}
	return tileupdate.Options{
		ColorResolution:  cfg.VirtualTexture.ColorResolution,
		HeightResolution: cfg.VirtualTexture.HeightResolution,
		DecalTag:         cfg.Decal.DecalTag,
		DisplacementTag:  cfg.Decal.DisplacementTag,
		QueueMin:         cfg.Decal.QueueMin,
		QueueMax:         cfg.Decal.QueueMax,
		HeightClear:      hc,
	}, nil
}

// New creates the backend device, the persistent layers and the engine.
func New(cfg *config.Config, scene *scenefile.File) (*App, error) {
	a := &App{
		cfg:   cfg,
		scene: scene,
		log:   logger.Named("app"),
	}

	a.log.Info("initializing",
		zap.String("backend", cfg.Run.Backend),
		zap.Int("color_resolution", cfg.VirtualTexture.ColorResolution),
		zap.Int("height_resolution", cfg.VirtualTexture.HeightResolution),
		zap.Int("slices", scene.Slices),
	)

	if err := a.openDevice(); err != nil {
		return nil, err
	}

	var err error
	a.built, err = scene.Build(cfg.VirtualTexture, a.dev)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building scene: %w", err)
	}

	opts, err := Options(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	pool := surface.NewPool(surface.Budget{
		MaxLive:  cfg.Pool.MaxLive,
		MaxBytes: int64(cfg.Pool.MaxBudgetMB) << 20,
	})
	td := terrain.Settings{Scale: cfg.Terrain.HeightScale, Offset: cfg.Terrain.HeightOffset}

	a.engine, err = tileupdate.New(opts, pool, td, logger.Named("tileupdate"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating tile updater: %w", err)
	}

	culler := visibility.NewSceneCuller(a.built.Scene, logger.Named("visibility"))
	a.scheduler = pipeline.NewScheduler(culler, a.dev, logger.Named("pipeline"))
	a.scheduler.Add(a.engine)

	a.log.Info("initialized")
	return a, nil
}

func (a *App) openDevice() error {
	switch a.cfg.Run.Backend {
	case "soft":
		a.dev = softgpu.New(logger.Named("softgpu"))
		return nil
	case "gl":
		var err error
		a.window, err = window.New(window.Config{
			Title:  "midgard-vt",
			Width:  a.cfg.Window.Width,
			Height: a.cfg.Window.Height,
			Hidden: true,
			Debug:  a.cfg.Window.Debug,
		}, logger.Named("window"))
		if err != nil {
			return fmt.Errorf("failed to create window: %w", err)
		}
		a.gl, err = glgpu.New(logger.Named("glgpu"))
		if err != nil {
			a.window.Close()
			a.window = nil
			return fmt.Errorf("failed to create GL device: %w", err)
		}
		a.dev = a.gl
		return nil
	default:
		return fmt.Errorf("unknown backend %q", a.cfg.Run.Backend)
	}
}

// Frames returns the number of frames Run executes.
func (a *App) Frames() int {
	return max(a.cfg.Run.Frames, a.scene.Frames())
}

// Run enqueues each frame's requests and runs the frame. Frame errors are
// logged and the run continues.
func (a *App) Run() error {
	frames := a.Frames()
	a.log.Info("running", zap.Int("frames", frames))

	var failed int
	for frame := 0; frame < frames; frame++ {
		if a.window != nil && a.window.PumpEvents() {
			a.log.Info("quit requested", zap.Int("frame", frame))
			break
		}

		for _, r := range a.built.RequestsFor(frame) {
			a.engine.Enqueue(r)
		}
		if err := a.scheduler.Frame(); err != nil {
			failed++
			a.log.Error("frame failed", zap.Int("frame", frame), zap.Error(err))
		}
	}

	st := a.engine.Stats()
	a.log.Info("run finished",
		zap.Uint64("passes", st.Passes),
		zap.Uint64("processed", st.Processed),
		zap.Uint64("skipped", st.Skipped),
		zap.Uint64("aborted", st.Aborted),
		zap.Uint64("dispatches", st.Dispatches),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed", failed, frames)
	}
	return nil
}

// Stats returns the tile updater counters.
func (a *App) Stats() tileupdate.Stats {
	return a.engine.Stats()
}

// Dump writes every slice of every persistent layer to outputDir.
func (a *App) Dump() ([]string, error) {
	dumper := debug.NewSliceDumper(a.cfg.Run.OutputDir, "vt", dumpMinSize)
	t := a.built.Targets
	layers := []struct {
		name string
		id   cmdbuf.TextureID
	}{
		{"albedo", t.Albedo},
		{"normal", t.Normal},
		{"surface", t.Surface},
		{"height", t.Height},
	}

	var paths []string
	for _, l := range layers {
		for s := 0; s < a.built.Slices; s++ {
			path, err := dumper.Dump(a.dev, l.id, s, l.name)
			if err != nil {
				return paths, fmt.Errorf("dumping %s slice %d: %w", l.name, s, err)
			}
			paths = append(paths, path)
		}
	}
	a.log.Info("slices dumped", zap.Int("files", len(paths)), zap.String("dir", a.cfg.Run.OutputDir))
	return paths, nil
}

// Close releases the device and window.
func (a *App) Close() {
	if a.gl != nil {
		a.gl.Close()
		a.gl = nil
	}
	if a.window != nil {
		a.window.Close()
		a.window = nil
	}
}
