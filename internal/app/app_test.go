package app

import (
	"os"
	"testing"

	"github.com/Faultbox/midgard-vt/internal/config"
	"github.com/Faultbox/midgard-vt/internal/engine/tileupdate"
	"github.com/Faultbox/midgard-vt/internal/scenefile"
)

const scene = `
slices: 2
renderers:
  - name: patch
    queue: 2000
    tags: [TerrainDecal, TerrainDisplacement]
    min: [-4, 0, -4]
    max: [4, 1, 4]
    albedo: [1, 0, 0, 1]
    height: 1
requests:
  - frame: 0
    slice: 0
    position: [0, 10, 0]
    extent: 4
    near: 0.1
    far: 100
  - frame: 1
    slice: 1
    position: [0, 10, 0]
    extent: 0
    near: 0.1
    far: 100
`

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.VirtualTexture.ColorResolution = 8
	cfg.VirtualTexture.HeightResolution = 8
	cfg.Run.Backend = "soft"
	cfg.Run.OutputDir = t.TempDir()
	return cfg
}

func TestRunSoftBackend(t *testing.T) {
	f, err := scenefile.Parse([]byte(scene))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, err := New(testConfig(t), f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", a.Frames())
	}
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	st := a.Stats()
	if st.Processed != 1 || st.Skipped != 1 || st.Dispatches != 1 {
		t.Errorf("Stats = %+v", st)
	}

	paths, err := a.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(paths) != 8 {
		t.Fatalf("dumped %d files, want 8", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing dump: %v", err)
		}
	}
}

func TestOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Decal.HeightClear = "preserve"
	opts, err := Options(cfg)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.HeightClear != tileupdate.HeightClearPreserve || opts.QueueMin != 1000 || opts.QueueMax != 5000 {
		t.Errorf("Options = %+v", opts)
	}

	cfg.Decal.HeightClear = "bogus"
	if _, err := Options(cfg); err == nil {
		t.Error("bogus height clear accepted")
	}
}

func TestUnknownBackend(t *testing.T) {
	f, err := scenefile.Parse([]byte(scene))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg := testConfig(t)
	cfg.Run.Backend = "vulkan"
	if _, err := New(cfg, f); err == nil {
		t.Error("unknown backend accepted")
	}
}
