// Package scenefile loads YAML scene descriptions: the renderers visible to
// the capture passes, the number of slices in the persistent layers, and
// the tile requests to enqueue on each frame.
package scenefile

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-vt/internal/config"
	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/tileupdate"
	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

// ErrInvalid is returned for scene files that cannot be built.
var ErrInvalid = errors.New("scenefile: invalid scene")

// File is the decoded scene file.
type File struct {
	Slices    int        `yaml:"slices"`
	Renderers []Renderer `yaml:"renderers"`
	Requests  []Request  `yaml:"requests"`
}

// Renderer describes one piece of decal geometry.
type Renderer struct {
	Name            string     `yaml:"name"`
	Layer           uint8      `yaml:"layer"`
	RenderingLayers uint32     `yaml:"rendering_layers"` // 0 means all
	Queue           int        `yaml:"queue"`
	Tags            []string   `yaml:"tags"`
	Min             [3]float32 `yaml:"min"`
	Max             [3]float32 `yaml:"max"`
	Albedo          [4]float32 `yaml:"albedo"`
	Normal          [2]float32 `yaml:"normal"`
	Surface         [4]float32 `yaml:"surface"`
	Height          float32    `yaml:"height"`
}

// Request describes one tile capture.
type Request struct {
	Frame    int         `yaml:"frame"`
	Slice    int         `yaml:"slice"`
	Mask     *uint32     `yaml:"mask"` // nil means all layers
	Position [3]float32  `yaml:"position"`
	Rotation *[4]float32 `yaml:"rotation"` // w, x, y, z; nil looks straight down
	Extent   float32     `yaml:"extent"`
	Near     float32     `yaml:"near"`
	Far      float32     `yaml:"far"`
}

// Load reads and parses a scene file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a scene.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the structure of the scene. Degenerate capture volumes
// are left to the tile updater, which skips them.
func (f *File) Validate() error {
	if f.Slices <= 0 {
		return fmt.Errorf("%w: slices must be positive, got %d", ErrInvalid, f.Slices)
	}
	for i, r := range f.Renderers {
		if len(r.Tags) == 0 {
			return fmt.Errorf("%w: renderer %d (%s) has no tags", ErrInvalid, i, r.Name)
		}
		if r.Layer > 31 {
			return fmt.Errorf("%w: renderer %d (%s) layer %d", ErrInvalid, i, r.Name, r.Layer)
		}
		for a := 0; a < 3; a++ {
			if r.Min[a] > r.Max[a] {
				return fmt.Errorf("%w: renderer %d (%s) min > max", ErrInvalid, i, r.Name)
			}
		}
	}
	for i, q := range f.Requests {
		if q.Frame < 0 {
			return fmt.Errorf("%w: request %d frame %d", ErrInvalid, i, q.Frame)
		}
		if q.Slice < 0 || q.Slice >= f.Slices {
			return fmt.Errorf("%w: request %d slice %d outside [0, %d)", ErrInvalid, i, q.Slice, f.Slices)
		}
	}
	return nil
}

// Frames returns the number of frames needed to enqueue every request.
func (f *File) Frames() int {
	n := 0
	for _, q := range f.Requests {
		n = max(n, q.Frame+1)
	}
	return n
}

// Targets are the persistent layers created for a scene.
type Targets struct {
	Albedo  cmdbuf.TextureID
	Normal  cmdbuf.TextureID
	Surface cmdbuf.TextureID
	Height  cmdbuf.TextureID
}

// Built is a scene realized on a device.
type Built struct {
	Scene   *visibility.Scene
	Targets Targets
	Slices  int

	requests []Request
}

// Build creates the persistent layers on dev and the renderer scene.
func (f *File) Build(vt config.VirtualTextureConfig, dev cmdbuf.Device) (*Built, error) {
	b := &Built{Scene: visibility.NewScene(), Slices: f.Slices, requests: f.Requests}

	arrays := []struct {
		id     *cmdbuf.TextureID
		res    int
		format cmdbuf.Format
		name   string
	}{
		{&b.Targets.Albedo, vt.ColorResolution, cmdbuf.FormatRGBA8, "albedo"},
		{&b.Targets.Normal, vt.ColorResolution, cmdbuf.FormatRG16F, "normal"},
		{&b.Targets.Surface, vt.ColorResolution, cmdbuf.FormatRGBA8, "surface"},
		{&b.Targets.Height, vt.HeightResolution, cmdbuf.FormatR16F, "height"},
	}
	for _, a := range arrays {
		id, err := dev.CreateArray(a.res, a.res, f.Slices, a.format)
		if err != nil {
			return nil, fmt.Errorf("creating %s layer: %w", a.name, err)
		}
		*a.id = id
	}

	for _, r := range f.Renderers {
		b.Scene.Add(&visibility.Renderer{
			Name:            r.Name,
			Layer:           r.Layer,
			RenderingLayers: r.RenderingLayers,
			Queue:           r.Queue,
			Tags:            slices.Clone(r.Tags),
			Bounds:          visibility.AABB{Min: r.Min, Max: r.Max},
			Material: visibility.Material{
				Albedo:  r.Albedo,
				Normal:  r.Normal,
				Surface: r.Surface,
				Height:  r.Height,
			},
		})
	}
	return b, nil
}

// RequestsFor returns the tile requests scheduled on frame, in file order.
func (b *Built) RequestsFor(frame int) []tileupdate.Request {
	var out []tileupdate.Request
	for _, q := range b.requests {
		if q.Frame == frame {
			out = append(out, b.request(q))
		}
	}
	return out
}

func (b *Built) request(q Request) tileupdate.Request {
	mask := ^uint32(0)
	if q.Mask != nil {
		mask = *q.Mask
	}
	rot := viewpoint.LookDown()
	if q.Rotation != nil {
		r := *q.Rotation
		rot = mgl32.Quat{W: r[0], V: mgl32.Vec3{r[1], r[2], r[3]}}
	}
	return tileupdate.Request{
		VisibilityMask: mask,
		Position:       q.Position,
		Rotation:       rot,
		Extent:         q.Extent,
		Near:           q.Near,
		Far:            q.Far,
		AlbedoTarget:   b.Targets.Albedo,
		NormalTarget:   b.Targets.Normal,
		SurfaceTarget:  b.Targets.Surface,
		HeightTarget:   b.Targets.Height,
		Slice:          q.Slice,
	}
}
