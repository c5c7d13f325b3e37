// Package softgpu executes recorded command sequences on the CPU.
//
// It is the reference device: textures are float32 arrays, draws fill the
// projected top face of each renderer's bounds, and the composite kernel
// copies staging texels into one slice of the persistent layers. Tests and
// headless runs use it in place of a GPU.
package softgpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/logger"
)

// Device errors.
var (
	ErrSliceOutOfRange = errors.New("softgpu: slice out of range")
	ErrSizeMismatch    = errors.New("softgpu: texture size mismatch")
	ErrFormatMismatch  = errors.New("softgpu: texture format mismatch")
	ErrNoRenderTarget  = errors.New("softgpu: no render target bound")
	ErrUnknownKernel   = errors.New("softgpu: unknown kernel")
	ErrUnbound         = errors.New("softgpu: kernel property not bound")
	ErrAlreadyExists   = errors.New("softgpu: texture already exists")
)

type texture struct {
	width     int
	height    int
	layers    int
	format    cmdbuf.Format
	color     []float32
	depth     []float32
	temporary bool
}

func newTexture(width, height, layers int, format cmdbuf.Format, depthBits int) *texture {
	t := &texture{
		width:  width,
		height: height,
		layers: layers,
		format: format,
		color:  make([]float32, width*height*layers*format.Channels()),
	}
	if depthBits > 0 {
		t.depth = make([]float32, width*height)
		for i := range t.depth {
			t.depth[i] = 1
		}
	}
	return t
}

func (t *texture) channels() int { return t.format.Channels() }

func (t *texture) slice(i int) ([]float32, error) {
	if i < 0 || i >= t.layers {
		return nil, fmt.Errorf("%w: %d of %d", ErrSliceOutOfRange, i, t.layers)
	}
	n := t.width * t.height * t.channels()
	return t.color[i*n : (i+1)*n], nil
}

// Device is a CPU implementation of cmdbuf.Device.
// It is not safe for concurrent use.
type Device struct {
	textures map[cmdbuf.TextureID]*texture
	nextID   uint32

	globalTextures map[string]cmdbuf.TextureID
	globalInts     map[string]int32
	globalVectors  map[string]mgl32.Vec4

	view   mgl32.Mat4
	proj   mgl32.Mat4
	colors []cmdbuf.TextureID
	depth  cmdbuf.TextureID

	kernels map[string]*kernelState

	executed   int
	draws      int
	dispatches int

	log *zap.Logger
}

// New creates an empty device.
func New(log *zap.Logger) *Device {
	return &Device{
		textures:       make(map[cmdbuf.TextureID]*texture),
		globalTextures: make(map[string]cmdbuf.TextureID),
		globalInts:     make(map[string]int32),
		globalVectors:  make(map[string]mgl32.Vec4),
		view:           mgl32.Ident4(),
		proj:           mgl32.Ident4(),
		kernels:        newKernels(),
		log:            logger.OrNop(log),
	}
}

// CreateArray creates a persistent texture array.
func (d *Device) CreateArray(width, height, layers int, format cmdbuf.Format) (cmdbuf.TextureID, error) {
	if width <= 0 || height <= 0 || layers <= 0 || format.Channels() == 0 {
		return cmdbuf.NoTexture, fmt.Errorf("softgpu: invalid array %dx%dx%d %s", width, height, layers, format)
	}
	d.nextID++
	id := cmdbuf.TextureID(d.nextID)
	d.textures[id] = newTexture(width, height, layers, format, 0)
	d.log.Debug("array created",
		zap.Stringer("id", id),
		zap.Int("size", width),
		zap.Int("layers", layers),
		zap.Stringer("format", format),
	)
	return id, nil
}

// ReadSlice returns a copy of one slice, row-major, channels interleaved.
func (d *Device) ReadSlice(id cmdbuf.TextureID, slice int) ([]float32, error) {
	t, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	s, err := t.slice(slice)
	if err != nil {
		return nil, err
	}
	return append([]float32(nil), s...), nil
}

// WriteSlice replaces the contents of one slice.
func (d *Device) WriteSlice(id cmdbuf.TextureID, slice int, data []float32) error {
	t, err := d.lookup(id)
	if err != nil {
		return err
	}
	s, err := t.slice(slice)
	if err != nil {
		return err
	}
	if len(data) != len(s) {
		return fmt.Errorf("%w: %d values for slice of %d", ErrSizeMismatch, len(data), len(s))
	}
	copy(s, data)
	return nil
}

// Describe returns the layout of a texture.
func (d *Device) Describe(id cmdbuf.TextureID) (width, height, layers int, format cmdbuf.Format, err error) {
	t, err := d.lookup(id)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return t.width, t.height, t.layers, t.format, nil
}

// LiveTemporaries returns the number of allocated transient surfaces.
func (d *Device) LiveTemporaries() int {
	n := 0
	for _, t := range d.textures {
		if t.temporary {
			n++
		}
	}
	return n
}

// Executed returns the number of commands applied.
func (d *Device) Executed() int { return d.executed }

// Draws returns the number of renderers drawn.
func (d *Device) Draws() int { return d.draws }

// Dispatches returns the number of kernel dispatches run.
func (d *Device) Dispatches() int { return d.dispatches }

func (d *Device) lookup(id cmdbuf.TextureID) (*texture, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cmdbuf.ErrUnknownTexture, id)
	}
	return t, nil
}

// Execute implements cmdbuf.Executor.
func (d *Device) Execute(cmd cmdbuf.Command) error {
	d.executed++

	switch c := cmd.(type) {
	case cmdbuf.GetTemporary:
		if _, ok := d.textures[c.ID]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
		}
		t := newTexture(c.Desc.Width, c.Desc.Height, 1, c.Desc.Format, c.Desc.DepthBits)
		t.temporary = true
		d.textures[c.ID] = t

	case cmdbuf.ReleaseTemporary:
		t, err := d.lookup(c.ID)
		if err != nil {
			return err
		}
		if !t.temporary {
			return fmt.Errorf("softgpu: release of persistent texture %s", c.ID)
		}
		delete(d.textures, c.ID)

	case cmdbuf.CopySlice:
		return d.copySlice(c)

	case cmdbuf.SetGlobalTexture:
		d.globalTextures[c.Property] = c.Texture
	case cmdbuf.SetGlobalInt:
		d.globalInts[c.Property] = c.Value
	case cmdbuf.SetGlobalVector:
		d.globalVectors[c.Property] = c.Value

	case cmdbuf.SetViewProjection:
		d.view, d.proj = c.View, c.Projection

	case cmdbuf.SetRenderTargets:
		return d.setRenderTargets(c)
	case cmdbuf.ClearRenderTarget:
		return d.clear(c)
	case cmdbuf.DrawRenderers:
		return d.drawRenderers(c)

	case cmdbuf.SetComputeTexture:
		k, err := d.kernel(c.Kernel)
		if err != nil {
			return err
		}
		k.textures[c.Property] = c.Texture
	case cmdbuf.SetComputeInt:
		k, err := d.kernel(c.Kernel)
		if err != nil {
			return err
		}
		k.ints[c.Property] = c.Value
	case cmdbuf.DispatchCompute:
		return d.dispatch(c)

	default:
		return fmt.Errorf("%w: %s", cmdbuf.ErrUnsupportedCommand, cmd.Name())
	}
	return nil
}

func (d *Device) copySlice(c cmdbuf.CopySlice) error {
	src, err := d.lookup(c.Src)
	if err != nil {
		return err
	}
	dst, err := d.lookup(c.Dst)
	if err != nil {
		return err
	}
	if src.width != dst.width || src.height != dst.height {
		return fmt.Errorf("%w: %dx%d -> %dx%d", ErrSizeMismatch, src.width, src.height, dst.width, dst.height)
	}
	if src.format != dst.format {
		return fmt.Errorf("%w: %s -> %s", ErrFormatMismatch, src.format, dst.format)
	}
	from, err := src.slice(c.SrcSlice)
	if err != nil {
		return err
	}
	to, err := dst.slice(c.DstSlice)
	if err != nil {
		return err
	}
	copy(to, from)
	return nil
}
