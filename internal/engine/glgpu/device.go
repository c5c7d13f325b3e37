// Package glgpu executes recorded command sequences with OpenGL 4.3.
//
// A Device must be created and used on the thread that owns the current
// GL context. Every texture, temporaries included, is a 2D array texture,
// so slice copies and layered image binds take one code path.
package glgpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-vt/internal/engine/glgpu/shaders"
	"github.com/Faultbox/midgard-vt/internal/engine/shader"
	"github.com/Faultbox/midgard-vt/internal/logger"
)

// Device errors.
var (
	ErrSliceOutOfRange = errors.New("glgpu: slice out of range")
	ErrSizeMismatch    = errors.New("glgpu: texture size mismatch")
	ErrFormatMismatch  = errors.New("glgpu: texture format mismatch")
	ErrNoRenderTarget  = errors.New("glgpu: no render target bound")
	ErrUnknownKernel   = errors.New("glgpu: unknown kernel")
	ErrUnbound         = errors.New("glgpu: kernel property not bound")
	ErrAlreadyExists   = errors.New("glgpu: texture already exists")
)

type texture struct {
	name      uint32
	depth     uint32
	width     int
	height    int
	layers    int
	format    cmdbuf.Format
	glf       glFormat
	temporary bool
}

func (t *texture) layer(i int) (framebuffer.Layer, error) {
	if i < 0 || i >= t.layers {
		return framebuffer.Layer{}, fmt.Errorf("%w: %d of %d", ErrSliceOutOfRange, i, t.layers)
	}
	return framebuffer.Layer{Texture: t.name, Index: int32(i)}, nil
}

// Device is an OpenGL implementation of cmdbuf.Device.
type Device struct {
	textures map[cmdbuf.TextureID]*texture
	nextID   uint32

	draw *framebuffer.Framebuffer
	read *framebuffer.Framebuffer

	decal      uint32
	decalU     *shader.Uniforms
	composite  uint32
	compositeU *shader.Uniforms
	vao, vbo   uint32

	globalTextures map[string]cmdbuf.TextureID
	globalInts     map[string]int32
	globalVectors  map[string]mgl32.Vec4

	viewProj mgl32.Mat4
	depthOn  bool
	targets  bool

	kernels    map[string]*kernelState
	dispatches int

	log *zap.Logger
}

// New loads GL entry points, compiles the pass programs and returns a
// device. A GL 4.3 context must be current.
func New(log *zap.Logger) (*Device, error) {
	log = logger.OrNop(log)

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	d := &Device{
		textures:       make(map[cmdbuf.TextureID]*texture),
		globalTextures: make(map[string]cmdbuf.TextureID),
		globalInts:     make(map[string]int32),
		globalVectors:  make(map[string]mgl32.Vec4),
		viewProj:       mgl32.Ident4(),
		kernels:        newKernels(),
		log:            log,
	}

	var err error
	if d.decal, err = shader.CompileProgram(shaders.DecalVertexShader, shaders.DecalFragmentShader); err != nil {
		return nil, fmt.Errorf("decal program: %w", err)
	}
	d.decalU = shader.NewUniforms(d.decal)

	if d.composite, err = shader.CompileCompute(shaders.CompositeComputeShader); err != nil {
		gl.DeleteProgram(d.decal)
		return nil, fmt.Errorf("composite program: %w", err)
	}
	d.compositeU = shader.NewUniforms(d.composite)

	gl.GenVertexArrays(1, &d.vao)
	gl.GenBuffers(1, &d.vbo)
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 12*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.BindVertexArray(0)

	d.draw = framebuffer.New()
	d.read = framebuffer.New()

	gl.Enable(gl.FRAMEBUFFER_SRGB)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)

	return d, nil
}

// Close releases every GL object owned by the device.
func (d *Device) Close() {
	for id, t := range d.textures {
		d.deleteTexture(t)
		delete(d.textures, id)
	}
	d.draw.Destroy()
	d.read.Destroy()
	gl.DeleteBuffers(1, &d.vbo)
	gl.DeleteVertexArrays(1, &d.vao)
	gl.DeleteProgram(d.decal)
	gl.DeleteProgram(d.composite)
}

func (d *Device) newTexture(width, height, layers int, format cmdbuf.Format, desc cmdbuf.SurfaceDesc) (*texture, error) {
	f, err := formatFor(format, desc.Linear)
	if err != nil {
		return nil, err
	}
	t := &texture{width: width, height: height, layers: layers, format: format, glf: f}

	gl.GenTextures(1, &t.name)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, t.name)
	gl.TexStorage3D(gl.TEXTURE_2D_ARRAY, 1, f.internal, int32(width), int32(height), int32(layers))
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, filterFor(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, filterFor(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	if desc.DepthBits > 0 {
		df, err := depthFormat(desc.DepthBits)
		if err != nil {
			gl.DeleteTextures(1, &t.name)
			return nil, err
		}
		gl.GenTextures(1, &t.depth)
		gl.BindTexture(gl.TEXTURE_2D, t.depth)
		gl.TexStorage2D(gl.TEXTURE_2D, 1, df, int32(width), int32(height))
	}
	return t, nil
}

func (d *Device) deleteTexture(t *texture) {
	gl.DeleteTextures(1, &t.name)
	if t.depth != 0 {
		gl.DeleteTextures(1, &t.depth)
	}
}

// CreateArray creates a persistent texture array.
func (d *Device) CreateArray(width, height, layers int, format cmdbuf.Format) (cmdbuf.TextureID, error) {
	if width <= 0 || height <= 0 || layers <= 0 {
		return cmdbuf.NoTexture, fmt.Errorf("glgpu: invalid array %dx%dx%d", width, height, layers)
	}
	t, err := d.newTexture(width, height, layers, format, cmdbuf.SurfaceDesc{Linear: true, Filter: cmdbuf.FilterBilinear})
	if err != nil {
		return cmdbuf.NoTexture, err
	}
	d.nextID++
	id := cmdbuf.TextureID(d.nextID)
	d.textures[id] = t
	d.log.Debug("array created", zap.Stringer("id", id), zap.Int("size", width), zap.Int("layers", layers), zap.Stringer("format", format))
	return id, nil
}

// ReadSlice returns one slice, row-major from the bottom row, channels interleaved.
func (d *Device) ReadSlice(id cmdbuf.TextureID, slice int) ([]float32, error) {
	t, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	l, err := t.layer(slice)
	if err != nil {
		return nil, err
	}
	out := make([]float32, t.width*t.height*t.format.Channels())
	d.read.ReadLayer(l, int32(t.width), int32(t.height), t.glf.pixel, out)
	return out, nil
}

// WriteSlice replaces the contents of one slice.
func (d *Device) WriteSlice(id cmdbuf.TextureID, slice int, data []float32) error {
	t, err := d.lookup(id)
	if err != nil {
		return err
	}
	if _, err := t.layer(slice); err != nil {
		return err
	}
	if n := t.width * t.height * t.format.Channels(); len(data) != n {
		return fmt.Errorf("%w: %d values for slice of %d", ErrSizeMismatch, len(data), n)
	}
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, t.name)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage3D(gl.TEXTURE_2D_ARRAY, 0, 0, 0, int32(slice), int32(t.width), int32(t.height), 1, t.glf.pixel, gl.FLOAT, gl.Ptr(data))
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

// Dispatches returns the number of kernel dispatches run.
func (d *Device) Dispatches() int { return d.dispatches }

// Finish blocks until the GPU has completed every submitted command.
func (d *Device) Finish() { gl.Finish() }

func (d *Device) lookup(id cmdbuf.TextureID) (*texture, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cmdbuf.ErrUnknownTexture, id)
	}
	return t, nil
}

// Execute implements cmdbuf.Executor.
func (d *Device) Execute(cmd cmdbuf.Command) error {
	switch c := cmd.(type) {
	case cmdbuf.GetTemporary:
		if _, ok := d.textures[c.ID]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
		}
		t, err := d.newTexture(c.Desc.Width, c.Desc.Height, 1, c.Desc.Format, c.Desc)
		if err != nil {
			return err
		}
		t.temporary = true
		d.textures[c.ID] = t

	case cmdbuf.ReleaseTemporary:
		t, err := d.lookup(c.ID)
		if err != nil {
			return err
		}
		if !t.temporary {
			return fmt.Errorf("glgpu: release of persistent texture %s", c.ID)
		}
		d.deleteTexture(t)
		delete(d.textures, c.ID)
		d.targets = false

	case cmdbuf.CopySlice:
		return d.copySlice(c)

	case cmdbuf.SetGlobalTexture:
		d.globalTextures[c.Property] = c.Texture
	case cmdbuf.SetGlobalInt:
		d.globalInts[c.Property] = c.Value
	case cmdbuf.SetGlobalVector:
		d.globalVectors[c.Property] = c.Value

	case cmdbuf.SetViewProjection:
		d.viewProj = c.Projection.Mul4(c.View)

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
	if _, err := src.layer(c.SrcSlice); err != nil {
		return err
	}
	if _, err := dst.layer(c.DstSlice); err != nil {
		return err
	}
	gl.CopyImageSubData(
		src.name, gl.TEXTURE_2D_ARRAY, 0, 0, 0, int32(c.SrcSlice),
		dst.name, gl.TEXTURE_2D_ARRAY, 0, 0, 0, int32(c.DstSlice),
		int32(src.width), int32(src.height), 1,
	)
	return nil
}
