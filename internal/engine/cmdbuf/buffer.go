// Package cmdbuf records GPU work into one ordered command sequence and
// plays it back on an executor.
//
// Recording never touches the GPU. Correctness of the recorded work relies
// only on command order: an executor must apply commands strictly in the
// order they were recorded.
package cmdbuf

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

// Executor errors.
var (
	// ErrUnknownTexture is returned when a command names a texture the executor does not hold.
	ErrUnknownTexture = errors.New("cmdbuf: unknown texture")

	// ErrUnsupportedCommand is returned by executors for commands they cannot apply.
	ErrUnsupportedCommand = errors.New("cmdbuf: unsupported command")
)

// Executor applies recorded commands to a device.
type Executor interface {
	Execute(cmd Command) error
}

// Describer reports the layout of textures a device holds.
type Describer interface {
	Describe(id TextureID) (width, height, layers int, format Format, err error)
}

// Device is an executor that also owns persistent texture arrays.
type Device interface {
	Executor
	Describer
	CreateArray(width, height, layers int, format Format) (TextureID, error)
	ReadSlice(id TextureID, slice int) ([]float32, error)
	WriteSlice(id TextureID, slice int, data []float32) error
}

// Buffer is an ordered, appendable command sequence.
// It is not safe for concurrent use.
type Buffer struct {
	name string
	cmds []Command
}

// NewBuffer creates an empty buffer.
func NewBuffer(name string) *Buffer {
	return &Buffer{name: name}
}

// Name returns the label given at creation.
func (b *Buffer) Name() string { return b.name }

// Len returns the number of recorded commands.
func (b *Buffer) Len() int { return len(b.cmds) }

// Commands returns the recorded commands in order.
func (b *Buffer) Commands() []Command { return b.cmds }

// Reset drops every recorded command.
func (b *Buffer) Reset() {
	clear(b.cmds)
	b.cmds = b.cmds[:0]
}

// Rewind drops every command recorded after mark, a value previously
// returned by Len.
func (b *Buffer) Rewind(mark int) {
	if mark < 0 || mark >= len(b.cmds) {
		return
	}
	clear(b.cmds[mark:])
	b.cmds = b.cmds[:mark]
}

func (b *Buffer) add(c Command) { b.cmds = append(b.cmds, c) }

// GetTemporary records a transient surface allocation.
func (b *Buffer) GetTemporary(id TextureID, desc SurfaceDesc) {
	b.add(GetTemporary{ID: id, Desc: desc})
}

// ReleaseTemporary records a transient surface release.
func (b *Buffer) ReleaseTemporary(id TextureID) {
	b.add(ReleaseTemporary{ID: id})
}

// CopySlice records a slice-to-slice texture copy.
func (b *Buffer) CopySlice(src TextureID, srcSlice int, dst TextureID, dstSlice int) {
	b.add(CopySlice{Src: src, SrcSlice: srcSlice, Dst: dst, DstSlice: dstSlice})
}

// SetGlobalTexture records a global texture binding.
func (b *Buffer) SetGlobalTexture(property string, tex TextureID) {
	b.add(SetGlobalTexture{Property: property, Texture: tex})
}

// SetGlobalInt records a global integer.
func (b *Buffer) SetGlobalInt(property string, v int32) {
	b.add(SetGlobalInt{Property: property, Value: v})
}

// SetGlobalVector records a global vector.
func (b *Buffer) SetGlobalVector(property string, v mgl32.Vec4) {
	b.add(SetGlobalVector{Property: property, Value: v})
}

// SetViewProjection records the camera matrices.
func (b *Buffer) SetViewProjection(view, proj mgl32.Mat4) {
	b.add(SetViewProjection{View: view, Projection: proj})
}

// SetRenderTargets records a render target binding.
func (b *Buffer) SetRenderTargets(colors []TextureID, depth TextureID) {
	b.add(SetRenderTargets{Colors: append([]TextureID(nil), colors...), Depth: depth})
}

// ClearRenderTarget records a clear of the bound targets.
func (b *Buffer) ClearRenderTarget(clearDepth, clearColor bool, color mgl32.Vec4) {
	b.add(ClearRenderTarget{ClearDepth: clearDepth, ClearColor: clearColor, Color: color})
}

// DrawRenderers records a filtered draw of a visibility result.
func (b *Buffer) DrawRenderers(vis *visibility.Result, filter visibility.Filter, kind PassKind, perObject PerObjectData) {
	b.add(DrawRenderers{Visible: vis, Filter: filter, Kind: kind, PerObject: perObject})
}

// SetComputeTexture records a kernel texture binding.
func (b *Buffer) SetComputeTexture(kernel, property string, tex TextureID) {
	b.add(SetComputeTexture{Kernel: kernel, Property: property, Texture: tex})
}

// SetComputeInt records a kernel scalar.
func (b *Buffer) SetComputeInt(kernel, property string, v int32) {
	b.add(SetComputeInt{Kernel: kernel, Property: property, Value: v})
}

// DispatchCompute records a kernel dispatch.
func (b *Buffer) DispatchCompute(kernel string, x, y, z uint32) {
	b.add(DispatchCompute{Kernel: kernel, GroupsX: x, GroupsY: y, GroupsZ: z})
}

// Execute plays every command of b on exec in order and stops at the
// first failure.
func Execute(b *Buffer, exec Executor) error {
	for i, c := range b.cmds {
		if err := exec.Execute(c); err != nil {
			return fmt.Errorf("%s: command %d (%s): %w", b.name, i, c.Name(), err)
		}
	}
	return nil
}
