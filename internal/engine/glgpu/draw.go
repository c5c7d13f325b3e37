package glgpu

import (
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

// Texture unit used for global texture bindings during draws.
const globalTextureUnit = 4

func (d *Device) setRenderTargets(c cmdbuf.SetRenderTargets) error {
	if len(c.Colors) == 0 {
		return ErrNoRenderTarget
	}
	layers := make([]framebuffer.Layer, len(c.Colors))
	var w, h int
	for i, id := range c.Colors {
		t, err := d.lookup(id)
		if err != nil {
			return err
		}
		if i == 0 {
			w, h = t.width, t.height
		} else if t.width != w || t.height != h {
			return ErrSizeMismatch
		}
		layers[i] = framebuffer.Layer{Texture: t.name}
	}

	var depth uint32
	if c.Depth != cmdbuf.NoTexture {
		t, err := d.lookup(c.Depth)
		if err != nil {
			return err
		}
		depth = t.depth
	}

	if err := d.draw.Attach(layers, depth, int32(w), int32(h)); err != nil {
		return err
	}
	d.depthOn = depth != 0
	d.targets = true
	return nil
}

func (d *Device) clear(c cmdbuf.ClearRenderTarget) error {
	if !d.targets {
		return ErrNoRenderTarget
	}
	return d.draw.Clear(c.ClearColor, c.ClearDepth && d.depthOn, c.Color)
}

func (d *Device) drawRenderers(c cmdbuf.DrawRenderers) error {
	if !d.targets {
		return ErrNoRenderTarget
	}
	if err := d.draw.Bind(); err != nil {
		return err
	}

	if d.depthOn {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		gl.DepthMask(true)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	gl.UseProgram(d.decal)
	gl.UniformMatrix4fv(d.decalU.Location("uViewProj"), 1, false, &d.viewProj[0])
	d.applyGlobals()

	pass := int32(0)
	if c.Kind == cmdbuf.PassDisplacement {
		pass = 1
	}
	gl.Uniform1i(d.decalU.Location("uPass"), pass)

	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	for _, r := range c.Visible.Select(c.Filter) {
		d.drawRenderer(r)
	}
	gl.BindVertexArray(0)
	return nil
}

func (d *Device) drawRenderer(r *visibility.Renderer) {
	m := r.Material
	gl.Uniform4fv(d.decalU.Location("uAlbedo"), 1, &m.Albedo[0])
	gl.Uniform2fv(d.decalU.Location("uNormal"), 1, &m.Normal[0])
	gl.Uniform4fv(d.decalU.Location("uSurface"), 1, &m.Surface[0])
	gl.Uniform1f(d.decalU.Location("uHeight"), m.Height)

	quad := topFace(r.Bounds)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(quad)*4, gl.Ptr(&quad[0]))
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

// applyGlobals uploads every global property to the decal program.
func (d *Device) applyGlobals() {
	so, ok := d.globalVectors[shaderid.HeightScaleOffset]
	if !ok {
		so = mgl32.Vec4{1, 0, 1, 1}
	}
	gl.Uniform4fv(d.decalU.Location(shaderid.HeightScaleOffset), 1, &so[0])

	for name, v := range d.globalVectors {
		if name == shaderid.HeightScaleOffset {
			continue
		}
		gl.Uniform4fv(d.decalU.Location(name), 1, &v[0])
	}
	for name, v := range d.globalInts {
		gl.Uniform1i(d.decalU.Location(name), v)
	}

	unit := int32(globalTextureUnit)
	for name, id := range d.globalTextures {
		t, err := d.lookup(id)
		if err != nil {
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, t.name)
		gl.Uniform1i(d.decalU.Location(name), unit)
		unit++
	}
}
