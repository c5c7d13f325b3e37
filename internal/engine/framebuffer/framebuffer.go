// Package framebuffer provides OpenGL framebuffer utilities for offscreen
// rendering into texture array layers.
package framebuffer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// MaxColorAttachments is the number of color targets Attach accepts.
const MaxColorAttachments = 4

// Layer names one layer of a texture array.
type Layer struct {
	Texture uint32
	Index   int32
}

// Framebuffer manages an offscreen render target whose attachments are
// swapped per pass.
type Framebuffer struct {
	fbo    uint32
	colors int
	width  int32
	height int32
}

// New creates a framebuffer with no attachments.
func New() *Framebuffer {
	fb := &Framebuffer{}
	gl.GenFramebuffers(1, &fb.fbo)
	return fb
}

// Attach replaces the attachments. depth is a 2D depth texture or 0.
// All attachments must be width x height.
func (fb *Framebuffer) Attach(colors []Layer, depth uint32, width, height int32) error {
	if len(colors) == 0 || len(colors) > MaxColorAttachments {
		return fmt.Errorf("framebuffer: %d color attachments", len(colors))
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	drawBuffers := make([]uint32, len(colors))
	for i := 0; i < MaxColorAttachments; i++ {
		att := uint32(gl.COLOR_ATTACHMENT0 + i)
		if i < len(colors) {
			gl.FramebufferTextureLayer(gl.FRAMEBUFFER, att, colors[i].Texture, 0, colors[i].Index)
			drawBuffers[i] = att
		} else {
			gl.FramebufferTextureLayer(gl.FRAMEBUFFER, att, 0, 0, 0)
		}
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depth, 0)
	gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}

	fb.colors = len(colors)
	fb.width, fb.height = width, height
	return nil
}

// Bind makes this framebuffer the current render target.
func (fb *Framebuffer) Bind() error {
	if fb.colors == 0 {
		return errors.New("framebuffer: nothing attached")
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)
	return nil
}

// Clear clears every color attachment to c and, if depth is set, the depth
// attachment to 1.
func (fb *Framebuffer) Clear(color, depth bool, c [4]float32) error {
	if err := fb.Bind(); err != nil {
		return err
	}
	if color {
		for i := 0; i < fb.colors; i++ {
			gl.ClearBufferfv(gl.COLOR, int32(i), &c[0])
		}
	}
	if depth {
		one := float32(1)
		gl.DepthMask(true)
		gl.ClearBufferfv(gl.DEPTH, 0, &one)
	}
	return nil
}

// ReadLayer reads one texture array layer into dst, which must hold
// width*height texels of the given pixel format as float32.
func (fb *Framebuffer) ReadLayer(l Layer, width, height int32, format uint32, dst []float32) {
	var prevFBO int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prevFBO)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)
	gl.FramebufferTextureLayer(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, l.Texture, 0, l.Index)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, width, height, format, gl.FLOAT, gl.Ptr(dst))

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prevFBO))
	// The draw attachments are stale now.
	fb.colors = 0
}

// Unbind restores the default framebuffer.
func (fb *Framebuffer) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Destroy releases the framebuffer object.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
}
