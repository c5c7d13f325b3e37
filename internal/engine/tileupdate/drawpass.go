package tileupdate

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
	"github.com/Faultbox/midgard-vt/internal/engine/terrain"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

func (e *Engine) filter(tag string, mask uint32) visibility.Filter {
	return visibility.Filter{
		Tag:                tag,
		QueueMin:           e.opts.QueueMin,
		QueueMax:           e.opts.QueueMax,
		LayerMask:          mask,
		RenderingLayerMask: ^uint32(0),
	}
}

// drawDisplacement renders height geometry into the height staging surface.
func (e *Engine) drawDisplacement(buf *cmdbuf.Buffer, vis *visibility.Result, req *Request, t jobTargets) {
	buf.SetGlobalTexture(shaderid.VirtualHeightmap, req.HeightTarget)
	buf.SetGlobalInt(shaderid.OffsetIndex, int32(req.Slice))
	buf.SetGlobalVector(shaderid.HeightScaleOffset, terrain.ScaleOffset(e.terrain))

	buf.SetRenderTargets([]cmdbuf.TextureID{t.height}, t.height)
	buf.ClearRenderTarget(true, e.opts.HeightClear == HeightClearZero, mgl32.Vec4{})
	buf.DrawRenderers(vis, e.filter(e.opts.DisplacementTag, req.VisibilityMask), cmdbuf.PassDisplacement, cmdbuf.PerObjectNone)
}

// drawDecals renders decal geometry into the three color staging surfaces.
func (e *Engine) drawDecals(buf *cmdbuf.Buffer, vis *visibility.Result, req *Request, t jobTargets) {
	buf.SetRenderTargets([]cmdbuf.TextureID{t.albedo, t.normal, t.surface}, t.albedo)
	buf.ClearRenderTarget(true, true, mgl32.Vec4{})
	buf.DrawRenderers(vis, e.filter(e.opts.DecalTag, req.VisibilityMask), cmdbuf.PassDecal, cmdbuf.PerObjectNone)
}
