package tileupdate

import (
	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
)

// composite records the single dispatch that writes the staged color
// surfaces into the request's slice of the persistent layers.
func (e *Engine) composite(buf *cmdbuf.Buffer, req *Request, t jobTargets) {
	k := shaderid.CompositeDecal
	buf.SetComputeTexture(k, shaderid.VirtualMainTex, req.AlbedoTarget)
	buf.SetComputeTexture(k, shaderid.VirtualBumpMap, req.NormalTarget)
	buf.SetComputeTexture(k, shaderid.VirtualSMO, req.SurfaceTarget)
	buf.SetComputeTexture(k, shaderid.DecalAlbedo, t.albedo)
	buf.SetComputeTexture(k, shaderid.DecalNormal, t.normal)
	buf.SetComputeTexture(k, shaderid.DecalSMO, t.surface)
	buf.SetComputeInt(k, shaderid.Count, int32(req.Slice))

	groups := DispatchGroups(e.opts.ColorResolution, shaderid.CompositeGroupSize)
	buf.DispatchCompute(k, groups, groups, 1)
}

// DispatchGroups returns the number of groups of edge size needed to cover
// resolution texels.
func DispatchGroups(resolution, size int) uint32 {
	if resolution <= 0 || size <= 0 {
		return 0
	}
	return uint32((resolution + size - 1) / size)
}
