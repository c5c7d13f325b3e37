package surface

import "github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"

// Staging surface classes of a tile job.

// AlbedoStaging is the color-class target for albedo. It carries the depth
// attachment shared by the decal pass and is interpreted as sRGB.
func AlbedoStaging(res int) cmdbuf.SurfaceDesc {
	return cmdbuf.SurfaceDesc{
		Width:     res,
		Height:    res,
		DepthBits: 16,
		Format:    cmdbuf.FormatRGBA8,
		Filter:    cmdbuf.FilterPoint,
	}
}

// NormalStaging is the two-channel color-class target for tangent normals.
func NormalStaging(res int) cmdbuf.SurfaceDesc {
	return cmdbuf.SurfaceDesc{
		Width:  res,
		Height: res,
		Format: cmdbuf.FormatRG16F,
		Filter: cmdbuf.FilterPoint,
		Linear: true,
	}
}

// SurfaceStaging is the color-class target for smoothness, metallic and occlusion.
func SurfaceStaging(res int) cmdbuf.SurfaceDesc {
	return cmdbuf.SurfaceDesc{
		Width:  res,
		Height: res,
		Format: cmdbuf.FormatRGBA8,
		Filter: cmdbuf.FilterPoint,
		Linear: true,
	}
}

// HeightStaging is the height-class target.
func HeightStaging(res int) cmdbuf.SurfaceDesc {
	return cmdbuf.SurfaceDesc{
		Width:     res,
		Height:    res,
		DepthBits: 16,
		Format:    cmdbuf.FormatR16F,
		Filter:    cmdbuf.FilterBilinear,
		Linear:    true,
	}
}
