package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

// glFormat is the GL storage and transfer format of a texel format.
type glFormat struct {
	internal uint32
	pixel    uint32
}

func formatFor(f cmdbuf.Format, linear bool) (glFormat, error) {
	switch f {
	case cmdbuf.FormatRGBA8:
		if !linear {
			return glFormat{gl.SRGB8_ALPHA8, gl.RGBA}, nil
		}
		return glFormat{gl.RGBA8, gl.RGBA}, nil
	case cmdbuf.FormatRG16F:
		return glFormat{gl.RG16F, gl.RG}, nil
	case cmdbuf.FormatR16F:
		return glFormat{gl.R16F, gl.RED}, nil
	case cmdbuf.FormatR32F:
		return glFormat{gl.R32F, gl.RED}, nil
	default:
		return glFormat{}, fmt.Errorf("glgpu: unsupported format %s", f)
	}
}

func depthFormat(bits int) (uint32, error) {
	switch bits {
	case 16:
		return gl.DEPTH_COMPONENT16, nil
	case 24:
		return gl.DEPTH_COMPONENT24, nil
	case 32:
		return gl.DEPTH_COMPONENT32F, nil
	default:
		return 0, fmt.Errorf("glgpu: unsupported depth bits %d", bits)
	}
}

func filterFor(f cmdbuf.Filter) int32 {
	if f == cmdbuf.FilterBilinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// topFace returns the triangle strip covering the top face of b.
func topFace(b visibility.AABB) [12]float32 {
	y := b.Max.Y()
	return [12]float32{
		b.Min.X(), y, b.Min.Z(),
		b.Max.X(), y, b.Min.Z(),
		b.Min.X(), y, b.Max.Z(),
		b.Max.X(), y, b.Max.Z(),
	}
}
