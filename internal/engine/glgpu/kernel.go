package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
)

type kernelState struct {
	textures map[string]cmdbuf.TextureID
	ints     map[string]int32
}

func newKernels() map[string]*kernelState {
	return map[string]*kernelState{
		shaderid.CompositeDecal: {
			textures: make(map[string]cmdbuf.TextureID),
			ints:     make(map[string]int32),
		},
	}
}

func (d *Device) kernel(name string) (*kernelState, error) {
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKernel, name)
	}
	return k, nil
}

func (d *Device) bound(k *kernelState, property string) (*texture, error) {
	id, ok := k.textures[property]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, property)
	}
	return d.lookup(id)
}

// dispatch runs the composite kernel. Staging surfaces are sampled from
// texture units and persistent layers are written through image units,
// both indexed by position in shaderid.CompositePairs.
func (d *Device) dispatch(c cmdbuf.DispatchCompute) error {
	k, err := d.kernel(c.Kernel)
	if err != nil {
		return err
	}
	slice := int(k.ints[shaderid.Count])

	gl.UseProgram(d.composite)
	for i, pair := range shaderid.CompositePairs {
		src, err := d.bound(k, pair[0])
		if err != nil {
			return err
		}
		dst, err := d.bound(k, pair[1])
		if err != nil {
			return err
		}
		if src.width != dst.width || src.height != dst.height {
			return fmt.Errorf("%w: %s %dx%d -> %s %dx%d", ErrSizeMismatch,
				pair[0], src.width, src.height, pair[1], dst.width, dst.height)
		}
		if _, err := dst.layer(slice); err != nil {
			return fmt.Errorf("%s: %w", pair[1], err)
		}

		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, src.name)
		gl.BindImageTexture(uint32(i), dst.name, 0, true, 0, gl.WRITE_ONLY, dst.glf.internal)
	}
	gl.Uniform1i(d.compositeU.Location(shaderid.Count), int32(slice))

	gl.DispatchCompute(c.GroupsX, c.GroupsY, c.GroupsZ)
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT |
		gl.TEXTURE_UPDATE_BARRIER_BIT | gl.FRAMEBUFFER_BARRIER_BIT)
	d.dispatches++
	return nil
}
