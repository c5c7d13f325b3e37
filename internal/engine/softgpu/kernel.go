package softgpu

import (
	"fmt"

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

func (d *Device) dispatch(c cmdbuf.DispatchCompute) error {
	k, err := d.kernel(c.Kernel)
	if err != nil {
		return err
	}
	d.dispatches++
	return d.composite(k, int(c.GroupsX)*shaderid.CompositeGroupSize, int(c.GroupsY)*shaderid.CompositeGroupSize)
}

// composite copies each staging surface into slice _Count of its persistent
// layer. Destination channels the staging surface lacks are written as zero,
// so every channel of a covered texel comes from this dispatch. Threads
// outside the destination do nothing.
func (d *Device) composite(k *kernelState, threadsX, threadsY int) error {
	slice := int(k.ints[shaderid.Count])

	for _, pair := range shaderid.CompositePairs {
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
		to, err := dst.slice(slice)
		if err != nil {
			return fmt.Errorf("%s: %w", pair[1], err)
		}
		from, _ := src.slice(0)

		sc, dc := src.channels(), dst.channels()
		n := min(sc, dc)
		for y := 0; y < min(threadsY, dst.height); y++ {
			for x := 0; x < min(threadsX, dst.width); x++ {
				i := y*dst.width + x
				for ch := 0; ch < n; ch++ {
					to[i*dc+ch] = from[i*sc+ch]
				}
				for ch := n; ch < dc; ch++ {
					to[i*dc+ch] = 0
				}
			}
		}
	}
	return nil
}

func (d *Device) bound(k *kernelState, property string) (*texture, error) {
	id, ok := k.textures[property]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, property)
	}
	return d.lookup(id)
}
