package softgpu

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
	"github.com/Faultbox/midgard-vt/internal/engine/terrain"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

func (d *Device) setRenderTargets(c cmdbuf.SetRenderTargets) error {
	if len(c.Colors) == 0 {
		return ErrNoRenderTarget
	}
	first, err := d.lookup(c.Colors[0])
	if err != nil {
		return err
	}
	for _, id := range c.Colors[1:] {
		t, err := d.lookup(id)
		if err != nil {
			return err
		}
		if t.width != first.width || t.height != first.height {
			return ErrSizeMismatch
		}
	}
	if c.Depth != cmdbuf.NoTexture {
		if _, err := d.lookup(c.Depth); err != nil {
			return err
		}
	}
	d.colors = append(d.colors[:0], c.Colors...)
	d.depth = c.Depth
	return nil
}

func (d *Device) boundTargets() ([]*texture, []float32, error) {
	if len(d.colors) == 0 {
		return nil, nil, ErrNoRenderTarget
	}
	targets := make([]*texture, len(d.colors))
	for i, id := range d.colors {
		t, err := d.lookup(id)
		if err != nil {
			return nil, nil, err
		}
		targets[i] = t
	}
	var depth []float32
	if d.depth != cmdbuf.NoTexture {
		t, err := d.lookup(d.depth)
		if err != nil {
			return nil, nil, err
		}
		depth = t.depth
	}
	return targets, depth, nil
}

func (d *Device) clear(c cmdbuf.ClearRenderTarget) error {
	targets, depth, err := d.boundTargets()
	if err != nil {
		return err
	}
	if c.ClearColor {
		for _, t := range targets {
			ch := t.channels()
			s, _ := t.slice(0)
			for i := range s {
				s[i] = c.Color[i%ch]
			}
		}
	}
	if c.ClearDepth {
		for i := range depth {
			depth[i] = 1
		}
	}
	return nil
}

// shade returns the per-target outputs of r for a pass.
func (d *Device) shade(r *visibility.Renderer, kind cmdbuf.PassKind) []mgl32.Vec4 {
	m := r.Material
	if kind == cmdbuf.PassDisplacement {
		so, ok := d.globalVectors[shaderid.HeightScaleOffset]
		if !ok {
			so = mgl32.Vec4{1, 0, 1, 1}
		}
		return []mgl32.Vec4{{terrain.Encode(so, m.Height), 0, 0, 0}}
	}
	return []mgl32.Vec4{
		m.Albedo,
		{m.Normal.X(), m.Normal.Y(), 0, 0},
		m.Surface,
	}
}

func (d *Device) drawRenderers(c cmdbuf.DrawRenderers) error {
	targets, depth, err := d.boundTargets()
	if err != nil {
		return err
	}
	vp := d.proj.Mul4(d.view)
	for _, r := range c.Visible.Select(c.Filter) {
		d.fill(targets, depth, vp, r, d.shade(r, c.Kind))
		d.draws++
	}
	return nil
}

// fill rasterizes the top face of r's bounds with a LEQUAL depth test.
// Row 0 is the bottom of the image.
func (d *Device) fill(targets []*texture, depth []float32, vp mgl32.Mat4, r *visibility.Renderer, out []mgl32.Vec4) {
	b := r.Bounds
	top := b.Max.Y()

	minX, minY := float32(gomath.Inf(1)), float32(gomath.Inf(1))
	maxX, maxY := float32(gomath.Inf(-1)), float32(gomath.Inf(-1))
	z := float32(gomath.Inf(1))
	for _, p := range [4]mgl32.Vec3{
		{b.Min.X(), top, b.Min.Z()},
		{b.Max.X(), top, b.Min.Z()},
		{b.Min.X(), top, b.Max.Z()},
		{b.Max.X(), top, b.Max.Z()},
	} {
		c := vp.Mul4x1(p.Vec4(1))
		x, y, pz := c[0]/c[3], c[1]/c[3], c[2]/c[3]
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
		z = min(z, pz)
	}
	if z < -1 || z > 1 {
		return
	}
	dz := z*0.5 + 0.5

	w, h := targets[0].width, targets[0].height
	x0, x1 := pixelSpan(minX, maxX, w)
	y0, y1 := pixelSpan(minY, maxY, h)

	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			idx := py*w + px
			if depth != nil {
				if dz > depth[idx] {
					continue
				}
				depth[idx] = dz
			}
			for i, t := range targets {
				if i >= len(out) {
					break
				}
				ch := t.channels()
				s, _ := t.slice(0)
				for k := 0; k < ch; k++ {
					s[idx*ch+k] = out[i][k]
				}
			}
		}
	}
}

// pixelSpan returns the inclusive range of pixels whose centers lie in
// [lo, hi] (NDC), clamped to the image. Empty spans return lo > hi.
func pixelSpan(lo, hi float32, n int) (int, int) {
	first := int(gomath.Ceil(float64((lo+1)/2*float32(n) - 0.5)))
	last := int(gomath.Floor(float64((hi+1)/2*float32(n) - 0.5)))
	return max(first, 0), min(last, n-1)
}
