package softgpu

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/shaderid"
	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

const res = 8

func topDown(t *testing.T) viewpoint.Setup {
	t.Helper()
	s, err := viewpoint.Viewpoint{
		Position:  mgl32.Vec3{0, 10, 0},
		Rotation:  viewpoint.LookDown(),
		OrthoSize: 4,
		Near:      0.1,
		Far:       100,
	}.Setup()
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return s
}

func slab(name string, minX, maxX, top float32, albedo mgl32.Vec4) *visibility.Renderer {
	return &visibility.Renderer{
		Name:            name,
		RenderingLayers: ^uint32(0),
		Queue:           2000,
		Tags:            []string{"Decal"},
		Bounds: visibility.AABB{
			Min: mgl32.Vec3{minX, top - 1, -4},
			Max: mgl32.Vec3{maxX, top, 4},
		},
		Material: visibility.Material{Albedo: albedo, Height: top},
	}
}

func run(t *testing.T, d *Device, b *cmdbuf.Buffer) {
	t.Helper()
	if err := cmdbuf.Execute(b, d); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestArraySlices(t *testing.T) {
	d := New(nil)
	id, err := d.CreateArray(2, 2, 3, cmdbuf.FormatR32F)
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if id.IsTemporary() || id == cmdbuf.NoTexture {
		t.Fatalf("persistent id = %s", id)
	}

	want := []float32{1, 2, 3, 4}
	if err := d.WriteSlice(id, 1, want); err != nil {
		t.Fatalf("WriteSlice: %v", err)
	}
	got, err := d.ReadSlice(id, 1)
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice 1 = %v, want %v", got, want)
		}
	}

	// Reads are copies.
	got[0] = 42
	again, _ := d.ReadSlice(id, 1)
	if again[0] != 1 {
		t.Error("ReadSlice returned a view into the texture")
	}

	other, _ := d.ReadSlice(id, 0)
	for _, v := range other {
		if v != 0 {
			t.Fatalf("slice 0 modified: %v", other)
		}
	}

	if _, err := d.ReadSlice(id, 3); !errors.Is(err, ErrSliceOutOfRange) {
		t.Errorf("ReadSlice(3) error = %v, want ErrSliceOutOfRange", err)
	}
	if err := d.WriteSlice(id, 0, []float32{1}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short WriteSlice error = %v, want ErrSizeMismatch", err)
	}
	if _, err := d.CreateArray(0, 2, 1, cmdbuf.FormatR32F); err == nil {
		t.Error("CreateArray with zero width succeeded")
	}
}

func TestTemporaryLifecycle(t *testing.T) {
	d := New(nil)
	tmp := cmdbuf.TemporaryID(1)
	desc := cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRGBA8}

	if err := d.Execute(cmdbuf.GetTemporary{ID: tmp, Desc: desc}); err != nil {
		t.Fatalf("GetTemporary: %v", err)
	}
	if d.LiveTemporaries() != 1 {
		t.Fatalf("LiveTemporaries = %d, want 1", d.LiveTemporaries())
	}
	if err := d.Execute(cmdbuf.GetTemporary{ID: tmp, Desc: desc}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second GetTemporary error = %v, want ErrAlreadyExists", err)
	}
	if err := d.Execute(cmdbuf.ReleaseTemporary{ID: tmp}); err != nil {
		t.Fatalf("ReleaseTemporary: %v", err)
	}
	if d.LiveTemporaries() != 0 {
		t.Fatalf("LiveTemporaries = %d after release", d.LiveTemporaries())
	}
	if err := d.Execute(cmdbuf.ReleaseTemporary{ID: tmp}); !errors.Is(err, cmdbuf.ErrUnknownTexture) {
		t.Errorf("double release error = %v, want ErrUnknownTexture", err)
	}

	arr, _ := d.CreateArray(res, res, 1, cmdbuf.FormatRGBA8)
	if err := d.Execute(cmdbuf.ReleaseTemporary{ID: arr}); err == nil {
		t.Error("releasing a persistent array succeeded")
	}
}

func TestCopySlice(t *testing.T) {
	d := New(nil)
	a, _ := d.CreateArray(2, 2, 2, cmdbuf.FormatR16F)
	b, _ := d.CreateArray(2, 2, 1, cmdbuf.FormatR16F)
	c, _ := d.CreateArray(2, 2, 1, cmdbuf.FormatRGBA8)
	_ = d.WriteSlice(a, 1, []float32{5, 6, 7, 8})

	if err := d.Execute(cmdbuf.CopySlice{Src: a, SrcSlice: 1, Dst: b, DstSlice: 0}); err != nil {
		t.Fatalf("CopySlice: %v", err)
	}
	got, _ := d.ReadSlice(b, 0)
	if got[0] != 5 || got[3] != 8 {
		t.Errorf("copied = %v", got)
	}

	if err := d.Execute(cmdbuf.CopySlice{Src: a, Dst: c}); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("format mismatch error = %v", err)
	}
	if err := d.Execute(cmdbuf.CopySlice{Src: a, SrcSlice: 2, Dst: b}); !errors.Is(err, ErrSliceOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}

func TestDrawDepthTest(t *testing.T) {
	setup := topDown(t)
	low := slab("low", -4, 4, 1, mgl32.Vec4{1, 0, 0, 1})
	high := slab("high", 0, 4, 3, mgl32.Vec4{0, 1, 0, 1})

	tests := []struct {
		name  string
		order []*visibility.Renderer
	}{
		{"low first", []*visibility.Renderer{low, high}},
		{"high first", []*visibility.Renderer{high, low}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(nil)
			tmp := cmdbuf.TemporaryID(1)
			b := cmdbuf.NewBuffer("draw")
			b.GetTemporary(tmp, cmdbuf.SurfaceDesc{Width: res, Height: res, DepthBits: 16, Format: cmdbuf.FormatRGBA8})
			b.SetViewProjection(setup.View, setup.Projection)
			b.SetRenderTargets([]cmdbuf.TextureID{tmp}, tmp)
			b.ClearRenderTarget(true, true, mgl32.Vec4{})
			b.DrawRenderers(&visibility.Result{Setup: setup, Visible: tt.order},
				visibility.Filter{Tag: "Decal", QueueMax: 5000, LayerMask: ^uint32(0), RenderingLayerMask: ^uint32(0)},
				cmdbuf.PassDecal, cmdbuf.PerObjectNone)
			run(t, d, b)

			if d.Draws() != 2 {
				t.Errorf("Draws = %d, want 2", d.Draws())
			}
			px, _ := d.ReadSlice(tmp, 0)
			for y := 0; y < res; y++ {
				for x := 0; x < res; x++ {
					i := (y*res + x) * 4
					want := float32(1) // red
					if x >= res/2 {
						want = 0 // green covers the right half
					}
					if px[i] != want {
						t.Fatalf("pixel (%d,%d) red = %v, want %v", x, y, px[i], want)
					}
				}
			}
		})
	}
}

func TestDrawSameDepthLaterWins(t *testing.T) {
	setup := topDown(t)
	first := slab("first", -4, 4, 2, mgl32.Vec4{1, 0, 0, 1})
	second := slab("second", -4, 4, 2, mgl32.Vec4{0, 0, 1, 1})

	d := New(nil)
	tmp := cmdbuf.TemporaryID(1)
	b := cmdbuf.NewBuffer("draw")
	b.GetTemporary(tmp, cmdbuf.SurfaceDesc{Width: res, Height: res, DepthBits: 16, Format: cmdbuf.FormatRGBA8})
	b.SetViewProjection(setup.View, setup.Projection)
	b.SetRenderTargets([]cmdbuf.TextureID{tmp}, tmp)
	b.ClearRenderTarget(true, true, mgl32.Vec4{})
	b.DrawRenderers(&visibility.Result{Setup: setup, Visible: []*visibility.Renderer{first, second}},
		visibility.Filter{Tag: "Decal", QueueMax: 5000, LayerMask: ^uint32(0), RenderingLayerMask: ^uint32(0)},
		cmdbuf.PassDecal, cmdbuf.PerObjectNone)
	run(t, d, b)

	px, _ := d.ReadSlice(tmp, 0)
	if px[2] != 1 || px[0] != 0 {
		t.Errorf("pixel 0 = %v, want blue", px[:4])
	}
}

func TestDisplacementEncodesHeight(t *testing.T) {
	setup := topDown(t)
	r := slab("bump", -4, 4, 3, mgl32.Vec4{})

	d := New(nil)
	tmp := cmdbuf.TemporaryID(1)
	b := cmdbuf.NewBuffer("height")
	b.GetTemporary(tmp, cmdbuf.SurfaceDesc{Width: res, Height: res, DepthBits: 16, Format: cmdbuf.FormatR16F})
	b.SetGlobalVector(shaderid.HeightScaleOffset, mgl32.Vec4{2, 1, 1, 1})
	b.SetViewProjection(setup.View, setup.Projection)
	b.SetRenderTargets([]cmdbuf.TextureID{tmp}, tmp)
	b.ClearRenderTarget(true, true, mgl32.Vec4{})
	b.DrawRenderers(&visibility.Result{Setup: setup, Visible: []*visibility.Renderer{r}},
		visibility.Filter{Tag: "Decal", QueueMax: 5000, LayerMask: ^uint32(0), RenderingLayerMask: ^uint32(0)},
		cmdbuf.PassDisplacement, cmdbuf.PerObjectNone)
	run(t, d, b)

	px, _ := d.ReadSlice(tmp, 0)
	for i, v := range px {
		if v != 1 { // (3 - 1) / 2
			t.Fatalf("texel %d = %v, want 1", i, v)
		}
	}
}

func TestSetRenderTargetsErrors(t *testing.T) {
	d := New(nil)
	small := cmdbuf.TemporaryID(1)
	big := cmdbuf.TemporaryID(2)
	_ = d.Execute(cmdbuf.GetTemporary{ID: small, Desc: cmdbuf.SurfaceDesc{Width: 4, Height: 4, Format: cmdbuf.FormatRGBA8}})
	_ = d.Execute(cmdbuf.GetTemporary{ID: big, Desc: cmdbuf.SurfaceDesc{Width: 8, Height: 8, Format: cmdbuf.FormatRGBA8}})

	tests := []struct {
		name string
		cmd  cmdbuf.SetRenderTargets
		want error
	}{
		{"none", cmdbuf.SetRenderTargets{}, ErrNoRenderTarget},
		{"unknown", cmdbuf.SetRenderTargets{Colors: []cmdbuf.TextureID{cmdbuf.TemporaryID(9)}}, cmdbuf.ErrUnknownTexture},
		{"mixed sizes", cmdbuf.SetRenderTargets{Colors: []cmdbuf.TextureID{small, big}}, ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Execute(tt.cmd); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := d.Execute(cmdbuf.ClearRenderTarget{ClearColor: true}); !errors.Is(err, ErrNoRenderTarget) {
		t.Errorf("clear without targets error = %v", err)
	}
}

func TestCompositeWritesSlice(t *testing.T) {
	d := New(nil)
	albedo, _ := d.CreateArray(res, res, 3, cmdbuf.FormatRGBA8)
	normal, _ := d.CreateArray(res, res, 3, cmdbuf.FormatRG16F)
	smo, _ := d.CreateArray(res, res, 3, cmdbuf.FormatRGBA8)

	sa, sn, ss := cmdbuf.TemporaryID(1), cmdbuf.TemporaryID(2), cmdbuf.TemporaryID(3)
	b := cmdbuf.NewBuffer("composite")
	b.GetTemporary(sa, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRGBA8})
	b.GetTemporary(sn, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRG16F})
	b.GetTemporary(ss, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRGBA8})
	run(t, d, b)
	b.Reset()

	fill := func(id cmdbuf.TextureID, n int, v float32) {
		data := make([]float32, res*res*n)
		for i := range data {
			data[i] = v
		}
		if err := d.WriteSlice(id, 0, data); err != nil {
			t.Fatalf("WriteSlice: %v", err)
		}
	}
	fill(sa, 4, 0.25)
	fill(sn, 2, 0.5)
	fill(ss, 4, 0.75)

	k := shaderid.CompositeDecal
	b.SetComputeTexture(k, shaderid.VirtualMainTex, albedo)
	b.SetComputeTexture(k, shaderid.VirtualBumpMap, normal)
	b.SetComputeTexture(k, shaderid.VirtualSMO, smo)
	b.SetComputeTexture(k, shaderid.DecalAlbedo, sa)
	b.SetComputeTexture(k, shaderid.DecalNormal, sn)
	b.SetComputeTexture(k, shaderid.DecalSMO, ss)
	b.SetComputeInt(k, shaderid.Count, 1)
	b.DispatchCompute(k, 1, 1, 1)
	run(t, d, b)

	if d.Dispatches() != 1 {
		t.Errorf("Dispatches = %d", d.Dispatches())
	}
	for _, c := range []struct {
		id   cmdbuf.TextureID
		want float32
	}{{albedo, 0.25}, {normal, 0.5}, {smo, 0.75}} {
		got, _ := d.ReadSlice(c.id, 1)
		for i, v := range got {
			if v != c.want {
				t.Fatalf("%s slice 1 texel %d = %v, want %v", c.id, i, v, c.want)
			}
		}
		for _, s := range []int{0, 2} {
			other, _ := d.ReadSlice(c.id, s)
			for _, v := range other {
				if v != 0 {
					t.Fatalf("%s slice %d modified", c.id, s)
				}
			}
		}
	}
}

func TestCompositeZeroesMissingChannels(t *testing.T) {
	d := New(nil)
	albedo, _ := d.CreateArray(res, res, 2, cmdbuf.FormatRGBA8)
	normal, _ := d.CreateArray(res, res, 2, cmdbuf.FormatRGBA8)
	smo, _ := d.CreateArray(res, res, 2, cmdbuf.FormatRGBA8)

	stale := make([]float32, res*res*4)
	for i := range stale {
		stale[i] = 9
	}
	for _, id := range []cmdbuf.TextureID{albedo, normal, smo} {
		if err := d.WriteSlice(id, 1, stale); err != nil {
			t.Fatalf("WriteSlice: %v", err)
		}
	}

	sa, sn, ss := cmdbuf.TemporaryID(1), cmdbuf.TemporaryID(2), cmdbuf.TemporaryID(3)
	b := cmdbuf.NewBuffer("widen")
	b.GetTemporary(sa, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRGBA8})
	b.GetTemporary(sn, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRG16F})
	b.GetTemporary(ss, cmdbuf.SurfaceDesc{Width: res, Height: res, Format: cmdbuf.FormatRGBA8})

	k := shaderid.CompositeDecal
	b.SetComputeTexture(k, shaderid.VirtualMainTex, albedo)
	b.SetComputeTexture(k, shaderid.VirtualBumpMap, normal)
	b.SetComputeTexture(k, shaderid.VirtualSMO, smo)
	b.SetComputeTexture(k, shaderid.DecalAlbedo, sa)
	b.SetComputeTexture(k, shaderid.DecalNormal, sn)
	b.SetComputeTexture(k, shaderid.DecalSMO, ss)
	b.SetComputeInt(k, shaderid.Count, 1)
	b.DispatchCompute(k, 1, 1, 1)
	run(t, d, b)

	// Fresh staging surfaces hold zeros, so the whole slice must be zero.
	for _, id := range []cmdbuf.TextureID{albedo, normal, smo} {
		got, _ := d.ReadSlice(id, 1)
		for i, v := range got {
			if v != 0 {
				t.Fatalf("%s slice 1 value %d = %v, want 0", id, i, v)
			}
		}
	}
}

func TestCompositeErrors(t *testing.T) {
	d := New(nil)

	if err := d.Execute(cmdbuf.DispatchCompute{Kernel: "Missing", GroupsX: 1, GroupsY: 1, GroupsZ: 1}); !errors.Is(err, ErrUnknownKernel) {
		t.Errorf("unknown kernel error = %v", err)
	}
	if err := d.Execute(cmdbuf.SetComputeInt{Kernel: "Missing", Property: shaderid.Count}); !errors.Is(err, ErrUnknownKernel) {
		t.Errorf("unknown kernel int error = %v", err)
	}
	if err := d.Execute(cmdbuf.DispatchCompute{Kernel: shaderid.CompositeDecal, GroupsX: 1, GroupsY: 1, GroupsZ: 1}); !errors.Is(err, ErrUnbound) {
		t.Errorf("unbound dispatch error = %v", err)
	}
}

type bogus struct{}

func (bogus) Name() string { return "Bogus" }

func TestUnsupportedCommand(t *testing.T) {
	d := New(nil)
	b := cmdbuf.NewBuffer("bogus")
	b.SetGlobalInt("x", 1)
	if err := d.Execute(bogus{}); !errors.Is(err, cmdbuf.ErrUnsupportedCommand) {
		t.Errorf("error = %v, want ErrUnsupportedCommand", err)
	}
	run(t, d, b)
	if d.Executed() != 2 {
		t.Errorf("Executed = %d, want 2", d.Executed())
	}
}
