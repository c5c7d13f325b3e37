package visibility

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
)

func box(x, z, half float32) AABB {
	return AABB{
		Min: mgl32.Vec3{x - half, 0, z - half},
		Max: mgl32.Vec3{x + half, 1, z + half},
	}
}

func capture() viewpoint.Viewpoint {
	return viewpoint.Viewpoint{
		Position:  mgl32.Vec3{0, 50, 0},
		Rotation:  viewpoint.LookDown(),
		OrthoSize: 10,
		Near:      0.1,
		Far:       100,
	}
}

func names(rs []*Renderer) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestCullFrustumAndMask(t *testing.T) {
	scene := NewScene(
		&Renderer{Name: "road", Layer: 0, Bounds: box(0, 0, 2)},
		&Renderer{Name: "far-away", Layer: 0, Bounds: box(40, 0, 2)},
		&Renderer{Name: "other-layer", Layer: 3, Bounds: box(1, 1, 2)},
	)
	c := NewSceneCuller(scene, nil)

	res, ok := c.Cull(capture(), 1<<0)
	if !ok {
		t.Fatal("expected usable viewpoint")
	}
	got := names(res.Visible)
	if len(got) != 1 || got[0] != "road" {
		t.Errorf("visible = %v, want [road]", got)
	}

	res, _ = c.Cull(capture(), 1<<0|1<<3)
	if len(res.Visible) != 2 {
		t.Errorf("visible = %v, want road and other-layer", names(res.Visible))
	}
}

func TestCullUnusableViewpoint(t *testing.T) {
	c := NewSceneCuller(NewScene(), nil)
	vp := capture()
	vp.OrthoSize = 0

	res, ok := c.Cull(vp, ^uint32(0))
	if ok || res != nil {
		t.Errorf("expected unusable viewpoint, got %v %v", res, ok)
	}
}

func TestSelectFiltersAndSorts(t *testing.T) {
	res := &Result{Visible: []*Renderer{
		{Name: "late", Queue: 3000, Tags: []string{"TerrainDecal"}},
		{Name: "base", Queue: 500, Tags: []string{"TerrainDecal"}},
		{Name: "early", Queue: 2000, Tags: []string{"TerrainDecal"}},
		{Name: "height-only", Queue: 2000, Tags: []string{"TerrainDisplacement"}},
		{Name: "tie", Queue: 2000, Tags: []string{"TerrainDecal"}},
		{Name: "masked", Queue: 2000, Layer: 5, Tags: []string{"TerrainDecal"}},
	}}
	// Registration fills in the default rendering layers.
	NewScene(res.Visible...)

	got := names(res.Select(Filter{
		Tag:                "TerrainDecal",
		QueueMin:           1000,
		QueueMax:           5000,
		LayerMask:          1,
		RenderingLayerMask: ^uint32(0),
	}))
	want := []string{"early", "tie", "late"}
	if len(got) != len(want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Select[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSelectNilResult(t *testing.T) {
	var res *Result
	if got := res.Select(Filter{}); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestAABBCorners(t *testing.T) {
	b := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 2, 3}}
	c := b.Corners()
	if c[0] != b.Min || c[7] != b.Max {
		t.Errorf("corners[0]=%v corners[7]=%v", c[0], c[7])
	}
	if b.Center() != (mgl32.Vec3{0.5, 1, 1.5}) {
		t.Errorf("center = %v", b.Center())
	}
}
