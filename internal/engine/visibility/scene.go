// Package visibility holds the renderers a tile capture can see and the
// culling service that selects them for one viewpoint.
package visibility

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the center point of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]mgl32.Vec3 {
	var c [8]mgl32.Vec3
	for i := range c {
		c[i] = b.Min
		if i&1 != 0 {
			c[i][0] = b.Max.X()
		}
		if i&2 != 0 {
			c[i][1] = b.Max.Y()
		}
		if i&4 != 0 {
			c[i][2] = b.Max.Z()
		}
	}
	return c
}

// Material holds the constant outputs a renderer writes in each pass.
type Material struct {
	Albedo  mgl32.Vec4 // Decal pass, target 0
	Normal  mgl32.Vec2 // Decal pass, target 1
	Surface mgl32.Vec4 // Decal pass, target 2 (smoothness, metallic, occlusion)
	Height  float32    // Displacement pass, world units
}

// Renderer is one piece of decal geometry. Its footprint is the top face
// of Bounds.
type Renderer struct {
	Name            string
	Layer           uint8  // Scene layer, 0..31
	RenderingLayers uint32 // Rendering layer bits
	Queue           int    // Render queue, lower draws first
	Tags            []string
	Bounds          AABB
	Material        Material
}

// HasTag reports whether the renderer implements the pass tag.
func (r *Renderer) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// LayerBit returns the mask bit of the renderer's layer.
func (r *Renderer) LayerBit() uint32 {
	return 1 << (r.Layer & 31)
}

// Scene is the set of renderers visible to the culling service.
type Scene struct {
	renderers []*Renderer
}

// NewScene creates a scene holding the given renderers.
func NewScene(renderers ...*Renderer) *Scene {
	s := &Scene{}
	for _, r := range renderers {
		s.Add(r)
	}
	return s
}

// Add appends a renderer. Renderers with no rendering layers default to all.
func (s *Scene) Add(r *Renderer) {
	if r.RenderingLayers == 0 {
		r.RenderingLayers = ^uint32(0)
	}
	s.renderers = append(s.renderers, r)
}

// Len returns the number of renderers.
func (s *Scene) Len() int { return len(s.renderers) }

// Renderers returns the renderers in insertion order.
func (s *Scene) Renderers() []*Renderer { return s.renderers }
