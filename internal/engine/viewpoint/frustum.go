package viewpoint

import "github.com/go-gl/mathgl/mgl32"

// Plane is ax + by + cz + d >= 0 for points inside.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance of p to the plane.
func (p Plane) Distance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum is the six clip planes of a view-projection matrix.
type Frustum [6]Plane

// FrustumFromMatrix extracts the clip planes of m (Gribb/Hartmann).
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	raw := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}

	var f Frustum
	for i, p := range raw {
		n := mgl32.Vec3{p[0], p[1], p[2]}
		l := n.Len()
		if l == 0 {
			continue
		}
		f[i] = Plane{Normal: n.Mul(1 / l), D: p[3] / l}
	}
	return f
}

// IntersectsAABB reports whether the box touches the frustum. It is
// conservative: boxes near a corner may be reported as visible.
func (f Frustum) IntersectsAABB(minB, maxB mgl32.Vec3) bool {
	for _, p := range f {
		// Corner furthest along the plane normal
		v := minB
		if p.Normal.X() >= 0 {
			v[0] = maxB.X()
		}
		if p.Normal.Y() >= 0 {
			v[1] = maxB.Y()
		}
		if p.Normal.Z() >= 0 {
			v[2] = maxB.Z()
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}
