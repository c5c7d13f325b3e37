// Package viewpoint turns a capture configuration into camera matrices.
//
// A Viewpoint is a plain value describing one orthographic capture volume.
// Setup is a pure function of it, so each tile job builds its camera
// without touching shared state.
package viewpoint

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrDegenerate is returned when no culling volume can be derived.
var ErrDegenerate = errors.New("viewpoint: degenerate capture volume")

// Viewpoint is an orthographic capture volume. The camera looks down its
// local -Z axis with +Y up, like an OpenGL camera.
type Viewpoint struct {
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	OrthoSize float32 // Half height of the footprint
	Near      float32
	Far       float32
}

// Setup holds the derived camera state for one capture.
type Setup struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	Frustum        Frustum
}

// Aspect is fixed: capture footprints are square.
const Aspect = 1

// Validate reports why the viewpoint cannot be used, or nil.
func (v Viewpoint) Validate() error {
	for _, f := range []float32{
		v.Position.X(), v.Position.Y(), v.Position.Z(),
		v.Rotation.W, v.Rotation.V.X(), v.Rotation.V.Y(), v.Rotation.V.Z(),
		v.OrthoSize, v.Near, v.Far,
	} {
		if !finite(f) {
			return fmt.Errorf("%w: non-finite parameter", ErrDegenerate)
		}
	}
	if v.OrthoSize <= 0 {
		return fmt.Errorf("%w: orthographic size %g", ErrDegenerate, v.OrthoSize)
	}
	if v.Far <= v.Near {
		return fmt.Errorf("%w: near %g >= far %g", ErrDegenerate, v.Near, v.Far)
	}
	if v.Rotation.Len() < 1e-4 {
		return fmt.Errorf("%w: zero rotation", ErrDegenerate)
	}
	return nil
}

// Setup derives view, projection and frustum.
func (v Viewpoint) Setup() (Setup, error) {
	if err := v.Validate(); err != nil {
		return Setup{}, err
	}

	view := ViewMatrix(v.Position, v.Rotation)
	half := v.OrthoSize
	proj := mgl32.Ortho(-half*Aspect, half*Aspect, -half, half, v.Near, v.Far)
	vp := proj.Mul4(view)

	return Setup{
		View:           view,
		Projection:     proj,
		ViewProjection: vp,
		Frustum:        FrustumFromMatrix(vp),
	}, nil
}

// ViewMatrix returns the world-to-view transform of a camera placed at pos
// with orientation rot.
func ViewMatrix(pos mgl32.Vec3, rot mgl32.Quat) mgl32.Mat4 {
	r := rot.Normalize().Mat4().Transpose()
	return r.Mul4(mgl32.Translate3D(-pos.X(), -pos.Y(), -pos.Z()))
}

// LookDown returns the rotation of a camera looking straight down world -Y
// with world -Z as its up direction. Terrain captures use it by default.
func LookDown() mgl32.Quat {
	return mgl32.QuatRotate(-gomath.Pi/2, mgl32.Vec3{1, 0, 0})
}

func finite(f float32) bool {
	d := float64(f)
	return !gomath.IsNaN(d) && !gomath.IsInf(d, 0)
}
