// Package tileupdate renders queued decal captures into slices of the
// persistent virtual texture layers.
package tileupdate

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
	"github.com/Faultbox/midgard-vt/internal/engine/viewpoint"
)

// ErrInvalidRequest is reported for requests that name no usable slice or target.
var ErrInvalidRequest = errors.New("tileupdate: invalid request")

// Request asks for one tile of the persistent layers to be re-rendered.
// It owns Slice exclusively while it is processed.
type Request struct {
	VisibilityMask uint32
	Position       mgl32.Vec3
	Rotation       mgl32.Quat
	Extent         float32 // Half size of the square footprint
	Near           float32
	Far            float32

	AlbedoTarget  cmdbuf.TextureID
	NormalTarget  cmdbuf.TextureID
	SurfaceTarget cmdbuf.TextureID
	HeightTarget  cmdbuf.TextureID
	Slice         int
}

// Viewpoint returns the capture volume of the request.
func (r *Request) Viewpoint() viewpoint.Viewpoint {
	return viewpoint.Viewpoint{
		Position:  r.Position,
		Rotation:  r.Rotation,
		OrthoSize: r.Extent,
		Near:      r.Near,
		Far:       r.Far,
	}
}

// Validate checks the parts of a request the engine cannot recover from.
func (r *Request) Validate() error {
	if r.Slice < 0 {
		return fmt.Errorf("%w: slice %d", ErrInvalidRequest, r.Slice)
	}
	for _, t := range []cmdbuf.TextureID{r.AlbedoTarget, r.NormalTarget, r.SurfaceTarget, r.HeightTarget} {
		if t == cmdbuf.NoTexture || t.IsTemporary() {
			return fmt.Errorf("%w: target %s", ErrInvalidRequest, t)
		}
	}
	return nil
}
