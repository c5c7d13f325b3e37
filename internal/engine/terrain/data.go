// Package terrain exposes the terrain data the tile updater needs to
// interpret height surfaces.
package terrain

import "github.com/go-gl/mathgl/mgl32"

// Data is provided by the terrain owner.
type Data interface {
	HeightScale() float32
	HeightOffset() float32
}

// Settings is a fixed Data value.
type Settings struct {
	Scale  float32
	Offset float32
}

// HeightScale implements Data.
func (s Settings) HeightScale() float32 { return s.Scale }

// HeightOffset implements Data.
func (s Settings) HeightOffset() float32 { return s.Offset }

// ScaleOffset packs the height interpretation the way shaders read it.
func ScaleOffset(d Data) mgl32.Vec4 {
	return mgl32.Vec4{d.HeightScale(), d.HeightOffset(), 1, 1}
}

// Encode converts a world height to the value stored in height surfaces.
// A zero scale stores zero.
func Encode(scaleOffset mgl32.Vec4, worldHeight float32) float32 {
	if scaleOffset[0] == 0 {
		return 0
	}
	return (worldHeight - scaleOffset[1]) / scaleOffset[0]
}

// Decode converts a stored height value back to world units.
func Decode(scaleOffset mgl32.Vec4, stored float32) float32 {
	return stored*scaleOffset[0] + scaleOffset[1]
}
