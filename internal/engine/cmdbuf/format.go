package cmdbuf

import "fmt"

// TextureID names a texture known to an executor. Persistent textures are
// created by the executor; temporary IDs are handed out by the surface pool
// and carry TemporaryBit.
type TextureID uint32

// NoTexture is the zero handle.
const NoTexture TextureID = 0

// TemporaryBit marks IDs that name transient surfaces.
const TemporaryBit TextureID = 1 << 31

// TemporaryID returns the temporary handle for pool slot n.
func TemporaryID(n uint32) TextureID {
	return TemporaryBit | TextureID(n)
}

// IsTemporary reports whether the handle names a transient surface.
func (id TextureID) IsTemporary() bool {
	return id&TemporaryBit != 0
}

func (id TextureID) String() string {
	if id.IsTemporary() {
		return fmt.Sprintf("tmp#%d", uint32(id&^TemporaryBit))
	}
	return fmt.Sprintf("tex#%d", uint32(id))
}

// Format is a texel format.
type Format int

const (
	FormatRGBA8 Format = iota + 1
	FormatRG16F
	FormatR16F
	FormatR32F
)

// Channels returns the number of components per texel.
func (f Format) Channels() int {
	switch f {
	case FormatRGBA8:
		return 4
	case FormatRG16F:
		return 2
	case FormatR16F, FormatR32F:
		return 1
	default:
		return 0
	}
}

// BytesPerTexel returns the storage size of one texel.
func (f Format) BytesPerTexel() int {
	switch f {
	case FormatRGBA8, FormatRG16F, FormatR32F:
		return 4
	case FormatR16F:
		return 2
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRG16F:
		return "RG16F"
	case FormatR16F:
		return "R16F"
	case FormatR32F:
		return "R32F"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Filter is the sampling filter of a surface.
type Filter int

const (
	FilterPoint Filter = iota
	FilterBilinear
)

// SurfaceDesc describes a transient surface.
type SurfaceDesc struct {
	Width     int
	Height    int
	DepthBits int // 0 for no depth attachment
	Format    Format
	Filter    Filter
	Linear    bool // false means sRGB interpretation
}

// Bytes returns the memory footprint of the color and depth storage.
func (d SurfaceDesc) Bytes() int64 {
	texels := int64(d.Width) * int64(d.Height)
	return texels*int64(d.Format.BytesPerTexel()) + texels*int64(d.DepthBits/8)
}

// Valid reports whether the descriptor can be allocated.
func (d SurfaceDesc) Valid() bool {
	return d.Width > 0 && d.Height > 0 && d.Format.Channels() > 0 && d.DepthBits >= 0
}
