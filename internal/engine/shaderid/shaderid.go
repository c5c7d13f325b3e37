// Package shaderid names the shader properties and kernels shared between
// the tile updater and the executors that play its commands back.
package shaderid

// Global properties published before the displacement pass.
const (
	VirtualHeightmap  = "_VirtualHeightmap"
	OffsetIndex       = "_OffsetIndex"
	HeightScaleOffset = "_HeightScaleOffset"
)

// CompositeDecal is the compute kernel that merges staging surfaces into
// one slice of the persistent layers.
const CompositeDecal = "CompositeDecal"

// CompositeGroupSize is the thread group edge the composite kernel is compiled with.
const CompositeGroupSize = 8

// Composite kernel bindings.
const (
	VirtualMainTex = "_VirtualMainTex"
	VirtualBumpMap = "_VirtualBumpMap"
	VirtualSMO     = "_VirtualSMO"
	DecalAlbedo    = "_DecalAlbedo"
	DecalNormal    = "_DecalNormal"
	DecalSMO       = "_DecalSMO"
	Count          = "_Count"
)

// CompositePairs lists staging -> persistent bindings of the composite kernel.
var CompositePairs = [3][2]string{
	{DecalAlbedo, VirtualMainTex},
	{DecalNormal, VirtualBumpMap},
	{DecalSMO, VirtualSMO},
}
