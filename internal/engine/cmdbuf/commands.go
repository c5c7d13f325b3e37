package cmdbuf

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-vt/internal/engine/visibility"
)

// Command is one recorded GPU operation.
type Command interface {
	Name() string
}

// PassKind selects the outputs a draw writes.
type PassKind int

const (
	// PassDecal writes albedo, normal and surface properties to three targets.
	PassDecal PassKind = iota
	// PassDisplacement writes encoded height to one target.
	PassDisplacement
)

func (k PassKind) String() string {
	if k == PassDisplacement {
		return "displacement"
	}
	return "decal"
}

// PerObjectData selects auxiliary per-renderer inputs (lightmaps, probes).
type PerObjectData uint32

// PerObjectNone disables all auxiliary per-renderer data.
const PerObjectNone PerObjectData = 0

// GetTemporary allocates a transient surface under ID.
type GetTemporary struct {
	ID   TextureID
	Desc SurfaceDesc
}

// ReleaseTemporary frees a transient surface.
type ReleaseTemporary struct {
	ID TextureID
}

// CopySlice copies one array slice (or a 2D texture when the slice is 0)
// into another texture of the same size and format.
type CopySlice struct {
	Src      TextureID
	SrcSlice int
	Dst      TextureID
	DstSlice int
}

// SetGlobalTexture publishes a texture to every subsequent draw.
type SetGlobalTexture struct {
	Property string
	Texture  TextureID
}

// SetGlobalInt publishes an integer to every subsequent draw.
type SetGlobalInt struct {
	Property string
	Value    int32
}

// SetGlobalVector publishes a vector to every subsequent draw.
type SetGlobalVector struct {
	Property string
	Value    mgl32.Vec4
}

// SetViewProjection sets the camera matrices used by draws.
type SetViewProjection struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// SetRenderTargets binds color targets and the surface whose depth
// attachment is used for depth testing.
type SetRenderTargets struct {
	Colors []TextureID
	Depth  TextureID
}

// ClearRenderTarget clears the bound targets.
type ClearRenderTarget struct {
	ClearDepth bool
	ClearColor bool
	Color      mgl32.Vec4
}

// DrawRenderers draws the renderers of a visibility result that pass Filter.
type DrawRenderers struct {
	Visible   *visibility.Result
	Filter    visibility.Filter
	Kind      PassKind
	PerObject PerObjectData
}

// SetComputeTexture binds a texture to a kernel property.
type SetComputeTexture struct {
	Kernel   string
	Property string
	Texture  TextureID
}

// SetComputeInt sets a kernel scalar.
type SetComputeInt struct {
	Kernel   string
	Property string
	Value    int32
}

// DispatchCompute runs a kernel over a grid of thread groups.
type DispatchCompute struct {
	Kernel  string
	GroupsX uint32
	GroupsY uint32
	GroupsZ uint32
}

func (GetTemporary) Name() string      { return "GetTemporary" }
func (ReleaseTemporary) Name() string  { return "ReleaseTemporary" }
func (CopySlice) Name() string         { return "CopySlice" }
func (SetGlobalTexture) Name() string  { return "SetGlobalTexture" }
func (SetGlobalInt) Name() string      { return "SetGlobalInt" }
func (SetGlobalVector) Name() string   { return "SetGlobalVector" }
func (SetViewProjection) Name() string { return "SetViewProjection" }
func (SetRenderTargets) Name() string  { return "SetRenderTargets" }
func (ClearRenderTarget) Name() string { return "ClearRenderTarget" }
func (DrawRenderers) Name() string     { return "DrawRenderers" }
func (SetComputeTexture) Name() string { return "SetComputeTexture" }
func (SetComputeInt) Name() string     { return "SetComputeInt" }
func (DispatchCompute) Name() string   { return "DispatchCompute" }
