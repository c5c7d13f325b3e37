// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// DecalVertexShader projects the top face of a renderer's bounds.
//
//go:embed decal.vert
var DecalVertexShader string

// DecalFragmentShader writes the material outputs of the decal and
// displacement passes.
//
//go:embed decal.frag
var DecalFragmentShader string

// CompositeComputeShader copies staging surfaces into one slice of the
// persistent layers.
//
//go:embed composite.comp
var CompositeComputeShader string
