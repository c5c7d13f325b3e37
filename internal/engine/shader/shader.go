// Package shader provides OpenGL shader compilation utilities.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	return link(vertShader, fragShader)
}

// CompileCompute compiles a compute shader into its own program.
func CompileCompute(src string) (uint32, error) {
	cs, err := compileShader(src, gl.COMPUTE_SHADER, "compute")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(cs)

	return link(cs)
}

func link(shaders ...uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log))
	}

	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	return shader, nil
}

// Uniforms caches uniform locations of one program.
// Missing or inactive uniforms resolve to -1, which GL ignores.
type Uniforms struct {
	program uint32
	locs    map[string]int32
}

// NewUniforms creates a location cache for program.
func NewUniforms(program uint32) *Uniforms {
	return &Uniforms{program: program, locs: make(map[string]int32)}
}

// Location returns the location of name.
func (u *Uniforms) Location(name string) int32 {
	if loc, ok := u.locs[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(u.program, gl.Str(name+"\x00"))
	u.locs[name] = loc
	return loc
}
