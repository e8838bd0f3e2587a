// Package glbackend implements render.Device on an OpenGL 3.3 core context.
// Every function must be called on the thread that owns the context.
package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
)

type program struct {
	id       uint32
	uniforms map[string]int32
}

func (p *program) uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func (p *program) delete() {
	gl.DeleteProgram(p.id)
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		stage := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			stage = "fragment"
		}
		return 0, fmt.Errorf("compile %s shader: %s", stage, strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

// newProgram compiles and links a program, binding attribute names to
// fixed slots before linking.
func newProgram(vertexSrc, fragmentSrc string, attribs map[string]uint32) (*program, error) {
	vs, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	for name, slot := range attribs {
		gl.BindAttribLocation(id, slot, gl.Str(name+"\x00"))
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("link program: %s", strings.TrimRight(logText, "\x00"))
	}
	return &program{id: id, uniforms: map[string]int32{}}, nil
}
