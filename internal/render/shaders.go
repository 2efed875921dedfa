package render

import (
	"log"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked shader program with a cache of uniform locations.
type Program struct {
	id       uint32
	uniforms map[string]int32
}

// Text vertex shader. Positions arrive in screen pixels and are mapped to
// clip space by u_proj.
const textVertexShaderSource = `
#version 330 core
layout (location = 0) in vec2 a_position;
layout (location = 1) in vec2 a_uv;
layout (location = 2) in float a_alpha;

uniform mat4 u_proj;

out vec2 v_uv;
out float v_alpha;

void main() {
    gl_Position = u_proj * vec4(a_position, 0.0, 1.0);
    v_uv = a_uv;
    v_alpha = a_alpha;
}
` + "\x00"

// Text fragment shader. The atlas stores a distance field with the glyph edge
// at 0.5; u_sdf picks the contour to fill, so a low threshold draws a halo
// around the glyph and a high one draws the glyph body.
const textFragmentShaderSource = `
#version 330 core
in vec2 v_uv;
in float v_alpha;

uniform sampler2D u_tex;
uniform vec3 u_color;
uniform float u_sdf;

out vec4 FragColor;

void main() {
    float d = texture(u_tex, v_uv).r;
    float w = max(fwidth(d), 1e-4);
    float a = smoothstep(u_sdf - w, u_sdf + w, d) * v_alpha;
    FragColor = vec4(u_color, a);
}
` + "\x00"

// Fill vertex shader. Applies the tile transform and forwards the color.
const fillVertexShaderSource = `
#version 330 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec4 aColor;

uniform mat4 uTransform;

out vec4 vColor;

void main() {
    gl_Position = uTransform * vec4(aPos, 0.0, 1.0);
    vColor = aColor;
}
` + "\x00"

const fillFragmentShaderSource = `
#version 330 core
in vec4 vColor;
out vec4 FragColor;

void main() {
    FragColor = vColor;
}
` + "\x00"

// NewTextProgram compiles the distance-field text program.
func NewTextProgram() *Program {
	return newProgram(textVertexShaderSource, textFragmentShaderSource)
}

// NewFillProgram compiles the flat-colored polygon program.
func NewFillProgram() *Program {
	return newProgram(fillVertexShaderSource, fillFragmentShaderSource)
}

func newProgram(vertexSource, fragmentSource string) *Program {
	vertexShader := compileShader(vertexSource, gl.VERTEX_SHADER)
	defer gl.DeleteShader(vertexShader)

	fragmentShader := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	defer gl.DeleteShader(fragmentShader)

	p := &Program{
		id:       gl.CreateProgram(),
		uniforms: make(map[string]int32),
	}
	gl.AttachShader(p.id, vertexShader)
	gl.AttachShader(p.id, fragmentShader)
	gl.LinkProgram(p.id)

	var status int32
	gl.GetProgramiv(p.id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(p.id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(p.id, logLength, nil, gl.Str(logText))
		log.Fatalf("Shader linking failed: %s", logText)
	}
	return p
}

// Use binds the program.
func (p *Program) Use() {
	gl.UseProgram(p.id)
}

// SetUniformf sets a float or vector uniform on the bound program.
func (p *Program) SetUniformf(name string, values ...float32) {
	loc := p.location(name)
	switch len(values) {
	case 1:
		gl.Uniform1f(loc, values[0])
	case 2:
		gl.Uniform2f(loc, values[0], values[1])
	case 3:
		gl.Uniform3f(loc, values[0], values[1], values[2])
	case 4:
		gl.Uniform4f(loc, values[0], values[1], values[2], values[3])
	default:
		log.Fatalf("uniform %s: unsupported component count %d", name, len(values))
	}
}

// SetUniformi sets an integer (or sampler) uniform on the bound program.
func (p *Program) SetUniformi(name string, v int32) {
	gl.Uniform1i(p.location(name), v)
}

// SetUniformMatrix4 sets a mat4 uniform on the bound program.
func (p *Program) SetUniformMatrix4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.location(name), 1, false, &m[0])
}

// Delete releases the program.
func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
}

// location returns the cached location of a uniform, or -1 (ignored by GL)
// when the program has no such uniform.
func (p *Program) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) uint32 {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		log.Fatalf("Shader compilation failed: %s", logText)
	}

	return shader
}
