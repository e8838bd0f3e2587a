package glbackend

import (
	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/overlay"
)

const textVertexShaderSource = `#version 330 core
layout(location = 0) in vec2 aPos;
layout(location = 1) in vec2 aTexCoord;
out vec2 TexCoord;
uniform mat4 projection;

void main() {
    gl_Position = projection * vec4(aPos, -0.99, 1.0);
    TexCoord = aTexCoord;
}` + "\x00"

const textFragmentShaderSource = `#version 330 core
in vec2 TexCoord;
out vec4 FragColor;
uniform sampler2D textTexture;
uniform vec3 textColor;

void main() {
    vec4 sampled = vec4(1.0, 1.0, 1.0, texture(textTexture, TexCoord).r);
    FragColor = vec4(textColor, 1.0) * sampled;
}` + "\x00"

// TextRenderer draws one line of preloader text in screen space.
type TextRenderer struct {
	prog       *program
	vao        uint32
	vbo        uint32
	texture    uint32
	projection int32
	textColor  int32
	width      int
	height     int

	last       string
	texW, texH int
}

func NewTextRenderer() (*TextRenderer, error) {
	prog, err := newProgram(textVertexShaderSource, textFragmentShaderSource, nil)
	if err != nil {
		return nil, err
	}
	tr := &TextRenderer{prog: prog}
	tr.projection = prog.uniform("projection")
	tr.textColor = prog.uniform("textColor")

	gl.GenVertexArrays(1, &tr.vao)
	gl.GenBuffers(1, &tr.vbo)
	gl.BindVertexArray(tr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, tr.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 6*4*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &tr.texture)
	gl.BindTexture(gl.TEXTURE_2D, tr.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tr, nil
}

// SetViewport sets the framebuffer size text coordinates refer to.
func (tr *TextRenderer) SetViewport(w, h int) {
	tr.width, tr.height = w, h
}

// RenderCentered draws text centered in the viewport.
func (tr *TextRenderer) RenderCentered(text string, scale float32, c colorx.RGB) {
	tr.upload(text)
	w := float32(tr.texW) * scale
	h := float32(tr.texH) * scale
	tr.Render(text, (float32(tr.width)-w)/2, (float32(tr.height)-h)/2, scale, c)
}

// Render draws text with its top-left corner at (x, y), origin top-left.
func (tr *TextRenderer) Render(text string, x, y, scale float32, c colorx.RGB) {
	if tr.width == 0 || tr.height == 0 {
		return
	}
	tr.upload(text)

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	w := float32(tr.texW) * scale
	h := float32(tr.texH) * scale

	// Y is flipped so (0,0) is the top-left corner.
	projection := []float32{
		2.0 / float32(tr.width), 0, 0, 0,
		0, -2.0 / float32(tr.height), 0, 0,
		0, 0, -1, 0,
		-1, 1, 0, 1,
	}

	gl.UseProgram(tr.prog.id)
	gl.UniformMatrix4fv(tr.projection, 1, false, &projection[0])
	gl.Uniform3f(tr.textColor, c.R, c.G, c.B)

	vertices := []float32{
		x, y + h, 0.0, 1.0,
		x, y, 0.0, 0.0,
		x + w, y, 1.0, 0.0,
		x, y + h, 0.0, 1.0,
		x + w, y, 1.0, 0.0,
		x + w, y + h, 1.0, 1.0,
	}
	gl.BindVertexArray(tr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, tr.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tr.texture)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

// upload rasterizes text into the texture unless it is already there.
func (tr *TextRenderer) upload(text string) {
	if text == tr.last && tr.texW > 0 {
		return
	}
	img := overlay.Rasterize(text)
	tr.texW, tr.texH = img.Bounds().Dx(), img.Bounds().Dy()
	tr.last = text

	gl.BindTexture(gl.TEXTURE_2D, tr.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(tr.texW), int32(tr.texH), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (tr *TextRenderer) Close() {
	tr.prog.delete()
	gl.DeleteVertexArrays(1, &tr.vao)
	gl.DeleteBuffers(1, &tr.vbo)
	gl.DeleteTextures(1, &tr.texture)
}
