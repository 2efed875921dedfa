package render

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/textbatch"
)

const floatSize = 4

var _ textbatch.Mesh = (*TextMesh)(nil)

// TextMesh holds one batch's glyph quads on the GPU. Vertices are staged on
// any goroutine; GL objects are created on the first Compile, which must run
// on the render thread like every other GL-touching method.
type TextMesh struct {
	layout style.VertexLayout
	atlas  *AtlasTexture

	staged []float32
	count  int
	vao    uint32
	vbo    uint32
}

// NewTextMesh returns an empty mesh drawn with the glyphs in atlas.
func NewTextMesh(layout style.VertexLayout, atlas *AtlasTexture) *TextMesh {
	return &TextMesh{layout: layout, atlas: atlas}
}

// SetVertices implements textbatch.Mesh.
func (m *TextMesh) SetVertices(v []fontctx.Vertex) {
	m.staged = flatten(m.staged[:0], v)
}

// Compile implements textbatch.Mesh.
func (m *TextMesh) Compile() int {
	if m.vao == 0 {
		gl.GenVertexArrays(1, &m.vao)
		gl.GenBuffers(1, &m.vbo)
		gl.BindVertexArray(m.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
		setupAttribs(m.layout)
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		gl.BindVertexArray(0)
	}

	m.count = len(m.staged) / m.layout.Stride()
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if m.count > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(m.staged)*floatSize, gl.Ptr(m.staged), gl.DYNAMIC_DRAW)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m.count
}

// NumVertices implements textbatch.Mesh.
func (m *TextMesh) NumVertices() int {
	return m.count
}

// Draw implements textbatch.Mesh.
func (m *TextMesh) Draw(p style.Program) {
	if m.count == 0 {
		return
	}
	if prog, ok := p.(*Program); ok {
		prog.Use()
	}
	if m.atlas != nil {
		m.atlas.Bind(0)
	}
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(m.count))
	gl.BindVertexArray(0)
}

// Release implements textbatch.Mesh.
func (m *TextMesh) Release() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
		m.vbo = 0
	}
	m.staged, m.count = nil, 0
}

// setupAttribs enables one float attribute array per layout entry, at
// locations matching the layout order. The VAO and VBO must be bound.
func setupAttribs(layout style.VertexLayout) {
	stride := int32(layout.Stride() * floatSize)
	for i, a := range layout {
		offset := layout.Offset(a.Name)
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), int32(a.Size), gl.FLOAT, false, stride, gl.PtrOffset(offset*floatSize))
	}
}

// flatten appends v to dst as interleaved floats in fontctx.Vertex order.
func flatten(dst []float32, v []fontctx.Vertex) []float32 {
	for _, vx := range v {
		dst = append(dst, vx.X, vx.Y, vx.U, vx.V, vx.Alpha)
	}
	return dst
}
