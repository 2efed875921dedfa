// Package style binds the rendering parameters shared by every text batch of
// one map style: vertex layout, fill color, shader program, label manager and
// placement tuning.
package style

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/label"
	"github.com/irfansharif/maplabels/internal/palette"
)

// Program is the shader program labels are drawn with.
type Program interface {
	// SetUniformf sets a float, vec2, vec3 or vec4 uniform by name.
	SetUniformf(name string, values ...float32)
}

// Attrib is one vertex attribute: its name in the shader and its number of
// float32 components.
type Attrib struct {
	Name string
	Size int
}

// VertexLayout describes interleaved float32 vertex data.
type VertexLayout []Attrib

// Stride returns the size of one vertex in float32s.
func (l VertexLayout) Stride() int {
	n := 0
	for _, a := range l {
		n += a.Size
	}
	return n
}

// Offset returns the float32 offset of attribute name within a vertex, or -1.
func (l VertexLayout) Offset(name string) int {
	n := 0
	for _, a := range l {
		if a.Name == name {
			return n
		}
		n += a.Size
	}
	return -1
}

// TextLayout is the layout of fontctx.Vertex.
func TextLayout() VertexLayout {
	return VertexLayout{
		{Name: "a_position", Size: 2},
		{Name: "a_uv", Size: 2},
		{Name: "a_alpha", Size: 1},
	}
}

// Style is immutable once built; batches share it by pointer.
type Style struct {
	Name         string
	VertexLayout VertexLayout
	// Color is the label fill color, packed as 0xRRGGBB.
	Color     uint32
	Program   Program
	Labels    *label.Manager
	Placement anchor.Options
}

// New returns a text style with the default layout and placement.
func New(name string, color uint32, program Program, labels *label.Manager) *Style {
	return &Style{
		Name:         name,
		VertexLayout: TextLayout(),
		Color:        color,
		Program:      program,
		Labels:       labels,
		Placement:    anchor.DefaultOptions(),
	}
}

// FillColor decodes Color.
func (s *Style) FillColor() colorful.Color {
	return palette.Unpack(s.Color)
}
