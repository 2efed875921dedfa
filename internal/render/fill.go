package render

import (
	"log"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/maplabels/internal/palette"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/tile"
)

// fillLayout is position followed by an RGBA color.
var fillLayout = style.VertexLayout{
	{Name: "aPos", Size: 2},
	{Name: "aColor", Size: 4},
}

// FillMesh draws the polygon features of one tile as flat-colored triangles
// in tile-local coordinates.
type FillMesh struct {
	staged []float32
	count  int
	vao    uint32
	vbo    uint32
}

// NewFillMesh triangulates the polygons among features, coloring each polygon
// from pal. Polygons that fail to triangulate are skipped.
func NewFillMesh(features []tile.Feature, pal palette.Palette) *FillMesh {
	return &FillMesh{staged: fillVertices(features, pal)}
}

// Compile uploads the triangles. It must run on the render thread.
func (m *FillMesh) Compile() int {
	if m.vao == 0 {
		gl.GenVertexArrays(1, &m.vao)
		gl.GenBuffers(1, &m.vbo)
		gl.BindVertexArray(m.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
		setupAttribs(fillLayout)
		gl.BindVertexArray(0)
	}
	m.count = len(m.staged) / fillLayout.Stride()
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if m.count > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(m.staged)*floatSize, gl.Ptr(m.staged), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	m.staged = nil
	return m.count
}

// Draw issues the fill draw call with the bound program.
func (m *FillMesh) Draw() {
	if m.count == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(m.count))
	gl.BindVertexArray(0)
}

// Release deletes the GL objects.
func (m *FillMesh) Release() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		m.vao, m.vbo = 0, 0
	}
	m.count = 0
}

// polygonCollector gathers polygons and ignores everything else.
type polygonCollector struct {
	polygons tile.Polygons
}

func (c *polygonCollector) VisitPoints(tile.Points)       {}
func (c *polygonCollector) VisitLines(tile.Lines)         {}
func (c *polygonCollector) VisitPolygons(p tile.Polygons) { c.polygons = append(c.polygons, p...) }

func fillVertices(features []tile.Feature, pal palette.Palette) []float32 {
	var vertices []float32
	n := 0
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		var c polygonCollector
		f.Geometry.Visit(&c)
		for _, polygon := range c.polygons {
			triangles, err := earClip(polygon)
			if err != nil {
				log.Printf("WARNING: skipping %s polygon: %v", f.Layer, err)
				continue
			}
			color := pal.Pick(n)
			n++
			r, g, b, a := float32(color.R)/255.0, float32(color.G)/255.0, float32(color.B)/255.0, float32(color.A)/255.0
			for _, tri := range triangles {
				for v := 0; v < 3; v++ {
					vertices = append(vertices,
						float32(tri[v].X), float32(tri[v].Y),
						r, g, b, a,
					)
				}
			}
		}
	}
	return vertices
}
