// Package textbatch builds and draws the text labels of one tile under one
// style.
//
// A Batch moves through a fixed sequence: New, Init, any number of Add calls,
// Compile, then a frame loop of Update, Prepare and Draw, and finally Destroy.
// Construction and Add may run on worker goroutines. Compile, Prepare, Draw
// and Destroy touch the mesh and must run on the render thread.
package textbatch

import (
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/paulmach/orb/maptile"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/geom"
	"github.com/irfansharif/maplabels/internal/glyphbuf"
	"github.com/irfansharif/maplabels/internal/label"
	"github.com/irfansharif/maplabels/internal/palette"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/tile"
)

var batchLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TEXT") == "1" {
		batchLogger = log.New(os.Stdout, "[batch] ", log.Ltime|log.Lmsgprefix)
	}
}

// SDF thresholds for the two draw passes. The low halo threshold widens the
// glyph outline; the fill threshold keeps glyph edges crisp.
const (
	HaloThreshold = 0.3
	FillThreshold = 0.8
)

// Mesh is GPU-resident storage for a vertex stream.
type Mesh interface {
	// SetVertices stages vertices for the next Compile.
	SetVertices(v []fontctx.Vertex)
	// Compile commits staged vertices and returns the committed count.
	Compile() int
	// NumVertices returns the committed count.
	NumVertices() int
	Draw(p style.Program)
	Release()
}

// View supplies the viewport size in pixels.
type View interface {
	Size() (width, height int)
}

// Stats summarizes a batch.
type Stats struct {
	Labels     int
	Renderable int
	Vertices   int
}

// Batch owns the labels, glyph buffer and mesh of one tile and style.
type Batch struct {
	style    *style.Style
	mesh     Mesh
	compiler *glyphbuf.Compiler
	labels   []*label.Label

	destroyed bool
}

// New binds a batch to st and an empty mesh. Init must be called before Add.
func New(st *style.Style, mesh Mesh) *Batch {
	return &Batch{
		style:    st,
		mesh:     mesh,
		compiler: glyphbuf.New(st.Labels.FontContext()),
	}
}

// Init creates the batch's glyph buffer. It panics if called twice.
func (b *Batch) Init() {
	b.compiler.CreateBuffer()
}

// Add places labels for f, a feature of tile t. Labels whose text cannot be
// rasterized are kept but never drawn.
func (b *Batch) Add(f tile.Feature, t maptile.Tile) {
	name, ok := anchor.Name(f.Properties)
	if !ok {
		return
	}
	for _, a := range anchor.Build(f.Geometry, f.Properties, b.style.Placement) {
		l := b.style.Labels.AddTextLabel(b.compiler, t, a.Segment, name, a.Kind)
		b.labels = append(b.labels, l)
	}
}

// Compile uploads the batch's glyph quads. It reports false when there is
// nothing to draw, which is not an error.
func (b *Batch) Compile() bool {
	verts, ok := b.compiler.ExtractVertices()
	if !ok {
		batchLogger.Printf("%s: nothing to compile (%d labels)", b.style.Name, len(b.labels))
		return false
	}
	b.mesh.SetVertices(verts)
	return b.mesh.Compile() > 0
}

// Update recomputes every label's screen placement for this frame.
func (b *Batch) Update(mvp mgl32.Mat4, v View, dt float32) {
	w, h := v.Size()
	screen := mgl32.Vec2{float32(w), float32(h)}
	for _, l := range b.labels {
		l.Update(mvp, screen, dt)
	}
}

// Prepare pushes changed placements into the glyph buffer, recomputes it at
// most once and re-uploads the moved quads.
func (b *Batch) Prepare() {
	for _, l := range b.labels {
		l.PushTransform(b.compiler)
	}
	if !b.compiler.PushIfDirty() {
		return
	}
	if verts, ok := b.compiler.ExtractVertices(); ok {
		b.mesh.SetVertices(verts)
		b.mesh.Compile()
	}
}

// Draw renders the committed quads twice with the style's program: a gray
// halo first, then the fill color on top.
func (b *Batch) Draw() {
	if b.mesh.NumVertices() == 0 {
		return
	}
	p := b.style.Program

	halo := palette.Float32(palette.Halo)
	p.SetUniformf("u_color", halo[:]...)
	p.SetUniformf("u_sdf", HaloThreshold)
	b.mesh.Draw(p)

	fill := palette.Float32(b.style.FillColor())
	p.SetUniformf("u_color", fill[:]...)
	p.SetUniformf("u_sdf", FillThreshold)
	b.mesh.Draw(p)
}

// Destroy releases the labels, the glyph buffer and the mesh. It panics if
// called twice.
func (b *Batch) Destroy() {
	if b.destroyed {
		panic("textbatch: Destroy called twice")
	}
	b.style.Labels.Release(b.labels)
	b.compiler.DestroyBuffer()
	b.mesh.Release()
	b.labels = nil
	b.destroyed = true
}

// Labels returns the batch's labels, including unrenderable ones.
func (b *Batch) Labels() []*label.Label {
	return b.labels
}

// BoundingBox returns the screen-space bounds of l's glyphs.
func (b *Batch) BoundingBox(l *label.Label) (geom.Box, error) {
	return b.compiler.BoundingBox(l.ID())
}

// Stats returns label and vertex counts.
func (b *Batch) Stats() Stats {
	s := Stats{Labels: len(b.labels), Vertices: b.mesh.NumVertices()}
	for _, l := range b.labels {
		if l.Renderable() {
			s.Renderable++
		}
	}
	return s
}
