// Package render draws decoded map tiles with OpenGL: polygon fills as a
// background and distance-field text batches on top.
//
// Every function that touches GL must run on the thread owning the context.
package render

import (
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/textbatch"
)

// View is the camera state the renderer needs each frame.
type View interface {
	textbatch.View
	// MVP maps tile-local coordinates to clip space.
	MVP() mgl32.Mat4
}

// Layer is the renderable content of one tile.
type Layer struct {
	Fills   *FillMesh
	Batches []*textbatch.Batch
}

// Renderer owns the programs and the glyph atlas texture.
type Renderer struct {
	text  *Program
	fill  *Program
	atlas *AtlasTexture
	stats Stats
}

// Stats tracks rendering performance metrics.
type Stats struct {
	LastPrepareTimeMs float64 // time spent updating and preparing batches in milliseconds
	LastDrawTimeUs    float64 // time spent issuing draw calls in microseconds
	Batches           int
	Labels            int
	Vertices          int
}

// NewRenderer compiles the shader programs. font is the context whose atlas
// text meshes sample.
func NewRenderer(font *fontctx.Shared) *Renderer {
	return &Renderer{
		text:  NewTextProgram(),
		fill:  NewFillProgram(),
		atlas: NewAtlasTexture(font),
	}
}

// TextProgram is the program text styles should be built with.
func (r *Renderer) TextProgram() *Program {
	return r.text
}

// NewTextMesh returns an empty mesh sampling the renderer's atlas.
func (r *Renderer) NewTextMesh() *TextMesh {
	return NewTextMesh(style.TextLayout(), r.atlas)
}

// Frame advances and draws one frame: fills first, then every text batch.
func (r *Renderer) Frame(v View, layers []Layer, dt float32) {
	w, h := v.Size()
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.ClearColor(0.95, 0.95, 0.93, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	mvp := v.MVP()
	startTime := time.Now()
	stats := Stats{}
	for _, l := range layers {
		for _, b := range l.Batches {
			b.Update(mvp, v, dt)
			b.Prepare()
			s := b.Stats()
			stats.Batches++
			stats.Labels += s.Labels
			stats.Vertices += s.Vertices
		}
	}
	r.atlas.Sync()
	stats.LastPrepareTimeMs = float64(time.Since(startTime).Microseconds()) / 1000.0

	startTime = time.Now()
	r.fill.Use()
	r.fill.SetUniformMatrix4("uTransform", mvp)
	for _, l := range layers {
		if l.Fills != nil {
			l.Fills.Draw()
		}
	}

	r.text.Use()
	r.text.SetUniformMatrix4("u_proj", mgl32.Ortho2D(0, float32(w), float32(h), 0))
	r.text.SetUniformi("u_tex", 0)
	for _, l := range layers {
		for _, b := range l.Batches {
			b.Draw()
		}
	}
	stats.LastDrawTimeUs = float64(time.Since(startTime).Microseconds())
	r.stats = stats
}

// Stats returns the statistics of the last frame.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Delete releases the programs and the atlas texture.
func (r *Renderer) Delete() {
	r.text.Delete()
	r.fill.Delete()
	r.atlas.Delete()
}
