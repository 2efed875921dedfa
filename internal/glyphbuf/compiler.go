// Package glyphbuf bridges placed labels and the vertex stream handed to the
// GPU. A Compiler owns one buffer in the shared rasterization context and
// takes the context lock around each individual context call.
package glyphbuf

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/geom"
)

var glyphLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TEXT") == "1" {
		glyphLogger = log.New(os.Stdout, "[glyphs] ", log.Ltime|log.Lmsgprefix)
	}
}

// Compiler accumulates per-label transforms for one buffer and recomputes the
// buffer at most once per push.
type Compiler struct {
	font *fontctx.Shared
	buf  fontctx.BufferID

	destroyed bool
	dirty     bool
}

// New returns a compiler over font. CreateBuffer must be called before
// anything else.
func New(font *fontctx.Shared) *Compiler {
	return &Compiler{font: font}
}

// CreateBuffer allocates the compiler's buffer. It panics if called twice.
func (c *Compiler) CreateBuffer() {
	if c.buf.Valid() || c.destroyed {
		panic("glyphbuf: CreateBuffer called twice")
	}
	c.font.Do(func(r fontctx.Rasterizer) {
		c.buf = r.CreateBuffer()
	})
	glyphLogger.Printf("created buffer %v", c.buf)
}

// DestroyBuffer releases the buffer and every glyph set in it. The compiler is
// unusable afterwards.
func (c *Compiler) DestroyBuffer() {
	c.mustBeLive("DestroyBuffer")
	var err error
	c.font.Do(func(r fontctx.Rasterizer) {
		err = r.DeleteBuffer(c.buf)
	})
	if err != nil {
		panic(fmt.Sprintf("glyphbuf: deleting buffer %v: %v", c.buf, err))
	}
	glyphLogger.Printf("destroyed buffer %v", c.buf)
	c.destroyed, c.dirty = true, false
}

// AllocateGlyphSet reserves a glyph set without rasterizing anything.
func (c *Compiler) AllocateGlyphSet() fontctx.TextID {
	c.mustBeLive("AllocateGlyphSet")
	var (
		id  fontctx.TextID
		err error
	)
	c.font.Do(func(r fontctx.Rasterizer) {
		id, err = r.GenText(c.buf)
	})
	if err != nil {
		panic(fmt.Sprintf("glyphbuf: allocating glyph set in %v: %v", c.buf, err))
	}
	return id
}

// Rasterize tessellates text into glyph set id. Failures are not fatal: the
// caller treats the label as unrenderable.
func (c *Compiler) Rasterize(text string, id fontctx.TextID) bool {
	c.mustBeLive("Rasterize")
	var err error
	c.font.Do(func(r fontctx.Rasterizer) {
		err = r.Rasterize(c.buf, id, text)
	})
	if err != nil {
		glyphLogger.Printf("glyph set %d: %v", id, err)
		return false
	}
	return true
}

// SetTransform places glyph set id on screen. It always marks the compiler
// dirty; PushIfDirty does the expensive work.
func (c *Compiler) SetTransform(id fontctx.TextID, pos mgl32.Vec2, rotation, alpha float32) {
	c.mustBeLive("SetTransform")
	var err error
	c.font.Do(func(r fontctx.Rasterizer) {
		err = r.Transform(c.buf, id, pos.X(), pos.Y(), rotation, alpha)
	})
	if err != nil {
		glyphLogger.Printf("glyph set %d: %v", id, err)
	}
	c.dirty = true
}

// PushIfDirty recomputes the buffer once if any transform changed since the
// last push. It reports whether a recomputation happened.
func (c *Compiler) PushIfDirty() bool {
	c.mustBeLive("PushIfDirty")
	if !c.dirty {
		return false
	}
	var err error
	c.font.Do(func(r fontctx.Rasterizer) {
		err = r.UpdateBuffer(c.buf)
	})
	c.dirty = false
	if err != nil {
		glyphLogger.Printf("updating buffer %v: %v", c.buf, err)
		return false
	}
	return true
}

// ExtractVertices copies out the buffer's vertex stream. It reports false when
// there is nothing to render, either because the buffer is empty or because
// the context failed to fill it.
func (c *Compiler) ExtractVertices() ([]fontctx.Vertex, bool) {
	c.mustBeLive("ExtractVertices")
	var (
		n   int
		err error
	)
	c.font.Do(func(r fontctx.Rasterizer) {
		n, err = r.VerticesSize(c.buf)
	})
	if err != nil || n == 0 {
		return nil, false
	}

	verts := make([]fontctx.Vertex, n)
	c.font.Do(func(r fontctx.Rasterizer) {
		err = r.Vertices(c.buf, verts)
	})
	if err != nil {
		glyphLogger.Printf("extracting %d vertices from %v: %v", n, c.buf, err)
		return nil, false
	}
	return verts, true
}

// BoundingBox returns the screen-space bounds of glyph set id. It is only
// meaningful after a successful Rasterize and at least one SetTransform.
func (c *Compiler) BoundingBox(id fontctx.TextID) (geom.Box, error) {
	c.mustBeLive("BoundingBox")
	var (
		box geom.Box
		err error
	)
	c.font.Do(func(r fontctx.Rasterizer) {
		box, err = r.BBox(c.buf, id)
	})
	return box, err
}

// Dirty reports whether transforms are waiting to be pushed.
func (c *Compiler) Dirty() bool { return c.dirty }

func (c *Compiler) mustBeLive(op string) {
	if !c.buf.Valid() {
		panic(fmt.Sprintf("glyphbuf: %s before CreateBuffer", op))
	}
	if c.destroyed {
		panic(fmt.Sprintf("glyphbuf: %s after DestroyBuffer", op))
	}
}
