// Package fontctx is the glyph rasterization context shared by every text
// batch.
//
// A Rasterizer turns strings into glyph quads inside per-batch buffers and
// keeps each glyph set's screen placement. Rasterizers are not safe for
// concurrent use; the only way to reach one is through Shared, which holds a
// mutex for the duration of a single call.
//
// Buffers and glyph sets are addressed by small handles (BufferID, TextID)
// rather than pointers. Buffer handles carry a generation, so a handle used
// after its buffer was deleted is rejected instead of aliasing a newer buffer.
package fontctx

import (
	"image"
	"io"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/irfansharif/maplabels/internal/geom"
)

var textLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TEXT") == "1" {
		textLogger = log.New(os.Stdout, "[text] ", log.Ltime|log.Lmsgprefix)
	}
}

var (
	// ErrInvalidBuffer is returned for unknown or deleted buffer handles.
	ErrInvalidBuffer = errors.New("fontctx: invalid buffer")
	// ErrInvalidText is returned for glyph set ids not allocated in a buffer,
	// or for bounding-box queries on glyph sets without glyphs.
	ErrInvalidText = errors.New("fontctx: invalid glyph set")
	// ErrMissingGlyph is returned when the font has no glyph for a rune.
	ErrMissingGlyph = errors.New("fontctx: missing glyph")
	// ErrAtlasFull is returned when a new glyph does not fit in the atlas.
	ErrAtlasFull = errors.New("fontctx: atlas full")
	// ErrSizeMismatch is returned when the destination slice passed to
	// Vertices does not match the buffer's vertex count.
	ErrSizeMismatch = errors.New("fontctx: vertex size mismatch")
)

// BufferID identifies one batch's slice of the context. The zero value is
// never a valid buffer.
type BufferID struct {
	index uint32
	gen   uint32
}

// Valid reports whether the handle was ever issued by a context. It does not
// report whether the buffer is still alive.
func (id BufferID) Valid() bool { return id.gen != 0 }

// TextID identifies one glyph set within a buffer.
type TextID uint32

// Vertex is one glyph quad corner: screen position, atlas texture
// coordinates and opacity.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Alpha float32
}

// VertexFloats is the number of float32 components in a Vertex.
const VertexFloats = 5

// Rasterizer is the boundary to the glyph engine.
type Rasterizer interface {
	// CreateBuffer allocates a new, empty buffer.
	CreateBuffer() BufferID
	// DeleteBuffer releases a buffer and every glyph set in it.
	DeleteBuffer(buf BufferID) error
	// GenText reserves a glyph set in the buffer without rasterizing.
	GenText(buf BufferID) (TextID, error)
	// Rasterize lays out and tessellates text into the glyph set.
	Rasterize(buf BufferID, id TextID, text string) error
	// Transform sets a glyph set's screen position, rotation (radians) and
	// opacity. It takes effect on the next UpdateBuffer.
	Transform(buf BufferID, id TextID, x, y, rotation, alpha float32) error
	// UpdateBuffer recomputes the buffer's vertex stream from the current
	// transforms of all its glyph sets.
	UpdateBuffer(buf BufferID) error
	// VerticesSize returns the number of vertices in the buffer's stream.
	VerticesSize(buf BufferID) (int, error)
	// Vertices copies the vertex stream into dst, which must have exactly
	// VerticesSize elements.
	Vertices(buf BufferID, dst []Vertex) error
	// BBox returns the screen-space bounds of a transformed glyph set.
	BBox(buf BufferID, id TextID) (geom.Box, error)
}

// AtlasSource is implemented by rasterizers that render glyphs into a single
// texture atlas. The version changes whenever the atlas contents change.
type AtlasSource interface {
	Atlas() (img *image.Alpha, version uint64)
}

// Shared guards a Rasterizer with a mutex. Callers hold the lock only for the
// duration of the function passed to Do, which should be a single context
// call.
type Shared struct {
	mu sync.Mutex
	r  Rasterizer
}

// NewShared wraps r. The caller must not use r directly afterwards.
func NewShared(r Rasterizer) *Shared {
	return &Shared{r: r}
}

// Do runs fn with exclusive access to the rasterizer. fn must not retain it.
func (s *Shared) Do(fn func(r Rasterizer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.r)
}
