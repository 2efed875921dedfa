package label

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/paulmach/orb/maptile"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/geom"
)

var labelLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TEXT") == "1" {
		labelLogger = log.New(os.Stdout, "[labels] ", log.Ltime|log.Lmsgprefix)
	}
}

// DefaultFadeDuration is how long, in seconds, a label takes to fade in.
const DefaultFadeDuration = 0.25

// GlyphAllocator reserves and rasterizes glyph sets for new labels.
type GlyphAllocator interface {
	AllocateGlyphSet() fontctx.TextID
	Rasterize(text string, id fontctx.TextID) bool
}

// Manager registers labels for every batch sharing a font context. It is safe
// for concurrent use.
type Manager struct {
	font *fontctx.Shared
	fade float32

	mu    sync.Mutex
	tiles map[maptile.Tile]int // live labels per tile
	total int
}

// NewManager returns a manager for labels rasterized in font. fade is the
// fade-in duration in seconds; zero or less disables fading.
func NewManager(font *fontctx.Shared, fade float32) *Manager {
	return &Manager{
		font:  font,
		fade:  fade,
		tiles: make(map[maptile.Tile]int),
	}
}

// FontContext returns the shared rasterization context.
func (m *Manager) FontContext() *fontctx.Shared {
	return m.font
}

// AddTextLabel allocates a glyph set for text, attempts to rasterize it and
// registers the label under tile t. A label whose text cannot be rasterized
// is still returned; it never contributes glyphs.
func (m *Manager) AddTextLabel(alloc GlyphAllocator, t maptile.Tile, segment [2]geom.Point, text string, kind anchor.Kind) *Label {
	l := &Label{
		id:      alloc.AllocateGlyphSet(),
		text:    text,
		segment: segment,
		kind:    kind,
		tile:    t,
		fade:    m.fade,
		dirty:   true, // the first placement is always pushed
	}
	l.renderable = alloc.Rasterize(text, l.id)
	if !l.renderable {
		labelLogger.Printf("tile %v: %s label %q is not renderable", t, kind, text)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiles[t]++
	m.total++
	return l
}

// Release unregisters labels. Their glyph sets go away with the owning
// batch's buffer.
func (m *Manager) Release(labels []*Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range labels {
		m.tiles[l.tile]--
		if m.tiles[l.tile] <= 0 {
			delete(m.tiles, l.tile)
		}
		m.total--
	}
}

// Len returns the number of live labels.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// TileLen returns the number of live labels registered under t.
func (m *Manager) TileLen(t maptile.Tile) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tiles[t]
}
