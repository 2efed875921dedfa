package fontctx

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/irfansharif/maplabels/internal/geom"
)

// Options configures an Engine.
type Options struct {
	// Font is TrueType or OpenType data. Nil selects Go Regular.
	Font []byte
	// Size is the font size in pixels.
	Size float64
	// SDFRadius is the distance-field spread in pixels, also used as glyph
	// padding. Must be at least 1.
	SDFRadius int
	// AtlasSize is the side of the square glyph atlas in pixels.
	AtlasSize int
}

// DefaultOptions returns 24px Go Regular with a 512x512 atlas.
func DefaultOptions() Options {
	return Options{
		Size:      24,
		SDFRadius: 4,
		AtlasSize: 512,
	}
}

// Engine rasterizes text with an x/image font face into distance-field glyph
// quads. It is not safe for concurrent use; wrap it in a Shared.
type Engine struct {
	font      *sfnt.Font
	sfntBuf   sfnt.Buffer
	face      font.Face
	metrics   font.Metrics
	atlas     *atlas
	sdfRadius int

	buffers []bufferSlot
	free    []uint32
}

var _ Rasterizer = (*Engine)(nil)
var _ AtlasSource = (*Engine)(nil)

type bufferSlot struct {
	gen uint32
	buf *buffer // nil when the slot is free
}

type buffer struct {
	sets  []glyphSet
	verts []Vertex
	stale bool // a glyph set was rasterized since verts was built
}

type glyphSet struct {
	quads  []Vertex // relative to the label origin; alpha unused
	bounds geom.Box
	x, y   float32
	rot    float32
	alpha  float32
}

// NewEngine parses the font and allocates the atlas.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Size <= 0 {
		return nil, errors.Errorf("invalid font size %v", opts.Size)
	}
	if opts.SDFRadius < 1 {
		return nil, errors.Errorf("invalid distance-field radius %d", opts.SDFRadius)
	}
	if opts.AtlasSize < 64 {
		return nil, errors.Errorf("atlas size %d is below 64", opts.AtlasSize)
	}
	data := opts.Font
	if data == nil {
		data = goregular.TTF
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing font")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating font face")
	}

	return &Engine{
		font:      f,
		face:      face,
		metrics:   face.Metrics(),
		atlas:     newAtlas(opts.AtlasSize, 1),
		sdfRadius: opts.SDFRadius,
	}, nil
}

// CreateBuffer implements Rasterizer.
func (e *Engine) CreateBuffer() BufferID {
	var index uint32
	if n := len(e.free); n > 0 {
		index = e.free[n-1]
		e.free = e.free[:n-1]
	} else {
		index = uint32(len(e.buffers))
		e.buffers = append(e.buffers, bufferSlot{gen: 1})
	}
	slot := &e.buffers[index]
	slot.buf = &buffer{}
	return BufferID{index: index, gen: slot.gen}
}

// DeleteBuffer implements Rasterizer.
func (e *Engine) DeleteBuffer(id BufferID) error {
	if _, err := e.lookup(id); err != nil {
		return err
	}
	slot := &e.buffers[id.index]
	slot.buf = nil
	slot.gen++
	e.free = append(e.free, id.index)
	return nil
}

// GenText implements Rasterizer. New glyph sets are transparent until their
// first Transform.
func (e *Engine) GenText(id BufferID) (TextID, error) {
	b, err := e.lookup(id)
	if err != nil {
		return 0, err
	}
	b.sets = append(b.sets, glyphSet{})
	return TextID(len(b.sets) - 1), nil
}

// Rasterize implements Rasterizer. On failure the glyph set is left empty.
func (e *Engine) Rasterize(id BufferID, text TextID, s string) error {
	b, err := e.lookup(id)
	if err != nil {
		return err
	}
	set, err := b.set(text)
	if err != nil {
		return err
	}

	b.stale = true
	set.quads, set.bounds = nil, geom.Box{}
	quads, bounds, err := e.layout(s)
	if err != nil {
		return errors.Wrapf(err, "rasterizing %q", s)
	}
	set.quads, set.bounds = quads, bounds
	return nil
}

// Transform implements Rasterizer.
func (e *Engine) Transform(id BufferID, text TextID, x, y, rotation, alpha float32) error {
	b, err := e.lookup(id)
	if err != nil {
		return err
	}
	set, err := b.set(text)
	if err != nil {
		return err
	}
	set.x, set.y, set.rot, set.alpha = x, y, rotation, alpha
	return nil
}

// UpdateBuffer implements Rasterizer.
func (e *Engine) UpdateBuffer(id BufferID) error {
	b, err := e.lookup(id)
	if err != nil {
		return err
	}
	b.rebuild()
	return nil
}

// VerticesSize implements Rasterizer.
func (e *Engine) VerticesSize(id BufferID) (int, error) {
	b, err := e.lookup(id)
	if err != nil {
		return 0, err
	}
	if b.stale {
		b.rebuild()
	}
	return len(b.verts), nil
}

// Vertices implements Rasterizer.
func (e *Engine) Vertices(id BufferID, dst []Vertex) error {
	b, err := e.lookup(id)
	if err != nil {
		return err
	}
	if b.stale {
		b.rebuild()
	}
	if len(dst) != len(b.verts) {
		return errors.Wrapf(ErrSizeMismatch, "got %d, have %d", len(dst), len(b.verts))
	}
	copy(dst, b.verts)
	return nil
}

// BBox implements Rasterizer.
func (e *Engine) BBox(id BufferID, text TextID) (geom.Box, error) {
	b, err := e.lookup(id)
	if err != nil {
		return geom.Box{}, err
	}
	set, err := b.set(text)
	if err != nil {
		return geom.Box{}, err
	}
	if len(set.quads) == 0 {
		return geom.Box{}, errors.Wrapf(ErrInvalidText, "glyph set %d has no glyphs", text)
	}
	xf := set.affine()
	lb := set.bounds
	corners := []geom.Point{
		xf.MulPoint(geom.MakePoint(lb.X, lb.Y)),
		xf.MulPoint(geom.MakePoint(lb.X+lb.W, lb.Y)),
		xf.MulPoint(geom.MakePoint(lb.X+lb.W, lb.Y+lb.H)),
		xf.MulPoint(geom.MakePoint(lb.X, lb.Y+lb.H)),
	}
	box, _ := geom.Bounds(corners)
	return box, nil
}

// Atlas implements AtlasSource.
func (e *Engine) Atlas() (*image.Alpha, uint64) {
	return e.atlas.img, e.atlas.version
}

func (e *Engine) lookup(id BufferID) (*buffer, error) {
	if int(id.index) >= len(e.buffers) {
		return nil, ErrInvalidBuffer
	}
	slot := e.buffers[id.index]
	if slot.gen != id.gen || slot.buf == nil {
		return nil, ErrInvalidBuffer
	}
	return slot.buf, nil
}

// layout places the glyphs of s on a single line with kerning and centres the
// result on the origin. Two triangles are emitted per visible glyph.
func (e *Engine) layout(s string) ([]Vertex, geom.Box, error) {
	var quads []Vertex
	var pen fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			pen += e.face.Kern(prev, r)
		}
		g, err := e.glyph(r)
		if err != nil {
			return nil, geom.Box{}, errors.Wrapf(err, "rune %q", r)
		}
		if !g.bounds.Empty() {
			quads = appendQuad(quads, fixedToFloat(pen), g)
		}
		pen += g.advance
		prev = r
	}

	// Centre horizontally on the advance width and vertically between the
	// ascent and descent around the baseline at y = 0.
	dx := -fixedToFloat(pen) / 2
	dy := fixedToFloat(e.metrics.Ascent-e.metrics.Descent) / 2
	for i := range quads {
		quads[i].X += dx
		quads[i].Y += dy
	}

	pts := make([]geom.Point, len(quads))
	for i, v := range quads {
		pts[i] = geom.MakePoint(float64(v.X), float64(v.Y))
	}
	bounds, _ := geom.Bounds(pts)
	return quads, bounds, nil
}

// glyph returns the atlas entry for r. Runes the font maps to the notdef
// glyph are reported as missing rather than drawn as boxes.
func (e *Engine) glyph(r rune) (*glyphEntry, error) {
	if g, ok := e.atlas.glyphs[r]; ok {
		return g, nil
	}
	if index, err := e.font.GlyphIndex(&e.sfntBuf, r); err != nil || index == 0 {
		return nil, ErrMissingGlyph
	}
	return e.atlas.glyph(e.face, r, e.sdfRadius)
}

func appendQuad(quads []Vertex, x float32, g *glyphEntry) []Vertex {
	x0, y0 := x+float32(g.bounds.Min.X), float32(g.bounds.Min.Y)
	x1, y1 := x+float32(g.bounds.Max.X), float32(g.bounds.Max.Y)
	return append(quads,
		// first triangle
		Vertex{X: x0, Y: y0, U: g.u0, V: g.v0},
		Vertex{X: x0, Y: y1, U: g.u0, V: g.v1},
		Vertex{X: x1, Y: y1, U: g.u1, V: g.v1},
		// second triangle
		Vertex{X: x0, Y: y0, U: g.u0, V: g.v0},
		Vertex{X: x1, Y: y1, U: g.u1, V: g.v1},
		Vertex{X: x1, Y: y0, U: g.u1, V: g.v0},
	)
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

func (b *buffer) set(id TextID) (*glyphSet, error) {
	if int(id) >= len(b.sets) {
		return nil, ErrInvalidText
	}
	return &b.sets[id], nil
}

func (b *buffer) rebuild() {
	b.verts = b.verts[:0]
	for i := range b.sets {
		set := &b.sets[i]
		xf := set.affine()
		for _, v := range set.quads {
			p := xf.MulPoint(geom.MakePoint(float64(v.X), float64(v.Y)))
			b.verts = append(b.verts, Vertex{
				X: float32(p.X), Y: float32(p.Y),
				U: v.U, V: v.V,
				Alpha: set.alpha,
			})
		}
	}
	b.stale = false
}

func (s *glyphSet) affine() geom.Affine {
	return geom.Translate(float64(s.x), float64(s.y)).Mul(geom.Rotate(float64(s.rot)))
}
