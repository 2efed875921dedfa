package fontctx

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// glyphEntry is a glyph cached in the atlas.
type glyphEntry struct {
	// bounds is the quad, in pixels relative to the pen position on the
	// baseline, including the distance-field padding. Empty for blank glyphs.
	bounds         image.Rectangle
	u0, v0, u1, v1 float32
	advance        fixed.Int26_6
}

// atlas packs distance-field glyphs into one alpha image using shelves: rows
// as tall as the tallest glyph placed on them, filled left to right.
type atlas struct {
	img     *image.Alpha
	padding int
	shelves []shelf
	glyphs  map[rune]*glyphEntry
	version uint64
}

type shelf struct {
	y, height, x int
}

func newAtlas(size, padding int) *atlas {
	return &atlas{
		img:     image.NewAlpha(image.Rect(0, 0, size, size)),
		padding: padding,
		glyphs:  make(map[rune]*glyphEntry),
	}
}

// allocate finds space for a w x h rectangle.
func (a *atlas) allocate(w, h int) (image.Point, bool) {
	size := a.img.Rect.Dx()
	pw, ph := w+a.padding, h+a.padding
	if pw > size {
		return image.Point{}, false
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.x+pw > size {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow downwards.
			if i != len(a.shelves)-1 || s.y+ph > size {
				continue
			}
			s.height = h
		}
		p := image.Pt(s.x, s.y)
		s.x += pw
		return p, true
	}

	y := 0
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		y = last.y + last.height + a.padding
	}
	if y+ph > size {
		return image.Point{}, false
	}
	a.shelves = append(a.shelves, shelf{y: y, height: h, x: pw})
	return image.Pt(0, y), true
}

// glyph returns the cached entry for r, rasterizing it into the atlas on
// first use.
func (a *atlas) glyph(face font.Face, r rune, radius int) (*glyphEntry, error) {
	if g, ok := a.glyphs[r]; ok {
		return g, nil
	}

	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		return nil, ErrMissingGlyph
	}
	g := &glyphEntry{advance: advance}
	if dr.Empty() {
		a.glyphs[r] = g
		return g, nil
	}

	field := distanceField(mask, image.Rectangle{Min: maskp, Max: maskp.Add(dr.Size())}, radius)
	p, ok := a.allocate(field.Rect.Dx(), field.Rect.Dy())
	if !ok {
		return nil, ErrAtlasFull
	}
	dst := image.Rectangle{Min: p, Max: p.Add(field.Rect.Size())}
	draw.Draw(a.img, dst, field, image.Point{}, draw.Src)
	a.version++

	size := float32(a.img.Rect.Dx())
	g.bounds = dr.Inset(-radius)
	g.u0, g.v0 = float32(dst.Min.X)/size, float32(dst.Min.Y)/size
	g.u1, g.v1 = float32(dst.Max.X)/size, float32(dst.Max.Y)/size
	a.glyphs[r] = g
	textLogger.Printf("cached glyph %q (%dx%d) at %v, atlas version %d", r, dst.Dx(), dst.Dy(), dst.Min, a.version)
	return g, nil
}

// distanceField converts the coverage in mask over r into a signed distance
// field padded by radius on every side. The glyph edge maps to 0.5 (128),
// the inside is brighter, and distances beyond radius saturate.
func distanceField(mask image.Image, r image.Rectangle, radius int) *image.Alpha {
	w, h := r.Dx(), r.Dy()
	inside := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := color.AlphaModel.Convert(mask.At(r.Min.X+x, r.Min.Y+y)).(color.Alpha).A
			inside[y*w+x] = a >= 0x80
		}
	}
	in := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return inside[y*w+x]
	}

	spread := float64(radius) - 0.5
	out := image.NewAlpha(image.Rect(0, 0, w+2*radius, h+2*radius))
	for oy := 0; oy < out.Rect.Dy(); oy++ {
		for ox := 0; ox < out.Rect.Dx(); ox++ {
			x, y := ox-radius, oy-radius
			self := in(x, y)
			best := float64(radius)
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if in(x+dx, y+dy) == self {
						continue
					}
					if d := math.Hypot(float64(dx), float64(dy)); d < best {
						best = d
					}
				}
			}
			// The edge lies halfway between two pixels of opposite state.
			d := best - 0.5
			if !self {
				d = -d
			}
			v := 0.5 + d/(2*spread)
			out.Pix[oy*out.Stride+ox] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
		}
	}
	return out
}
