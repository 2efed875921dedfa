// Package palette decodes label colors and generates the background fill
// palette for polygon features.
package palette

import (
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// Halo is the fixed outline color drawn under every label.
var Halo = colorful.Color{R: 0.2, G: 0.2, B: 0.2}

// Unpack decodes a packed 0xRRGGBB color into channels in [0, 1]. Bits above
// the low 24 are ignored.
func Unpack(packed uint32) colorful.Color {
	return colorful.Color{
		R: float64(packed>>16&0xff) / 255,
		G: float64(packed>>8&0xff) / 255,
		B: float64(packed&0xff) / 255,
	}
}

// Pack is the inverse of Unpack, rounding each channel to 8 bits.
func Pack(c colorful.Color) uint32 {
	r, g, b := c.Clamped().RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Float32 returns the channels of c as shader uniform values.
func Float32(c colorful.Color) [3]float32 {
	return [3]float32{float32(c.R), float32(c.G), float32(c.B)}
}

// Palette holds five fill colors for polygon features.
type Palette [5]color.RGBA

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RandomPalette returns a muted palette suitable for map backgrounds. The
// first entry is a dark base, the second stays white for water and open land.
func RandomPalette(r *rand.Rand) Palette {
	// h in 0-100 maps onto 0-360 degrees, s and b onto 0-1.
	hsb := func(h, s, b float64) color.RGBA {
		c := colorful.Hsv(h*3.6, clamp(s/100.0, 0, 1), clamp(b/100.0, 0, 1))
		red, green, blue := c.RGB255()
		return color.RGBA{R: red, G: green, B: blue, A: 255}
	}

	p := Palette{}
	p[0] = hsb(r.Float64()*100, r.Float64()*100, r.Float64()*30)
	p[1] = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i := 2; i < 5; i++ {
		p[i] = hsb(r.Float64()*100, r.Float64()*30+10, r.Float64()*20+70)
	}
	return p
}

// Pick returns the fill color for the i-th polygon, skipping the dark base.
func (p Palette) Pick(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return p[1+i%(len(p)-1)]
}

// Shimmered jitters the brightness of the accent colors by up to amount/2
// either way, so neighboring tiles read as distinct. The base and white
// entries are kept. A non-positive amount returns p unchanged.
func Shimmered(p Palette, amount float64, r *rand.Rand) Palette {
	if amount <= 0 {
		return p
	}

	out := p
	for i := 2; i < len(out); i++ {
		c, _ := colorful.MakeColor(out[i])
		h, s, v := c.Hsv()
		v = clamp(v+(r.Float64()-0.5)*amount, 0, 1)
		red, green, blue := colorful.Hsv(h, s, v).RGB255()
		out[i] = color.RGBA{R: red, G: green, B: blue, A: 255}
	}
	return out
}
