package render

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/maplabels/internal/fontctx"
)

// AtlasTexture mirrors the glyph atlas of a shared context as a single-channel
// GL texture.
type AtlasTexture struct {
	font    *fontctx.Shared
	tex     uint32
	version uint64
	size    image.Point
}

// NewAtlasTexture returns a texture that follows font's atlas. Nothing is
// uploaded until the first Sync.
func NewAtlasTexture(font *fontctx.Shared) *AtlasTexture {
	return &AtlasTexture{font: font, version: ^uint64(0)}
}

// Sync uploads the atlas if it changed since the last call. The pixels are
// copied under the context lock and uploaded after it is released.
func (a *AtlasTexture) Sync() {
	img, version, ok := snapshot(a.font, a.version)
	if !ok {
		return
	}

	if a.tex == 0 {
		gl.GenTextures(1, &a.tex)
		gl.BindTexture(gl.TEXTURE_2D, a.tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}

	gl.BindTexture(gl.TEXTURE_2D, a.tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	size := img.Rect.Size()
	if size != a.size {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, int32(size.X), int32(size.Y), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
		a.size = size
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(size.X), int32(size.Y), gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	a.version = version
}

// Bind binds the texture to the given texture unit.
func (a *AtlasTexture) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, a.tex)
}

// Delete releases the texture.
func (a *AtlasTexture) Delete() {
	if a.tex != 0 {
		gl.DeleteTextures(1, &a.tex)
		a.tex = 0
	}
}

// snapshot copies the context's atlas if its version differs from seen. It
// reports false when the atlas is unchanged or the context has none.
func snapshot(font *fontctx.Shared, seen uint64) (*image.Alpha, uint64, bool) {
	var (
		img     *image.Alpha
		version uint64
		ok      bool
	)
	font.Do(func(r fontctx.Rasterizer) {
		src, isAtlas := r.(fontctx.AtlasSource)
		if !isAtlas {
			return
		}
		atlas, v := src.Atlas()
		if atlas == nil || v == seen {
			return
		}
		img = &image.Alpha{
			Pix:    append([]uint8(nil), atlas.Pix...),
			Stride: atlas.Stride,
			Rect:   atlas.Rect,
		}
		version, ok = v, true
	})
	return img, version, ok
}
