package app

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/maplabels/internal/geom"
)

const (
	minZoom = 0.1
	maxZoom = 8.0

	// viewportScaleFactor is the fraction of the shorter viewport side the
	// tile covers at zoom 1.
	viewportScaleFactor = 0.9
)

// View manages the current view state including zoom, pan, and viewport. Pan
// is in pixels; the tile is centred in the viewport when pan is zero.
type View struct {
	Zoom          float64
	PanX, PanY    float64
	Width, Height int
}

// NewView creates a new view state with default values.
func NewView(width, height int) *View {
	return &View{
		Zoom:   1.0,
		Width:  width,
		Height: height,
	}
}

// Size implements textbatch.View.
func (vs *View) Size() (int, int) {
	return vs.Width, vs.Height
}

// SetZoom sets the zoom level, clamping to valid range.
func (vs *View) SetZoom(zoom float64) {
	vs.Zoom = math.Max(minZoom, math.Min(maxZoom, zoom))
}

// SetPan sets the pan position to the given coordinates.
func (vs *View) SetPan(x, y float64) {
	vs.PanX = x
	vs.PanY = y
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// ZoomAt scales the zoom by factor while keeping the screen point (x, y)
// fixed.
func (vs *View) ZoomAt(factor, x, y float64) {
	centerX, centerY := float64(vs.Width)/2, float64(vs.Height)/2
	oldZoom := vs.Zoom

	// Cursor position relative to viewport center, and the unzoomed offset
	// currently under it.
	cursorOffsetX, cursorOffsetY := x-centerX, y-centerY
	offsetX, offsetY := (cursorOffsetX-vs.PanX)/oldZoom, (cursorOffsetY-vs.PanY)/oldZoom

	vs.SetZoom(oldZoom * factor)
	vs.SetPan(cursorOffsetX-offsetX*vs.Zoom, cursorOffsetY-offsetY*vs.Zoom)
}

// ResetTo resets zoom to 1.0 and pans to center the given tile-local point in
// the viewport.
func (vs *View) ResetTo(pos geom.Point) {
	vs.Zoom = 1.0
	side := vs.side()
	vs.PanX = (0.5 - pos.X) * side
	vs.PanY = (0.5 - pos.Y) * side
}

// TileToScreen maps a tile-local point to screen pixels.
func (vs *View) TileToScreen(p geom.Point) geom.Point {
	return vs.tileToScreen().MulPoint(p)
}

// ScreenToTile maps screen pixels to a tile-local point.
func (vs *View) ScreenToTile(p geom.Point) (geom.Point, error) {
	inv, err := vs.tileToScreen().Inv()
	if err != nil {
		return geom.Point{}, err
	}
	return inv.MulPoint(p), nil
}

// MVP maps tile-local coordinates to clip space, y down.
func (vs *View) MVP() mgl32.Mat4 {
	a := vs.tileToScreen()
	model := mgl32.Mat4{
		float32(a.A), float32(a.D), 0, 0,
		float32(a.B), float32(a.E), 0, 0,
		0, 0, 1, 0,
		float32(a.C), float32(a.F), 0, 1,
	}
	proj := mgl32.Ortho2D(0, float32(vs.Width), float32(vs.Height), 0)
	return proj.Mul4(model)
}

func (vs *View) side() float64 {
	return viewportScaleFactor * math.Min(float64(vs.Width), float64(vs.Height))
}

// tileToScreen places the unit tile square at the viewport center, zooms it
// around the center and applies the pan.
func (vs *View) tileToScreen() geom.Affine {
	scale := vs.Zoom * vs.side()
	centerX, centerY := float64(vs.Width)/2, float64(vs.Height)/2
	return geom.Translate(centerX+vs.PanX, centerY+vs.PanY).
		Mul(geom.MakeAffine(scale, 0, 0, 0, scale, 0)).
		Mul(geom.Translate(-0.5, -0.5))
}
