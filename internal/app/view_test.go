package app

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/maplabels/internal/geom"
)

func approx(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestSetZoom(t *testing.T) {
	v := NewView(800, 600)
	for _, tt := range []struct{ in, want float64 }{
		{0.01, minZoom},
		{2, 2},
		{100, maxZoom},
	} {
		v.SetZoom(tt.in)
		if v.Zoom != tt.want {
			t.Errorf("SetZoom(%v) = %v, want %v", tt.in, v.Zoom, tt.want)
		}
	}
}

func TestTileToScreen(t *testing.T) {
	v := NewView(800, 600)
	side := viewportScaleFactor * 600

	if got := v.TileToScreen(geom.MakePoint(0.5, 0.5)); !approx(got, geom.MakePoint(400, 300)) {
		t.Errorf("tile center at %v, want the viewport center", got)
	}
	if got := v.TileToScreen(geom.MakePoint(0, 0)); !approx(got, geom.MakePoint(400-side/2, 300-side/2)) {
		t.Errorf("tile origin at %v", got)
	}

	v.SetPan(10, -20)
	v.SetZoom(2)
	p := geom.MakePoint(0.8, 0.1)
	s := v.TileToScreen(p)
	if want := geom.MakePoint(400+10+2*side*0.3, 300-20-2*side*0.4); !approx(s, want) {
		t.Errorf("TileToScreen(%v) = %v, want %v", p, s, want)
	}
	back, err := v.ScreenToTile(s)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(back, p) {
		t.Errorf("round trip: %v, want %v", back, p)
	}
}

func TestMVPMatchesTileToScreen(t *testing.T) {
	v := NewView(1024, 768)
	v.SetPan(-35, 12)
	v.SetZoom(1.5)
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 0.25, Y: 0.75}, {X: 1, Y: 1}} {
		clip := v.MVP().Mul4x1(mgl32.Vec4{float32(p.X), float32(p.Y), 0, 1})
		sx := (float64(clip.X()/clip.W()) + 1) / 2 * 1024
		sy := (1 - float64(clip.Y()/clip.W())) / 2 * 768
		want := v.TileToScreen(p)
		if math.Abs(sx-want.X) > 1e-2 || math.Abs(sy-want.Y) > 1e-2 {
			t.Errorf("MVP maps %v to (%v, %v), want %v", p, sx, sy, want)
		}
	}
}

func TestZoomAtKeepsCursorFixed(t *testing.T) {
	v := NewView(800, 600)
	v.SetPan(30, 40)
	cursor := geom.MakePoint(650, 120)
	before, err := v.ScreenToTile(cursor)
	if err != nil {
		t.Fatal(err)
	}
	v.ZoomAt(1.15, cursor.X, cursor.Y)
	if v.Zoom != 1.15 {
		t.Fatalf("zoom = %v", v.Zoom)
	}
	if after := v.TileToScreen(before); !approx(after, cursor) {
		t.Errorf("point under the cursor moved to %v", after)
	}
}

func TestResetTo(t *testing.T) {
	v := NewView(800, 600)
	v.SetZoom(3)
	p := geom.MakePoint(0.2, 0.9)
	v.ResetTo(p)
	if v.Zoom != 1 {
		t.Errorf("zoom = %v, want 1", v.Zoom)
	}
	if got := v.TileToScreen(p); !approx(got, geom.MakePoint(400, 300)) {
		t.Errorf("reset point at %v, want the viewport center", got)
	}
}
