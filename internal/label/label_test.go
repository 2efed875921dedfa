package label

import (
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/paulmach/orb/maptile"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/geom"
)

// unitTile maps the tile square onto the whole screen, y down.
var unitTile = mgl32.Ortho2D(0, 1, 1, 0)

var screen = mgl32.Vec2{800, 600}

type fakeAllocator struct {
	next fontctx.TextID
	fail map[string]bool
}

func (a *fakeAllocator) AllocateGlyphSet() fontctx.TextID {
	id := a.next
	a.next++
	return id
}

func (a *fakeAllocator) Rasterize(text string, _ fontctx.TextID) bool {
	return !a.fail[text]
}

type recorder struct {
	calls []fontctx.TextID
	pos   mgl32.Vec2
	rot   float32
	alpha float32
}

func (r *recorder) SetTransform(id fontctx.TextID, pos mgl32.Vec2, rotation, alpha float32) {
	r.calls = append(r.calls, id)
	r.pos, r.rot, r.alpha = pos, rotation, alpha
}

func newLabel(t *testing.T, m *Manager, seg [2]geom.Point, kind anchor.Kind) *Label {
	t.Helper()
	return m.AddTextLabel(&fakeAllocator{}, maptile.New(0, 0, 0), seg, "label", kind)
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestUpdatePointLabel(t *testing.T) {
	m := NewManager(nil, 0)
	p := geom.MakePoint(0.25, 0.5)
	l := newLabel(t, m, [2]geom.Point{p, p}, anchor.Point)

	l.Update(unitTile, screen, 0.016)
	s := l.State()
	if !near(s.ScreenPos.X(), 200) || !near(s.ScreenPos.Y(), 300) {
		t.Errorf("screen position = %v, want (200, 300)", s.ScreenPos)
	}
	if s.Rotation != 0 {
		t.Errorf("rotation = %v, want 0", s.Rotation)
	}
	if !l.Visible() || s.Alpha != 1 {
		t.Errorf("visible = %v, alpha = %v; want visible and opaque without fading", l.Visible(), s.Alpha)
	}
}

func TestUpdateLineLabel(t *testing.T) {
	m := NewManager(nil, 0)
	tests := []struct {
		name string
		seg  [2]geom.Point
		rot  float32
	}{
		{"left to right", [2]geom.Point{{X: 0.2, Y: 0.5}, {X: 0.8, Y: 0.5}}, 0},
		{"right to left is flipped", [2]geom.Point{{X: 0.8, Y: 0.5}, {X: 0.2, Y: 0.5}}, 0},
		{"downwards", [2]geom.Point{{X: 0.5, Y: 0.2}, {X: 0.5, Y: 0.8}}, math.Pi / 2},
		{"upwards is flipped", [2]geom.Point{{X: 0.5, Y: 0.8}, {X: 0.5, Y: 0.2}}, math.Pi / 2},
		{"diagonal", [2]geom.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.75}}, float32(math.Atan2(300, 400))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLabel(t, m, tt.seg, anchor.Line)
			l.Update(unitTile, screen, 0.016)
			s := l.State()
			mid := tt.seg[0].Add(tt.seg[1]).Scale(0.5)
			if !near(s.ScreenPos.X(), float32(mid.X)*800) || !near(s.ScreenPos.Y(), float32(mid.Y)*600) {
				t.Errorf("screen position = %v, want midpoint %v", s.ScreenPos, mid)
			}
			if !near(s.Rotation, tt.rot) {
				t.Errorf("rotation = %v, want %v", s.Rotation, tt.rot)
			}
		})
	}
}

func TestUpdateFade(t *testing.T) {
	m := NewManager(nil, 0.5)
	p := geom.MakePoint(0.5, 0.5)
	l := newLabel(t, m, [2]geom.Point{p, p}, anchor.Point)

	l.Update(unitTile, screen, 0.1)
	if a := l.State().Alpha; !near(a, 0.2) {
		t.Errorf("alpha after 0.1s = %v, want 0.2", a)
	}
	l.Update(unitTile, screen, 1)
	if a := l.State().Alpha; a != 1 {
		t.Errorf("alpha after fade = %v, want 1", a)
	}

	// Panning the anchor off screen hides it immediately.
	offscreen := mgl32.Translate3D(-2, 0, 0).Mul4(unitTile)
	l.Update(offscreen, screen, 0.1)
	if l.Visible() || l.State().Alpha != 0 {
		t.Errorf("visible = %v, alpha = %v; want hidden", l.Visible(), l.State().Alpha)
	}
}

func TestPushTransform(t *testing.T) {
	m := NewManager(nil, 0)
	p := geom.MakePoint(0.5, 0.5)
	l := newLabel(t, m, [2]geom.Point{p, p}, anchor.Point)

	// A new label pushes its initial, hidden placement even if nothing
	// changes it.
	var r recorder
	if !l.PushTransform(&r) || r.alpha != 0 {
		t.Fatalf("initial push: alpha = %v, calls = %v", r.alpha, r.calls)
	}
	if l.PushTransform(&r) {
		t.Fatal("pushed twice without an update")
	}
	l.Update(unitTile, screen, 0.016)
	if !l.PushTransform(&r) {
		t.Fatal("expected push after update")
	}
	if !near(r.pos.X(), 400) || !near(r.pos.Y(), 300) || r.alpha != 1 {
		t.Errorf("pushed pos = %v alpha = %v", r.pos, r.alpha)
	}

	// Nothing changed: nothing to push.
	l.Update(unitTile, screen, 0.016)
	if l.PushTransform(&r) {
		t.Error("pushed an unchanged placement")
	}
	if len(r.calls) != 2 || r.calls[1] != l.ID() {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestUnrenderableLabelsNeverPush(t *testing.T) {
	m := NewManager(nil, 0)
	alloc := &fakeAllocator{fail: map[string]bool{"broken": true}}
	p := geom.MakePoint(0.5, 0.5)
	l := m.AddTextLabel(alloc, maptile.New(0, 0, 0), [2]geom.Point{p, p}, "broken", anchor.Point)
	if l.Renderable() {
		t.Fatal("expected label to be unrenderable")
	}
	l.Update(unitTile, screen, 0.016)
	var r recorder
	if l.PushTransform(&r) {
		t.Error("unrenderable label pushed a transform")
	}
}

func TestManagerBookkeeping(t *testing.T) {
	m := NewManager(nil, 0)
	a, b := maptile.New(0, 0, 1), maptile.New(1, 0, 1)
	alloc := &fakeAllocator{}
	p := geom.MakePoint(0.5, 0.5)

	var la []*Label
	for i := 0; i < 3; i++ {
		la = append(la, m.AddTextLabel(alloc, a, [2]geom.Point{p, p}, "a", anchor.Point))
	}
	lb := []*Label{m.AddTextLabel(alloc, b, [2]geom.Point{p, p}, "b", anchor.Point)}

	if m.Len() != 4 || m.TileLen(a) != 3 || m.TileLen(b) != 1 {
		t.Fatalf("len = %d, a = %d, b = %d", m.Len(), m.TileLen(a), m.TileLen(b))
	}
	if la[0].ID() == la[1].ID() {
		t.Error("labels share a glyph set")
	}
	m.Release(la)
	if m.Len() != 1 || m.TileLen(a) != 0 || m.TileLen(b) != 1 {
		t.Fatalf("after release: len = %d, a = %d, b = %d", m.Len(), m.TileLen(a), m.TileLen(b))
	}
	m.Release(lb)
	if m.Len() != 0 {
		t.Fatalf("len = %d, want 0", m.Len())
	}
}

func TestManagerConcurrentAdds(t *testing.T) {
	m := NewManager(nil, 0)
	p := geom.MakePoint(0.5, 0.5)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(x uint32) {
			defer wg.Done()
			alloc := &fakeAllocator{}
			for i := 0; i < 50; i++ {
				m.AddTextLabel(alloc, maptile.New(x, 0, 3), [2]geom.Point{p, p}, "x", anchor.Point)
			}
		}(uint32(w))
	}
	wg.Wait()
	if m.Len() != 400 {
		t.Errorf("len = %d, want 400", m.Len())
	}
}
