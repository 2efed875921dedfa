package fontctx

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultOptions())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func extract(t *testing.T, e *Engine, buf BufferID) []Vertex {
	t.Helper()
	n, err := e.VerticesSize(buf)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]Vertex, n)
	if err := e.Vertices(buf, out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestNewEngineValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Options)
	}{
		{"size", func(o *Options) { o.Size = 0 }},
		{"radius", func(o *Options) { o.SDFRadius = 0 }},
		{"atlas", func(o *Options) { o.AtlasSize = 16 }},
		{"font", func(o *Options) { o.Font = []byte("not a font") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.edit(&opts)
			if _, err := NewEngine(opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBufferHandles(t *testing.T) {
	e := newTestEngine(t)

	var zero BufferID
	if zero.Valid() {
		t.Fatal("zero handle must be invalid")
	}
	if _, err := e.GenText(zero); errors.Cause(err) != ErrInvalidBuffer {
		t.Errorf("GenText(zero): got %v, want ErrInvalidBuffer", err)
	}

	a := e.CreateBuffer()
	b := e.CreateBuffer()
	if !a.Valid() || !b.Valid() || a == b {
		t.Fatalf("unexpected handles %v, %v", a, b)
	}
	if err := e.DeleteBuffer(a); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteBuffer(a); errors.Cause(err) != ErrInvalidBuffer {
		t.Errorf("double delete: got %v, want ErrInvalidBuffer", err)
	}

	// The freed slot is reused under a new generation; the old handle stays
	// dead.
	c := e.CreateBuffer()
	if c.index != a.index || c == a {
		t.Errorf("expected slot reuse with a new generation, got %v after %v", c, a)
	}
	if _, err := e.GenText(a); errors.Cause(err) != ErrInvalidBuffer {
		t.Errorf("stale handle: got %v, want ErrInvalidBuffer", err)
	}
	if _, err := e.GenText(c); err != nil {
		t.Errorf("GenText(c): %v", err)
	}
}

func TestRasterize(t *testing.T) {
	e := newTestEngine(t)
	buf := e.CreateBuffer()

	tests := []struct {
		text string
		want int // vertices
	}{
		{"Hello", 5 * 6},
		{"A B", 2 * 6},
		{"", 0},
		{"   ", 0},
	}
	for _, tt := range tests {
		id, err := e.GenText(buf)
		if err != nil {
			t.Fatal(err)
		}
		before := len(extract(t, e, buf))
		if err := e.Rasterize(buf, id, tt.text); err != nil {
			t.Fatalf("Rasterize(%q): %v", tt.text, err)
		}
		if got := len(extract(t, e, buf)) - before; got != tt.want {
			t.Errorf("Rasterize(%q): got %d vertices, want %d", tt.text, got, tt.want)
		}
	}
}

func TestRasterizeFailures(t *testing.T) {
	e := newTestEngine(t)
	buf := e.CreateBuffer()
	id, err := e.GenText(buf)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Rasterize(buf, id+1, "nope"); errors.Cause(err) != ErrInvalidText {
		t.Errorf("unknown id: got %v, want ErrInvalidText", err)
	}
	if err := e.Rasterize(buf, id, "smile \U0001F600"); errors.Cause(err) != ErrMissingGlyph {
		t.Errorf("emoji: got %v, want ErrMissingGlyph", err)
	}
	// A failed glyph set contributes nothing.
	if n, _ := e.VerticesSize(buf); n != 0 {
		t.Errorf("got %d vertices after failed rasterization, want 0", n)
	}
	if _, err := e.BBox(buf, id); errors.Cause(err) != ErrInvalidText {
		t.Errorf("BBox of failed set: got %v, want ErrInvalidText", err)
	}
}

func TestTransformAndUpdate(t *testing.T) {
	e := newTestEngine(t)
	buf := e.CreateBuffer()
	id, _ := e.GenText(buf)
	if err := e.Rasterize(buf, id, "Label"); err != nil {
		t.Fatal(err)
	}
	origin := extract(t, e, buf)
	for i, v := range origin {
		if v.Alpha != 0 {
			t.Fatalf("vertex %d: alpha = %v before any transform, want 0", i, v.Alpha)
		}
	}

	// Transform alone does not move anything until the buffer is updated.
	if err := e.Transform(buf, id, 100, 50, 0, 0.5); err != nil {
		t.Fatal(err)
	}
	if got := extract(t, e, buf); !reflect.DeepEqual(got, origin) {
		t.Error("vertices changed before UpdateBuffer")
	}

	if err := e.UpdateBuffer(buf); err != nil {
		t.Fatal(err)
	}
	moved := extract(t, e, buf)
	for i := range moved {
		if dx := moved[i].X - origin[i].X; math.Abs(float64(dx-100)) > 1e-3 {
			t.Fatalf("vertex %d: dx = %v, want 100", i, dx)
		}
		if dy := moved[i].Y - origin[i].Y; math.Abs(float64(dy-50)) > 1e-3 {
			t.Fatalf("vertex %d: dy = %v, want 50", i, dy)
		}
		if moved[i].Alpha != 0.5 {
			t.Fatalf("vertex %d: alpha = %v, want 0.5", i, moved[i].Alpha)
		}
		if moved[i].U != origin[i].U || moved[i].V != origin[i].V {
			t.Fatalf("vertex %d: texture coordinates changed", i)
		}
	}

	box, err := e.BBox(buf, id)
	if err != nil {
		t.Fatal(err)
	}
	if box.W <= 0 || box.H <= 0 {
		t.Fatalf("degenerate bounding box %v", box)
	}
	if box.X > 100 || box.X+box.W < 100 || box.Y > 50 || box.Y+box.H < 50 {
		t.Errorf("bounding box %v does not contain the label origin", box)
	}

	// A half turn keeps the box centred on the same origin.
	if err := e.Transform(buf, id, 100, 50, math.Pi, 1); err != nil {
		t.Fatal(err)
	}
	turned, err := e.BBox(buf, id)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(turned.W-box.W) > 1e-3 || math.Abs(turned.H-box.H) > 1e-3 {
		t.Errorf("half turn changed box size: %v vs %v", turned, box)
	}
}

func TestRepeatedUpdatesDoNotDrift(t *testing.T) {
	e := newTestEngine(t)
	buf := e.CreateBuffer()
	id, _ := e.GenText(buf)
	if err := e.Rasterize(buf, id, "Stable"); err != nil {
		t.Fatal(err)
	}
	if err := e.Transform(buf, id, 12.5, 40.25, 0.3, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.UpdateBuffer(buf); err != nil {
		t.Fatal(err)
	}
	first := extract(t, e, buf)
	for i := 0; i < 10; i++ {
		if err := e.Transform(buf, id, 12.5, 40.25, 0.3, 1); err != nil {
			t.Fatal(err)
		}
		if err := e.UpdateBuffer(buf); err != nil {
			t.Fatal(err)
		}
	}
	if again := extract(t, e, buf); !reflect.DeepEqual(first, again) {
		t.Error("vertex stream drifted across identical updates")
	}
}

func TestVerticesSizeMismatch(t *testing.T) {
	e := newTestEngine(t)
	buf := e.CreateBuffer()
	id, _ := e.GenText(buf)
	if err := e.Rasterize(buf, id, "x"); err != nil {
		t.Fatal(err)
	}
	if err := e.Vertices(buf, make([]Vertex, 1)); errors.Cause(err) != ErrSizeMismatch {
		t.Errorf("got %v, want ErrSizeMismatch", err)
	}
}

func TestAtlas(t *testing.T) {
	e := newTestEngine(t)
	_, v0 := e.Atlas()
	buf := e.CreateBuffer()
	id, _ := e.GenText(buf)
	if err := e.Rasterize(buf, id, "ab"); err != nil {
		t.Fatal(err)
	}
	_, v1 := e.Atlas()
	if v1 != v0+2 {
		t.Errorf("version = %d, want %d", v1, v0+2)
	}
	// Cached glyphs do not touch the atlas.
	if err := e.Rasterize(buf, id, "ba"); err != nil {
		t.Fatal(err)
	}
	if _, v2 := e.Atlas(); v2 != v1 {
		t.Errorf("version = %d, want %d", v2, v1)
	}
}

func TestAtlasFull(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 48
	opts.AtlasSize = 64
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatal(err)
	}
	buf := e.CreateBuffer()
	id, _ := e.GenText(buf)
	if err := e.Rasterize(buf, id, "ABCDEFGHIJKLMNOP"); errors.Cause(err) != ErrAtlasFull {
		t.Errorf("got %v, want ErrAtlasFull", err)
	}
}

func TestDistanceField(t *testing.T) {
	mask := image.NewAlpha(image.Rect(0, 0, 6, 6))
	for y := 1; y < 5; y++ {
		for x := 1; x < 5; x++ {
			mask.SetAlpha(x, y, color.Alpha{A: 0xff})
		}
	}
	const radius = 3
	field := distanceField(mask, mask.Rect, radius)
	if got, want := field.Rect.Size(), image.Pt(6+2*radius, 6+2*radius); got != want {
		t.Fatalf("size = %v, want %v", got, want)
	}
	at := func(x, y int) uint8 { return field.AlphaAt(x+radius, y+radius).A }

	if c := at(2, 2); c <= 128 {
		t.Errorf("inside value %d should be above the edge", c)
	}
	if c := at(0, 0); c >= 128 {
		t.Errorf("outside value %d should be below the edge", c)
	}
	if c := at(-radius, -radius); c != 0 {
		t.Errorf("far outside value %d should saturate to 0", c)
	}
	if at(2, 2) <= at(1, 1) {
		t.Error("values should grow towards the interior")
	}
}

func TestShelfAllocation(t *testing.T) {
	a := newAtlas(64, 2)
	p, ok := a.allocate(20, 20)
	if !ok || p != image.Pt(0, 0) {
		t.Fatalf("first: got %v, %v", p, ok)
	}
	p, ok = a.allocate(20, 10)
	if !ok || p != image.Pt(22, 0) {
		t.Fatalf("second: got %v, %v", p, ok)
	}
	// Third does not fit horizontally (44 + 22 > 64) and opens a new shelf.
	p, ok = a.allocate(20, 20)
	if !ok || p != image.Pt(0, 22) {
		t.Fatalf("third: got %v, %v", p, ok)
	}
	if _, ok := a.allocate(65, 1); ok {
		t.Error("expected oversized allocation to fail")
	}
}
