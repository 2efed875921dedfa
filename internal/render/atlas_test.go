package render

import (
	"testing"

	"github.com/irfansharif/maplabels/internal/fontctx"
)

func TestSnapshot(t *testing.T) {
	e, err := fontctx.NewEngine(fontctx.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	font := fontctx.NewShared(e)

	img, v0, ok := snapshot(font, ^uint64(0))
	if !ok || img == nil {
		t.Fatal("expected an initial snapshot")
	}
	if _, _, ok := snapshot(font, v0); ok {
		t.Error("unchanged atlas produced a snapshot")
	}

	font.Do(func(r fontctx.Rasterizer) {
		buf := r.CreateBuffer()
		id, _ := r.GenText(buf)
		if err := r.Rasterize(buf, id, "A"); err != nil {
			t.Error(err)
		}
	})
	img2, v1, ok := snapshot(font, v0)
	if !ok || v1 == v0 {
		t.Fatalf("expected a new snapshot, got version %d (was %d)", v1, v0)
	}
	// The snapshot is a copy: it must not alias the live atlas.
	if &img2.Pix[0] == &img.Pix[0] {
		t.Error("snapshots share pixel storage")
	}
	nonzero := 0
	for _, p := range img2.Pix {
		if p != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("glyph pixels missing from the snapshot")
	}
}

func TestFlatten(t *testing.T) {
	v := []fontctx.Vertex{{X: 1, Y: 2, U: 0.25, V: 0.5, Alpha: 1}, {X: 3, Y: 4, Alpha: 0.5}}
	got := flatten(nil, v)
	want := []float32{1, 2, 0.25, 0.5, 1, 3, 4, 0, 0, 0.5}
	if len(got) != len(want) {
		t.Fatalf("got %d floats, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("float %d = %v, want %v", i, got[i], want[i])
		}
	}
}
