package render

import (
	"math"
	"testing"

	"github.com/irfansharif/maplabels/internal/geom"
)

func area(tris [][3]geom.Point) float64 {
	total := 0.0
	for _, t := range tris {
		ab, ac := t[1].Sub(t[0]), t[2].Sub(t[0])
		total += math.Abs(ab.X*ac.Y-ab.Y*ac.X) / 2
	}
	return total
}

func square(x, y, side float64) []geom.Point {
	return []geom.Point{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

func TestEarClip(t *testing.T) {
	tests := []struct {
		name  string
		rings [][]geom.Point
		tris  int
		area  float64
	}{
		{"triangle", [][]geom.Point{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}}, 1, 0.5},
		{"square", [][]geom.Point{square(0, 0, 1)}, 2, 1},
		{"square with hole", [][]geom.Point{square(0, 0, 4), square(1, 1, 2)}, 8, 12},
		{"degenerate hole is ignored", [][]geom.Point{square(0, 0, 1), {{X: 0.5, Y: 0.5}}}, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris, err := earClip(tt.rings)
			if err != nil {
				t.Fatal(err)
			}
			if len(tris) != tt.tris {
				t.Errorf("got %d triangles, want %d", len(tris), tt.tris)
			}
			if a := area(tris); math.Abs(a-tt.area) > 1e-9 {
				t.Errorf("area = %v, want %v", a, tt.area)
			}
		})
	}
}

func TestEarClipDegenerate(t *testing.T) {
	for _, rings := range [][][]geom.Point{
		nil,
		{{{X: 0, Y: 0}, {X: 1, Y: 1}}},
	} {
		if _, err := earClip(rings); err == nil {
			t.Errorf("earClip(%v): expected error", rings)
		}
	}
}
