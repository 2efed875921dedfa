package style

import (
	"testing"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
)

func TestTextLayout(t *testing.T) {
	l := TextLayout()
	if got := l.Stride(); got != fontctx.VertexFloats {
		t.Fatalf("stride = %d, want %d", got, fontctx.VertexFloats)
	}
	tests := []struct {
		name string
		want int
	}{
		{"a_position", 0},
		{"a_uv", 2},
		{"a_alpha", 4},
		{"a_missing", -1},
	}
	for _, tt := range tests {
		if got := l.Offset(tt.name); got != tt.want {
			t.Errorf("Offset(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	s := New("roads", 0x336699, nil, nil)
	if s.Placement.MinSegmentLength != anchor.DefaultMinSegmentLength {
		t.Errorf("min segment = %v", s.Placement.MinSegmentLength)
	}
	c := s.FillColor()
	if c.R != 0x33/255.0 || c.G != 0x66/255.0 || c.B != 0x99/255.0 {
		t.Errorf("fill color = %v", c)
	}
}
