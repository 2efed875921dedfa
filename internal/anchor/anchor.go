// Package anchor derives label anchor segments from tile geometry.
//
// Each geometry kind has its own sampling policy:
//   - Points anchor one label at every point.
//   - Lines are sampled at a stride of half their vertex count, and every
//     sampled segment long enough to carry text anchors a label oriented along
//     it.
//   - Polygons anchor one label at the vertex average of all their rings.
//
// Anchors only describe geometry; registering labels and rasterizing their
// text is the caller's business.
package anchor

import (
	"github.com/irfansharif/maplabels/internal/geom"
	"github.com/irfansharif/maplabels/internal/tile"
)

// NameKey is the attribute holding a feature's display text.
const NameKey = "name"

// DefaultMinSegmentLength is the shortest line segment, in tile-local units,
// that can carry a label.
const DefaultMinSegmentLength = 0.15

// Kind is the placement kind of a label.
type Kind int

const (
	Point Kind = iota // upright text centred on the anchor
	Line              // text oriented along the anchor segment
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Line:
		return "line"
	default:
		return "unknown"
	}
}

// Anchor is a label anchor: a segment (both endpoints equal for point
// placements) and the kind of label placed on it.
type Anchor struct {
	Segment [2]geom.Point
	Kind    Kind
}

// Options holds the sampling parameters for line features.
type Options struct {
	// MinSegmentLength drops sampled segments shorter than this.
	MinSegmentLength float64
	// Stride returns the sampling stride for a line of n vertices. Values
	// below 1 are treated as 1.
	Stride func(n int) int
}

// DefaultOptions returns the default sampling parameters: half the vertex
// count as stride and DefaultMinSegmentLength.
func DefaultOptions() Options {
	return Options{
		MinSegmentLength: DefaultMinSegmentLength,
		Stride:           HalfStride,
	}
}

// HalfStride is floor(n/2).
func HalfStride(n int) int { return n / 2 }

// Name returns the feature's display text. Features without a non-empty name
// are not labelled.
func Name(props tile.Properties) (string, bool) {
	name, ok := props.String(NameKey)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Build returns the anchors for a feature's geometry, or nil if the feature
// has no name.
func Build(g tile.Geometry, props tile.Properties, opts Options) []Anchor {
	if _, ok := Name(props); !ok || g == nil {
		return nil
	}
	b := builder{opts: opts}
	g.Visit(&b)
	return b.anchors
}

type builder struct {
	opts    Options
	anchors []Anchor
}

var _ tile.GeometryVisitor = (*builder)(nil)

func (b *builder) VisitPoints(points tile.Points) {
	for _, p := range points {
		b.anchors = append(b.anchors, Anchor{Segment: [2]geom.Point{p, p}, Kind: Point})
	}
}

func (b *builder) VisitLines(lines tile.Lines) {
	for _, line := range lines {
		for _, seg := range SampleLine(line, b.stride(len(line))) {
			if geom.Dist(seg[0], seg[1]) < b.opts.MinSegmentLength {
				continue // too short to fit text
			}
			b.anchors = append(b.anchors, Anchor{Segment: seg, Kind: Line})
		}
	}
}

func (b *builder) VisitPolygons(polygons tile.Polygons) {
	for _, rings := range polygons {
		c, ok := Centroid(rings)
		if !ok {
			continue
		}
		b.anchors = append(b.anchors, Anchor{Segment: [2]geom.Point{c, c}, Kind: Point})
	}
}

func (b *builder) stride(n int) int {
	stride := HalfStride
	if b.opts.Stride != nil {
		stride = b.opts.Stride
	}
	return max(1, stride(n))
}

// SampleLine returns the candidate segments (line[i], line[i+stride]) for
// i = 0, stride, 2*stride, ... up to the last vertex. Lines with fewer than
// two vertices yield nothing.
//
// A candidate is the chord spanning a whole stride, not the single edge
// (line[i], line[i+1]) at the sample point, and no chord runs past the last
// vertex: a 10-vertex line yields one candidate, not two. The length filter
// therefore measures the stretch a label stands for.
func SampleLine(line []geom.Point, stride int) [][2]geom.Point {
	if len(line) < 2 {
		return nil
	}
	stride = max(1, stride)
	var segs [][2]geom.Point
	for i := 0; i+stride < len(line); i += stride {
		segs = append(segs, [2]geom.Point{line[i], line[i+stride]})
	}
	return segs
}

// Centroid returns the unweighted average of every vertex across all rings.
// Rings with more vertices pull the result towards them; this is not an area
// centroid.
func Centroid(rings [][]geom.Point) (geom.Point, bool) {
	var sum geom.Point
	n := 0
	for _, ring := range rings {
		for _, p := range ring {
			sum = sum.Add(p)
			n++
		}
	}
	if n == 0 {
		return geom.Point{}, false
	}
	return sum.Scale(1 / float64(n)), true
}
