// Package tile holds the read-only feature model consumed by label placement.
//
// Features are decoded from vector tiles (or GeoJSON) and projected into
// tile-local unit coordinates: the tile covers [0,1]x[0,1], with x growing east
// and y growing south.
package tile

import (
	"github.com/paulmach/orb"

	"github.com/irfansharif/maplabels/internal/geom"
)

// Geometry is a closed variant over the supported geometry kinds: Points,
// Lines and Polygons. Consumers dispatch through Visit so that adding a kind
// breaks every GeometryVisitor at compile time instead of falling through a
// default case.
type Geometry interface {
	Visit(v GeometryVisitor)
	sealed()
}

// GeometryVisitor has one method per geometry kind.
type GeometryVisitor interface {
	VisitPoints(Points)
	VisitLines(Lines)
	VisitPolygons(Polygons)
}

// Points is one or more standalone points.
type Points []geom.Point

// Lines is one or more line strings.
type Lines [][]geom.Point

// Polygons is one or more polygons, each a list of rings (outer ring first).
type Polygons [][][]geom.Point

func (g Points) Visit(v GeometryVisitor)   { v.VisitPoints(g) }
func (g Lines) Visit(v GeometryVisitor)    { v.VisitLines(g) }
func (g Polygons) Visit(v GeometryVisitor) { v.VisitPolygons(g) }

func (Points) sealed()   {}
func (Lines) sealed()    {}
func (Polygons) sealed() {}

// Properties is a feature's attribute set.
type Properties map[string]interface{}

// String returns the string attribute stored under key.
func (p Properties) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Feature is a single tile feature.
type Feature struct {
	Layer      string
	Geometry   Geometry
	Properties Properties
}

// Projection maps a source coordinate into tile-local space.
type Projection func(orb.Point) geom.Point

// FromOrb converts an orb geometry into the tile geometry variant. Collections
// and bounds have no label semantics and are reported as unsupported.
func FromOrb(g orb.Geometry, project Projection) (Geometry, bool) {
	line := func(ls []orb.Point) []geom.Point {
		out := make([]geom.Point, len(ls))
		for i, p := range ls {
			out[i] = project(p)
		}
		return out
	}
	polygon := func(poly orb.Polygon) [][]geom.Point {
		out := make([][]geom.Point, len(poly))
		for i, r := range poly {
			out[i] = line(r)
		}
		return out
	}

	switch g := g.(type) {
	case orb.Point:
		return Points{project(g)}, true
	case orb.MultiPoint:
		return Points(line(g)), true
	case orb.LineString:
		return Lines{line(g)}, true
	case orb.MultiLineString:
		out := make(Lines, len(g))
		for i, ls := range g {
			out[i] = line(ls)
		}
		return out, true
	case orb.Ring:
		return Polygons{{line(g)}}, true
	case orb.Polygon:
		return Polygons{polygon(g)}, true
	case orb.MultiPolygon:
		out := make(Polygons, len(g))
		for i, poly := range g {
			out[i] = polygon(poly)
		}
		return out, true
	default:
		return nil, false
	}
}
