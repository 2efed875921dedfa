package render

import (
	"fmt"

	"github.com/rclancey/earcut"

	"github.com/irfansharif/maplabels/internal/geom"
)

// earClip triangulates a polygon using the earcut algorithm. The first ring is
// the outer boundary, the rest are holes; winding order does not matter. It
// returns a slice of triangles, each represented as a [3]geom.Point.
func earClip(rings [][]geom.Point) ([][3]geom.Point, error) {
	if len(rings) == 0 || len(rings[0]) < 3 {
		return nil, fmt.Errorf("degenerate polygon")
	}

	// Flatten rings into the coordinate array earcut expects, recording where
	// each hole starts. Format: [x0, y0, x1, y1, ..., xn, yn]
	var vertexCoords []float64
	var holeIndices []int
	for i, ring := range rings {
		if i > 0 {
			if len(ring) < 3 {
				continue
			}
			holeIndices = append(holeIndices, len(vertexCoords)/2)
		}
		for _, point := range ring {
			vertexCoords = append(vertexCoords, point.X, point.Y)
		}
	}

	triangleIndices, err := earcut.Earcut(vertexCoords, holeIndices, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulating %d-ring polygon: %v", len(rings), err)
	}
	if len(triangleIndices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d, not divisible by 3)", len(triangleIndices))
	}

	// Each vertex index maps to an (x, y) pair in vertexCoords.
	at := func(i int) geom.Point {
		return geom.MakePoint(vertexCoords[i*2], vertexCoords[i*2+1])
	}
	triangles := make([][3]geom.Point, len(triangleIndices)/3)
	for t := range triangles {
		base := t * 3
		triangles[t] = [3]geom.Point{
			at(triangleIndices[base]),
			at(triangleIndices[base+1]),
			at(triangleIndices[base+2]),
		}
	}
	return triangles, nil
}
