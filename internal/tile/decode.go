package tile

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"

	"github.com/irfansharif/maplabels/internal/geom"
)

var tileLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TILES") == "1" {
		tileLogger = log.New(os.Stdout, "[tiles] ", log.Ltime|log.Lmsgprefix)
	}
}

// Load reads a tile from disk, choosing the decoder from the file extension.
func Load(path string, t maptile.Tile) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tile %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mvt", ".pbf":
		return DecodeMVT(data, t)
	case ".geojson", ".json":
		return DecodeGeoJSON(data, t)
	default:
		return nil, errors.Errorf("unknown tile format %q", ext)
	}
}

// DecodeMVT decodes a (possibly gzipped) Mapbox Vector Tile. Coordinates are
// scaled from the layer extent into tile-local units.
func DecodeMVT(data []byte, t maptile.Tile) ([]Feature, error) {
	var layers mvt.Layers
	var err error
	if isGzipped(data) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding vector tile %v", t)
	}

	var features []Feature
	for _, layer := range layers {
		extent := float64(layer.Extent)
		if extent == 0 {
			extent = mvt.DefaultExtent
		}
		project := func(p orb.Point) geom.Point {
			return geom.MakePoint(p[0]/extent, p[1]/extent)
		}
		features = appendFeatures(features, layer.Name, layer.Features, project)
	}
	tileLogger.Printf("decoded %d features from %d layers in tile %v", len(features), len(layers), t)
	return features, nil
}

// DecodeGeoJSON decodes a feature collection in WGS84 and projects it into
// the tile's local space using web-mercator tile fractions.
func DecodeGeoJSON(data []byte, t maptile.Tile) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding geojson")
	}

	project := func(p orb.Point) geom.Point {
		f := maptile.Fraction(p, t.Z)
		return geom.MakePoint(f[0]-float64(t.X), f[1]-float64(t.Y))
	}
	features := appendFeatures(nil, "geojson", fc.Features, project)
	tileLogger.Printf("decoded %d geojson features into tile %v", len(features), t)
	return features, nil
}

func appendFeatures(dst []Feature, layer string, src []*geojson.Feature, project Projection) []Feature {
	for _, f := range src {
		g, ok := FromOrb(f.Geometry, project)
		if !ok {
			tileLogger.Printf("layer %s: skipping unsupported geometry %T", layer, f.Geometry)
			continue
		}
		dst = append(dst, Feature{
			Layer:      layer,
			Geometry:   g,
			Properties: Properties(f.Properties),
		})
	}
	return dst
}

func isGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
