package app

import (
	"context"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/irfansharif/maplabels/internal/palette"
	"github.com/irfansharif/maplabels/internal/render"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/textbatch"
	"github.com/irfansharif/maplabels/internal/tile"
)

var tilesLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("MAPLABELS_DEBUG_TILES") == "1" {
		tilesLogger = log.New(os.Stdout, "[tiles] ", log.Ltime|log.Lmsgprefix)
	}
}

// TileSource names a tile file and the tile it holds.
type TileSource struct {
	Path string
	Tile maptile.Tile
}

// TileLayer is everything built for one loaded tile.
type TileLayer struct {
	Tile     maptile.Tile
	Features []tile.Feature
	Batch    *textbatch.Batch
	Fills    *render.FillMesh // nil when fills are disabled
	Palette  palette.Palette  // fill colors, shimmered for this tile

	compiled bool
	drawable bool // the batch compiled to a non-empty mesh
}

// TileManagerConfig configures a TileManager.
type TileManagerConfig struct {
	Style *style.Style
	// NewMesh returns an empty mesh for a new batch. It is called on worker
	// goroutines and must not touch GL.
	NewMesh func() textbatch.Mesh
	// Palette colors polygon fills. Nil disables fills.
	Palette *palette.Palette
	// Shimmer is the brightness jitter applied to Palette per tile, seeded
	// from Seed and the tile coordinates.
	Shimmer float64
	Seed    int64
	// Workers bounds concurrent tile loads. Zero means GOMAXPROCS.
	Workers int
}

// TileManager loads tiles on worker goroutines and hands their batches to the
// render thread.
type TileManager struct {
	cfg TileManagerConfig

	mu     sync.Mutex
	layers map[maptile.Tile]*TileLayer
}

// NewTileManager creates an empty tile manager.
func NewTileManager(cfg TileManagerConfig) *TileManager {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &TileManager{
		cfg:    cfg,
		layers: make(map[maptile.Tile]*TileLayer),
	}
}

// Load decodes sources concurrently and builds one populated text batch per
// tile. Already loaded tiles are skipped. The first decoding error is
// returned; tiles that loaded before it are kept.
func (tm *TileManager) Load(ctx context.Context, sources []TileSource) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(tm.cfg.Workers)
	for _, src := range sources {
		src := src
		if tm.has(src.Tile) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layer, err := tm.build(src)
			if err != nil {
				return err
			}
			tm.mu.Lock()
			defer tm.mu.Unlock()
			if _, ok := tm.layers[src.Tile]; ok {
				layer.Batch.Destroy()
				return nil
			}
			tm.layers[src.Tile] = layer
			return nil
		})
	}
	return g.Wait()
}

func (tm *TileManager) build(src TileSource) (*TileLayer, error) {
	features, err := tile.Load(src.Path, src.Tile)
	if err != nil {
		return nil, errors.Wrapf(err, "loading tile %v", src.Tile)
	}

	b := textbatch.New(tm.cfg.Style, tm.cfg.NewMesh())
	b.Init()
	for _, f := range features {
		b.Add(f, src.Tile)
	}
	layer := &TileLayer{Tile: src.Tile, Features: features, Batch: b}
	if tm.cfg.Palette != nil {
		r := rand.New(rand.NewSource(tileSeed(tm.cfg.Seed, src.Tile)))
		layer.Palette = palette.Shimmered(*tm.cfg.Palette, tm.cfg.Shimmer, r)
		layer.Fills = render.NewFillMesh(features, layer.Palette)
	}
	tilesLogger.Printf("built tile %v: %d features, %d labels", src.Tile, len(features), len(b.Labels()))
	return layer, nil
}

// tileSeed derives a per-tile random seed. Zoom levels up to 31 and
// coordinates below 2^29 map to distinct values.
func tileSeed(seed int64, t maptile.Tile) int64 {
	return seed ^ (int64(t.Z)<<58 | int64(t.X)<<29 | int64(t.Y))
}

func (tm *TileManager) has(t maptile.Tile) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.layers[t]
	return ok
}

// Compile uploads every newly loaded tile. It must run on the render thread.
func (tm *TileManager) Compile() {
	for _, l := range tm.sorted() {
		if l.compiled {
			continue
		}
		l.drawable = l.Batch.Compile()
		if l.Fills != nil {
			l.Fills.Compile()
		}
		l.compiled = true
		tilesLogger.Printf("compiled tile %v: %+v", l.Tile, l.Batch.Stats())
	}
}

// Layers returns the compiled tiles, ordered by zoom, x and y.
func (tm *TileManager) Layers() []render.Layer {
	var out []render.Layer
	for _, l := range tm.sorted() {
		if !l.compiled {
			continue
		}
		rl := render.Layer{Fills: l.Fills}
		if l.drawable {
			rl.Batches = []*textbatch.Batch{l.Batch}
		}
		out = append(out, rl)
	}
	return out
}

// Tiles returns every loaded tile, compiled or not, in Layers order.
func (tm *TileManager) Tiles() []*TileLayer {
	return tm.sorted()
}

// Remove destroys a tile's batch and fills. It must run on the render thread.
func (tm *TileManager) Remove(t maptile.Tile) bool {
	tm.mu.Lock()
	l, ok := tm.layers[t]
	delete(tm.layers, t)
	tm.mu.Unlock()
	if !ok {
		return false
	}
	l.Batch.Destroy()
	if l.Fills != nil {
		l.Fills.Release()
	}
	return true
}

// Close removes every tile.
func (tm *TileManager) Close() {
	for _, l := range tm.sorted() {
		tm.Remove(l.Tile)
	}
}

func (tm *TileManager) sorted() []*TileLayer {
	tm.mu.Lock()
	layers := make([]*TileLayer, 0, len(tm.layers))
	for _, l := range tm.layers {
		layers = append(layers, l)
	}
	tm.mu.Unlock()

	sort.Slice(layers, func(i, j int) bool {
		a, b := layers[i].Tile, layers[j].Tile
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return layers
}
