// Package app ties the viewer together: window, view state, tile loading and
// the renderer.
package app

import (
	"context"
	"math/rand"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/label"
	"github.com/irfansharif/maplabels/internal/palette"
	"github.com/irfansharif/maplabels/internal/render"
	"github.com/irfansharif/maplabels/internal/style"
	"github.com/irfansharif/maplabels/internal/textbatch"
)

// fillShimmer is the per-tile brightness jitter of polygon fills.
const fillShimmer = 0.15

// Config is what the viewer needs to build an App.
type Config struct {
	Font      fontctx.Options
	Color     uint32  // label fill color, 0xRRGGBB
	Fade      float32 // label fade-in duration in seconds
	Placement anchor.Options
	Seed      int64 // seeds the fill palette and its per-tile shimmer
}

// App encapsulates the main application state and logic.
type App struct {
	Window   *glfw.Window
	Renderer *render.Renderer
	View     *View
	Labels   *label.Manager
	Tiles    *TileManager
	Style    *style.Style
}

// NewApp creates the font context, renderer and tile manager. It must run on
// the thread owning the window's GL context.
func NewApp(window *glfw.Window, view *View, cfg Config) (*App, error) {
	engine, err := fontctx.NewEngine(cfg.Font)
	if err != nil {
		return nil, err
	}
	font := fontctx.NewShared(engine)
	labels := label.NewManager(font, cfg.Fade)
	renderer := render.NewRenderer(font)

	st := style.New("labels", cfg.Color, renderer.TextProgram(), labels)
	st.Placement = cfg.Placement

	pal := palette.RandomPalette(rand.New(rand.NewSource(cfg.Seed)))
	tiles := NewTileManager(TileManagerConfig{
		Style:   st,
		NewMesh: func() textbatch.Mesh { return renderer.NewTextMesh() },
		Palette: &pal,
		Shimmer: fillShimmer,
		Seed:    cfg.Seed,
	})
	return &App{
		Window:   window,
		Renderer: renderer,
		View:     view,
		Labels:   labels,
		Tiles:    tiles,
		Style:    st,
	}, nil
}

// LoadTiles loads sources and uploads whatever loaded. Decoding runs on
// worker goroutines; uploads happen on the calling thread, which must own
// the GL context.
func (app *App) LoadTiles(ctx context.Context, sources []TileSource) error {
	err := app.Tiles.Load(ctx, sources)
	app.Tiles.Compile()
	return err
}

// Frame draws one frame of every loaded tile.
func (app *App) Frame(dt float32) {
	app.Renderer.Frame(app.View, app.Tiles.Layers(), dt)
}

// Close releases tiles and GL resources.
func (app *App) Close() {
	app.Tiles.Close()
	app.Renderer.Delete()
}
