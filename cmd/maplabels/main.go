package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/app"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/label"
	"github.com/irfansharif/maplabels/internal/palette"
	"github.com/irfansharif/maplabels/internal/render"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

var (
	tilePath   = flag.String("tile", os.Getenv("MAPLABELS_TILE"), "vector tile (.mvt/.pbf) or GeoJSON file to load (default $MAPLABELS_TILE)")
	tileZ      = flag.Uint("z", 0, "tile zoom")
	tileX      = flag.Uint("x", 0, "tile column")
	tileY      = flag.Uint("y", 0, "tile row")
	colorHex   = flag.String("color", "#222222", "label fill color")
	fontPath   = flag.String("font", "", "TrueType font file (default Go Regular)")
	fontSize   = flag.Float64("size", fontctx.DefaultOptions().Size, "font size in pixels")
	minSegment = flag.Float64("min-segment", anchor.DefaultMinSegmentLength, "shortest line segment that gets a label, in tile units")
	fade       = flag.Float64("fade", label.DefaultFadeDuration, "label fade-in duration in seconds")
)

func init() {
	log.SetFlags(logFlags)

	if os.Getenv("MAPLABELS_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

func makeTitle(fps float64, avgFrameTime float64, renderStats render.Stats) string {
	return fmt.Sprintf("Map labels (%.1f FPS, %.2fms/frame, %d batches, %d labels, %d vertices, %.2fµs/draw, %.2fms/prepare)",
		fps,
		avgFrameTime,
		renderStats.Batches,
		renderStats.Labels,
		renderStats.Vertices,
		renderStats.LastDrawTimeUs,
		renderStats.LastPrepareTimeMs,
	)
}

func main() {
	flag.Parse()
	mainthread.Run(run)
}

// run owns the viewer. Everything touching GLFW or GL is marshalled onto the
// main thread; tile decoding happens here, off it.
func run() {
	cfg, err := config()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	source, err := tileSource()
	if err != nil {
		log.Fatalf("Invalid tile: %v", err)
	}

	var application *app.App
	var eventHandlers *EventHandlers
	mainthread.Call(func() {
		application = setup(cfg)
		eventHandlers = NewEventHandlers(application)
	})
	defer mainthread.Call(func() {
		application.Close()
		glfw.Terminate()
	})

	loadStart := time.Now()
	if err := application.Tiles.Load(context.Background(), []app.TileSource{source}); err != nil {
		log.Fatalf("Failed to load tile: %v", err)
	}
	mainthread.Call(application.Tiles.Compile)
	runtimeLogger.Printf("loaded %v from %s in %s (%d labels)", source.Tile, source.Path, time.Since(loadStart), application.Labels.Len())

	frameCount, frameTimeSum := 0, 0.0
	lastFPSUpdate, lastFrame := time.Now(), time.Now()

	// Main loop.
	for {
		var shouldClose bool
		frameStart := time.Now()
		dt := float32(frameStart.Sub(lastFrame).Seconds())
		lastFrame = frameStart

		mainthread.Call(func() {
			glfw.PollEvents()
			eventHandlers.tick(frameStart)
			application.Frame(dt)
			application.Window.SwapBuffers()
			shouldClose = application.Window.ShouldClose()
		})
		if shouldClose {
			return
		}

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			renderStats := application.Renderer.Stats()
			mainthread.CallNonBlock(func() {
				application.Window.SetTitle(makeTitle(fps, avgFrameTime, renderStats))
			})

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS (%.2f ms/frame)", fps, avgFrameTime)
			runtimeLogger.Printf("Labels:         %d registered, %d in drawn batches (%d batches)", application.Labels.Len(), renderStats.Labels, renderStats.Batches)
			runtimeLogger.Printf("Vertices:       %d", renderStats.Vertices)
			runtimeLogger.Printf("Render time:    %.2f µs (last draw), %.2f ms (last prepare)", renderStats.LastDrawTimeUs, renderStats.LastPrepareTimeMs)
			runtimeLogger.Println("==============================")
		}
	}
}

// setup creates the window and the application. It runs on the main thread.
func setup(cfg app.Config) *app.App {
	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(
		1280, // width
		960,  // height
		"Map labels",
		nil, nil,
	)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}

	cw, ch := window.GetFramebufferSize()
	application, err := app.NewApp(window, app.NewView(cw, ch), cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	return application
}

func config() (app.Config, error) {
	color, err := parseColor(*colorHex)
	if err != nil {
		return app.Config{}, err
	}

	font := fontctx.DefaultOptions()
	font.Size = *fontSize
	if *fontPath != "" {
		if font.Font, err = os.ReadFile(*fontPath); err != nil {
			return app.Config{}, errors.Wrap(err, "reading font")
		}
	}

	placement := anchor.DefaultOptions()
	placement.MinSegmentLength = *minSegment

	return app.Config{
		Font:      font,
		Color:     color,
		Fade:      float32(*fade),
		Placement: placement,
		Seed:      seed(),
	}, nil
}

func tileSource() (app.TileSource, error) {
	if *tilePath == "" {
		return app.TileSource{}, errors.New("no tile given; pass -tile or set MAPLABELS_TILE")
	}
	z := maptile.Zoom(*tileZ)
	if *tileX >= 1<<z || *tileY >= 1<<z {
		return app.TileSource{}, errors.Errorf("tile %d/%d/%d out of range", *tileZ, *tileX, *tileY)
	}
	return app.TileSource{
		Path: *tilePath,
		Tile: maptile.New(uint32(*tileX), uint32(*tileY), z),
	}, nil
}

// parseColor parses "RRGGBB" or "RGB" hex, with an optional leading '#',
// into a packed 0xRRGGBB color.
func parseColor(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return 0, errors.Errorf("invalid color %q: want RRGGBB or RGB", s)
	}
	c, err := colorful.Hex("#" + s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid color %q", s)
	}
	return palette.Pack(c), nil
}

func seed() int64 {
	seedStr := os.Getenv("MAPLABELS_SEED")
	now := time.Now().Unix()
	if seedStr == "" {
		return now
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		log.Fatalf("Invalid MAPLABELS_SEED value '%s': %v", seedStr, err)
	}
	return seed
}
