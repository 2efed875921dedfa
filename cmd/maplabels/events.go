package main

import (
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/maplabels/internal/app"
	"github.com/irfansharif/maplabels/internal/geom"
	"github.com/irfansharif/maplabels/internal/label"
)

const (
	keyPanInterval = 125 * time.Millisecond // between steps while a pan key is held
	keyPanStep     = 100.0                  // framebuffer pixels per step
	zoomStep       = 0.15                   // zoom factor change per scroll tick
)

// keyPan directions, in framebuffer pixels per step.
var keyPan = map[glfw.Key][2]float64{
	glfw.KeyH: {keyPanStep, 0},
	glfw.KeyL: {-keyPanStep, 0},
	glfw.KeyK: {0, keyPanStep},
	glfw.KeyJ: {0, -keyPanStep},
}

// drag is an in-progress mouse drag: where the cursor and the pan were when
// the button went down.
type drag struct {
	cursor geom.Point
	pan    geom.Point
}

// EventHandlers translates GLFW input into view changes. Its callbacks run
// from glfw.PollEvents on the main thread.
type EventHandlers struct {
	application *app.App

	held     glfw.Key // pan key being held, or glfw.KeyUnknown
	lastStep time.Time

	drag *drag

	cursor  geom.Point // tile-local
	focused int        // label last centered with Tab/R, or -1
}

// NewEventHandlers installs input callbacks on the application's window.
func NewEventHandlers(application *app.App) *EventHandlers {
	eh := &EventHandlers{
		application: application,
		held:        glfw.KeyUnknown,
		focused:     -1,
	}
	w := application.Window
	w.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.onKey(key, action, mods)
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		eh.onMouseButton(button, action)
	})
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		eh.onCursor(x, y)
	})
	w.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		eh.zoom(dy)
	})
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		application.View.SetViewport(width, height)
	})
	return eh
}

func (eh *EventHandlers) onKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if step, ok := keyPan[key]; ok {
		switch action {
		case glfw.Press:
			eh.held = key
			eh.pan(step)
		case glfw.Release:
			if eh.held == key {
				eh.held = glfw.KeyUnknown
			}
		}
		// Repeats are ignored; tick paces held keys itself.
		return
	}
	if action != glfw.Press {
		return
	}

	zoomMods := glfw.ModSuper | glfw.ModControl
	switch {
	case key == glfw.KeyEscape || key == glfw.KeyQ:
		eh.application.Window.SetShouldClose(true)
	case key == glfw.KeyR:
		eh.focusNearest()
	case key == glfw.KeyTab:
		eh.cycle(mods&glfw.ModShift == 0)
	case key == glfw.KeyEqual && mods&zoomMods != 0:
		eh.zoom(1)
	case key == glfw.KeyMinus && mods&zoomMods != 0:
		eh.zoom(-1)
	}
}

// tick repeats the held pan key. It is called once per frame.
func (eh *EventHandlers) tick(now time.Time) {
	if eh.held == glfw.KeyUnknown || now.Sub(eh.lastStep) < keyPanInterval {
		return
	}
	eh.pan(keyPan[eh.held])
}

func (eh *EventHandlers) pan(step [2]float64) {
	v := eh.application.View
	v.SetPan(v.PanX+step[0], v.PanY+step[1])
	eh.lastStep = time.Now()
	eh.refreshCursor()
}

func (eh *EventHandlers) onMouseButton(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		v := eh.application.View
		eh.drag = &drag{
			cursor: eh.framebufferCursor(eh.application.Window.GetCursorPos()),
			pan:    geom.MakePoint(v.PanX, v.PanY),
		}
	case glfw.Release:
		eh.drag = nil
	}
}

func (eh *EventHandlers) onCursor(x, y float64) {
	p := eh.framebufferCursor(x, y)
	if eh.drag != nil {
		pan := eh.drag.pan.Add(p.Sub(eh.drag.cursor))
		eh.application.View.SetPan(pan.X, pan.Y)
	}
	eh.track(p)
}

// zoom scales the view by one scroll step, keeping the point under the cursor
// fixed.
func (eh *EventHandlers) zoom(delta float64) {
	p := eh.framebufferCursor(eh.application.Window.GetCursorPos())
	eh.application.View.ZoomAt(1+delta*zoomStep, p.X, p.Y)
}

// focusNearest resets the zoom and centers the label closest to the cursor,
// or the tile center when there are none.
func (eh *EventHandlers) focusNearest() {
	labels := eh.labels()
	if len(labels) == 0 {
		eh.application.View.ResetTo(geom.MakePoint(0.5, 0.5))
		return
	}
	nearest := 0
	for i, l := range labels {
		if geom.Dist(placement(l), eh.cursor) < geom.Dist(placement(labels[nearest]), eh.cursor) {
			nearest = i
		}
	}
	eh.focus(labels, nearest)
}

// cycle centers the next (or previous) label.
func (eh *EventHandlers) cycle(forward bool) {
	labels := eh.labels()
	if len(labels) == 0 {
		eh.focused = -1
		return
	}
	i := 0
	if eh.focused >= 0 && eh.focused < len(labels) {
		i = eh.focused + 1
		if !forward {
			i = eh.focused - 1 + len(labels)
		}
	}
	eh.focus(labels, i%len(labels))
}

func (eh *EventHandlers) focus(labels []*label.Label, i int) {
	eh.focused = i
	runtimeLogger.Printf("centering %s label %q", labels[i].Kind(), labels[i].Text())
	eh.application.View.ResetTo(placement(labels[i]))
	eh.refreshCursor()
}

// labels lists the renderable labels of every loaded tile.
func (eh *EventHandlers) labels() []*label.Label {
	var out []*label.Label
	for _, t := range eh.application.Tiles.Tiles() {
		for _, l := range t.Batch.Labels() {
			if l.Renderable() {
				out = append(out, l)
			}
		}
	}
	return out
}

// placement is the tile-local point a label is drawn at: the midpoint of its
// anchor segment, which for point labels is the point itself.
func placement(l *label.Label) geom.Point {
	seg := l.Segment()
	return seg[0].Add(seg[1]).Scale(0.5)
}

// framebufferCursor converts window coordinates to framebuffer pixels, which
// differ on high-DPI displays.
func (eh *EventHandlers) framebufferCursor(x, y float64) geom.Point {
	sx, sy := eh.application.Window.GetContentScale()
	return geom.MakePoint(x*float64(sx), y*float64(sy))
}

func (eh *EventHandlers) refreshCursor() {
	eh.track(eh.framebufferCursor(eh.application.Window.GetCursorPos()))
}

func (eh *EventHandlers) track(fb geom.Point) {
	if p, err := eh.application.View.ScreenToTile(fb); err == nil {
		eh.cursor = p
	}
}
