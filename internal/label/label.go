// Package label tracks placed text labels and their per-frame screen
// placement.
package label

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/paulmach/orb/maptile"

	"github.com/irfansharif/maplabels/internal/anchor"
	"github.com/irfansharif/maplabels/internal/fontctx"
	"github.com/irfansharif/maplabels/internal/geom"
)

// State is a label's screen placement: position in pixels (y down), rotation
// in radians (clockwise) and opacity.
type State struct {
	ScreenPos mgl32.Vec2
	Rotation  float32
	Alpha     float32
}

// Transformer receives label placements, one glyph set at a time.
type Transformer interface {
	SetTransform(id fontctx.TextID, pos mgl32.Vec2, rotation, alpha float32)
}

// Label is one placed string. Labels are created by a Manager and owned by
// the batch that requested them.
type Label struct {
	id      fontctx.TextID
	text    string
	segment [2]geom.Point
	kind    anchor.Kind
	tile    maptile.Tile
	fade    float32

	state      State
	visible    bool
	dirty      bool // state changed since the last push
	renderable bool // rasterization succeeded
}

func (l *Label) ID() fontctx.TextID     { return l.id }
func (l *Label) Text() string           { return l.text }
func (l *Label) Segment() [2]geom.Point { return l.segment }
func (l *Label) Kind() anchor.Kind      { return l.kind }
func (l *Label) Tile() maptile.Tile     { return l.tile }
func (l *Label) State() State           { return l.state }
func (l *Label) Visible() bool          { return l.visible }
func (l *Label) Renderable() bool       { return l.renderable }

// Update recomputes the screen placement from the anchor, the
// model-view-projection matrix and the viewport size. Point labels sit
// upright on their anchor; line labels sit on the segment midpoint, turned
// along it and flipped to read left to right. Opacity ramps up linearly over
// the fade duration while the label is on screen and drops to zero off
// screen.
func (l *Label) Update(mvp mgl32.Mat4, screen mgl32.Vec2, dt float32) {
	next := l.state
	a, visible := project(mvp, l.segment[0], screen)
	switch l.kind {
	case anchor.Line:
		b, bVisible := project(mvp, l.segment[1], screen)
		visible = visible && bVisible
		next.ScreenPos = a.Add(b).Mul(0.5)
		d := b.Sub(a)
		next.Rotation = upright(float32(math.Atan2(float64(d.Y()), float64(d.X()))))
	default:
		next.ScreenPos = a
		next.Rotation = 0
	}

	switch {
	case !visible:
		next.Alpha = 0
	case l.fade <= 0:
		next.Alpha = 1
	default:
		next.Alpha = mgl32.Clamp(next.Alpha+dt/l.fade, 0, 1)
	}

	l.visible = visible
	if next != l.state {
		l.state = next
		l.dirty = true
	}
}

// PushTransform hands the current placement to t if it changed since the last
// push. Labels whose text failed to rasterize are never pushed. It reports
// whether anything was pushed.
func (l *Label) PushTransform(t Transformer) bool {
	if !l.dirty || !l.renderable {
		return false
	}
	t.SetTransform(l.id, l.state.ScreenPos, l.state.Rotation, l.state.Alpha)
	l.dirty = false
	return true
}

// project maps a tile-local point to screen pixels. The second result is
// false when the point falls outside the clip volume.
func project(mvp mgl32.Mat4, p geom.Point, screen mgl32.Vec2) (mgl32.Vec2, bool) {
	clip := mvp.Mul4x1(mgl32.Vec4{float32(p.X), float32(p.Y), 0, 1})
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	pos := mgl32.Vec2{
		(ndc.X() + 1) / 2 * screen.X(),
		(1 - ndc.Y()) / 2 * screen.Y(),
	}
	inside := ndc.X() >= -1 && ndc.X() <= 1 && ndc.Y() >= -1 && ndc.Y() <= 1
	return pos, inside
}

// upright folds an angle into (-pi/2, pi/2].
func upright(theta float32) float32 {
	const half = math.Pi / 2
	switch {
	case theta > half:
		return theta - math.Pi
	case theta <= -half:
		return theta + math.Pi
	default:
		return theta
	}
}
