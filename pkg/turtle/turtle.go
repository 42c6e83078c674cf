// Package turtle models Logo turtle geometry: position, heading, pen state,
// the recorded segment list and the sprite registry. It does no rendering.
package turtle

import (
	"math"
)

// Pen styles.
const (
	StyleSolid  = "solid"
	StyleDashed = "dashed"
	StyleDotted = "dotted"
)

// Default state values.
const (
	DefaultHeading = 90.0
	DefaultColor   = "black"
	DefaultWidth   = 1
)

const snapEpsilon = 1e-9

// Segment is one pen-down line recorded by Forward.
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
	Color  string
	Width  int
	Style  string
}

// Sprite is a named image placed on the canvas.
type Sprite struct {
	Name string
	Path string
	X, Y float64
}

// Turtle is the turtle state. The zero value is not ready; use New.
type Turtle struct {
	X       float64
	Y       float64
	Heading float64 // degrees, 90 points up
	PenDown bool
	Color   string
	Width   int
	Style   string
	Visible bool

	segments []Segment
	sprites  map[string]*Sprite
}

// New returns a turtle at the origin facing up with the pen down.
func New() *Turtle {
	t := &Turtle{}
	t.Reset()
	return t
}

// Reset restores the defaults and clears segments and sprites.
func (t *Turtle) Reset() {
	t.X, t.Y = 0, 0
	t.Heading = DefaultHeading
	t.PenDown = true
	t.Color = DefaultColor
	t.Width = DefaultWidth
	t.Style = StyleSolid
	t.Visible = true
	t.segments = nil
	t.sprites = make(map[string]*Sprite)
}

// Home moves the turtle to the origin facing up without drawing.
func (t *Turtle) Home() {
	t.X, t.Y = 0, 0
	t.Heading = DefaultHeading
}

// Forward moves distance units along the heading. When the pen is down the
// move is recorded and the segment returned; ok is false otherwise.
func (t *Turtle) Forward(distance float64) (seg Segment, ok bool) {
	rad := t.Heading * math.Pi / 180
	x1, y1 := t.X, t.Y
	t.X = snap(x1 + distance*math.Cos(rad))
	t.Y = snap(y1 + distance*math.Sin(rad))
	if !t.PenDown {
		return Segment{}, false
	}
	seg = Segment{X1: x1, Y1: y1, X2: t.X, Y2: t.Y, Color: t.Color, Width: t.Width, Style: t.Style}
	t.segments = append(t.segments, seg)
	return seg, true
}

// Back moves backwards.
func (t *Turtle) Back(distance float64) (Segment, bool) {
	return t.Forward(-distance)
}

// Turn adds delta degrees to the heading (positive turns left).
func (t *Turtle) Turn(delta float64) {
	t.SetHeading(t.Heading + delta)
}

// SetHeading sets the heading, normalised into [0, 360).
func (t *Turtle) SetHeading(h float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h = snap(h)
	if h >= 360 {
		h = 0
	}
	t.Heading = h
}

// SetPosition teleports the turtle. Nothing is recorded.
func (t *Turtle) SetPosition(x, y float64) {
	t.X, t.Y = x, y
}

// SetWidth sets the pen width; values below 1 are raised to 1.
func (t *Turtle) SetWidth(w int) {
	t.Width = max(1, w)
}

// SetStyle sets the pen style. Unknown styles report false and leave the
// style unchanged.
func (t *Turtle) SetStyle(style string) bool {
	switch style {
	case StyleSolid, StyleDashed, StyleDotted:
		t.Style = style
		return true
	}
	return false
}

// Segments returns the recorded segments in drawing order.
func (t *Turtle) Segments() []Segment {
	return t.segments
}

// ClearSegments forgets the recorded segments.
func (t *Turtle) ClearSegments() {
	t.segments = nil
}

// DefineSprite creates or replaces a sprite at the origin.
func (t *Turtle) DefineSprite(name, path string) *Sprite {
	s := &Sprite{Name: name, Path: path}
	t.sprites[name] = s
	return s
}

// MoveSprite moves a defined sprite. It reports false for unknown names.
func (t *Turtle) MoveSprite(name string, x, y float64) (*Sprite, bool) {
	s, ok := t.sprites[name]
	if !ok {
		return nil, false
	}
	s.X, s.Y = x, y
	return s, true
}

// Sprite looks a sprite up by name.
func (t *Turtle) Sprite(name string) (*Sprite, bool) {
	s, ok := t.sprites[name]
	return s, ok
}

// SpriteCount returns the number of defined sprites.
func (t *Turtle) SpriteCount() int {
	return len(t.sprites)
}

func snap(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) < snapEpsilon {
		return r
	}
	return v
}
