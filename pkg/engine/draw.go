package engine

import (
	"strconv"
	"strings"

	"github.com/zurustar/templecode/pkg/canvas"
)

// drawDirections maps DRAW movement letters to screen-space unit steps.
var drawDirections = map[byte][2]float64{
	'U': {0, -1},
	'D': {0, 1},
	'L': {-1, 0},
	'R': {1, 0},
	'E': {1, -1},
	'F': {1, 1},
	'G': {-1, 1},
	'H': {-1, -1},
}

// basicDraw interprets the classic DRAW string: U D L R E F G H n moves,
// M x,y (absolute, or relative with a sign), the B (move without drawing)
// and N (return afterwards) prefixes, and C n for the palette colour.
func basicDraw(e *Engine, c *Command) Result {
	src, err := e.text(c.Args)
	if err != nil {
		return Fail(err)
	}
	if !e.state.drawStarted {
		e.state.PenX = float64(e.size.Width) / 2
		e.state.PenY = float64(e.size.Height) / 2
		e.state.drawStarted = true
	}

	d := drawScanner{s: strings.ToUpper(src)}
	color := e.state.Foreground
	var blank, back bool
	for {
		d.skipSpace()
		if d.done() {
			return Continue()
		}
		cmd := d.next()
		switch {
		case cmd == 'B':
			blank = true
			continue
		case cmd == 'N':
			back = true
			continue
		case cmd == ';':
			continue
		case cmd == 'C':
			n, ok := d.number()
			if !ok || n < 0 || int(n) >= len(e.state.Palette) {
				return Fail(NewDispatchError("DRAW: bad colour at %d", d.pos))
			}
			color = e.state.Palette[int(n)]
			continue
		}

		x0, y0 := e.state.PenX, e.state.PenY
		x1, y1 := x0, y0
		if dir, ok := drawDirections[cmd]; ok {
			n, ok := d.number()
			if !ok {
				n = 1
			}
			x1, y1 = x0+dir[0]*n, y0+dir[1]*n
		} else if cmd == 'M' {
			d.skipSpace()
			relative := !d.done() && (d.peek() == '+' || d.peek() == '-')
			x, okx := d.signed()
			d.skipSpace()
			if !d.done() && d.peek() == ',' {
				d.next()
			}
			y, oky := d.signed()
			if !okx || !oky {
				return Fail(NewDispatchError("DRAW: M expects x,y at %d", d.pos))
			}
			if relative {
				x1, y1 = x0+x, y0+y
			} else {
				x1, y1 = x, y
			}
		} else {
			return Fail(NewDispatchError("DRAW: unknown command %q", string(cmd)))
		}

		if !blank {
			lx0, ly0 := e.size.ToLogical(x0, y0)
			lx1, ly1 := e.size.ToLogical(x1, y1)
			e.draw(canvas.Line{X1: lx0, Y1: ly0, X2: lx1, Y2: ly1, Color: color})
		}
		if !back {
			e.state.PenX, e.state.PenY = x1, y1
		}
		blank, back = false, false
	}
}

type drawScanner struct {
	s   string
	pos int
}

func (d *drawScanner) done() bool { return d.pos >= len(d.s) }

func (d *drawScanner) peek() byte { return d.s[d.pos] }

func (d *drawScanner) next() byte {
	ch := d.s[d.pos]
	d.pos++
	return ch
}

func (d *drawScanner) skipSpace() {
	for !d.done() && (d.s[d.pos] == ' ' || d.s[d.pos] == '\t') {
		d.pos++
	}
}

// number reads an unsigned decimal number.
func (d *drawScanner) number() (float64, bool) {
	d.skipSpace()
	start := d.pos
	for !d.done() && (d.s[d.pos] >= '0' && d.s[d.pos] <= '9' || d.s[d.pos] == '.') {
		d.pos++
	}
	if start == d.pos {
		return 0, false
	}
	n, err := strconv.ParseFloat(d.s[start:d.pos], 64)
	return n, err == nil
}

func (d *drawScanner) signed() (float64, bool) {
	d.skipSpace()
	sign := 1.0
	if !d.done() && (d.peek() == '+' || d.peek() == '-') {
		if d.next() == '-' {
			sign = -1
		}
	}
	n, ok := d.number()
	return sign * n, ok
}
