package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/turtle"
)

func registerLogo() {
	register(Logo, logoForward(1), "FORWARD", "FD")
	register(Logo, logoForward(-1), "BACK", "BACKWARD", "BK")
	register(Logo, logoTurn(1), "LEFT", "LT")
	register(Logo, logoTurn(-1), "RIGHT", "RT")
	register(Logo, logoSetXY, "SETXY")
	register(Logo, logoSetX, "SETX")
	register(Logo, logoSetY, "SETY")
	register(Logo, logoSetHeading, "SETHEADING", "SETH")
	register(Logo, logoHome, "HOME")
	register(Logo, logoClearScreen, "CLEARSCREEN", "CS")
	register(Logo, logoPen(false), "PENUP", "PU")
	register(Logo, logoPen(true), "PENDOWN", "PD")
	register(Logo, logoSetColor, "SETCOLOR", "PENCOLOR", "PC")
	register(Logo, logoPenSize, "PENSIZE")
	register(Logo, logoPenStyle, "PENSTYLE")
	register(Logo, logoShowTurtle(false), "HIDETURTLE", "HT")
	register(Logo, logoShowTurtle(true), "SHOWTURTLE", "ST")
	register(Logo, logoClearText, "CLEARTEXT", "CT")
	register(Logo, logoCircle, "CIRCLE")
	register(Logo, logoRect, "RECT")
	register(Logo, logoDot, "DOT")
	register(Logo, logoImage, "IMAGE")
	register(Logo, logoSpriteNew, "SPRITENEW")
	register(Logo, logoSpritePos, "SPRITEPOS")
	register(Logo, logoSpriteDraw, "SPRITEDRAW")
	register(Logo, logoHUD, "HUD")
	register(Logo, logoSnapshot, "SNAPSHOT")
	register(Logo, logoRepeat, "REPEAT")
	register(Logo, logoDefine, "DEFINE")
	register(Logo, logoCall, "CALL")
	register(Logo, logoProfile, "PROFILE")
	register(Logo, logoDebugLines, "DEBUGLINES")
	register(Logo, callProcedure, procedureKeyword)
}

// showTurtle sends the turtle cursor to the graphics sink.
func (e *Engine) showTurtle() {
	t := e.state.Turtle
	e.draw(canvas.Turtle{X: t.X, Y: t.Y, Heading: t.Heading, Visible: t.Visible, Color: t.Color})
}

func (e *Engine) drawSegment(seg turtle.Segment) {
	e.draw(canvas.Segment{
		X1: seg.X1, Y1: seg.Y1, X2: seg.X2, Y2: seg.Y2,
		Color: seg.Color, Width: seg.Width, Style: seg.Style,
	})
	if e.state.DebugLines {
		e.write(fmt.Sprintf("segment (%g,%g)-(%g,%g) %s", seg.X1, seg.Y1, seg.X2, seg.Y2, seg.Color))
	}
}

func logoForward(sign float64) Handler {
	return func(e *Engine, c *Command) Result {
		n, err := e.numbers(c.Args, 1, 1)
		if err != nil {
			return Fail(err)
		}
		if seg, ok := e.state.Turtle.Forward(sign * n[0]); ok {
			e.drawSegment(seg)
		}
		e.showTurtle()
		return Continue()
	}
}

func logoTurn(sign float64) Handler {
	return func(e *Engine, c *Command) Result {
		n, err := e.numbers(c.Args, 1, 1)
		if err != nil {
			return Fail(err)
		}
		e.state.Turtle.Turn(sign * n[0])
		e.showTurtle()
		return Continue()
	}
}

func logoSetXY(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 2, 2)
	if err != nil {
		return Fail(err)
	}
	e.state.Turtle.SetPosition(n[0], n[1])
	e.showTurtle()
	return Continue()
}

func logoSetX(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 1, 1)
	if err != nil {
		return Fail(err)
	}
	e.state.Turtle.SetPosition(n[0], e.state.Turtle.Y)
	e.showTurtle()
	return Continue()
}

func logoSetY(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 1, 1)
	if err != nil {
		return Fail(err)
	}
	e.state.Turtle.SetPosition(e.state.Turtle.X, n[0])
	e.showTurtle()
	return Continue()
}

func logoSetHeading(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 1, 1)
	if err != nil {
		return Fail(err)
	}
	e.state.Turtle.SetHeading(n[0])
	e.showTurtle()
	return Continue()
}

func logoHome(e *Engine, _ *Command) Result {
	e.state.Turtle.Home()
	e.showTurtle()
	return Continue()
}

func logoClearScreen(e *Engine, _ *Command) Result {
	e.state.Turtle.Reset()
	e.draw(canvas.Clear{Background: e.state.Background})
	e.showTurtle()
	return Continue()
}

func logoPen(down bool) Handler {
	return func(e *Engine, _ *Command) Result {
		e.state.Turtle.PenDown = down
		return Continue()
	}
}

// logoSetColor accepts a palette index, a colour name or #rrggbb.
func logoSetColor(e *Engine, c *Command) Result {
	raw := strings.TrimSpace(c.Args)
	if s, ok := unquoteWhole(raw); ok {
		raw = s
	}
	if raw == "" {
		return Fail(NewDispatchError("SETCOLOR expects a colour"))
	}
	col, err := e.color(raw)
	if err != nil {
		if isIdentifier(raw) {
			return Fail(NewDispatchError("unknown colour: %s", raw))
		}
		return Fail(err)
	}
	e.state.Turtle.Color = col
	e.showTurtle()
	return Continue()
}

func logoPenSize(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 1, 1)
	if err != nil {
		return Fail(err)
	}
	e.state.Turtle.SetWidth(int(n[0]))
	return Continue()
}

func logoPenStyle(e *Engine, c *Command) Result {
	style, err := e.text(strings.TrimSpace(c.Args))
	if err != nil {
		return Fail(err)
	}
	if !e.state.Turtle.SetStyle(strings.ToLower(style)) {
		return Fail(NewDispatchError("unknown pen style: %s", style))
	}
	return Continue()
}

func logoShowTurtle(visible bool) Handler {
	return func(e *Engine, _ *Command) Result {
		e.state.Turtle.Visible = visible
		e.showTurtle()
		return Continue()
	}
}

func logoClearText(e *Engine, _ *Command) Result {
	if tc, ok := e.out.(TextClearer); ok {
		tc.ClearText()
	}
	return Continue()
}

// logoCircle draws a circle or arc centred on the turtle.
func logoCircle(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 1, 2)
	if err != nil {
		return Fail(err)
	}
	extent := 360.0
	if len(n) == 2 {
		extent = n[1]
	}
	t := e.state.Turtle
	e.draw(canvas.Circle{X: t.X, Y: t.Y, Radius: math.Abs(n[0]), Extent: extent, Color: t.Color, Width: t.Width})
	return Continue()
}

// logoRect draws a rectangle with its lower-left corner at the turtle.
func logoRect(e *Engine, c *Command) Result {
	n, err := e.numbers(c.Args, 2, 2)
	if err != nil {
		return Fail(err)
	}
	t := e.state.Turtle
	e.draw(canvas.Rect{X: t.X, Y: t.Y, Width: n[0], Height: n[1], Color: t.Color, PenWidth: t.Width})
	return Continue()
}

func logoDot(e *Engine, c *Command) Result {
	size := 3.0
	if strings.TrimSpace(c.Args) != "" {
		n, err := e.numbers(c.Args, 1, 1)
		if err != nil {
			return Fail(err)
		}
		size = n[0]
	}
	t := e.state.Turtle
	e.draw(canvas.Dot{X: t.X, Y: t.Y, Size: size, Color: t.Color})
	return Continue()
}

func logoImage(e *Engine, c *Command) Result {
	vals, err := e.sequence(c.Args)
	if err != nil {
		return Fail(err)
	}
	if len(vals) != 1 && len(vals) != 3 {
		return Fail(NewDispatchError("IMAGE expects \"path\" [w h]"))
	}
	img := canvas.Image{Path: vals[0].String(), X: e.state.Turtle.X, Y: e.state.Turtle.Y}
	if len(vals) == 3 {
		w, wok := vals[1].AsNumber()
		h, hok := vals[2].AsNumber()
		if !wok || !hok {
			return Fail(NewDispatchError("IMAGE size must be numeric"))
		}
		img.W, img.H = w, h
	}
	e.draw(img)
	return Continue()
}

func logoSpriteNew(e *Engine, c *Command) Result {
	vals, err := e.sequence(c.Args)
	if err != nil {
		return Fail(err)
	}
	if len(vals) != 2 {
		return Fail(NewDispatchError("SPRITENEW expects name path"))
	}
	e.defineSprite(vals[0].String(), vals[1].String())
	return Continue()
}

func (e *Engine) defineSprite(name, path string) {
	s := e.state.Turtle.DefineSprite(name, path)
	e.draw(canvas.SpriteUpdate{Name: s.Name, Path: s.Path, X: s.X, Y: s.Y, Visible: true})
}

func logoSpritePos(e *Engine, c *Command) Result {
	vals, err := e.sequence(c.Args)
	if err != nil {
		return Fail(err)
	}
	if len(vals) != 3 {
		return Fail(NewDispatchError("SPRITEPOS expects name x y"))
	}
	x, xok := vals[1].AsNumber()
	y, yok := vals[2].AsNumber()
	if !xok || !yok {
		return Fail(NewDispatchError("SPRITEPOS position must be numeric"))
	}
	return e.moveSprite(vals[0].String(), x, y)
}

func (e *Engine) moveSprite(name string, x, y float64) Result {
	s, ok := e.state.Turtle.MoveSprite(name, x, y)
	if !ok {
		return Fail(NewDispatchError("unknown sprite: %s", name))
	}
	e.draw(canvas.SpriteUpdate{Name: s.Name, Path: s.Path, X: s.X, Y: s.Y, Visible: true})
	return Continue()
}

func logoSpriteDraw(e *Engine, c *Command) Result {
	name, err := e.text(strings.TrimSpace(c.Args))
	if err != nil {
		return Fail(err)
	}
	s, ok := e.state.Turtle.Sprite(name)
	if !ok {
		return Fail(NewDispatchError("unknown sprite: %s", name))
	}
	e.draw(canvas.SpriteUpdate{Name: s.Name, Path: s.Path, X: s.X, Y: s.Y, Visible: true})
	return Continue()
}

func logoHUD(e *Engine, _ *Command) Result {
	e.state.HUD = !e.state.HUD
	e.draw(canvas.HUD{Visible: e.state.HUD})
	return Continue()
}

func logoSnapshot(e *Engine, c *Command) Result {
	path, err := e.text(strings.TrimSpace(c.Args))
	if err != nil {
		return Fail(err)
	}
	if path == "" {
		return Fail(NewDispatchError("SNAPSHOT expects a file name"))
	}
	e.draw(canvas.Snapshot{Path: path})
	return Continue()
}

// logoRepeat runs a bracketed block n times.
func logoRepeat(e *Engine, c *Command) Result {
	open := strings.IndexByte(c.Args, '[')
	if open < 0 {
		return Fail(NewDispatchError("REPEAT expects [ commands ]"))
	}
	body, err := blockBody(c.Args[open:])
	if err != nil {
		return Fail(err)
	}
	count, err := e.number(c.Args[:open])
	if err != nil {
		return Fail(err)
	}
	cmds := e.splitBlock(body)
	for i := 0; i < int(count); i++ {
		if res := e.runBlock(cmds); res.Kind != ResultContinue {
			return res
		}
	}
	return Continue()
}

func logoDefine(e *Engine, c *Command) Result {
	open := strings.IndexByte(c.Args, '[')
	if open < 0 {
		return Fail(NewDispatchError("DEFINE expects name [ commands ]"))
	}
	name := strings.ToUpper(strings.TrimSpace(c.Args[:open]))
	if !isIdentifier(name) {
		return Fail(NewDispatchError("invalid macro name: %s", name))
	}
	body, err := blockBody(c.Args[open:])
	if err != nil {
		return Fail(err)
	}
	e.state.Macros[name] = e.splitBlock(body)
	return Continue()
}

func logoCall(e *Engine, c *Command) Result {
	name := strings.ToUpper(strings.TrimSpace(c.Args))
	cmds, ok := e.state.Macros[name]
	if !ok {
		return Fail(NewDispatchError("Unknown macro: %s", name))
	}
	if e.state.Depth >= e.maxDepth {
		return Fail(NewDispatchError("maximum call depth exceeded (%d) in %s", e.maxDepth, name))
	}
	e.state.Depth++
	defer func() { e.state.Depth-- }()
	return e.runBlock(cmds)
}

func logoProfile(e *Engine, c *Command) Result {
	switch strings.ToUpper(strings.TrimSpace(c.Args)) {
	case "ON":
		e.profile.enabled = true
	case "OFF":
		e.profile.enabled = false
	case "REPORT":
		for _, line := range e.profile.report() {
			e.write(line)
		}
	default:
		return Fail(NewDispatchError("PROFILE expects ON, OFF or REPORT"))
	}
	return Continue()
}

func logoDebugLines(e *Engine, c *Command) Result {
	switch strings.ToUpper(strings.TrimSpace(c.Args)) {
	case "ON":
		e.state.DebugLines = true
	case "OFF":
		e.state.DebugLines = false
	default:
		return Fail(NewDispatchError("DEBUGLINES expects ON or OFF"))
	}
	return Continue()
}

// blockBody returns the text inside the leading bracket pair of s.
func blockBody(s string) (string, error) {
	depth := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), nil
			}
		}
	}
	return "", NewDispatchError("unbalanced '[' in block: %s", s)
}

// splitBlock splits a block body into commands. A new command starts at
// every Logo keyword, procedure name, macro name or PILOT prefix outside
// nested brackets.
func (e *Engine) splitBlock(body string) []string {
	var (
		cmds  []string
		cur   []string
		depth int
	)
	for _, tok := range blockTokens(body) {
		if depth == 0 && len(cur) > 0 && e.startsCommand(tok) {
			cmds = append(cmds, strings.Join(cur, " "))
			cur = nil
		}
		cur = append(cur, tok)
		depth += strings.Count(tok, "[") - strings.Count(tok, "]")
	}
	if len(cur) > 0 {
		cmds = append(cmds, strings.Join(cur, " "))
	}
	return cmds
}

func (e *Engine) startsCommand(tok string) bool {
	if _, _, _, ok := splitPILOT(tok); ok {
		return true
	}
	word, _ := firstWord(tok)
	if word != tok {
		return false
	}
	upper := strings.ToUpper(word)
	if _, ok := handlers[CommandKey{Logo, upper}]; ok {
		return true
	}
	if _, ok := e.prog.Procedure(word); ok {
		return true
	}
	_, ok := e.state.Macros[upper]
	return ok
}

// blockTokens splits on whitespace, keeping quoted strings whole.
func blockTokens(s string) []string {
	var (
		toks  []string
		b     strings.Builder
		quote rune
	)
	flush := func() {
		if b.Len() > 0 {
			toks = append(toks, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"':
			quote = r
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return toks
}

// runBlock executes commands in order. Faults are reported and the block
// continues; any other non-Continue result ends the block.
func (e *Engine) runBlock(cmds []string) Result {
	for _, cmd := range cmds {
		res := e.exec(cmd)
		switch res.Kind {
		case ResultContinue:
		case ResultFail:
			e.fault(res.Err)
		default:
			return res
		}
	}
	return Continue()
}
