package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/expr"
)

// TextClearer is implemented by output sinks that can clear their text.
type TextClearer interface {
	ClearText()
}

// GW-BASIC SOUND durations are in clock ticks.
const ticksPerSecond = 18.2

var forPattern = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+?)\s+TO\s+(.+?)(?:\s+STEP\s+(.+))?$`)

func registerBASIC() {
	register(BASIC, basicLet, "LET")
	register(BASIC, basicPrint, "PRINT")
	register(BASIC, basicInput, "INPUT")
	register(BASIC, basicGoto, "GOTO")
	register(BASIC, basicGosub, "GOSUB")
	register(BASIC, basicReturn, "RETURN")
	register(BASIC, basicIf, "IF")
	register(BASIC, basicFor, "FOR")
	register(BASIC, basicNext, "NEXT")
	register(BASIC, basicEnd, "END", "STOP")
	register(BASIC, basicRem, "REM", "DATA")
	register(BASIC, basicCls, "CLS")
	register(BASIC, basicScreen, "SCREEN")
	register(BASIC, basicColor, "COLOR")
	register(BASIC, basicPalette, "PALETTE")
	register(BASIC, basicPset(true), "PSET")
	register(BASIC, basicPset(false), "PRESET")
	register(BASIC, basicCircle, "CIRCLE")
	register(BASIC, basicLine, "LINE")
	register(BASIC, basicDraw, "DRAW")
	register(BASIC, basicPaint, "PAINT")
	register(BASIC, basicPlay, "PLAY")
	register(BASIC, basicSound, "SOUND")
	register(BASIC, basicBeep, "BEEP")
	register(BASIC, basicRandomize, "RANDOMIZE")
	register(BASIC, basicSwap, "SWAP")
	register(BASIC, basicWait, "WAIT")
	register(BASIC, basicRead, "READ")
	register(BASIC, basicRestore, "RESTORE")
}

func basicLet(e *Engine, c *Command) Result {
	name, rhs, ok := splitAssignment(c.Args)
	if !ok {
		return Fail(NewDispatchError("expected assignment: %s", c.Args))
	}
	v, err := e.evaluate(rhs)
	if err != nil {
		return Fail(err)
	}
	e.setVar(name, v)
	return Continue()
}

// basicPrint joins parts with nothing after ';' and one space after ','.
// A part that does not evaluate is printed as interpolated text.
func basicPrint(e *Engine, c *Command) Result {
	var b strings.Builder
	for _, p := range splitPrint(c.Args) {
		if p.text != "" {
			v, err := e.evaluate(p.text)
			if err != nil {
				b.WriteString(e.interpolate(p.text))
			} else {
				b.WriteString(v.String())
			}
		}
		if p.sep == ',' {
			b.WriteByte(' ')
		}
	}
	e.write(b.String())
	return Continue()
}

type printPart struct {
	text string
	sep  byte // ';', ',' or 0 for the last part
}

func splitPrint(s string) []printPart {
	var (
		parts []printPart
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case (ch == ';' || ch == ',') && depth == 0:
			parts = append(parts, printPart{text: strings.TrimSpace(s[start:i]), sep: ch})
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, printPart{text: last})
	}
	return parts
}

// basicInput handles INPUT ["prompt";] v.
func basicInput(e *Engine, c *Command) Result {
	s := strings.TrimSpace(c.Args)
	prompt := ""
	if strings.HasPrefix(s, `"`) {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return Fail(NewDispatchError("unterminated prompt: %s", s))
		}
		prompt = s[1 : end+1]
		s = strings.TrimLeft(strings.TrimSpace(s[end+2:]), ";,")
	}
	name := strings.TrimSpace(s)
	if !isIdentifier(name) {
		return Fail(NewDispatchError("invalid variable name: %s", name))
	}
	if prompt == "" {
		prompt = name + "? "
	}
	return e.input(prompt, name)
}

func basicGoto(e *Engine, c *Command) Result {
	idx, err := e.target(c.Args)
	if err != nil {
		return Fail(err)
	}
	return Jump(idx)
}

func basicGosub(e *Engine, c *Command) Result {
	idx, err := e.target(c.Args)
	if err != nil {
		return Fail(err)
	}
	e.state.Returns = append(e.state.Returns, e.state.Current+1)
	return Jump(idx)
}

// target resolves a BASIC line number, falling back to a label.
func (e *Engine) target(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if idx, ok := e.prog.ResolveLineNumber(n); ok {
			return idx, nil
		}
		if idx, ok := e.prog.ResolveLabel(s); ok {
			return idx, nil
		}
		return 0, NewControlFlowError("Line %d not found", n)
	}
	label := strings.TrimPrefix(s, "*")
	if idx, ok := e.prog.ResolveLabel(label); ok {
		return idx, nil
	}
	return 0, NewControlFlowError("Label not found: %s", label)
}

func basicReturn(e *Engine, _ *Command) Result {
	return e.ret()
}

// basicIf handles IF cond THEN cmd|n [ELSE cmd|n]. The branch runs through
// the general dispatcher in the same line context.
func basicIf(e *Engine, c *Command) Result {
	at := findWord(c.Args, "THEN")
	if at < 0 {
		return Fail(NewDispatchError("IF without THEN: %s", c.Text))
	}
	cond := c.Args[:at]
	branch := strings.TrimSpace(c.Args[at+len("THEN"):])
	alt := ""
	if el := findWord(branch, "ELSE"); el >= 0 {
		alt = strings.TrimSpace(branch[el+len("ELSE"):])
		branch = strings.TrimSpace(branch[:el])
	}
	ok, err := e.condition(cond)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		branch = alt
	}
	if branch == "" {
		return Continue()
	}
	if _, err := strconv.Atoi(branch); err == nil {
		return basicGoto(e, &Command{Args: branch})
	}
	return e.exec(branch)
}

// findWord returns the offset of a case-insensitive keyword that stands
// alone outside quotes, or -1.
func findWord(s, word string) int {
	upper := strings.ToUpper(s)
	var quote byte
	for i := 0; i+len(word) <= len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '"' {
			quote = ch
			continue
		}
		if upper[i:i+len(word)] != word {
			continue
		}
		before := i == 0 || !isWordByte(s[i-1])
		after := i+len(word) == len(s) || !isWordByte(s[i+len(word)])
		if before && after {
			return i
		}
	}
	return -1
}

func isWordByte(ch byte) bool {
	return isASCIILetter(ch) || (ch >= '0' && ch <= '9') || ch == '_' || ch == '$'
}

// basicFor pushes a loop frame. Bounds and step are truncated to integers.
// Re-entering FOR for a variable that already has a frame discards that
// frame and the frames above it.
func basicFor(e *Engine, c *Command) Result {
	m := forPattern.FindStringSubmatch(strings.TrimSpace(c.Args))
	if m == nil {
		return Fail(NewDispatchError("malformed FOR: %s", c.Text))
	}
	start, err := e.number(m[2])
	if err != nil {
		return Fail(err)
	}
	end, err := e.number(m[3])
	if err != nil {
		return Fail(err)
	}
	step := 1.0
	if m[4] != "" {
		if step, err = e.number(m[4]); err != nil {
			return Fail(err)
		}
	}
	start, end, step = math.Trunc(start), math.Trunc(end), math.Trunc(step)
	if step == 0 {
		return Fail(NewDispatchError("FOR step cannot be zero"))
	}

	name := normalizeName(m[1])
	if i := e.state.findLoop(name); i >= 0 {
		e.state.Loops = e.state.Loops[:i]
	}
	e.setVar(name, expr.Num(start))
	e.state.Loops = append(e.state.Loops, LoopFrame{Var: name, End: end, Step: step, Origin: e.state.Current})
	return Continue()
}

func basicNext(e *Engine, c *Command) Result {
	name := strings.TrimSpace(c.Args)
	i := e.state.findLoop(name)
	if i < 0 {
		if name == "" {
			return Fail(NewControlFlowError("NEXT without FOR"))
		}
		return Fail(NewControlFlowError("NEXT without FOR: %s", name))
	}
	f := e.state.Loops[i]
	cur, _ := e.state.Vars[f.Var].AsNumber()
	next := cur + f.Step
	e.setVar(f.Var, expr.Num(next))
	if (f.Step >= 0 && next <= f.End) || (f.Step < 0 && next >= f.End) {
		e.state.Loops = e.state.Loops[:i+1]
		return Jump(f.Origin + 1)
	}
	e.state.Loops = e.state.Loops[:i]
	return Continue()
}

func basicEnd(*Engine, *Command) Result { return End() }

func basicRem(*Engine, *Command) Result { return Continue() }

func basicCls(e *Engine, _ *Command) Result {
	e.state.Turtle.ClearSegments()
	e.draw(canvas.Clear{Background: e.state.Background})
	if tc, ok := e.out.(TextClearer); ok {
		tc.ClearText()
	}
	return Continue()
}

func basicScreen(e *Engine, c *Command) Result {
	n, err := e.number(c.Args)
	if err != nil {
		return Fail(err)
	}
	e.state.Screen = int(n)
	e.draw(canvas.Clear{Background: e.state.Background})
	return Continue()
}

func basicColor(e *Engine, c *Command) Result {
	parts := splitList(c.Args)
	if len(parts) == 0 || len(parts) > 2 {
		return Fail(NewDispatchError("COLOR expects fg[,bg]"))
	}
	fg, err := e.color(parts[0])
	if err != nil {
		return Fail(err)
	}
	e.state.Foreground = fg
	if len(parts) == 2 && parts[1] != "" {
		bg, err := e.color(parts[1])
		if err != nil {
			return Fail(err)
		}
		e.state.Background = bg
	}
	return Continue()
}

func basicPalette(e *Engine, c *Command) Result {
	parts := splitList(c.Args)
	if len(parts) != 2 {
		return Fail(NewDispatchError("PALETTE expects index,colour"))
	}
	n, err := e.number(parts[0])
	if err != nil {
		return Fail(err)
	}
	i := int(n)
	if i < 0 || i >= len(e.state.Palette) {
		return Fail(NewDispatchError("palette index out of range: %d", i))
	}
	name, err := e.text(parts[1])
	if err != nil {
		return Fail(err)
	}
	if !canvas.IsColor(name) {
		return Fail(NewDispatchError("unknown colour: %s", name))
	}
	e.state.Palette[i] = strings.ToLower(name)
	return Continue()
}

// color resolves a palette index, a colour name or #rrggbb.
func (e *Engine) color(src string) (string, error) {
	src = strings.TrimSpace(src)
	if canvas.IsColor(src) {
		return strings.ToLower(src), nil
	}
	v, err := e.evaluate(src)
	if err != nil {
		return "", err
	}
	if n, ok := v.Number(); ok {
		i := int(n)
		if i < 0 || i >= len(e.state.Palette) {
			return "", NewDispatchError("palette index out of range: %d", i)
		}
		return e.state.Palette[i], nil
	}
	if s := v.String(); canvas.IsColor(s) {
		return strings.ToLower(s), nil
	}
	return "", NewDispatchError("unknown colour: %s", v.String())
}

// point parses "(x,y)" in screen coordinates and returns the logical
// point plus the text after ')'.
func (e *Engine) point(s string) (x, y float64, rest string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return 0, 0, "", NewDispatchError("expected (x,y): %s", s)
	}
	end := matchParen(s, 0)
	if end < 0 {
		return 0, 0, "", NewDispatchError("unbalanced parenthesis: %s", s)
	}
	xy := splitList(s[1:end])
	if len(xy) != 2 {
		return 0, 0, "", NewDispatchError("expected (x,y): %s", s)
	}
	sx, err := e.number(xy[0])
	if err != nil {
		return 0, 0, "", err
	}
	sy, err := e.number(xy[1])
	if err != nil {
		return 0, 0, "", err
	}
	x, y = e.size.ToLogical(sx, sy)
	return x, y, strings.TrimSpace(s[end+1:]), nil
}

// optionalColor reads ",c" after a point, defaulting to def.
func (e *Engine) optionalColor(rest, def string) (string, []string, error) {
	parts := splitList(strings.TrimPrefix(rest, ","))
	if len(parts) == 0 || parts[0] == "" {
		return def, parts, nil
	}
	col, err := e.color(parts[0])
	return col, parts[1:], err
}

func basicPset(foreground bool) Handler {
	return func(e *Engine, c *Command) Result {
		x, y, rest, err := e.point(c.Args)
		if err != nil {
			return Fail(err)
		}
		def := e.state.Background
		if foreground {
			def = e.state.Foreground
		}
		col, _, err := e.optionalColor(rest, def)
		if err != nil {
			return Fail(err)
		}
		e.draw(canvas.Dot{X: x, Y: y, Size: 1, Color: col})
		return Continue()
	}
}

// basicCircle handles CIRCLE (x,y),r[,c]. Without '(' the Logo form runs.
func basicCircle(e *Engine, c *Command) Result {
	if !strings.HasPrefix(strings.TrimSpace(c.Args), "(") {
		return logoCircle(e, c)
	}
	x, y, rest, err := e.point(c.Args)
	if err != nil {
		return Fail(err)
	}
	parts := splitList(strings.TrimPrefix(rest, ","))
	if len(parts) == 0 {
		return Fail(NewDispatchError("CIRCLE expects a radius"))
	}
	r, err := e.number(parts[0])
	if err != nil {
		return Fail(err)
	}
	col := e.state.Foreground
	if len(parts) > 1 && parts[1] != "" {
		if col, err = e.color(parts[1]); err != nil {
			return Fail(err)
		}
	}
	e.draw(canvas.Circle{X: x, Y: y, Radius: r, Extent: 360, Color: col, Width: 1})
	return Continue()
}

// basicLine handles LINE (x1,y1)-(x2,y2)[,c].
func basicLine(e *Engine, c *Command) Result {
	x1, y1, rest, err := e.point(c.Args)
	if err != nil {
		return Fail(err)
	}
	if !strings.HasPrefix(rest, "-") {
		return Fail(NewDispatchError("LINE expects (x1,y1)-(x2,y2)"))
	}
	x2, y2, rest, err := e.point(rest[1:])
	if err != nil {
		return Fail(err)
	}
	col, _, err := e.optionalColor(rest, e.state.Foreground)
	if err != nil {
		return Fail(err)
	}
	e.draw(canvas.Line{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: col})
	return Continue()
}

func basicPaint(e *Engine, c *Command) Result {
	x, y, rest, err := e.point(c.Args)
	if err != nil {
		return Fail(err)
	}
	col, _, err := e.optionalColor(rest, e.state.Foreground)
	if err != nil {
		return Fail(err)
	}
	e.draw(canvas.Fill{X: x, Y: y, Color: col})
	return Continue()
}

func basicPlay(e *Engine, c *Command) Result {
	mml, err := e.text(c.Args)
	if err != nil {
		return Fail(err)
	}
	if e.audio == nil {
		e.log.Debug("no audio sink", "command", "PLAY")
		return Continue()
	}
	if err := e.audio.PlayNotes(mml); err != nil {
		return Fail(NewDispatchError("PLAY: %v", err))
	}
	return Continue()
}

// basicSound handles SOUND freq,ticks[,volume 0-255[,voice]].
func basicSound(e *Engine, c *Command) Result {
	parts := splitList(c.Args)
	if len(parts) < 2 || len(parts) > 4 {
		return Fail(NewDispatchError("SOUND expects freq,duration[,volume[,voice]]"))
	}
	vals := []float64{0, 0, 255, 0}
	for i, p := range parts {
		n, err := e.number(p)
		if err != nil {
			return Fail(err)
		}
		vals[i] = n
	}
	freq, ticks := vals[0], vals[1]
	if freq <= 0 || ticks <= 0 {
		return Continue()
	}
	if e.audio == nil {
		e.log.Debug("no audio sink", "command", "SOUND")
		return Continue()
	}
	ms := int(math.Round(ticks * 1000 / ticksPerSecond))
	volume := math.Max(0, math.Min(1, vals[2]/255))
	if err := e.audio.Tone(freq, ms, volume, int(vals[3])); err != nil {
		return Fail(NewDispatchError("SOUND: %v", err))
	}
	return Continue()
}

func basicBeep(e *Engine, _ *Command) Result {
	if e.audio == nil {
		return Continue()
	}
	if err := e.audio.Beep(); err != nil {
		return Fail(NewDispatchError("BEEP: %v", err))
	}
	return Continue()
}

func basicRandomize(e *Engine, c *Command) Result {
	seed := e.clock().UnixNano()
	if strings.TrimSpace(c.Args) != "" {
		n, err := e.number(c.Args)
		if err != nil {
			return Fail(err)
		}
		seed = int64(n)
	}
	e.rng.Seed(seed)
	return Continue()
}

func basicSwap(e *Engine, c *Command) Result {
	parts := splitList(c.Args)
	if len(parts) != 2 {
		return Fail(NewDispatchError("SWAP expects two variables"))
	}
	a, aok := e.state.Variable(parts[0])
	b, bok := e.state.Variable(parts[1])
	if !aok || !bok {
		return Fail(NewDispatchError("SWAP of undefined variable: %s", c.Args))
	}
	e.setVar(parts[0], b)
	e.setVar(parts[1], a)
	return Continue()
}

func basicWait(e *Engine, c *Command) Result {
	secs, err := e.number(c.Args)
	if err != nil {
		return Fail(err)
	}
	if err := e.wait(time.Duration(secs * float64(time.Second))); err != nil {
		e.log.Debug("wait interrupted", "error", err)
	}
	return Continue()
}

func basicRead(e *Engine, c *Command) Result {
	for _, name := range splitList(c.Args) {
		if !isIdentifier(name) {
			return Fail(NewDispatchError("invalid variable name: %s", name))
		}
		if e.state.DataPos >= len(e.prog.Data) {
			return Fail(NewDispatchError("Out of data"))
		}
		e.setVar(name, e.prog.Data[e.state.DataPos])
		e.state.DataPos++
	}
	return Continue()
}

func basicRestore(e *Engine, _ *Command) Result {
	e.state.DataPos = 0
	return Continue()
}
