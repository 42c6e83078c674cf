package engine

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/expr"
	"github.com/zurustar/templecode/pkg/session"
	"github.com/zurustar/templecode/pkg/tick"
)

var (
	sndPattern   = regexp.MustCompile(`(?i)^name\s*=\s*"([^"]*)"\s*,\s*file\s*=\s*"([^"]*)"$`)
	tweenPattern = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s*->\s*(.+?)\s+IN\s+(.+?)\s*(?:MS)?(?:\s+EASE\s+(.+))?$`)
	afterPattern = regexp.MustCompile(`(?i)^(.+?)\s*(?:MS)?\s+DO\s+(\S+)$`)
)

// extension is an R: subcommand.
type extension func(e *Engine, args string) Result

var extensions map[string]extension

func init() {
	extensions = map[string]extension{
		"SND":     extSound,
		"PLAY":    extPlay,
		"SAVE":    extSave,
		"LOAD":    extLoad,
		"NEW":     extNew,
		"POS":     extPos,
		"TWEEN":   extTween,
		"AFTER":   extAfter,
		"EMIT":    extEmit,
		"HUD":     func(e *Engine, _ string) Result { return logoHUD(e, nil) },
		"SNAP":    extSnap,
		"ARDUINO": extHardware("arduino"),
		"RPI":     extHardware("rpi"),
	}
}

// pilotExtension dispatches R: subcommands. Anything else is a gosub to
// the named label.
func pilotExtension(e *Engine, c *Command) Result {
	word, rest := firstWord(c.Args)
	if ext, ok := extensions[strings.ToUpper(word)]; ok {
		return ext(e, strings.TrimSpace(rest))
	}
	return e.gosub(c.Args)
}

func extSound(e *Engine, args string) Result {
	m := sndPattern.FindStringSubmatch(args)
	if m == nil {
		return Fail(NewDispatchError(`R: SND expects name="...", file="..."`))
	}
	if e.audio == nil {
		e.log.Debug("no audio sink", "command", "SND", "name", m[1])
		return Continue()
	}
	if err := e.audio.Register(m[1], m[2]); err != nil {
		return Fail(NewDispatchError("cannot register sound %s: %v", m[1], err))
	}
	return Continue()
}

func extPlay(e *Engine, args string) Result {
	name, err := e.text(args)
	if err != nil {
		return Fail(err)
	}
	if e.audio == nil {
		e.log.Debug("no audio sink", "command", "PLAY", "name", name)
		return Continue()
	}
	if err := e.audio.Play(name); err != nil {
		return Fail(NewDispatchError("cannot play %s: %v", name, err))
	}
	return Continue()
}

func extSave(e *Engine, args string) Result {
	if e.store == nil {
		return Fail(NewDispatchError("no session store configured"))
	}
	slot, err := e.text(args)
	if err != nil {
		return Fail(err)
	}
	if err := e.store.Save(slot, e.Snapshot()); err != nil {
		return Fail(NewDispatchError("cannot save %s: %v", slot, err))
	}
	e.write(fmt.Sprintf("Saved session %s", slot))
	return Continue()
}

func extLoad(e *Engine, args string) Result {
	if e.store == nil {
		return Fail(NewDispatchError("no session store configured"))
	}
	slot, err := e.text(args)
	if err != nil {
		return Fail(err)
	}
	snap, err := e.store.Load(slot)
	if err != nil {
		return Fail(NewDispatchError("cannot load %s: %v", slot, err))
	}
	e.Restore(snap)
	e.write(fmt.Sprintf("Loaded session %s", slot))
	return Continue()
}

// Snapshot captures the variable store and the turtle.
func (e *Engine) Snapshot() session.Snapshot {
	vars := make(map[string]any, len(e.state.Vars))
	for k, v := range e.state.Vars {
		vars[k] = v.Interface()
	}
	t := e.state.Turtle
	return session.Snapshot{
		Variables:     vars,
		TurtleX:       t.X,
		TurtleY:       t.Y,
		TurtleHeading: t.Heading,
		PenDown:       t.PenDown,
		PenColor:      t.Color,
		PenWidth:      t.Width,
	}
}

// Restore merges snap into the variable store and replaces the turtle
// pose and pen.
func (e *Engine) Restore(snap session.Snapshot) {
	names := make([]string, 0, len(snap.Variables))
	for k := range snap.Variables {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		v, ok := expr.FromInterface(snap.Variables[k])
		if !ok {
			e.log.Warn("skipping session variable", "name", k)
			continue
		}
		e.setVar(k, v)
	}
	t := e.state.Turtle
	t.SetPosition(snap.TurtleX, snap.TurtleY)
	t.SetHeading(snap.TurtleHeading)
	t.PenDown = snap.PenDown
	if snap.PenColor != "" {
		t.Color = snap.PenColor
	}
	t.SetWidth(snap.PenWidth)
	e.showTurtle()
}

func extNew(e *Engine, args string) Result {
	parts := strArgs(e, args, 2)
	if parts == nil {
		return Fail(NewDispatchError(`R: NEW expects "name","path"`))
	}
	e.defineSprite(parts[0], parts[1])
	return Continue()
}

func extPos(e *Engine, args string) Result {
	parts := splitList(args)
	if len(parts) != 3 {
		return Fail(NewDispatchError(`R: POS expects "name",x,y`))
	}
	name, err := e.text(parts[0])
	if err != nil {
		return Fail(err)
	}
	x, err := e.number(parts[1])
	if err != nil {
		return Fail(err)
	}
	y, err := e.number(parts[2])
	if err != nil {
		return Fail(err)
	}
	return e.moveSprite(name, x, y)
}

// extTween handles VAR -> end IN ms [EASE name]. The tween starts from the
// variable's current numeric value.
func extTween(e *Engine, args string) Result {
	m := tweenPattern.FindStringSubmatch(args)
	if m == nil {
		return Fail(NewDispatchError("R: TWEEN expects VAR -> end IN ms [EASE name]"))
	}
	end, err := e.number(m[2])
	if err != nil {
		return Fail(err)
	}
	ms, err := e.number(m[3])
	if err != nil {
		return Fail(err)
	}
	easing := ""
	if m[4] != "" {
		if easing, err = e.text(strings.TrimSpace(m[4])); err != nil {
			return Fail(err)
		}
	}
	name := normalizeName(m[1])
	start := 0.0
	if v, ok := e.state.Vars[name]; ok {
		if f, ok := v.AsNumber(); ok {
			start = f
		}
	}
	e.ticks.AddTween(name, start, end, durationMS(ms), easing)
	return Continue()
}

func extAfter(e *Engine, args string) Result {
	m := afterPattern.FindStringSubmatch(args)
	if m == nil {
		return Fail(NewDispatchError("R: AFTER expects ms DO label"))
	}
	ms, err := e.number(m[1])
	if err != nil {
		return Fail(err)
	}
	e.ticks.AddTimer(durationMS(ms), strings.TrimPrefix(m[2], "*"))
	return Continue()
}

// extEmit handles "name",x,y,count,life,speed. A name that is a colour
// tints the particles.
func extEmit(e *Engine, args string) Result {
	parts := splitList(args)
	if len(parts) != 6 {
		return Fail(NewDispatchError(`R: EMIT expects "name",x,y,count,life,speed`))
	}
	name, err := e.text(parts[0])
	if err != nil {
		return Fail(err)
	}
	nums := make([]float64, 5)
	for i, p := range parts[1:] {
		if nums[i], err = e.number(p); err != nil {
			return Fail(err)
		}
	}
	color := tick.DefaultParticleColor
	if canvas.IsColor(name) {
		color = name
	}
	e.ticks.Emit(nums[0], nums[1], int(nums[2]), durationMS(nums[3]), nums[4], color, tick.DefaultParticleSize)
	return Continue()
}

func extSnap(e *Engine, args string) Result {
	return logoSnapshot(e, &Command{Args: args})
}

// extHardware forwards "<action> [args] [-> VAR]" to the hardware sink.
func extHardware(device string) extension {
	return func(e *Engine, args string) Result {
		target := ""
		if i := strings.Index(args, "->"); i >= 0 {
			target = strings.TrimSpace(args[i+2:])
			args = args[:i]
			if !isIdentifier(target) {
				return Fail(NewDispatchError("invalid variable name: %s", target))
			}
		}
		fields := strings.Fields(strings.ReplaceAll(args, ",", " "))
		if len(fields) == 0 {
			return Fail(NewDispatchError("R: %s expects an action", strings.ToUpper(device)))
		}
		if e.hw == nil {
			return Fail(NewDispatchError("no hardware attached"))
		}
		params := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			s, err := e.text(f)
			if err != nil {
				return Fail(err)
			}
			params = append(params, s)
		}
		result, err := e.hw.Request(device, strings.ToUpper(fields[0]), params)
		if err != nil {
			return Fail(NewDispatchError("%s %s: %v", device, fields[0], err))
		}
		if target != "" {
			e.setVar(target, expr.ParseLiteral(result))
		}
		return Continue()
	}
}

// strArgs evaluates exactly n comma separated text arguments, or returns
// nil.
func strArgs(e *Engine, s string, n int) []string {
	parts := splitList(s)
	if len(parts) != n {
		return nil
	}
	out := make([]string, n)
	for i, p := range parts {
		v, err := e.text(p)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return out
}

func durationMS(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
