package engine

import (
	"fmt"
	"strings"

	"github.com/zurustar/templecode/pkg/expr"
)

func registerPILOT() {
	register(PILOT, pilotType, "T")
	register(PILOT, pilotAccept, "A")
	register(PILOT, pilotMatch, "Y", "N")
	register(PILOT, pilotJump, "J")
	register(PILOT, pilotJumpIfMatch, "M")
	register(PILOT, pilotTypeIf(true), "MT", "TY")
	register(PILOT, pilotTypeIf(false), "TN")
	register(PILOT, pilotUse, "U")
	register(PILOT, pilotCompute, "C")
	register(PILOT, pilotLabel, "L")
	register(PILOT, pilotEnd, "E")
	register(PILOT, pilotExtension, "R")
}

func pilotType(e *Engine, c *Command) Result {
	e.write(e.interpolate(c.Args))
	return Continue()
}

func pilotTypeIf(want bool) Handler {
	return func(e *Engine, c *Command) Result {
		if e.state.Match == want {
			e.write(e.interpolate(c.Args))
		}
		return Continue()
	}
}

// pilotAccept reads one value. Without a variable name the answer is
// stored in ANSWER.
func pilotAccept(e *Engine, c *Command) Result {
	name := strings.TrimSpace(c.Args)
	if name == "" {
		name = "ANSWER"
	}
	if !isIdentifier(strings.TrimPrefix(name, ":")) {
		return Fail(NewDispatchError("invalid variable name: %s", name))
	}
	return e.input(name+"? ", name)
}

// input requests a value and stores it, numeric text as a Number.
func (e *Engine) input(prompt, name string) Result {
	answer, err := e.in.Request(prompt)
	if err != nil {
		e.log.Error("input failed", "prompt", prompt, "error", err)
		return Result{Kind: ResultAbort, Err: fmt.Errorf("%w: %v", ErrInputFailed, err)}
	}
	e.setVar(name, expr.ParseLiteral(strings.TrimSpace(answer)))
	return Continue()
}

// pilotMatch implements Y: and N:. Both set the flag to the truth of the
// condition.
func pilotMatch(e *Engine, c *Command) Result {
	e.state.Pending = PendingConsumeByTextOrJump
	ok, err := e.condition(c.Args)
	if err != nil {
		e.state.Match = false
		return Fail(err)
	}
	e.state.Match = ok
	return Continue()
}

func pilotJump(e *Engine, c *Command) Result {
	return e.jump(c.Args)
}

func pilotJumpIfMatch(e *Engine, c *Command) Result {
	if !e.state.Match {
		return Continue()
	}
	return e.jump(c.Args)
}

func pilotUse(e *Engine, c *Command) Result {
	return e.assign(c.Args)
}

// pilotCompute assigns, or returns from a subroutine when there is no '='.
func pilotCompute(e *Engine, c *Command) Result {
	if strings.Contains(c.Args, "=") {
		return e.assign(c.Args)
	}
	return e.ret()
}

func pilotLabel(*Engine, *Command) Result { return Continue() }

func pilotEnd(*Engine, *Command) Result { return End() }

// assign handles "name = expr". A quoted right side is stored as text; a
// right side that does not parse or names unknown variables is stored
// literally.
func (e *Engine) assign(s string) Result {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return Fail(NewDispatchError("expected assignment: %s", s))
	}
	name := strings.TrimPrefix(strings.TrimSpace(s[:eq]), ":")
	rhs := strings.TrimSpace(s[eq+1:])
	if !isIdentifier(name) {
		return Fail(NewDispatchError("invalid variable name: %s", name))
	}
	if text, ok := unquoteWhole(rhs); ok {
		e.setVar(name, expr.Str(text))
		return Continue()
	}
	v, err := e.evaluate(rhs)
	if err != nil {
		switch ExpressionKind(err) {
		case expr.ErrUndefinedVar, expr.ErrSyntax:
			e.setVar(name, expr.Str(rhs))
			return Continue()
		}
		return Fail(err)
	}
	e.setVar(name, v)
	return Continue()
}

// jump resolves a label. Unknown labels report once and do not move.
func (e *Engine) jump(label string) Result {
	label = strings.TrimPrefix(strings.TrimSpace(label), "*")
	idx, ok := e.prog.ResolveLabel(label)
	if !ok {
		return Fail(NewControlFlowError("Label not found: %s", label))
	}
	return Jump(idx)
}

// gosub pushes the return address and jumps.
func (e *Engine) gosub(label string) Result {
	res := e.jump(label)
	if res.Kind != ResultJump {
		return res
	}
	e.state.Returns = append(e.state.Returns, e.state.Current+1)
	return res
}

// ret pops the return stack. An empty stack is a no-op with one
// diagnostic.
func (e *Engine) ret() Result {
	n := len(e.state.Returns)
	if n == 0 {
		return Fail(NewControlFlowError("RETURN without GOSUB"))
	}
	addr := e.state.Returns[n-1]
	e.state.Returns = e.state.Returns[:n-1]
	return Jump(addr)
}
