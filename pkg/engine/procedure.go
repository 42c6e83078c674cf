package engine

import (
	"maps"
)

// procedureKeyword is the handler key for calls to user procedures. It
// cannot be written as a command word.
const procedureKeyword = "(call)"

// callProcedure runs a TO ... END procedure. Parameters are bound over a
// copy of the whole store and the store is restored afterwards, so
// parameters are visible to every procedure the body calls. A body cannot
// jump, so GOSUB or FOR entries it pushes never outlive the call.
func callProcedure(e *Engine, c *Command) Result {
	word, rest := firstWord(c.Args)
	proc, ok := e.prog.Procedure(word)
	if !ok {
		return Fail(NewDispatchError("Unknown procedure: %s", word))
	}
	vals, err := e.sequence(rest)
	if err != nil {
		return Fail(err)
	}
	if len(vals) != len(proc.Params) {
		return Fail(NewDispatchError("%s expects %d arguments, got %d", proc.Name, len(proc.Params), len(vals)))
	}
	if e.state.Depth >= e.maxDepth {
		return Fail(NewDispatchError("maximum procedure depth exceeded (%d) in %s", e.maxDepth, proc.Name))
	}

	saved := maps.Clone(e.state.Vars)
	for i, p := range proc.Params {
		e.state.Vars[normalizeName(p)] = vals[i]
	}
	entry := e.state.mark()
	e.state.Depth++
	defer func() {
		e.state.Depth--
		e.state.Vars = saved
		e.state.trim(entry)
	}()

	for _, cmd := range proc.Body {
		mark := e.state.mark()
		res := e.exec(cmd)
		switch res.Kind {
		case ResultContinue:
		case ResultFail:
			e.fault(res.Err)
		case ResultJump:
			e.state.unwind(mark)
			e.fault(NewControlFlowError("jump inside procedure %s ignored", proc.Name))
		default:
			return res
		}
	}
	return Continue()
}
