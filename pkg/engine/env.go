package engine

import (
	"time"

	"github.com/zurustar/templecode/pkg/expr"
)

// env exposes the variable store, RNG and clock to the evaluator.
type env struct {
	e *Engine
}

func (v *env) Lookup(name string) (expr.Value, bool) {
	return v.e.state.Variable(name)
}

func (v *env) Random() float64 { return v.e.rng.Float64() }

func (v *env) Elapsed() time.Duration { return v.e.clock().Sub(v.e.start) }

// evaluate runs src through the cached evaluator.
func (e *Engine) evaluate(src string) (expr.Value, error) {
	v, err := e.eval.Evaluate(src, e.env)
	if err != nil {
		return expr.Value{}, NewExpressionError(src, err)
	}
	return v, nil
}

// number evaluates src and requires a numeric result.
func (e *Engine) number(src string) (float64, error) {
	v, err := e.evaluate(src)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsNumber()
	if !ok {
		return 0, NewDispatchError("expected a number: %s", src)
	}
	return f, nil
}

// text evaluates src for its string form. Bare words that are not
// variables are taken literally.
func (e *Engine) text(src string) (string, error) {
	if s, ok := unquoteWhole(src); ok {
		return s, nil
	}
	v, err := e.evaluate(src)
	if err != nil {
		if isIdentifier(src) && ExpressionKind(err) == expr.ErrUndefinedVar {
			return src, nil
		}
		return "", err
	}
	return v.String(), nil
}

// sequence evaluates a Logo argument list. Undefined bare words become
// strings so that names and colours can be written without quotes.
func (e *Engine) sequence(src string) ([]expr.Value, error) {
	nodes, err := expr.ParseSequence(src)
	if err != nil {
		return nil, NewExpressionError(src, err)
	}
	out := make([]expr.Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := n.Eval(e.env)
		if err != nil {
			if ident, ok := n.(*expr.Ident); ok && expr.KindOf(err) == expr.ErrUndefinedVar {
				out = append(out, expr.Str(ident.Name))
				continue
			}
			return nil, NewExpressionError(n.String(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// numbers evaluates a Logo argument list that must be all numeric.
func (e *Engine) numbers(src string, minArgs, maxArgs int) ([]float64, error) {
	vals, err := e.sequence(src)
	if err != nil {
		return nil, err
	}
	if len(vals) < minArgs || len(vals) > maxArgs {
		return nil, NewDispatchError("expected %s, got %d: %s", argCount(minArgs, maxArgs), len(vals), src)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, ok := v.AsNumber()
		if !ok {
			return nil, NewDispatchError("expected a number, got %q", v.String())
		}
		out[i] = f
	}
	return out, nil
}
