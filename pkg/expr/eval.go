package expr

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Env supplies variables and the host services RND and TIMER read.
type Env interface {
	Lookup(name string) (Value, bool)
	Random() float64
	Elapsed() time.Duration
}

// MapEnv is a simple Env backed by a map.
type MapEnv struct {
	Vars  map[string]Value
	Rand  *rand.Rand
	Start time.Time
}

// NewMapEnv returns a MapEnv over vars with a fixed-seed RNG.
func NewMapEnv(vars map[string]Value) *MapEnv {
	if vars == nil {
		vars = map[string]Value{}
	}
	return &MapEnv{Vars: vars, Rand: rand.New(rand.NewSource(1)), Start: time.Now()}
}

func (m *MapEnv) Lookup(name string) (Value, bool) {
	v, ok := m.Vars[name]
	return v, ok
}

func (m *MapEnv) Random() float64 { return m.Rand.Float64() }

func (m *MapEnv) Elapsed() time.Duration { return time.Since(m.Start) }

// Evaluate parses and evaluates src against env.
func Evaluate(src string, env Env) (Value, error) {
	node, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return node.Eval(env)
}

// Evaluator caches parsed expressions by source text. Not safe for
// concurrent use.
type Evaluator struct {
	cache map[string]Node
	limit int
}

// NewEvaluator returns an Evaluator holding at most limit parsed entries.
func NewEvaluator(limit int) *Evaluator {
	if limit <= 0 {
		limit = 1024
	}
	return &Evaluator{cache: make(map[string]Node), limit: limit}
}

// Evaluate parses src (or reuses the cached AST) and evaluates it.
func (ev *Evaluator) Evaluate(src string, env Env) (Value, error) {
	src = strings.TrimSpace(src)
	node, ok := ev.cache[src]
	if !ok {
		var err error
		node, err = Parse(src)
		if err != nil {
			return Value{}, err
		}
		if len(ev.cache) >= ev.limit {
			clear(ev.cache)
		}
		ev.cache[src] = node
	}
	return node.Eval(env)
}

func (n *NumberLit) Eval(Env) (Value, error) { return Num(n.Value), nil }

func (n *StringLit) Eval(Env) (Value, error) { return Str(n.Value), nil }

func (n *Ident) Eval(env Env) (Value, error) {
	if v, ok := env.Lookup(n.Name); ok {
		return v, nil
	}
	// RND and TIMER may be written without parentheses
	if fn, ok := functions[strings.ToUpper(n.Name)]; ok && fn.minArgs == 0 {
		return fn.call(env, nil, n.Pos)
	}
	return Value{}, newError(ErrUndefinedVar, n.Pos, "undefined variable %s", n.Name)
}

func (n *Unary) Eval(env Env) (Value, error) {
	right, err := n.Right.Eval(env)
	if err != nil {
		return Value{}, err
	}
	f, ok := right.Number()
	if !ok {
		return Value{}, newError(ErrTypeMismatch, -1, "bad operand type for unary %s: %s", n.Operator, right.Kind())
	}
	if n.Operator == "-" {
		return Num(-f), nil
	}
	return Num(f), nil
}

func (n *Binary) Eval(env Env) (Value, error) {
	left, err := n.Left.Eval(env)
	if err != nil {
		return Value{}, err
	}
	right, err := n.Right.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return arithmetic(n.Operator, left, right, n.Pos)
}

func arithmetic(op string, left, right Value, pos int) (Value, error) {
	if left.IsString() || right.IsString() {
		switch {
		case op == "+" && left.IsString() && right.IsString():
			return Str(left.str + right.str), nil
		case op == "*" && left.IsString() && right.IsNumber():
			return repeat(left.str, right.num, pos)
		case op == "*" && left.IsNumber() && right.IsString():
			return repeat(right.str, left.num, pos)
		}
		return Value{}, newError(ErrTypeMismatch, pos, "unsupported operand types for %s: %s and %s", op, left.Kind(), right.Kind())
	}

	a, b := left.num, right.num
	switch op {
	case "+":
		return Num(a + b), nil
	case "-":
		return Num(a - b), nil
	case "*":
		return Num(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, pos, "division by zero")
		}
		return Num(a / b), nil
	case "//":
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, pos, "integer division by zero")
		}
		return Num(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, pos, "modulo by zero")
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Num(m), nil
	case "**":
		if a == 0 && b < 0 {
			return Value{}, newError(ErrDivisionByZero, pos, "zero cannot be raised to a negative power")
		}
		r := math.Pow(a, b)
		if math.IsNaN(r) {
			return Value{}, newError(ErrDomain, pos, "math domain error")
		}
		return Num(r), nil
	}
	return Value{}, newError(ErrSyntax, pos, "unknown operator %s", op)
}

// MaxStringLen bounds strings built by repetition.
const MaxStringLen = 1 << 20

func repeat(s string, n float64, pos int) (Value, error) {
	if n <= 0 || math.IsNaN(n) || s == "" {
		return Str(""), nil
	}
	if n > float64(MaxStringLen/len(s)) {
		return Value{}, newError(ErrDomain, pos, "string too long (limit %d characters)", MaxStringLen)
	}
	return Str(strings.Repeat(s, int(n))), nil
}

func (n *Compare) Eval(env Env) (Value, error) {
	left, err := n.Operands[0].Eval(env)
	if err != nil {
		return Value{}, err
	}
	for i, op := range n.Operators {
		right, err := n.Operands[i+1].Eval(env)
		if err != nil {
			return Value{}, err
		}
		ok, err := compare(op, left, right, n.Pos)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Bool(false), nil
		}
		left = right
	}
	return Bool(true), nil
}

func compare(op string, a, b Value, pos int) (bool, error) {
	switch op {
	case "==":
		return a.Equal(b), nil
	case "!=":
		return !a.Equal(b), nil
	}
	if a.Kind() != b.Kind() {
		return false, newError(ErrTypeMismatch, pos, "'%s' not supported between %s and %s", op, a.Kind(), b.Kind())
	}
	var c int
	if a.IsString() {
		c = strings.Compare(a.str, b.str)
	} else {
		switch {
		case a.num < b.num:
			c = -1
		case a.num > b.num:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, newError(ErrSyntax, pos, "unknown comparison %s", op)
}

func (n *Logical) Eval(env Env) (Value, error) {
	left, err := n.Left.Eval(env)
	if err != nil {
		return Value{}, err
	}
	if n.Operator == "and" && !left.Truthy() {
		return Bool(false), nil
	}
	if n.Operator == "or" && left.Truthy() {
		return Bool(true), nil
	}
	right, err := n.Right.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return Bool(right.Truthy()), nil
}

func (n *Not) Eval(env Env) (Value, error) {
	v, err := n.Right.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return Bool(!v.Truthy()), nil
}

func (n *Call) Eval(env Env) (Value, error) {
	fn, ok := functions[n.Name]
	if !ok {
		return Value{}, newError(ErrUnknownFunction, n.Pos, "function %s is not allowed", n.Name)
	}
	args := make([]Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := a.Eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return fn.call(env, args, n.Pos)
}
