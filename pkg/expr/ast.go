package expr

import (
	"strings"
)

// Node is an expression AST node.
type Node interface {
	Eval(env Env) (Value, error)
	String() string
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value float64
}

func (n *NumberLit) String() string { return FormatNumber(n.Value) }

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

func (n *StringLit) String() string { return `"` + n.Value + `"` }

// Ident is a variable reference.
type Ident struct {
	Name string
	Pos  int
}

func (n *Ident) String() string { return n.Name }

// Unary is a prefix +x or -x.
type Unary struct {
	Operator string
	Right    Node
}

func (n *Unary) String() string { return "(" + n.Operator + n.Right.String() + ")" }

// Binary is an arithmetic infix expression.
type Binary struct {
	Operator string
	Left     Node
	Right    Node
	Pos      int
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

// Compare is a comparison chain: a < b <= c means a<b and b<=c.
type Compare struct {
	Operands  []Node
	Operators []string
	Pos       int
}

func (n *Compare) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, op := range n.Operands {
		if i > 0 {
			b.WriteString(" " + n.Operators[i-1] + " ")
		}
		b.WriteString(op.String())
	}
	b.WriteString(")")
	return b.String()
}

// Logical is a short-circuit and/or.
type Logical struct {
	Operator string // "and" or "or"
	Left     Node
	Right    Node
}

func (n *Logical) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

// Not is boolean negation.
type Not struct {
	Right Node
}

func (n *Not) String() string { return "(not " + n.Right.String() + ")" }

// Call is a call of a whitelisted function.
type Call struct {
	Name      string // upper-cased
	Arguments []Node
	Pos       int
}

func (n *Call) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}
