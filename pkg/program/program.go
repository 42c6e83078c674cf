// Package program turns TempleCode source text into an indexed line
// sequence with label, procedure, line-number and DATA tables.
package program

import (
	"fmt"
	"strings"

	"github.com/zurustar/templecode/pkg/expr"
)

// LineKind classifies a physical line. Only Statement lines are dispatched.
type LineKind int

const (
	Statement LineKind = iota
	Label
	Blank
	ProcedureHeader
	ProcedureBody
	Continuation
	Inert
)

func (k LineKind) String() string {
	switch k {
	case Statement:
		return "statement"
	case Label:
		return "label"
	case Blank:
		return "blank"
	case ProcedureHeader:
		return "procedure-header"
	case ProcedureBody:
		return "procedure-body"
	case Continuation:
		return "continuation"
	case Inert:
		return "inert"
	}
	return "unknown"
}

// Line is one physical source line.
type Line struct {
	Index     int
	Number    int // BASIC line number when HasNumber
	HasNumber bool
	Text      string
	Kind      LineKind
}

// Procedure is a Logo TO ... END definition.
type Procedure struct {
	Name   string
	Params []string // without the leading ':'
	Body   []string // flattened commands
	Index  int      // header line
}

// Warning is a recoverable load problem.
type Warning struct {
	Index   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Index+1, w.Message)
}

// Program is the immutable result of Load.
type Program struct {
	Lines       []Line
	Labels      map[string]int
	Procedures  map[string]*Procedure // keyed by upper-case name
	LineNumbers map[int]int
	Data        []expr.Value
	Warnings    []Warning
}

// ResolveLabel returns the line index of a label. Labels are
// case-sensitive.
func (p *Program) ResolveLabel(name string) (int, bool) {
	idx, ok := p.Labels[name]
	return idx, ok
}

// ResolveLineNumber returns the index of a BASIC line number.
func (p *Program) ResolveLineNumber(n int) (int, bool) {
	idx, ok := p.LineNumbers[n]
	return idx, ok
}

// Procedure looks a procedure up by name, ignoring case.
func (p *Program) Procedure(name string) (*Procedure, bool) {
	proc, ok := p.Procedures[strings.ToUpper(name)]
	return proc, ok
}

// Len returns the number of lines.
func (p *Program) Len() int { return len(p.Lines) }

// Empty returns a program with no lines.
func Empty() *Program {
	return Load("")
}
