package program

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zurustar/templecode/pkg/expr"
)

// Load parses source text. It never fails: malformed constructs become
// inert lines and are listed in Warnings. Load is pure, so identical input
// always yields an identical Program.
func Load(text string) *Program {
	p := &Program{
		Labels:      make(map[string]int),
		Procedures:  make(map[string]*Procedure),
		LineNumbers: make(map[int]int),
	}
	if text == "" {
		return p
	}

	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	p.Lines = make([]Line, len(raw))
	for i, r := range raw {
		line := Line{Index: i}
		line.Text, line.Number, line.HasNumber = stripLineNumber(strings.TrimRightFunc(r, unicode.IsSpace))
		if line.HasNumber {
			p.LineNumbers[line.Number] = i
		}
		if line.Text == "" {
			line.Kind = Blank
		}
		p.Lines[i] = line
	}

	for i := 0; i < len(p.Lines); i++ {
		line := &p.Lines[i]
		if line.Kind == Blank {
			continue
		}
		switch {
		case isProcedureHeader(line.Text):
			i = p.loadProcedure(i)
		case strings.HasPrefix(line.Text, "*"):
			p.defineLabel(i, line.Text[1:], Label)
		case len(line.Text) >= 2 && strings.EqualFold(line.Text[:2], "L:"):
			p.defineLabel(i, line.Text[2:], Statement)
		default:
			line.Kind = Statement
			i = p.flatten(i)
			if isData(line.Text) {
				p.Data = append(p.Data, parseData(line.Text[4:])...)
			}
		}
	}
	return p
}

func (p *Program) warn(i int, format string, args ...any) {
	p.Warnings = append(p.Warnings, Warning{Index: i, Message: fmt.Sprintf(format, args...)})
}

func (p *Program) defineLabel(i int, name string, kind LineKind) {
	name = strings.TrimSpace(name)
	if name == "" {
		p.warn(i, "label without a name")
		p.Lines[i].Kind = Inert
		return
	}
	if prev, ok := p.Labels[name]; ok {
		p.warn(i, "duplicate label %s (first defined at line %d)", name, prev+1)
	}
	p.Labels[name] = i
	p.Lines[i].Kind = kind
}

// flatten joins a line holding an unbalanced '[' with the following lines
// until the brackets balance, and returns the index of the last line used.
func (p *Program) flatten(i int) int {
	depth := bracketDepth(p.Lines[i].Text)
	if depth <= 0 {
		return i
	}
	parts := []string{p.Lines[i].Text}
	j := i + 1
	for ; j < len(p.Lines) && depth > 0; j++ {
		t := strings.TrimSpace(p.Lines[j].Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
		depth += bracketDepth(t)
	}
	if depth > 0 {
		p.warn(i, "unbalanced '[': block is never closed")
		return i
	}
	p.Lines[i].Text = strings.Join(parts, " ")
	for k := i + 1; k < j; k++ {
		p.Lines[k].Kind = Continuation
	}
	return j - 1
}

// loadProcedure records the TO block starting at i and returns the index
// of its terminating END (or the last line when END is missing).
func (p *Program) loadProcedure(i int) int {
	fields := strings.Fields(p.Lines[i].Text)
	if len(fields) < 2 {
		p.warn(i, "procedure header without a name")
		p.Lines[i].Kind = Inert
		return i
	}

	proc := &Procedure{Name: fields[1], Index: i}
	for _, f := range fields[2:] {
		proc.Params = append(proc.Params, strings.TrimPrefix(f, ":"))
	}
	p.Lines[i].Kind = ProcedureHeader

	j := i + 1
	closed := false
	var pending []string
	depth := 0
	for ; j < len(p.Lines); j++ {
		t := strings.TrimSpace(p.Lines[j].Text)
		p.Lines[j].Kind = ProcedureBody
		if depth == 0 && strings.EqualFold(t, "END") {
			closed = true
			break
		}
		if t == "" {
			continue
		}
		pending = append(pending, t)
		depth += bracketDepth(t)
		if depth <= 0 {
			proc.Body = append(proc.Body, strings.Join(pending, " "))
			pending, depth = nil, 0
		}
	}
	if len(pending) > 0 {
		p.warn(i, "unbalanced '[' in procedure %s", proc.Name)
		proc.Body = append(proc.Body, pending...)
	}
	if !closed {
		p.warn(i, "procedure %s has no END", proc.Name)
		j = len(p.Lines) - 1
	}

	key := strings.ToUpper(proc.Name)
	if _, dup := p.Procedures[key]; dup {
		p.warn(i, "procedure %s redefined", proc.Name)
	}
	p.Procedures[key] = proc
	return j
}

func isProcedureHeader(text string) bool {
	if len(text) < 2 || !strings.EqualFold(text[:2], "TO") {
		return false
	}
	return len(text) == 2 || text[2] == ' ' || text[2] == '\t'
}

func isData(text string) bool {
	return len(text) >= 4 && strings.EqualFold(text[:4], "DATA") &&
		(len(text) == 4 || text[4] == ' ' || text[4] == '\t')
}

// parseData splits a DATA item list on commas outside quotes.
func parseData(s string) []expr.Value {
	var out []expr.Value
	for _, item := range SplitArgs(s, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if unq, ok := Unquote(item); ok {
			out = append(out, expr.Str(unq))
			continue
		}
		out = append(out, expr.ParseLiteral(item))
	}
	return out
}

func stripLineNumber(s string) (text string, num int, ok bool) {
	t := strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
	}
	if end == 0 || (end < len(t) && t[end] != ' ' && t[end] != '\t') {
		return strings.TrimSpace(s), 0, false
	}
	n, err := strconv.Atoi(t[:end])
	if err != nil {
		return strings.TrimSpace(s), 0, false
	}
	return strings.TrimSpace(t[end:]), n, true
}

func bracketDepth(s string) int {
	d := 0
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"':
			quote = r
		case r == '[':
			d++
		case r == ']':
			d--
		}
	}
	return d
}
