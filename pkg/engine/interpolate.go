package engine

import (
	"fmt"
	"strings"

	"github.com/zurustar/templecode/pkg/program"
)

// interpolate replaces every *tok* in s. A token is replaced when it names
// a variable, or when it contains an operator and evaluates. Otherwise the
// opening '*' stays and scanning resumes at the closing one.
func (e *Engine) interpolate(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '*' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := strings.IndexByte(s[i+1:], '*')
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		closing := i + 1 + j
		if text, ok := e.interpolateToken(s[i+1 : closing]); ok {
			b.WriteString(text)
			i = closing + 1
			continue
		}
		b.WriteString(s[i:closing])
		i = closing
	}
	return b.String()
}

func (e *Engine) interpolateToken(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", false
	}
	if isIdentifier(tok) {
		if v, ok := e.state.Variable(tok); ok {
			return v.String(), true
		}
		return "", false
	}
	if !strings.ContainsAny(tok, "+-/%()<>=!") {
		return "", false
	}
	v, err := e.eval.Evaluate(tok, e.env)
	if err != nil {
		return "", false
	}
	return v.String(), true
}

// unquoteWhole reports the contents of s when s is exactly one quoted
// string.
func unquoteWhole(s string) (string, bool) {
	s = strings.TrimSpace(s)
	inner, ok := program.Unquote(s)
	if !ok || strings.ContainsRune(inner, rune(s[0])) {
		return "", false
	}
	return inner, true
}

// splitList splits a comma separated operand list.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := program.SplitArgs(s, ',')
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func argCount(minArgs, maxArgs int) string {
	switch {
	case minArgs == maxArgs && minArgs == 1:
		return "1 argument"
	case minArgs == maxArgs:
		return fmt.Sprintf("%d arguments", minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", minArgs, maxArgs)
}
