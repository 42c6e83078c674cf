package program

import "strings"

// SplitArgs splits s on sep wherever sep is outside double quotes,
// parentheses and square brackets.
func SplitArgs(s string, sep rune) []string {
	var (
		parts []string
		depth int
		quote bool
		start int
	)
	for i, r := range s {
		switch {
		case r == '"':
			quote = !quote
		case quote:
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + len(string(r))
		}
	}
	return append(parts, s[start:])
}

// Unquote strips one pair of surrounding double or single quotes.
func Unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return s, false
}
