package engine

import (
	"strings"
	"time"
)

// ResultKind tells the run loop what to do after a command.
type ResultKind int

const (
	ResultContinue ResultKind = iota
	ResultJump
	ResultEnd
	ResultFail
	ResultAbort // irrecoverable host failure, finishes with StatusError
)

// Result is returned by every handler.
type Result struct {
	Kind   ResultKind
	Target int
	Err    error
}

// Continue advances to the next line.
func Continue() Result { return Result{Kind: ResultContinue} }

// Jump transfers control to a line index.
func Jump(target int) Result { return Result{Kind: ResultJump, Target: target} }

// End finishes the program.
func End() Result { return Result{Kind: ResultEnd} }

// Fail reports err and continues with the next line.
func Fail(err error) Result { return Result{Kind: ResultFail, Err: err} }

// Dialect identifies one of the three command languages.
type Dialect int

const (
	PILOT Dialect = iota
	BASIC
	Logo
)

func (d Dialect) String() string {
	switch d {
	case PILOT:
		return "PILOT"
	case BASIC:
		return "BASIC"
	case Logo:
		return "Logo"
	}
	return "unknown"
}

// CommandKey identifies a handler.
type CommandKey struct {
	Dialect Dialect
	Keyword string
}

// ConsumingCommands are the commands that consume an armed Y:/N:
// sentinel and run only when the match flag is set.
var ConsumingCommands = map[CommandKey]bool{
	{PILOT, "T"}: true,
	{PILOT, "J"}: true,
}

// Command is a resolved line.
type Command struct {
	Dialect Dialect
	Keyword string // upper case
	Cond    string // PILOT conditioner without parentheses
	Args    string // text after the keyword or colon
	Text    string // whole command
}

// Handler executes one command.
type Handler func(e *Engine, c *Command) Result

var handlers map[CommandKey]Handler

func register(d Dialect, h Handler, keywords ...string) {
	for _, k := range keywords {
		handlers[CommandKey{d, k}] = h
	}
}

func init() {
	handlers = make(map[CommandKey]Handler)
	registerPILOT()
	registerBASIC()
	registerLogo()
}

// IsKeyword reports whether word is a BASIC or Logo keyword.
func IsKeyword(word string) bool {
	word = strings.ToUpper(word)
	_, basic := handlers[CommandKey{BASIC, word}]
	_, logo := handlers[CommandKey{Logo, word}]
	return basic || logo
}

// exec resolves and runs one command.
func (e *Engine) exec(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Continue()
	}
	c, err := e.resolve(text)
	if err != nil {
		return Fail(err)
	}

	if c.Cond != "" {
		ok, err := e.condition(c.Cond)
		if err != nil {
			e.fault(err)
			return Continue()
		}
		if !ok {
			return Continue()
		}
	}

	key := CommandKey{c.Dialect, c.Keyword}
	if ConsumingCommands[key] && e.state.Pending == PendingConsumeByTextOrJump {
		e.state.Pending = PendingNone
		if !e.state.Match {
			return Continue()
		}
	}

	h, ok := handlers[key]
	if !ok {
		return Fail(NewDispatchError("Unknown command: %s", text))
	}
	e.log.Debug("dispatch", "dialect", c.Dialect.String(), "keyword", c.Keyword, "line", e.state.Current+1)

	if !e.profile.enabled {
		return h(e, c)
	}
	began := e.clock()
	res := h(e, c)
	e.profile.record(c.Dialect.String()+" "+c.Keyword, e.clock().Sub(began))
	return res
}

// resolve classifies text by its syntactic shape.
func (e *Engine) resolve(text string) (*Command, error) {
	if kw, cond, args, ok := splitPILOT(text); ok {
		return &Command{Dialect: PILOT, Keyword: kw, Cond: cond, Args: args, Text: text}, nil
	}
	if strings.HasPrefix(text, "'") {
		return &Command{Dialect: BASIC, Keyword: "REM", Args: text[1:], Text: text}, nil
	}

	word, rest := firstWord(text)
	upper := strings.ToUpper(word)
	if _, ok := handlers[CommandKey{BASIC, upper}]; ok {
		return &Command{Dialect: BASIC, Keyword: upper, Args: rest, Text: text}, nil
	}
	if _, ok := handlers[CommandKey{Logo, upper}]; ok {
		return &Command{Dialect: Logo, Keyword: upper, Args: rest, Text: text}, nil
	}
	if name, _, ok := splitAssignment(text); ok && !IsKeyword(name) {
		return &Command{Dialect: BASIC, Keyword: "LET", Args: text, Text: text}, nil
	}
	if _, ok := e.prog.Procedure(word); ok {
		return &Command{Dialect: Logo, Keyword: procedureKeyword, Args: text, Text: text}, nil
	}
	if _, ok := e.state.Macros[upper]; ok {
		return &Command{Dialect: Logo, Keyword: "CALL", Args: word, Text: text}, nil
	}
	if upper == "END" || upper == "E" {
		return &Command{Dialect: PILOT, Keyword: "E", Text: text}, nil
	}
	return nil, NewDispatchError("Unknown command: %s", text)
}

// splitPILOT recognises "X:", "XY:" and "X(cond):" prefixes.
func splitPILOT(text string) (kw, cond, args string, ok bool) {
	i := 0
	for i < len(text) && i < 4 && isASCIILetter(text[i]) {
		i++
	}
	if i == 0 || i > 3 || i >= len(text) {
		return "", "", "", false
	}
	kw = strings.ToUpper(text[:i])
	if text[i] == '(' {
		end := matchParen(text, i)
		if end < 0 {
			return "", "", "", false
		}
		cond = strings.TrimSpace(text[i+1 : end])
		i = end + 1
	}
	if i >= len(text) || text[i] != ':' {
		return "", "", "", false
	}
	return kw, cond, strings.TrimSpace(text[i+1:]), true
}

// matchParen returns the index of the ')' closing the '(' at open.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// firstWord splits off the leading keyword. The word ends at whitespace or
// at a character that cannot be part of a name.
func firstWord(text string) (word, rest string) {
	i := 0
	for i < len(text) {
		ch := text[i]
		if !isASCIILetter(ch) && !(ch >= '0' && ch <= '9') && ch != '_' && ch != '$' {
			break
		}
		i++
	}
	if i == 0 {
		fields := strings.Fields(text)
		return fields[0], strings.TrimSpace(text[len(fields[0]):])
	}
	return text[:i], strings.TrimSpace(text[i:])
}

// splitAssignment recognises "name = expr" with a single '='.
func splitAssignment(text string) (name, rhs string, ok bool) {
	eq := strings.IndexByte(text, '=')
	if eq <= 0 || (eq+1 < len(text) && text[eq+1] == '=') {
		return "", "", false
	}
	name = strings.TrimSpace(text[:eq])
	if !isIdentifier(name) {
		return "", "", false
	}
	return name, strings.TrimSpace(text[eq+1:]), true
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// condition evaluates a guard expression to a boolean.
func (e *Engine) condition(src string) (bool, error) {
	v, err := e.evaluate(src)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// wait blocks through the host sleeper.
func (e *Engine) wait(d time.Duration) error {
	return e.sleep(e.context(), d)
}
