package engine

import (
	"maps"
	"strings"

	"github.com/zurustar/templecode/pkg/expr"
	"github.com/zurustar/templecode/pkg/turtle"
)

// PendingState is the one-shot sentinel armed by Y: and N:.
type PendingState int

const (
	PendingNone PendingState = iota
	PendingConsumeByTextOrJump
)

func (p PendingState) String() string {
	if p == PendingConsumeByTextOrJump {
		return "consume-by-text-or-jump"
	}
	return "none"
}

// LoopFrame is one active FOR loop.
type LoopFrame struct {
	Var    string
	End    float64
	Step   float64
	Origin int // index of the FOR line
}

// defaultPalette is the 15-entry BASIC colour table.
var defaultPalette = []string{
	"black", "blue", "red", "green", "yellow", "magenta", "cyan", "white",
	"gray", "orange", "purple", "brown", "pink", "lightblue", "lightgreen",
}

// State is every piece of mutable run state. One Engine owns one State.
type State struct {
	Vars    map[string]expr.Value // upper-case names
	Returns []int
	Loops   []LoopFrame
	Match   bool
	Pending PendingState

	Turtle  *turtle.Turtle
	DataPos int

	Current    int // index of the executing line
	Iterations int
	Depth      int // procedure nesting

	Macros map[string][]string

	Palette    []string
	Foreground string
	Background string
	Screen     int
	PenX, PenY float64 // BASIC DRAW pen, screen coordinates

	drawStarted bool

	HUD        bool
	DebugLines bool
}

// NewState returns a State with an empty store and a fresh turtle.
func NewState() *State {
	return &State{
		Vars:       make(map[string]expr.Value),
		Turtle:     turtle.New(),
		Macros:     make(map[string][]string),
		Palette:    append([]string(nil), defaultPalette...),
		Foreground: "black",
		Background: "white",
	}
}

// Variable returns a variable by name, ignoring case.
func (s *State) Variable(name string) (expr.Value, bool) {
	v, ok := s.Vars[normalizeName(name)]
	return v, ok
}

// Variables returns a copy of the store.
func (s *State) Variables() map[string]expr.Value {
	return maps.Clone(s.Vars)
}

// stackMark records the depth of the GOSUB and loop stacks.
type stackMark struct {
	returns, loops int
}

func (s *State) mark() stackMark {
	return stackMark{returns: len(s.Returns), loops: len(s.Loops)}
}

// unwind puts both stacks back to the depth recorded by m. Entries popped
// since then are still in the backing arrays, so reslicing restores them.
func (s *State) unwind(m stackMark) {
	if m.returns <= cap(s.Returns) {
		s.Returns = s.Returns[:m.returns]
	}
	if m.loops <= cap(s.Loops) {
		s.Loops = s.Loops[:m.loops]
	}
}

// trim drops entries pushed since m and keeps any pops.
func (s *State) trim(m stackMark) {
	if len(s.Returns) > m.returns {
		s.Returns = s.Returns[:m.returns]
	}
	if len(s.Loops) > m.loops {
		s.Loops = s.Loops[:m.loops]
	}
}

// findLoop scans the loop stack from the top. An empty name selects the
// top frame.
func (s *State) findLoop(name string) int {
	if len(s.Loops) == 0 {
		return -1
	}
	if name == "" {
		return len(s.Loops) - 1
	}
	name = normalizeName(name)
	for i := len(s.Loops) - 1; i >= 0; i-- {
		if s.Loops[i].Var == name {
			return i
		}
	}
	return -1
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(name), ":"))
}

// isIdentifier reports whether s is a valid variable name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
		case r >= '0' && r <= '9' && i > 0:
		case r == '$' && i == len(s)-1 && i > 0:
		default:
			return false
		}
	}
	return true
}
