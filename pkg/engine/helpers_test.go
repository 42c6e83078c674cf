package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/templecode/pkg/canvas"
)

// recorder collects output lines.
type recorder struct {
	lines   []string
	cleared int
}

func (r *recorder) Write(text string) { r.lines = append(r.lines, text) }

func (r *recorder) ClearText() { r.cleared++ }

func (r *recorder) errors() []string {
	var out []string
	for _, l := range r.lines {
		if strings.HasPrefix(l, "Error at line") {
			out = append(out, l)
		}
	}
	return out
}

// scriptedInput answers prompts from a fixed list and fails when empty.
type scriptedInput struct {
	answers []string
	prompts []string
}

func (s *scriptedInput) Request(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

// drawings records primitives.
type drawings struct {
	items []canvas.Primitive
}

func (d *drawings) Draw(p canvas.Primitive) { d.items = append(d.items, p) }

func (d *drawings) segments() []canvas.Segment {
	var out []canvas.Segment
	for _, p := range d.items {
		if s, ok := p.(canvas.Segment); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *drawings) lines() []canvas.Line {
	var out []canvas.Line
	for _, p := range d.items {
		if l, ok := p.(canvas.Line); ok {
			out = append(out, l)
		}
	}
	return out
}

// fakeClock only moves when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	eng   *Engine
	out   *recorder
	gfx   *drawings
	clock *fakeClock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness builds an engine with recording sinks, a frozen clock and a
// seeded RNG, and loads src.
func newHarness(t *testing.T, src string, opts ...Option) *harness {
	t.Helper()
	h := &harness{out: &recorder{}, gfx: &drawings{}, clock: newFakeClock()}
	base := []Option{
		WithLogger(quietLogger()),
		WithOutput(h.out),
		WithGraphics(h.gfx),
		WithClock(h.clock.Now),
		WithRand(rand.New(rand.NewSource(1))),
	}
	h.eng = New(append(base, opts...)...)
	h.eng.Load(src)
	return h
}

func (h *harness) run(t *testing.T) Outcome {
	t.Helper()
	return h.eng.Run(context.Background())
}

// runProgram loads and runs src and returns the output lines.
func runProgram(t *testing.T, src string, opts ...Option) ([]string, Outcome) {
	t.Helper()
	h := newHarness(t, src, opts...)
	out := h.run(t)
	return h.out.lines, out
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustNumber(t *testing.T, e *Engine, name string) float64 {
	t.Helper()
	v, ok := e.Variable(name)
	if !ok {
		t.Fatalf("variable %s not set", name)
	}
	f, ok := v.Number()
	if !ok {
		t.Fatalf("variable %s = %q, want a number", name, v.String())
	}
	return f
}

var errBoom = errors.New("boom")
