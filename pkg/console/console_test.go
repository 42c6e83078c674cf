package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zurustar/templecode/pkg/engine"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTerminal_Plain(t *testing.T) {
	var out bytes.Buffer
	term := NewPlain(strings.NewReader("alice\r\nbob"), &out)
	if term.Interactive() {
		t.Fatal("plain terminal must not be interactive")
	}

	term.Write("hello")
	got, err := term.Request("NAME? ")
	if err != nil || got != "alice" {
		t.Fatalf("Request() = %q, %v", got, err)
	}
	// 改行のない最終行も返す
	got, err = term.Request("NAME? ")
	if err != nil || got != "bob" {
		t.Fatalf("Request() = %q, %v", got, err)
	}
	if _, err := term.Request("NAME? "); !errors.Is(err, io.EOF) {
		t.Fatalf("Request() error = %v, want EOF", err)
	}

	if want := "hello\nNAME? NAME? NAME? "; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	term.ClearText()
	if strings.Contains(out.String(), "\x1b") {
		t.Error("plain terminal must not emit escape sequences")
	}
	if err := term.LoadHistory("/nonexistent"); err != nil {
		t.Errorf("LoadHistory() error = %v", err)
	}
	if err := term.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHistoryPath(t *testing.T) {
	t.Setenv("HOME", "/home/learner")
	p, err := HistoryPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/home/learner", HistoryFile) {
		t.Errorf("HistoryPath() = %q", p)
	}
}

// newREPL は入力を流し込んだ REPL と出力バッファを返す
func newREPL(t *testing.T, input string) (*REPL, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	term := NewPlain(strings.NewReader(input), &out)
	eng := engine.New(
		engine.WithLogger(quiet()),
		engine.WithOutput(term),
		engine.WithInput(term),
	)
	return NewREPL(term, eng, nil, quiet()), &out
}

func TestREPL_Run(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		not   []string
	}{
		{
			name:  "append and run",
			input: "U:X=2\nT:*X*+*X*=*X+X*\n:run\n:quit\n",
			want:  []string{"2+2=4"},
		},
		{
			name:  "list",
			input: "T:a\nT:b\n:list\n",
			want:  []string{"   1  T:a", "   2  T:b"},
		},
		{
			name:  "new clears the program",
			input: "T:gone\n:new\n:list\n:run\n",
			want:  []string{"(empty)"},
			not:   []string{"gone\n"},
		},
		{
			name:  "immediate command",
			input: "!T:now\n:list\n",
			want:  []string{"now", "(empty)"},
		},
		{
			name:  "vars",
			input: "!U:X=10\n!U:NAME=Ada\n:vars\n",
			want:  []string{"NAME = \"Ada\"", "X = 10"},
		},
		{
			name:  "no vars",
			input: ":vars\n",
			want:  []string{"(no variables)"},
		},
		{
			name:  "unknown command",
			input: ":frobnicate\n",
			want:  []string{"error: unknown command :frobnicate"},
		},
		{
			name:  "cont needs a pause",
			input: ":cont\n",
			want:  []string{"error: program is not paused"},
		},
		{
			name:  "load needs a file",
			input: ":load\n",
			want:  []string{"error: usage: :load FILE"},
		},
		{
			name:  "program input shares the terminal",
			input: "A:NAME\nT:hi *NAME*\n:run\nAda\n",
			want:  []string{"hi Ada"},
		},
		{
			name:  "quit stops reading",
			input: ":quit\nT:late\n:list\n",
			not:   []string{"T:late"},
		},
		{
			name:  "step pauses",
			input: "T:a\nT:b\n:step\n:cont\n",
			want:  []string{"a\n", "Paused at line 2", "b\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newREPL(t, tt.input)
			if err := r.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
			for _, n := range tt.not {
				if strings.Contains(out.String(), n) {
					t.Errorf("output must not contain %q:\n%s", n, out.String())
				}
			}
		})
	}
}

func TestREPL_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.tc")
	if err := os.WriteFile(path, []byte("T:one\r\nT:two\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, out := newREPL(t, "")
	quit, err := r.Handle(context.Background(), ":load "+path)
	if err != nil || quit {
		t.Fatalf("Handle() = %v, %v", quit, err)
	}
	if r.Source() != "T:one\nT:two" {
		t.Errorf("Source() = %q", r.Source())
	}
	if !strings.Contains(out.String(), "loaded hello.tc (2 lines)") {
		t.Errorf("output = %q", out.String())
	}

	if _, err := r.Handle(context.Background(), ":load "+filepath.Join(dir, "missing.tc")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestREPL_SetSource(t *testing.T) {
	r, _ := newREPL(t, "")
	r.SetSource("T:a\nT:b\n")
	if r.Source() != "T:a\nT:b" {
		t.Errorf("Source() = %q", r.Source())
	}
	r.SetSource("")
	if r.Source() != "" {
		t.Errorf("Source() = %q", r.Source())
	}
}
