package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/zurustar/templecode/pkg/engine"
	"github.com/zurustar/templecode/pkg/script"
)

const prompt = "tc> "

const replHelp = `Commands:
  :run          run the program
  :cont         continue after a breakpoint or pause
  :step         run one line
  :list         list the program
  :new          clear the program
  :load FILE    load a program file
  :vars         show variables
  :help         show this help
  :quit         leave
  !COMMAND      execute one command immediately
Any other line is appended to the program.`

// REPL は対話モード。入力行をプログラムに追加し、:run で実行する。
type REPL struct {
	term   *Terminal
	eng    *engine.Engine
	loader *script.Loader
	log    *slog.Logger
	lines  []string
}

// NewREPL は REPL を作る。loader が nil なら既定の文字コード判定を使う。
func NewREPL(t *Terminal, eng *engine.Engine, loader *script.Loader, log *slog.Logger) *REPL {
	if loader == nil {
		loader = script.NewLoader("")
	}
	if log == nil {
		log = slog.Default()
	}
	return &REPL{term: t, eng: eng, loader: loader, log: log}
}

// SetSource はプログラムを src で置き換える
func (r *REPL) SetSource(src string) {
	src = strings.TrimRight(src, "\n")
	if src == "" {
		r.lines = nil
		return
	}
	r.lines = strings.Split(src, "\n")
}

// Source は現在のプログラムを返す
func (r *REPL) Source() string {
	return strings.Join(r.lines, "\n")
}

// Run は EOF か :quit まで入力を処理する
func (r *REPL) Run(ctx context.Context) error {
	r.term.Write("TempleCode interactive mode. Type :help for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.term.Request(prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrInterrupted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit, err := r.Handle(ctx, line)
		if err != nil {
			r.term.Write("error: " + err.Error())
		}
		if quit {
			return nil
		}
	}
}

// Handle は1行を処理する。:quit のとき true を返す。
func (r *REPL) Handle(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false, nil
	case strings.HasPrefix(trimmed, "!"):
		cmd := strings.TrimSpace(trimmed[1:])
		if err := r.eng.ExecuteImmediate(ctx, cmd); err != nil {
			// 診断はエンジンが出力済み
			r.log.Debug("immediate command failed", "command", cmd, "error", err)
		}
		return false, nil
	case strings.HasPrefix(trimmed, ":"):
		return r.command(ctx, trimmed)
	}
	r.lines = append(r.lines, line)
	return false, nil
}

func (r *REPL) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":help":
		r.term.Write(replHelp)
	case ":run":
		r.eng.Load(r.Source())
		r.report(r.run(ctx, r.eng.Run))
	case ":cont":
		if r.eng.RunState() != engine.Paused {
			return false, errors.New("program is not paused")
		}
		r.report(r.run(ctx, r.eng.Continue))
	case ":step":
		if r.eng.RunState() == engine.Idle || r.eng.RunState() == engine.Finished {
			r.eng.Load(r.Source())
		}
		r.report(r.run(ctx, r.eng.Step))
	case ":list":
		if len(r.lines) == 0 {
			r.term.Write("(empty)")
		}
		for i, l := range r.lines {
			r.term.Write(fmt.Sprintf("%4d  %s", i+1, l))
		}
	case ":new":
		r.lines = nil
		r.eng.Load("")
	case ":load":
		if len(fields) < 2 {
			return false, errors.New("usage: :load FILE")
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		s, err := r.loader.Load(name)
		if err != nil {
			return false, err
		}
		r.SetSource(s.Content)
		r.term.Write(fmt.Sprintf("loaded %s (%d lines)", s.FileName, len(r.lines)))
	case ":vars":
		r.vars()
	default:
		return false, fmt.Errorf("unknown command %s (type :help)", fields[0])
	}
	return false, nil
}

// run は Ctrl-C で止められるように実行する
func (r *REPL) run(ctx context.Context, fn func(context.Context) engine.Outcome) engine.Outcome {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return fn(ctx)
}

func (r *REPL) report(out engine.Outcome) {
	switch out.Status {
	case engine.StatusError:
		r.term.Write(fmt.Sprintf("Program aborted: %v", out.Err))
	case engine.StatusStopped:
		r.term.Write("Program stopped")
	case engine.StatusPaused:
		r.term.Write(fmt.Sprintf("Paused at line %d (:cont or :step)", out.Line+1))
	}
	r.log.Debug("run finished", "status", out.Status.String(), "iterations", out.Iterations)
}

func (r *REPL) vars() {
	vars := r.eng.State().Variables()
	if len(vars) == 0 {
		r.term.Write("(no variables)")
		return
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v := vars[name]
		if v.IsString() {
			r.term.Write(fmt.Sprintf("%s = %q", name, v.String()))
		} else {
			r.term.Write(fmt.Sprintf("%s = %s", name, v.String()))
		}
	}
}
