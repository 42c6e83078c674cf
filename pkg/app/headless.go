package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zurustar/templecode/pkg/catalog"
	"github.com/zurustar/templecode/pkg/console"
	"github.com/zurustar/templecode/pkg/engine"
	"github.com/zurustar/templecode/pkg/window"
)

// stopGrace は停止要求後、入力待ちなどで止まらないエンジンを待つ時間
const stopGrace = 500 * time.Millisecond

// terminal は標準入出力の Terminal を作る
func (app *Application) terminal() *console.Terminal {
	if f, ok := app.stdin.(*os.File); ok {
		return console.New(f, app.stdout)
	}
	return console.NewPlain(app.stdin, app.stdout)
}

// runHeadless はウィンドウなしでプログラムを実行する
func (app *Application) runHeadless(ctx context.Context) error {
	term := app.terminal()
	defer term.Close()

	if d := app.config.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
		app.log.Info("Timeout set", "duration", d)
	}

	p, err := app.selectHeadless(ctx, term)
	if err != nil {
		return err
	}
	src, err := app.registry.Source(p)
	if err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}

	cv := app.newCanvas(p)
	mixer := app.newMixer(p)
	defer mixer.Close()
	eng := app.newEngine(p, term, term, cv, mixer)
	prog := eng.Load(src.Content)
	app.log.Info("Program loaded", "program", p.Name, "lines", prog.Len(), "encoding", app.loader.Encoding())

	stopOnDone := context.AfterFunc(ctx, eng.Stop)
	defer stopOnDone()

	done := make(chan engine.Outcome, 1)
	go func() { done <- app.drive(ctx, eng, term) }()

	var out engine.Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		select {
		case out = <-done:
		case <-time.After(stopGrace):
			// 入力待ちのままのエンジンは置いていく
			app.log.Warn("Program did not stop in time")
			out = engine.Outcome{Status: engine.StatusStopped}
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		app.log.Info("Timeout reached, program stopped")
	}

	if msg := outcomeMessage(out); msg != "" {
		term.Write(msg)
	}
	for _, path := range cv.TakeSnapshotRequests() {
		app.log.Info("Snapshot skipped in headless mode", "path", path)
	}
	app.log.Info("Program finished", "status", out.Status.String(), "iterations", out.Iterations)
	return nil
}

// drive は一時停止のたびに端末で続行方法を尋ねる
func (app *Application) drive(ctx context.Context, eng *engine.Engine, term *console.Terminal) engine.Outcome {
	out := eng.Run(ctx)
	for out.Status == engine.StatusPaused {
		answer, err := term.Request(fmt.Sprintf("Paused at line %d - [Enter] continue, [s] step, [q] stop: ", out.Line+1))
		if err != nil {
			answer = "q"
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "s":
			out = eng.Step(ctx)
		case "q":
			eng.Stop()
			out = eng.Continue(ctx)
		default:
			out = eng.Continue(ctx)
		}
	}
	return out
}

// selectHeadless はプログラムが複数あれば番号で選ばせる
func (app *Application) selectHeadless(ctx context.Context, term *console.Terminal) (*catalog.Program, error) {
	p, needsSelection, err := app.registry.Select()
	if err != nil {
		return nil, err
	}
	if !needsSelection {
		return p, nil
	}
	return window.RunHeadlessSelection(ctx, app.registry.Programs(), &lineReader{term: term}, app.stdout)
}

// lineReader は Terminal から1行ずつ読む io.Reader。
// 選択後のプログラム入力と標準入力のバッファを共有するために使う。
type lineReader struct {
	term *console.Terminal
	buf  []byte
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		s, err := r.term.Request("")
		if errors.Is(err, console.ErrInterrupted) {
			return 0, window.ErrCancelled
		}
		if err != nil {
			return 0, err
		}
		r.buf = append([]byte(s), '\n')
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

var _ io.Reader = (*lineReader)(nil)
