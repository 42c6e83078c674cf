package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zurustar/templecode/pkg/audio"
	"github.com/zurustar/templecode/pkg/catalog"
	"github.com/zurustar/templecode/pkg/engine"
	"github.com/zurustar/templecode/pkg/window"
)

// runWindow はウィンドウモードで実行する。プログラムが複数あれば選択画面から始める。
func (app *Application) runWindow(ctx context.Context) error {
	p, needsSelection, err := app.registry.Select()
	if err != nil {
		return err
	}

	opts := window.Options{
		Title:   app.config.Window.Title,
		Width:   app.config.Window.Width,
		Height:  app.config.Window.Height,
		Timeout: app.config.TimeoutDuration(),
		Logger:  app.log,
	}
	opts.Canvas.Width = app.config.Canvas.Width
	opts.Canvas.Height = app.config.Canvas.Height

	game := window.NewGame(app.registry.Programs(), func(p *catalog.Program) (*window.Session, error) {
		return app.newSession(ctx, p)
	}, opts)
	if !needsSelection {
		s, err := app.newSession(ctx, p)
		if err != nil {
			return err
		}
		game.SetSession(s)
	}

	app.log.Info("Starting window", "programs", len(app.registry.Programs()), "selection", needsSelection)
	return window.Run(game)
}

// newSession はプログラム1本分のキャンバス、コンソール、エンジンを用意する
func (app *Application) newSession(ctx context.Context, p *catalog.Program) (*window.Session, error) {
	src, err := app.registry.Source(p)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	cv := app.newCanvas(p)
	con := window.NewConsole(window.DefaultConsoleLines)
	mixer := app.newMixer(p)
	eng := app.newEngine(p, con, con, cv, mixer)
	prog := eng.Load(src.Content)
	app.log.Info("Program loaded", "program", p.Name, "lines", prog.Len())

	return &window.Session{
		Name:    p.DisplayName(),
		Canvas:  cv,
		Console: con,
		Runner:  &engineRunner{eng: eng, ctx: ctx, console: con, mixer: mixer, log: app.log},
		Audio:   mixer,
	}, nil
}

// engineRunner はエンジンを別ゴルーチンで動かし、ウィンドウのコンソールと結ぶ
type engineRunner struct {
	eng     *engine.Engine
	ctx     context.Context
	console *window.Console
	mixer   *audio.Mixer
	log     *slog.Logger

	done atomic.Bool
	once sync.Once
}

func (r *engineRunner) Start() {
	go func() {
		defer r.done.Store(true)
		out := r.eng.Run(r.ctx)
		for out.Status == engine.StatusPaused {
			answer, err := r.console.Request(fmt.Sprintf("Paused at line %d - [Enter] continue, [s] step: ", out.Line+1))
			if err != nil {
				// ウィンドウ側で閉じられた
				return
			}
			if strings.EqualFold(strings.TrimSpace(answer), "s") {
				out = r.eng.Step(r.ctx)
			} else {
				out = r.eng.Continue(r.ctx)
			}
		}
		if msg := outcomeMessage(out); msg != "" {
			r.console.Write(msg)
		}
		r.log.Info("Program finished", "status", out.Status.String(), "iterations", out.Iterations)
	}()
}

func (r *engineRunner) Stop() {
	r.once.Do(func() {
		r.eng.Stop()
		r.mixer.Close()
	})
}

func (r *engineRunner) Done() bool {
	return r.done.Load()
}
