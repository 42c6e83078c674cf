package app

import (
	"context"
	"fmt"

	"github.com/zurustar/templecode/pkg/catalog"
	"github.com/zurustar/templecode/pkg/console"
)

// runREPL は対話モードで実行する。p があればそのソースを読み込んでおく。
func (app *Application) runREPL(ctx context.Context, p *catalog.Program) error {
	term := app.terminal()
	defer term.Close()

	history, herr := console.HistoryPath()
	if herr == nil {
		if err := term.LoadHistory(history); err != nil {
			app.log.Warn("failed to read history", "path", history, "error", err)
		}
	}

	cv := app.newCanvas(p)
	mixer := app.newMixer(p)
	defer mixer.Close()
	eng := app.newEngine(p, term, term, cv, mixer)

	repl := console.NewREPL(term, eng, app.loader, app.log)
	term.Write("TempleCode REPL - type :help for commands")
	if p != nil {
		src, err := app.registry.Source(p)
		if err != nil {
			return fmt.Errorf("failed to load program: %w", err)
		}
		repl.SetSource(src.Content)
		term.Write(fmt.Sprintf("loaded %s", p.Name))
	}

	err := repl.Run(ctx)
	if herr == nil {
		if serr := term.SaveHistory(history); serr != nil {
			app.log.Warn("failed to write history", "path", history, "error", serr)
		}
	}
	return err
}
