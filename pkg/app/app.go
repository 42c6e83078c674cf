// Package app はコマンドライン引数から実行モードを決め、エンジンとホストを組み立てる。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path"

	"github.com/zurustar/templecode/pkg/audio"
	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/catalog"
	"github.com/zurustar/templecode/pkg/cli"
	"github.com/zurustar/templecode/pkg/config"
	"github.com/zurustar/templecode/pkg/engine"
	"github.com/zurustar/templecode/pkg/hardware"
	"github.com/zurustar/templecode/pkg/logger"
	"github.com/zurustar/templecode/pkg/script"
	"github.com/zurustar/templecode/pkg/session"
	"github.com/zurustar/templecode/pkg/window"
)

// ProgramsDir は組み込みプログラムを置くディレクトリ
const ProgramsDir = "programs"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	programs fs.FS
	flags    *cli.Config
	config   *config.Config
	log      *slog.Logger
	runID    string
	registry *catalog.Registry
	loader   *script.Loader

	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv config.LookupFunc
}

// New Applicationを作成。programs は組み込みデモを含むファイルシステム。
func New(programs fs.FS) *Application {
	return &Application{
		programs:  programs,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
	}
}

// Run アプリケーションを実行する。
// エラーを返すのは起動に失敗した場合だけで、プログラムの実行時エラーは含まない。
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	flags, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.flags = flags
	if flags.ShowHelp {
		cli.FprintHelp(app.stdout)
		return nil
	}

	// 2. 設定の読み込み
	if err := app.loadConfig(); err != nil {
		return err
	}

	// 3. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log.Info("Application started", "headless", app.config.Headless, "repl", flags.REPL)

	// 4. プログラム一覧
	app.loader = script.NewLoader(app.config.Encoding)
	app.registry = catalog.NewRegistry(app.programs, ProgramsDir, app.loader)
	if flags.ProgramPath != "" {
		if err := app.registry.LoadExternal(flags.ProgramPath); err != nil {
			return fmt.Errorf("failed to load program: %w", err)
		}
	}
	if flags.List {
		app.listPrograms()
		return nil
	}

	// REPL は Ctrl-C を実行中のプログラムの停止に使う
	if flags.REPL {
		var p *catalog.Program
		if flags.ProgramPath != "" {
			p = &app.registry.Programs()[0]
		}
		return app.runREPL(context.Background(), p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 5. プログラムの選択と実行
	var runErr error
	if app.config.Headless {
		runErr = app.runHeadless(ctx)
	} else {
		runErr = app.runWindow(ctx)
	}
	if errors.Is(runErr, window.ErrCancelled) {
		app.log.Info("Program selection cancelled")
		return nil
	}
	return runErr
}

// loadConfig はデフォルト、設定ファイル、環境変数、フラグの順に重ねる
func (app *Application) loadConfig() error {
	cfg := config.Default()
	if app.flags.ConfigPath != "" {
		loaded, err := config.Load(app.flags.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(app.lookupEnv); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	app.flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.config = cfg
	return nil
}

// initLogger ロガーを初期化し、実行IDを付ける
func (app *Application) initLogger() error {
	if err := logger.InitLoggerWithWriter(app.config.LogLevel, app.config.LogFormat, app.stderr); err != nil {
		return err
	}
	app.runID = logger.NewRunID()
	app.log = logger.WithRun(logger.GetLogger(), app.runID)
	return nil
}

// listPrograms はプログラム一覧を表示する
func (app *Application) listPrograms() {
	programs := app.registry.Programs()
	if len(programs) == 0 {
		fmt.Fprintln(app.stdout, "No programs found.")
		return
	}
	for _, p := range programs {
		line := p.Name
		if p.Metadata != nil && p.Metadata.Title != "" {
			line += " - " + p.Metadata.Title
		}
		if p.Metadata != nil && p.Metadata.Author != "" {
			line += " (" + p.Metadata.Author + ")"
		}
		fmt.Fprintln(app.stdout, line)
	}
}

// newEngine はプログラム用のエンジンを組み立てる。p が nil なら
// 相対パスはカレントディレクトリ基準になる。
func (app *Application) newEngine(p *catalog.Program, out engine.OutputSink, in engine.InputProvider, cv *canvas.Canvas, mixer *audio.Mixer) *engine.Engine {
	cfg := app.config
	opts := []engine.Option{
		engine.WithLogger(app.log),
		engine.WithOutput(out),
		engine.WithInput(in),
		engine.WithGraphics(cv),
		engine.WithAudio(mixer),
		engine.WithHardware(hardware.NewSimulator(hardware.WithLogger(app.log))),
		engine.WithSession(runStore{SessionStore: session.NewFileStore(cfg.Session.Dir), runID: app.runID}),
		engine.WithMaxIterations(cfg.Engine.MaxIterations),
		engine.WithMaxCallDepth(cfg.Engine.MaxCallDepth),
		engine.WithDeltaRange(cfg.Engine.MinDelta(), cfg.Engine.MaxDelta()),
		engine.WithCanvasSize(cv.Size()),
		engine.WithDebug(cfg.Engine.Debug),
	}
	if len(cfg.Engine.Breakpoints) > 0 {
		opts = append(opts, engine.WithBreakpoints(cfg.Engine.Breakpoints...))
	}
	return engine.New(opts...)
}

// newCanvas は設定サイズのキャンバスを作り、画像の読み込み元を p に合わせる
func (app *Application) newCanvas(p *catalog.Program) *canvas.Canvas {
	cv := canvas.New(canvas.Size{Width: app.config.Canvas.Width, Height: app.config.Canvas.Height})
	if fsys := app.assetFS(p); fsys != nil {
		cv.Images().SetFS(fsys)
	} else if p != nil {
		cv.Images().SetBaseDir(p.BaseDir())
	}
	return cv
}

// newMixer はプログラム用のミキサーを作る。ヘッドレスと REPL では音を出さない。
func (app *Application) newMixer(p *catalog.Program) *audio.Mixer {
	muted := app.config.Headless || app.config.Audio.Muted || (app.flags != nil && app.flags.REPL)
	opts := []audio.Option{
		audio.WithLogger(app.log),
		audio.WithMuted(muted),
		audio.WithVolume(app.config.Audio.Volume),
	}
	if fsys := app.assetFS(p); fsys != nil {
		opts = append(opts, audio.WithFS(fsys))
	} else if p != nil {
		opts = append(opts, audio.WithBaseDir(p.BaseDir()))
	}
	if !muted {
		if sf := app.loadSoundFont(p); sf != nil {
			opts = append(opts, audio.WithSoundFont(sf))
		}
	}
	return audio.NewMixer(opts...)
}

// assetFS は組み込みプログラムの画像や音声を読むファイルシステムを返す
func (app *Application) assetFS(p *catalog.Program) fs.FS {
	if p == nil || !p.IsEmbedded || app.programs == nil {
		return nil
	}
	sub, err := fs.Sub(app.programs, path.Dir(p.Path))
	if err != nil {
		app.log.Warn("failed to open embedded assets", "program", p.Name, "error", err)
		return nil
	}
	return sub
}

// runStore は保存するセッションに実行IDを付ける
type runStore struct {
	engine.SessionStore
	runID string
}

func (s runStore) Save(slot string, snap session.Snapshot) error {
	snap.RunID = s.runID
	return s.SessionStore.Save(slot, snap)
}

// outcomeMessage は実行結果の表示文。エンジンが出力済みの場合は空文字列。
func outcomeMessage(o engine.Outcome) string {
	switch o.Status {
	case engine.StatusError:
		return fmt.Sprintf("Program aborted: %v", o.Err)
	case engine.StatusStopped:
		return "Program stopped"
	}
	return ""
}
