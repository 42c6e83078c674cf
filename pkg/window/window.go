// Package window は Ebitengine のウィンドウでプログラムを実行する。
package window

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/catalog"
	"golang.org/x/image/font/basicfont"
)

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// コンソールの背景色
	consoleColor = color.RGBA{0x10, 0x10, 0x18, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// 選択中のテキスト色（黄色）
	selectedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// HUDの文字色
	hudColor = color.RGBA{0x00, 0x80, 0x00, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// コンソール領域の寸法
const (
	lineHeight   = 16
	charWidth    = 7
	consoleRows  = 8
	consoleInset = 6
)

// ErrCancelled は選択画面で ESC が押されたことを示す
var ErrCancelled = errors.New("user cancelled")

// Mode はウィンドウの表示モードを表す
type Mode int

const (
	ModeSelection Mode = iota // プログラム選択画面
	ModeRun                   // 実行画面
)

// Runner はウィンドウから操作される実行中のプログラム
type Runner interface {
	Start()
	Stop()
	Done() bool
}

// Updater は毎フレーム呼ばれる（オーディオの後始末など）
type Updater interface {
	Update()
}

// Session は1つのプログラムの実行に必要なもの
type Session struct {
	Name    string
	Canvas  *canvas.Canvas
	Console *Console
	Runner  Runner
	Audio   Updater // nil でもよい
}

// Options はウィンドウの設定
type Options struct {
	Title   string
	Width   int
	Height  int
	Canvas  canvas.Size
	Timeout time.Duration
	Logger  *slog.Logger
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	mu sync.Mutex

	mode      Mode
	opts      Options
	log       *slog.Logger
	programs  []catalog.Program
	selected  int
	startTime time.Time

	// 複数プログラムのとき true。ESC で選択画面に戻る
	hasSelection bool
	onSelect     func(p *catalog.Program) (*Session, error)
	session      *Session
	renderer     *Renderer
	started      bool

	err error
}

// NewGame は Game を作成する。programs が複数なら選択画面から始まる。
func NewGame(programs []catalog.Program, onSelect func(p *catalog.Program) (*Session, error), opts Options) *Game {
	if opts.Canvas.Width <= 0 || opts.Canvas.Height <= 0 {
		opts.Canvas = canvas.DefaultSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Game{
		mode:         ModeSelection,
		opts:         opts,
		log:          log,
		programs:     programs,
		startTime:    time.Now(),
		hasSelection: len(programs) > 1,
		onSelect:     onSelect,
	}
}

// SetSession は選択画面を経ずに実行画面から始める
func (g *Game) SetSession(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enterRun(s)
}

// enterRun は実行画面に切り替える。g.mu を保持して呼ぶこと。
func (g *Game) enterRun(s *Session) {
	g.session = s
	g.renderer = NewRenderer(s.Canvas.Size(), s.Canvas.Images(), g.log)
	g.started = false
	g.mode = ModeRun
	g.startTime = time.Now()
}

// Mode は現在のモードを返す
func (g *Game) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Selected は選択中のプログラムのインデックスを返す
func (g *Game) Selected() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selected
}

// Err は実行中に起きたエラーを返す
func (g *Game) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()
	if s != nil && s.Audio != nil {
		s.Audio.Update()
	}

	// タイムアウトチェック
	if g.opts.Timeout > 0 && time.Since(g.startTime) >= g.opts.Timeout {
		g.log.Info("timeout reached", "timeout", g.opts.Timeout)
		g.stopSession()
		return ebiten.Termination
	}

	switch g.Mode() {
	case ModeSelection:
		return g.handleSelection(
			inpututil.IsKeyJustPressed(ebiten.KeyUp),
			inpututil.IsKeyJustPressed(ebiten.KeyDown),
			inpututil.IsKeyJustPressed(ebiten.KeyEnter),
			inpututil.IsKeyJustPressed(ebiten.KeyEscape),
		)
	case ModeRun:
		return g.updateRun()
	}
	return nil
}

// handleSelection は選択画面のキー入力を処理する
func (g *Game) handleSelection(up, down, enter, esc bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if esc {
		g.err = ErrCancelled
		return ebiten.Termination
	}
	if len(g.programs) == 0 {
		return nil
	}
	if up && g.selected > 0 {
		g.selected--
	}
	if down && g.selected < len(g.programs)-1 {
		g.selected++
	}
	if !enter || g.onSelect == nil {
		return nil
	}

	p := &g.programs[g.selected]
	s, err := g.onSelect(p)
	if err != nil {
		g.err = err
		return ebiten.Termination
	}
	g.log.Info("program selected", "name", p.Name)
	g.enterRun(s)
	return nil
}

// updateRun 実行画面の更新
func (g *Game) updateRun() error {
	g.mu.Lock()
	s := g.session
	if !g.started {
		// Ebitengine が初期化されてからエンジンを開始する
		g.started = true
		s.Runner.Start()
	}
	g.mu.Unlock()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return g.escape()
	}

	if s.Console.Waiting() {
		s.Console.TypeRunes(ebiten.AppendInputChars(nil))
		if repeated(ebiten.KeyBackspace) {
			s.Console.Backspace()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
			s.Console.Submit()
		}
	}
	return nil
}

// escape は実行を止め、選択画面に戻るか終了する
func (g *Game) escape() error {
	g.stopSession()

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasSelection {
		return ebiten.Termination
	}
	g.mode = ModeSelection
	g.session = nil
	g.renderer = nil
	g.startTime = time.Now()
	return nil
}

func (g *Game) stopSession() {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()
	if s == nil {
		return
	}
	s.Runner.Stop()
	s.Console.Close()
}

// repeated はキーが押された瞬間と押し続けたときに true を返す
func repeated(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	return d == 1 || (d > 30 && d%4 == 0)
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.mode {
	case ModeSelection:
		screen.Fill(backgroundColor)
		g.drawSelection(screen)
	case ModeRun:
		screen.Fill(consoleColor)
		g.drawRun(screen)
	}
}

// drawSelection プログラム選択画面の描画
func (g *Game) drawSelection(screen *ebiten.Image) {
	drawText(screen, "Select a TempleCode program", 40, 40, textColor)

	for i, p := range g.programs {
		prefix := "  "
		c := color.Color(textColor)
		if i == g.selected {
			prefix = "> "
			c = selectedTextColor
		}
		drawText(screen, prefix+p.DisplayName(), 60, 90+float64(i*24), c)
	}

	_, h := g.screenSize()
	drawText(screen, "Use UP/DOWN to select, ENTER to run, ESC to exit", 40, float64(h-40), textColor)
}

// drawRun 実行画面の描画
func (g *Game) drawRun(screen *ebiten.Image) {
	s := g.session
	frame := s.Canvas.Snapshot()
	img := g.renderer.Render(frame)
	screen.DrawImage(img, nil)

	for _, path := range s.Canvas.TakeSnapshotRequests() {
		if err := saveSnapshot(img, path); err != nil {
			g.log.Error("snapshot failed", "path", path, "error", err)
			s.Console.Write("Snapshot failed: " + err.Error())
			continue
		}
		g.log.Info("snapshot saved", "path", path)
	}

	if frame.HUD {
		drawText(screen, hudText(frame.Turtle, ebiten.ActualFPS()), 4, 4, hudColor)
	}
	g.drawConsole(screen, s.Console.View())
}

// drawConsole はキャンバスの下にコンソールを描く
func (g *Game) drawConsole(screen *ebiten.Image, v ConsoleView) {
	w, _ := g.screenSize()
	top := float32(g.opts.Canvas.Height)
	vector.FillRect(screen, 0, top, float32(w), consoleRows*lineHeight+2*consoleInset, consoleColor, false)

	cols := (w - 2*consoleInset) / charWidth
	rows := consoleLines(v, cols, consoleRows)
	for i, line := range rows {
		drawText(screen, line, consoleInset, float64(top)+consoleInset+float64(i*lineHeight), textColor)
	}
}

// consoleLines は表示する最後の rows 行を返す。入力待ちなら最終行は入力行。
func consoleLines(v ConsoleView, cols, rows int) []string {
	var all []string
	for _, l := range v.Lines {
		all = append(all, wrapText(l, cols)...)
	}
	if v.Waiting {
		all = append(all, wrapText(v.Prompt+v.Input+"_", cols)...)
	}
	if len(all) > rows {
		all = all[len(all)-rows:]
	}
	return all
}

// hudText はタートルの状態を1行にまとめる
func hudText(t canvas.Turtle, fps float64) string {
	return fmt.Sprintf("X:%.1f Y:%.1f HEADING:%.1f FPS:%.0f", t.X, t.Y, t.Heading, fps)
}

func drawText(dst *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, defaultFace, op)
}

func (g *Game) screenSize() (int, int) {
	return g.opts.Canvas.Width, g.opts.Canvas.Height + consoleRows*lineHeight + 2*consoleInset
}

// Layout 画面サイズを返す。キャンバスの下にコンソールが付く。
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.screenSize()
}

// Run GUIモードでウィンドウを実行
func Run(game *Game) error {
	w, h := game.opts.Width, game.opts.Height
	if w <= 0 || h <= 0 {
		w, h = game.screenSize()
	}
	ebiten.SetWindowSize(w, h)
	title := game.opts.Title
	if title == "" {
		title = "TempleCode"
	}
	ebiten.SetWindowTitle(title)
	// アスペクト比を維持してスケーリングする
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		game.stopSession()
		return fmt.Errorf("failed to run game: %w", err)
	}
	game.stopSession()
	return game.Err()
}

// RunHeadlessSelection ヘッドレスモードでプログラム選択を実行
func RunHeadlessSelection(ctx context.Context, programs []catalog.Program, reader io.Reader, writer io.Writer) (*catalog.Program, error) {
	if len(programs) == 0 {
		return nil, catalog.ErrNoPrograms
	}
	// プログラムが1つの場合は自動選択
	if len(programs) == 1 {
		fmt.Fprintf(writer, "Auto-selecting program: %s\n", programs[0].DisplayName())
		return &programs[0], nil
	}

	fmt.Fprintln(writer, "Available programs:")
	for i, p := range programs {
		fmt.Fprintf(writer, "  %d: %s\n", i+1, p.DisplayName())
	}
	fmt.Fprintln(writer)

	scanner := bufio.NewScanner(reader)
	resultCh := make(chan *catalog.Program, 1)
	errCh := make(chan error, 1)

	go func() {
		for {
			fmt.Fprint(writer, "Select a program (1-", len(programs), ") or 'q' to quit: ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					errCh <- fmt.Errorf("failed to read input: %w", err)
				} else {
					errCh <- fmt.Errorf("input closed")
				}
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if strings.EqualFold(input, "q") {
				errCh <- ErrCancelled
				return
			}

			num, err := strconv.Atoi(input)
			if err != nil {
				fmt.Fprintln(writer, "Invalid input. Please enter a number.")
				continue
			}
			if num < 1 || num > len(programs) {
				fmt.Fprintf(writer, "Invalid selection. Please enter a number between 1 and %d.\n", len(programs))
				continue
			}

			selected := &programs[num-1]
			fmt.Fprintf(writer, "Selected: %s\n", selected.DisplayName())
			resultCh <- selected
			return
		}
	}()

	// タイムアウトまたは選択完了を待つ
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("program selection: %w", ctx.Err())
	case err := <-errCh:
		return nil, err
	case selected := <-resultCh:
		return selected, nil
	}
}
