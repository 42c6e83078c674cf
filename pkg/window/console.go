package window

import (
	"errors"
	"strings"
	"sync"
)

// DefaultConsoleLines はコンソールが保持する行数の既定値
const DefaultConsoleLines = 200

// ErrConsoleClosed は入力待ちの間にコンソールが閉じられたことを示す
var ErrConsoleClosed = errors.New("console closed")

// Console はウィンドウ下部のテキスト表示と入力行。
// engine.OutputSink と engine.InputProvider を実装する。
// エンジンのゴルーチンが Write / Request を呼び、Ebitengine のゴルーチンが
// キー入力を渡して View で描画内容を取り出す。
type Console struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
	prompt   string
	input    []rune
	waiting  bool
	answer   chan string
	closed   chan struct{}
	once     sync.Once
}

// ConsoleView は描画用のコンソール状態のコピー
type ConsoleView struct {
	Lines   []string
	Prompt  string
	Input   string
	Waiting bool
}

// NewConsole は maxLines 行を保持するコンソールを作る
func NewConsole(maxLines int) *Console {
	if maxLines <= 0 {
		maxLines = DefaultConsoleLines
	}
	return &Console{
		maxLines: maxLines,
		answer:   make(chan string, 1),
		closed:   make(chan struct{}),
	}
}

// Write は出力を追加する。改行を含む場合は複数行になる。
func (c *Console) Write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(strings.Split(text, "\n")...)
}

func (c *Console) appendLocked(lines ...string) {
	c.lines = append(c.lines, lines...)
	if over := len(c.lines) - c.maxLines; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
}

// ClearText は表示中のテキストを消去する
func (c *Console) ClearText() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Request はプロンプトを表示し、ENTER が押されるまでブロックする
func (c *Console) Request(prompt string) (string, error) {
	select {
	case <-c.closed:
		return "", ErrConsoleClosed
	default:
	}

	c.mu.Lock()
	c.prompt = prompt
	c.input = nil
	c.waiting = true
	c.mu.Unlock()

	select {
	case s := <-c.answer:
		return s, nil
	case <-c.closed:
		return "", ErrConsoleClosed
	}
}

// Waiting は入力待ちかどうかを返す
func (c *Console) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// TypeRunes は入力行に文字を追加する。入力待ちでなければ無視する。
func (c *Console) TypeRunes(rs []rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.waiting {
		return
	}
	for _, r := range rs {
		if r >= ' ' && r != 0x7f {
			c.input = append(c.input, r)
		}
	}
}

// Backspace は入力行の最後の1文字を消す
func (c *Console) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiting && len(c.input) > 0 {
		c.input = c.input[:len(c.input)-1]
	}
}

// Submit は入力行を確定して Request に返す。入力待ちでなければ false。
func (c *Console) Submit() bool {
	c.mu.Lock()
	if !c.waiting {
		c.mu.Unlock()
		return false
	}
	s := string(c.input)
	c.appendLocked(c.prompt + s)
	c.waiting = false
	c.prompt = ""
	c.input = nil
	c.mu.Unlock()

	c.answer <- s
	return true
}

// Close は入力待ちを解除する。以降の Request はすぐにエラーを返す。
func (c *Console) Close() {
	c.once.Do(func() { close(c.closed) })
	c.mu.Lock()
	c.waiting = false
	c.mu.Unlock()
}

// View は描画用に現在の状態を返す
func (c *Console) View() ConsoleView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConsoleView{
		Lines:   append([]string(nil), c.lines...),
		Prompt:  c.prompt,
		Input:   string(c.input),
		Waiting: c.waiting,
	}
}
