// Package console は端末での実行と対話モード（REPL）を提供する。
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// HistoryFile はホームディレクトリに置く履歴ファイル名
const HistoryFile = ".templecode_history"

// ErrInterrupted は入力中に Ctrl-C が押されたことを示す
var ErrInterrupted = errors.New("input interrupted")

// Terminal は engine.OutputSink と engine.InputProvider を端末上に実装する。
// 標準入力が TTY なら liner で行編集し、そうでなければ bufio で読む。
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	line   *liner.State
	reader *bufio.Reader
}

// New は in が端末かどうかで入力方式を選ぶ
func New(in *os.File, out io.Writer) *Terminal {
	if in == os.Stdin && term.IsTerminal(int(in.Fd())) {
		ln := liner.NewLiner()
		ln.SetCtrlCAborts(true)
		return &Terminal{out: out, line: ln}
	}
	return NewPlain(in, out)
}

// NewPlain は行編集なしの Terminal を作る（パイプ入力やテスト用）
func NewPlain(r io.Reader, out io.Writer) *Terminal {
	return &Terminal{out: out, reader: bufio.NewReader(r)}
}

// Interactive は liner を使っているかどうかを返す
func (t *Terminal) Interactive() bool {
	return t.line != nil
}

// Write は1メッセージを1行として出力する
func (t *Terminal) Write(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, text)
}

// ClearText は対話端末のときだけ画面を消去する
func (t *Terminal) ClearText() {
	if !t.Interactive() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, "\x1b[H\x1b[2J")
}

// Request はプロンプトを表示して1行読む。末尾の改行は取り除く。
func (t *Terminal) Request(prompt string) (string, error) {
	if t.line != nil {
		s, err := t.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInterrupted
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(s) != "" {
			t.line.AppendHistory(s)
		}
		return s, nil
	}

	t.mu.Lock()
	fmt.Fprint(t.out, prompt)
	t.mu.Unlock()

	s, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// HistoryPath は履歴ファイルのパスを返す
func HistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, HistoryFile), nil
}

// LoadHistory は履歴を読み込む。ファイルがなければ何もしない。
func (t *Terminal) LoadHistory(path string) error {
	if t.line == nil {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()
	if _, err := t.line.ReadHistory(f); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	return nil
}

// SaveHistory は履歴を書き出す
func (t *Terminal) SaveHistory(path string) error {
	if t.line == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Close は端末モードを元に戻す
func (t *Terminal) Close() error {
	if t.line == nil {
		return nil
	}
	return t.line.Close()
}
