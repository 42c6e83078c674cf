package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zurustar/templecode/pkg/config"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ProgramPath   string // 実行するプログラムファイル（省略時は組み込みデモから選択）
	ConfigPath    string // YAML設定ファイル
	Timeout       int    // タイムアウト時間（秒、0は無制限）
	LogLevel      string // ログレベル（debug, info, warn, error）
	Headless      bool   // ヘッドレスモード
	MaxIterations int    // 最大実行ステップ数
	Debug         bool   // デバッグモード（ブレークポイント有効）
	Breakpoints   []int  // ブレークポイント（1始まりの行番号）
	Encoding      string // ソースの文字コード
	SoundFont     string // SoundFontファイル
	SaveDir       string // セッション保存先
	REPL          bool   // 対話モード
	List          bool   // 組み込みプログラム一覧を表示
	ShowHelp      bool   // ヘルプ表示フラグ

	set map[string]bool
}

// 値を取らないフラグ
var boolFlags = map[string]bool{
	"h": true, "help": true,
	"headless": true,
	"debug":    true,
	"repl":     true,
	"list":     true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("templecode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	c := &Config{}
	var breaks string

	fs.IntVar(&c.Timeout, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&c.Timeout, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&c.LogLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&c.LogLevel, "l", "", "ログレベル（短縮形）")
	fs.BoolVar(&c.Headless, "headless", false, "ヘッドレスモード")
	fs.IntVar(&c.MaxIterations, "max-iterations", 0, "最大実行ステップ数")
	fs.BoolVar(&c.Debug, "debug", false, "デバッグモード")
	fs.StringVar(&breaks, "break", "", "ブレークポイント（カンマ区切りの行番号）")
	fs.StringVar(&c.Encoding, "encoding", "", "ソースの文字コード")
	fs.StringVar(&c.ConfigPath, "config", "", "YAML設定ファイル")
	fs.StringVar(&c.SoundFont, "soundfont", "", "SoundFontファイル")
	fs.StringVar(&c.SaveDir, "save-dir", "", "セッション保存ディレクトリ")
	fs.BoolVar(&c.REPL, "repl", false, "対話モード")
	fs.BoolVar(&c.List, "list", false, "組み込みプログラム一覧")
	fs.BoolVar(&c.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&c.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 明示的に指定されたフラグを記録（短縮形は正式名に寄せる）
	c.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			c.set["timeout"] = true
		case "l":
			c.set["log-level"] = true
		case "h":
			c.set["help"] = true
		default:
			c.set[f.Name] = true
		}
	})

	if breaks != "" {
		lines, err := parseBreakpoints(breaks)
		if err != nil {
			return nil, err
		}
		c.Breakpoints = lines
	}

	if c.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", c.Timeout)
	}
	if c.LogLevel != "" {
		c.LogLevel = strings.ToLower(c.LogLevel)
		switch c.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
		}
	}
	if c.MaxIterations < 0 {
		return nil, fmt.Errorf("max-iterations must be non-negative, got %d", c.MaxIterations)
	}
	if c.Encoding != "" {
		c.Encoding = strings.ToLower(c.Encoding)
	}

	if fs.NArg() > 0 {
		c.ProgramPath = fs.Arg(0)
	}
	return c, nil
}

// IsSet は指定名のフラグがコマンドラインで与えられたかを返す
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

// Apply は明示されたフラグだけを設定に上書きする
func (c *Config) Apply(cfg *config.Config) {
	if c.IsSet("timeout") {
		cfg.Timeout = c.Timeout
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.LogLevel
	}
	if c.IsSet("headless") {
		cfg.Headless = c.Headless
	}
	if c.IsSet("max-iterations") {
		cfg.Engine.MaxIterations = c.MaxIterations
	}
	if c.IsSet("debug") {
		cfg.Engine.Debug = c.Debug
	}
	if c.IsSet("break") {
		cfg.Engine.Breakpoints = append([]int(nil), c.Breakpoints...)
		// ブレークポイント指定はデバッグモードを伴う
		cfg.Engine.Debug = true
	}
	if c.IsSet("encoding") {
		cfg.Encoding = c.Encoding
	}
	if c.IsSet("soundfont") {
		cfg.Audio.SoundFont = c.SoundFont
	}
	if c.IsSet("save-dir") {
		cfg.Session.Dir = c.SaveDir
	}
}

func parseBreakpoints(s string) ([]int, error) {
	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid breakpoint %q: must be a positive line number", part)
		}
		lines = append(lines, n)
	}
	return lines, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") {
				continue
			}
			// 次の引数が値である可能性をチェック（-t 5 のような場合）
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' && !boolFlags[name] {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置（区切りで位置引数をフラグ扱いさせない）
	if len(positional) == 0 {
		return flags
	}
	flags = append(flags, "--")
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	FprintHelp(os.Stdout)
}

// FprintHelp ヘルプメッセージを指定の出力先へ書く
func FprintHelp(w io.Writer) {
	fmt.Fprint(w, `templecode - PILOT / BASIC / Logo Interpreter

Usage:
  templecode [options] [program-file]

Arguments:
  program-file  実行するプログラムファイル（省略可）
                省略した場合、組み込みデモから選択する

Options:
  -t, --timeout <seconds>     指定秒数後にプログラムを停止（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし）
  --max-iterations <n>        最大実行ステップ数（デフォルト: 10000）
  --debug                     デバッグモード（ブレークポイント有効）
  --break <lines>             ブレークポイント（例: 3,7）
  --encoding <name>           文字コード: auto, utf-8, shift-jis, euc-jp, windows-1252
  --config <file>             YAML設定ファイル
  --soundfont <file>          SoundFont（.sf2）ファイル
  --save-dir <dir>            セッション保存ディレクトリ
  --repl                      対話モード
  --list                      組み込みプログラムの一覧を表示
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  TEMPLECODE_ENCODING=<name>  ソースの文字コード
  TEMPLECODE_SAVE_DIR=<dir>   セッション保存ディレクトリ

Examples:
  templecode                          組み込みデモから選択
  templecode hello.tc                 ファイルを実行
  templecode --headless -t 10 a.tc    ヘッドレスで10秒後に停止
  templecode --break 3,7 a.tc         3行目と7行目で停止
  templecode --repl                   対話モード
`)
}
