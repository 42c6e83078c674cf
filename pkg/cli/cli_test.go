package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/zurustar/templecode/pkg/config"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "デフォルト設定",
			args:     []string{},
			expected: Config{},
		},
		{
			name:     "プログラムファイル指定",
			args:     []string{"hello.tc"},
			expected: Config{ProgramPath: "hello.tc"},
		},
		{
			name:     "タイムアウト指定",
			args:     []string{"--timeout", "10"},
			expected: Config{Timeout: 10},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5"},
			expected: Config{Timeout: 5},
		},
		{
			name:     "ログレベル指定（大文字）",
			args:     []string{"--log-level", "DEBUG"},
			expected: Config{LogLevel: "debug"},
		},
		{
			name:     "ログレベル指定（短縮形）",
			args:     []string{"-l", "error"},
			expected: Config{LogLevel: "error"},
		},
		{
			name:     "ヘッドレスモード",
			args:     []string{"--headless"},
			expected: Config{Headless: true},
		},
		{
			name:     "ヘルプ表示（短縮形）",
			args:     []string{"-h"},
			expected: Config{ShowHelp: true},
		},
		{
			name:     "ブレークポイント",
			args:     []string{"--break", "3, 7", "a.tc"},
			expected: Config{ProgramPath: "a.tc", Breakpoints: []int{3, 7}},
		},
		{
			name:     "イコール形式",
			args:     []string{"--encoding=Shift-JIS", "a.tc"},
			expected: Config{ProgramPath: "a.tc", Encoding: "shift-jis"},
		},
		{
			name: "位置引数が最初（順序に関係なく動作）",
			args: []string{"demo.tc", "--debug", "--max-iterations", "50", "--repl"},
			expected: Config{
				ProgramPath:   "demo.tc",
				Debug:         true,
				MaxIterations: 50,
				REPL:          true,
			},
		},
		{
			name: "複数オプション",
			args: []string{"--list", "--config", "tc.yaml", "--soundfont", "gm.sf2", "--save-dir", "saves"},
			expected: Config{
				List:       true,
				ConfigPath: "tc.yaml",
				SoundFont:  "gm.sf2",
				SaveDir:    "saves",
			},
		},
		{
			name:     "区切り以降は位置引数",
			args:     []string{"--headless", "--", "-odd.tc"},
			expected: Config{Headless: true, ProgramPath: "-odd.tc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got.set = nil
			if !reflect.DeepEqual(*got, tt.expected) {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, *got, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"負のタイムアウト", []string{"--timeout", "-10"}},
		{"無効なログレベル", []string{"--log-level", "invalid"}},
		{"無効なログレベル（短縮形）", []string{"-l", "trace"}},
		{"無効なブレークポイント", []string{"--break", "3,x"}},
		{"ゼロ行のブレークポイント", []string{"--break", "0"}},
		{"負の最大ステップ数", []string{"--max-iterations", "-1"}},
		{"未知のフラグ", []string{"--colour"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Run("指定したフラグのみ上書き", func(t *testing.T) {
		c, err := ParseArgs([]string{"-t", "0", "--soundfont", "gm.sf2", "--break", "2"})
		if err != nil {
			t.Fatal(err)
		}
		cfg := config.Default()
		cfg.Timeout = 30
		cfg.LogLevel = "warn"
		c.Apply(cfg)

		if cfg.Timeout != 0 {
			t.Errorf("Timeout = %d, want 0 (flag overrides)", cfg.Timeout)
		}
		if cfg.LogLevel != "warn" {
			t.Errorf("LogLevel = %q, want warn (unset flag keeps value)", cfg.LogLevel)
		}
		if cfg.Audio.SoundFont != "gm.sf2" {
			t.Errorf("SoundFont = %q", cfg.Audio.SoundFont)
		}
		if !cfg.Engine.Debug || !reflect.DeepEqual(cfg.Engine.Breakpoints, []int{2}) {
			t.Errorf("Engine = %+v", cfg.Engine)
		}
	})

	t.Run("短縮形も指定として扱う", func(t *testing.T) {
		c, err := ParseArgs([]string{"-l", "debug"})
		if err != nil {
			t.Fatal(err)
		}
		if !c.IsSet("log-level") || c.IsSet("timeout") {
			t.Errorf("IsSet mismatch: %v", c.set)
		}
	})

	t.Run("環境変数よりフラグが優先", func(t *testing.T) {
		cfg := config.Default()
		env := map[string]string{"HEADLESS": "1", "LOG_LEVEL": "error"}
		if err := cfg.ApplyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err != nil {
			t.Fatal(err)
		}
		c, err := ParseArgs([]string{"--log-level", "info"})
		if err != nil {
			t.Fatal(err)
		}
		c.Apply(cfg)
		if cfg.LogLevel != "info" || !cfg.Headless {
			t.Errorf("cfg = %+v", cfg)
		}
	})
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"a.tc", "--headless", "-t", "3", "--debug", "b"})
	want := []string{"--headless", "-t", "3", "--debug", "--", "a.tc", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reorderArgs() = %q, want %q", got, want)
	}
}

func TestFprintHelp(t *testing.T) {
	var buf bytes.Buffer
	FprintHelp(&buf)
	for _, flag := range []string{"--timeout", "--break", "--repl", "--list", "TEMPLECODE_SAVE_DIR"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help missing %s", flag)
		}
	}
}
