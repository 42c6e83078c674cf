package script

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func encode(t *testing.T, enc encoding.Encoding, s string) []byte {
	t.Helper()
	out, _, err := transform.String(enc.NewEncoder(), s)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return []byte(out)
}

func TestLoad_UTF8(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "hello.tc")
	testContent := "T:Hello World\nE:"

	if err := os.WriteFile(testFile, []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	script, err := NewLoader("").Load(testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.FileName != "hello.tc" {
		t.Errorf("expected filename 'hello.tc', got %q", script.FileName)
	}
	if script.Content != testContent {
		t.Errorf("content mismatch:\nexpected: %q\ngot: %q", testContent, script.Content)
	}
	if script.Size != int64(len(testContent)) {
		t.Errorf("size = %d", script.Size)
	}
}

func TestLoad_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	if _, err := NewLoader("auto").Load(filepath.Join(tmpDir, "missing.tc")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := NewLoader("auto").Load(tmpDir); err == nil {
		t.Error("expected error for directory")
	}
	path := filepath.Join(tmpDir, "a.tc")
	if err := os.WriteFile(path, []byte("T:x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader("ebcdic").Load(path); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}

func TestDecode(t *testing.T) {
	const text = "T:こんにちは世界\nE:"
	tests := []struct {
		name     string
		data     func(t *testing.T) []byte
		encoding string
		want     string
	}{
		{"UTF-8", func(t *testing.T) []byte { return []byte(text) }, "utf-8", text},
		{"UTF-8 BOM", func(t *testing.T) []byte { return append([]byte{0xEF, 0xBB, 0xBF}, text...) }, "auto", text},
		{"Shift-JIS指定", func(t *testing.T) []byte { return encode(t, japanese.ShiftJIS, text) }, "shift-jis", text},
		{"Shift-JIS自動判定", func(t *testing.T) []byte { return encode(t, japanese.ShiftJIS, text) }, "auto", text},
		{"EUC-JP", func(t *testing.T) []byte { return encode(t, japanese.EUCJP, text) }, "euc-jp", text},
		{"Windows-1252", func(t *testing.T) []byte { return encode(t, charmap.Windows1252, "T:café") }, "windows-1252", "T:café"},
		{
			"UTF-16LE BOMが指定より優先",
			func(t *testing.T) []byte { return encode(t, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), text) },
			"shift-jis",
			text,
		},
		{
			"UTF-16BE BOM",
			func(t *testing.T) []byte { return encode(t, unicode.UTF16(unicode.BigEndian, unicode.UseBOM), text) },
			"auto",
			text,
		},
		{"CRLF", func(t *testing.T) []byte { return []byte("T:a\r\nT:b\rE:") }, "auto", "T:a\nT:b\nE:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data(t), tt.encoding)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"programs/Hello.TC": {Data: []byte("T:hi")},
		"top.tc":            {Data: []byte("T:top")},
	}
	loader := NewLoader("auto")

	tests := []struct {
		name     string
		path     string
		wantFile string
		want     string
	}{
		{"完全一致", "programs/Hello.TC", "Hello.TC", "T:hi"},
		{"大文字小文字を無視", "programs/hello.tc", "Hello.TC", "T:hi"},
		{"ルート", "/TOP.tc", "top.tc", "T:top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := loader.LoadFS(fsys, tt.path)
			if err != nil {
				t.Fatalf("LoadFS() error = %v", err)
			}
			if s.FileName != tt.wantFile || s.Content != tt.want || s.Size != int64(len(tt.want)) {
				t.Errorf("LoadFS() = %+v", s)
			}
		})
	}

	if _, err := loader.LoadFS(fsys, "programs/none.tc"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing error = %v", err)
	}
	if _, err := loader.LoadFS(fsys, "nodir/x.tc"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestNewLoader(t *testing.T) {
	if got := NewLoader("").Encoding(); got != "auto" {
		t.Errorf("default encoding = %q", got)
	}
	if got := NewLoader("Shift-JIS").Encoding(); got != "shift-jis" {
		t.Errorf("encoding = %q", got)
	}
}
