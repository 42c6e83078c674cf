package script

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Script はプログラムファイルを表す
type Script struct {
	FileName string // ファイル名
	Content  string // UTF-8に変換された内容
	Size     int64  // ファイルサイズ
}

// Loader はプログラムファイルの読み込みを行う
type Loader struct {
	encoding string
}

// NewLoader は文字コード名（auto, utf-8, shift-jis, euc-jp, windows-1252）を指定してLoaderを作成
func NewLoader(encodingName string) *Loader {
	if encodingName == "" {
		encodingName = "auto"
	}
	return &Loader{encoding: strings.ToLower(encodingName)}
}

// Encoding は設定された文字コード名を返す
func (l *Loader) Encoding() string {
	return l.encoding
}

// Load 単一のプログラムファイルを読み込む
func (l *Loader) Load(filePath string) (*Script, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("not a program file: %s is a directory", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, err := Decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}

	return &Script{
		FileName: filepath.Base(filePath),
		Content:  content,
		Size:     info.Size(),
	}, nil
}

// LoadFS はfs.FS（embed.FSなど）からプログラムを読み込む
// 名前は大文字小文字を無視して解決する
func (l *Loader) LoadFS(fsys fs.FS, name string) (*Script, error) {
	actual, err := findFileCaseInsensitiveFS(fsys, name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, actual)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	content, err := Decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}
	return &Script{
		FileName: path.Base(actual),
		Content:  content,
		Size:     int64(len(data)),
	}, nil
}

// Decode はバイト列を指定の文字コードからUTF-8に変換する
// UTF-16のBOMがある場合は指定より優先する。改行はLFに揃える
func Decode(data []byte, encodingName string) (string, error) {
	var enc encoding.Encoding

	switch {
	case hasUTF16BOM(data):
		enc = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(data, utf8BOM):
		data = data[len(utf8BOM):]
		enc = unicode.UTF8
	default:
		var err error
		enc, err = lookup(encodingName, data)
		if err != nil {
			return "", err
		}
	}

	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", encodingName, err)
	}

	content := strings.ReplaceAll(string(utf8Data), "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n"), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 &&
		((data[0] == 0xFE && data[1] == 0xFF) || (data[0] == 0xFF && data[1] == 0xFE))
}

// lookup 文字コード名からエンコーディングを取得する
// autoは妥当なUTF-8ならUTF-8、そうでなければShift-JISとみなす
func lookup(name string, data []byte) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		if utf8.Valid(data) {
			return unicode.UTF8, nil
		}
		return japanese.ShiftJIS, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "shift-jis", "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	case "euc-jp", "eucjp":
		return japanese.EUCJP, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s", name)
}

// findFileCaseInsensitiveFS 大文字小文字を無視してファイルを検索し、実際のパスを返す
func findFileCaseInsensitiveFS(fsys fs.FS, name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if _, err := fs.Stat(fsys, name); err == nil {
		return name, nil
	}

	dir, base := path.Split(name)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), base) {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", base, dir, fs.ErrNotExist)
}
