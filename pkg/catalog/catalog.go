// Package catalog は実行可能なプログラム（組み込みデモと外部ファイル）を管理する
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zurustar/templecode/pkg/script"
)

// ErrNoPrograms は選択可能なプログラムが無いことを示す
var ErrNoPrograms = errors.New("no programs available")

// Extension はプログラムファイルの拡張子
const Extension = ".tc"

// Program は実行可能なプログラムを表す
type Program struct {
	Name       string    // ファイル名（拡張子なし）
	Path       string    // パス（embedの場合はfs.FS内のパス）
	IsEmbedded bool      // 組み込みプログラムかどうか
	Metadata   *Metadata // コメント行から抽出したメタデータ
}

// Metadata はREM @key 形式のコメントから抽出した情報
type Metadata struct {
	Title  string
	Author string
	About  string
	Notes  []string
}

// Registry はプログラム一覧を保持する
type Registry struct {
	fsys     fs.FS
	embedded []Program
	external *Program
	loader   *script.Loader
}

// NewRegistry はfsys内のdirにある .tc ファイルを組み込みプログラムとして登録する
func NewRegistry(fsys fs.FS, dir string, loader *script.Loader) *Registry {
	if loader == nil {
		loader = script.NewLoader("auto")
	}
	r := &Registry{fsys: fsys, loader: loader}
	if fsys != nil {
		r.loadEmbedded(dir)
	}
	return r
}

// loadEmbedded 組み込みプログラムを検出して読み込む
func (r *Registry) loadEmbedded(dir string) {
	entries, err := fs.ReadDir(r.fsys, dir)
	if err != nil {
		// ディレクトリが無い場合は何もしない
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), Extension) {
			continue
		}
		p := Program{
			Name:       strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())),
			Path:       path.Join(dir, entry.Name()),
			IsEmbedded: true,
			Metadata:   &Metadata{},
		}
		if s, err := r.loader.LoadFS(r.fsys, p.Path); err == nil {
			p.Metadata = ExtractMetadata(s.Content)
		}
		r.embedded = append(r.embedded, p)
	}
	sort.Slice(r.embedded, func(i, j int) bool { return r.embedded[i].Name < r.embedded[j].Name })
}

// LoadExternal 外部のプログラムファイルを登録する
// 登録後は外部プログラムのみが選択対象になる
func (r *Registry) LoadExternal(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("program file does not exist: %s: %w", filePath, err)
		}
		return fmt.Errorf("failed to access program file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("program path is a directory: %s", filePath)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	s, err := r.loader.Load(absPath)
	if err != nil {
		return err
	}

	base := filepath.Base(absPath)
	r.external = &Program{
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Path:     absPath,
		Metadata: ExtractMetadata(s.Content),
	}
	return nil
}

// Programs 利用可能なプログラム一覧を取得
func (r *Registry) Programs() []Program {
	if r.external != nil {
		return []Program{*r.external}
	}
	return append([]Program(nil), r.embedded...)
}

// Select プログラムを選択（単一の場合は自動選択）
// 戻り値: (選択されたプログラム, 選択画面が必要か, エラー)
func (r *Registry) Select() (*Program, bool, error) {
	programs := r.Programs()
	switch len(programs) {
	case 0:
		return nil, false, ErrNoPrograms
	case 1:
		return &programs[0], false, nil
	}
	return nil, true, nil
}

// Source はプログラムのソースを読み込む
func (r *Registry) Source(p *Program) (*script.Script, error) {
	if p.IsEmbedded {
		if r.fsys == nil {
			return nil, fmt.Errorf("embedded program %s: no file system", p.Name)
		}
		return r.loader.LoadFS(r.fsys, p.Path)
	}
	return r.loader.Load(p.Path)
}

// BaseDir はプログラムが参照する画像や音声の相対パスの基準ディレクトリ
// 組み込みプログラムの場合は空文字列
func (p *Program) BaseDir() string {
	if p.IsEmbedded {
		return ""
	}
	return filepath.Dir(p.Path)
}

// DisplayName はプログラムの表示名を返す
// @titleがあればそれを、なければファイル名を返す
func (p *Program) DisplayName() string {
	if p.Metadata != nil && p.Metadata.Title != "" {
		return p.Metadata.Title
	}
	return p.Name
}

// ExtractMetadata はコメント行（REM または '）の @key value を抽出する
// 行番号付きの行にも対応する
func ExtractMetadata(content string) *Metadata {
	metadata := &Metadata{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimLeft(line, "0123456789")
		line = strings.TrimSpace(line)

		var rest string
		switch {
		case strings.HasPrefix(line, "'"):
			rest = line[1:]
		case len(line) >= 3 && strings.EqualFold(line[:3], "REM"):
			rest = line[3:]
		default:
			continue
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "@") {
			continue
		}
		parseDirective(rest[1:], metadata)
	}
	return metadata
}

// parseDirective は "key value" をメタデータに追加する
func parseDirective(s string, metadata *Metadata) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) < 2 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(parts[0]))
	value := strings.TrimSpace(parts[1])
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	switch key {
	case "title":
		if metadata.Title == "" {
			metadata.Title = value
		}
	case "author":
		if metadata.Author == "" {
			metadata.Author = value
		}
	case "about":
		if metadata.About == "" {
			metadata.About = value
		}
	case "note":
		metadata.Notes = append(metadata.Notes, value)
	}
}
