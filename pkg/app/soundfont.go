package app

import (
	"io/fs"
	"path"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/templecode/pkg/audio"
	"github.com/zurustar/templecode/pkg/catalog"
)

// SoundFontLocation はSF2ファイルの場所
type SoundFontLocation struct {
	Path       string
	FileSystem fs.FS // 外部ファイルの場合は nil
	IsEmbedded bool
}

// findSoundFont は以下の優先順位でSF2ファイルを探す
//  1. 設定ファイルまたは --soundfont で指定されたパス
//  2. 組み込みプログラムと同じディレクトリ
//  3. カレントディレクトリ
//  4. 外部プログラムと同じディレクトリ
func (app *Application) findSoundFont(p *catalog.Program) *SoundFontLocation {
	if app.config.Audio.SoundFont != "" {
		return &SoundFontLocation{Path: app.config.Audio.SoundFont}
	}

	if p != nil && p.IsEmbedded && app.programs != nil {
		sf := path.Join(path.Dir(p.Path), audio.DefaultSoundFontName)
		if info, err := fs.Stat(app.programs, sf); err == nil && !info.IsDir() {
			return &SoundFontLocation{Path: sf, FileSystem: app.programs, IsEmbedded: true}
		}
	}

	dirs := []string{"."}
	if p != nil && !p.IsEmbedded {
		dirs = append(dirs, p.BaseDir())
	}
	if found := audio.FindSoundFont(dirs...); found != "" {
		return &SoundFontLocation{Path: found}
	}
	return nil
}

// loadSoundFont はSF2ファイルを読み込む。見つからない、または読めない場合は
// nil を返し、正弦波で演奏する。
func (app *Application) loadSoundFont(p *catalog.Program) *meltysynth.SoundFont {
	loc := app.findSoundFont(p)
	if loc == nil {
		app.log.Debug("no SoundFont found, using sine voice")
		return nil
	}
	sf, err := audio.LoadSoundFont(loc.FileSystem, loc.Path)
	if err != nil {
		app.log.Warn("failed to load SoundFont", "path", loc.Path, "error", err)
		return nil
	}
	app.log.Info("SoundFont loaded", "path", loc.Path, "embedded", loc.IsEmbedded)
	return sf
}
