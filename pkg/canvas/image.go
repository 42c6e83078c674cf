package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
)

// ErrEmptyPath は画像パスが空のときのエラー
var ErrEmptyPath = errors.New("empty image path")

type cachedImage struct {
	img image.Image
	err error
}

// ImageCache はデコード済み画像のキャッシュ
// 失敗も記録し、毎フレームの再読み込みを避ける
type ImageCache struct {
	mu      sync.Mutex
	baseDir string
	fsys    fs.FS
	entries map[string]cachedImage
}

// NewImageCache は新しい ImageCache を作成する
func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]cachedImage)}
}

// SetBaseDir は相対パスの基準ディレクトリを設定する
func (c *ImageCache) SetBaseDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseDir = dir
	c.fsys = nil
}

// SetFS は画像の読み込み元を fs.FS に切り替える（埋め込みプログラム用）
func (c *ImageCache) SetFS(fsys fs.FS) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fsys = fsys
}

// Load は画像を読み込んでデコードする
// PNG、JPEG、BMP（RLE圧縮を含む）に対応する
func (c *ImageCache) Load(path string) (image.Image, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		return e.img, e.err
	}
	img, err := c.decode(path)
	c.entries[path] = cachedImage{img: img, err: err}
	return img, err
}

func (c *ImageCache) decode(path string) (image.Image, error) {
	data, err := c.read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	// x/image/bmp はRLE圧縮をサポートしていない
	if strings.EqualFold(filepath.Ext(path), ".bmp") {
		if rle, rleErr := DecodeBMP(bytes.NewReader(data)); rleErr == nil {
			return rle, nil
		}
	}
	return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
}

func (c *ImageCache) read(path string) ([]byte, error) {
	if c.fsys != nil {
		return fs.ReadFile(c.fsys, filepath.ToSlash(path))
	}
	if c.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.baseDir, path)
	}
	return os.ReadFile(path)
}
