package canvas

import (
	"sort"
	"sync"
)

// Frame はレンダラーに渡す表示リストのコピー
type Frame struct {
	Background string
	Items      []Primitive // Segment, Circle, Rect, Dot, Line, Fill, Image
	Turtle     Turtle
	Sprites    []SpriteUpdate // 名前順
	Particles  []Particle
	HUD        bool
	Version    uint64
	Clears     uint64 // Clear を受け取った回数。Items が作り直されたことの検出用
}

// Canvas はスレッドセーフな表示リスト
// エンジンのゴルーチンが Draw し、Ebitengine のゴルーチンが Snapshot する
type Canvas struct {
	mu sync.Mutex

	size       Size
	background string
	items      []Primitive
	turtle     Turtle
	sprites    map[string]SpriteUpdate
	particles  []Particle
	hud        bool
	snapshots  []string
	version    uint64
	clears     uint64

	images *ImageCache
}

// New は新しい Canvas を作成する
func New(size Size) *Canvas {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &Canvas{
		size:       size,
		background: "white",
		turtle:     Turtle{Heading: 90, Visible: true, Color: "black"},
		sprites:    make(map[string]SpriteUpdate),
		images:     NewImageCache(),
	}
}

// Size はキャンバスサイズを返す
func (c *Canvas) Size() Size {
	return c.size
}

// Images は画像キャッシュを返す
func (c *Canvas) Images() *ImageCache {
	return c.images
}

// Draw はプリミティブを表示リストに反映する（engine.GraphicsSink の実装）
func (c *Canvas) Draw(p Primitive) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := p.(type) {
	case Clear:
		c.clears++
		c.items = nil
		c.particles = nil
		c.sprites = make(map[string]SpriteUpdate)
		if v.Background != "" {
			c.background = v.Background
		}
	case Turtle:
		c.turtle = v
	case SpriteUpdate:
		c.sprites[v.Name] = v
	case Particles:
		c.particles = append(c.particles[:0], v.Points...)
	case HUD:
		c.hud = v.Visible
	case Snapshot:
		c.snapshots = append(c.snapshots, v.Path)
	default:
		c.items = append(c.items, p)
	}
	c.version++
}

// Snapshot は現在の表示リストのコピーを返す
func (c *Canvas) Snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := Frame{
		Background: c.background,
		Items:      append([]Primitive(nil), c.items...),
		Turtle:     c.turtle,
		Particles:  append([]Particle(nil), c.particles...),
		HUD:        c.hud,
		Version:    c.version,
		Clears:     c.clears,
	}
	for _, s := range c.sprites {
		f.Sprites = append(f.Sprites, s)
	}
	sort.Slice(f.Sprites, func(i, j int) bool { return f.Sprites[i].Name < f.Sprites[j].Name })
	return f
}

// Version は表示リストが変更されるたびに増える番号を返す
func (c *Canvas) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// TakeSnapshotRequests は保留中のスナップショット要求を取り出す
// 要求リストは空になる
func (c *Canvas) TakeSnapshotRequests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.snapshots) == 0 {
		return nil
	}
	out := c.snapshots
	c.snapshots = nil
	return out
}

// Len は保持している描画要素の数を返す
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
