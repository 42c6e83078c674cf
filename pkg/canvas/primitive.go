// Package canvas は描画プリミティブと、それを保持する表示リストを提供する。
//
// 座標系の概要
//
//  1. 論理座標系 (Logical Coordinates)
//     - 原点: キャンバス中央 (0, 0)
//     - Y軸: 上向きが正
//     - 用途: タートル、スプライト、パーティクル、すべてのプリミティブ
//
//  2. スクリーン座標系 (Screen Coordinates)
//     - 原点: キャンバスの左上 (0, 0)
//     - Y軸: 下向きが正
//     - 用途: BASICのPSET/LINE/CIRCLE の引数、最終的な描画位置
//
// 変換は Size.ToScreen / Size.ToLogical の一箇所で行う。
package canvas

// Primitive は GraphicsSink に渡される描画要素
type Primitive interface {
	primitive()
}

// Segment はタートルが描いた線分
type Segment struct {
	X1, Y1, X2, Y2 float64
	Color          string
	Width          int
	Style          string // solid, dashed, dotted
}

// Circle は円または円弧（Extent は度数、360で全周）
type Circle struct {
	X, Y   float64
	Radius float64
	Extent float64
	Color  string
	Width  int
	Fill   bool
}

// Rect は矩形（X, Y は左下の角）
type Rect struct {
	X, Y          float64
	Width, Height float64
	Color         string
	PenWidth      int
	Fill          bool
}

// Dot は点
type Dot struct {
	X, Y  float64
	Size  float64
	Color string
}

// Line はBASICのLINE文による直線
type Line struct {
	X1, Y1, X2, Y2 float64
	Color          string
}

// Fill は塗りつぶし要求（PAINT）
type Fill struct {
	X, Y  float64
	Color string
}

// Image は画像の貼り付け（W, H が0なら原寸）
type Image struct {
	Path string
	X, Y float64
	W, H float64
}

// SpriteUpdate はスプライトの定義・移動
type SpriteUpdate struct {
	Name    string
	Path    string
	X, Y    float64
	Visible bool
}

// Turtle はタートルカーソルの状態
type Turtle struct {
	X, Y    float64
	Heading float64
	Visible bool
	Color   string
}

// Particle はパーティクル1個の描画情報
type Particle struct {
	X, Y  float64
	Size  float64
	Color string
}

// Particles は現在生存しているパーティクル全体（毎回置き換え）
type Particles struct {
	Points []Particle
}

// HUD はHUD表示の切り替え
type HUD struct {
	Visible bool
}

// Clear はキャンバスの消去
type Clear struct {
	Background string
}

// Snapshot はスナップショット保存の要求
type Snapshot struct {
	Path string
}

func (Segment) primitive()      {}
func (Circle) primitive()       {}
func (Rect) primitive()         {}
func (Dot) primitive()          {}
func (Line) primitive()         {}
func (Fill) primitive()         {}
func (Image) primitive()        {}
func (SpriteUpdate) primitive() {}
func (Turtle) primitive()       {}
func (Particles) primitive()    {}
func (HUD) primitive()          {}
func (Clear) primitive()        {}
func (Snapshot) primitive()     {}

// Size はキャンバスの大きさ
type Size struct {
	Width, Height int
}

// DefaultSize はデフォルトのキャンバスサイズ
var DefaultSize = Size{Width: 640, Height: 480}

// ToScreen は論理座標をスクリーン座標に変換する
func (s Size) ToScreen(x, y float64) (float64, float64) {
	return x + float64(s.Width)/2, float64(s.Height)/2 - y
}

// ToLogical はスクリーン座標を論理座標に変換する
func (s Size) ToLogical(x, y float64) (float64, float64) {
	return x - float64(s.Width)/2, float64(s.Height)/2 - y
}
