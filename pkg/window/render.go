package window

import (
	"image/color"
	"log/slog"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/zurustar/templecode/pkg/canvas"
)

// Renderer は canvas.Frame を Ebitengine の画像に描画する。
// 線や図形は layer に積み重ね、追加分だけを描く。
// スプライト、パーティクル、タートルは毎フレーム layer の上に重ねる。
type Renderer struct {
	size   canvas.Size
	images *canvas.ImageCache
	log    *slog.Logger

	layer  *ebiten.Image
	target *ebiten.Image
	drawn  int
	clears uint64

	textures map[string]*ebiten.Image
}

// NewRenderer は Renderer を作成する
func NewRenderer(size canvas.Size, images *canvas.ImageCache, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	if images == nil {
		images = canvas.NewImageCache()
	}
	return &Renderer{
		size:     size,
		images:   images,
		log:      log,
		textures: make(map[string]*ebiten.Image),
	}
}

// Render は f を描画した画像を返す。返した画像は次の Render まで有効。
func (r *Renderer) Render(f canvas.Frame) *ebiten.Image {
	if r.layer == nil {
		r.layer = ebiten.NewImage(r.size.Width, r.size.Height)
		r.target = ebiten.NewImage(r.size.Width, r.size.Height)
		r.reset(f)
	}
	// Clear のあとは最初から描き直す
	if f.Clears != r.clears || len(f.Items) < r.drawn {
		r.reset(f)
	}
	for _, p := range f.Items[r.drawn:] {
		r.drawItem(p)
	}
	r.drawn = len(f.Items)

	r.target.Clear()
	r.target.DrawImage(r.layer, nil)
	for _, s := range f.Sprites {
		if s.Visible {
			r.drawSprite(s)
		}
	}
	for _, p := range f.Particles {
		x, y := r.size.ToScreen(p.X, p.Y)
		vector.DrawFilledCircle(r.target, float32(x), float32(y), float32(math.Max(p.Size, 1)), parseColor(p.Color, color.White), true)
	}
	if f.Turtle.Visible {
		r.drawTurtle(f.Turtle)
	}
	return r.target
}

func (r *Renderer) reset(f canvas.Frame) {
	r.layer.Fill(parseColor(f.Background, color.White))
	r.drawn = 0
	r.clears = f.Clears
}

func (r *Renderer) drawItem(p canvas.Primitive) {
	switch v := p.(type) {
	case canvas.Segment:
		x1, y1 := r.size.ToScreen(v.X1, v.Y1)
		x2, y2 := r.size.ToScreen(v.X2, v.Y2)
		c := parseColor(v.Color, color.Black)
		w := float32(max(v.Width, 1))
		for _, d := range dashes(x1, y1, x2, y2, v.Style) {
			vector.StrokeLine(r.layer, float32(d[0]), float32(d[1]), float32(d[2]), float32(d[3]), w, c, true)
		}
	case canvas.Line:
		x1, y1 := r.size.ToScreen(v.X1, v.Y1)
		x2, y2 := r.size.ToScreen(v.X2, v.Y2)
		vector.StrokeLine(r.layer, float32(x1), float32(y1), float32(x2), float32(y2), 1, parseColor(v.Color, color.Black), false)
	case canvas.Circle:
		r.drawCircle(v)
	case canvas.Rect:
		// X, Y は左下の角
		x, y := r.size.ToScreen(v.X, v.Y+v.Height)
		c := parseColor(v.Color, color.Black)
		if v.Fill {
			vector.FillRect(r.layer, float32(x), float32(y), float32(v.Width), float32(v.Height), c, false)
		} else {
			vector.StrokeRect(r.layer, float32(x), float32(y), float32(v.Width), float32(v.Height), float32(max(v.PenWidth, 1)), c, false)
		}
	case canvas.Dot:
		x, y := r.size.ToScreen(v.X, v.Y)
		c := parseColor(v.Color, color.Black)
		if v.Size <= 1 {
			vector.FillRect(r.layer, float32(math.Floor(x)), float32(math.Floor(y)), 1, 1, c, false)
		} else {
			vector.DrawFilledCircle(r.layer, float32(x), float32(y), float32(v.Size/2), c, true)
		}
	case canvas.Fill:
		r.fill(v)
	case canvas.Image:
		tex := r.texture(v.Path)
		if tex == nil {
			return
		}
		op := &ebiten.DrawImageOptions{}
		b := tex.Bounds()
		if v.W > 0 && v.H > 0 {
			op.GeoM.Scale(v.W/float64(b.Dx()), v.H/float64(b.Dy()))
		}
		x, y := r.size.ToScreen(v.X, v.Y)
		op.GeoM.Translate(x, y)
		r.layer.DrawImage(tex, op)
	}
}

func (r *Renderer) drawCircle(v canvas.Circle) {
	x, y := r.size.ToScreen(v.X, v.Y)
	c := parseColor(v.Color, color.Black)
	w := float32(max(v.Width, 1))
	if math.Abs(v.Extent) >= 360 {
		if v.Fill {
			vector.DrawFilledCircle(r.layer, float32(x), float32(y), float32(v.Radius), c, true)
		} else {
			vector.StrokeCircle(r.layer, float32(x), float32(y), float32(v.Radius), w, c, true)
		}
		return
	}
	pts := arcPoints(x, y, v.Radius, v.Extent)
	if v.Fill {
		var path vector.Path
		path.MoveTo(float32(x), float32(y))
		for _, p := range pts {
			path.LineTo(float32(p[0]), float32(p[1]))
		}
		path.Close()
		fillPath(r.layer, &path, c)
		return
	}
	for i := 1; i < len(pts); i++ {
		vector.StrokeLine(r.layer, float32(pts[i-1][0]), float32(pts[i-1][1]), float32(pts[i][0]), float32(pts[i][1]), w, c, true)
	}
}

// fill は PAINT を layer のピクセルに直接適用する
func (r *Renderer) fill(v canvas.Fill) {
	x, y := r.size.ToScreen(v.X, v.Y)
	w, h := r.size.Width, r.size.Height
	pix := make([]byte, 4*w*h)
	r.layer.ReadPixels(pix)
	c, ok := canvas.ParseColor(v.Color)
	if !ok {
		c = color.RGBA{A: 0xff}
	}
	if floodFill(pix, w, h, int(x), int(y), c) > 0 {
		r.layer.WritePixels(pix)
	}
}

func (r *Renderer) drawSprite(s canvas.SpriteUpdate) {
	tex := r.texture(s.Path)
	if tex == nil {
		return
	}
	b := tex.Bounds()
	x, y := r.size.ToScreen(s.X, s.Y)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x-float64(b.Dx())/2, y-float64(b.Dy())/2)
	r.target.DrawImage(tex, op)
}

func (r *Renderer) drawTurtle(t canvas.Turtle) {
	x, y := r.size.ToScreen(t.X, t.Y)
	pts := turtlePoints(x, y, t.Heading)
	var path vector.Path
	path.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	path.LineTo(float32(pts[1][0]), float32(pts[1][1]))
	path.LineTo(float32(pts[2][0]), float32(pts[2][1]))
	path.Close()
	fillPath(r.target, &path, parseColor(t.Color, color.Black))
}

// texture は画像を読み込んで Ebitengine の画像にする。失敗も記録する。
func (r *Renderer) texture(path string) *ebiten.Image {
	if tex, ok := r.textures[path]; ok {
		return tex
	}
	img, err := r.images.Load(path)
	if err != nil {
		r.log.Warn("failed to load image", "path", path, "error", err)
		r.textures[path] = nil
		return nil
	}
	tex := ebiten.NewImageFromImage(img)
	r.textures[path] = tex
	return tex
}

// fillPath はパスを単色で塗りつぶす
func fillPath(dst *ebiten.Image, path *vector.Path, c color.Color) {
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	cr, cg, cb, ca := c.RGBA()
	for i := range vs {
		vs[i].ColorR = float32(cr) / 65535.0
		vs[i].ColorG = float32(cg) / 65535.0
		vs[i].ColorB = float32(cb) / 65535.0
		vs[i].ColorA = float32(ca) / 65535.0
	}
	dst.DrawTriangles(vs, is, whiteImage(), nil)
}

var whitePixel *ebiten.Image

// whiteImage は DrawTriangles 用の1x1の白い画像
func whiteImage() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}
	return whitePixel
}

// parseColor は色名を解釈する。解釈できなければ def を返す。
func parseColor(s string, def color.Color) color.Color {
	if c, ok := canvas.ParseColor(s); ok {
		return c
	}
	return def
}
