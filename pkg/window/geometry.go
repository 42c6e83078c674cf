package window

import (
	"image/color"
	"math"
)

// 線種ごとの描画長と間隔（ピクセル）
var dashPatterns = map[string][2]float64{
	"dashed": {8, 4},
	"dotted": {2, 3},
}

// dashes は線分を線種に従って分割する。solid や未知の線種は1本のまま返す。
func dashes(x1, y1, x2, y2 float64, style string) [][4]float64 {
	pattern, ok := dashPatterns[style]
	if !ok {
		return [][4]float64{{x1, y1, x2, y2}}
	}
	length := math.Hypot(x2-x1, y2-y1)
	if length == 0 {
		return nil
	}
	ux, uy := (x2-x1)/length, (y2-y1)/length
	var out [][4]float64
	for d := 0.0; d < length; d += pattern[0] + pattern[1] {
		e := math.Min(d+pattern[0], length)
		out = append(out, [4]float64{x1 + ux*d, y1 + uy*d, x1 + ux*e, y1 + uy*e})
	}
	return out
}

// arcPoints は中心 (cx, cy)、半径 r の円弧を折れ線の頂点で返す（スクリーン座標）。
// 東から反時計回りに extent 度。
func arcPoints(cx, cy, r, extent float64) [][2]float64 {
	steps := max(8, int(math.Abs(extent)/5))
	out := make([][2]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := extent * float64(i) / float64(steps) * math.Pi / 180
		out = append(out, [2]float64{cx + r*math.Cos(a), cy - r*math.Sin(a)})
	}
	return out
}

// turtlePoints はタートルカーソルの三角形（先端、左、右）を返す。
// heading は度数で 90 が上。
func turtlePoints(x, y, heading float64) [3][2]float64 {
	const length, back = 12.0, 7.0
	rad := heading * math.Pi / 180
	tip := [2]float64{x + length*math.Cos(rad), y - length*math.Sin(rad)}
	left := rad + 140*math.Pi/180
	right := rad - 140*math.Pi/180
	return [3][2]float64{
		tip,
		{x + back*math.Cos(left), y - back*math.Sin(left)},
		{x + back*math.Cos(right), y - back*math.Sin(right)},
	}
}

// floodFill は RGBA ピクセル列 pix の (x, y) から4近傍で同じ色の領域を c で塗る。
// 塗ったピクセル数を返す。
func floodFill(pix []byte, w, h, x, y int, c color.RGBA) int {
	if x < 0 || y < 0 || x >= w || y >= h || len(pix) < w*h*4 {
		return 0
	}
	at := func(px, py int) int { return (py*w + px) * 4 }
	i := at(x, y)
	target := [4]byte{pix[i], pix[i+1], pix[i+2], pix[i+3]}
	fill := [4]byte{c.R, c.G, c.B, c.A}
	if target == fill {
		return 0
	}

	count := 0
	stack := [][2]int{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p[0] < 0 || p[1] < 0 || p[0] >= w || p[1] >= h {
			continue
		}
		j := at(p[0], p[1])
		if [4]byte{pix[j], pix[j+1], pix[j+2], pix[j+3]} != target {
			continue
		}
		copy(pix[j:j+4], fill[:])
		count++
		stack = append(stack,
			[2]int{p[0] + 1, p[1]}, [2]int{p[0] - 1, p[1]},
			[2]int{p[0], p[1] + 1}, [2]int{p[0], p[1] - 1})
	}
	return count
}

// wrapText は cols 文字ごとに折り返す
func wrapText(s string, cols int) []string {
	rs := []rune(s)
	if cols <= 0 || len(rs) <= cols {
		return []string{s}
	}
	var out []string
	for len(rs) > cols {
		out = append(out, string(rs[:cols]))
		rs = rs[cols:]
	}
	return append(out, string(rs))
}
