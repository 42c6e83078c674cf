package canvas

import (
	"image/color"
	"strconv"
	"strings"
)

// 名前付きの色（小文字）
var namedColors = map[string]int{
	"black":      0x000000,
	"blue":       0x0000ff,
	"red":        0xff0000,
	"green":      0x008000,
	"yellow":     0xffff00,
	"magenta":    0xff00ff,
	"cyan":       0x00ffff,
	"white":      0xffffff,
	"gray":       0x808080,
	"grey":       0x808080,
	"orange":     0xffa500,
	"purple":     0x800080,
	"brown":      0xa52a2a,
	"pink":       0xffc0cb,
	"lightblue":  0xadd8e6,
	"lightgreen": 0x90ee90,
	"darkgray":   0x404040,
	"navy":       0x000080,
	"lime":       0x00ff00,
}

// ColorFromInt は 0xRRGGBB 形式の整数を color.RGBA に変換する
func ColorFromInt(c int) color.RGBA {
	return color.RGBA{
		R: uint8((c >> 16) & 0xFF),
		G: uint8((c >> 8) & 0xFF),
		B: uint8(c & 0xFF),
		A: 0xFF,
	}
}

// ColorToInt は color.Color を 0xRRGGBB 形式に変換する
func ColorToInt(c color.Color) int {
	r, g, b, _ := c.RGBA()
	// RGBA() は16ビット値を返すので8ビットに落とす
	return int(r>>8)<<16 | int(g>>8)<<8 | int(b>>8)
}

// ParseColor は色名、#rrggbb、#rgb を解釈する
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return ColorFromInt(c), true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return ColorFromInt(int(v)), true
}

// IsColor は s が色として解釈できるかを返す
func IsColor(s string) bool {
	_, ok := ParseColor(s)
	return ok
}

// MustColor は ParseColor の結果を返す。解釈できない場合は黒
func MustColor(s string) color.RGBA {
	c, ok := ParseColor(s)
	if !ok {
		return color.RGBA{A: 0xFF}
	}
	return c
}
