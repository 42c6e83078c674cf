package canvas

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
)

// BMP圧縮方式
const (
	biRLE8 = 1
	biRLE4 = 2
)

type bmpHeader struct {
	Signature  [2]byte
	FileSize   uint32
	Reserved   uint32
	DataOffset uint32

	HeaderSize  uint32
	Width       int32
	Height      int32 // 負の場合はトップダウン
	Planes      uint16
	BitCount    uint16
	Compression uint32
	ImageSize   uint32
	XPPM        int32
	YPPM        int32
	ColorsUsed  uint32
	Important   uint32
}

// DecodeBMP はRLE8/RLE4圧縮のBMPをデコードする
// 非圧縮BMPは image.Decode（golang.org/x/image/bmp）で扱う
func DecodeBMP(r io.Reader) (image.Image, error) {
	var h bmpHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read BMP header: %w", err)
	}
	if h.Signature != [2]byte{'B', 'M'} {
		return nil, fmt.Errorf("invalid BMP signature: %q", h.Signature[:])
	}

	var bits uint
	switch {
	case h.Compression == biRLE8 && h.BitCount == 8:
		bits = 8
	case h.Compression == biRLE4 && h.BitCount == 4:
		bits = 4
	default:
		return nil, fmt.Errorf("unsupported BMP: compression %d, depth %d", h.Compression, h.BitCount)
	}

	n := int(h.ColorsUsed)
	if n == 0 {
		n = 1 << bits
	}
	palette := make(color.Palette, n)
	for i := range palette {
		var bgra [4]byte
		if _, err := io.ReadFull(r, bgra[:]); err != nil {
			return nil, fmt.Errorf("failed to read palette entry %d: %w", i, err)
		}
		palette[i] = color.RGBA{R: bgra[2], G: bgra[1], B: bgra[0], A: 0xFF}
	}

	// 14 (ファイルヘッダー) + 40 (情報ヘッダー) + パレット
	if skip := int64(h.DataOffset) - int64(54+4*n); skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("failed to skip to image data: %w", err)
		}
	}

	width, height := int(h.Width), int(h.Height)
	topDown := height < 0
	if topDown {
		height = -height
	}
	d := &rleDecoder{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		palette: palette,
		topDown: topDown,
	}
	if err := d.decode(r, bits); err != nil {
		return nil, err
	}
	return d.img, nil
}

type rleDecoder struct {
	img     *image.RGBA
	palette color.Palette
	topDown bool
	x, y    int
}

// plot は現在位置にパレット番号 idx の色を置き、x を進める
func (d *rleDecoder) plot(idx uint8) {
	b := d.img.Bounds()
	if d.x < b.Dx() && d.y < b.Dy() && int(idx) < len(d.palette) {
		y := d.y
		if !d.topDown {
			y = b.Dy() - 1 - d.y
		}
		d.img.Set(d.x, y, d.palette[idx])
	}
	d.x++
}

// nibble は4ビットRLEの i 番目のピクセル値を返す
func nibble(b byte, i int) uint8 {
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

// decode はRLEデータを読む
//   - 先頭バイトが0以外: 次のバイトを繰り返す
//   - 0,0: 行末 / 0,1: 終了 / 0,2: デルタ
//   - 0,n: 絶対モード（n ピクセル、2バイト境界に揃える）
func (d *rleDecoder) decode(r io.Reader, bits uint) error {
	for {
		var pair [2]byte
		if _, err := io.ReadFull(r, pair[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read RLE data: %w", err)
		}
		count, value := int(pair[0]), pair[1]

		if count > 0 {
			for i := 0; i < count; i++ {
				if bits == 8 {
					d.plot(value)
				} else {
					d.plot(nibble(value, i))
				}
			}
			continue
		}

		switch value {
		case 0:
			d.x = 0
			d.y++
		case 1:
			return nil
		case 2:
			var delta [2]byte
			if _, err := io.ReadFull(r, delta[:]); err != nil {
				return fmt.Errorf("failed to read RLE delta: %w", err)
			}
			d.x += int(delta[0])
			d.y += int(delta[1])
		default:
			pixels := int(value)
			size := pixels
			if bits == 4 {
				size = (pixels + 1) / 2
			}
			// 2バイト境界へのパディングを含めて読む
			buf := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, buf); err != nil {
				return fmt.Errorf("failed to read RLE absolute run: %w", err)
			}
			for i := 0; i < pixels; i++ {
				if bits == 8 {
					d.plot(buf[i])
				} else {
					d.plot(nibble(buf[i/2], i))
				}
			}
		}
	}
}
