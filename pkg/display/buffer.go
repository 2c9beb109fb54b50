package display

import (
	"image"
	"image/color"
)

// Buffer is an in-memory RGB565 panel. It stands in for the TFT in the
// simulator and in tests.
type Buffer struct {
	width  int
	height int
	pix    []byte // little-endian RGB565
	frames int
}

// NewBuffer returns a black w x h buffer.
func NewBuffer(w, h int) *Buffer {
	return &Buffer{width: w, height: h, pix: make([]byte, w*h*2)}
}

func (b *Buffer) Size() (x, y int16) {
	return int16(b.width), int16(b.height)
}

func (b *Buffer) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= b.width || iy < 0 || iy >= b.height {
		return
	}
	p := rgb565From888(c.R, c.G, c.B)
	off := (iy*b.width + ix) * 2
	b.pix[off] = byte(p)
	b.pix[off+1] = byte(p >> 8)
}

// Display counts presented frames. The pixels are already in place.
func (b *Buffer) Display() error {
	b.frames++
	return nil
}

// FillRectangle paints a clipped rectangle.
func (b *Buffer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0, y0 := clamp(int(x), 0, b.width), clamp(int(y), 0, b.height)
	x1, y1 := clamp(int(x)+int(width), 0, b.width), clamp(int(y)+int(height), 0, b.height)
	p := rgb565From888(c.R, c.G, c.B)
	lo, hi := byte(p), byte(p>>8)
	for py := y0; py < y1; py++ {
		row := py * b.width * 2
		for px := x0; px < x1; px++ {
			b.pix[row+px*2] = lo
			b.pix[row+px*2+1] = hi
		}
	}
	return nil
}

// At returns the pixel at (x, y) expanded back to 8 bits per channel.
func (b *Buffer) At(x, y int) color.RGBA {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return color.RGBA{}
	}
	off := (y*b.width + x) * 2
	r, g, bl := rgb888From565(uint16(b.pix[off]) | uint16(b.pix[off+1])<<8)
	return color.RGBA{r, g, bl, 255}
}

// Frames returns how many times Display was called.
func (b *Buffer) Frames() int {
	return b.frames
}

// CopyRGBA expands the buffer into dst, which must match its size.
func (b *Buffer) CopyRGBA(dst *image.RGBA) {
	src := b.pix
	out := dst.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(out); i += 2 {
		r, g, bl := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		out[j+0] = r
		out[j+1] = g
		out[j+2] = bl
		out[j+3] = 0xFF
	}
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func rgb888From565(p uint16) (r, g, b uint8) {
	r5 := uint8(p >> 11 & 0x1F)
	g6 := uint8(p >> 5 & 0x3F)
	b5 := uint8(p & 0x1F)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
