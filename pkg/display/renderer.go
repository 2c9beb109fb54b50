package display

import (
	"image/color"

	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

// Renderer draws and erases page objects.
type Renderer interface {
	Clear()
	Draw(o *Object)
	Erase(o *Object)
	Flush() error
}

// Screen is a panel that can fill rectangles in one transfer. The ili9341
// driver and Buffer both satisfy it.
type Screen interface {
	drivers.Displayer
	FillRectangle(x, y, width, height int16, c color.RGBA) error
}

// TFT renders objects onto a Screen with tinyfont text and tinydraw shapes.
type TFT struct {
	screen Screen
	bg     color.RGBA
}

// NewTFT returns a renderer drawing on s.
func NewTFT(s Screen) *TFT {
	return &TFT{screen: s, bg: Black}
}

func fontFor(f Font) (tinyfont.Fonter, int16) {
	switch f {
	case FontBody:
		return &freemono.Regular9pt7b, 14
	case FontTitle:
		return &freemono.Bold12pt7b, 18
	case FontDigit:
		return &freemono.Bold18pt7b, 25
	}
	return &proggy.TinySZ8pt7b, 7
}

// Clear fills the whole panel with the background color.
func (t *TFT) Clear() {
	w, h := t.screen.Size()
	t.screen.FillRectangle(0, 0, w, h, t.bg)
}

// Draw paints o.
func (t *TFT) Draw(o *Object) {
	switch o.Kind {
	case KindText:
		t.fill(o.Rect, o.Style.BG)
		t.text(o.Rect, o.Font, o.Text, o.Style.FG, false)
	case KindBox:
		t.fill(o.Rect, o.Style.BG)
		tinydraw.Rectangle(t.screen, o.Rect.X0, o.Rect.Y0, o.Rect.Width(), o.Rect.Height(), o.Style.FG)
		t.text(o.Rect, o.Font, o.Text, o.Style.FG, true)
	case KindListRow:
		t.fill(o.Rect, o.Style.BG)
		tinydraw.Line(t.screen, o.Rect.X0, o.Rect.Y1, o.Rect.X1, o.Rect.Y1, Gray)
		t.text(o.Rect, o.Font, o.Text, o.Style.FG, false)
	case KindButtonRow:
		t.fill(o.Rect, o.Style.BG)
		r := (o.Rect.Height() - 12) / 2
		cx := o.Rect.X0 + r + 4
		cy := o.Rect.Y0 + o.Rect.Height()/2
		tinydraw.Circle(t.screen, cx, cy, r, o.Style.FG)
		if o.Selected {
			tinydraw.FilledCircle(t.screen, cx, cy, r-3, o.Style.FG)
		}
		label := o.Rect
		label.X0 = cx + r + 6
		t.text(label, o.Font, o.Text, o.Style.FG, false)
	case KindTriangle, KindCursor:
		p := t.offset(o)
		tinydraw.FilledTriangle(t.screen, p[0].X, p[0].Y, p[1].X, p[1].Y, p[2].X, p[2].Y, o.Style.FG)
	}
}

// Erase paints over o with the panel background.
func (t *TFT) Erase(o *Object) {
	switch o.Kind {
	case KindTriangle, KindCursor:
		p := t.offset(o)
		tinydraw.FilledTriangle(t.screen, p[0].X, p[0].Y, p[1].X, p[1].Y, p[2].X, p[2].Y, t.bg)
	default:
		t.fill(o.Rect, t.bg)
	}
}

// Flush pushes buffered pixels to the panel.
func (t *TFT) Flush() error {
	return t.screen.Display()
}

func (t *TFT) offset(o *Object) [3]screen.Point {
	var p [3]screen.Point
	for i, pt := range o.Points {
		p[i] = screen.Point{X: pt.X + o.Origin.X, Y: pt.Y + o.Origin.Y}
	}
	return p
}

func (t *TFT) fill(r screen.Rect, c color.RGBA) {
	t.screen.FillRectangle(r.X0, r.Y0, r.Width(), r.Height(), c)
}

// text writes s vertically centered in r, left aligned or centered.
func (t *TFT) text(r screen.Rect, f Font, s string, c color.RGBA, center bool) {
	if s == "" {
		return
	}
	font, ascent := fontFor(f)
	x := r.X0 + 2
	if center {
		_, w := tinyfont.LineWidth(font, s)
		if int16(w) < r.Width() {
			x = r.X0 + (r.Width()-int16(w))/2
		}
	}
	y := r.Y0 + (r.Height()+ascent)/2
	if r.Height() < ascent {
		y = r.Y0 + ascent
	}
	tinyfont.WriteLine(t.screen, font, x, y, s, c)
}
