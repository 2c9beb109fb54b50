// Package display holds the drawable objects of a menu screen and renders
// them on a TFT panel.
//
// A screen is a Page: an ordered list of Objects, each tagged with a Kind
// (what it looks like) and a Role (whether the engine changes it after the
// first draw). The engine never touches pixels; it asks a Renderer to draw
// or erase objects whose geometry comes from the static layout tables in
// package screen.
package display

import (
	"image/color"

	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

// Kind selects how an object is drawn.
type Kind uint8

const (
	KindText Kind = iota
	KindBox
	KindListRow
	KindButtonRow
	KindTriangle
	KindCursor
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBox:
		return "box"
	case KindListRow:
		return "list_row"
	case KindButtonRow:
		return "button_row"
	case KindTriangle:
		return "triangle"
	case KindCursor:
		return "cursor"
	}
	return "unknown"
}

// Role says whether an object is redrawn while the page is shown.
type Role uint8

const (
	Fixed Role = iota
	Mutable
	Cursor
)

// Font selects one of the renderer's type faces.
type Font uint8

const (
	FontSmall Font = iota
	FontBody
	FontTitle
	FontDigit
)

// Style is a foreground/background color pair.
type Style struct {
	FG color.RGBA
	BG color.RGBA
}

var (
	Black  = color.RGBA{0, 0, 0, 255}
	White  = color.RGBA{255, 255, 255, 255}
	Gray   = color.RGBA{128, 128, 128, 255}
	Red    = color.RGBA{255, 0, 0, 255}
	Green  = color.RGBA{0, 255, 0, 255}
	Blue   = color.RGBA{0, 0, 255, 255}
	Yellow = color.RGBA{255, 255, 0, 255}
	Cyan   = color.RGBA{0, 255, 255, 255}
	Orange = color.RGBA{255, 165, 0, 255}
	Navy   = color.RGBA{0, 0, 128, 255}
)

var (
	StyleNormal  = Style{FG: White, BG: Black}
	StyleTitle   = Style{FG: Yellow, BG: Black}
	StyleButton  = Style{FG: Black, BG: Gray}
	StyleCursor  = Style{FG: Cyan, BG: Black}
	StyleNotice  = Style{FG: Black, BG: Orange}
	StyleError   = Style{FG: White, BG: Red}
	StyleHWLine  = Style{FG: Green, BG: Black}
	StyleSWLine  = Style{FG: Yellow, BG: Black}
	StyleHostMsg = Style{FG: Cyan, BG: Black}
)

// Object is one drawable element of a page.
//
// Text, Box, ListRow and ButtonRow objects are placed by Rect. Triangle and
// Cursor objects use Points, offset by Origin.
type Object struct {
	Kind     Kind
	Role     Role
	Rect     screen.Rect
	Points   [3]screen.Point
	Origin   screen.Point
	Text     string
	Font     Font
	Style    Style
	Selected bool // ButtonRow indicator
}

// Page is the ordered set of objects making up one screen.
type Page struct {
	objects []Object
	mutable []int
	cursor  int
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{cursor: -1}
}

// Add appends o and returns its position among objects of the same role.
// Fixed objects return their absolute position.
func (p *Page) Add(o Object) int {
	p.objects = append(p.objects, o)
	i := len(p.objects) - 1
	switch o.Role {
	case Mutable:
		p.mutable = append(p.mutable, i)
		return len(p.mutable) - 1
	case Cursor:
		p.cursor = i
		return 0
	}
	return i
}

// Mutable returns the n-th mutable object in insertion order.
func (p *Page) Mutable(n int) (*Object, bool) {
	if n < 0 || n >= len(p.mutable) {
		return nil, false
	}
	return &p.objects[p.mutable[n]], true
}

// MutableCount returns the number of mutable objects.
func (p *Page) MutableCount() int {
	return len(p.mutable)
}

// Cursor returns the page's cursor object, if it has one.
func (p *Page) Cursor() (*Object, bool) {
	if p.cursor < 0 {
		return nil, false
	}
	return &p.objects[p.cursor], true
}

// Objects returns every object in draw order.
func (p *Page) Objects() []Object {
	return p.objects
}

// DrawAll clears the panel and draws the whole page.
func (p *Page) DrawAll(r Renderer) {
	r.Clear()
	for i := range p.objects {
		r.Draw(&p.objects[i])
	}
}
