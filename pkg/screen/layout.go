package screen

// Panel size in portrait orientation.
const (
	Width  = 240
	Height = 320
)

// Point is a panel coordinate.
type Point struct {
	X, Y int16
}

// Rect is an inclusive panel rectangle.
type Rect struct {
	X0, Y0, X1, Y1 int16
}

// Contains reports whether (x, y) hits r. Edges count as inside.
func (r Rect) Contains(x, y int16) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

func (r Rect) Width() int16  { return r.X1 - r.X0 + 1 }
func (r Rect) Height() int16 { return r.Y1 - r.Y0 + 1 }

// Static layout shared by every screen of a shape.
var (
	TitleRect    = Rect{12, 16, 175, 47}
	SubtitleRect = Rect{12, 48, 239, 63}

	BackRect   = Rect{180, 16, 227, 47}
	CancelRect = Rect{24, 240, 107, 271}
	EnterRect  = Rect{132, 240, 215, 271}
	UpRect     = Rect{192, 80, 215, 111}
	DownRect   = Rect{192, 176, 215, 207}

	NoticeRect      = Rect{0, 240, 239, 271}
	SmallNoticeRect = Rect{0, 304, 239, 319}
	StatusRect      = Rect{0, 0, 239, 7}

	UpTriangle   = [3]Point{{199, 101}, {207, 101}, {204, 90}}
	DownTriangle = [3]Point{{199, 186}, {207, 186}, {204, 197}}
)

// ListRows are the row rectangles of List screens. Button screens hit-test
// against these as well since they are wider than the drawn button rows.
var ListRows = [MaxRows]Rect{
	{12, 64, 239, 95},
	{12, 96, 239, 127},
	{12, 128, 239, 159},
	{12, 160, 239, 191},
	{12, 192, 239, 223},
	{12, 224, 239, 255},
	{12, 256, 239, 287},
	{12, 288, 239, 319},
}

// ButtonRows are the drawn rows of Button screens.
var ButtonRows = [MaxRows]Rect{
	{24, 64, 239, 95},
	{24, 96, 239, 127},
	{24, 128, 239, 159},
	{24, 160, 239, 191},
	{24, 192, 239, 223},
	{24, 224, 239, 255},
	{24, 256, 239, 287},
	{24, 288, 239, 319},
}

// DigitBoxes hold one hex digit each. Index 0 is the least significant
// digit and sits rightmost.
var DigitBoxes = [MaxRows]Rect{
	{192, 128, 215, 159},
	{168, 128, 191, 159},
	{144, 128, 167, 159},
	{120, 128, 143, 159},
	{96, 128, 119, 159},
	{72, 128, 95, 159},
	{48, 128, 71, 159},
	{24, 128, 47, 159},
}

// Cursor marks: triangle offsets relative to each anchor.
var (
	ListCursorShape    = [3]Point{{0, 2}, {0, 28}, {4, 14}}
	ListCursorAnchors  = [MaxRows]Point{{0, 64}, {0, 96}, {0, 128}, {0, 160}, {0, 192}, {0, 224}, {0, 256}, {0, 288}}
	ValueCursorShape   = [3]Point{{1, 6}, {21, 6}, {11, 2}}
	ValueCursorAnchors = [MaxRows]Point{{192, 160}, {168, 160}, {144, 160}, {120, 160}, {96, 160}, {72, 160}, {48, 160}, {24, 160}}
)

// Monitor screen: one status line followed by scrolling text rows.
const (
	MonitorRowHeight = 8
	MonitorRows      = (Height - MonitorRowHeight) / MonitorRowHeight
	MonitorCols      = Width / 6
)

// Status line elements of the Monitor screen.
var (
	StatusLabelRect = Rect{0, 0, 47, 7}
	VoltageRect     = Rect{56, 0, 95, 7}
)

// StatusIcons are the status line icon boxes, in HF HD HA SF SD SA CD order.
var StatusIcons = [7]Rect{
	{114, 0, 131, 7},
	{132, 0, 149, 7},
	{150, 0, 167, 7},
	{168, 0, 185, 7},
	{186, 0, 203, 7},
	{204, 0, 221, 7},
	{222, 0, 239, 7},
}

// MonitorRow returns the rectangle of text row n below the status line.
func MonitorRow(n int) Rect {
	y := int16(MonitorRowHeight * (n + 1))
	return Rect{0, y, Width - 1, y + MonitorRowHeight - 1}
}
