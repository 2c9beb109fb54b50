// Package menu is the navigation engine of the settings UI.
//
// The engine tracks the current and target screens, builds the page for the
// current screen from the static tables in package screen, and turns touch
// and key events into cursor moves, settings writes and screen changes. It is
// driven from a single control loop and is not safe for concurrent use.
package menu

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/bitrange"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/display"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
)

// Notice durations.
const (
	ShortNotice = 1 * time.Second
	LongNotice  = 3 * time.Second
)

// Notice texts.
const (
	NoticeSaved       = "Saved!"
	NoticeLoaded      = "Loaded!"
	NoticeSaveFailed  = "Save failed!"
	NoticeLoadFailed  = "Load failed!"
	NoticeByteOrder   = "Stt>End ByteErr!"
	NoticeBitOrder    = "Stt<End BitErr!"
	NoticeSpanInvalid = "SWF span invalid!"
)

// Engine is the navigation state machine.
type Engine struct {
	reg    *settings.Registry
	r      display.Renderer
	logger *slog.Logger

	// Sleep blocks for the duration of a notice. Tests replace it.
	Sleep func(time.Duration)

	current    screen.ID
	target     screen.ID
	shape      screen.Shape
	tableIndex int
	addr       screen.Address
	page       *display.Page
	started    bool

	cursor int
	rows   int // list rows, buttons or digits on the current page
	memory [screen.ValueType]int

	edit valueEdit

	monitor monitorState

	cancelKey Key
	enterKey  Key
	returned  bool
}

// New returns an engine positioned before the Monitor screen. Call Start to
// draw it.
func New(reg *settings.Registry, r display.Renderer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		reg:       reg,
		r:         r,
		logger:    logger.With("component", "menu"),
		Sleep:     time.Sleep,
		current:   screen.MonitorType,
		target:    screen.InMonitor,
		cancelKey: KeyCancel,
		enterKey:  KeyEnter,
	}
	e.monitor.reset()
	return e
}

// Start draws the Monitor screen.
func (e *Engine) Start() {
	e.Goto(screen.InMonitor)
}

// Goto jumps straight to id.
func (e *Engine) Goto(id screen.ID) {
	if screen.ShapeOf(id) == screen.ShapeInvalid {
		e.logger.Error("goto invalid screen", "id", id)
		return
	}
	e.target = id
	e.transition()
}

// Current returns the screen on display.
func (e *Engine) Current() screen.ID { return e.current }

// Target returns the screen the last event asked for. It equals Current
// after every dispatch unless the change was refused.
func (e *Engine) Target() screen.ID { return e.target }

// Shape returns the shape of the current screen.
func (e *Engine) Shape() screen.Shape { return e.shape }

// CursorPos returns the cursor row or digit of the current page.
func (e *Engine) CursorPos() int { return e.cursor }

// ReturnedToMonitor reports, once, that the engine came back to the Monitor
// screen from a menu. The control loop re-applies CAN filtering then.
func (e *Engine) ReturnedToMonitor() bool {
	r := e.returned
	e.returned = false
	return r
}

// transition builds and draws the target page if it differs from the
// current one.
func (e *Engine) transition() {
	if e.started && e.target == e.current {
		return
	}

	if screen.ShapeOf(e.target) == screen.ShapeValue {
		ed, err := e.prepareEdit(e.target)
		if err != nil {
			e.logger.Warn("value edit refused", "screen", e.target, "err", err)
			e.notice(NoticeSpanInvalid, LongNotice, screen.NoticeRect, display.StyleError)
			e.target = e.current
			e.flush()
			return
		}
		e.edit = ed
	}

	from := e.shape
	e.current = e.target
	e.shape = screen.ShapeOf(e.current)
	e.tableIndex = screen.TableIndexOf(e.current)
	e.addr, _ = screen.AddressOf(e.current)
	e.remapKeys()

	if e.started && from != screen.ShapeMonitor && e.shape == screen.ShapeMonitor {
		e.returned = true
	}
	e.started = true

	e.logger.Debug("page change", "screen", e.current, "shape", e.shape, "kind", e.addr.Kind, "index", e.addr.Index)

	switch e.shape {
	case screen.ShapeMonitor:
		e.drawMonitor()
	case screen.ShapeList:
		e.drawList()
	case screen.ShapeButton:
		e.drawButtons()
	case screen.ShapeValue:
		e.drawValue()
	}
	e.flush()
}

func (e *Engine) flush() {
	if err := e.r.Flush(); err != nil {
		e.logger.Warn("display flush failed", "err", err)
	}
}

func (e *Engine) restoreCursor() {
	e.cursor = e.memory[e.current]
	if e.cursor >= e.rows {
		e.cursor = 0
	}
}

func (e *Engine) addHeader(title, subtitle string) {
	e.page.Add(display.Object{Kind: display.KindText, Rect: screen.TitleRect, Text: title, Font: display.FontTitle, Style: display.StyleTitle})
	e.page.Add(display.Object{Kind: display.KindText, Rect: screen.SubtitleRect, Text: subtitle, Font: display.FontBody, Style: display.StyleNormal})
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.BackRect, Text: "BACK", Font: display.FontBody, Style: display.StyleButton})
}

func (e *Engine) addListCursor() {
	e.page.Add(display.Object{
		Kind:   display.KindCursor,
		Role:   display.Cursor,
		Points: screen.ListCursorShape,
		Origin: screen.ListCursorAnchors[e.cursor],
		Style:  display.StyleCursor,
	})
}

func (e *Engine) drawList() {
	p, _ := screen.List(e.current)
	e.rows = len(p.Destinations)
	e.restoreCursor()

	e.page = display.NewPage()
	e.addHeader(p.Title, p.Subtitle)
	for i, label := range p.Labels {
		e.page.Add(display.Object{Kind: display.KindListRow, Rect: screen.ListRows[i], Text: label, Font: display.FontBody, Style: display.StyleNormal})
	}
	e.addListCursor()
	e.page.DrawAll(e.r)

	if e.current >= screen.SWFilter0 && e.current <= screen.SWFilter7 {
		e.checkSpan(int(e.current - screen.SWFilter0))
	}
}

// checkSpan warns about a software filter whose span runs backwards.
func (e *Engine) checkSpan(n int) {
	f := e.reg.Current().SoftwareFilters[n]
	span := bitrange.Span{StartByte: f.StartByte, StartBit: f.StartBit, EndByte: f.EndByte, EndBit: f.EndBit}
	err := span.Validate()
	switch {
	case errors.Is(err, bitrange.ErrStartAfterEnd):
		e.logger.Warn("software filter span", "filter", n, "err", err)
		e.notice(NoticeByteOrder, LongNotice, screen.SmallNoticeRect, display.StyleNotice)
	case errors.Is(err, bitrange.ErrBitOrder):
		e.logger.Warn("software filter span", "filter", n, "err", err)
		e.notice(NoticeBitOrder, LongNotice, screen.SmallNoticeRect, display.StyleNotice)
	}
}

func (e *Engine) drawButtons() {
	p, _ := screen.Button(e.current)
	e.rows = len(p.Labels)
	e.restoreCursor()

	e.page = display.NewPage()
	e.addHeader(p.Title, p.Subtitle)
	selected, _ := e.reg.Get(e.addr.Kind, e.addr.Index)
	for i, label := range p.Labels {
		e.page.Add(display.Object{
			Kind:     display.KindButtonRow,
			Role:     display.Mutable,
			Rect:     screen.ButtonRows[i],
			Text:     label,
			Font:     display.FontBody,
			Style:    display.StyleNormal,
			Selected: int32(i) == selected,
		})
	}
	e.addListCursor()
	e.page.DrawAll(e.r)
}

func (e *Engine) drawValue() {
	p, _ := screen.Value(e.current)
	e.rows = e.edit.digits
	e.cursor = 0

	e.page = display.NewPage()
	e.addHeader(p.Title, p.Subtitle)
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.UpRect, Style: display.StyleNormal})
	e.page.Add(display.Object{Kind: display.KindTriangle, Points: screen.UpTriangle, Style: display.StyleNormal})
	for i := 0; i < e.rows; i++ {
		e.page.Add(display.Object{Kind: display.KindBox, Role: display.Mutable, Rect: screen.DigitBoxes[i], Font: display.FontDigit, Style: display.StyleNormal})
	}
	e.page.Add(display.Object{
		Kind:   display.KindCursor,
		Role:   display.Cursor,
		Points: screen.ValueCursorShape,
		Origin: screen.ValueCursorAnchors[0],
		Style:  display.StyleCursor,
	})
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.DownRect, Style: display.StyleNormal})
	e.page.Add(display.Object{Kind: display.KindTriangle, Points: screen.DownTriangle, Style: display.StyleNormal})
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.CancelRect, Text: "CANCEL", Font: display.FontBody, Style: display.StyleError})
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.EnterRect, Text: "ENTER", Font: display.FontBody, Style: display.StyleButton})
	e.page.DrawAll(e.r)

	e.showDigits(e.edit.working)
}

// moveCursor moves the cursor mark to row or digit pos.
func (e *Engine) moveCursor(pos int) {
	e.cursor = pos
	c, ok := e.page.Cursor()
	if !ok {
		e.logger.Error("page has no cursor", "screen", e.current)
		return
	}
	e.r.Erase(c)
	if e.shape == screen.ShapeValue {
		c.Origin = screen.ValueCursorAnchors[pos]
	} else {
		c.Origin = screen.ListCursorAnchors[pos]
	}
	e.r.Draw(c)
}

// notice shows text in rect for d, blocking input meanwhile.
func (e *Engine) notice(text string, d time.Duration, rect screen.Rect, style display.Style) {
	o := display.Object{Kind: display.KindBox, Rect: rect, Text: text, Font: display.FontBody, Style: style}
	e.r.Draw(&o)
	e.flush()
	e.Sleep(d)
	e.r.Erase(&o)
}

// remapKeys applies the swap Cancel/Enter option.
func (e *Engine) remapKeys() {
	swap, _ := e.reg.Get(config.OptionFlag, config.OptionSwapCancelEnter)
	if swap == 1 {
		e.cancelKey, e.enterKey = KeyEnter, KeyCancel
	} else {
		e.cancelKey, e.enterKey = KeyCancel, KeyEnter
	}
}
