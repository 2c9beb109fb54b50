package menu

import (
	"github.com/tuffrabit/tinygo-flcm1/pkg/display"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

// MonitorFlags selects which message sources the Monitor screen shows.
type MonitorFlags uint8

const (
	ShowHardware MonitorFlags = 1 << iota
	ShowSoftware

	showAll = ShowHardware | ShowSoftware
)

// Source tags a monitor line with where it came from.
type Source uint8

const (
	SourceHardware Source = iota // passed the hardware filters
	SourceSoftware               // software filter or comparator result
	SourceHost                   // remote access activity
)

// Icon is a status line indicator of the Monitor screen.
type Icon uint8

const (
	IconHWFilter Icon = iota
	IconHWDisplay
	IconHWAux
	IconSWFilter
	IconSWDisplay
	IconSWAux
	IconComparator
	iconCount
)

var iconLabels = [iconCount]string{"HF", "HD", "HA", "SF", "SD", "SA", "CD"}

// statusLabel is the fixed text at the left of the status line.
const statusLabel = "FLCM1"

type monitorState struct {
	scrolling bool
	show      MonitorFlags
	row       int
	icons     [iconCount]bool
	voltage   string
}

func (m *monitorState) reset() {
	m.scrolling = true
	m.show = showAll
	m.row = 0
	m.icons[IconHWDisplay] = true
	m.icons[IconSWDisplay] = true
}

// Scrolling reports whether the Monitor screen accepts new lines.
func (e *Engine) Scrolling() bool { return e.monitor.scrolling }

// MonitorShow returns the sources currently shown on the Monitor screen.
func (e *Engine) MonitorShow() MonitorFlags { return e.monitor.show }

func (e *Engine) drawMonitor() {
	e.monitor.reset()
	e.page = display.NewPage()
	e.page.Add(display.Object{Kind: display.KindBox, Rect: screen.StatusRect, Style: display.Style{FG: display.Blue, BG: display.Blue}})
	e.page.Add(display.Object{Kind: display.KindText, Rect: screen.StatusLabelRect, Text: statusLabel, Font: display.FontSmall, Style: display.Style{FG: display.Yellow, BG: display.Blue}})
	e.page.Add(display.Object{Kind: display.KindText, Role: display.Mutable, Rect: screen.VoltageRect, Text: e.monitor.voltage, Font: display.FontSmall, Style: display.Style{FG: display.Yellow, BG: display.Blue}})
	for i := Icon(0); i < iconCount; i++ {
		e.page.Add(display.Object{Kind: display.KindBox, Role: display.Mutable, Rect: screen.StatusIcons[i], Text: iconLabels[i], Font: display.FontSmall, Style: display.Style{FG: display.Black, BG: display.Cyan}})
	}
	e.rows = screen.MonitorRows
	e.cursor = 0

	e.r.Clear()
	for i, o := range e.page.Objects() {
		if o.Role == display.Mutable && o.Kind == display.KindBox {
			continue
		}
		e.r.Draw(&e.page.Objects()[i])
	}
	for i := Icon(0); i < iconCount; i++ {
		e.drawIcon(i)
	}
}

// iconObject returns the status line box of icon i.
func (e *Engine) iconObject(i Icon) (*display.Object, bool) {
	if e.shape != screen.ShapeMonitor || e.page == nil {
		return nil, false
	}
	return e.page.Mutable(1 + int(i))
}

func (e *Engine) drawIcon(i Icon) {
	o, ok := e.iconObject(i)
	if !ok {
		return
	}
	if e.monitor.icons[i] {
		e.r.Draw(o)
	} else {
		e.r.Erase(o)
		bg := display.Object{Kind: display.KindBox, Rect: o.Rect, Style: display.Style{FG: display.Blue, BG: display.Blue}}
		e.r.Draw(&bg)
	}
}

// SetIcon turns a status line icon on or off.
func (e *Engine) SetIcon(i Icon, on bool) {
	if i >= iconCount || e.monitor.icons[i] == on {
		return
	}
	e.monitor.icons[i] = on
	e.drawIcon(i)
}

// IconOn reports the state of a status line icon.
func (e *Engine) IconOn(i Icon) bool {
	return i < iconCount && e.monitor.icons[i]
}

// SetVoltage updates the bus voltage text of the status line.
func (e *Engine) SetVoltage(text string) {
	if e.monitor.voltage == text {
		return
	}
	e.monitor.voltage = text
	if e.shape != screen.ShapeMonitor || e.page == nil {
		return
	}
	if o, ok := e.page.Mutable(0); ok {
		o.Text = text
		e.r.Draw(o)
	}
}

// monitorKey handles keys on the Monitor screen. Enter toggles scrolling.
// Cancel stops scrolling, or opens the menu when already stopped. Up cycles
// the shown sources: both, software only, hardware only, none.
func (e *Engine) monitorKey(k Key) bool {
	m := &e.monitor
	switch {
	case k&e.enterKey != 0:
		m.scrolling = !m.scrolling
	case k&e.cancelKey != 0:
		if m.scrolling {
			m.scrolling = false
		} else {
			e.target = screen.MenuTop
		}
	case k&KeyUp != 0:
		if m.show == 0 {
			m.show = showAll
		} else {
			m.show--
		}
		e.SetIcon(IconHWDisplay, m.show&ShowHardware != 0)
		e.SetIcon(IconSWDisplay, m.show&ShowSoftware != 0)
	default:
		return false
	}
	return true
}

// PostLine writes one line to the Monitor screen if it is shown, scrolling
// and showing src. Long lines wrap onto following rows. It reports whether
// anything was written.
func (e *Engine) PostLine(line string, src Source) bool {
	if e.shape != screen.ShapeMonitor || !e.monitor.scrolling {
		return false
	}
	style := display.StyleHostMsg
	switch src {
	case SourceHardware:
		if e.monitor.show&ShowHardware == 0 {
			return false
		}
		style = display.StyleHWLine
	case SourceSoftware:
		if e.monitor.show&ShowSoftware == 0 {
			return false
		}
		style = display.StyleSWLine
	}

	for {
		chunk := line
		if len(chunk) > screen.MonitorCols {
			chunk = line[:screen.MonitorCols]
		}
		e.writeRow(chunk, style)
		line = line[len(chunk):]
		if line == "" {
			break
		}
	}
	e.flush()
	return true
}

// writeRow writes s on the current row and blanks the next one, which
// marks the oldest line on the wrapped-around screen.
func (e *Engine) writeRow(s string, style display.Style) {
	m := &e.monitor
	o := display.Object{Kind: display.KindText, Rect: screen.MonitorRow(m.row), Text: s, Font: display.FontSmall, Style: style}
	e.r.Draw(&o)
	m.row = wrap(m.row+1, screen.MonitorRows)
	next := display.Object{Kind: display.KindText, Rect: screen.MonitorRow(m.row)}
	e.r.Erase(&next)
}

// MonitorRow returns the row the next monitor line goes to.
func (e *Engine) MonitorRow() int { return e.monitor.row }
