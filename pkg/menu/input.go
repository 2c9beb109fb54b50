package menu

import (
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/display"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

// Key is a bit in the pressed-keys mask.
type Key uint16

const (
	KeyCancel Key = 1 << iota
	KeyEnter
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpare1
	KeySpare2
)

// HandleTouch dispatches a touch at panel coordinate (x, y). It reports
// whether the touch hit anything with a function.
func (e *Engine) HandleTouch(x, y int16) bool {
	assigned := true

	switch e.shape {
	case screen.ShapeMonitor:
		assigned = false

	case screen.ShapeList:
		p, _ := screen.List(e.current)
		if screen.BackRect.Contains(x, y) {
			e.target = p.Previous
			e.memory[e.current] = 0
			break
		}
		assigned = false
		for i := 0; i < e.rows; i++ {
			if screen.ListRows[i].Contains(x, y) {
				e.target = p.Destinations[i]
				e.memory[e.current] = i
				assigned = true
				break
			}
		}

	case screen.ShapeButton:
		p, _ := screen.Button(e.current)
		if screen.BackRect.Contains(x, y) {
			e.target = p.Previous
			break
		}
		assigned = false
		// List rows are wider than the drawn buttons and make a better target.
		for i := 0; i < e.rows; i++ {
			if screen.ListRows[i].Contains(x, y) {
				e.moveCursor(i)
				e.selectButton(i)
				assigned = true
				break
			}
		}

	case screen.ShapeValue:
		switch {
		case screen.BackRect.Contains(x, y), screen.CancelRect.Contains(x, y):
			e.cancel()
		case screen.EnterRect.Contains(x, y):
			e.commit()
		case screen.UpRect.Contains(x, y):
			e.increment()
		case screen.DownRect.Contains(x, y):
			e.decrement()
		default:
			assigned = false
			for i := 0; i < e.rows; i++ {
				if screen.DigitBoxes[i].Contains(x, y) {
					e.moveCursor(i)
					assigned = true
					break
				}
			}
		}

	default:
		e.logger.Error("touch on invalid shape", "screen", e.current)
		assigned = false
	}

	e.afterInput()
	return assigned
}

// HandleKey dispatches a pressed-keys mask. Only the highest priority key
// is acted on: Cancel, Enter, Up, Down, Left, Right.
func (e *Engine) HandleKey(mask uint16) bool {
	e.remapKeys()
	k := Key(mask)
	assigned := true

	switch e.shape {
	case screen.ShapeMonitor:
		assigned = e.monitorKey(k)

	case screen.ShapeList:
		p, _ := screen.List(e.current)
		switch {
		case k&e.cancelKey != 0:
			e.target = p.Previous
			e.memory[e.current] = 0
		case k&e.enterKey != 0:
			e.target = p.Destinations[e.cursor]
			e.memory[e.current] = e.cursor
		case k&KeyUp != 0:
			e.moveCursor(wrap(e.cursor-1, e.rows))
		case k&KeyDown != 0:
			e.moveCursor(wrap(e.cursor+1, e.rows))
		default:
			assigned = false
		}

	case screen.ShapeButton:
		p, _ := screen.Button(e.current)
		switch {
		case k&e.cancelKey != 0:
			e.target = p.Previous
		case k&e.enterKey != 0:
			e.selectButton(e.cursor)
		case k&KeyUp != 0:
			e.moveCursor(wrap(e.cursor-1, e.rows))
		case k&KeyDown != 0:
			e.moveCursor(wrap(e.cursor+1, e.rows))
		default:
			assigned = false
		}

	case screen.ShapeValue:
		switch {
		case k&e.cancelKey != 0:
			e.cancel()
		case k&e.enterKey != 0:
			e.commit()
		case k&KeyUp != 0:
			e.increment()
		case k&KeyDown != 0:
			e.decrement()
		case k&KeyLeft != 0:
			e.moveCursor(wrap(e.cursor+1, e.rows))
		case k&KeyRight != 0:
			e.moveCursor(wrap(e.cursor-1, e.rows))
		default:
			assigned = false
		}

	default:
		e.logger.Error("key on invalid shape", "screen", e.current)
		assigned = false
	}

	e.afterInput()
	return assigned
}

func (e *Engine) afterInput() {
	if e.target != e.current {
		e.transition()
		return
	}
	e.flush()
}

func wrap(pos, n int) int {
	if n <= 0 {
		return 0
	}
	if pos < 0 {
		return n - 1
	}
	if pos >= n {
		return 0
	}
	return pos
}

// selectButton marks row pos as the chosen button and writes it to the
// screen's field. On Save and Load screens the confirm row also runs the
// slot operation and returns to the previous screen.
func (e *Engine) selectButton(pos int) {
	prev, err := e.reg.Get(e.addr.Kind, e.addr.Index)
	if err == nil {
		if o, ok := e.page.Mutable(int(prev)); ok {
			o.Selected = false
			e.r.Draw(o)
		}
	}
	if o, ok := e.page.Mutable(pos); ok {
		o.Selected = true
		e.r.Draw(o)
	} else {
		e.logger.Error("button row missing", "screen", e.current, "pos", pos)
	}

	if err := e.reg.Set(int32(pos), e.addr.Kind, e.tableIndex, e.addr.Index); err != nil {
		e.logger.Warn("button write rejected", "screen", e.current, "pos", pos, "err", err)
	}
	e.memory[e.current] = pos

	if pos != screen.ConfirmRow {
		return
	}
	p, _ := screen.Button(e.current)
	switch e.addr.Kind {
	case config.SaveSlot:
		if err := e.reg.Save(e.addr.Index); err != nil {
			e.notice(NoticeSaveFailed, LongNotice, screen.NoticeRect, display.StyleError)
		} else {
			e.notice(NoticeSaved, ShortNotice, screen.NoticeRect, display.StyleNotice)
		}
	case config.LoadSlot:
		if err := e.reg.Load(e.addr.Index); err != nil {
			e.notice(NoticeLoadFailed, LongNotice, screen.NoticeRect, display.StyleError)
		} else {
			e.notice(NoticeLoaded, ShortNotice, screen.NoticeRect, display.StyleNotice)
		}
	default:
		return
	}
	e.target = p.Previous
	e.memory[e.current] = 0
}
