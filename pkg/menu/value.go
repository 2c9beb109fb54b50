package menu

import (
	"fmt"

	"github.com/tuffrabit/tinygo-flcm1/pkg/bitrange"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

// valueEdit is the working state of a Value screen. Values are held in
// signed 64-bit space so signed thresholds clamp correctly.
type valueEdit struct {
	addr       screen.Address
	tableIndex int
	wide       bool
	signed     bool
	digits     int
	min, max   int64
	committed  int64
	working    int64
}

// prepareEdit computes digit count, bounds and the starting value for
// Value screen id.
func (e *Engine) prepareEdit(id screen.ID) (valueEdit, error) {
	p, ok := screen.Value(id)
	if !ok {
		return valueEdit{}, fmt.Errorf("screen %d is not a value screen", id)
	}
	addr, _ := screen.AddressOf(id)
	s := e.reg.Current()

	ed := valueEdit{
		addr:       addr,
		tableIndex: screen.TableIndexOf(id),
		wide:       p.Wide,
		digits:     p.Digits,
		min:        int64(p.Min),
		max:        int64(p.Max),
	}

	switch addr.Kind {
	case config.COThreshold:
		co := s.Comparators[addr.Index]
		f := s.SoftwareFilters[co.SoftwareFilter]
		span := bitrange.Span{StartByte: f.StartByte, StartBit: f.StartBit, EndByte: f.EndByte, EndBit: f.EndBit}
		_, bitLen, err := bitrange.Len(span)
		if err != nil {
			return valueEdit{}, fmt.Errorf("comparator %d uses filter %d: %w", addr.Index, co.SoftwareFilter, err)
		}
		bits := bitrange.ValueBits(bitLen)
		ed.signed = f.Signed
		ed.digits = bitrange.Digits(bits)
		ed.min, ed.max = bitrange.Bounds(bits, f.Signed)

		raw, err := e.reg.GetWide(addr.Kind, addr.Index)
		if err != nil {
			return valueEdit{}, err
		}
		// A stored threshold wider than the span keeps its low bits, the
		// same value the comparator evaluates against.
		if f.Signed {
			ed.committed = bitrange.SignExtend(raw, bits)
		} else {
			ed.committed = int64(raw & (1<<bits - 1))
		}

	case config.HWMaskFilter:
		entry := config.HWTable[addr.Index]
		std := s.AllFiltersStandard()
		if entry.Filter {
			std = !s.HWFilterExtended[entry.Num]
		}
		if std {
			ed.digits = config.StdIDDigits
			ed.max = config.StdIDMax
		}
		fallthrough

	default:
		if addr.Kind == config.SWFCANID && s.AllFiltersStandard() {
			ed.digits = config.StdIDDigits
		}
		v, err := e.reg.Get(addr.Kind, addr.Index)
		if err != nil {
			return valueEdit{}, err
		}
		ed.committed = int64(v)
	}

	ed.working = ed.committed
	return ed, nil
}

// step adds delta to the working value, saturating at the bounds.
func (ed *valueEdit) step(delta int64) {
	v := ed.working + delta
	if v > ed.max {
		v = ed.max
	}
	if v < ed.min {
		v = ed.min
	}
	ed.working = v
}

func digitWeight(pos int) int64 {
	return int64(1) << (4 * uint(pos))
}

func (e *Engine) increment() {
	if e.cursor < 0 || e.cursor >= e.edit.digits {
		return
	}
	e.edit.step(digitWeight(e.cursor))
	e.showDigits(e.edit.working)
}

func (e *Engine) decrement() {
	if e.cursor < 0 || e.cursor >= e.edit.digits {
		return
	}
	e.edit.step(-digitWeight(e.cursor))
	e.showDigits(e.edit.working)
}

// commit writes the working value back and leaves the screen.
func (e *Engine) commit() {
	e.showDigits(e.edit.working)
	ed := e.edit
	if ed.working != ed.committed {
		var err error
		if ed.wide {
			err = e.reg.SetWide(uint64(uint32(ed.working)), ed.addr.Kind, ed.addr.Index)
		} else {
			err = e.reg.Set(int32(ed.working), ed.addr.Kind, ed.tableIndex, ed.addr.Index)
		}
		if err != nil {
			e.logger.Warn("value commit rejected", "kind", ed.addr.Kind, "index", ed.addr.Index, "value", ed.working, "err", err)
		}
	}
	e.leaveValue()
}

// cancel shows the committed value again and leaves the screen.
func (e *Engine) cancel() {
	e.edit.working = e.edit.committed
	e.showDigits(e.edit.committed)
	e.leaveValue()
}

func (e *Engine) leaveValue() {
	p, _ := screen.Value(e.current)
	e.target = p.Previous
}

// showDigits writes v as hex into the digit boxes, least significant digit
// in box 0. Negative values show their 32-bit two's complement.
func (e *Engine) showDigits(v int64) {
	u := uint32(v)
	for i := 0; i < e.edit.digits; i++ {
		o, ok := e.page.Mutable(i)
		if !ok {
			e.logger.Error("digit box missing", "pos", i)
			return
		}
		n := (u >> (4 * uint(i))) & 0xF
		d := hexDigits[n : n+1]
		if o.Text == d {
			continue
		}
		o.Text = d
		e.r.Draw(o)
	}
}

const hexDigits = "0123456789ABCDEF"
