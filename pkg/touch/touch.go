// Package touch turns raw resistive panel samples into screen coordinates.
package touch

import (
	"time"

	drvtouch "tinygo.org/x/drivers/touch"

	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
)

// HoldOff is the minimum time between two reported touches.
const HoldOff = 250 * time.Millisecond

// Calibration maps the raw ADC range of the panel onto the screen.
type Calibration struct {
	XMin, XMax int
	YMin, YMax int
	Width      int
	Height     int
}

// DefaultCalibration fits the 2.8" ILI9341 panel with an XPT2046 controller
// in portrait orientation.
var DefaultCalibration = Calibration{
	XMin: 300, XMax: 3700,
	YMin: 390, YMax: 3853,
	Width: screen.Width, Height: screen.Height,
}

// Map converts a raw sample to a screen coordinate, clamped to the panel.
func (c Calibration) Map(p drvtouch.Point) (x, y int16) {
	return int16(scale(p.X, c.XMin, c.XMax, c.Width)), int16(scale(p.Y, c.YMin, c.YMax, c.Height))
}

func scale(v, lo, hi, size int) int {
	if hi <= lo || size <= 0 {
		return 0
	}
	out := (v - lo) * (size - 1) / (hi - lo)
	if out < 0 {
		return 0
	}
	if out >= size {
		return size - 1
	}
	return out
}

// Panel is a touch controller such as the xpt2046.
type Panel interface {
	drvtouch.Pointer
	Touched() bool
}

// Reader polls a Panel and reports at most one touch per HoldOff.
type Reader struct {
	panel Panel
	cal   Calibration
	hold  *timer.IntervalTimer
}

// NewReader returns a reader using cal.
func NewReader(p Panel, cal Calibration) *Reader {
	return NewReaderWithClock(p, cal, time.Now)
}

// NewReaderWithClock is NewReader with an injected clock.
func NewReaderWithClock(p Panel, cal Calibration, now timer.Clock) *Reader {
	return &Reader{
		panel: p,
		cal:   cal,
		hold:  timer.NewWithClock(HoldOff, false, now),
	}
}

// Read returns the mapped touch position if the panel is pressed and the
// hold-off since the last reported touch has passed.
func (r *Reader) Read() (x, y int16, ok bool) {
	if !r.panel.Touched() {
		return 0, 0, false
	}
	p := r.panel.ReadTouchPoint()
	if p.Z == 0 {
		return 0, 0, false
	}
	if !r.hold.Expired() {
		return 0, 0, false
	}
	x, y = r.cal.Map(p)
	return x, y, true
}
