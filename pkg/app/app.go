// Package app is the device control loop. It owns nothing of its own: it
// moves touch and key events into the navigation engine, CAN traffic onto
// the Monitor screen and the aux port, remote commands into the settings,
// and re-applies the bus whenever the settings may have changed. The
// firmware and the desktop simulator both drive it.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/canbus"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/menu"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"
	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
	"github.com/tuffrabit/tinygo-flcm1/serial"
)

const (
	// FramesPerStep bounds the CAN messages handled per Step so input stays
	// responsive under heavy traffic.
	FramesPerStep = 8

	// ActivityHold keeps the HF and SF icons lit after a message.
	ActivityHold = 200 * time.Millisecond

	// VoltagePeriod is how often the status line voltage is refreshed.
	VoltagePeriod = time.Second
)

// TouchSource yields mapped touch positions. touch.Reader satisfies it.
type TouchSource interface {
	Read() (x, y int16, ok bool)
}

// KeySource yields the mask of keys pressed since the last call.
type KeySource interface {
	Pressed() uint16
}

// Remote answers pending host commands. serial.Serial satisfies it.
type Remote interface {
	Serve(h serial.Handler) string
}

// Outputs drives the comparator output lines.
type Outputs interface {
	Set(n int, on bool)
}

// Config wires the loop. Registry, Engine and Bus are required; the rest
// may be nil.
type Config struct {
	Registry *settings.Registry
	Engine   *menu.Engine
	Bus      *canbus.Bus
	Handler  *protocol.Handler
	Touch    TouchSource
	Keys     KeySource
	Remote   Remote
	Aux      io.Writer
	Outputs  Outputs
	Voltage  func() string
	Clock    timer.Clock
	Logger   *slog.Logger
}

// Loop is the control loop. It is not safe for concurrent use.
type Loop struct {
	cfg     Config
	logger  *slog.Logger
	hwSeen  *timer.IntervalTimer
	swSeen  *timer.IntervalTimer
	voltage *timer.IntervalTimer

	hwAux     bool
	swAux     bool
	auxLittle bool
	busErr    bool
}

// New returns a loop over cfg. Call Boot before the first Step.
func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Loop{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "app"),
		hwSeen:  timer.NewWithClock(ActivityHold, false, cfg.Clock),
		swSeen:  timer.NewWithClock(ActivityHold, false, cfg.Clock),
		voltage: timer.NewWithClock(VoltagePeriod, false, cfg.Clock),
	}
}

// Boot loads the settings kept across power cycles, draws the Monitor
// screen and starts the bus.
func (l *Loop) Boot() error {
	if err := l.cfg.Registry.Load(config.TempSlot); err != nil {
		if errors.Is(err, storage.ErrSlotEmpty) {
			l.logger.Info("no saved settings, using defaults")
		} else {
			l.logger.Warn("saved settings unusable, using defaults", "err", err)
		}
	}
	l.cfg.Engine.Start()
	l.refreshVoltage()
	return l.Apply()
}

// Apply pushes the live settings to the bus and the status icons.
func (l *Loop) Apply() error {
	s := l.cfg.Registry.Current()
	l.hwAux = s.AuxOutputs[config.AuxHardwareOut]
	l.swAux = s.AuxOutputs[config.AuxSoftwareOut]
	l.auxLittle = s.AuxOutputs[config.AuxByteOrder]

	e := l.cfg.Engine
	e.SetIcon(menu.IconHWAux, l.hwAux)
	e.SetIcon(menu.IconSWAux, l.swAux)

	err := l.cfg.Bus.Apply(s)
	l.busErr = err != nil
	if err != nil {
		l.logger.Error("apply settings to bus failed", "err", err)
		e.PostLine("CAN start failed", menu.SourceHost)
		return err
	}
	l.setOutputs()
	return nil
}

// Step runs one pass of the loop.
func (l *Loop) Step() error {
	e := l.cfg.Engine

	if l.cfg.Touch != nil {
		if x, y, ok := l.cfg.Touch.Read(); ok {
			e.HandleTouch(x, y)
		}
	}
	if l.cfg.Keys != nil {
		if mask := l.cfg.Keys.Pressed(); mask != 0 {
			e.HandleKey(mask)
		}
	}

	changed := e.ReturnedToMonitor()
	if changed {
		// Survives a power cycle the way the last menu session left it.
		if err := l.cfg.Registry.Save(config.TempSlot); err != nil {
			l.logger.Warn("keeping settings failed", "err", err)
		}
	}

	if l.cfg.Remote != nil && l.cfg.Handler != nil {
		if line := l.cfg.Remote.Serve(l.cfg.Handler); line != "" {
			e.PostLine(line, menu.SourceHost)
		}
		if l.cfg.Handler.Changed() {
			changed = true
		}
	}

	var err error
	if changed {
		err = l.Apply()
	}
	if !l.busErr {
		if perr := l.pollBus(); perr != nil && err == nil {
			err = perr
		}
	}

	l.decayIcons()
	if l.voltage.Expired() {
		l.refreshVoltage()
	}
	return err
}

func (l *Loop) pollBus() error {
	for i := 0; i < FramesPerStep; i++ {
		f, ok, err := l.cfg.Bus.Poll()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !f.Accepted {
			continue
		}
		l.handleFrame(f)
	}
	return nil
}

func (l *Loop) handleFrame(f canbus.Frame) {
	e := l.cfg.Engine

	line := canbus.FormatMessage(f.Msg)
	e.PostLine(line, menu.SourceHardware)
	e.SetIcon(menu.IconHWFilter, true)
	l.hwSeen.Reset()
	if l.hwAux {
		l.aux(line)
	}

	for _, v := range f.Result.Values {
		e.PostLine(canbus.FormatValue(v), menu.SourceSoftware)
		e.SetIcon(menu.IconSWFilter, true)
		l.swSeen.Reset()
		if l.swAux {
			l.aux(auxValueLine(v, l.auxLittle))
		}
	}

	for _, c := range f.Result.Changes {
		e.PostLine(canbus.FormatOutput(c), menu.SourceSoftware)
	}
	if len(f.Result.Changes) > 0 {
		l.setOutputs()
	}
}

// auxValueLine renders a software filter value as its raw bytes in the
// configured order, for example "SWF3 00 FF".
func auxValueLine(v canbus.FilterValue, little bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SWF%d", v.Filter)
	for _, b := range canbus.EncodeValue(v, little) {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}

func (l *Loop) aux(line string) {
	if l.cfg.Aux == nil {
		return
	}
	if _, err := io.WriteString(l.cfg.Aux, line+"\r\n"); err != nil {
		l.logger.Warn("aux write failed", "err", err)
	}
}

func (l *Loop) setOutputs() {
	outs := l.cfg.Bus.Outputs()
	if l.cfg.Outputs != nil {
		for i, on := range outs {
			l.cfg.Outputs.Set(i, on)
		}
	}
	l.cfg.Engine.SetIcon(menu.IconComparator, l.cfg.Bus.AnyOutputActive())
}

func (l *Loop) decayIcons() {
	e := l.cfg.Engine
	if e.IconOn(menu.IconHWFilter) && l.hwSeen.Expired() {
		e.SetIcon(menu.IconHWFilter, false)
	}
	if e.IconOn(menu.IconSWFilter) && l.swSeen.Expired() {
		e.SetIcon(menu.IconSWFilter, false)
	}
}

func (l *Loop) refreshVoltage() {
	if l.cfg.Voltage != nil {
		l.cfg.Engine.SetVoltage(l.cfg.Voltage())
	}
}
