// Package canbus applies the device settings to CAN traffic: bit rate,
// hardware mask/filter acceptance, software filter extraction and
// comparator outputs.
package canbus

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
)

// MaxDataLen is the payload size of a classic CAN frame.
const MaxDataLen = 8

const (
	StdIDMask = 0x7FF
	ExtIDMask = 0x1FFFFFFF
)

var (
	ErrInvalidSpeed = errors.New("invalid CAN speed index")
	ErrNotStarted   = errors.New("controller not started")
)

// Speed is one entry of the bit rate table.
type Speed struct {
	Label string
	Kbps  int
}

// Speeds is indexed by DeviceSettings.CANSpeed.
var Speeds = [config.SpeedCount]Speed{
	{"10kbps", 10},
	{"50kbps", 50},
	{"100kbps", 100},
	{"125kbps", 125},
	{"250kbps", 250},
	{"500kbps", 500},
	{"800kbps", 800},
	{"1Mbps", 1000},
}

// SpeedOf returns the table entry for a settings speed index.
func SpeedOf(index uint8) (Speed, error) {
	if int(index) >= len(Speeds) {
		return Speed{}, fmt.Errorf("%d: %w", index, ErrInvalidSpeed)
	}
	return Speeds[index], nil
}

// Message is a received or transmitted CAN frame.
type Message struct {
	ID       uint32
	Extended bool
	RTR      bool
	Len      uint8
	Data     [MaxDataLen]byte
}

// Payload returns the valid bytes of Data.
func (m *Message) Payload() []byte {
	n := m.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return m.Data[:n]
}

// NewMessage builds a frame from a byte slice, truncating past 8 bytes.
func NewMessage(id uint32, extended bool, data []byte) Message {
	m := Message{ID: id, Extended: extended}
	m.Len = uint8(copy(m.Data[:], data))
	return m
}

// Controller is the CAN transceiver.
type Controller interface {
	Begin(kbps int) error
	Received() bool
	Receive() (Message, error)
	Transmit(m Message) error
}

// FilterProgrammer is implemented by controllers with hardware acceptance
// registers. Mask n gates the filters returned by config.MaskOf.
type FilterProgrammer interface {
	SetMask(n uint8, extended bool, value uint32) error
	SetFilter(n uint8, extended bool, value uint32) error
}

// Frame is the outcome of one received message.
type Frame struct {
	Msg      Message
	Accepted bool
	Filter   int // hardware filter that accepted Msg, or -1
	Result   Result
}

// Stats counts traffic since the last Apply.
type Stats struct {
	Received uint64
	Accepted uint64
	Rejected uint64
	Errors   uint64
}

// Bus ties a Controller to the current settings.
type Bus struct {
	ctrl    Controller
	accept  Acceptance
	eval    *Evaluator
	kbps    int
	stats   Stats
	logger  *slog.Logger
	started bool
}

// NewBus returns a bus that is not started until Apply.
func NewBus(ctrl Controller, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "canbus")
	return &Bus{
		ctrl:   ctrl,
		eval:   NewEvaluator(logger),
		logger: logger,
	}
}

// Apply (re)starts the controller at the configured rate if it changed and
// loads acceptance, software filters and comparators from s.
func (b *Bus) Apply(s config.DeviceSettings) error {
	sp, err := SpeedOf(s.CANSpeed)
	if err != nil {
		return err
	}
	if !b.started || sp.Kbps != b.kbps {
		if err := b.ctrl.Begin(sp.Kbps); err != nil {
			b.started = false
			return fmt.Errorf("begin %s: %w", sp.Label, err)
		}
		b.kbps = sp.Kbps
		b.started = true
		b.logger.Info("controller started", "speed", sp.Label)
	}

	b.accept = NewAcceptance(&s)
	if p, ok := b.ctrl.(FilterProgrammer); ok {
		if err := b.accept.Program(p); err != nil {
			return fmt.Errorf("program filters: %w", err)
		}
	}
	b.eval.Configure(s)
	b.stats = Stats{}
	b.logger.Debug("settings applied", "masks", b.accept.masks, "filters", b.accept.filters)
	return nil
}

// Poll reads at most one message. It reports false when nothing was
// waiting.
func (b *Bus) Poll() (Frame, bool, error) {
	if !b.started {
		return Frame{}, false, ErrNotStarted
	}
	if !b.ctrl.Received() {
		return Frame{}, false, nil
	}
	m, err := b.ctrl.Receive()
	if err != nil {
		b.stats.Errors++
		return Frame{}, false, fmt.Errorf("receive: %w", err)
	}
	b.stats.Received++

	f := Frame{Msg: m, Filter: -1}
	f.Filter, f.Accepted = b.accept.Accept(m)
	if !f.Accepted {
		b.stats.Rejected++
		return f, true, nil
	}
	b.stats.Accepted++
	f.Result = b.eval.Process(m)
	return f, true, nil
}

// Send transmits m.
func (b *Bus) Send(m Message) error {
	if !b.started {
		return ErrNotStarted
	}
	return b.ctrl.Transmit(m)
}

// Stats returns the traffic counters.
func (b *Bus) Stats() Stats { return b.stats }

// Outputs returns the comparator output states.
func (b *Bus) Outputs() [config.ComparatorCount]bool { return b.eval.Outputs() }

// AnyOutputActive reports whether any comparator output is active.
func (b *Bus) AnyOutputActive() bool { return b.eval.AnyActive() }
