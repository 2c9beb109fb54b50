// Package serial runs the device end of the remote access link: it
// assembles protocol frames from a byte stream without blocking and writes
// the responses back.
package serial

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
)

// FrameTimeout drops a partly received frame when the host goes quiet.
const FrameTimeout = 500 * time.Millisecond

// Port is the device side of the USB CDC link. machine.Serial satisfies it.
type Port interface {
	io.Writer
	ReadByte() (byte, error)
	Buffered() int
}

// Handler answers one command.
type Handler interface {
	Handle(frame *protocol.Frame) *protocol.Response
}

type Serial struct {
	serial   Port
	logger   *slog.Logger
	stall    *timer.IntervalTimer
	inIndex  int
	need     int
	inBuffer [1 + 1 + 2 + protocol.MaxPayload + 2]byte
}

func NewSerial(serial Port, logger *slog.Logger) *Serial {
	return NewSerialWithClock(serial, logger, time.Now)
}

// NewSerialWithClock is NewSerial with an injected clock for the frame timeout.
func NewSerialWithClock(serial Port, logger *slog.Logger, now timer.Clock) *Serial {
	if logger == nil {
		logger = slog.Default()
	}
	return &Serial{
		serial: serial,
		logger: logger.With("component", "serial"),
		stall:  timer.NewWithClock(FrameTimeout, false, now),
	}
}

// Poll consumes the buffered input and returns a frame once one is complete.
// A frame that fails its CRC is reported through err and dropped.
func (s *Serial) Poll() (*protocol.Frame, error) {
	if s.inIndex > 0 && s.stall.Expired() {
		s.logger.Warn("dropping partial frame", "len", s.inIndex)
		s.inIndex = 0
	}
	for s.serial.Buffered() > 0 {
		b, err := s.serial.ReadByte()
		if err != nil {
			return nil, nil
		}
		s.stall.Reset()
		if frame, done, err := s.feed(b); done {
			return frame, err
		}
	}
	return nil, nil
}

// feed adds one byte to the frame under assembly.
func (s *Serial) feed(b byte) (*protocol.Frame, bool, error) {
	if s.inIndex == 0 {
		if b != protocol.SyncByte {
			return nil, false, nil
		}
		s.need = 4
	}
	s.inBuffer[s.inIndex] = b
	s.inIndex++

	if s.inIndex == 4 {
		length := int(binary.LittleEndian.Uint16(s.inBuffer[2:4]))
		if length > protocol.MaxPayload {
			s.inIndex = 0
			return nil, true, protocol.ErrInvalidFrame
		}
		s.need = 4 + length + 2
	}
	if s.inIndex < s.need {
		return nil, false, nil
	}

	frame, err := protocol.ReadFrame(bytes.NewReader(s.inBuffer[:s.inIndex]))
	s.inIndex = 0
	if err != nil {
		s.logger.Warn("bad frame", "err", err)
		return nil, true, err
	}
	return frame, true, nil
}

// Respond writes resp to the host.
func (s *Serial) Respond(resp *protocol.Response) error {
	if err := protocol.WriteResponse(s.serial, resp); err != nil {
		s.logger.Error("write response failed", "err", err)
		return err
	}
	return nil
}

// Serve answers at most one pending command. It returns a monitor line
// describing the exchange, or "" when nothing happened.
func (s *Serial) Serve(h Handler) string {
	frame, err := s.Poll()
	if err != nil {
		if err == protocol.ErrCRCMismatch {
			s.Respond(&protocol.Response{Status: protocol.StatusCRCError})
		}
		return protocol.DescribeError(err)
	}
	if frame == nil {
		return ""
	}
	resp := h.Handle(frame)
	s.Respond(resp)
	return protocol.Describe(frame, resp)
}
