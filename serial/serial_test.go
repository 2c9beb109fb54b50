package serial

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
)

type fakePort struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (p *fakePort) ReadByte() (byte, error)     { return p.in.ReadByte() }
func (p *fakePort) Buffered() int               { return p.in.Len() }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }

type echoHandler struct{ calls int }

func (h *echoHandler) Handle(f *protocol.Frame) *protocol.Response {
	h.calls++
	return &protocol.Response{Status: protocol.StatusOK, Payload: f.Payload}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSerial() (*Serial, *fakePort, *fakeClock) {
	port := &fakePort{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSerialWithClock(port, logger, clock.now), port, clock
}

func TestPollAssemblesFrame(t *testing.T) {
	s, port, _ := newTestSerial()

	var frame bytes.Buffer
	protocol.WriteFrame(&frame, &protocol.Frame{Cmd: protocol.CmdPing, Payload: []byte{1, 2}})
	raw := frame.Bytes()

	// Noise before the sync byte is skipped.
	port.in.Write([]byte{0x00, 0x13})
	port.in.Write(raw[:3])
	if f, err := s.Poll(); f != nil || err != nil {
		t.Fatalf("partial frame: expected nothing, got %v %v", f, err)
	}

	port.in.Write(raw[3:])
	f, err := s.Poll()
	if err != nil || f == nil {
		t.Fatalf("Poll: expected frame, got %v %v", f, err)
	}
	if f.Cmd != protocol.CmdPing || !bytes.Equal(f.Payload, []byte{1, 2}) {
		t.Errorf("frame: got %+v", f)
	}
}

func TestPollCRCError(t *testing.T) {
	s, port, _ := newTestSerial()
	port.in.Write([]byte{protocol.SyncByte, protocol.CmdPing, 0, 0, 0xFF, 0xFF})

	h := &echoHandler{}
	line := s.Serve(h)
	if h.calls != 0 {
		t.Error("handler must not see a corrupt frame")
	}
	if !strings.HasPrefix(line, "PC error") {
		t.Errorf("line: got %q", line)
	}
	resp, err := protocol.ReadResponse(&port.out)
	if err != nil || resp.Status != protocol.StatusCRCError {
		t.Errorf("response: got %+v %v", resp, err)
	}
}

func TestPollDropsStalledFrame(t *testing.T) {
	s, port, clock := newTestSerial()
	port.in.Write([]byte{protocol.SyncByte, protocol.CmdPing})
	s.Poll()

	clock.t = clock.t.Add(FrameTimeout)
	var frame bytes.Buffer
	protocol.WriteFrame(&frame, &protocol.Frame{Cmd: protocol.CmdDiscover})
	port.in.Write(frame.Bytes())

	f, err := s.Poll()
	if err != nil || f == nil || f.Cmd != protocol.CmdDiscover {
		t.Errorf("expected fresh frame after timeout, got %v %v", f, err)
	}
}

func TestServe(t *testing.T) {
	s, port, _ := newTestSerial()
	h := &echoHandler{}

	if line := s.Serve(h); line != "" {
		t.Errorf("idle Serve: got %q", line)
	}

	protocol.WriteFrame(&port.in, &protocol.Frame{Cmd: protocol.CmdPing, Payload: []byte{7}})
	line := s.Serve(h)
	if line != "PC Ping[1] 07 > OK[1]" {
		t.Errorf("line: got %q", line)
	}
	resp, err := protocol.ReadResponse(&port.out)
	if err != nil || resp.Status != protocol.StatusOK || !bytes.Equal(resp.Payload, []byte{7}) {
		t.Errorf("response: got %+v %v", resp, err)
	}
}
