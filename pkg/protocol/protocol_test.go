package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"

	"tinygo.org/x/tinyfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*Handler, *settings.Registry, *storage.Manager) {
	t.Helper()
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true, testLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	reg := settings.New(mgr, testLogger())
	return NewHandler(reg, mgr, testLogger()), reg, mgr
}

// loopback feeds written frames straight into a Handler.
type loopback struct {
	h   *Handler
	out bytes.Buffer
}

func (l *loopback) Write(p []byte) (int, error) {
	f, err := ReadFrame(bytes.NewReader(p))
	if err != nil {
		return 0, err
	}
	if err := WriteResponse(&l.out, l.h.Handle(f)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (l *loopback) Read(p []byte) (int, error) {
	return l.out.Read(p)
}

func TestFrameEncodingDecoding(t *testing.T) {
	original := &Frame{
		Cmd:     CmdGetSettings,
		Payload: []byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, original); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if buf.Len() != 1+1+2+4+2 {
		t.Errorf("frame size: expected 10, got %d", buf.Len())
	}

	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if decoded.Cmd != original.Cmd {
		t.Errorf("Cmd: expected 0x%x, got 0x%x", original.Cmd, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Payload: expected %v, got %v", original.Payload, decoded.Payload)
	}
}

func TestResponseEncodingDecoding(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, &Response{Status: StatusNotFound, Payload: []byte{9}}); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}
	resp, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if resp.Status != StatusNotFound || !bytes.Equal(resp.Payload, []byte{9}) {
		t.Errorf("got %+v", resp)
	}
}

func TestPingCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	frame := &Frame{Cmd: CmdPing, Payload: []byte{0xAA, 0xBB, 0xCC}}
	resp := handler.Handle(frame)

	if resp.Status != StatusOK {
		t.Errorf("Expected status OK, got 0x%x", resp.Status)
	}
	if !bytes.Equal(resp.Payload, frame.Payload) {
		t.Errorf("Expected echo payload, got %v", resp.Payload)
	}
}

func TestDiscoverCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdDiscover})
	if resp.Status != StatusOK {
		t.Fatalf("CmdDiscover failed: status 0x%x", resp.Status)
	}
	if string(resp.Payload) != DiscoverReply {
		t.Errorf("Expected payload '%s', got '%s'", DiscoverReply, string(resp.Payload))
	}
}

func TestGetSetSettings(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	s := config.Defaults()
	s.CANSpeed = 3
	s.SoftwareFilters[2].CANID = 0x456
	data, _ := s.MarshalBinary()

	resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data})
	if resp.Status != StatusOK {
		t.Fatalf("SetSettings failed: status 0x%x", resp.Status)
	}
	if !handler.Changed() {
		t.Error("Changed should report the write")
	}
	if handler.Changed() {
		t.Error("Changed should clear once read")
	}
	if reg.Current().CANSpeed != 3 {
		t.Errorf("CANSpeed: expected 3, got %d", reg.Current().CANSpeed)
	}

	resp = handler.Handle(&Frame{Cmd: CmdGetSettings})
	if resp.Status != StatusOK {
		t.Fatalf("GetSettings failed: status 0x%x", resp.Status)
	}
	var loaded config.DeviceSettings
	if err := loaded.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if loaded != s {
		t.Errorf("settings mismatch: expected %+v, got %+v", s, loaded)
	}
}

func TestSetSettingsRejected(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	s := config.Defaults()
	s.Version = config.CurrentVersion + 1
	data, _ := s.MarshalBinary()
	if resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data}); resp.Status != StatusVersionMismatch {
		t.Errorf("version: expected StatusVersionMismatch, got 0x%x", resp.Status)
	}

	s = config.Defaults()
	s.CANSpeed = config.SpeedCount
	data, _ = s.MarshalBinary()
	if resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data}); resp.Status != StatusInvalidData {
		t.Errorf("range: expected StatusInvalidData, got 0x%x", resp.Status)
	}

	if resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data[:10]}); resp.Status != StatusInvalidData {
		t.Errorf("size: expected StatusInvalidData, got 0x%x", resp.Status)
	}
	if reg.Current().CANSpeed != config.Defaults().CANSpeed {
		t.Error("rejected writes must not change the live record")
	}
	if handler.Changed() {
		t.Error("rejected writes must not report a change")
	}
}

func TestGetSetField(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	set := func(kind config.FieldKind, index int, v uint64) uint8 {
		payload := binary.LittleEndian.AppendUint64([]byte{uint8(kind), uint8(index)}, v)
		return handler.Handle(&Frame{Cmd: CmdSetField, Payload: payload}).Status
	}

	if st := set(config.SWFCANID, 4, 0x7E8); st != StatusOK {
		t.Fatalf("SetField SWFCANID: status 0x%x", st)
	}
	if v, _ := reg.Get(config.SWFCANID, 4); v != 0x7E8 {
		t.Errorf("SWFCANID[4]: expected 0x7E8, got 0x%X", v)
	}

	if st := set(config.SWFStartByte, 0, 8); st != StatusInvalidData {
		t.Errorf("out of range: expected StatusInvalidData, got 0x%x", st)
	}
	if st := set(config.COThreshold, 1, 0xFFFFFF80); st != StatusOK {
		t.Errorf("SetField COThreshold: status 0x%x", st)
	}
	if st := set(config.FieldKind(99), 0, 1); st != StatusInvalidData {
		t.Errorf("bad kind: expected StatusInvalidData, got 0x%x", st)
	}
	if st := set(config.AuxOutput, 3, 1); st != StatusInvalidData {
		t.Errorf("bad index: expected StatusInvalidData, got 0x%x", st)
	}

	resp := handler.Handle(&Frame{Cmd: CmdGetField, Payload: []byte{uint8(config.COThreshold), 1}})
	if resp.Status != StatusOK || binary.LittleEndian.Uint64(resp.Payload) != 0xFFFFFF80 {
		t.Errorf("GetField COThreshold: got 0x%x %v", resp.Status, resp.Payload)
	}
	resp = handler.Handle(&Frame{Cmd: CmdGetField, Payload: []byte{uint8(config.CANSpeed), 0}})
	if resp.Status != StatusOK || binary.LittleEndian.Uint64(resp.Payload) != 5 {
		t.Errorf("GetField CANSpeed: got 0x%x %v", resp.Status, resp.Payload)
	}
}

func TestSaveLoadSlots(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	s := reg.Current()
	s.AuxOutputs[1] = true
	reg.Replace(s)

	if resp := handler.Handle(&Frame{Cmd: CmdSaveSlot, Payload: []byte{4}}); resp.Status != StatusOK {
		t.Fatalf("SaveSlot failed: status 0x%x", resp.Status)
	}
	reg.Replace(config.Defaults())

	resp := handler.Handle(&Frame{Cmd: CmdGetSlot, Payload: []byte{4}})
	if resp.Status != StatusOK {
		t.Fatalf("GetSlot failed: status 0x%x", resp.Status)
	}
	if reg.Current().AuxOutputs[1] {
		t.Error("GetSlot must not load the slot")
	}

	if resp := handler.Handle(&Frame{Cmd: CmdLoadSlot, Payload: []byte{4}}); resp.Status != StatusOK {
		t.Fatalf("LoadSlot failed: status 0x%x", resp.Status)
	}
	if !reg.Current().AuxOutputs[1] {
		t.Error("LoadSlot did not restore the record")
	}
	if !handler.Changed() {
		t.Error("LoadSlot should report a change")
	}

	resp = handler.Handle(&Frame{Cmd: CmdListSlots})
	if resp.Status != StatusOK || !bytes.Equal(resp.Payload, []byte{1, 4}) {
		t.Errorf("ListSlots: got 0x%x %v", resp.Status, resp.Payload)
	}

	if resp := handler.Handle(&Frame{Cmd: CmdDeleteSlot, Payload: []byte{4}}); resp.Status != StatusOK {
		t.Errorf("DeleteSlot failed: status 0x%x", resp.Status)
	}
	if resp := handler.Handle(&Frame{Cmd: CmdLoadSlot, Payload: []byte{4}}); resp.Status != StatusNotFound {
		t.Errorf("deleted slot: expected StatusNotFound, got 0x%x", resp.Status)
	}
}

func TestNotFound(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetSlot, Payload: []byte{7}})
	if resp.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got 0x%x", resp.Status)
	}
}

func TestInvalidSlot(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	for _, cmd := range []uint8{CmdSaveSlot, CmdLoadSlot, CmdGetSlot, CmdDeleteSlot} {
		resp := handler.Handle(&Frame{Cmd: cmd, Payload: []byte{config.SlotCount}})
		if resp.Status != StatusInvalidData {
			t.Errorf("%s: expected StatusInvalidData, got 0x%x", CommandName(cmd), resp.Status)
		}
	}
}

func TestStorageStats(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	reg.Save(0)
	reg.Save(8)

	resp := handler.Handle(&Frame{Cmd: CmdGetStorageStats})
	if resp.Status != StatusOK {
		t.Fatalf("GetStorageStats failed: status 0x%x", resp.Status)
	}
	if len(resp.Payload) != 13 {
		t.Fatalf("Expected 13 byte payload, got %d", len(resp.Payload))
	}
	total := binary.LittleEndian.Uint32(resp.Payload[0:])
	if total != 256*1024 {
		t.Errorf("TotalSpace: expected %d, got %d", 256*1024, total)
	}
	if resp.Payload[12] != 2 {
		t.Errorf("SlotCount: expected 2, got %d", resp.Payload[12])
	}
}

func TestFactoryReset(t *testing.T) {
	handler, reg, mgr := newTestHandler(t)
	defer mgr.Close()

	s := reg.Current()
	s.CANSpeed = 0
	reg.Replace(s)
	reg.Save(1)

	if resp := handler.Handle(&Frame{Cmd: CmdFactoryReset}); resp.Status != StatusOK {
		t.Fatalf("FactoryReset failed: status 0x%x", resp.Status)
	}
	if reg.Current() != config.Defaults() {
		t.Error("live record should be back to defaults")
	}
	slots, _ := mgr.ListSlots()
	if len(slots) != 0 {
		t.Errorf("Expected 0 slots after reset, got %d", len(slots))
	}
}

func TestGetVersion(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetVersion})
	if resp.Status != StatusOK {
		t.Fatalf("GetVersion failed: status 0x%x", resp.Status)
	}
	if len(resp.Payload) != 4 {
		t.Fatalf("Expected 4 byte payload, got %d", len(resp.Payload))
	}
	if v := binary.LittleEndian.Uint16(resp.Payload[2:]); v != config.CurrentVersion {
		t.Errorf("SettingsVersion: expected %d, got %d", config.CurrentVersion, v)
	}
}

func TestInvalidCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: 0xFF})
	if resp.Status != StatusInvalidCmd {
		t.Errorf("Expected StatusInvalidCmd, got 0x%x", resp.Status)
	}
}

func TestCRCMismatch(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdPing)
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, 0)
	buf.Write(lenBytes)
	// Write wrong CRC
	buf.Write([]byte{0xFF, 0xFF})

	_, err := ReadFrame(buf)
	if err != ErrCRCMismatch {
		t.Errorf("Expected ErrCRCMismatch, got %v", err)
	}
}

func TestInvalidFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0x55) // Wrong sync

	_, err := ReadFrame(buf)
	if err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}

	buf.Reset()
	buf.Write([]byte{SyncByte, CmdPing, 0xFF, 0xFF})
	if _, err := ReadFrame(buf); err != ErrInvalidFrame {
		t.Errorf("oversized: expected ErrInvalidFrame, got %v", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()
	c := NewClient(&loopback{h: handler})

	if err := c.Ping([]byte("hi")); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if ok, err := c.Discover(); err != nil || !ok {
		t.Fatalf("Discover: got %v %v", ok, err)
	}

	s, err := c.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	s.Options[0] = true
	if err := c.SetSettings(s); err != nil {
		t.Fatalf("SetSettings failed: %v", err)
	}
	v, err := c.Field(config.OptionFlag, 0)
	if err != nil || v != 1 {
		t.Errorf("Field: expected 1, got %d (%v)", v, err)
	}
	if err := c.SetField(config.COUsingSWF, 5, 7); err != nil {
		t.Errorf("SetField failed: %v", err)
	}

	if err := c.Save(8); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	slots, err := c.Slots()
	if err != nil || !bytes.Equal(slots, []byte{8}) {
		t.Errorf("Slots: got %v (%v)", slots, err)
	}
	stored, err := c.Slot(8)
	if err != nil || stored.Comparators[5].SoftwareFilter != 7 {
		t.Errorf("Slot: got %+v (%v)", stored.Comparators[5], err)
	}
	if err := c.Load(8); err != nil {
		t.Errorf("Load failed: %v", err)
	}

	st, err := c.Stats()
	if err != nil || st.SlotCount != 1 {
		t.Errorf("Stats: got %+v (%v)", st, err)
	}
	ver, err := c.Version()
	if err != nil || ver.Settings != config.CurrentVersion {
		t.Errorf("Version: got %+v (%v)", ver, err)
	}

	if err := c.DeleteSlot(8); err != nil {
		t.Errorf("DeleteSlot failed: %v", err)
	}
	err = c.Load(8)
	var se *ResponseError
	if !errors.As(err, &se) || se.Status != StatusNotFound {
		t.Errorf("Load of deleted slot: expected NotFound ResponseError, got %v", err)
	}
	if err := c.FactoryReset(); err != nil {
		t.Errorf("FactoryReset failed: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(&Frame{Cmd: CmdSaveSlot, Payload: []byte{2}}, &Response{Status: StatusOK})
	if got != "PC Save[1] 02 > OK[0]" {
		t.Errorf("Describe: got %q", got)
	}
	got = Describe(&Frame{Cmd: 0x77, Payload: []byte{1, 2, 3, 4, 5}}, nil)
	if got != "PC Cmd77[5] 01 02 03 04.." {
		t.Errorf("Describe unknown: got %q", got)
	}
	if !strings.HasPrefix(DescribeError(ErrCRCMismatch), "PC error") {
		t.Error("DescribeError prefix")
	}
	if StatusName(0x42) != "Sts42" {
		t.Errorf("StatusName: got %q", StatusName(0x42))
	}
}
