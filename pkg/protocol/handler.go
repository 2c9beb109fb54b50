package protocol

import (
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"
)

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 1
	FirmwareMinor = 0
)

// Settings is the live settings record.
type Settings interface {
	Current() config.DeviceSettings
	Replace(s config.DeviceSettings) error
	Get(kind config.FieldKind, index int) (int32, error)
	GetWide(kind config.FieldKind, index int) (uint64, error)
	Set(value int32, kind config.FieldKind, tableIndex, index int) error
	SetWide(value uint64, kind config.FieldKind, index int) error
	Save(slot int) error
	Load(slot int) error
}

// Slots is the flash slot store.
type Slots interface {
	LoadSlot(slot uint8, s *config.DeviceSettings) error
	DeleteSlot(slot uint8) error
	ListSlots() ([]uint8, error)
	GetStats() (*storage.Stats, error)
	ForceWipe() error
}

// Handler processes protocol commands.
type Handler struct {
	settings Settings
	slots    Slots
	logger   *slog.Logger
	changed  bool
}

// NewHandler creates a new protocol handler.
func NewHandler(s Settings, slots Slots, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		settings: s,
		slots:    slots,
		logger:   logger.With("component", "protocol"),
	}
}

// Changed reports, once, that a command modified the live settings.
func (h *Handler) Changed() bool {
	c := h.changed
	h.changed = false
	return c
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	h.logger.Debug("command", "cmd", CommandName(frame.Cmd), "len", len(frame.Payload))

	switch frame.Cmd {
	case CmdPing:
		return &Response{Status: StatusOK, Payload: frame.Payload}
	case CmdDiscover:
		return &Response{Status: StatusOK, Payload: []byte(DiscoverReply)}
	case CmdGetSettings:
		return h.handleGetSettings()
	case CmdSetSettings:
		return h.handleSetSettings(frame.Payload)
	case CmdGetField:
		return h.handleGetField(frame.Payload)
	case CmdSetField:
		return h.handleSetField(frame.Payload)
	case CmdSaveSlot:
		return h.handleSaveSlot(frame.Payload)
	case CmdLoadSlot:
		return h.handleLoadSlot(frame.Payload)
	case CmdGetSlot:
		return h.handleGetSlot(frame.Payload)
	case CmdDeleteSlot:
		return h.handleDeleteSlot(frame.Payload)
	case CmdListSlots:
		return h.handleListSlots()
	case CmdGetStorageStats:
		return h.handleGetStorageStats()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

func encodeSettings(s *config.DeviceSettings) *Response {
	data, err := s.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK, Payload: data}
}

// storageStatus maps a slot store error to a status code.
func storageStatus(err error) uint8 {
	switch {
	case errors.Is(err, storage.ErrSlotEmpty):
		return StatusNotFound
	case errors.Is(err, storage.ErrInvalidSlot), errors.Is(err, settings.ErrInvalidSlot):
		return StatusInvalidData
	case errors.Is(err, storage.ErrVersionMismatch):
		return StatusVersionMismatch
	}
	return StatusError
}

func (h *Handler) handleGetSettings() *Response {
	s := h.settings.Current()
	return encodeSettings(&s)
}

// handleSetSettings replaces the live record.
// Payload: [DeviceSettings:SettingsSize bytes]
func (h *Handler) handleSetSettings(payload []byte) *Response {
	if len(payload) != config.SettingsSize {
		return &Response{Status: StatusInvalidData}
	}
	var s config.DeviceSettings
	if err := s.UnmarshalBinary(payload); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	if s.Version != config.CurrentVersion {
		return &Response{Status: StatusVersionMismatch}
	}
	if err := h.settings.Replace(s); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	h.changed = true
	return &Response{Status: StatusOK}
}

// fieldAddress decodes [Kind:1][Index:1].
func fieldAddress(payload []byte) (screen.Address, bool) {
	if len(payload) < 2 {
		return screen.Address{}, false
	}
	addr := screen.Address{Kind: config.FieldKind(int8(payload[0])), Index: int(payload[1])}
	if !addr.Kind.Valid() || addr.Index >= addr.Kind.Len() {
		return screen.Address{}, false
	}
	return addr, true
}

// handleGetField returns one field.
// Payload: [Kind:1][Index:1]  Response: [Value:8] (int64, or uint64 threshold)
func (h *Handler) handleGetField(payload []byte) *Response {
	addr, ok := fieldAddress(payload)
	if !ok || len(payload) != 2 {
		return &Response{Status: StatusInvalidData}
	}

	var v uint64
	if addr.Kind.Wide() {
		w, err := h.settings.GetWide(addr.Kind, addr.Index)
		if err != nil {
			return &Response{Status: StatusInvalidData}
		}
		v = w
	} else {
		n, err := h.settings.Get(addr.Kind, addr.Index)
		if err != nil {
			return &Response{Status: StatusInvalidData}
		}
		v = uint64(int64(n))
	}
	return &Response{Status: StatusOK, Payload: binary.LittleEndian.AppendUint64(nil, v)}
}

// handleSetField writes one field through the same validation as the menu.
// Payload: [Kind:1][Index:1][Value:8]
func (h *Handler) handleSetField(payload []byte) *Response {
	addr, ok := fieldAddress(payload)
	if !ok || len(payload) != 10 {
		return &Response{Status: StatusInvalidData}
	}
	v := binary.LittleEndian.Uint64(payload[2:])

	if addr.Kind.Wide() {
		if err := h.settings.SetWide(v, addr.Kind, addr.Index); err != nil {
			return &Response{Status: StatusInvalidData}
		}
		h.changed = true
		return &Response{Status: StatusOK}
	}

	n := int64(v)
	if n < -1<<31 || n > 1<<31-1 {
		return &Response{Status: StatusInvalidData}
	}
	id, ok := screen.IDOf(addr)
	if !ok {
		return &Response{Status: StatusInvalidData}
	}
	if err := h.settings.Set(int32(n), addr.Kind, screen.TableIndexOf(id), addr.Index); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	h.changed = true
	return &Response{Status: StatusOK}
}

func slotArg(payload []byte) (uint8, bool) {
	if len(payload) != 1 || payload[0] >= config.SlotCount {
		return 0, false
	}
	return payload[0], true
}

// handleSaveSlot stores the live record.
// Payload: [Slot:1]
func (h *Handler) handleSaveSlot(payload []byte) *Response {
	slot, ok := slotArg(payload)
	if !ok {
		return &Response{Status: StatusInvalidData}
	}
	if err := h.settings.Save(int(slot)); err != nil {
		return &Response{Status: storageStatus(err)}
	}
	return &Response{Status: StatusOK}
}

// handleLoadSlot makes a stored record live.
// Payload: [Slot:1]
func (h *Handler) handleLoadSlot(payload []byte) *Response {
	slot, ok := slotArg(payload)
	if !ok {
		return &Response{Status: StatusInvalidData}
	}
	if err := h.settings.Load(int(slot)); err != nil {
		return &Response{Status: storageStatus(err)}
	}
	h.changed = true
	return &Response{Status: StatusOK}
}

// handleGetSlot returns a stored record without loading it.
// Payload: [Slot:1]
func (h *Handler) handleGetSlot(payload []byte) *Response {
	slot, ok := slotArg(payload)
	if !ok {
		return &Response{Status: StatusInvalidData}
	}
	var s config.DeviceSettings
	if err := h.slots.LoadSlot(slot, &s); err != nil {
		return &Response{Status: storageStatus(err)}
	}
	return encodeSettings(&s)
}

// handleDeleteSlot removes a stored record.
// Payload: [Slot:1]
func (h *Handler) handleDeleteSlot(payload []byte) *Response {
	slot, ok := slotArg(payload)
	if !ok {
		return &Response{Status: StatusInvalidData}
	}
	if err := h.slots.DeleteSlot(slot); err != nil {
		return &Response{Status: storageStatus(err)}
	}
	return &Response{Status: StatusOK}
}

// handleListSlots returns all occupied slots.
// Response: [Count:1][Slot1:1][Slot2:1]...
func (h *Handler) handleListSlots() *Response {
	slots, err := h.slots.ListSlots()
	if err != nil {
		return &Response{Status: StatusError}
	}
	payload := make([]byte, 1, 1+len(slots))
	payload[0] = uint8(len(slots))
	payload = append(payload, slots...)
	return &Response{Status: StatusOK, Payload: payload}
}

// handleGetStorageStats returns storage statistics.
// Response: [Total:4][Used:4][Free:4][SlotCount:1]
func (h *Handler) handleGetStorageStats() *Response {
	stats, err := h.slots.GetStats()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 13)
	binary.LittleEndian.PutUint32(payload[0:], uint32(stats.TotalSpace))
	binary.LittleEndian.PutUint32(payload[4:], uint32(stats.UsedSpace))
	binary.LittleEndian.PutUint32(payload[8:], uint32(stats.FreeSpace))
	payload[12] = uint8(stats.SlotCount)

	return &Response{Status: StatusOK, Payload: payload}
}

// handleFactoryReset wipes every slot and restores the defaults.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.slots.ForceWipe(); err != nil {
		h.logger.Error("factory reset failed", "err", err)
		return &Response{Status: StatusError}
	}
	if err := h.settings.Replace(config.Defaults()); err != nil {
		return &Response{Status: StatusError}
	}
	h.changed = true
	h.logger.Info("factory reset")
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and settings format versions.
// Response: [FirmwareMajor:1][FirmwareMinor:1][SettingsVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := []byte{FirmwareMajor, FirmwareMinor}
	payload = binary.LittleEndian.AppendUint16(payload, config.CurrentVersion)
	return &Response{Status: StatusOK, Payload: payload}
}
