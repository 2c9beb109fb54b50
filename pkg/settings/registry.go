// Package settings owns the live settings record and gives typed, validated
// access to its fields by (FieldKind, index).
package settings

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

// Invalid is returned by Get alongside an error.
const Invalid int32 = -1

var (
	ErrInvalidField = errors.New("unrecognized field or index")
	ErrOutOfRange   = errors.New("value out of range")
	ErrInvalidSlot  = errors.New("invalid slot")
)

// SlotStore persists whole settings records by slot.
type SlotStore interface {
	SaveSlot(slot uint8, s *config.DeviceSettings) error
	LoadSlot(slot uint8, s *config.DeviceSettings) error
}

// Registry holds the one live copy of the settings.
type Registry struct {
	current config.DeviceSettings
	store   SlotStore
	logger  *slog.Logger
}

// New returns a registry holding the factory defaults.
func New(store SlotStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		current: config.Defaults(),
		store:   store,
		logger:  logger.With("component", "settings"),
	}
}

// Current returns a copy of the live record.
func (r *Registry) Current() config.DeviceSettings {
	return r.current
}

// Replace swaps in a whole record after validating it.
func (r *Registry) Replace(s config.DeviceSettings) error {
	if err := s.Validate(); err != nil {
		r.logger.Warn("rejected settings record", "err", err)
		return err
	}
	s.Version = config.CurrentVersion
	r.current = s
	return nil
}

func (r *Registry) checkIndex(kind config.FieldKind, index int) error {
	if !kind.Valid() || index < 0 || index >= kind.Len() {
		return fmt.Errorf("%s[%d]: %w", kind, index, ErrInvalidField)
	}
	return nil
}

// Get returns a bounded field. COThreshold and unknown kinds fail with
// Invalid and ErrInvalidField.
func (r *Registry) Get(kind config.FieldKind, index int) (int32, error) {
	if err := r.checkIndex(kind, index); err != nil || kind.Wide() {
		if err == nil {
			err = fmt.Errorf("%s: %w", kind, ErrInvalidField)
		}
		r.logger.Error("get failed", "kind", kind, "index", index, "err", err)
		return Invalid, err
	}

	s := &r.current
	switch kind {
	case config.CANSpeed:
		return int32(s.CANSpeed), nil
	case config.HWFilterLength:
		return b2i(s.HWFilterExtended[index]), nil
	case config.SWFOnOff:
		return b2i(s.SoftwareFilters[index].On), nil
	case config.SWFSign:
		return b2i(s.SoftwareFilters[index].Signed), nil
	case config.COOnOff:
		return b2i(s.Comparators[index].On), nil
	case config.COPolarity:
		return b2i(s.Comparators[index].Polarity), nil
	case config.AuxOutput:
		return b2i(s.AuxOutputs[index]), nil
	case config.SaveSlot, config.LoadSlot:
		return 0, nil
	case config.OptionFlag:
		return b2i(s.Options[index]), nil
	case config.HWMaskFilter:
		return int32(s.HWMaskFilter[index]), nil
	case config.SWFCANID:
		return int32(s.SoftwareFilters[index].CANID), nil
	case config.SWFStartByte:
		return int32(s.SoftwareFilters[index].StartByte), nil
	case config.SWFStartBit:
		return int32(s.SoftwareFilters[index].StartBit), nil
	case config.SWFEndByte:
		return int32(s.SoftwareFilters[index].EndByte), nil
	case config.SWFEndBit:
		return int32(s.SoftwareFilters[index].EndBit), nil
	case config.COUsingSWF:
		return int32(s.Comparators[index].SoftwareFilter), nil
	}
	return Invalid, ErrInvalidField
}

// GetWide returns the comparator threshold. Every other kind fails.
func (r *Registry) GetWide(kind config.FieldKind, index int) (uint64, error) {
	if err := r.checkIndex(kind, index); err != nil || !kind.Wide() {
		if err == nil {
			err = fmt.Errorf("%s: %w", kind, ErrInvalidField)
		}
		r.logger.Error("get wide failed", "kind", kind, "index", index, "err", err)
		return 0, err
	}
	return r.current.Comparators[index].Threshold, nil
}

// IsValid reports whether value may be written to kind. tableIndex is the
// position of the editing screen in its shape's table and selects the
// button count or the value bounds. Wide kinds are never valid here.
func (r *Registry) IsValid(value int32, kind config.FieldKind, tableIndex int) bool {
	switch {
	case kind == config.CANSpeed:
		if tableIndex < 0 || tableIndex >= len(screen.ButtonPages) {
			return false
		}
		return value >= 0 && int(value) < len(screen.ButtonPages[tableIndex].Labels)
	case kind.Flag():
		return value == 0 || value == 1
	case kind.Valid():
		if tableIndex < 0 || tableIndex >= len(screen.ValuePages) {
			return false
		}
		p := screen.ValuePages[tableIndex]
		return !p.Wide && value >= p.Min && value <= p.Max
	}
	r.logger.Error("validity check on unknown kind", "kind", kind)
	return false
}

// Set writes a bounded field if IsValid accepts it. Save and Load kinds are
// accepted but store nothing.
func (r *Registry) Set(value int32, kind config.FieldKind, tableIndex, index int) error {
	if err := r.checkIndex(kind, index); err != nil {
		r.logger.Error("set failed", "kind", kind, "index", index, "err", err)
		return err
	}
	if !r.IsValid(value, kind, tableIndex) {
		r.logger.Warn("rejected write", "kind", kind, "index", index, "value", value)
		return fmt.Errorf("%s[%d] = %d: %w", kind, index, value, ErrOutOfRange)
	}

	s := &r.current
	switch kind {
	case config.CANSpeed:
		s.CANSpeed = uint8(value)
	case config.HWFilterLength:
		s.HWFilterExtended[index] = value == 1
	case config.SWFOnOff:
		s.SoftwareFilters[index].On = value == 1
	case config.SWFSign:
		s.SoftwareFilters[index].Signed = value == 1
	case config.COOnOff:
		s.Comparators[index].On = value == 1
	case config.COPolarity:
		s.Comparators[index].Polarity = value == 1
	case config.AuxOutput:
		s.AuxOutputs[index] = value == 1
	case config.SaveSlot, config.LoadSlot:
	case config.OptionFlag:
		s.Options[index] = value == 1
	case config.HWMaskFilter:
		s.HWMaskFilter[index] = uint32(value)
	case config.SWFCANID:
		s.SoftwareFilters[index].CANID = uint32(value)
	case config.SWFStartByte:
		s.SoftwareFilters[index].StartByte = uint8(value)
	case config.SWFStartBit:
		s.SoftwareFilters[index].StartBit = uint8(value)
	case config.SWFEndByte:
		s.SoftwareFilters[index].EndByte = uint8(value)
	case config.SWFEndBit:
		s.SoftwareFilters[index].EndBit = uint8(value)
	case config.COUsingSWF:
		s.Comparators[index].SoftwareFilter = uint8(value)
	}
	return nil
}

// SetWide writes the comparator threshold without a range check. The caller
// enforces the range derived from the referenced software filter.
func (r *Registry) SetWide(value uint64, kind config.FieldKind, index int) error {
	if err := r.checkIndex(kind, index); err != nil || !kind.Wide() {
		if err == nil {
			err = fmt.Errorf("%s: %w", kind, ErrInvalidField)
		}
		r.logger.Error("set wide failed", "kind", kind, "index", index, "err", err)
		return err
	}
	r.current.Comparators[index].Threshold = value
	return nil
}

// Save writes the live record to slot 0-8.
func (r *Registry) Save(slot int) error {
	if slot < 0 || slot >= config.SlotCount {
		r.logger.Error("save to invalid slot", "slot", slot)
		return ErrInvalidSlot
	}
	if err := r.store.SaveSlot(uint8(slot), &r.current); err != nil {
		r.logger.Error("save failed", "slot", slot, "err", err)
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	r.logger.Info("settings saved", "slot", slot)
	return nil
}

// Load replaces the live record with slot 0-8. On failure the live record
// is left as it was.
func (r *Registry) Load(slot int) error {
	if slot < 0 || slot >= config.SlotCount {
		r.logger.Error("load from invalid slot", "slot", slot)
		return ErrInvalidSlot
	}
	var s config.DeviceSettings
	if err := r.store.LoadSlot(uint8(slot), &s); err != nil {
		r.logger.Error("load failed", "slot", slot, "err", err)
		return fmt.Errorf("load slot %d: %w", slot, err)
	}
	if err := s.Validate(); err != nil {
		r.logger.Error("slot holds invalid settings", "slot", slot, "err", err)
		return fmt.Errorf("load slot %d: %w", slot, err)
	}
	r.current = s
	r.logger.Info("settings loaded", "slot", slot)
	return nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
