// Package config defines the persisted settings record of the filter device.
// The record has a fixed shape and a fixed binary layout so it can be written
// to flash without allocation.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CurrentVersion is the settings format version.
// Bump this when making breaking changes to the layout.
// When firmware boots and finds a different version in flash, all slots are wiped.
const CurrentVersion uint16 = 1

const (
	MaskCount           = 2
	FilterCount         = 6
	HWEntryCount        = MaskCount + FilterCount
	SoftwareFilterCount = 8
	ComparatorCount     = 6
	AuxOutputCount      = 3
	OptionCount         = 1
	SpeedCount          = 8

	// SlotCount covers the 8 user slots plus the temporary slot.
	SlotCount = 9
	TempSlot  = 8

	StdIDMax    = 2047
	ExtIDMax    = 536870911
	StdIDDigits = 3
	ExtIDDigits = 8

	MaxBytePos = 7
	MaxBitPos  = 7
)

// Aux output positions.
const (
	AuxHardwareOut = 0
	AuxSoftwareOut = 1
	AuxByteOrder   = 2
)

// OptionSwapCancelEnter is the option index that swaps Cancel and Enter.
const OptionSwapCancelEnter = 0

// SoftwareFilter selects a bit span out of messages carrying CANID.
type SoftwareFilter struct {
	CANID     uint32 `yaml:"can_id"`
	StartByte uint8  `yaml:"start_byte"`
	StartBit  uint8  `yaml:"start_bit"`
	EndByte   uint8  `yaml:"end_byte"`
	EndBit    uint8  `yaml:"end_bit"`
	On        bool   `yaml:"on"`
	Signed    bool   `yaml:"signed"`
}

// Comparator drives one output from a software filter value.
// Polarity false means the output goes active when value >= Threshold.
type Comparator struct {
	Threshold      uint64 `yaml:"threshold"`
	SoftwareFilter uint8  `yaml:"software_filter"`
	On             bool   `yaml:"on"`
	Polarity       bool   `yaml:"polarity"`
}

// DeviceSettings is the whole persisted record.
//
// Layout (198 bytes, little-endian):
//
//	[0-1]     Version (uint16)
//	[2]       CANSpeed (uint8)
//	[3-8]     HWFilterExtended ([6]bool)
//	[9]       Reserved
//	[10-41]   HWMaskFilter ([8]uint32) in Mask0,F0,F1,Mask1,F2..F5 order
//	[42-121]  SoftwareFilters ([8] x 10 bytes)
//	[122-193] Comparators ([6] x 12 bytes)
//	[194-196] AuxOutputs ([3]bool)
//	[197]     Options ([1]bool)
type DeviceSettings struct {
	Version          uint16                              `yaml:"version"`
	CANSpeed         uint8                               `yaml:"can_speed"`
	HWFilterExtended [FilterCount]bool                   `yaml:"hw_filter_extended"`
	HWMaskFilter     [HWEntryCount]uint32                `yaml:"hw_mask_filter"`
	SoftwareFilters  [SoftwareFilterCount]SoftwareFilter `yaml:"software_filters"`
	Comparators      [ComparatorCount]Comparator         `yaml:"comparators"`
	AuxOutputs       [AuxOutputCount]bool                `yaml:"aux_outputs"`
	Options          [OptionCount]bool                   `yaml:"options"`
}

const (
	offVersion   = 0
	offSpeed     = 2
	offExtended  = 3
	offHW        = 10
	offSWF       = 42
	swfSize      = 10
	offCO        = offSWF + SoftwareFilterCount*swfSize
	coSize       = 12
	offAux       = offCO + ComparatorCount*coSize
	offOptions   = offAux + AuxOutputCount
	SettingsSize = offOptions + OptionCount
)

// HWEntry describes one row of the hardware mask/filter table.
type HWEntry struct {
	Filter  bool // false: mask
	Num     uint8
	Default uint32
}

// HWTable lists the hardware masks and filters in the order they are stored
// and shown. Mask0 gates filters 0-1, Mask1 gates filters 2-5.
var HWTable = [HWEntryCount]HWEntry{
	{Filter: false, Num: 0, Default: 0x7FF},
	{Filter: true, Num: 0, Default: 0x20},
	{Filter: true, Num: 1, Default: 0x30},
	{Filter: false, Num: 1, Default: 0x300},
	{Filter: true, Num: 2, Default: 0x140},
	{Filter: true, Num: 3, Default: 0x150},
	{Filter: true, Num: 4, Default: 0x160},
	{Filter: true, Num: 5, Default: 0x280},
}

// MaskOf returns the mask number gating hardware filter n.
func MaskOf(filter uint8) uint8 {
	if filter < 2 {
		return 0
	}
	return 1
}

// Errors
var (
	ErrInvalidSize = errors.New("invalid settings size")
	ErrOutOfRange  = errors.New("setting out of range")
)

// Defaults returns the factory settings.
func Defaults() DeviceSettings {
	s := DeviceSettings{
		Version:  CurrentVersion,
		CANSpeed: 5, // 500kbps
	}
	for i, e := range HWTable {
		s.HWMaskFilter[i] = e.Default
	}
	for i := range s.SoftwareFilters {
		s.SoftwareFilters[i] = SoftwareFilter{StartByte: 0, StartBit: 7, EndByte: 0, EndBit: 0}
	}
	for i := range s.Comparators {
		s.Comparators[i].SoftwareFilter = uint8(i)
	}
	return s
}

// AllFiltersStandard reports whether every hardware filter uses 11-bit IDs.
func (s *DeviceSettings) AllFiltersStandard() bool {
	for _, ext := range s.HWFilterExtended {
		if ext {
			return false
		}
	}
	return true
}

// Validate checks every field against its static range.
func (s *DeviceSettings) Validate() error {
	if s.CANSpeed >= SpeedCount {
		return fmt.Errorf("can_speed %d: %w", s.CANSpeed, ErrOutOfRange)
	}
	for i, v := range s.HWMaskFilter {
		if v > ExtIDMax {
			return fmt.Errorf("hw_mask_filter[%d] 0x%X: %w", i, v, ErrOutOfRange)
		}
	}
	for i, f := range s.SoftwareFilters {
		if f.CANID > ExtIDMax {
			return fmt.Errorf("software_filters[%d].can_id 0x%X: %w", i, f.CANID, ErrOutOfRange)
		}
		if f.StartByte > MaxBytePos || f.EndByte > MaxBytePos || f.StartBit > MaxBitPos || f.EndBit > MaxBitPos {
			return fmt.Errorf("software_filters[%d] span: %w", i, ErrOutOfRange)
		}
	}
	for i, c := range s.Comparators {
		if c.SoftwareFilter >= SoftwareFilterCount {
			return fmt.Errorf("comparators[%d].software_filter %d: %w", i, c.SoftwareFilter, ErrOutOfRange)
		}
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler for DeviceSettings.
func (s *DeviceSettings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SettingsSize)
	binary.LittleEndian.PutUint16(buf[offVersion:], s.Version)
	buf[offSpeed] = s.CANSpeed
	for i, ext := range s.HWFilterExtended {
		buf[offExtended+i] = boolByte(ext)
	}
	for i, v := range s.HWMaskFilter {
		binary.LittleEndian.PutUint32(buf[offHW+i*4:], v)
	}

	for i, f := range s.SoftwareFilters {
		offset := offSWF + i*swfSize
		binary.LittleEndian.PutUint32(buf[offset:], f.CANID)
		buf[offset+4] = f.StartByte
		buf[offset+5] = f.StartBit
		buf[offset+6] = f.EndByte
		buf[offset+7] = f.EndBit
		buf[offset+8] = boolByte(f.On)
		buf[offset+9] = boolByte(f.Signed)
	}

	for i, c := range s.Comparators {
		offset := offCO + i*coSize
		binary.LittleEndian.PutUint64(buf[offset:], c.Threshold)
		buf[offset+8] = c.SoftwareFilter
		buf[offset+9] = boolByte(c.On)
		buf[offset+10] = boolByte(c.Polarity)
	}

	for i, on := range s.AuxOutputs {
		buf[offAux+i] = boolByte(on)
	}
	for i, on := range s.Options {
		buf[offOptions+i] = boolByte(on)
	}

	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for DeviceSettings.
func (s *DeviceSettings) UnmarshalBinary(data []byte) error {
	if len(data) < SettingsSize {
		return ErrInvalidSize
	}

	s.Version = binary.LittleEndian.Uint16(data[offVersion:])
	s.CANSpeed = data[offSpeed]
	for i := range s.HWFilterExtended {
		s.HWFilterExtended[i] = data[offExtended+i] != 0
	}
	for i := range s.HWMaskFilter {
		s.HWMaskFilter[i] = binary.LittleEndian.Uint32(data[offHW+i*4:])
	}

	for i := range s.SoftwareFilters {
		offset := offSWF + i*swfSize
		f := &s.SoftwareFilters[i]
		f.CANID = binary.LittleEndian.Uint32(data[offset:])
		f.StartByte = data[offset+4]
		f.StartBit = data[offset+5]
		f.EndByte = data[offset+6]
		f.EndBit = data[offset+7]
		f.On = data[offset+8] != 0
		f.Signed = data[offset+9] != 0
	}

	for i := range s.Comparators {
		offset := offCO + i*coSize
		c := &s.Comparators[i]
		c.Threshold = binary.LittleEndian.Uint64(data[offset:])
		c.SoftwareFilter = data[offset+8]
		c.On = data[offset+9] != 0
		c.Polarity = data[offset+10] != 0
	}

	for i := range s.AuxOutputs {
		s.AuxOutputs[i] = data[offAux+i] != 0
	}
	for i := range s.Options {
		s.Options[i] = data[offOptions+i] != 0
	}

	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
