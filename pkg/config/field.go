package config

import (
	"fmt"
	"strings"
)

// FieldKind identifies which settings field a register address refers to.
type FieldKind int8

const (
	FieldNone FieldKind = iota - 1

	// Button screens
	CANSpeed
	HWFilterLength
	SWFOnOff
	SWFSign
	COOnOff
	COPolarity
	AuxOutput
	SaveSlot
	LoadSlot
	OptionFlag

	// Value screens
	HWMaskFilter
	SWFCANID
	SWFStartByte
	SWFStartBit
	SWFEndByte
	SWFEndBit
	COUsingSWF
	COThreshold

	fieldKindMax
)

var fieldNames = [...]string{
	CANSpeed:       "can_speed",
	HWFilterLength: "hw_filter_length",
	SWFOnOff:       "swf_on",
	SWFSign:        "swf_signed",
	COOnOff:        "co_on",
	COPolarity:     "co_polarity",
	AuxOutput:      "aux_output",
	SaveSlot:       "save_slot",
	LoadSlot:       "load_slot",
	OptionFlag:     "option",
	HWMaskFilter:   "hw_mask_filter",
	SWFCANID:       "swf_can_id",
	SWFStartByte:   "swf_start_byte",
	SWFStartBit:    "swf_start_bit",
	SWFEndByte:     "swf_end_byte",
	SWFEndBit:      "swf_end_bit",
	COUsingSWF:     "co_using_swf",
	COThreshold:    "co_threshold",
}

func (k FieldKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("field(%d)", int8(k))
	}
	return fieldNames[k]
}

// Valid reports whether k names a real field.
func (k FieldKind) Valid() bool {
	return k > FieldNone && k < fieldKindMax
}

// Wide reports whether k uses the unranged 64-bit domain.
func (k FieldKind) Wide() bool {
	return k == COThreshold
}

// Flag reports whether k only accepts 0 or 1.
func (k FieldKind) Flag() bool {
	switch k {
	case HWFilterLength, SWFOnOff, SWFSign, COOnOff, COPolarity, AuxOutput, OptionFlag, SaveSlot, LoadSlot:
		return true
	}
	return false
}

// Len returns the number of indices addressable under k.
func (k FieldKind) Len() int {
	switch k {
	case CANSpeed:
		return 1
	case HWFilterLength:
		return FilterCount
	case SWFOnOff, SWFSign, SWFCANID, SWFStartByte, SWFStartBit, SWFEndByte, SWFEndBit:
		return SoftwareFilterCount
	case COOnOff, COPolarity, COUsingSWF, COThreshold:
		return ComparatorCount
	case AuxOutput:
		return AuxOutputCount
	case SaveSlot, LoadSlot:
		return SlotCount - 1
	case OptionFlag:
		return OptionCount
	case HWMaskFilter:
		return HWEntryCount
	}
	return 0
}

// ParseFieldKind resolves a field name as printed by String.
func ParseFieldKind(name string) (FieldKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := CANSpeed; k < fieldKindMax; k++ {
		if fieldNames[k] == name {
			return k, nil
		}
	}
	return FieldNone, fmt.Errorf("unknown field %q", name)
}
