package screen

import "github.com/tuffrabit/tinygo-flcm1/pkg/config"

// Address is a (FieldKind, index) pair naming one scalar settings field.
type Address struct {
	Kind  config.FieldKind
	Index int
}

// NoAddress is returned for navigation-only screens.
var NoAddress = Address{Kind: config.FieldNone, Index: -1}

// ShapeOf returns the shape whose range contains id.
func ShapeOf(id ID) Shape {
	switch {
	case id < 0 || id >= Max:
		return ShapeInvalid
	case id > ValueType:
		return ShapeValue
	case id > ButtonType && id < ValueType:
		return ShapeButton
	case id > ListType && id < ButtonType:
		return ShapeList
	case id > MonitorType && id < ListType:
		return ShapeMonitor
	}
	return ShapeInvalid
}

// TableIndexOf returns the position of id within its shape's static table,
// or -1 when id is not a screen.
func TableIndexOf(id ID) int {
	switch ShapeOf(id) {
	case ShapeValue:
		return int(id - (ValueType + 1))
	case ShapeButton:
		return int(id - (ButtonType + 1))
	case ShapeList:
		return int(id - (ListType + 1))
	case ShapeMonitor:
		return int(id - (MonitorType + 1))
	}
	return -1
}

type addressBlock struct {
	first ID
	kind  config.FieldKind
}

// addressBlocks must stay sorted by first. Each block covers the ids from
// first up to the next block's first.
var addressBlocks = []addressBlock{
	{CANSpeed, config.CANSpeed},
	{FilterLength0, config.HWFilterLength},
	{SWFSwitch0, config.SWFOnOff},
	{SWFSign0, config.SWFSign},
	{COSwitch0, config.COOnOff},
	{COPolarity0, config.COPolarity},
	{AuxHWFOut, config.AuxOutput},
	{Save0, config.SaveSlot},
	{Load0, config.LoadSlot},
	{SwapCancelEnter, config.OptionFlag},
	{HWValue0, config.HWMaskFilter},
	{SWFID0, config.SWFCANID},
	{SWFStartByte0, config.SWFStartByte},
	{SWFStartBit0, config.SWFStartBit},
	{SWFEndByte0, config.SWFEndByte},
	{SWFEndBit0, config.SWFEndBit},
	{COUsingSWF0, config.COUsingSWF},
	{COThreshold0, config.COThreshold},
}

// AddressOf returns the settings field edited by id. List and Monitor
// screens return NoAddress and false.
func AddressOf(id ID) (Address, bool) {
	shape := ShapeOf(id)
	if shape != ShapeButton && shape != ShapeValue {
		return NoAddress, false
	}
	for i := len(addressBlocks) - 1; i >= 0; i-- {
		b := addressBlocks[i]
		if id >= b.first {
			return Address{Kind: b.kind, Index: int(id - b.first)}, true
		}
	}
	return NoAddress, false
}

// IDOf is the inverse of AddressOf.
func IDOf(addr Address) (ID, bool) {
	if addr.Index < 0 || addr.Index >= addr.Kind.Len() {
		return 0, false
	}
	for _, b := range addressBlocks {
		if b.kind == addr.Kind {
			return b.first + ID(addr.Index), true
		}
	}
	return 0, false
}
