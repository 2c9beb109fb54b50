// Package screen enumerates every menu screen of the device and maps a screen
// to its shape, its slot in the shape's static table, and the settings field
// it edits.
package screen

// ID identifies one screen. Shape ranges are contiguous and increasing:
// Monitor < List < Button < Value. The *Type entries and Max are boundary
// markers, not screens.
type ID int16

const (
	MonitorType ID = iota
	InMonitor

	ListType
	MenuTop
	HWFMenu
	SWFMenu
	COMenu
	AOMenu
	SLMenu
	OPMenu
	HWFilter0
	HWFilter1
	HWFilter2
	HWFilter3
	HWFilter4
	HWFilter5
	SWFilter0
	SWFilter1
	SWFilter2
	SWFilter3
	SWFilter4
	SWFilter5
	SWFilter6
	SWFilter7
	Comparator0
	Comparator1
	Comparator2
	Comparator3
	Comparator4
	Comparator5
	Memory0
	Memory1
	Memory2
	Memory3
	Memory4
	Memory5
	Memory6
	Memory7

	ButtonType
	CANSpeed
	FilterLength0
	FilterLength1
	FilterLength2
	FilterLength3
	FilterLength4
	FilterLength5
	SWFSwitch0
	SWFSwitch1
	SWFSwitch2
	SWFSwitch3
	SWFSwitch4
	SWFSwitch5
	SWFSwitch6
	SWFSwitch7
	SWFSign0
	SWFSign1
	SWFSign2
	SWFSign3
	SWFSign4
	SWFSign5
	SWFSign6
	SWFSign7
	COSwitch0
	COSwitch1
	COSwitch2
	COSwitch3
	COSwitch4
	COSwitch5
	COPolarity0
	COPolarity1
	COPolarity2
	COPolarity3
	COPolarity4
	COPolarity5
	AuxHWFOut
	AuxSWFOut
	AuxByteOrder
	Save0
	Save1
	Save2
	Save3
	Save4
	Save5
	Save6
	Save7
	Load0
	Load1
	Load2
	Load3
	Load4
	Load5
	Load6
	Load7
	SwapCancelEnter

	ValueType
	HWValue0
	HWValue1
	HWValue2
	HWValue3
	HWValue4
	HWValue5
	HWValue6
	HWValue7
	SWFID0
	SWFID1
	SWFID2
	SWFID3
	SWFID4
	SWFID5
	SWFID6
	SWFID7
	SWFStartByte0
	SWFStartByte1
	SWFStartByte2
	SWFStartByte3
	SWFStartByte4
	SWFStartByte5
	SWFStartByte6
	SWFStartByte7
	SWFStartBit0
	SWFStartBit1
	SWFStartBit2
	SWFStartBit3
	SWFStartBit4
	SWFStartBit5
	SWFStartBit6
	SWFStartBit7
	SWFEndByte0
	SWFEndByte1
	SWFEndByte2
	SWFEndByte3
	SWFEndByte4
	SWFEndByte5
	SWFEndByte6
	SWFEndByte7
	SWFEndBit0
	SWFEndBit1
	SWFEndBit2
	SWFEndBit3
	SWFEndBit4
	SWFEndBit5
	SWFEndBit6
	SWFEndBit7
	COUsingSWF0
	COUsingSWF1
	COUsingSWF2
	COUsingSWF3
	COUsingSWF4
	COUsingSWF5
	COThreshold0
	COThreshold1
	COThreshold2
	COThreshold3
	COThreshold4
	COThreshold5

	Max
)

// Shape selects layout and input semantics of a screen.
type Shape int8

const (
	ShapeInvalid Shape = iota - 1
	ShapeMonitor
	ShapeList
	ShapeButton
	ShapeValue
)

func (s Shape) String() string {
	switch s {
	case ShapeMonitor:
		return "monitor"
	case ShapeList:
		return "list"
	case ShapeButton:
		return "button"
	case ShapeValue:
		return "value"
	}
	return "invalid"
}
