package screen

import (
	"fmt"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
)

// MaxRows is the number of rows or digits a screen can show.
const MaxRows = 8

// ConfirmRow is the row of the Save/Load screens that runs the operation.
const ConfirmRow = 1

// ListPage is a navigation screen of up to MaxRows destinations.
type ListPage struct {
	Previous     ID
	Destinations []ID
	Labels       []string
	Title        string
	Subtitle     string
}

// ButtonPage is a screen of mutually exclusive choices. The selected row
// number is the value written to the screen's field.
type ButtonPage struct {
	Previous ID
	Labels   []string
	Title    string
	Subtitle string
}

// ValuePage is a hex digit editor.
type ValuePage struct {
	Previous ID
	Digits   int
	Wide     bool // range computed at edit time
	Min      int32
	Max      int32
	Title    string
	Subtitle string
}

// SpeedLabels matches the order of the CAN speed table.
var SpeedLabels = []string{"10kbps", "50kbps", "100kbps", "125kbps", "250kbps", "500kbps", "800kbps", "1Mbps"}

var (
	ListPages   = buildListPages()
	ButtonPages = buildButtonPages()
	ValuePages  = buildValuePages()
)

// List returns the static table entry of a List screen.
func List(id ID) (*ListPage, bool) {
	if ShapeOf(id) != ShapeList {
		return nil, false
	}
	return &ListPages[TableIndexOf(id)], true
}

// Button returns the static table entry of a Button screen.
func Button(id ID) (*ButtonPage, bool) {
	if ShapeOf(id) != ShapeButton {
		return nil, false
	}
	return &ButtonPages[TableIndexOf(id)], true
}

// Value returns the static table entry of a Value screen.
func Value(id ID) (*ValuePage, bool) {
	if ShapeOf(id) != ShapeValue {
		return nil, false
	}
	return &ValuePages[TableIndexOf(id)], true
}

var (
	onOff       = []string{"OFF", "ON"}
	noYes       = []string{"NO", "Yes"}
	idLength    = []string{"Standard 11bits", "Extended 29bits"}
	signedness  = []string{"Unsigned int", "Signed int"}
	polarity    = []string{"Active(Low)", "Inactive(HighZ)"}
	byteOrder   = []string{"BIG endian", "LITTLE endian"}
	swapOptions = []string{"C:cancel,E:enter", "C:enter,E:cancel"}
)

func buildListPages() []ListPage {
	pages := make([]ListPage, ButtonType-ListType-1)
	set := func(id ID, p ListPage) { pages[TableIndexOf(id)] = p }

	set(MenuTop, ListPage{
		Previous:     InMonitor,
		Destinations: []ID{CANSpeed, HWFMenu, SWFMenu, COMenu, AOMenu, SLMenu, OPMenu},
		Labels:       []string{"CAN speed", "HardWareFilter", "SoftWareFilter", "ComparatorOutput", "AuxOutput", "Save/Load", "Option"},
		Title:        "SETTINGS",
		Subtitle:     "TOP MENU",
	})
	set(HWFMenu, ListPage{
		Previous: MenuTop,
		Destinations: []ID{
			HWValue0, HWFilter0, HWFilter1, HWValue3,
			HWFilter2, HWFilter3, HWFilter4, HWFilter5,
		},
		Labels: []string{
			"Mask0", "|-- Filter0", "|__ Filter1", "Mask1",
			"|-- Filter2", "|-- Filter3", "|-- Filter4", "|__ Filter5",
		},
		Title:    "HWF",
		Subtitle: "HardwareFilter",
	})

	swf := ListPage{Previous: MenuTop, Title: "SWF", Subtitle: "SoftwareFilter"}
	for i := 0; i < config.SoftwareFilterCount; i++ {
		swf.Destinations = append(swf.Destinations, SWFilter0+ID(i))
		swf.Labels = append(swf.Labels, fmt.Sprintf("SoftwareFilter%d", i))
	}
	set(SWFMenu, swf)

	co := ListPage{Previous: MenuTop, Title: "CO", Subtitle: "CompareOut"}
	for i := 0; i < config.ComparatorCount; i++ {
		co.Destinations = append(co.Destinations, Comparator0+ID(i))
		co.Labels = append(co.Labels, fmt.Sprintf("CompareOut%d", i))
	}
	set(COMenu, co)

	set(AOMenu, ListPage{
		Previous:     MenuTop,
		Destinations: []ID{AuxHWFOut, AuxSWFOut, AuxByteOrder},
		Labels:       []string{"HWFOut ON/OFF", "SWFOut ON/OFF", "SWFOut byte Order"},
		Title:        "AO",
		Subtitle:     "AuxOutput",
	})

	sl := ListPage{Previous: MenuTop, Title: "SL", Subtitle: "Save/Load Setting"}
	for i := 0; i < config.SlotCount-1; i++ {
		sl.Destinations = append(sl.Destinations, Memory0+ID(i))
		sl.Labels = append(sl.Labels, fmt.Sprintf("Memory%d", i))
	}
	set(SLMenu, sl)

	set(OPMenu, ListPage{
		Previous:     MenuTop,
		Destinations: []ID{SwapCancelEnter},
		Labels:       []string{"Swap C-E SWs"},
		Title:        "Option",
		Subtitle:     "Option Settings",
	})

	for f := 0; f < config.FilterCount; f++ {
		set(HWFilter0+ID(f), ListPage{
			Previous:     HWFMenu,
			Destinations: []ID{FilterLength0 + ID(f), HWValue0 + hwEntryOfFilter(f)},
			Labels:       []string{"ID length", "Filter value"},
			Title:        fmt.Sprintf("HWF F%d", f),
			Subtitle:     fmt.Sprintf("Hardware Filter%d", f),
		})
	}

	for i := 0; i < config.SoftwareFilterCount; i++ {
		n := ID(i)
		set(SWFilter0+n, ListPage{
			Previous: SWFMenu,
			Destinations: []ID{
				SWFSwitch0 + n, SWFID0 + n, SWFStartByte0 + n, SWFStartBit0 + n,
				SWFEndByte0 + n, SWFEndBit0 + n, SWFSign0 + n,
			},
			Labels: []string{
				"ON/OFF", "CAN ID", "StartByte Position", "StartBit Position",
				"EndByte Position", "EndBit Position", "Signed/Unsigned",
			},
			Title:    fmt.Sprintf("SWF%d", i),
			Subtitle: fmt.Sprintf("SoftwareFilter%d", i),
		})
	}

	for i := 0; i < config.ComparatorCount; i++ {
		n := ID(i)
		set(Comparator0+n, ListPage{
			Previous:     COMenu,
			Destinations: []ID{COSwitch0 + n, COUsingSWF0 + n, COThreshold0 + n, COPolarity0 + n},
			Labels:       []string{"ON/OFF", "Using SWF No. 0-7", "Threshold Value", "Output Polarity"},
			Title:        fmt.Sprintf("CO%d", i),
			Subtitle:     fmt.Sprintf("CompareOut%d", i),
		})
	}

	for i := 0; i < config.SlotCount-1; i++ {
		n := ID(i)
		set(Memory0+n, ListPage{
			Previous:     SLMenu,
			Destinations: []ID{Save0 + n, Load0 + n},
			Labels:       []string{"Save to Memory", "Load from Memory"},
			Title:        fmt.Sprintf("SL%d", i),
			Subtitle:     "Save/Load",
		})
	}

	return pages
}

func buildButtonPages() []ButtonPage {
	pages := make([]ButtonPage, ValueType-ButtonType-1)
	set := func(id ID, p ButtonPage) { pages[TableIndexOf(id)] = p }

	set(CANSpeed, ButtonPage{Previous: MenuTop, Labels: SpeedLabels, Title: "CANSPEED", Subtitle: "select speed"})

	for f := 0; f < config.FilterCount; f++ {
		set(FilterLength0+ID(f), ButtonPage{
			Previous: HWFilter0 + ID(f),
			Labels:   idLength,
			Title:    fmt.Sprintf("HWF F%d", f),
			Subtitle: fmt.Sprintf("Filter%d ID length", f),
		})
	}

	for i := 0; i < config.SoftwareFilterCount; i++ {
		n := ID(i)
		title := fmt.Sprintf("SWF%d", i)
		set(SWFSwitch0+n, ButtonPage{Previous: SWFilter0 + n, Labels: onOff, Title: title, Subtitle: fmt.Sprintf("SoftwareFilter%d", i)})
		set(SWFSign0+n, ButtonPage{Previous: SWFilter0 + n, Labels: signedness, Title: title, Subtitle: "Signed/Unsigned"})
	}

	for i := 0; i < config.ComparatorCount; i++ {
		n := ID(i)
		title := fmt.Sprintf("CO%d", i)
		set(COSwitch0+n, ButtonPage{Previous: Comparator0 + n, Labels: onOff, Title: title, Subtitle: fmt.Sprintf("CompareOut%d", i)})
		set(COPolarity0+n, ButtonPage{Previous: Comparator0 + n, Labels: polarity, Title: title, Subtitle: "If SWFmsg >= TRS"})
	}

	set(AuxHWFOut, ButtonPage{Previous: AOMenu, Labels: onOff, Title: "AUX Out", Subtitle: "HWF out to AUX"})
	set(AuxSWFOut, ButtonPage{Previous: AOMenu, Labels: onOff, Title: "AUX Out", Subtitle: "SWF out to AUX"})
	set(AuxByteOrder, ButtonPage{Previous: AOMenu, Labels: byteOrder, Title: "AUX Out", Subtitle: "Byte Order"})

	for i := 0; i < config.SlotCount-1; i++ {
		n := ID(i)
		title := fmt.Sprintf("SL%d", i)
		set(Save0+n, ButtonPage{Previous: Memory0 + n, Labels: noYes, Title: title, Subtitle: "Save settings"})
		set(Load0+n, ButtonPage{Previous: Memory0 + n, Labels: noYes, Title: title, Subtitle: "Load settings"})
	}

	set(SwapCancelEnter, ButtonPage{Previous: OPMenu, Labels: swapOptions, Title: "Option", Subtitle: "Swap C-E SWs"})

	return pages
}

func buildValuePages() []ValuePage {
	pages := make([]ValuePage, Max-ValueType-1)
	set := func(id ID, p ValuePage) { pages[TableIndexOf(id)] = p }

	for i, e := range config.HWTable {
		p := ValuePage{
			Previous: HWFMenu,
			Digits:   config.ExtIDDigits,
			Max:      config.ExtIDMax,
		}
		if e.Filter {
			p.Previous = HWFilter0 + ID(e.Num)
			p.Title = fmt.Sprintf("HWF Filt%d", e.Num)
			p.Subtitle = fmt.Sprintf("Filter%d for Mask%d", e.Num, config.MaskOf(e.Num))
		} else {
			p.Title = fmt.Sprintf("HWF Mask%d", e.Num)
			p.Subtitle = fmt.Sprintf("Mask%d maskbit val", e.Num)
		}
		set(HWValue0+ID(i), p)
	}

	for i := 0; i < config.SoftwareFilterCount; i++ {
		n := ID(i)
		title := fmt.Sprintf("SWF%d", i)
		set(SWFID0+n, ValuePage{Previous: SWFilter0 + n, Digits: config.ExtIDDigits, Max: config.ExtIDMax, Title: title, Subtitle: "Filtering CAN ID"})
		set(SWFStartByte0+n, ValuePage{Previous: SWFilter0 + n, Digits: 1, Max: config.MaxBytePos, Title: title, Subtitle: "StartByte Position"})
		set(SWFStartBit0+n, ValuePage{Previous: SWFilter0 + n, Digits: 1, Max: config.MaxBitPos, Title: title, Subtitle: "StartBit Position"})
		set(SWFEndByte0+n, ValuePage{Previous: SWFilter0 + n, Digits: 1, Max: config.MaxBytePos, Title: title, Subtitle: "EndByte Position"})
		set(SWFEndBit0+n, ValuePage{Previous: SWFilter0 + n, Digits: 1, Max: config.MaxBitPos, Title: title, Subtitle: "EndBit Position"})
	}

	for i := 0; i < config.ComparatorCount; i++ {
		n := ID(i)
		title := fmt.Sprintf("CO%d", i)
		set(COUsingSWF0+n, ValuePage{Previous: Comparator0 + n, Digits: 1, Max: config.SoftwareFilterCount - 1, Title: title, Subtitle: "Using SWF No. 0-7"})
		set(COThreshold0+n, ValuePage{Previous: Comparator0 + n, Digits: MaxRows, Wide: true, Title: title, Subtitle: "Threshold Value"})
	}

	return pages
}

// hwEntryOfFilter returns the HWTable position of hardware filter f.
func hwEntryOfFilter(f int) ID {
	for i, e := range config.HWTable {
		if e.Filter && int(e.Num) == f {
			return ID(i)
		}
	}
	return 0
}
