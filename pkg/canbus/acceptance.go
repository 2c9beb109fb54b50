package canbus

import "github.com/tuffrabit/tinygo-flcm1/pkg/config"

// Acceptance reproduces the two-mask, six-filter acceptance of the
// MCP2515/MCP25625 family in software.
type Acceptance struct {
	masks    [config.MaskCount]uint32
	maskExt  [config.MaskCount]bool
	filters  [config.FilterCount]uint32
	extended [config.FilterCount]bool
}

// NewAcceptance loads masks and filters from s.
func NewAcceptance(s *config.DeviceSettings) Acceptance {
	var a Acceptance
	for i, e := range config.HWTable {
		if e.Filter {
			a.filters[e.Num] = s.HWMaskFilter[i]
			a.extended[e.Num] = s.HWFilterExtended[e.Num]
		} else {
			a.masks[e.Num] = s.HWMaskFilter[i]
		}
	}
	for f := uint8(0); f < config.FilterCount; f++ {
		if a.extended[f] {
			a.maskExt[config.MaskOf(f)] = true
		}
	}
	return a
}

// Accept returns the first filter matching m. A filter only matches frames
// of its own ID length, and only the bits set in its mask are compared.
func (a *Acceptance) Accept(m Message) (int, bool) {
	width := uint32(StdIDMask)
	if m.Extended {
		width = ExtIDMask
	}
	for f := uint8(0); f < config.FilterCount; f++ {
		if a.extended[f] != m.Extended {
			continue
		}
		mask := a.masks[config.MaskOf(f)] & width
		if (m.ID^a.filters[f])&mask == 0 {
			return int(f), true
		}
	}
	return -1, false
}

// Program writes masks and filters to hardware registers.
func (a *Acceptance) Program(p FilterProgrammer) error {
	for n := uint8(0); n < config.MaskCount; n++ {
		if err := p.SetMask(n, a.maskExt[n], a.masks[n]); err != nil {
			return err
		}
	}
	for n := uint8(0); n < config.FilterCount; n++ {
		if err := p.SetFilter(n, a.extended[n], a.filters[n]); err != nil {
			return err
		}
	}
	return nil
}
