package app

import (
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
)

// KeyDebounce ignores button changes closer together than this.
const KeyDebounce = 30 * time.Millisecond

// Keypad turns sampled button levels into press events.
type Keypad struct {
	read   func() uint16
	prev   uint16
	settle *timer.IntervalTimer
}

// NewKeypad returns a keypad sampling read, which returns the mask of
// buttons currently held.
func NewKeypad(read func() uint16, now timer.Clock) *Keypad {
	return &Keypad{read: read, settle: timer.NewWithClock(KeyDebounce, false, now)}
}

// Pressed returns the buttons that went down since the last accepted
// change.
func (k *Keypad) Pressed() uint16 {
	raw := k.read()
	if raw == k.prev || !k.settle.Expired() {
		return 0
	}
	pressed := raw &^ k.prev
	k.prev = raw
	k.settle.Reset()
	return pressed
}
