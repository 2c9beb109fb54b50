package bitrange

import (
	"errors"
	"testing"
)

func TestLen(t *testing.T) {
	tests := []struct {
		span    Span
		byteLen uint8
		bitLen  uint8
	}{
		{Span{3, 5, 3, 2}, 1, 4},
		{Span{0, 7, 1, 0}, 2, 16},
		{Span{0, 7, 2, 0}, 4, 24},
		{Span{0, 7, 3, 0}, 4, 32},
		{Span{0, 7, 4, 0}, 8, 40},
		{Span{0, 7, 7, 0}, 8, 64},
		{Span{0, 0, 1, 7}, 1, 2},
		{Span{1, 3, 2, 4}, 1, 8},
		{Span{5, 7, 5, 7}, 1, 1},
	}

	for _, tt := range tests {
		byteLen, bitLen, err := Len(tt.span)
		if err != nil {
			t.Errorf("Len(%v) failed: %v", tt.span, err)
			continue
		}
		if byteLen != tt.byteLen {
			t.Errorf("Len(%v) byteLen: expected %d, got %d", tt.span, tt.byteLen, byteLen)
		}
		if bitLen != tt.bitLen {
			t.Errorf("Len(%v) bitLen: expected %d, got %d", tt.span, tt.bitLen, bitLen)
		}
	}
}

func TestLenInvalid(t *testing.T) {
	tests := []struct {
		span Span
		err  error
	}{
		{Span{1, 7, 0, 0}, ErrStartAfterEnd},
		{Span{2, 7, 0, 0}, ErrStartAfterEnd},
		{Span{2, 2, 2, 5}, ErrBitOrder},
		{Span{8, 0, 8, 0}, ErrOutOfRange},
		{Span{0, 9, 1, 0}, ErrOutOfRange},
	}

	for _, tt := range tests {
		byteLen, bitLen, err := Len(tt.span)
		if !errors.Is(err, tt.err) {
			t.Errorf("Len(%v): expected %v, got %v", tt.span, tt.err, err)
		}
		if byteLen != 0 || bitLen != 0 {
			t.Errorf("Len(%v): expected zero lengths on error, got %d/%d", tt.span, byteLen, bitLen)
		}
	}
}

func TestDigitsAndBounds(t *testing.T) {
	if got := Digits(24); got != 6 {
		t.Errorf("Digits(24): expected 6, got %d", got)
	}
	if got := Digits(4); got != 1 {
		t.Errorf("Digits(4): expected 1, got %d", got)
	}
	if got := Digits(13); got != 4 {
		t.Errorf("Digits(13): expected 4, got %d", got)
	}

	min, max := Bounds(24, false)
	if min != 0 || max != 16777215 {
		t.Errorf("Bounds(24, unsigned): expected [0, 16777215], got [%d, %d]", min, max)
	}
	min, max = Bounds(8, true)
	if min != -128 || max != 127 {
		t.Errorf("Bounds(8, signed): expected [-128, 127], got [%d, %d]", min, max)
	}
	min, max = Bounds(32, true)
	if min != -2147483648 || max != 2147483647 {
		t.Errorf("Bounds(32, signed): got [%d, %d]", min, max)
	}
}

func TestValueBits(t *testing.T) {
	if got := ValueBits(24); got != 24 {
		t.Errorf("ValueBits(24): expected 24, got %d", got)
	}
	if got := ValueBits(64); got != MaxValueBits {
		t.Errorf("ValueBits(64): expected %d, got %d", MaxValueBits, got)
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend(0xFF, 8); got != -1 {
		t.Errorf("SignExtend(0xFF, 8): expected -1, got %d", got)
	}
	if got := SignExtend(0x7F, 8); got != 127 {
		t.Errorf("SignExtend(0x7F, 8): expected 127, got %d", got)
	}
	if got := SignExtend(0xFFFFFF80, 32); got != -128 {
		t.Errorf("SignExtend(0xFFFFFF80, 32): expected -128, got %d", got)
	}
}

func TestExtract(t *testing.T) {
	data := []byte{0x12, 0x34, 0xF6, 0x80, 0, 0, 0, 0}

	tests := []struct {
		span   Span
		signed bool
		want   int64
	}{
		{Span{0, 7, 0, 0}, false, 0x12},
		{Span{0, 7, 1, 0}, false, 0x1234},
		{Span{1, 3, 1, 0}, false, 0x4},
		{Span{0, 3, 1, 4}, false, 0x23},
		{Span{2, 7, 2, 0}, true, -10},
		{Span{2, 7, 2, 0}, false, 0xF6},
		{Span{2, 3, 3, 7}, true, 0x0D},
		{Span{2, 4, 3, 7}, true, 0x2D - 0x40},
	}

	for _, tt := range tests {
		got, err := Extract(data, tt.span, tt.signed)
		if err != nil {
			t.Errorf("Extract(%v) failed: %v", tt.span, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Extract(%v, signed=%v): expected %d, got %d", tt.span, tt.signed, tt.want, got)
		}
	}
}

func TestExtractErrors(t *testing.T) {
	if _, err := Extract([]byte{1, 2}, Span{0, 7, 3, 0}, false); err != ErrShortPayload {
		t.Errorf("Expected ErrShortPayload, got %v", err)
	}
	if _, err := Extract([]byte{1, 2}, Span{1, 7, 0, 0}, false); err != ErrStartAfterEnd {
		t.Errorf("Expected ErrStartAfterEnd, got %v", err)
	}
}
