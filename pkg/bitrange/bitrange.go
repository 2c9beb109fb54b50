// Package bitrange computes the size of, and extracts, a bit span out of a CAN
// payload. Bits are numbered most-significant-first within a byte (bit 7 is
// the MSB) and a span runs from (StartByte, StartBit) down to (EndByte, EndBit)
// with bytes in big-endian order.
package bitrange

import (
	"errors"
	"fmt"
)

const maxPos = 7

var (
	ErrOutOfRange    = errors.New("byte/bit position out of range")
	ErrStartAfterEnd = errors.New("start byte after end byte")
	ErrBitOrder      = errors.New("start bit below end bit in same byte")
	ErrShortPayload  = errors.New("payload shorter than span")
)

// Span addresses a run of bits inside an 8-byte payload.
type Span struct {
	StartByte uint8
	StartBit  uint8
	EndByte   uint8
	EndBit    uint8
}

func (s Span) String() string {
	return fmt.Sprintf("%d.%d-%d.%d", s.StartByte, s.StartBit, s.EndByte, s.EndBit)
}

// Validate reports why a span cannot be used, or nil.
func (s Span) Validate() error {
	if s.StartByte > maxPos || s.EndByte > maxPos || s.StartBit > maxPos || s.EndBit > maxPos {
		return ErrOutOfRange
	}
	if s.StartByte > s.EndByte {
		return ErrStartAfterEnd
	}
	if s.StartByte == s.EndByte && s.StartBit < s.EndBit {
		return ErrBitOrder
	}
	return nil
}

// Len returns the storage byte length (1, 2, 4 or 8) and the exact bit length
// of the span. An invalid span yields an error and zero lengths.
func Len(s Span) (byteLen, bitLen uint8, err error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}

	if s.StartByte == s.EndByte {
		return 1, s.StartBit - s.EndBit + 1, nil
	}

	bitLen = s.StartBit + 1 + 8*(s.EndByte-s.StartByte-1) + (8 - s.EndBit)
	byteLen = (bitLen-1)>>3 + 1
	switch {
	case byteLen > 4:
		byteLen = 8
	case byteLen > 2:
		byteLen = 4
	}
	return byteLen, bitLen, nil
}

// MaxValueBits is the widest span value that comparators and the digit
// editor work with. Wider spans use their low MaxValueBits bits.
const MaxValueBits = 32

// ValueBits caps bitLen at MaxValueBits.
func ValueBits(bitLen uint8) uint8 {
	if bitLen > MaxValueBits {
		return MaxValueBits
	}
	return bitLen
}

// Digits returns how many hex digits are needed to show bitLen bits.
func Digits(bitLen uint8) int {
	return (int(bitLen) + 3) / 4
}

// Bounds returns the numeric range representable in bits bits.
// bits must be in [1, 63].
func Bounds(bits uint8, signed bool) (min, max int64) {
	if signed {
		half := int64(1) << (bits - 1)
		return -half, half - 1
	}
	return 0, int64(1)<<bits - 1
}

// SignExtend interprets the low bits of v as a two's-complement number.
func SignExtend(v uint64, bits uint8) int64 {
	if bits == 0 || bits >= 64 {
		return int64(v)
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// Extract pulls the span out of data. Bytes are joined big-endian and the
// result is sign extended when signed is set.
func Extract(data []byte, s Span, signed bool) (int64, error) {
	_, bitLen, err := Len(s)
	if err != nil {
		return 0, err
	}
	if int(s.EndByte) >= len(data) {
		return 0, ErrShortPayload
	}

	var v uint64
	for b := s.StartByte; b <= s.EndByte; b++ {
		hi, lo := uint8(maxPos), uint8(0)
		if b == s.StartByte {
			hi = s.StartBit
		}
		if b == s.EndByte {
			lo = s.EndBit
		}
		for bit := int(hi); bit >= int(lo); bit-- {
			v = v<<1 | uint64(data[b]>>uint(bit))&1
		}
	}

	if signed {
		return SignExtend(v, bitLen), nil
	}
	return int64(v), nil
}
