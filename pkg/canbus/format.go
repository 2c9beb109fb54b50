package canbus

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatMessage renders a frame as one monitor line, for example
// "123 [3] 01 A0 FF" or "1ABCDEF0 [0] RTR".
func FormatMessage(m Message) string {
	var sb strings.Builder
	if m.Extended {
		fmt.Fprintf(&sb, "%08X", m.ID&ExtIDMask)
	} else {
		fmt.Fprintf(&sb, "%03X", m.ID&StdIDMask)
	}
	fmt.Fprintf(&sb, " [%d]", m.Len)
	if m.RTR {
		sb.WriteString(" RTR")
		return sb.String()
	}
	for _, b := range m.Payload() {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}

// FormatValue renders a software filter result.
func FormatValue(v FilterValue) string {
	if v.Signed {
		return fmt.Sprintf("SWF%d %X: %d", v.Filter, v.ID, v.Value)
	}
	return fmt.Sprintf("SWF%d %X: %d (0x%X)", v.Filter, v.ID, v.Value, uint64(v.Value))
}

// FormatOutput renders a comparator output change.
func FormatOutput(c OutputChange) string {
	state := "OFF"
	if c.Active {
		state = "ON"
	}
	return fmt.Sprintf("CO%d %s at %d", c.Comparator, state, c.Value)
}

// EncodeValue packs a filter value into ByteLen bytes for the aux output,
// big-endian unless little is set.
func EncodeValue(v FilterValue, little bool) []byte {
	n := int(v.ByteLen)
	if n < 1 || n > 8 {
		n = 8
	}
	var buf [8]byte
	if little {
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Value))
		return append([]byte(nil), buf[:n]...)
	}
	binary.BigEndian.PutUint64(buf[:], uint64(v.Value))
	return append([]byte(nil), buf[8-n:]...)
}
