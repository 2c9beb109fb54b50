// Package protocol implements the binary serial protocol used by the PC tools
// to read and change the device settings.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Responses use the same layout with a status byte in place of CMD.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	SyncByte = 0xAA

	// MaxPayload bounds the LEN field of a frame.
	MaxPayload = 1024

	// Command codes (PC → Device)
	CmdGetSettings     = 0x01
	CmdSetSettings     = 0x02
	CmdGetField        = 0x03
	CmdSetField        = 0x04
	CmdSaveSlot        = 0x05
	CmdLoadSlot        = 0x06
	CmdListSlots       = 0x07
	CmdPing            = 0x08
	CmdFactoryReset    = 0x09
	CmdGetSlot         = 0x0A
	CmdGetStorageStats = 0x0B
	CmdDeleteSlot      = 0x0C
	CmdGetVersion      = 0x10
	CmdDiscover        = 0x11

	// Response status codes (Device → PC)
	StatusOK              = 0x00
	StatusError           = 0x01
	StatusInvalidCmd      = 0x02
	StatusInvalidData     = 0x03
	StatusNotFound        = 0x04
	StatusNoSpace         = 0x05
	StatusVersionMismatch = 0x06
	StatusCRCError        = 0x07
)

// DiscoverReply is the payload answered to CmdDiscover.
const DiscoverReply = "flcm1"

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
	ErrTimeout      = errors.New("timeout")
)

// Frame is a request.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response answers a Frame.
type Response struct {
	Status  uint8
	Payload []byte
}

// ReadFrame reads and validates a request from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	cmd, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Frame{Cmd: cmd, Payload: payload}, nil
}

// ReadResponse reads and validates a response from r.
func ReadResponse(r io.Reader) (*Response, error) {
	status, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Payload: payload}, nil
}

// WriteFrame writes a request to w.
func WriteFrame(w io.Writer, frame *Frame) error {
	return writePacket(w, frame.Cmd, frame.Payload)
}

// WriteResponse writes a response to w.
func WriteResponse(w io.Writer, resp *Response) error {
	return writePacket(w, resp.Status, resp.Payload)
}

func readPacket(r io.Reader) (uint8, []byte, error) {
	var sync [1]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		return 0, nil, err
	}
	if sync[0] != SyncByte {
		return 0, nil, ErrInvalidFrame
	}

	// code + len
	header := make([]byte, 3, 3+MaxPayload)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	length := binary.LittleEndian.Uint16(header[1:])
	if length > MaxPayload {
		return 0, nil, ErrInvalidFrame
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}

	var crcBytes [2]byte
	if _, err := io.ReadFull(r, crcBytes[:]); err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint16(crcBytes[:]) != calcCRC(append(header, payload...)) {
		return 0, nil, ErrCRCMismatch
	}
	return header[0], payload, nil
}

func writePacket(w io.Writer, code uint8, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrInvalidFrame
	}
	buf := make([]byte, 0, 1+1+2+len(payload)+2)
	buf = append(buf, SyncByte, code)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint16(buf, calcCRC(buf[1:]))

	_, err := w.Write(buf)
	return err
}

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
