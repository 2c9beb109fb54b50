package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"
)

// ResponseError is a non-OK response.
type ResponseError struct {
	Cmd    uint8
	Status uint8
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: device returned %s", CommandName(e.Cmd), StatusName(e.Status))
}

// Version is the answer to CmdGetVersion.
type Version struct {
	Major, Minor uint8
	Settings     uint16
}

func (v Version) String() string {
	return fmt.Sprintf("firmware %d.%d, settings format %d", v.Major, v.Minor, v.Settings)
}

// Client issues commands over a byte stream, one at a time.
type Client struct {
	rw io.ReadWriter
}

// NewClient returns a client on rw. Timeouts are the transport's concern;
// it should return ErrTimeout from Read when the device stays silent.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// Do sends one command and returns its response. A non-OK status is
// returned as a *ResponseError together with the response.
func (c *Client) Do(cmd uint8, payload []byte) (*Response, error) {
	if err := WriteFrame(c.rw, &Frame{Cmd: cmd, Payload: payload}); err != nil {
		return nil, fmt.Errorf("write %s: %w", CommandName(cmd), err)
	}
	resp, err := ReadResponse(c.rw)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CommandName(cmd), err)
	}
	if resp.Status != StatusOK {
		return resp, &ResponseError{Cmd: cmd, Status: resp.Status}
	}
	return resp, nil
}

// Ping echoes data.
func (c *Client) Ping(data []byte) error {
	resp, err := c.Do(CmdPing, data)
	if err != nil {
		return err
	}
	if string(resp.Payload) != string(data) {
		return fmt.Errorf("ping: %w", ErrInvalidFrame)
	}
	return nil
}

// Discover reports whether the peer is a filter device.
func (c *Client) Discover() (bool, error) {
	resp, err := c.Do(CmdDiscover, nil)
	if err != nil {
		return false, err
	}
	return string(resp.Payload) == DiscoverReply, nil
}

func decodeSettings(payload []byte) (config.DeviceSettings, error) {
	var s config.DeviceSettings
	err := s.UnmarshalBinary(payload)
	return s, err
}

// Settings returns the live record.
func (c *Client) Settings() (config.DeviceSettings, error) {
	resp, err := c.Do(CmdGetSettings, nil)
	if err != nil {
		return config.DeviceSettings{}, err
	}
	return decodeSettings(resp.Payload)
}

// SetSettings replaces the live record.
func (c *Client) SetSettings(s config.DeviceSettings) error {
	s.Version = config.CurrentVersion
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Do(CmdSetSettings, data)
	return err
}

// Field reads one field. Narrow fields come back sign extended.
func (c *Client) Field(kind config.FieldKind, index int) (uint64, error) {
	resp, err := c.Do(CmdGetField, []byte{uint8(kind), uint8(index)})
	if err != nil {
		return 0, err
	}
	if len(resp.Payload) != 8 {
		return 0, ErrInvalidFrame
	}
	return binary.LittleEndian.Uint64(resp.Payload), nil
}

// SetField writes one field.
func (c *Client) SetField(kind config.FieldKind, index int, value uint64) error {
	payload := binary.LittleEndian.AppendUint64([]byte{uint8(kind), uint8(index)}, value)
	_, err := c.Do(CmdSetField, payload)
	return err
}

// Save stores the live record in slot.
func (c *Client) Save(slot uint8) error {
	_, err := c.Do(CmdSaveSlot, []byte{slot})
	return err
}

// Load makes slot the live record.
func (c *Client) Load(slot uint8) error {
	_, err := c.Do(CmdLoadSlot, []byte{slot})
	return err
}

// Slot reads a stored record without loading it.
func (c *Client) Slot(slot uint8) (config.DeviceSettings, error) {
	resp, err := c.Do(CmdGetSlot, []byte{slot})
	if err != nil {
		return config.DeviceSettings{}, err
	}
	return decodeSettings(resp.Payload)
}

// DeleteSlot removes a stored record.
func (c *Client) DeleteSlot(slot uint8) error {
	_, err := c.Do(CmdDeleteSlot, []byte{slot})
	return err
}

// Slots lists the occupied slots.
func (c *Client) Slots() ([]uint8, error) {
	resp, err := c.Do(CmdListSlots, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 1 || len(resp.Payload) != 1+int(resp.Payload[0]) {
		return nil, ErrInvalidFrame
	}
	return resp.Payload[1:], nil
}

// Stats returns flash usage.
func (c *Client) Stats() (storage.Stats, error) {
	resp, err := c.Do(CmdGetStorageStats, nil)
	if err != nil {
		return storage.Stats{}, err
	}
	if len(resp.Payload) != 13 {
		return storage.Stats{}, ErrInvalidFrame
	}
	p := resp.Payload
	return storage.Stats{
		TotalSpace: int64(binary.LittleEndian.Uint32(p[0:])),
		UsedSpace:  int64(binary.LittleEndian.Uint32(p[4:])),
		FreeSpace:  int64(binary.LittleEndian.Uint32(p[8:])),
		SlotCount:  int(p[12]),
	}, nil
}

// FactoryReset wipes every slot and restores the defaults.
func (c *Client) FactoryReset() error {
	_, err := c.Do(CmdFactoryReset, nil)
	return err
}

// Version returns the firmware and settings format versions.
func (c *Client) Version() (Version, error) {
	resp, err := c.Do(CmdGetVersion, nil)
	if err != nil {
		return Version{}, err
	}
	if len(resp.Payload) != 4 {
		return Version{}, ErrInvalidFrame
	}
	return Version{
		Major:    resp.Payload[0],
		Minor:    resp.Payload[1],
		Settings: binary.LittleEndian.Uint16(resp.Payload[2:]),
	}, nil
}
