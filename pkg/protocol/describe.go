package protocol

import (
	"fmt"
	"strings"
)

var commandNames = map[uint8]string{
	CmdGetSettings:     "GetSet",
	CmdSetSettings:     "PutSet",
	CmdGetField:        "GetFld",
	CmdSetField:        "SetFld",
	CmdSaveSlot:        "Save",
	CmdLoadSlot:        "Load",
	CmdListSlots:       "LstSlot",
	CmdPing:            "Ping",
	CmdFactoryReset:    "FctRst",
	CmdGetSlot:         "GetSlot",
	CmdGetStorageStats: "GetStor",
	CmdDeleteSlot:      "DelSlot",
	CmdGetVersion:      "GetVer",
	CmdDiscover:        "Discvr",
}

var statusNames = map[uint8]string{
	StatusOK:              "OK",
	StatusError:           "Err",
	StatusInvalidCmd:      "InvCmd",
	StatusInvalidData:     "InvData",
	StatusNotFound:        "NotFnd",
	StatusNoSpace:         "NoSpace",
	StatusVersionMismatch: "VerMis",
	StatusCRCError:        "CRC",
}

// CommandName returns a short name for a command code.
func CommandName(cmd uint8) string {
	if n, ok := commandNames[cmd]; ok {
		return n
	}
	return fmt.Sprintf("Cmd%02X", cmd)
}

// StatusName returns a short name for a status code.
func StatusName(status uint8) string {
	if n, ok := statusNames[status]; ok {
		return n
	}
	return fmt.Sprintf("Sts%02X", status)
}

// maxShownPayload keeps a described exchange on one monitor row.
const maxShownPayload = 4

// Describe renders a request and its response as one monitor line, for
// example "PC Save[1] 02 > OK[0]".
func Describe(frame *Frame, resp *Response) string {
	var b strings.Builder
	b.WriteString("PC ")
	b.WriteString(CommandName(frame.Cmd))
	fmt.Fprintf(&b, "[%d]", len(frame.Payload))
	writeHead(&b, frame.Payload)
	if resp != nil {
		fmt.Fprintf(&b, " > %s[%d]", StatusName(resp.Status), len(resp.Payload))
	}
	return b.String()
}

// DescribeError renders a framing error as a monitor line.
func DescribeError(err error) string {
	return "PC error: " + err.Error()
}

func writeHead(b *strings.Builder, payload []byte) {
	for i := 0; i < len(payload) && i < maxShownPayload; i++ {
		fmt.Fprintf(b, " %02X", payload[i])
	}
	if len(payload) > maxShownPayload {
		b.WriteString("..")
	}
}
