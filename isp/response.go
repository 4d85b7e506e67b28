package isp

import (
	"encoding/binary"
	"fmt"
)

// Response is a decoded ISP response frame: cmd | 0x00 | size:u16 LE |
// status:u8 | data:bytes(size). Status 0x00 means success.
type Response struct {
	Cmd    Command
	Status byte
	Data   []byte
}

// OK reports whether the bootloader accepted the command.
func (r Response) OK() bool { return r.Status == 0x00 }

// DecodeResponse parses the wire form of a response. It does not check
// which command the caller expected; callers compare r.Cmd themselves so
// that the error they raise can name the mismatch.
func DecodeResponse(raw []byte) (Response, error) {
	if len(raw) < 5 {
		return Response{}, &ProtocolFramingError{Reason: fmt.Sprintf("response too short: %d bytes", len(raw))}
	}
	size := binary.LittleEndian.Uint16(raw[2:4])
	want := int(size) + 5
	if len(raw) < want {
		return Response{}, &ProtocolFramingError{
			Reason: fmt.Sprintf("response declares %d bytes, got %d", want, len(raw)),
		}
	}
	resp := Response{
		Cmd:    Command(raw[0]),
		Status: raw[4],
		Data:   append([]byte(nil), raw[5:want]...),
	}
	return resp, nil
}
