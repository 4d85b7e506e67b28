package isp

import "encoding/binary"

// Request is a single ISP command frame: cmd | size:u16 LE | payload.
// Encoding follows spec.md §4.B exactly; it is transport-agnostic, the
// same bytes go out over USB bulk or wrapped in serial framing.
type Request struct {
	Cmd     Command
	Payload []byte
}

// Encode serializes the request to its wire form.
func (r Request) Encode() []byte {
	buf := make([]byte, 3+len(r.Payload))
	buf[0] = byte(r.Cmd)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(r.Payload)))
	copy(buf[3:], r.Payload)
	return buf
}

// NewIdentify builds the plain Identify (0xa1) request: ability 0x00,
// returning just chip_id and device_type.
func NewIdentify() Request {
	return newIdentify(0x00)
}

// NewIdentifyUID builds the UID-returning Identify (0xa1) variant:
// ability 0x01, returning BTVER and the chip UID alongside chip_id and
// device_type.
func NewIdentifyUID() Request {
	return newIdentify(0x01)
}

func newIdentify(ability byte) Request {
	payload := make([]byte, 0, 2+len(identifyMagic))
	payload = append(payload, ability, 0x00)
	payload = append(payload, []byte(identifyMagic)...)
	return Request{Cmd: CmdIdentify, Payload: payload}
}

// NewIspEnd builds the IspEnd (0xa2) request.
func NewIspEnd(reason byte) Request {
	return Request{Cmd: CmdIspEnd, Payload: []byte{reason}}
}

// NewIspKey builds the IspKey (0xa3) request carrying the 30-byte host
// seed.
func NewIspKey(seed []byte) Request {
	return Request{Cmd: CmdIspKey, Payload: seed}
}

// NewErase builds the Erase (0xa4) code-flash request for the given
// number of 1KiB sectors.
func NewErase(sectors uint32) Request {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, sectors)
	return Request{Cmd: CmdErase, Payload: payload}
}

// NewDataErase builds the DataErase (0xa9) EEPROM-erase request.
func NewDataErase(addr, length uint32) Request {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	binary.LittleEndian.PutUint32(payload[4:8], length)
	return Request{Cmd: CmdDataErase, Payload: payload}
}

// NewProgram builds a Program (0xa5) code-flash write request. data must
// already be XOR-obfuscated by the caller (see XORKey) and at most
// MaxChunkSize bytes.
func NewProgram(addr uint32, padding byte, data []byte) Request {
	return Request{Cmd: CmdProgram, Payload: buildChunkPayload(addr, padding, data)}
}

// NewVerify builds a Verify (0xa6) request with the same wire shape as
// Program.
func NewVerify(addr uint32, padding byte, data []byte) Request {
	return Request{Cmd: CmdVerify, Payload: buildChunkPayload(addr, padding, data)}
}

// NewDataProgram builds a DataProgram (0xaa) EEPROM-write request.
func NewDataProgram(addr uint32, padding byte, data []byte) Request {
	return Request{Cmd: CmdDataProgram, Payload: buildChunkPayload(addr, padding, data)}
}

func buildChunkPayload(addr uint32, padding byte, data []byte) []byte {
	payload := make([]byte, 5+len(data))
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	payload[4] = padding
	copy(payload[5:], data)
	return payload
}

// NewReadConfig builds the ReadConfig (0xa7) request; mask selects which
// registers the bootloader returns.
func NewReadConfig(mask uint16) Request {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, mask)
	return Request{Cmd: CmdReadConfig, Payload: payload}
}

// NewWriteConfig builds the WriteConfig (0xa8) request.
func NewWriteConfig(mask uint16, data []byte) Request {
	payload := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], mask)
	copy(payload[2:], data)
	return Request{Cmd: CmdWriteConfig, Payload: payload}
}

// NewDataRead builds the DataRead (0xab) EEPROM-read request.
func NewDataRead(addr uint32, length byte) Request {
	payload := make([]byte, 5)
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	payload[4] = length
	return Request{Cmd: CmdDataRead, Payload: payload}
}

// NewSetBaudrate builds the SetBaudrate (0xc5) request.
func NewSetBaudrate(baud uint32) Request {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, baud)
	return Request{Cmd: CmdSetBaudrate, Payload: payload}
}
