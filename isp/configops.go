package isp

import "context"

// ReadConfig sends A7 with a mask covering every register the chip's
// spec declares, and decodes the response into a human-readable dump.
func ReadConfig(s *Session) ([]RegisterDump, error) {
	mask := RegisterMask(s.info)
	resp, err := Transfer(s.transport, NewReadConfig(mask))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	return DecodeConfigRegisters(s.info, resp.Data)
}

// ResetConfig computes the chip's reset payload and writes it back with
// A8, restoring factory configuration register values.
func ResetConfig(s *Session) error {
	payload, err := ResetPayload(s.info)
	if err != nil {
		return err
	}
	return writeConfig(s, payload)
}

// EnableDebug computes the chip's debug-enable payload (falling back to
// NotSupported if the chip's spec declares none) and writes it with A8.
func EnableDebug(s *Session) error {
	payload, err := EnableDebugPayload(s.info)
	if err != nil {
		return err
	}
	return writeConfig(s, payload)
}

// DisableDebug restores the plain reset payload.
func DisableDebug(s *Session) error {
	payload, err := DisableDebugPayload(s.info)
	if err != nil {
		return err
	}
	return writeConfig(s, payload)
}

func writeConfig(s *Session, payload []byte) error {
	mask := RegisterMask(s.info)
	resp, err := Transfer(s.transport, NewWriteConfig(mask, payload))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	return nil
}

// EEPROMDump reads length bytes of data EEPROM starting at offset
// (relative to the chip's eeprom_start_addr) in DataRead-sized chunks.
// Reads are never XOR-obfuscated. ctx is checked between chunks so a
// large dump can be cancelled without waiting for it to finish.
func EEPROMDump(ctx context.Context, s *Session, offset, length uint32) ([]byte, error) {
	if s.info.EEPROMSize == 0 {
		return nil, &NotSupportedError{Op: "eeprom dump", Chip: s.info.Name}
	}
	const chunk = 0x3A // matches the original tool's per-packet EEPROM read size
	out := make([]byte, 0, length)
	for off := uint32(0); off < length; off += chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := chunk
		if remaining := length - off; remaining < chunk {
			n = int(remaining)
		}
		addr := s.info.EEPROMStartAddr + offset + off
		resp, err := Transfer(s.transport, NewDataRead(addr, byte(n)))
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
		}
		out = append(out, resp.Data...)
	}
	return out, nil
}

// EEPROMErase erases length bytes of data EEPROM starting at offset.
func EEPROMErase(s *Session, offset, length uint32) error {
	if s.info.EEPROMSize == 0 {
		return &NotSupportedError{Op: "eeprom erase", Chip: s.info.Name}
	}
	addr := s.info.EEPROMStartAddr + offset
	resp, err := Transfer(s.transport, NewDataErase(addr, length))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	return nil
}

// EEPROMWrite writes data to data EEPROM starting at offset, XOR
// obfuscating each chunk with the session's XOR key. ctx is checked
// between chunks, matching Flash's cancellation granularity.
func EEPROMWrite(ctx context.Context, s *Session, offset uint32, data []byte) error {
	if s.info.EEPROMSize == 0 {
		return &NotSupportedError{Op: "eeprom write", Chip: s.info.Name}
	}
	for off := 0; off < len(data); off += MaxChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := off + MaxChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := XORBytes(append([]byte(nil), data[off:end]...), s.xorKey)
		addr := s.info.EEPROMStartAddr + offset + uint32(off)
		resp, err := Transfer(s.transport, NewDataProgram(addr, 0x00, chunk))
		if err != nil {
			return err
		}
		if !resp.OK() {
			return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
		}
	}
	return nil
}
