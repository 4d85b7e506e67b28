package isp

import (
	"encoding/binary"
	"fmt"
	"time"
)

// mockTransport plays back a fixed queue of responses and records every
// frame sent to it, the way moffa90-go-cyacd's mock_device simulates a
// bootloader for its own tests.
type mockTransport struct {
	sent      [][]byte
	responses [][]byte
	idx       int
	closed    bool
}

func (m *mockTransport) SendRaw(raw []byte) error {
	m.sent = append(m.sent, append([]byte(nil), raw...))
	return nil
}

func (m *mockTransport) RecvRaw(timeout time.Duration) ([]byte, error) {
	if m.idx >= len(m.responses) {
		return nil, &TimeoutError{Op: "mock recv", Timeout: timeout.String()}
	}
	r := m.responses[m.idx]
	m.idx++
	return r, nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

// sentCommands returns the command byte of each frame sent, in order,
// for asserting protocol ordering.
func (m *mockTransport) sentCommands() []Command {
	cmds := make([]Command, len(m.sent))
	for i, f := range m.sent {
		cmds[i] = Command(f[0])
	}
	return cmds
}

// encodeMockResponse builds a raw response frame: cmd | 0x00 |
// size:u16 LE | status | data.
func encodeMockResponse(cmd Command, status byte, data []byte) []byte {
	buf := make([]byte, 5+len(data))
	buf[0] = byte(cmd)
	buf[1] = 0x00
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(data)))
	buf[4] = status
	copy(buf[5:], data)
	return buf
}

func mustOK(cmd Command, data []byte) []byte {
	return encodeMockResponse(cmd, 0x00, data)
}

func fmtHex(b []byte) string {
	return fmt.Sprintf("% x", b)
}
