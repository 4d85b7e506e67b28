package isp

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialTransport talks to the bootloader over a UART link framed as
// spec.md §4.A: 0x57 0xAB sync | len_lo len_hi | payload | sum, with the
// response unwrapped symmetrically behind a 0x55 0xAA sync.
type SerialTransport struct {
	port serial.Port
}

// ScanSerialPorts lists the serial ports the -p/--port selector can index
// into (by name) or -d can index into (by position).
func ScanSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

// OpenSerialPort opens a named serial port at the default 115200 8N1.
func OpenSerialPort(name string) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, &TransportOpenError{Device: name, Err: err}
	}
	if err := port.SetReadTimeout(defaultRecvTimeout); err != nil {
		_ = port.Close()
		return nil, &TransportOpenError{Device: name, Err: err}
	}
	return &SerialTransport{port: port}, nil
}

// OpenNthSerialPort opens the nth port returned by ScanSerialPorts.
func OpenNthSerialPort(nth int) (*SerialTransport, error) {
	ports, err := ScanSerialPorts()
	if err != nil {
		return nil, &TransportOpenError{Device: "serial", Err: err}
	}
	if nth < 0 || nth >= len(ports) {
		return nil, &TransportOpenError{
			Device: "serial",
			Err:    fmt.Errorf("no serial port at index #%d (found %d)", nth, len(ports)),
		}
	}
	return OpenSerialPort(ports[nth])
}

func checksum8(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// SendRaw implements Transport. raw is already a fully-encoded ISP
// request frame (cmd | size:u16 LE | payload); the serial wrapper just
// adds a sync marker in front and a checksum byte behind.
func (t *SerialTransport) SendRaw(raw []byte) error {
	framed := make([]byte, 0, 2+len(raw)+1)
	framed = append(framed, serialSyncSend[0], serialSyncSend[1])
	framed = append(framed, raw...)
	framed = append(framed, checksum8(raw))

	_, err := t.port.Write(framed)
	return err
}

// RecvRaw implements Transport. The response frame's own header (cmd |
// 0x00 | size:u16 LE) doubles as the wrapper's length field, so the
// header must be parsed before the rest of the frame can be read.
func (t *SerialTransport) RecvRaw(timeout time.Duration) ([]byte, error) {
	_ = t.port.SetReadTimeout(timeout)

	sync := make([]byte, 2)
	if err := readFull(t.port, sync); err != nil {
		return nil, err
	}
	if sync[0] != serialSyncRecv[0] || sync[1] != serialSyncRecv[1] {
		return nil, &ProtocolFramingError{Reason: fmt.Sprintf("invalid sync header %02x%02x", sync[0], sync[1])}
	}

	head := make([]byte, 4)
	if err := readFull(t.port, head); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint16(head[2:4])

	// status byte plus size bytes of data.
	rest := make([]byte, 1+int(size))
	if err := readFull(t.port, rest); err != nil {
		return nil, err
	}

	cksumBuf := make([]byte, 1)
	if err := readFull(t.port, cksumBuf); err != nil {
		return nil, err
	}

	frame := append(append([]byte(nil), head...), rest...)
	if want := checksum8(frame); cksumBuf[0] != want {
		return nil, &ProtocolFramingError{
			Reason: fmt.Sprintf("checksum mismatch: got 0x%02x want 0x%02x", cksumBuf[0], want),
		}
	}

	return frame, nil
}

func readFull(r io.Reader, buf []byte) error {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		if m == 0 && err == nil {
			return &TimeoutError{Op: "serial recv", Timeout: "read timeout"}
		}
		n += m
		if err != nil {
			if n == len(buf) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close implements Transport.
func (t *SerialTransport) Close() error {
	return t.port.Close()
}
