package isp

import (
	"fmt"
	"time"
)

// Transport is the capability the core protocol engine needs from a
// link: send one request frame, receive one response frame, close. It is
// a closed sum of two concrete implementations (USB, Serial); callers
// depend only on this interface, never on gousb or go.bug.st/serial
// directly outside transport_usb.go / transport_serial.go.
type Transport interface {
	// SendRaw writes one already-encoded frame.
	SendRaw(raw []byte) error
	// RecvRaw reads one frame, blocking up to timeout.
	RecvRaw(timeout time.Duration) ([]byte, error)
	// Close releases the underlying device handle. Calling Close more
	// than once must be safe.
	Close() error
}

// defaultRecvTimeout is the adaptive timeout's starting point (spec.md
// §4.A: "An adaptive timeout: start at 5 s").
const defaultRecvTimeout = 5 * time.Second

// Transfer sends req and decodes the matching response, enforcing that
// the response's command byte echoes the request's.
func Transfer(t Transport, req Request) (Response, error) {
	raw := req.Encode()
	if err := t.SendRaw(raw); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Cmd, err)
	}

	respRaw, err := t.RecvRaw(defaultRecvTimeout)
	if err != nil {
		return Response{}, fmt.Errorf("recv %s: %w", req.Cmd, err)
	}

	resp, err := DecodeResponse(respRaw)
	if err != nil {
		return Response{}, err
	}
	if resp.Cmd != req.Cmd {
		return Response{}, &ProtocolFramingError{
			Reason: fmt.Sprintf("response command 0x%02x does not match request 0x%02x", resp.Cmd, req.Cmd),
		}
	}
	return resp, nil
}
