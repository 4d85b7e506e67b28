package isp

import (
	"bytes"
	"testing"
)

func TestRequestEncode(t *testing.T) {
	req := Request{Cmd: CmdIdentify, Payload: []byte{0x00, 0x00}}
	got := req.Encode()
	want := []byte{0xa1, 0x02, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % x, want % x", got, want)
	}
}

func TestNewIdentifyPayload(t *testing.T) {
	req := NewIdentify()
	if req.Cmd != CmdIdentify {
		t.Fatalf("cmd = %v, want Identify", req.Cmd)
	}
	if req.Payload[0] != 0x00 {
		t.Fatalf("ability byte = 0x%02x, want 0x00", req.Payload[0])
	}
	if string(req.Payload[2:]) != identifyMagic {
		t.Fatalf("payload magic = %q, want %q", req.Payload[2:], identifyMagic)
	}

	uidReq := NewIdentifyUID()
	if uidReq.Payload[0] != 0x01 {
		t.Fatalf("UID variant ability byte = 0x%02x, want 0x01", uidReq.Payload[0])
	}
}

// TestDecodeResponseIdentifyWorkedExample pins the wire layout against the
// worked example: [A1 00 02 00 00 17 70] decodes to chip_id=0x17,
// device_type=0x70.
func TestDecodeResponseIdentifyWorkedExample(t *testing.T) {
	raw := []byte{0xa1, 0x00, 0x02, 0x00, 0x00, 0x17, 0x70}
	resp, err := DecodeResponse(raw)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Cmd != CmdIdentify {
		t.Fatalf("cmd = %v, want Identify", resp.Cmd)
	}
	if !resp.OK() {
		t.Fatalf("status = 0x%02x, want OK", resp.Status)
	}
	if len(resp.Data) != 2 || resp.Data[0] != 0x17 || resp.Data[1] != 0x70 {
		t.Fatalf("data = % x, want [17 70]", resp.Data)
	}
}

func TestDecodeResponseTooShort(t *testing.T) {
	if _, err := DecodeResponse([]byte{0xa1, 0x00}); err == nil {
		t.Fatal("expected error decoding a too-short response")
	}
}

func TestDecodeResponseDeclaredSizeMismatch(t *testing.T) {
	raw := []byte{0xa1, 0x00, 0x05, 0x00, 0x00} // declares 5 bytes of data, supplies none
	if _, err := DecodeResponse(raw); err == nil {
		t.Fatal("expected error when declared size exceeds available bytes")
	}
}

func TestUIDStringRendering(t *testing.T) {
	uid := []byte{0x30, 0x78, 0x3e, 0x26, 0x3b, 0x38, 0xa9, 0xd6}
	got := UIDString(uid)
	want := "30-78-3e-26-3b-38-a9-d6"
	if got != want {
		t.Fatalf("UIDString = %q, want %q", got, want)
	}
}
