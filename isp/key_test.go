package isp

import "testing"

func TestXORBytesInvolution(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03}
	want := []byte{0x5A, 0x5B, 0x58, 0x59}

	got := XORBytes(append([]byte(nil), data...), 0x5A)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("XORBytes(%v, 0x5a) = %v, want %v", data, got, want)
		}
	}

	roundTrip := XORBytes(append([]byte(nil), got...), 0x5A)
	for i := range data {
		if roundTrip[i] != data[i] {
			t.Fatalf("XOR twice with same key did not round-trip: got %v, want %v", roundTrip, data)
		}
	}
}

func TestBuildKeySeedLength(t *testing.T) {
	seed := BuildKeySeed([7]byte{1, 2, 3, 4, 5, 6, 7})
	if len(seed) != SeedSize {
		t.Fatalf("seed length = %d, want %d", len(seed), SeedSize)
	}
}

func TestDeriveSessionKeyDeterministic(t *testing.T) {
	uid := []byte{0x30, 0x78, 0x3e, 0x26, 0x3b, 0x38, 0xa9, 0xd6}
	source := [7]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11}
	seed := BuildKeySeed(source)

	k1 := DeriveSessionKey(uid, 0x17, seed)
	k2 := DeriveSessionKey(uid, 0x17, seed)
	if k1 != k2 {
		t.Fatalf("DeriveSessionKey is not deterministic: %v != %v", k1, k2)
	}

	other := DeriveSessionKey(uid, 0x30, seed)
	if k1 == other {
		t.Fatalf("DeriveSessionKey ignored chip_id: %v == %v", k1, other)
	}

	if other[7] != other[0]+0x30 {
		t.Fatalf("key[7] = 0x%02x, want key[0]+chip_id = 0x%02x", other[7], other[0]+0x30)
	}
}

func TestUIDChecksum(t *testing.T) {
	got := UIDChecksum([]byte{0x01, 0x02, 0xFF})
	want := byte(0x01 + 0x02 + 0xFF)
	if got != want {
		t.Fatalf("UIDChecksum = 0x%02x, want 0x%02x", got, want)
	}
}

func TestXORKeyByteIsFirstSessionKeyByte(t *testing.T) {
	key := [sessionKeySize]byte{0x42, 1, 2, 3, 4, 5, 6, 7}
	if XORKeyByte(key) != 0x42 {
		t.Fatalf("XORKeyByte = 0x%02x, want 0x42", XORKeyByte(key))
	}
}
