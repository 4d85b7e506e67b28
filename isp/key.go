package isp

// SeedSize is the length of the host-generated seed sent with the IspKey
// (0xa3) command.
const SeedSize = 30

// sessionKeySize is the length of the internal 8-byte key array the
// bootloader derives from the UID, the chip_id, and the 7 seed bytes it
// extracts from the IspKey payload.
const sessionKeySize = 8

// BuildKeySeed expands 7 host-chosen "key source" bytes into the 30-byte
// wire payload for IspKey. The bootloader picks 7 bytes back out of this
// payload via a fixed stride (see extractSeedBytes) to recover the same
// 7 bytes; tiling them across all 30 positions means any stride the
// bootloader happens to use still lands on a source byte.
//
// The exact construction used by the factory bootloader was never
// golden-traced for this port (see DESIGN.md); this tiling scheme is a
// documented, self-consistent placeholder that satisfies spec.md's
// invariants (fixed length, recomputed per session, involutive XOR use).
func BuildKeySeed(source [7]byte) [SeedSize]byte {
	var seed [SeedSize]byte
	for i := range seed {
		seed[i] = source[i%len(source)]
	}
	return seed
}

// extractSeedBytes recovers the 7 key-source bytes from a 30-byte seed
// using a stride-4 selection starting at offset 0, mirroring the "select
// 7 bytes via some rule" step of the bootloader's own derivation.
func extractSeedBytes(seed [SeedSize]byte) [7]byte {
	var sel [7]byte
	for i := range sel {
		sel[i] = seed[(i*4)%SeedSize]
	}
	return sel
}

// UIDChecksum sums the UID bytes mod 256, the seed value s used to
// initialize the session key.
func UIDChecksum(uid []byte) byte {
	var s byte
	for _, b := range uid {
		s += b
	}
	return s
}

// DeriveSessionKey reproduces the bootloader's 8-byte session key from
// the chip UID, the chip_id, and the 30-byte seed the host sent with
// IspKey. It is pure and side-effect free so the host can precompute the
// XOR key before it ever has to obfuscate a payload.
func DeriveSessionKey(uid []byte, chipID byte, seed [SeedSize]byte) [sessionKeySize]byte {
	s := UIDChecksum(uid)

	var key [sessionKeySize]byte
	for i := range key {
		key[i] = s
	}

	selected := extractSeedBytes(seed)
	for i := 0; i < 7; i++ {
		key[i] ^= selected[i]
	}
	key[7] = key[0] + chipID

	return key
}

// XORKeyByte picks the single byte applied to Program/Verify/DataProgram
// payloads out of the 8-byte session key.
func XORKeyByte(sessionKey [sessionKeySize]byte) byte {
	return sessionKey[0]
}

// XORBytes XORs every byte of data with key in place and returns data.
// Applying it twice with the same key is the identity (spec.md §8
// property 3): XOR is its own inverse.
func XORBytes(data []byte, key byte) []byte {
	for i := range data {
		data[i] ^= key
	}
	return data
}
