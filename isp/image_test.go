package isp

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadImageIHexWorkedExample pins loadIHex against spec.md's worked
// example: records at 0x0000 ("DE AD") and 0x0004 ("BE EF") produce
// [DE AD FF FF BE EF], padded up to one 64-byte block.
func TestLoadImageIHexWorkedExample(t *testing.T) {
	hex := ":02000000DEAD73\n" +
		":02000400BEEF4D\n" +
		":00000001FF\n"
	path := filepath.Join(t.TempDir(), "fw.hex")
	if err := os.WriteFile(path, []byte(hex), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	image, err := LoadImage(path, 1<<20)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if len(image)%MaxPacketSize != 0 {
		t.Fatalf("len(image) = %d, not a multiple of %d", len(image), MaxPacketSize)
	}
	want := []byte{0xDE, 0xAD, 0xFF, 0xFF, 0xBE, 0xEF}
	for i, b := range want {
		if image[i] != b {
			t.Fatalf("image[:6] = % x, want % x", image[:6], want)
		}
	}
	for i := len(want); i < len(image); i++ {
		if image[i] != 0xFF {
			t.Fatalf("padding byte at %d = 0x%02x, want 0xff", i, image[i])
		}
	}
}

func TestLoadImageRawPassthroughPadsToBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	data := []byte{0x01, 0x02, 0x03}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	image, err := LoadImage(path, 1<<20)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if len(image) != MaxPacketSize {
		t.Fatalf("len(image) = %d, want %d", len(image), MaxPacketSize)
	}
	if image[0] != 0x01 || image[1] != 0x02 || image[2] != 0x03 {
		t.Fatalf("image head = % x, want 01 02 03", image[:3])
	}
	if image[3] != 0xFF {
		t.Fatalf("padding byte = 0x%02x, want 0xff", image[3])
	}
}

func TestLoadImageTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	data := make([]byte, 128)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := LoadImage(path, 64)
	if err == nil {
		t.Fatal("expected ImageTooLargeError")
	}
	tooLarge, ok := err.(*ImageTooLargeError)
	if !ok {
		t.Fatalf("got %T, want *ImageTooLargeError", err)
	}
	if tooLarge.FlashSize != 64 {
		t.Fatalf("FlashSize = %d, want 64", tooLarge.FlashSize)
	}
}

func TestSplitChunksBoundaries(t *testing.T) {
	image := make([]byte, MaxChunkSize*2+10)
	chunks := SplitChunks(image)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0].Data) != MaxChunkSize || len(chunks[1].Data) != MaxChunkSize {
		t.Fatalf("first two chunks should be %d bytes each", MaxChunkSize)
	}
	if len(chunks[2].Data) != 10 {
		t.Fatalf("final chunk = %d bytes, want 10", len(chunks[2].Data))
	}
	if chunks[1].Addr != MaxChunkSize {
		t.Fatalf("chunk[1].Addr = %d, want %d", chunks[1].Addr, MaxChunkSize)
	}
}
