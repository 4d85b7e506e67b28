package isp

import (
	"bytes"
	"debug/elf"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/unixdj/ihex"
)

// armFlashBase and the zero base are the two conventional code-flash
// load addresses an ELF's PT_LOAD segments are found at; the loader
// uses armFlashBase when the lowest PT_LOAD address is at or above it,
// and zero otherwise.
const armFlashBase = 0x0800_0000

// imageFormat is the on-disk shape of a firmware image, discriminated
// by extension first and a content sniff as a fallback.
type imageFormat int

const (
	formatRaw imageFormat = iota
	formatIHex
	formatELF
)

func guessFormat(path string, head []byte) imageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		return formatIHex
	case ".elf":
		return formatELF
	case ".bin", ".raw":
		return formatRaw
	}
	if len(head) >= 4 && bytes.Equal(head[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return formatELF
	}
	if len(head) > 0 && head[0] == ':' {
		return formatIHex
	}
	return formatRaw
}

// LoadImage reads path, normalizes it to a flat 0xFF-padded byte vector
// sized to a multiple of MaxPacketSize, and fails with
// ImageTooLargeError if the normalized image would not fit flashSize.
func LoadImage(path string, flashSize uint32) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImageFormatError{Path: path, Err: err}
	}

	head := raw
	if len(head) > 4 {
		head = head[:4]
	}

	var image []byte
	switch guessFormat(path, head) {
	case formatIHex:
		image, err = loadIHex(raw)
	case formatELF:
		image, err = loadELF(raw)
	default:
		image = append([]byte(nil), raw...)
	}
	if err != nil {
		return nil, &ImageFormatError{Path: path, Err: err}
	}

	padded := padToBlock(image, MaxPacketSize)
	if uint32(len(padded)) > flashSize {
		return nil, &ImageTooLargeError{ImageSize: uint32(len(padded)), FlashSize: flashSize}
	}
	return padded, nil
}

func padToBlock(data []byte, block int) []byte {
	rem := len(data) % block
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+(block-rem))
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = 0xFF
	}
	return padded
}

func loadIHex(raw []byte) ([]byte, error) {
	var ix ihex.IHex
	if err := ix.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	if len(ix.Chunks) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	chunks := append(ihex.ChunkList(nil), ix.Chunks...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Addr < chunks[j].Addr })

	base := chunks[0].Addr
	var top uint32
	for _, c := range chunks {
		end := c.Addr + uint32(len(c.Data))
		if end > top {
			top = end
		}
	}

	image := make([]byte, top-base)
	for i := range image {
		image[i] = 0xFF
	}
	for _, c := range chunks {
		copy(image[c.Addr-base:], c.Data)
	}
	return image, nil
}

func loadELF(raw []byte) ([]byte, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type segment struct {
		addr uint64
		data []byte
	}
	var segs []segment
	var lowest uint64 = ^uint64(0)
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), data); err != nil {
			return nil, err
		}
		segs = append(segs, segment{addr: prog.Vaddr, data: data})
		if prog.Vaddr < lowest {
			lowest = prog.Vaddr
		}
	}
	if len(segs) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	base := uint64(0)
	if lowest >= armFlashBase {
		base = armFlashBase
	}

	var top uint64
	for _, s := range segs {
		end := s.addr - base + uint64(len(s.data))
		if end > top {
			top = end
		}
	}

	image := make([]byte, top)
	for i := range image {
		image[i] = 0xFF
	}
	for _, s := range segs {
		copy(image[s.addr-base:], s.data)
	}
	return image, nil
}

// ImageChunk is one piece of an image and its offset within the image.
type ImageChunk struct {
	Addr uint32
	Data []byte
}

// SplitChunks breaks a padded image into ≤MaxChunkSize-byte pieces at
// contiguous offsets, the shape Program/Verify send on the wire.
func SplitChunks(image []byte) []ImageChunk {
	var chunks []ImageChunk
	for off := 0; off < len(image); off += MaxChunkSize {
		end := off + MaxChunkSize
		if end > len(image) {
			end = len(image)
		}
		chunks = append(chunks, ImageChunk{Addr: uint32(off), Data: image[off:end]})
	}
	return chunks
}
