package isp

import (
	"context"
	"math/rand"
)

// FlashOptions controls which optional steps of a flash run execute.
type FlashOptions struct {
	NoErase  bool
	NoVerify bool
	NoReset  bool
}

// Flash runs the erase, write, verify and reset steps of a flashing
// session. Identify and SetKey are not part of it: the session must
// already be past them (s.State() >= StateKeyed); Flash drives the
// remaining transitions itself.
func Flash(ctx context.Context, s *Session, image []byte, opts FlashOptions) error {
	if s.info == nil {
		return &NotSupportedError{Op: "flash", Chip: "<unidentified>"}
	}

	if !opts.NoErase {
		if err := eraseForImage(s, image); err != nil {
			s.state = StateFailed
			return err
		}
	}
	s.state = StateErased

	if err := writeChunks(ctx, s, image); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateWriting

	if !opts.NoVerify {
		if err := verifyChunks(ctx, s, image); err != nil {
			s.state = StateFailed
			return err
		}
	}
	s.state = StateVerified

	if !opts.NoReset {
		resetDevice(s)
	}
	s.state = StateReset

	return nil
}

func eraseForImage(s *Session, image []byte) error {
	sectors := uint32((len(image) + int(SectorSize) - 1) / int(SectorSize))
	if min := s.info.MinEraseSectors(); sectors < min {
		sectors = min
	}
	s.cfg.logger.Info("erasing", "sectors", sectors)
	resp, err := Transfer(s.transport, NewErase(sectors))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	return nil
}

func writeChunks(ctx context.Context, s *Session, image []byte) error {
	chunks := SplitChunks(image)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		padding := byte(rand.Intn(256))
		obfuscated := XORBytes(append([]byte(nil), c.Data...), s.xorKey)
		resp, err := Transfer(s.transport, NewProgram(c.Addr, padding, obfuscated))
		if err != nil {
			return err
		}
		if !resp.OK() {
			return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
		}
		reportProgress(s, "writing", i, len(chunks), int(c.Addr)+len(c.Data), len(image))
	}
	return nil
}

func verifyChunks(ctx context.Context, s *Session, image []byte) error {
	chunks := SplitChunks(image)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		obfuscated := XORBytes(append([]byte(nil), c.Data...), s.xorKey)
		resp, err := Transfer(s.transport, NewVerify(c.Addr, 0x00, obfuscated))
		if err != nil {
			return err
		}
		if !resp.OK() {
			return &VerifyMismatchError{Offset: c.Addr}
		}
		reportProgress(s, "verifying", i, len(chunks), int(c.Addr)+len(c.Data), len(image))
	}
	return nil
}

// resetDevice sends IspEnd with reason "jump to app". Protocol errors
// here are logged, not returned: the bootloader may already have
// jumped to the application before it could ack the command.
func resetDevice(s *Session) {
	resp, err := Transfer(s.transport, NewIspEnd(ReasonJumpToApp))
	if err != nil {
		s.cfg.logger.Warn("reset command did not get a response", "err", err)
		return
	}
	if !resp.OK() {
		s.cfg.logger.Warn("reset command returned non-ok status", "status", resp.Status)
	}
}

func reportProgress(s *Session, phase string, chunkIdx, totalChunks, bytesDone, totalBytes int) {
	if s.cfg.progress == nil {
		return
	}
	s.cfg.progress(Progress{
		Phase:        phase,
		CurrentChunk: chunkIdx + 1,
		TotalChunks:  totalChunks,
		BytesDone:    bytesDone,
		TotalBytes:   totalBytes,
	})
}

// Erase sends a standalone Erase command covering at least the chip's
// minimum erase unit, for the `erase` CLI command (no image involved).
func Erase(s *Session) error {
	sectors := s.info.MinEraseSectors()
	resp, err := Transfer(s.transport, NewErase(sectors))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	return nil
}
