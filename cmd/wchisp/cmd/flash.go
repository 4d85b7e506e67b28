package cmd

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var (
	flashNoErase  bool
	flashNoVerify bool
	flashNoReset  bool
	flashRetries  int
)

var flashCmd = &cobra.Command{
	Use:   "flash <path>",
	Short: "Flash a firmware image to the connected chip",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlash,
}

func init() {
	rootCmd.AddCommand(flashCmd)

	flashCmd.Flags().BoolVar(&flashNoErase, "no-erase", false, "skip erasing before write")
	flashCmd.Flags().BoolVar(&flashNoVerify, "no-verify", false, "skip verification after write")
	flashCmd.Flags().BoolVar(&flashNoReset, "no-reset", false, "don't reset the device after flashing")
	flashCmd.Flags().IntVar(&flashRetries, "retry", 0, "retry identify/set-key this many times")
}

func runFlash(cmd *cobra.Command, args []string) error {
	path := args[0]

	t, err := openTransport()
	if err != nil {
		return err
	}
	defer t.Close()

	db, err := loadChipDB()
	if err != nil {
		return err
	}
	logger := newLogger()
	s := isp.NewSession(t, db,
		isp.WithLogger(logger),
		isp.WithRetries(flashRetries),
		isp.WithProgressCallback(printProgress),
	)

	info, err := s.Identify()
	if err != nil {
		return err
	}
	fmt.Printf("Chip: %s, UID: %s, BTVER: %s\n", info.String(), isp.UIDString(s.UID()), s.BTVERString())

	image, err := isp.LoadImage(path, info.FlashSize)
	if err != nil {
		return err
	}

	var source [7]byte
	if _, err := rand.Read(source[:]); err != nil {
		return err
	}
	if err := s.SetKey(source); err != nil {
		return err
	}

	opts := isp.FlashOptions{
		NoErase:  flashNoErase,
		NoVerify: flashNoVerify,
		NoReset:  flashNoReset,
	}
	if err := isp.Flash(context.Background(), s, image, opts); err != nil {
		return err
	}

	fmt.Println("Flash complete.")
	return nil
}

func printProgress(p isp.Progress) {
	fmt.Printf("\r%s: chunk %d/%d (%.1f%%)", p.Phase, p.CurrentChunk, p.TotalChunks, p.Percentage())
	if p.CurrentChunk == p.TotalChunks {
		fmt.Println()
	}
}
