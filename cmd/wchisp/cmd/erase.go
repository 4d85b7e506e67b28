package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the chip's code flash without writing a new image",
	RunE:  runErase,
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase(cmd *cobra.Command, args []string) error {
	t, err := openTransport()
	if err != nil {
		return err
	}
	defer t.Close()

	db, err := loadChipDB()
	if err != nil {
		return err
	}
	s := isp.NewSession(t, db, isp.WithLogger(newLogger()))

	if _, err := s.Identify(); err != nil {
		return err
	}
	if err := isp.Erase(s); err != nil {
		return err
	}
	fmt.Println("Erase complete.")
	return nil
}
