package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Identify the connected chip and print its basic information",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	info, err := s.Identify()
	if err != nil {
		return err
	}

	fmt.Printf("Chip: %s\n", info.String())
	fmt.Printf("Flash: %d KiB, EEPROM: %d KiB\n", info.FlashSize/1024, info.EEPROMSize/1024)
	fmt.Printf("UID: %s\n", isp.UIDString(s.UID()))
	fmt.Printf("BTVER: %s\n", s.BTVERString())
	return nil
}
