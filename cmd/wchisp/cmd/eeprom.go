package cmd

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var eepromCmd = &cobra.Command{
	Use:   "eeprom",
	Short: "Read, erase, or write the chip's data EEPROM",
}

var eepromDumpCmd = &cobra.Command{
	Use:   "dump <out>",
	Short: "Dump the whole data EEPROM to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runEEPROMDump,
}

var eepromEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the whole data EEPROM",
	RunE:  runEEPROMErase,
}

var eepromWriteCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write a raw file to the start of data EEPROM",
	Args:  cobra.ExactArgs(1),
	RunE:  runEEPROMWrite,
}

func init() {
	rootCmd.AddCommand(eepromCmd)
	eepromCmd.AddCommand(eepromDumpCmd)
	eepromCmd.AddCommand(eepromEraseCmd)
	eepromCmd.AddCommand(eepromWriteCmd)
}

func runEEPROMDump(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		data, err := isp.EEPROMDump(context.Background(), s, 0, s.Info().EEPROMSize)
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], data, 0o644)
	})
}

func runEEPROMErase(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		if err := isp.EEPROMErase(s, 0, s.Info().EEPROMSize); err != nil {
			return err
		}
		fmt.Println("EEPROM erased.")
		return nil
	})
}

func runEEPROMWrite(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		data, err := os.ReadFile(args[0])
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
		if err := isp.EEPROMWrite(context.Background(), s, 0, data); err != nil {
			return err
		}
		fmt.Println("EEPROM written.")
		return nil
	})
}
