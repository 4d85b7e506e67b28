package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or reset the chip's configuration registers",
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Read and decode the configuration registers",
	RunE:  runConfigInfo,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the configuration registers to their factory defaults",
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd)
	configCmd.AddCommand(configResetCmd)
}

func withIdentifiedSession(fn func(*isp.Session) error) error {
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
	return fn(s)
}

func runConfigInfo(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		dumps, err := isp.ReadConfig(s)
		if err != nil {
			return err
		}
		for _, reg := range dumps {
			fmt.Printf("%s (offset 0x%02x): 0x%08x\n", reg.Name, reg.Offset, reg.Raw)
			for _, f := range reg.Fields {
				fmt.Printf("  %-16s %-10s (%s) %s\n", f.Name, f.Hex, f.Binary, f.Label)
			}
		}
		return nil
	})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		if err := isp.ResetConfig(s); err != nil {
			return err
		}
		fmt.Println("Configuration registers reset to factory defaults.")
		return nil
	})
}
