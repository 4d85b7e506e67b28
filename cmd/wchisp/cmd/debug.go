package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var enableDebugCmd = &cobra.Command{
	Use:   "enable-debug",
	Short: "Enable the chip's hardware debug interface",
	RunE:  runEnableDebug,
}

var disableDebugCmd = &cobra.Command{
	Use:   "disable-debug",
	Short: "Disable the chip's hardware debug interface",
	RunE:  runDisableDebug,
}

func init() {
	rootCmd.AddCommand(enableDebugCmd)
	rootCmd.AddCommand(disableDebugCmd)
}

func runEnableDebug(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		if err := isp.EnableDebug(s); err != nil {
			return err
		}
		fmt.Println("Debug interface enabled.")
		return nil
	})
}

func runDisableDebug(cmd *cobra.Command, args []string) error {
	return withIdentifiedSession(func(s *isp.Session) error {
		if err := isp.DisableDebug(s); err != nil {
			return err
		}
		fmt.Println("Debug interface disabled.")
		return nil
	})
}
