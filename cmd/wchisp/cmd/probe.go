package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "List connected WCH ISP devices without opening a session",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if useSerial {
		ports, err := isp.ScanSerialPorts()
		if err != nil {
			return err
		}
		for i, p := range ports {
			fmt.Printf("#%d: %s\n", i, p)
		}
		if len(ports) == 0 {
			os.Exit(1)
		}
		return nil
	}

	devices, err := isp.ScanUSBDevices()
	if err != nil {
		return err
	}
	for i, d := range devices {
		fmt.Printf("#%d: bus %d addr %d (%04x:%04x)\n", i, d.Bus, d.Address, d.VendorID, d.ProductID)
	}
	if len(devices) == 0 {
		os.Exit(1)
	}
	return nil
}
