package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ch32-rs/wchisp/isp"
)

var (
	verbose    bool
	useSerial  bool
	serialPort string
	deviceIdx  int
)

var rootCmd = &cobra.Command{
	Use:   "wchisp",
	Short: "In-system programmer for WCH MCU bootloaders",
	Long: `wchisp talks to a WCH MCU running its factory ISP bootloader over
USB or a serial link: identify the chip, flash firmware, inspect or reset
its configuration registers, and manage its data EEPROM.`,
	Version: "0.1.0",

	// RunE functions that open a transport return errors instead of
	// exiting so every deferred transport close runs before the process
	// exits; Execute prints and exits after rootCmd.Execute (and its
	// defers) return.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits the process with a code
// derived from the returned error, after every RunE function's deferred
// cleanup (closing the USB or serial handle) has run. The only other
// os.Exit call is probe's exit with 1 when it finds no device; probe
// holds no open handle.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error returned from RunE to the process exit code:
// 1 for a failure to open the transport, 3 for a verify mismatch after
// flashing, 2 for everything else.
func exitCodeFor(err error) int {
	var openErr *isp.TransportOpenError
	if errors.As(err, &openErr) {
		return 1
	}
	var mismatch *isp.VerifyMismatchError
	if errors.As(err, &mismatch) {
		return 3
	}
	return 2
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&useSerial, "serial", "s", false, "use serial transport instead of USB")
	rootCmd.PersistentFlags().StringVarP(&serialPort, "port", "p", "", "serial port name (with --serial)")
	rootCmd.PersistentFlags().IntVarP(&deviceIdx, "device", "d", 0, "device index among enumerated candidates")
}

// openTransport opens either the USB or serial transport, selected by
// the --serial/--port/--device flags, the same selector logic every
// subcommand needs.
func openTransport() (isp.Transport, error) {
	if useSerial {
		if serialPort != "" {
			return isp.OpenSerialPort(serialPort)
		}
		return isp.OpenNthSerialPort(deviceIdx)
	}
	return isp.OpenUSBDevice(deviceIdx)
}

func newLogger() isp.Logger {
	return isp.NewStdLogger(verbose)
}

func loadChipDB() (*isp.ChipDB, error) {
	db, err := isp.LoadChipDB()
	if err != nil {
		return nil, fmt.Errorf("load chip database: %w", err)
	}
	return db, nil
}
