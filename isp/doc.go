// Package isp implements the WCH in-system-programming (ISP) wire protocol,
// the chip database that identifies a connected MCU, the configuration
// register codec, and the orchestration logic that drives a full
// identify/erase/write/verify/reset flashing session.
//
// The package talks to the bootloader through the Transport interface,
// which has a USB (gousb) and a serial (go.bug.st/serial) implementation.
// None of the types here print to a terminal or parse command-line flags;
// that is the job of cmd/wchisp.
package isp
