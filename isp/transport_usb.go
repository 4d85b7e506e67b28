package isp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USBTransport talks to the bootloader over its vendor bulk endpoints
// (OUT 0x02, IN 0x82), claiming interface 0. Grounded on
// OpenTraceLab-OpenTraceJTAG's gousb-based CMSIS-DAP transport.
type USBTransport struct {
	ctx   *gousb.Context
	dev   *gousb.Device
	cfg   *gousb.Config
	intf  *gousb.Interface
	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint
}

// USBDeviceInfo describes one enumerated candidate for the -d selector.
type USBDeviceInfo struct {
	Bus, Address int
	VendorID     gousb.ID
	ProductID    gousb.ID
}

func isWCHISPDevice(desc *gousb.DeviceDesc) bool {
	vid := uint16(desc.Vendor)
	pid := uint16(desc.Product)
	return (vid == USBVendorIDWCH || vid == USBVendorIDWCHAlt) && pid == USBProductID
}

// ScanUSBDevices enumerates connected WCH ISP USB devices, in the same
// order OpenUSBDevice indexes into with its nth parameter.
func ScanUSBDevices() ([]USBDeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []USBDeviceInfo
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if isWCHISPDevice(desc) {
			found = append(found, USBDeviceInfo{
				Bus:       desc.Bus,
				Address:   desc.Address,
				VendorID:  desc.Vendor,
				ProductID: desc.Product,
			})
		}
		return false
	})
	for _, d := range devices {
		_ = d.Close()
	}
	if err != nil {
		return found, err
	}
	return found, nil
}

// OpenUSBDevice opens the nth enumerated WCH ISP USB device and claims
// its vendor interface.
func OpenUSBDevice(nth int) (*USBTransport, error) {
	ctx := gousb.NewContext()

	var matches []*gousb.Device
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isWCHISPDevice(desc)
	})
	if err != nil {
		ctx.Close()
		return nil, &TransportOpenError{Device: "usb", Err: err}
	}
	matches = devices

	if nth < 0 || nth >= len(matches) {
		for _, d := range matches {
			_ = d.Close()
		}
		ctx.Close()
		return nil, &TransportOpenError{
			Device: "usb",
			Err:    fmt.Errorf("no WCH ISP USB device at index #%d (found %d)", nth, len(matches)),
		}
	}

	dev := matches[nth]
	for i, d := range matches {
		if i != nth {
			_ = d.Close()
		}
	}

	if err := dev.SetAutoDetach(true); err != nil {
		// Not fatal on platforms that don't support kernel-driver detach.
		_ = err
	}

	cfg, err := dev.Config(1)
	if err != nil {
		_ = dev.Close()
		ctx.Close()
		return nil, &TransportOpenError{Device: "usb", Err: fmt.Errorf("get config: %w", err)}
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		_ = cfg.Close()
		_ = dev.Close()
		ctx.Close()
		return nil, &TransportOpenError{Device: "usb", Err: fmt.Errorf("claim interface 0: %w", err)}
	}

	epOut, err := intf.OutEndpoint(usbEndpointOut)
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		_ = dev.Close()
		ctx.Close()
		return nil, &TransportOpenError{Device: "usb", Err: fmt.Errorf("out endpoint: %w", err)}
	}

	epIn, err := intf.InEndpoint(usbEndpointIn)
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		_ = dev.Close()
		ctx.Close()
		return nil, &TransportOpenError{Device: "usb", Err: fmt.Errorf("in endpoint: %w", err)}
	}

	return &USBTransport{
		ctx:   ctx,
		dev:   dev,
		cfg:   cfg,
		intf:  intf,
		epOut: epOut,
		epIn:  epIn,
	}, nil
}

// SendRaw implements Transport. One ISP command is one bulk OUT transfer
// of the whole frame.
func (t *USBTransport) SendRaw(raw []byte) error {
	_, err := t.epOut.Write(raw)
	return err
}

// RecvRaw implements Transport. The read is bounded by timeout via
// ReadContext so a device that stops responding doesn't hang the caller,
// matching the serial transport's SetReadTimeout behavior.
func (t *USBTransport) RecvRaw(timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	buf := make([]byte, MaxPacketSize)
	n, err := t.epIn.ReadContext(ctx, buf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "usb recv", Timeout: timeout.String()}
		}
		return nil, err
	}
	return buf[:n], nil
}

// Close implements Transport.
func (t *USBTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		_ = t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		_ = t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		_ = t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
