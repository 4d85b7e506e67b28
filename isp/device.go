package isp

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte count that unmarshals from the device database's mixed
// notations: "0x10000", "224K", "224KiB", "224KB", or a bare decimal
// string, mirroring the handful of address/offset forms the original
// chip database uses for flash_size/eeprom_size/eeprom_start_addr.
type Size uint32

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseSize(raw)
	if err != nil {
		return err
	}
	*s = Size(v)
	return nil
}

func parseSize(raw string) (uint32, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("parse hex size %q: %w", raw, err)
		}
		return uint32(v), nil
	case strings.HasSuffix(s, "KiB"):
		return parseKiloSize(s[:len(s)-3], raw)
	case strings.HasSuffix(s, "KB"):
		return parseKiloSize(s[:len(s)-2], raw)
	case strings.HasSuffix(s, "K"):
		return parseKiloSize(s[:len(s)-1], raw)
	default:
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("parse size %q: %w", raw, err)
		}
		return uint32(v), nil
	}
}

func parseKiloSize(digits, raw string) (uint32, error) {
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", raw, err)
	}
	return uint32(v) * 1024, nil
}

// ChipFamily is one device_type's worth of chips, as loaded from one
// embedded YAML document under isp/devices/.
type ChipFamily struct {
	Name          string              `yaml:"name"`
	McuType       byte                `yaml:"mcu_type"`
	DeviceType    byte                `yaml:"device_type"`
	SupportUSB    *bool               `yaml:"support_usb"`
	SupportSerial *bool               `yaml:"support_serial"`
	SupportNet    *bool               `yaml:"support_net"`
	Description   string              `yaml:"description"`
	ConfigRegs    []ConfigRegisterSpec `yaml:"config_registers"`
	Variants      []ChipEntry         `yaml:"variants"`
}

// ChipEntry is one chip variant's entry inside a family document, before
// probing has patched in the family-level fields.
type ChipEntry struct {
	Name            string               `yaml:"name"`
	ChipID          byte                 `yaml:"chip_id"`
	AltChipIDsRaw   []string             `yaml:"alt_chip_ids"`
	FlashSize       Size                 `yaml:"flash_size"`
	EEPROMSize      Size                 `yaml:"eeprom_size"`
	EEPROMStartAddr Size                 `yaml:"eeprom_start_addr"`
	SupportUSB      *bool                `yaml:"support_usb"`
	SupportSerial   *bool                `yaml:"support_serial"`
	SupportNet      *bool                `yaml:"support_net"`
	ConfigRegs      []ConfigRegisterSpec `yaml:"config_registers"`
}

// ConfigRegisterSpec describes one 4-byte configuration register: its
// offset within the register blob, its reset value, an optional
// alternative reset value used by the debug-enable command, and the
// bit fields packed inside it.
type ConfigRegisterSpec struct {
	Offset       uint32     `yaml:"offset"`
	Name         string     `yaml:"name"`
	Reset        uint32     `yaml:"reset"`
	EnableDebug  *uint32    `yaml:"enable_debug"`
	Fields       []FieldSpec `yaml:"fields"`
}

// FieldSpec describes one bit field within a ConfigRegisterSpec.
type FieldSpec struct {
	BitRange    [2]int            `yaml:"bit_range"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Explaination map[string]string `yaml:"explaination"`
}

// Mask returns the bitmask covering [lo, hi] inclusive.
func (f FieldSpec) Mask() uint32 {
	hi, lo := f.BitRange[0], f.BitRange[1]
	width := hi - lo + 1
	if width <= 0 || width > 32 {
		return 0
	}
	var m uint32
	if width == 32 {
		m = 0xFFFFFFFF
	} else {
		m = (uint32(1) << uint(width)) - 1
	}
	return m << uint(lo)
}

// Extract pulls this field's value out of a full register value.
func (f FieldSpec) Extract(reg uint32) uint32 {
	lo := f.BitRange[1]
	return (reg & f.Mask()) >> uint(lo)
}

// altChipIDs expands AltChipIDsRaw, honoring the "all" marker the same
// way the original database does (every byte value 0x00-0xff matches).
func (c ChipEntry) altChipIDs() ([]byte, error) {
	var ids []byte
	for _, raw := range c.AltChipIDsRaw {
		switch strings.ToLower(raw) {
		case "all":
			for i := 0; i <= 0xff; i++ {
				ids = append(ids, byte(i))
			}
		default:
			v, err := parseSize(raw)
			if err != nil {
				return nil, fmt.Errorf("alt_chip_ids entry %q: %w", raw, err)
			}
			ids = append(ids, byte(v))
		}
	}
	return ids, nil
}

// ChipInfo is the flattened, probe-resolved description of one concrete
// MCU variant: family-level fields patched onto the matching chip entry.
type ChipInfo struct {
	Name            string
	ChipID          byte
	McuType         byte
	DeviceType      byte
	FlashSize       uint32
	EEPROMSize      uint32
	EEPROMStartAddr uint32
	SupportUSB      bool
	SupportSerial   bool
	SupportNet      bool
	ConfigRegs      []ConfigRegisterSpec
}

// String renders name(0xCCDD) the way the original tool logs a resolved
// chip, chip_id first and device_type second.
func (c ChipInfo) String() string {
	return fmt.Sprintf("%s(0x%02x%02x)", c.Name, c.ChipID, c.DeviceType)
}

// MinEraseSectors is how many 1K sectors a single Erase command must
// cover at minimum; CH56x (device_type 0x10) uses a smaller floor than
// every later family.
func (c ChipInfo) MinEraseSectors() uint32 {
	if c.DeviceType == 0x10 {
		return 4
	}
	return DefaultMinEraseSectors
}

// UIDSize is how many bytes of UID the Identify response carries for
// this chip; CH55x (device_type 0x11) reports a short 4-byte UID.
func (c ChipInfo) UIDSize() int {
	if c.DeviceType == 0x11 {
		return 4
	}
	return 8
}

// SupportsCodeFlashProtect reports whether this chip belongs to one of
// the families treated as having code-flash read protection
// (device_type 0x14, 0x15, 0x70-0x73). The answer depends on device_type
// alone, not on the config registers declared in the database.
func (c ChipInfo) SupportsCodeFlashProtect() bool {
	switch c.DeviceType {
	case 0x14, 0x15, 0x70, 0x71, 0x72, 0x73:
		return true
	default:
		return false
	}
}
