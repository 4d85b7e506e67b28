package isp

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed devices/0x10-CH56x.yaml
var deviceDoc0x10 []byte

//go:embed devices/0x11-CH55x.yaml
var deviceDoc0x11 []byte

//go:embed devices/0x12-CH54x.yaml
var deviceDoc0x12 []byte

//go:embed devices/0x13-CH57x.yaml
var deviceDoc0x13 []byte

//go:embed devices/0x14-CH32F103.yaml
var deviceDoc0x14 []byte

//go:embed devices/0x15-CH32V103.yaml
var deviceDoc0x15 []byte

//go:embed devices/0x16-CH58x.yaml
var deviceDoc0x16 []byte

//go:embed devices/0x17-CH32V30x.yaml
var deviceDoc0x17 []byte

//go:embed devices/0x18-CH32F20x.yaml
var deviceDoc0x18 []byte

//go:embed devices/0x19-CH32V20x.yaml
var deviceDoc0x19 []byte

//go:embed devices/0x20-CH32F20x-Compact.yaml
var deviceDoc0x20 []byte

var allDeviceDocs = [][]byte{
	deviceDoc0x10, deviceDoc0x11, deviceDoc0x12, deviceDoc0x13,
	deviceDoc0x14, deviceDoc0x15, deviceDoc0x16, deviceDoc0x17,
	deviceDoc0x18, deviceDoc0x19, deviceDoc0x20,
}

// ChipDB holds every chip family document embedded into the binary.
type ChipDB struct {
	families []ChipFamily
}

// LoadChipDB parses every embedded family document and validates it:
// chip_id (and its expanded alt_chip_ids) must be unique within a
// family, flash_size must be 4-byte aligned, eeprom_start_addr+eeprom_size
// must not exceed the address space, and config registers must pass
// validateConfigRegs.
func LoadChipDB() (*ChipDB, error) {
	db := &ChipDB{}
	for _, doc := range allDeviceDocs {
		var fam ChipFamily
		if err := yaml.Unmarshal(doc, &fam); err != nil {
			return nil, fmt.Errorf("parse device family: %w", err)
		}
		if err := validateFamily(fam); err != nil {
			return nil, fmt.Errorf("device family %s: %w", fam.Name, err)
		}
		db.families = append(db.families, fam)
	}
	return db, nil
}

func validateFamily(fam ChipFamily) error {
	if err := validateConfigRegs(fam.ConfigRegs); err != nil {
		return fmt.Errorf("family default config registers: %w", err)
	}

	seen := make(map[byte]string)
	for _, v := range fam.Variants {
		ids, err := v.altChipIDs()
		if err != nil {
			return fmt.Errorf("chip %q: %w", v.Name, err)
		}
		ids = append(ids, v.ChipID)
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("chip_id 0x%02x used by both %q and %q", id, prev, v.Name)
			}
			seen[id] = v.Name
		}
		if v.FlashSize%4 != 0 {
			return fmt.Errorf("chip %q: flash_size %d is not 4-byte aligned", v.Name, v.FlashSize)
		}
		if uint64(v.EEPROMSize) > 0 && uint64(v.EEPROMStartAddr)+uint64(v.EEPROMSize) > 1<<32 {
			return fmt.Errorf("chip %q: eeprom_start_addr 0x%x + eeprom_size 0x%x exceeds 2^32", v.Name, v.EEPROMStartAddr, v.EEPROMSize)
		}
		if err := validateConfigRegs(v.ConfigRegs); err != nil {
			return fmt.Errorf("chip %q config registers: %w", v.Name, err)
		}
	}
	return nil
}

// validateConfigRegs enforces spec.md §4.C's load-time checks: register
// offsets are 4-aligned, and the bit fields within one register are
// disjoint and fit in 32 bits.
func validateConfigRegs(regs []ConfigRegisterSpec) error {
	for _, r := range regs {
		if r.Offset%4 != 0 {
			return fmt.Errorf("register %q: offset 0x%x is not 4-aligned", r.Name, r.Offset)
		}
		var used uint32
		for _, f := range r.Fields {
			hi, lo := f.BitRange[0], f.BitRange[1]
			if lo < 0 || hi > 31 || lo > hi {
				return fmt.Errorf("register %q field %q: bit range [%d,%d] out of 0..31", r.Name, f.Name, hi, lo)
			}
			m := f.Mask()
			if used&m != 0 {
				return fmt.Errorf("register %q field %q: bit range overlaps another field", r.Name, f.Name)
			}
			used |= m
		}
	}
	return nil
}

// Probe resolves (device_type, chip_id) to a flattened ChipInfo the way
// Identify's response fields are meant to be looked up: find the family
// by device_type, then the variant by chip_id or one of its
// alt_chip_ids, then patch the family-level mcu_type/device_type and any
// support_* field the variant left unset.
func (db *ChipDB) Probe(deviceType, chipID byte) (*ChipInfo, error) {
	var fam *ChipFamily
	for i := range db.families {
		if db.families[i].DeviceType == deviceType {
			fam = &db.families[i]
			break
		}
	}
	if fam == nil {
		return nil, &UnknownFamilyError{DeviceType: deviceType}
	}

	var match *ChipEntry
	for i := range fam.Variants {
		v := &fam.Variants[i]
		if v.ChipID == chipID {
			match = v
			break
		}
		alts, err := v.altChipIDs()
		if err != nil {
			return nil, err
		}
		for _, alt := range alts {
			if alt == chipID {
				match = v
				break
			}
		}
		if match != nil {
			break
		}
	}
	if match == nil {
		return nil, &UnknownVariantError{DeviceType: deviceType, ChipID: chipID}
	}

	regs := match.ConfigRegs
	if regs == nil {
		regs = fam.ConfigRegs
	}

	info := &ChipInfo{
		Name:            match.Name,
		ChipID:          chipID,
		McuType:         fam.McuType,
		DeviceType:      fam.DeviceType,
		FlashSize:       uint32(match.FlashSize),
		EEPROMSize:      uint32(match.EEPROMSize),
		EEPROMStartAddr: uint32(match.EEPROMStartAddr),
		SupportUSB:      resolveBool(match.SupportUSB, fam.SupportUSB),
		SupportSerial:   resolveBool(match.SupportSerial, fam.SupportSerial),
		SupportNet:      resolveBool(match.SupportNet, fam.SupportNet),
		ConfigRegs:      regs,
	}
	return info, nil
}

func resolveBool(variant, family *bool) bool {
	if variant != nil {
		return *variant
	}
	if family != nil {
		return *family
	}
	return false
}

// Families returns every loaded chip family.
func (db *ChipDB) Families() []ChipFamily {
	return db.families
}
