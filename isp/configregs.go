package isp

import (
	"encoding/binary"
	"fmt"
)

// FieldDump is one decoded bit field: its masked value plus the
// human-readable label resolved from the spec's explaination table.
type FieldDump struct {
	Name   string
	Value  uint32
	Binary string
	Hex    string
	Label  string
}

// RegisterDump is one decoded 4-byte configuration register.
type RegisterDump struct {
	Name   string
	Offset uint32
	Raw    uint32
	Fields []FieldDump
}

// RegisterMask returns the bitmask of registers present in info's spec,
// in declared order, one bit per register position — used to build the
// A7/A8 selection mask.
func RegisterMask(info *ChipInfo) uint16 {
	var mask uint16
	for i := range info.ConfigRegs {
		if i >= 16 {
			break
		}
		mask |= 1 << uint(i)
	}
	return mask
}

// DecodeConfigRegisters parses a raw register blob (length = 4 ×
// len(info.ConfigRegs)) into a human-readable dump, one entry per
// declared register in order.
func DecodeConfigRegisters(info *ChipInfo, raw []byte) ([]RegisterDump, error) {
	want := 4 * len(info.ConfigRegs)
	if len(raw) < want {
		return nil, fmt.Errorf("config register blob too short: got %d bytes, want %d", len(raw), want)
	}

	dumps := make([]RegisterDump, 0, len(info.ConfigRegs))
	for i, spec := range info.ConfigRegs {
		value := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		dump := RegisterDump{
			Name:   spec.Name,
			Offset: spec.Offset,
			Raw:    value,
		}
		for _, f := range spec.Fields {
			v := f.Extract(value)
			dump.Fields = append(dump.Fields, FieldDump{
				Name:   f.Name,
				Value:  v,
				Binary: fmt.Sprintf("%0*b", f.BitRange[0]-f.BitRange[1]+1, v),
				Hex:    fmt.Sprintf("0x%X", v),
				Label:  explainField(f, v),
			})
		}
		dumps = append(dumps, dump)
	}
	return dumps, nil
}

// explainField resolves a field's label from its explaination table,
// matching either the decimal key, the 0x-prefixed hex key, or falling
// back to the "_" catch-all. An unmatched value with no catch-all
// renders as an empty label.
func explainField(f FieldSpec, value uint32) string {
	if f.Explaination == nil {
		return ""
	}
	candidates := []string{
		fmt.Sprintf("%d", value),
		fmt.Sprintf("0x%X", value),
		fmt.Sprintf("0x%x", value),
		fmt.Sprintf("0x%02X", value),
		fmt.Sprintf("0x%02x", value),
	}
	for _, key := range candidates {
		if label, ok := f.Explaination[key]; ok {
			return label
		}
	}
	if label, ok := f.Explaination["_"]; ok {
		return label
	}
	return ""
}

// ResetPayload concatenates each declared register's reset value,
// little-endian, in declared order — the payload WriteConfig sends to
// restore factory defaults.
func ResetPayload(info *ChipInfo) ([]byte, error) {
	if len(info.ConfigRegs) == 0 {
		return nil, &NotSupportedError{Op: "config reset", Chip: info.Name}
	}
	out := make([]byte, 4*len(info.ConfigRegs))
	for i, spec := range info.ConfigRegs {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], spec.Reset)
	}
	return out, nil
}

// EnableDebugPayload is like ResetPayload but substitutes a register's
// enable_debug value where the spec declares one, falling back to reset
// otherwise. NotSupported if no register in the chip's spec declares an
// enable_debug value at all.
func EnableDebugPayload(info *ChipInfo) ([]byte, error) {
	if len(info.ConfigRegs) == 0 {
		return nil, &NotSupportedError{Op: "enable-debug", Chip: info.Name}
	}
	any := false
	out := make([]byte, 4*len(info.ConfigRegs))
	for i, spec := range info.ConfigRegs {
		v := spec.Reset
		if spec.EnableDebug != nil {
			v = *spec.EnableDebug
			any = true
		}
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], v)
	}
	if !any {
		return nil, &NotSupportedError{Op: "enable-debug", Chip: info.Name}
	}
	return out, nil
}

// DisableDebugPayload restores every register to its plain reset value;
// it is always defined once a chip has any config registers at all,
// since reset doubles as "debug disabled".
func DisableDebugPayload(info *ChipInfo) ([]byte, error) {
	return ResetPayload(info)
}
