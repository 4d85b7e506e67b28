package isp

import (
	"context"
	"testing"
)

func configOpsSession(t *testing.T, mt *mockTransport) *Session {
	t.Helper()
	db, err := LoadChipDB()
	if err != nil {
		t.Fatalf("LoadChipDB: %v", err)
	}
	info, err := db.Probe(0x16, 0x82) // CH582: has config registers and an EEPROM
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	s := NewSession(mt, db)
	s.info = info
	s.state = StateKeyed
	return s
}

func TestReadConfigDecodesResetValues(t *testing.T) {
	db, _ := LoadChipDB()
	chip, err := db.Probe(0x16, 0x82)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	raw, err := ResetPayload(chip)
	if err != nil {
		t.Fatalf("ResetPayload: %v", err)
	}
	mt := &mockTransport{responses: [][]byte{mustOK(CmdReadConfig, raw)}}
	s := configOpsSession(t, mt)

	dumps, err := ReadConfig(s)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if len(dumps) != len(chip.ConfigRegs) {
		t.Fatalf("got %d dumps, want %d", len(dumps), len(chip.ConfigRegs))
	}
	sent := mt.sentCommands()
	if len(sent) != 1 || sent[0] != CmdReadConfig {
		t.Fatalf("sent = %v, want one ReadConfig", sent)
	}
}

func TestResetConfigSendsResetPayload(t *testing.T) {
	mt := &mockTransport{responses: [][]byte{mustOK(CmdWriteConfig, nil)}}
	s := configOpsSession(t, mt)

	if err := ResetConfig(s); err != nil {
		t.Fatalf("ResetConfig: %v", err)
	}
	want, _ := ResetPayload(s.info)
	sentPayload := mt.sent[0][3:] // skip cmd + size
	sentData := sentPayload[2:]  // skip mask
	for i, b := range want {
		if sentData[i] != b {
			t.Fatalf("sent data = % x, want % x", sentData, want)
		}
	}
}

func TestEnableDebugThenDisableDebugRestoresReset(t *testing.T) {
	mt := &mockTransport{responses: [][]byte{mustOK(CmdWriteConfig, nil), mustOK(CmdWriteConfig, nil)}}
	s := configOpsSession(t, mt)

	if err := EnableDebug(s); err != nil {
		t.Fatalf("EnableDebug: %v", err)
	}
	if err := DisableDebug(s); err != nil {
		t.Fatalf("DisableDebug: %v", err)
	}

	enablePayload := mt.sent[0][5:]
	resetPayload := mt.sent[1][5:]
	if len(enablePayload) == len(resetPayload) {
		equal := true
		for i := range enablePayload {
			if enablePayload[i] != resetPayload[i] {
				equal = false
				break
			}
		}
		if equal {
			t.Fatal("enable-debug and disable-debug sent the same payload")
		}
	}
}

func TestEnableDebugNotSupportedWithoutConfigRegs(t *testing.T) {
	db, _ := LoadChipDB()
	info, err := db.Probe(0x10, 0x69) // CH569: CH56x family declares no config registers
	if err != nil {
		t.Skipf("fixture chip not present: %v", err)
	}
	s := NewSession(&mockTransport{}, db)
	s.info = info
	if _, err := EnableDebugPayload(s.info); err == nil {
		t.Fatal("expected NotSupportedError for a chip with no config registers")
	}
}

func TestEEPROMRoundTripChunking(t *testing.T) {
	mt := &mockTransport{
		responses: [][]byte{
			mustOK(CmdDataProgram, nil),
			mustOK(CmdDataProgram, nil),
			mustOK(CmdDataRead, make([]byte, 0x3A)),
			mustOK(CmdDataRead, make([]byte, 0x10)),
			mustOK(CmdDataErase, nil),
		},
	}
	s := configOpsSession(t, mt)
	s.xorKey = 0x11

	data := make([]byte, MaxChunkSize+10)
	if err := EEPROMWrite(context.Background(), s, 0, data); err != nil {
		t.Fatalf("EEPROMWrite: %v", err)
	}
	if _, err := EEPROMDump(context.Background(), s, 0, 0x4A); err != nil {
		t.Fatalf("EEPROMDump: %v", err)
	}
	if err := EEPROMErase(s, 0, uint32(len(data))); err != nil {
		t.Fatalf("EEPROMErase: %v", err)
	}

	cmds := mt.sentCommands()
	want := []Command{CmdDataProgram, CmdDataProgram, CmdDataRead, CmdDataRead, CmdDataErase}
	if len(cmds) != len(want) {
		t.Fatalf("sent %v, want %v", cmds, want)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Fatalf("command %d = %v, want %v", i, cmds[i], want[i])
		}
	}
}

func TestEEPROMNotSupportedWithoutEEPROM(t *testing.T) {
	db, _ := LoadChipDB()
	info, err := db.Probe(0x70, 0x17) // CH32V307: no EEPROM
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	s := NewSession(&mockTransport{}, db)
	s.info = info

	if _, err := EEPROMDump(context.Background(), s, 0, 16); err == nil {
		t.Fatal("expected NotSupportedError")
	}
	if err := EEPROMErase(s, 0, 16); err == nil {
		t.Fatal("expected NotSupportedError")
	}
	if err := EEPROMWrite(context.Background(), s, 0, []byte{0x01}); err == nil {
		t.Fatal("expected NotSupportedError")
	}
}
