package btcore

import (
	"bytes"
	"testing"
)

var testAddr = BDAddr{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}

func TestNewDeviceRecord(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("My Speaker"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	if !rec.IsValid() {
		t.Error("new record should be valid")
	}
	if rec.Addr() != testAddr {
		t.Errorf("expected address %s, got %s", testAddr, rec.Addr())
	}
	if string(rec.Name()) != "My Speaker" {
		t.Errorf("expected name 'My Speaker', got '%s'", rec.Name())
	}
	if len(rec.PairingKey()) != 0 {
		t.Errorf("expected empty pairing key, got %d bytes", len(rec.PairingKey()))
	}
	if rec.ConnectionCount() != 0 {
		t.Errorf("expected zero connection count, got %d", rec.ConnectionCount())
	}
	if rec.LastSeen() != 0 || rec.LastConnected() != 0 {
		t.Error("expected zero timestamps on a new record")
	}
}

func TestNewDeviceRecordNameTooLong(t *testing.T) {
	longName := bytes.Repeat([]byte{'A'}, MaxDeviceNameLen+1)

	_, err := NewDeviceRecord(testAddr, longName)
	if err != ErrInvalidDeviceInfo {
		t.Fatalf("expected ErrInvalidDeviceInfo, got %v", err)
	}
}

func TestDeviceRecordValidity(t *testing.T) {
	var zero DeviceRecord
	if zero.IsValid() {
		t.Error("zero-value record must not be valid")
	}

	rec, err := NewDeviceRecord(BDAddr{}, []byte("no addr"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}
	if rec.IsValid() {
		t.Error("record with all-zero address must not be valid")
	}
}

func TestSetNameBoundaries(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("initial"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	// Exactly at capacity succeeds.
	atCap := bytes.Repeat([]byte{'n'}, MaxDeviceNameLen)
	if err := rec.SetName(atCap); err != nil {
		t.Fatalf("SetName at capacity failed: %v", err)
	}
	if !bytes.Equal(rec.Name(), atCap) {
		t.Error("name at capacity not stored correctly")
	}

	// One byte over fails and leaves the prior value untouched.
	over := bytes.Repeat([]byte{'x'}, MaxDeviceNameLen+1)
	if err := rec.SetName(over); err != ErrInvalidDeviceInfo {
		t.Fatalf("expected ErrInvalidDeviceInfo, got %v", err)
	}
	if !bytes.Equal(rec.Name(), atCap) {
		t.Error("failed SetName must not modify the stored name")
	}
}

func TestSetNameClearsTail(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, bytes.Repeat([]byte{'z'}, MaxDeviceNameLen))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	if err := rec.SetName([]byte("ab")); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}

	// The tail beyond the logical length must be zero, not leftover 'z' bytes.
	raw, _ := rec.MarshalBinary()
	for i := 10 + 2; i < 10+MaxDeviceNameLen; i++ {
		if raw[i] != 0 {
			t.Fatalf("name buffer tail not cleared at offset %d: 0x%02x", i, raw[i])
		}
	}
}

func TestSetPairingKey(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("Speaker"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	if err := rec.SetPairingKey([]byte("audio_key_123")); err != nil {
		t.Fatalf("SetPairingKey failed: %v", err)
	}
	if string(rec.PairingKey()) != "audio_key_123" {
		t.Errorf("unexpected pairing key: %q", rec.PairingKey())
	}

	atCap := bytes.Repeat([]byte{'k'}, MaxPairingKeyLen)
	if err := rec.SetPairingKey(atCap); err != nil {
		t.Fatalf("SetPairingKey at capacity failed: %v", err)
	}

	over := bytes.Repeat([]byte{'k'}, MaxPairingKeyLen+1)
	if err := rec.SetPairingKey(over); err != ErrInvalidDeviceInfo {
		t.Fatalf("expected ErrInvalidDeviceInfo, got %v", err)
	}
	if !bytes.Equal(rec.PairingKey(), atCap) {
		t.Error("failed SetPairingKey must not modify the stored key")
	}
}

func TestSetDeviceInfo(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("old"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	if err := rec.SetDeviceInfo([]byte("Headset"), []byte("pin1234")); err != nil {
		t.Fatalf("SetDeviceInfo failed: %v", err)
	}
	if string(rec.Name()) != "Headset" || string(rec.PairingKey()) != "pin1234" {
		t.Error("SetDeviceInfo did not store both fields")
	}

	if err := rec.SetDeviceInfo([]byte("ok"), bytes.Repeat([]byte{'p'}, MaxPairingKeyLen+1)); err != ErrInvalidDeviceInfo {
		t.Fatalf("expected ErrInvalidDeviceInfo, got %v", err)
	}
}

func TestDeviceFlags(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("flags"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	rec.AddFlag(FlagPaired)
	rec.AddFlag(FlagAudio)
	if !rec.HasFlag(FlagPaired) || !rec.HasFlag(FlagAudio) {
		t.Error("added flags not reported")
	}
	if rec.HasFlag(FlagTrusted) {
		t.Error("unset flag reported as set")
	}

	rec.RemoveFlag(FlagPaired)
	if rec.HasFlag(FlagPaired) {
		t.Error("removed flag still reported")
	}
	if !rec.HasFlag(FlagAudio) {
		t.Error("RemoveFlag must not clear other flags")
	}

	// All eight flags are independent bits.
	all := []DeviceFlag{
		FlagPaired, FlagTrusted, FlagAudio, FlagInput,
		FlagFileTransfer, FlagConnected, FlagAutoReconnect, FlagRecentlyDiscovered,
	}
	rec.SetFlags(0)
	for _, f := range all {
		rec.AddFlag(f)
	}
	if rec.Flags() != 0xFF {
		t.Errorf("expected flag byte 0xFF, got 0x%02X", uint8(rec.Flags()))
	}
	for _, f := range all {
		rec.RemoveFlag(f)
	}
	if rec.Flags() != 0 {
		t.Errorf("expected flag byte 0x00, got 0x%02X", uint8(rec.Flags()))
	}

	rec.SetFlags(FlagTrusted | FlagAutoReconnect)
	if !rec.IsTrusted() || !rec.SupportsAutoReconnect() {
		t.Error("predicates disagree with SetFlags")
	}
	if rec.IsPaired() || rec.IsConnected() {
		t.Error("predicates report flags that were not set")
	}
}

func TestSetClassOfDevice(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("cod"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	// Major class 4 (audio): (0x10 >> 2) & 0x1F == 4
	rec.SetClassOfDevice(ClassOfDevice{0x04, 0x10, 0x24})
	if rec.DeviceType() != DeviceTypeAudio {
		t.Errorf("expected audio, got %s", rec.DeviceType())
	}
	if rec.ClassOfDevice() != (ClassOfDevice{0x04, 0x10, 0x24}) {
		t.Error("class of device not stored")
	}

	// Major class out of the mapped 1-8 range yields Unknown.
	rec.SetClassOfDevice(ClassOfDevice{0x00, 63 << 2, 0x00})
	if rec.DeviceType() != DeviceTypeUnknown {
		t.Errorf("expected unknown, got %s", rec.DeviceType())
	}
}

func TestAllDeviceTypes(t *testing.T) {
	tests := []struct {
		major uint8
		want  DeviceType
	}{
		{0, DeviceTypeUnknown},
		{1, DeviceTypeComputer},
		{2, DeviceTypePhone},
		{3, DeviceTypeNetwork},
		{4, DeviceTypeAudio},
		{5, DeviceTypePeripheral},
		{6, DeviceTypeImaging},
		{7, DeviceTypeWearable},
		{8, DeviceTypeToy},
		{9, DeviceTypeUnknown},
		{31, DeviceTypeUnknown},
	}

	for _, tt := range tests {
		cod := ClassOfDevice{0x00, tt.major << 2, 0x00}
		if got := cod.DeviceType(); got != tt.want {
			t.Errorf("major class %d: expected %s, got %s", tt.major, tt.want, got)
		}
	}
}

func TestUpdateConnectionParams(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("params"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	params := DefaultConnectionParams()
	params.ConnectionHandle = 0x0042
	params.ConnectionInterval = 24
	params.RSSI = -40

	rec.UpdateConnectionParams(params)
	if rec.ConnectionCount() != 1 {
		t.Errorf("expected connection count 1, got %d", rec.ConnectionCount())
	}
	if !rec.HasFlag(FlagConnected) {
		t.Error("UpdateConnectionParams must set the Connected flag")
	}
	if rec.ConnectionParams().ConnectionHandle != 0x0042 {
		t.Error("params not replaced")
	}

	// Counter increments by exactly one per update regardless of flag state.
	rec.UpdateConnectionParams(params)
	if rec.ConnectionCount() != 2 {
		t.Errorf("expected connection count 2, got %d", rec.ConnectionCount())
	}
}

func TestConnectionCountSaturates(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("sat"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	rec.SetConnectionCount(^uint32(0))
	rec.IncrementConnectionCount()
	if rec.ConnectionCount() != ^uint32(0) {
		t.Errorf("counter wrapped: %d", rec.ConnectionCount())
	}
}

func TestUpdateSecurityInfo(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("sec"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	info := DefaultSecurityInfo()
	info.Authenticated = 0
	rec.UpdateSecurityInfo(info)
	if rec.IsPaired() {
		t.Error("unauthenticated info must not set the Paired flag")
	}

	info.Authenticated = 1
	rec.UpdateSecurityInfo(info)
	if !rec.IsPaired() {
		t.Error("authenticated info must set the Paired flag")
	}

	// A later unauthenticated merge does not clear the flag.
	info.Authenticated = 0
	rec.UpdateSecurityInfo(info)
	if !rec.IsPaired() {
		t.Error("Paired flag must survive an unauthenticated update")
	}
}

func TestDeviceTimestamps(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("ts"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	rec.SetLastSeen(1700000000)
	rec.SetLastConnected(1700000100)
	if rec.LastSeen() != 1700000000 {
		t.Errorf("unexpected last seen: %d", rec.LastSeen())
	}
	if rec.LastConnected() != 1700000100 {
		t.Errorf("unexpected last connected: %d", rec.LastConnected())
	}
}

func TestVendorInfo(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("vnd"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}

	rec.SetVendorInfo(0x004C, 0x2002, 0x0110)
	if rec.VendorID() != 0x004C || rec.ProductID() != 0x2002 || rec.Version() != 0x0110 {
		t.Error("vendor identifiers not stored")
	}
}

func TestParseBDAddr(t *testing.T) {
	a, err := ParseBDAddr("12:34:56:78:9a:bc")
	if err != nil {
		t.Fatalf("ParseBDAddr failed: %v", err)
	}
	if a != testAddr {
		t.Errorf("expected %s, got %s", testAddr, a)
	}

	if a.String() != "12:34:56:78:9a:bc" {
		t.Errorf("unexpected String: %s", a.String())
	}

	if _, err := ParseBDAddr("12:34:56"); err == nil {
		t.Error("short address must be rejected")
	}
	if _, err := ParseBDAddr("zz:34:56:78:9a:bc"); err == nil {
		t.Error("non-hex address must be rejected")
	}
}
