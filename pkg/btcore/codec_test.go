package btcore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestDeviceRecordCodecRoundTrip(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("Codec Device"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}
	if err := rec.SetPairingKey([]byte("key material")); err != nil {
		t.Fatalf("SetPairingKey failed: %v", err)
	}
	rec.SetClassOfDevice(ClassOfDevice{0x04, 0x10, 0x24})
	rec.SetFlags(FlagPaired | FlagAudio)
	rec.SetLastSeen(1700000000)
	rec.SetLastConnected(1700000100)
	rec.SetVendorInfo(0x004C, 0x2002, 0x0110)

	params := DefaultConnectionParams()
	params.ConnectionHandle = 0x0123
	params.ConnectionInterval = 40
	params.SupervisionTimeout = 200
	params.RSSI = -55
	rec.UpdateConnectionParams(params)

	sec := DefaultSecurityInfo()
	copy(sec.LinkKey[:], bytes.Repeat([]byte{0xAB}, 16))
	sec.Authenticated = 1
	sec.Encrypted = 1
	rec.UpdateSecurityInfo(sec)

	raw, err := rec.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != DeviceRecordSize {
		t.Fatalf("expected %d bytes, got %d", DeviceRecordSize, len(raw))
	}

	var decoded DeviceRecord
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	if decoded != rec {
		t.Error("decoded record differs from original")
	}

	// Encoding is deterministic.
	raw2, _ := decoded.MarshalBinary()
	if !bytes.Equal(raw, raw2) {
		t.Error("re-encoded bytes differ")
	}
}

func TestDeviceRecordFixedOffsets(t *testing.T) {
	rec, err := NewDeviceRecord(testAddr, []byte("AB"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}
	rec.SetClassOfDevice(ClassOfDevice{0x04, 0x10, 0x24})
	rec.SetFlags(FlagTrusted)
	rec.SetConnectionCount(7)

	raw, _ := rec.MarshalBinary()

	if binary.LittleEndian.Uint32(raw[0:4]) != 0x42544C45 {
		t.Error("magic not at offset 0")
	}
	if !bytes.Equal(raw[4:10], testAddr[:]) {
		t.Error("address not at offset 4")
	}
	if raw[10] != 'A' || raw[11] != 'B' {
		t.Error("name not at offset 10")
	}
	if raw[42] != 2 {
		t.Error("name length not at offset 42")
	}
	if raw[107] != 0 {
		t.Error("pairing key length not at offset 107")
	}
	if raw[108] != 0x04 || raw[109] != 0x10 || raw[110] != 0x24 {
		t.Error("class of device not at offset 108")
	}
	if raw[111] != byte(DeviceTypeAudio) {
		t.Error("device type not at offset 111")
	}
	if raw[112] != byte(FlagTrusted) {
		t.Error("flags not at offset 112")
	}
	if binary.LittleEndian.Uint32(raw[116:120]) != 7 {
		t.Error("connection count not at offset 116")
	}

	// Explicit padding bytes are zero.
	for _, off := range []int{113, 114, 115, 190, 191} {
		if raw[off] != 0 {
			t.Errorf("padding byte at offset %d is 0x%02x", off, raw[off])
		}
	}
}

func TestDeviceRecordCodecRejectsBadInput(t *testing.T) {
	var rec DeviceRecord

	if err := rec.UnmarshalBinary(make([]byte, DeviceRecordSize-1)); err == nil {
		t.Error("short input must be rejected")
	}

	// Wrong magic.
	raw := make([]byte, DeviceRecordSize)
	binary.LittleEndian.PutUint32(raw[0:4], 0xDEADBEEF)
	err := rec.UnmarshalBinary(raw)
	if err == nil {
		t.Fatal("wrong magic must be rejected")
	}
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}

	// Out-of-range length byte.
	good, _ := NewDeviceRecord(testAddr, []byte("x"))
	raw, _ = good.MarshalBinary()
	raw[42] = MaxDeviceNameLen + 1
	if err := rec.UnmarshalBinary(raw); err == nil {
		t.Error("oversized name length must be rejected")
	}
}

func TestConnectionParamsCodec(t *testing.T) {
	p := DefaultConnectionParams()
	p.ConnectionHandle = 0x0EFF
	p.ConnectionInterval = 3200
	p.ConnectionLatency = 499
	p.SupervisionTimeout = 3200
	p.MasterClockAccuracy = 7
	p.LinkType = LinkTypeSCO
	p.EncryptionEnabled = 1
	p.RSSI = -127
	p.ConnectedAt = 1700000000
	p.LastActivity = 1700000050

	raw, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != ConnectionParamsSize {
		t.Fatalf("expected %d bytes, got %d", ConnectionParamsSize, len(raw))
	}

	var decoded ConnectionParams
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded != p {
		t.Error("decoded params differ from original")
	}

	if err := decoded.UnmarshalBinary(raw[:10]); err == nil {
		t.Error("short input must be rejected")
	}
}

func TestSecurityInfoCodec(t *testing.T) {
	s := DefaultSecurityInfo()
	copy(s.LinkKey[:], []byte("0123456789abcdef"))
	s.LinkKeyType = 4
	s.IOCapabilities = 1
	s.SecurityLevel = 3
	s.PINLength = 6
	s.LinkKeyValid = 1
	s.Authenticated = 1
	s.Encrypted = 1
	s.SSPSupported = 1
	s.MITMRequired = 1

	raw, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != SecurityInfoSize {
		t.Fatalf("expected %d bytes, got %d", SecurityInfoSize, len(raw))
	}

	var decoded SecurityInfo
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded != s {
		t.Error("decoded security info differs from original")
	}
}

func TestDeviceListCodec(t *testing.T) {
	list := NewDeviceList()
	for i := 0; i < 4; i++ {
		rec := listDevice(t, i)
		if err := list.Add(rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	raw, err := list.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != DeviceListSize {
		t.Fatalf("expected %d bytes, got %d", DeviceListSize, len(raw))
	}

	var decoded DeviceList
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded.Len() != 4 {
		t.Fatalf("expected 4 devices after decode, got %d", decoded.Len())
	}
	for i := 0; i < 4; i++ {
		rec, err := decoded.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", i, err)
		}
		want, _ := list.Get(i)
		if *rec != *want {
			t.Errorf("device %d differs after round trip", i)
		}
	}
}

func TestDeviceListFixedSizeRegardlessOfCount(t *testing.T) {
	empty := NewDeviceList()
	rawEmpty, _ := empty.MarshalBinary()

	full := NewDeviceList()
	for i := 0; i < MaxDevices; i++ {
		if err := full.Add(listDevice(t, i)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	rawFull, _ := full.MarshalBinary()

	if len(rawEmpty) != len(rawFull) {
		t.Errorf("encoded size depends on population: %d vs %d", len(rawEmpty), len(rawFull))
	}
	if rawEmpty[4+MaxDevices*DeviceRecordSize] != 0 {
		t.Error("empty list count byte not zero")
	}
	if rawFull[4+MaxDevices*DeviceRecordSize] != MaxDevices {
		t.Error("full list count byte wrong")
	}
}

func TestConnectionStateCodec(t *testing.T) {
	state := NewConnectionState()
	rec, err := NewDeviceRecord(testAddr, []byte("Peer"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}
	state.SetRemoteDevice(rec)
	state.SetConnected(true)
	state.SetAuthenticated(true)
	state.SetLinkQuality(190)
	state.SetPhase(PhaseReady)

	raw, err := state.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != ConnectionStateSize {
		t.Fatalf("expected %d bytes, got %d", ConnectionStateSize, len(raw))
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != 0x42544353 {
		t.Error("magic not at offset 0")
	}
	if raw[196] != 0x03 {
		t.Errorf("flags byte not at offset 196: 0x%02x", raw[196])
	}
	if raw[197] != 190 {
		t.Error("link quality not at offset 197")
	}
	if raw[198] != byte(PhaseReady) {
		t.Error("phase not at offset 198")
	}
	if raw[199] != 0 {
		t.Error("trailing padding byte not zero")
	}

	var decoded ConnectionState
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded != state {
		t.Error("decoded state differs from original")
	}
}
