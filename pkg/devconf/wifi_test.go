package devconf

import (
	"bytes"
	"testing"
)

func TestNewWifiConfig(t *testing.T) {
	cfg, err := NewWifiConfig([]byte("MyNetwork"), []byte("password123"))
	if err != nil {
		t.Fatalf("NewWifiConfig failed: %v", err)
	}

	if !cfg.IsValid() {
		t.Error("new config should be valid")
	}
	if string(cfg.SSID()) != "MyNetwork" {
		t.Errorf("unexpected SSID: %q", cfg.SSID())
	}
	if string(cfg.Password()) != "password123" {
		t.Errorf("unexpected password: %q", cfg.Password())
	}

	var zero WifiConfig
	if zero.IsValid() {
		t.Error("zero-value config must not be valid")
	}
}

func TestWifiCredentialBoundaries(t *testing.T) {
	atCapSSID := bytes.Repeat([]byte{'s'}, MaxSSIDLen)
	atCapPass := bytes.Repeat([]byte{'p'}, MaxPasswordLen)

	cfg, err := NewWifiConfig(atCapSSID, atCapPass)
	if err != nil {
		t.Fatalf("at-capacity credentials rejected: %v", err)
	}
	if !bytes.Equal(cfg.SSID(), atCapSSID) || !bytes.Equal(cfg.Password(), atCapPass) {
		t.Error("at-capacity credentials not stored")
	}

	if _, err := NewWifiConfig(bytes.Repeat([]byte{'s'}, MaxSSIDLen+1), []byte("pw")); err != ErrCredentialLength {
		t.Errorf("expected ErrCredentialLength for long SSID, got %v", err)
	}
	if _, err := NewWifiConfig([]byte("net"), bytes.Repeat([]byte{'p'}, MaxPasswordLen+1)); err != ErrCredentialLength {
		t.Errorf("expected ErrCredentialLength for long password, got %v", err)
	}

	// A failed update leaves the previous credentials in place.
	if err := cfg.SetCredentials([]byte("other"), bytes.Repeat([]byte{'x'}, MaxPasswordLen+1)); err != ErrCredentialLength {
		t.Fatalf("expected ErrCredentialLength, got %v", err)
	}
	if !bytes.Equal(cfg.SSID(), atCapSSID) {
		t.Error("failed SetCredentials modified the SSID")
	}
}

func TestWifiSetCredentialsClearsTail(t *testing.T) {
	cfg, err := NewWifiConfig(bytes.Repeat([]byte{'z'}, MaxSSIDLen), bytes.Repeat([]byte{'z'}, MaxPasswordLen))
	if err != nil {
		t.Fatalf("NewWifiConfig failed: %v", err)
	}
	if err := cfg.SetCredentials([]byte("ab"), []byte("cd")); err != nil {
		t.Fatalf("SetCredentials failed: %v", err)
	}

	raw, _ := cfg.MarshalBinary()
	for i := 4 + 2; i < 4+MaxSSIDLen; i++ {
		if raw[i] != 0 {
			t.Fatalf("SSID tail not cleared at offset %d", i)
		}
	}
	for i := 36 + 2; i < 36+MaxPasswordLen; i++ {
		if raw[i] != 0 {
			t.Fatalf("password tail not cleared at offset %d", i)
		}
	}
}

func TestWifiConfigCodec(t *testing.T) {
	cfg, err := NewWifiConfig([]byte("HomeAP"), []byte("hunter2hunter2"))
	if err != nil {
		t.Fatalf("NewWifiConfig failed: %v", err)
	}

	raw, err := cfg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != WifiConfigSize {
		t.Fatalf("expected %d bytes, got %d", WifiConfigSize, len(raw))
	}

	var decoded WifiConfig
	if err := decoded.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if decoded != cfg {
		t.Error("decoded config differs from original")
	}

	raw[0] = 0xFF
	if err := decoded.UnmarshalBinary(raw); err == nil {
		t.Error("wrong magic must be rejected")
	}
	if err := decoded.UnmarshalBinary(raw[:10]); err == nil {
		t.Error("short input must be rejected")
	}
}
