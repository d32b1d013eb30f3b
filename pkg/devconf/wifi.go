// Package devconf holds the non-Bluetooth persistent configuration records
// of the device: Wi-Fi credentials and the device identity. Like the records
// in btcore, these are fixed-size values with explicit byte layouts so a
// storage layer can persist their codec bytes verbatim.
package devconf

import (
	"encoding/binary"
	"fmt"
)

const (
	wifiConfigMagic uint32 = 0x57494649 // "WIFI"

	// MaxSSIDLen is the 802.11 SSID length limit
	MaxSSIDLen = 32
	// MaxPasswordLen bounds the stored passphrase
	MaxPasswordLen = 64

	// WifiConfigSize is the encoded size: magic, buffers, lengths, padding
	WifiConfigSize = 4 + MaxSSIDLen + MaxPasswordLen + 2 + 2
)

// WifiConfig stores one network's credentials in bounded buffers with
// explicit length tracking.
type WifiConfig struct {
	magic       uint32
	ssid        [MaxSSIDLen]byte
	password    [MaxPasswordLen]byte
	ssidLen     uint8
	passwordLen uint8
}

// NewWifiConfig creates a config with the given credentials.
// Returns ErrCredentialLength if either exceeds its capacity.
func NewWifiConfig(ssid, password []byte) (WifiConfig, error) {
	c := WifiConfig{magic: wifiConfigMagic}
	if err := c.SetCredentials(ssid, password); err != nil {
		return WifiConfig{}, err
	}
	return c, nil
}

// IsValid reports whether the config carries the expected validity tag.
// This is a structural check only, not a credential check.
func (c *WifiConfig) IsValid() bool {
	return c.magic == wifiConfigMagic
}

// SetCredentials replaces both credentials. Buffers are cleared before the
// new values are copied; on error neither field changes.
func (c *WifiConfig) SetCredentials(ssid, password []byte) error {
	if len(ssid) > MaxSSIDLen || len(password) > MaxPasswordLen {
		return ErrCredentialLength
	}

	c.ssid = [MaxSSIDLen]byte{}
	c.password = [MaxPasswordLen]byte{}
	copy(c.ssid[:], ssid)
	copy(c.password[:], password)
	c.ssidLen = uint8(len(ssid))
	c.passwordLen = uint8(len(password))
	return nil
}

// SSID returns the stored network name, sliced to its logical length
func (c *WifiConfig) SSID() []byte {
	return c.ssid[:c.ssidLen]
}

// Password returns the stored passphrase, sliced to its logical length
func (c *WifiConfig) Password() []byte {
	return c.password[:c.passwordLen]
}

// MarshalBinary encodes the config into its fixed 104-byte layout
func (c *WifiConfig) MarshalBinary() ([]byte, error) {
	b := make([]byte, WifiConfigSize)
	binary.LittleEndian.PutUint32(b[0:4], c.magic)
	copy(b[4:36], c.ssid[:])
	copy(b[36:100], c.password[:])
	b[100] = c.ssidLen
	b[101] = c.passwordLen
	// b[102:104] padding, left zero
	return b, nil
}

// UnmarshalBinary decodes the fixed 104-byte layout
func (c *WifiConfig) UnmarshalBinary(data []byte) error {
	if len(data) != WifiConfigSize {
		return fmt.Errorf("invalid wifi config length: expected %d, got %d", WifiConfigSize, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != wifiConfigMagic {
		return fmt.Errorf("wifi config magic 0x%08X: %w", magic, ErrInvalidMagic)
	}
	if data[100] > MaxSSIDLen || data[101] > MaxPasswordLen {
		return fmt.Errorf("invalid credential lengths: %d/%d", data[100], data[101])
	}

	c.magic = magic
	copy(c.ssid[:], data[4:36])
	copy(c.password[:], data[36:100])
	c.ssidLen = data[100]
	c.passwordLen = data[101]
	return nil
}
