package btcore

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Structure magic numbers, used to sanity-check raw byte blobs.
const (
	deviceRecordMagic    uint32 = 0x42544C45 // "BTLE"
	deviceListMagic      uint32 = 0x42544C53 // "BTLS"
	connectionStateMagic uint32 = 0x42544353 // "BTCS"
)

// BDAddr represents a 6-byte Bluetooth device address
type BDAddr [6]byte

// String returns the conventional colon-separated hex representation
func (a BDAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether all address bytes are zero
func (a BDAddr) IsZero() bool {
	return a == BDAddr{}
}

// ParseBDAddr parses an address from "aa:bb:cc:dd:ee:ff" or bare hex form
func ParseBDAddr(s string) (BDAddr, error) {
	var a BDAddr

	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != 6 {
		return a, fmt.Errorf("invalid address length: %d bytes", len(b))
	}

	copy(a[:], b)
	return a, nil
}

// ClassOfDevice is the 3-byte Bluetooth Class of Device field
type ClassOfDevice [3]byte

// MajorClass extracts the major device class (bits 8-12 of the 24-bit field,
// i.e. bits 2-6 of the middle byte)
func (c ClassOfDevice) MajorClass() uint8 {
	return (c[1] >> 2) & 0x1F
}

// DeviceType maps the major class to a coarse device type
func (c ClassOfDevice) DeviceType() DeviceType {
	switch c.MajorClass() {
	case 1:
		return DeviceTypeComputer
	case 2:
		return DeviceTypePhone
	case 3:
		return DeviceTypeNetwork
	case 4:
		return DeviceTypeAudio
	case 5:
		return DeviceTypePeripheral
	case 6:
		return DeviceTypeImaging
	case 7:
		return DeviceTypeWearable
	case 8:
		return DeviceTypeToy
	default:
		return DeviceTypeUnknown
	}
}

// DeviceType is a coarse device classification derived from the Class of Device
type DeviceType uint8

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeComputer
	DeviceTypePhone
	DeviceTypeNetwork
	DeviceTypeAudio
	DeviceTypePeripheral
	DeviceTypeImaging
	DeviceTypeWearable
	DeviceTypeToy
)

// String returns a human-readable type name
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeComputer:
		return "computer"
	case DeviceTypePhone:
		return "phone"
	case DeviceTypeNetwork:
		return "network"
	case DeviceTypeAudio:
		return "audio"
	case DeviceTypePeripheral:
		return "peripheral"
	case DeviceTypeImaging:
		return "imaging"
	case DeviceTypeWearable:
		return "wearable"
	case DeviceTypeToy:
		return "toy"
	default:
		return "unknown"
	}
}

// DeviceFlag is a single bit in the device record flag byte
type DeviceFlag uint8

const (
	// FlagPaired marks a device that completed pairing
	FlagPaired DeviceFlag = 0x01
	// FlagTrusted marks a device trusted by the user
	FlagTrusted DeviceFlag = 0x02
	// FlagAudio marks a device that supports audio
	FlagAudio DeviceFlag = 0x04
	// FlagInput marks a device that supports input (keyboard/mouse)
	FlagInput DeviceFlag = 0x08
	// FlagFileTransfer marks a device that supports file transfer
	FlagFileTransfer DeviceFlag = 0x10
	// FlagConnected marks a currently connected device
	FlagConnected DeviceFlag = 0x20
	// FlagAutoReconnect marks a device eligible for automatic reconnection
	FlagAutoReconnect DeviceFlag = 0x40
	// FlagRecentlyDiscovered marks a device seen during a recent scan
	FlagRecentlyDiscovered DeviceFlag = 0x80
)

// Link types as assigned by the controller
const (
	LinkTypeACL uint8 = 0x01
	LinkTypeSCO uint8 = 0x02
)

// MaxConnHandle is the highest valid connection handle; 0x0F00-0xFFFF are reserved
const MaxConnHandle uint16 = 0x0EFF

// ConnHandle wraps a controller-assigned connection handle value
type ConnHandle uint16

// NewConnHandle validates and wraps a raw connection handle value
func NewConnHandle(val uint16) (ConnHandle, error) {
	if val > MaxConnHandle {
		return 0, fmt.Errorf("handle 0x%04X: %w", val, ErrInvalidConnHandle)
	}
	return ConnHandle(val), nil
}

// Raw returns the underlying 16-bit representation
func (h ConnHandle) Raw() uint16 {
	return uint16(h)
}
