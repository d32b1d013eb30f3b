package devconf

import (
	"encoding/binary"
	"fmt"
)

const (
	deviceIdentityMagic uint32 = 0x00444556 // "DEV"

	// MaxHardwareIDLen bounds the unique hardware identifier
	MaxHardwareIDLen = 32
	// MaxSecretLen bounds the device secret
	MaxSecretLen = 128

	// DeviceIdentitySize is the encoded size: magic plus both buffers
	DeviceIdentitySize = 4 + MaxHardwareIDLen + MaxSecretLen
)

// DeviceIdentity stores the device's hardware identifier and secret for
// authentication across reboots. Unlike the name/key buffers elsewhere,
// setters write only the given prefix and leave the remainder untouched;
// identifiers are fixed-width values padded at provisioning time.
type DeviceIdentity struct {
	magic      uint32
	hardwareID [MaxHardwareIDLen]byte
	secret     [MaxSecretLen]byte
}

// NewDeviceIdentity creates an identity with the given hardware ID and
// secret. Returns ErrIdentityLength if either exceeds its capacity.
func NewDeviceIdentity(hardwareID, secret []byte) (DeviceIdentity, error) {
	d := DeviceIdentity{magic: deviceIdentityMagic}
	if err := d.SetHardwareID(hardwareID); err != nil {
		return DeviceIdentity{}, err
	}
	if err := d.SetSecret(secret); err != nil {
		return DeviceIdentity{}, err
	}
	return d, nil
}

// IsValid reports whether the identity carries the expected validity tag
func (d *DeviceIdentity) IsValid() bool {
	return d.magic == deviceIdentityMagic
}

// SetHardwareID writes the hardware identifier prefix.
// Returns ErrIdentityLength if the input exceeds 32 bytes.
func (d *DeviceIdentity) SetHardwareID(hardwareID []byte) error {
	if len(hardwareID) > MaxHardwareIDLen {
		return ErrIdentityLength
	}
	copy(d.hardwareID[:], hardwareID)
	return nil
}

// SetSecret writes the device secret prefix.
// Returns ErrIdentityLength if the input exceeds 128 bytes.
func (d *DeviceIdentity) SetSecret(secret []byte) error {
	if len(secret) > MaxSecretLen {
		return ErrIdentityLength
	}
	copy(d.secret[:], secret)
	return nil
}

// HardwareID returns the full 32-byte identifier buffer
func (d *DeviceIdentity) HardwareID() []byte {
	return d.hardwareID[:]
}

// Secret returns the full 128-byte secret buffer
func (d *DeviceIdentity) Secret() []byte {
	return d.secret[:]
}

// MarshalBinary encodes the identity into its fixed 164-byte layout
func (d *DeviceIdentity) MarshalBinary() ([]byte, error) {
	b := make([]byte, DeviceIdentitySize)
	binary.LittleEndian.PutUint32(b[0:4], d.magic)
	copy(b[4:36], d.hardwareID[:])
	copy(b[36:164], d.secret[:])
	return b, nil
}

// UnmarshalBinary decodes the fixed 164-byte layout
func (d *DeviceIdentity) UnmarshalBinary(data []byte) error {
	if len(data) != DeviceIdentitySize {
		return fmt.Errorf("invalid device identity length: expected %d, got %d", DeviceIdentitySize, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != deviceIdentityMagic {
		return fmt.Errorf("device identity magic 0x%08X: %w", magic, ErrInvalidMagic)
	}

	d.magic = magic
	copy(d.hardwareID[:], data[4:36])
	copy(d.secret[:], data[36:164])
	return nil
}
