package btcore

import (
	"encoding/binary"
	"fmt"
)

// Encoded structure sizes. The layout is fixed: every field sits at an
// explicit offset, padding bytes are always zero, and the size does not
// depend on how much of a variable-content buffer is in use.
const (
	ConnectionParamsSize = 24
	SecurityInfoSize     = 32
	DeviceRecordSize     = 192
	DeviceListSize       = 4 + MaxDevices*DeviceRecordSize + 4
	ConnectionStateSize  = 200
)

// encodeTo writes the 24-byte wire form at b[0:24]
func (p *ConnectionParams) encodeTo(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(p.ConnectionHandle))
	binary.LittleEndian.PutUint16(b[2:4], p.ConnectionInterval)
	binary.LittleEndian.PutUint16(b[4:6], p.ConnectionLatency)
	binary.LittleEndian.PutUint16(b[6:8], p.SupervisionTimeout)
	b[8] = p.MasterClockAccuracy
	b[9] = p.LinkType
	b[10] = p.EncryptionEnabled
	b[11] = byte(p.RSSI)
	binary.LittleEndian.PutUint32(b[12:16], p.ConnectedAt)
	binary.LittleEndian.PutUint32(b[16:20], p.LastActivity)
	// b[20:24] padding, left zero
}

// decodeFrom reads the 24-byte wire form at b[0:24]
func (p *ConnectionParams) decodeFrom(b []byte) {
	p.ConnectionHandle = ConnHandle(binary.LittleEndian.Uint16(b[0:2]))
	p.ConnectionInterval = binary.LittleEndian.Uint16(b[2:4])
	p.ConnectionLatency = binary.LittleEndian.Uint16(b[4:6])
	p.SupervisionTimeout = binary.LittleEndian.Uint16(b[6:8])
	p.MasterClockAccuracy = b[8]
	p.LinkType = b[9]
	p.EncryptionEnabled = b[10]
	p.RSSI = int8(b[11])
	p.ConnectedAt = binary.LittleEndian.Uint32(b[12:16])
	p.LastActivity = binary.LittleEndian.Uint32(b[16:20])
}

// MarshalBinary encodes the params into their fixed 24-byte layout
func (p *ConnectionParams) MarshalBinary() ([]byte, error) {
	b := make([]byte, ConnectionParamsSize)
	p.encodeTo(b)
	return b, nil
}

// UnmarshalBinary decodes the fixed 24-byte layout
func (p *ConnectionParams) UnmarshalBinary(data []byte) error {
	if len(data) != ConnectionParamsSize {
		return fmt.Errorf("invalid connection params length: expected %d, got %d", ConnectionParamsSize, len(data))
	}
	p.decodeFrom(data)
	return nil
}

// encodeTo writes the 32-byte wire form at b[0:32]
func (i *SecurityInfo) encodeTo(b []byte) {
	copy(b[0:16], i.LinkKey[:])
	b[16] = i.LinkKeyType
	b[17] = i.AuthRequirements
	b[18] = i.IOCapabilities
	b[19] = i.SecurityLevel
	b[20] = i.PINLength
	b[21] = i.LinkKeyValid
	b[22] = i.Authenticated
	b[23] = i.Encrypted
	b[24] = i.SSPSupported
	b[25] = i.MITMRequired
	// b[26:32] padding, left zero
}

// decodeFrom reads the 32-byte wire form at b[0:32]
func (i *SecurityInfo) decodeFrom(b []byte) {
	copy(i.LinkKey[:], b[0:16])
	i.LinkKeyType = b[16]
	i.AuthRequirements = b[17]
	i.IOCapabilities = b[18]
	i.SecurityLevel = b[19]
	i.PINLength = b[20]
	i.LinkKeyValid = b[21]
	i.Authenticated = b[22]
	i.Encrypted = b[23]
	i.SSPSupported = b[24]
	i.MITMRequired = b[25]
}

// MarshalBinary encodes the security info into its fixed 32-byte layout
func (i *SecurityInfo) MarshalBinary() ([]byte, error) {
	b := make([]byte, SecurityInfoSize)
	i.encodeTo(b)
	return b, nil
}

// UnmarshalBinary decodes the fixed 32-byte layout
func (i *SecurityInfo) UnmarshalBinary(data []byte) error {
	if len(data) != SecurityInfoSize {
		return fmt.Errorf("invalid security info length: expected %d, got %d", SecurityInfoSize, len(data))
	}
	i.decodeFrom(data)
	return nil
}

// encodeTo writes the 192-byte wire form at b[0:192]
func (r *DeviceRecord) encodeTo(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], r.magic)
	copy(b[4:10], r.addr[:])
	copy(b[10:42], r.name[:])
	b[42] = r.nameLen
	copy(b[43:107], r.pairingKey[:])
	b[107] = r.pairingKeyLen
	copy(b[108:111], r.classOfDevice[:])
	b[111] = byte(r.deviceType)
	b[112] = byte(r.flags)
	// b[113:116] padding, left zero
	binary.LittleEndian.PutUint32(b[116:120], r.connectionCount)
	binary.LittleEndian.PutUint32(b[120:124], r.lastSeen)
	binary.LittleEndian.PutUint32(b[124:128], r.lastConnected)
	r.params.encodeTo(b[128:152])
	r.security.encodeTo(b[152:184])
	binary.LittleEndian.PutUint16(b[184:186], r.vendorID)
	binary.LittleEndian.PutUint16(b[186:188], r.productID)
	binary.LittleEndian.PutUint16(b[188:190], r.version)
	// b[190:192] padding, left zero
}

// decodeFrom reads the 192-byte wire form at b[0:192]
func (r *DeviceRecord) decodeFrom(b []byte) error {
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != deviceRecordMagic {
		return fmt.Errorf("device record magic 0x%08X: %w", magic, ErrInvalidMagic)
	}

	nameLen := b[42]
	if nameLen > MaxDeviceNameLen {
		return fmt.Errorf("device name length %d exceeds %d", nameLen, MaxDeviceNameLen)
	}
	keyLen := b[107]
	if keyLen > MaxPairingKeyLen {
		return fmt.Errorf("pairing key length %d exceeds %d", keyLen, MaxPairingKeyLen)
	}

	r.magic = magic
	copy(r.addr[:], b[4:10])
	copy(r.name[:], b[10:42])
	r.nameLen = nameLen
	copy(r.pairingKey[:], b[43:107])
	r.pairingKeyLen = keyLen
	copy(r.classOfDevice[:], b[108:111])
	r.deviceType = DeviceType(b[111])
	r.flags = DeviceFlag(b[112])
	r.connectionCount = binary.LittleEndian.Uint32(b[116:120])
	r.lastSeen = binary.LittleEndian.Uint32(b[120:124])
	r.lastConnected = binary.LittleEndian.Uint32(b[124:128])
	r.params.decodeFrom(b[128:152])
	r.security.decodeFrom(b[152:184])
	r.vendorID = binary.LittleEndian.Uint16(b[184:186])
	r.productID = binary.LittleEndian.Uint16(b[186:188])
	r.version = binary.LittleEndian.Uint16(b[188:190])
	return nil
}

// MarshalBinary encodes the record into its fixed 192-byte layout
func (r *DeviceRecord) MarshalBinary() ([]byte, error) {
	b := make([]byte, DeviceRecordSize)
	r.encodeTo(b)
	return b, nil
}

// UnmarshalBinary decodes the fixed 192-byte layout, rejecting blobs whose
// validity tag or length fields are out of contract
func (r *DeviceRecord) UnmarshalBinary(data []byte) error {
	if len(data) != DeviceRecordSize {
		return fmt.Errorf("invalid device record length: expected %d, got %d", DeviceRecordSize, len(data))
	}
	return r.decodeFrom(data)
}

// MarshalBinary encodes the list into its fixed layout: tag, ten record
// slots, count and padding. Unpopulated slots encode as empty records.
func (l *DeviceList) MarshalBinary() ([]byte, error) {
	b := make([]byte, DeviceListSize)
	binary.LittleEndian.PutUint32(b[0:4], l.magic)
	for i := range l.devices {
		off := 4 + i*DeviceRecordSize
		l.devices[i].encodeTo(b[off : off+DeviceRecordSize])
	}
	b[4+MaxDevices*DeviceRecordSize] = l.count
	// trailing 3 bytes padding, left zero
	return b, nil
}

// UnmarshalBinary decodes the fixed list layout
func (l *DeviceList) UnmarshalBinary(data []byte) error {
	if len(data) != DeviceListSize {
		return fmt.Errorf("invalid device list length: expected %d, got %d", DeviceListSize, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != deviceListMagic {
		return fmt.Errorf("device list magic 0x%08X: %w", magic, ErrInvalidMagic)
	}

	count := data[4+MaxDevices*DeviceRecordSize]
	if count > MaxDevices {
		return fmt.Errorf("device count %d exceeds %d", count, MaxDevices)
	}

	l.magic = magic
	for i := range l.devices {
		off := 4 + i*DeviceRecordSize
		if err := l.devices[i].decodeFrom(data[off : off+DeviceRecordSize]); err != nil {
			return fmt.Errorf("device slot %d: %w", i, err)
		}
	}
	l.count = count
	return nil
}

// MarshalBinary encodes the state into its fixed 200-byte layout
func (s *ConnectionState) MarshalBinary() ([]byte, error) {
	b := make([]byte, ConnectionStateSize)
	binary.LittleEndian.PutUint32(b[0:4], s.magic)
	s.remote.encodeTo(b[4:196])
	b[196] = s.flags
	b[197] = s.linkQuality
	b[198] = s.phase
	// b[199] padding, left zero
	return b, nil
}

// UnmarshalBinary decodes the fixed 200-byte layout
func (s *ConnectionState) UnmarshalBinary(data []byte) error {
	if len(data) != ConnectionStateSize {
		return fmt.Errorf("invalid connection state length: expected %d, got %d", ConnectionStateSize, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != connectionStateMagic {
		return fmt.Errorf("connection state magic 0x%08X: %w", magic, ErrInvalidMagic)
	}

	if err := s.remote.decodeFrom(data[4:196]); err != nil {
		return fmt.Errorf("remote device: %w", err)
	}

	s.magic = magic
	s.flags = data[196]
	s.linkQuality = data[197]
	s.phase = data[198]
	return nil
}
