package btcore

// ConnectionParams holds the low-level link parameters negotiated with the
// controller for one connection. Plain attribute group, copied by value into
// a DeviceRecord.
type ConnectionParams struct {
	// ConnectionHandle assigned by the controller
	ConnectionHandle ConnHandle
	// ConnectionInterval in 1.25ms units (range: 6-3200)
	ConnectionInterval uint16
	// ConnectionLatency (range: 0-499)
	ConnectionLatency uint16
	// SupervisionTimeout in 10ms units (range: 10-3200)
	SupervisionTimeout uint16
	// MasterClockAccuracy (range: 0-7)
	MasterClockAccuracy uint8
	// LinkType (0x01 = ACL, 0x02 = SCO)
	LinkType uint8
	// EncryptionEnabled (0x00 = disabled, 0x01 = enabled)
	EncryptionEnabled uint8
	// RSSI value (-127 to 127 dBm)
	RSSI int8
	// ConnectedAt timestamp (seconds since epoch)
	ConnectedAt uint32
	// LastActivity timestamp (seconds since epoch)
	LastActivity uint32
}

// DefaultConnectionParams returns params for a link with no measurements yet
func DefaultConnectionParams() ConnectionParams {
	return ConnectionParams{
		RSSI: -127,
	}
}

// SecurityInfo holds authentication and encryption state for one peer.
// Plain attribute group, copied by value into a DeviceRecord.
type SecurityInfo struct {
	// LinkKey for authentication
	LinkKey [16]byte
	// LinkKeyType (0x00-0x07)
	LinkKeyType uint8
	// AuthRequirements bits
	AuthRequirements uint8
	// IOCapabilities (0x00-0x04)
	IOCapabilities uint8
	// SecurityLevel (0x01-0x04)
	SecurityLevel uint8
	// PINLength (0-16)
	PINLength uint8
	// LinkKeyValid is non-zero when LinkKey holds usable material
	LinkKeyValid uint8
	// Authenticated is non-zero when the peer was authenticated
	Authenticated uint8
	// Encrypted is non-zero when the link is encrypted
	Encrypted uint8
	// SSPSupported is non-zero when the peer supports secure simple pairing
	SSPSupported uint8
	// MITMRequired is non-zero when MITM protection is required
	MITMRequired uint8
}

// DefaultSecurityInfo returns security info at the lowest security level
func DefaultSecurityInfo() SecurityInfo {
	return SecurityInfo{
		SecurityLevel: 1,
	}
}
