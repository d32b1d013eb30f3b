package btcore

// Capacity limits for the variable-content record fields
const (
	MaxDeviceNameLen = 32
	MaxPairingKeyLen = 64
)

// DeviceRecord holds the full persisted identity of one Bluetooth peer:
// address, name, pairing data, classification, flags, usage counters and the
// embedded connection/security attribute groups. Records are fixed-size
// values with no heap content so their codec bytes can be copied verbatim to
// flash or across a process boundary.
type DeviceRecord struct {
	magic           uint32
	addr            BDAddr
	name            [MaxDeviceNameLen]byte
	nameLen         uint8
	pairingKey      [MaxPairingKeyLen]byte
	pairingKeyLen   uint8
	classOfDevice   ClassOfDevice
	deviceType      DeviceType
	flags           DeviceFlag
	connectionCount uint32
	lastSeen        uint32
	lastConnected   uint32
	params          ConnectionParams
	security        SecurityInfo
	vendorID        uint16
	productID       uint16
	version         uint16
}

// newEmptyDeviceRecord returns a record with the validity tag set and all
// content zeroed; used for list slots and connection-state defaults.
func newEmptyDeviceRecord() DeviceRecord {
	return DeviceRecord{
		magic:    deviceRecordMagic,
		params:   DefaultConnectionParams(),
		security: DefaultSecurityInfo(),
	}
}

// NewDeviceRecord creates a record for the given address and name.
// Returns ErrInvalidDeviceInfo if the name exceeds 32 bytes.
func NewDeviceRecord(addr BDAddr, name []byte) (DeviceRecord, error) {
	r := newEmptyDeviceRecord()
	r.SetAddr(addr)
	if err := r.SetName(name); err != nil {
		return DeviceRecord{}, err
	}
	return r, nil
}

// IsValid reports whether the record carries the expected validity tag and a
// non-zero address
func (r *DeviceRecord) IsValid() bool {
	return r.magic == deviceRecordMagic && !r.addr.IsZero()
}

// SetAddr sets the device address
func (r *DeviceRecord) SetAddr(addr BDAddr) {
	r.addr = addr
}

// Addr returns the device address
func (r *DeviceRecord) Addr() BDAddr {
	return r.addr
}

// SetName stores the device name. The buffer is cleared before the new bytes
// are copied so the unused tail never holds content from a prior value.
// Returns ErrInvalidDeviceInfo if the name exceeds 32 bytes.
func (r *DeviceRecord) SetName(name []byte) error {
	if len(name) > MaxDeviceNameLen {
		return ErrInvalidDeviceInfo
	}

	r.name = [MaxDeviceNameLen]byte{}
	copy(r.name[:], name)
	r.nameLen = uint8(len(name))
	return nil
}

// Name returns the stored device name, sliced to its logical length
func (r *DeviceRecord) Name() []byte {
	return r.name[:r.nameLen]
}

// SetPairingKey stores the pairing key/PIN. The buffer is cleared before the
// new bytes are copied. Returns ErrInvalidDeviceInfo if the key exceeds 64
// bytes.
func (r *DeviceRecord) SetPairingKey(key []byte) error {
	if len(key) > MaxPairingKeyLen {
		return ErrInvalidDeviceInfo
	}

	r.pairingKey = [MaxPairingKeyLen]byte{}
	copy(r.pairingKey[:], key)
	r.pairingKeyLen = uint8(len(key))
	return nil
}

// PairingKey returns the stored pairing key, sliced to its logical length
func (r *DeviceRecord) PairingKey() []byte {
	return r.pairingKey[:r.pairingKeyLen]
}

// SetDeviceInfo sets name and pairing key in one call
func (r *DeviceRecord) SetDeviceInfo(name, pairingKey []byte) error {
	if err := r.SetName(name); err != nil {
		return err
	}
	return r.SetPairingKey(pairingKey)
}

// SetClassOfDevice stores the 3-byte Class of Device and re-derives the
// device type from its major class field
func (r *DeviceRecord) SetClassOfDevice(cod ClassOfDevice) {
	r.classOfDevice = cod
	r.deviceType = cod.DeviceType()
}

// ClassOfDevice returns the stored Class of Device
func (r *DeviceRecord) ClassOfDevice() ClassOfDevice {
	return r.classOfDevice
}

// DeviceType returns the classification derived from the Class of Device
func (r *DeviceRecord) DeviceType() DeviceType {
	return r.deviceType
}

// UpdateConnectionParams replaces the embedded connection parameters,
// increments the connection counter and marks the device connected
func (r *DeviceRecord) UpdateConnectionParams(params ConnectionParams) {
	r.params = params
	r.IncrementConnectionCount()
	r.AddFlag(FlagConnected)
}

// UpdateSecurityInfo replaces the embedded security info and marks the
// device paired when the new info reports an authenticated peer
func (r *DeviceRecord) UpdateSecurityInfo(security SecurityInfo) {
	r.security = security
	if security.Authenticated != 0 {
		r.AddFlag(FlagPaired)
	}
}

// ConnectionParams returns a copy of the embedded connection parameters
func (r *DeviceRecord) ConnectionParams() ConnectionParams {
	return r.params
}

// SecurityInfo returns a copy of the embedded security info
func (r *DeviceRecord) SecurityInfo() SecurityInfo {
	return r.security
}

// SetFlags replaces the whole flag byte
func (r *DeviceRecord) SetFlags(flags DeviceFlag) {
	r.flags = flags
}

// AddFlag sets a flag bit
func (r *DeviceRecord) AddFlag(flag DeviceFlag) {
	r.flags |= flag
}

// RemoveFlag clears a flag bit
func (r *DeviceRecord) RemoveFlag(flag DeviceFlag) {
	r.flags &^= flag
}

// HasFlag reports whether a flag bit is set
func (r *DeviceRecord) HasFlag(flag DeviceFlag) bool {
	return r.flags&flag != 0
}

// Flags returns the raw flag byte
func (r *DeviceRecord) Flags() DeviceFlag {
	return r.flags
}

// IsPaired reports the Paired flag
func (r *DeviceRecord) IsPaired() bool {
	return r.HasFlag(FlagPaired)
}

// IsConnected reports the Connected flag
func (r *DeviceRecord) IsConnected() bool {
	return r.HasFlag(FlagConnected)
}

// IsTrusted reports the Trusted flag
func (r *DeviceRecord) IsTrusted() bool {
	return r.HasFlag(FlagTrusted)
}

// SupportsAutoReconnect reports the AutoReconnect flag
func (r *DeviceRecord) SupportsAutoReconnect() bool {
	return r.HasFlag(FlagAutoReconnect)
}

// SetConnectionCount sets the successful connection counter
func (r *DeviceRecord) SetConnectionCount(count uint32) {
	r.connectionCount = count
}

// IncrementConnectionCount increments the connection counter, saturating at
// the maximum instead of wrapping
func (r *DeviceRecord) IncrementConnectionCount() {
	if r.connectionCount != ^uint32(0) {
		r.connectionCount++
	}
}

// ConnectionCount returns the successful connection counter
func (r *DeviceRecord) ConnectionCount() uint32 {
	return r.connectionCount
}

// SetLastSeen sets the last-seen timestamp (seconds since epoch)
func (r *DeviceRecord) SetLastSeen(timestamp uint32) {
	r.lastSeen = timestamp
}

// LastSeen returns the last-seen timestamp
func (r *DeviceRecord) LastSeen() uint32 {
	return r.lastSeen
}

// SetLastConnected sets the last successful connection timestamp
func (r *DeviceRecord) SetLastConnected(timestamp uint32) {
	r.lastConnected = timestamp
}

// LastConnected returns the last successful connection timestamp
func (r *DeviceRecord) LastConnected() uint32 {
	return r.lastConnected
}

// SetVendorInfo sets the optional vendor/product/version identifiers
func (r *DeviceRecord) SetVendorInfo(vendorID, productID, version uint16) {
	r.vendorID = vendorID
	r.productID = productID
	r.version = version
}

// VendorID returns the vendor identifier, zero if unknown
func (r *DeviceRecord) VendorID() uint16 {
	return r.vendorID
}

// ProductID returns the product identifier, zero if unknown
func (r *DeviceRecord) ProductID() uint16 {
	return r.productID
}

// Version returns the device version, zero if unknown
func (r *DeviceRecord) Version() uint16 {
	return r.version
}
