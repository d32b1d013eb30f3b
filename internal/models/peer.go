package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// MACAddr represents a 6-byte Bluetooth device address
type MACAddr [6]byte

// String returns colon-separated hex representation
func (m MACAddr) String() string {
	return btcore.BDAddr(m).String()
}

// MarshalJSON implements json.Marshaler
func (m MACAddr) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *MACAddr) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid MAC address format")
	}

	addr, err := btcore.ParseBDAddr(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*m = MACAddr(addr)
	return nil
}

// Value implements driver.Valuer
func (m MACAddr) Value() (driver.Value, error) {
	return m[:], nil
}

// Scan implements sql.Scanner
func (m *MACAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) != 6 {
			return fmt.Errorf("invalid MAC address length")
		}
		copy(m[:], v)
		return nil
	case string:
		addr, err := btcore.ParseBDAddr(v)
		if err != nil {
			return err
		}
		*m = MACAddr(addr)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MACAddr", value)
	}
}

// BDAddr converts to the core address type
func (m MACAddr) BDAddr() btcore.BDAddr {
	return btcore.BDAddr(m)
}

// Peer represents a known remote Bluetooth device. The full device record
// is kept as its encoded bytes; the scalar columns are denormalized from
// it for querying.
type Peer struct {
	BaseModel

	// Identifiers
	MACAddr MACAddr `json:"macAddr" db:"mac_addr"`
	Adapter string  `json:"adapter" db:"adapter"`

	// Metadata
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	// Encoded device record (fixed 192 bytes)
	Record []byte `json:"-" db:"record"`

	// Denormalized from the record
	DeviceType      string `json:"deviceType" db:"device_type"`
	Flags           uint8  `json:"flags" db:"flags"`
	ConnectionCount uint32 `json:"connectionCount" db:"connection_count"`

	// Status
	IsDisabled      bool       `json:"isDisabled" db:"is_disabled"`
	PairedAt        *time.Time `json:"pairedAt,omitempty" db:"paired_at"`
	LastSeenAt      *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
	LastConnectedAt *time.Time `json:"lastConnectedAt,omitempty" db:"last_connected_at"`

	// Signal
	RSSI *int `json:"rssi,omitempty" db:"rssi"`
}

// DecodeRecord decodes the stored device record bytes
func (p *Peer) DecodeRecord() (btcore.DeviceRecord, error) {
	var rec btcore.DeviceRecord
	if err := rec.UnmarshalBinary(p.Record); err != nil {
		return btcore.DeviceRecord{}, fmt.Errorf("decode peer record: %w", err)
	}
	return rec, nil
}

// SetRecord encodes the record and refreshes the denormalized columns
func (p *Peer) SetRecord(rec *btcore.DeviceRecord) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode peer record: %w", err)
	}

	p.Record = data
	p.DeviceType = rec.DeviceType().String()
	p.Flags = uint8(rec.Flags())
	p.ConnectionCount = rec.ConnectionCount()
	return nil
}
