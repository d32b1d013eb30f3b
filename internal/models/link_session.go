package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// LinkSession represents one connection attempt of a peer, from the first
// connect request until the link is torn down or fails. The connection
// state machine snapshot is stored as its encoded bytes.
type LinkSession struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	PeerID  uuid.UUID `json:"peerId" db:"peer_id"`
	MACAddr MACAddr   `json:"macAddr" db:"mac_addr"`
	Adapter string    `json:"adapter" db:"adapter"`

	// Encoded connection state (fixed 200 bytes)
	State []byte `json:"-" db:"state"`

	// Denormalized from the state
	Phase       string `json:"phase" db:"phase"`
	ConnHandle  *int   `json:"connHandle,omitempty" db:"conn_handle"`
	LinkQuality uint8  `json:"linkQuality" db:"link_quality"`

	StartedAt      time.Time  `json:"startedAt" db:"started_at"`
	LastActivityAt time.Time  `json:"lastActivityAt" db:"last_activity_at"`
	EndedAt        *time.Time `json:"endedAt,omitempty" db:"ended_at"`

	// Relations
	Peer *Peer `json:"peer,omitempty"`
}

// DecodeState decodes the stored connection state bytes
func (s *LinkSession) DecodeState() (btcore.ConnectionState, error) {
	var st btcore.ConnectionState
	if err := st.UnmarshalBinary(s.State); err != nil {
		return btcore.ConnectionState{}, fmt.Errorf("decode session state: %w", err)
	}
	return st, nil
}

// SetState encodes the state and refreshes the denormalized columns
func (s *LinkSession) SetState(st *btcore.ConnectionState) error {
	data, err := st.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	s.State = data
	s.Phase = st.Phase().String()
	s.LinkQuality = st.LinkQuality()

	if handle, ok := st.ConnectionHandle(); ok {
		h := int(handle.Raw())
		s.ConnHandle = &h
	} else {
		s.ConnHandle = nil
	}
	return nil
}

// IsOpen reports whether the session has not ended
func (s *LinkSession) IsOpen() bool {
	return s.EndedAt == nil
}
