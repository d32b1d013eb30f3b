package models

import (
	"time"

	"github.com/google/uuid"
)

// EventLog represents an event log entry
type EventLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	PeerID    *uuid.UUID `json:"peerId,omitempty" db:"peer_id"`
	SessionID *uuid.UUID `json:"sessionId,omitempty" db:"session_id"`
	MACAddr   *MACAddr   `json:"macAddr,omitempty" db:"mac_addr"`
	Adapter   string     `json:"adapter" db:"adapter"`

	Type        EventType  `json:"type" db:"type"`
	Level       EventLevel `json:"level" db:"level"`
	Code        string     `json:"code" db:"code"`
	Description string     `json:"description" db:"description"`

	Details Variables `json:"details,omitempty" db:"details"`
}

// EventType represents event types
type EventType string

const (
	// Peer lifecycle events
	EventTypeDiscovered  EventType = "DISCOVERED"
	EventTypePeerCreated EventType = "PEER_CREATED"
	EventTypePeerUpdated EventType = "PEER_UPDATED"
	EventTypePeerRemoved EventType = "PEER_REMOVED"
	EventTypePaired      EventType = "PAIRED"

	// Link events
	EventTypePhaseChange        EventType = "PHASE_CHANGE"
	EventTypeTransitionRejected EventType = "TRANSITION_REJECTED"
	EventTypeLinkEstablished    EventType = "LINK_ESTABLISHED"
	EventTypeLinkLost           EventType = "LINK_LOST"
	EventTypeLinkFailed         EventType = "LINK_FAILED"

	// System events
	EventTypeAPICall EventType = "API_CALL"
	EventTypeError   EventType = "ERROR"
)

// EventLevel represents event severity levels
type EventLevel string

const (
	EventLevelDebug   EventLevel = "DEBUG"
	EventLevelInfo    EventLevel = "INFO"
	EventLevelWarning EventLevel = "WARNING"
	EventLevelError   EventLevel = "ERROR"
	EventLevelFatal   EventLevel = "FATAL"
)
