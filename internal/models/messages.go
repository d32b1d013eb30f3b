package models

import (
	"time"
)

// LinkEvent names an observation the adapter bridge makes about a peer's
// link. The tracker maps each event onto a connection phase transition.
type LinkEvent string

const (
	LinkEventDiscovered        LinkEvent = "discovered"
	LinkEventConnectRequested  LinkEvent = "connect_requested"
	LinkEventConnected         LinkEvent = "connected"
	LinkEventAuthStarted       LinkEvent = "auth_started"
	LinkEventEncryptionStarted LinkEvent = "encryption_started"
	LinkEventEncrypted         LinkEvent = "encrypted"
	LinkEventServicesRequested LinkEvent = "services_requested"
	LinkEventServicesDone      LinkEvent = "services_done"
	LinkEventReady             LinkEvent = "ready"
	LinkEventMaintain          LinkEvent = "maintain"
	LinkEventLost              LinkEvent = "lost"
	LinkEventFailed            LinkEvent = "failed"
	LinkEventDisconnect        LinkEvent = "disconnect"
	LinkEventReset             LinkEvent = "reset"
)

// LinkEventMessage is published by the adapter bridge for every link
// observation, on bluetooth.adapter.<adapter>.link.<event>.
type LinkEventMessage struct {
	Adapter    string    `json:"adapter"`
	MACAddr    MACAddr   `json:"macAddr"`
	Event      LinkEvent `json:"event"`
	ObservedAt time.Time `json:"observedAt"`

	// Optional link details, present when the adapter reports them
	Name        string  `json:"name,omitempty"`
	ClassOfDev  *uint32 `json:"classOfDevice,omitempty"`
	RSSI        *int    `json:"rssi,omitempty"`
	ConnHandle  *uint16 `json:"connHandle,omitempty"`
	LinkQuality *uint8  `json:"linkQuality,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// PhaseNotification is published by the link tracker after it applies an
// event, on registry.peer.<mac>.phase.
type PhaseNotification struct {
	Adapter   string    `json:"adapter"`
	MACAddr   MACAddr   `json:"macAddr"`
	Phase     string    `json:"phase"`
	Previous  string    `json:"previous"`
	Event     LinkEvent `json:"event"`
	Accepted  bool      `json:"accepted"`
	Timestamp time.Time `json:"timestamp"`
}
