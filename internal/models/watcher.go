package models

// Watcher subscribes an external system to phase notifications. A watcher
// matches all peers, one adapter, or one peer address, and forwards the
// notifications it matches over its configured integrations.
type Watcher struct {
	BaseModel

	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	// Filters; empty means match everything
	Adapter string   `json:"adapter,omitempty" db:"adapter"`
	MACAddr *MACAddr `json:"macAddr,omitempty" db:"mac_addr"`

	// Integration settings
	HTTPIntegration *Variables `json:"httpIntegration,omitempty" db:"http_integration"`
	MQTTIntegration *Variables `json:"mqttIntegration,omitempty" db:"mqtt_integration"`

	IsDisabled bool `json:"isDisabled" db:"is_disabled"`
}

// Matches reports whether a notification for the given adapter and peer
// address falls within the watcher's filters.
func (w *Watcher) Matches(adapter string, mac MACAddr) bool {
	if w.IsDisabled {
		return false
	}
	if w.Adapter != "" && w.Adapter != adapter {
		return false
	}
	if w.MACAddr != nil && *w.MACAddr != mac {
		return false
	}
	return true
}
