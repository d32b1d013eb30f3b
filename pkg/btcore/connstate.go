package btcore

// ConnectionPhase is one stage in a peer's live connection lifecycle
type ConnectionPhase uint8

const (
	// PhaseIdle - no connection attempt in progress
	PhaseIdle ConnectionPhase = iota
	// PhaseDiscovery - scanning for devices
	PhaseDiscovery
	// PhaseConnecting - connecting to a specific device
	PhaseConnecting
	// PhaseConnected - connected but not authenticated
	PhaseConnected
	// PhaseAuthenticating - authentication in progress
	PhaseAuthenticating
	// PhaseSettingUpEncryption - authenticated, negotiating encryption
	PhaseSettingUpEncryption
	// PhaseFullyConnected - connected, authenticated and encrypted
	PhaseFullyConnected
	// PhaseServiceDiscovery - service discovery in progress
	PhaseServiceDiscovery
	// PhaseReady - connection established with services
	PhaseReady
	// PhaseMaintaining - connection maintenance mode
	PhaseMaintaining
	// PhaseReconnecting - connection lost, attempting reconnection
	PhaseReconnecting
	// PhaseFailed - connection failed
	PhaseFailed
	// PhaseDisconnecting - tearing the connection down
	PhaseDisconnecting
)

// phaseTransitions maps each phase to its allowed next phases. The table is
// the single source of truth for AdvanceToPhase; the universal rule that any
// phase may transition to Idle is applied on top of it.
var phaseTransitions = [...][]ConnectionPhase{
	PhaseIdle:                {PhaseDiscovery, PhaseConnecting},
	PhaseDiscovery:           {PhaseConnecting},
	PhaseConnecting:          {PhaseConnected, PhaseFailed},
	PhaseConnected:           {PhaseAuthenticating, PhaseServiceDiscovery, PhaseDisconnecting},
	PhaseAuthenticating:      {PhaseSettingUpEncryption, PhaseFailed, PhaseDisconnecting},
	PhaseSettingUpEncryption: {PhaseFullyConnected, PhaseFailed, PhaseDisconnecting},
	PhaseFullyConnected:      {PhaseServiceDiscovery, PhaseReady, PhaseDisconnecting},
	PhaseServiceDiscovery:    {PhaseReady, PhaseFailed, PhaseDisconnecting},
	PhaseReady:               {PhaseMaintaining, PhaseDisconnecting},
	PhaseMaintaining:         {PhaseReconnecting, PhaseDisconnecting},
	PhaseReconnecting:        {PhaseConnecting, PhaseFailed},
	PhaseFailed:              {PhaseReconnecting},
	PhaseDisconnecting:       {}, // only the universal Idle rule applies
}

// ValidTransition reports whether current may advance to next, including the
// universal rule that Idle is reachable from any phase.
func ValidTransition(current, next ConnectionPhase) bool {
	if next == PhaseIdle {
		return true
	}
	if int(current) >= len(phaseTransitions) {
		return false
	}
	for _, p := range phaseTransitions[current] {
		if p == next {
			return true
		}
	}
	return false
}

// IsConnected reports whether the phase indicates an active connection
func (p ConnectionPhase) IsConnected() bool {
	switch p {
	case PhaseConnected, PhaseAuthenticating, PhaseSettingUpEncryption,
		PhaseFullyConnected, PhaseServiceDiscovery, PhaseReady, PhaseMaintaining:
		return true
	}
	return false
}

// IsSecure reports whether the phase indicates an encrypted connection
func (p ConnectionPhase) IsSecure() bool {
	switch p {
	case PhaseFullyConnected, PhaseServiceDiscovery, PhaseReady, PhaseMaintaining:
		return true
	}
	return false
}

// IsReady reports whether the phase indicates the connection is usable
func (p ConnectionPhase) IsReady() bool {
	return p == PhaseReady || p == PhaseMaintaining
}

// String returns the phase name
func (p ConnectionPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDiscovery:
		return "discovery"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseSettingUpEncryption:
		return "setting_up_encryption"
	case PhaseFullyConnected:
		return "fully_connected"
	case PhaseServiceDiscovery:
		return "service_discovery"
	case PhaseReady:
		return "ready"
	case PhaseMaintaining:
		return "maintaining"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseFailed:
		return "failed"
	case PhaseDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ParseConnectionPhase resolves a phase by its String name
func ParseConnectionPhase(s string) (ConnectionPhase, bool) {
	for p := PhaseIdle; p <= PhaseDisconnecting; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return PhaseIdle, false
}

// Connection status flag bits
const (
	connFlagConnected     uint8 = 0x01
	connFlagAuthenticated uint8 = 0x02
)

// ConnectionState tracks the live connection to one peer: a snapshot of its
// device record, status flags, link quality and the current phase of the
// connection FSM.
type ConnectionState struct {
	magic       uint32
	remote      DeviceRecord
	flags       uint8
	linkQuality uint8
	phase       uint8
}

// NewConnectionState creates a connection state in phase Idle with an empty
// remote device snapshot
func NewConnectionState() ConnectionState {
	return ConnectionState{
		magic:  connectionStateMagic,
		remote: newEmptyDeviceRecord(),
		phase:  uint8(PhaseIdle),
	}
}

// SetRemoteDevice replaces the remote device snapshot
func (s *ConnectionState) SetRemoteDevice(record DeviceRecord) {
	s.remote = record
}

// RemoteDevice returns the remote device snapshot
func (s *ConnectionState) RemoteDevice() *DeviceRecord {
	return &s.remote
}

// SetRemoteAddr sets the address on the remote device snapshot
func (s *ConnectionState) SetRemoteAddr(addr BDAddr) {
	s.remote.SetAddr(addr)
}

// RemoteAddr returns the address of the remote device snapshot
func (s *ConnectionState) RemoteAddr() BDAddr {
	return s.remote.Addr()
}

// SetConnected sets or clears the connected status flag. The flag is
// independent of the FSM phase; callers keep the two consistent.
func (s *ConnectionState) SetConnected(connected bool) {
	if connected {
		s.flags |= connFlagConnected
	} else {
		s.flags &^= connFlagConnected
	}
}

// IsConnected reports the connected status flag
func (s *ConnectionState) IsConnected() bool {
	return s.flags&connFlagConnected != 0
}

// SetAuthenticated sets or clears the authenticated status flag
func (s *ConnectionState) SetAuthenticated(authenticated bool) {
	if authenticated {
		s.flags |= connFlagAuthenticated
	} else {
		s.flags &^= connFlagAuthenticated
	}
}

// IsAuthenticated reports the authenticated status flag
func (s *ConnectionState) IsAuthenticated() bool {
	return s.flags&connFlagAuthenticated != 0
}

// SetLinkQuality sets the raw link quality indicator (RSSI, LQI, etc.)
func (s *ConnectionState) SetLinkQuality(quality uint8) {
	s.linkQuality = quality
}

// LinkQuality returns the raw link quality indicator
func (s *ConnectionState) LinkQuality() uint8 {
	return s.linkQuality
}

// SetConnectionHandle stores the controller-assigned handle on the embedded
// record. A zero handle means "no handle assigned".
func (s *ConnectionState) SetConnectionHandle(handle ConnHandle) {
	s.remote.params.ConnectionHandle = handle
}

// ConnectionHandle returns the assigned handle; ok is false when no handle
// is assigned (stored value zero)
func (s *ConnectionState) ConnectionHandle() (ConnHandle, bool) {
	h := s.remote.params.ConnectionHandle
	if h == 0 {
		return 0, false
	}
	return h, true
}

// SetLinkType sets the link type byte (0x01 = ACL, 0x02 = SCO by convention)
func (s *ConnectionState) SetLinkType(linkType uint8) {
	s.remote.params.LinkType = linkType
}

// LinkType returns the link type byte
func (s *ConnectionState) LinkType() uint8 {
	return s.remote.params.LinkType
}

// SetPhase forces the phase without transition validation
func (s *ConnectionState) SetPhase(phase ConnectionPhase) {
	s.phase = uint8(phase)
}

// Phase returns the current phase; stored values outside the known range
// read back as Idle
func (s *ConnectionState) Phase() ConnectionPhase {
	if s.phase > uint8(PhaseDisconnecting) {
		return PhaseIdle
	}
	return ConnectionPhase(s.phase)
}

// AdvanceToPhase attempts the transition to next. The phase is updated and
// true returned only when the transition is allowed; otherwise the state is
// left untouched and false returned.
func (s *ConnectionState) AdvanceToPhase(next ConnectionPhase) bool {
	if !ValidTransition(s.Phase(), next) {
		return false
	}
	s.SetPhase(next)
	return true
}
