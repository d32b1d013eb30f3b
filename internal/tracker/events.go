package tracker

import (
	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// eventPhases maps each link event to the phase it drives the state
// machine toward. Whether the transition is allowed from the current
// phase is decided by the state machine itself.
var eventPhases = map[models.LinkEvent]btcore.ConnectionPhase{
	models.LinkEventDiscovered:        btcore.PhaseDiscovery,
	models.LinkEventConnectRequested:  btcore.PhaseConnecting,
	models.LinkEventConnected:         btcore.PhaseConnected,
	models.LinkEventAuthStarted:       btcore.PhaseAuthenticating,
	models.LinkEventEncryptionStarted: btcore.PhaseSettingUpEncryption,
	models.LinkEventEncrypted:         btcore.PhaseFullyConnected,
	models.LinkEventServicesRequested: btcore.PhaseServiceDiscovery,
	models.LinkEventServicesDone:      btcore.PhaseReady,
	models.LinkEventReady:             btcore.PhaseReady,
	models.LinkEventMaintain:          btcore.PhaseMaintaining,
	models.LinkEventLost:              btcore.PhaseReconnecting,
	models.LinkEventFailed:            btcore.PhaseFailed,
	models.LinkEventDisconnect:        btcore.PhaseDisconnecting,
	models.LinkEventReset:             btcore.PhaseIdle,
}

// phaseForEvent returns the target phase for a link event
func phaseForEvent(event models.LinkEvent) (btcore.ConnectionPhase, bool) {
	phase, ok := eventPhases[event]
	return phase, ok
}

// applyEvent drives the connection state toward the event's target phase.
// It returns the previous phase and whether the transition was accepted.
// A rejected transition leaves the state untouched.
func applyEvent(state *btcore.ConnectionState, event models.LinkEvent) (btcore.ConnectionPhase, bool) {
	previous := state.Phase()

	target, ok := phaseForEvent(event)
	if !ok {
		return previous, false
	}

	if !state.AdvanceToPhase(target) {
		return previous, false
	}

	switch target {
	case btcore.PhaseConnected:
		state.SetConnected(true)
	case btcore.PhaseFullyConnected:
		state.SetAuthenticated(true)
	case btcore.PhaseIdle, btcore.PhaseFailed:
		state.SetConnected(false)
		state.SetAuthenticated(false)
	}

	return previous, true
}
