package tracker

import (
	"testing"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

func TestPhaseForEvent(t *testing.T) {
	cases := []struct {
		event models.LinkEvent
		phase btcore.ConnectionPhase
	}{
		{models.LinkEventDiscovered, btcore.PhaseDiscovery},
		{models.LinkEventConnectRequested, btcore.PhaseConnecting},
		{models.LinkEventConnected, btcore.PhaseConnected},
		{models.LinkEventAuthStarted, btcore.PhaseAuthenticating},
		{models.LinkEventEncryptionStarted, btcore.PhaseSettingUpEncryption},
		{models.LinkEventEncrypted, btcore.PhaseFullyConnected},
		{models.LinkEventServicesRequested, btcore.PhaseServiceDiscovery},
		{models.LinkEventServicesDone, btcore.PhaseReady},
		{models.LinkEventReady, btcore.PhaseReady},
		{models.LinkEventMaintain, btcore.PhaseMaintaining},
		{models.LinkEventLost, btcore.PhaseReconnecting},
		{models.LinkEventFailed, btcore.PhaseFailed},
		{models.LinkEventDisconnect, btcore.PhaseDisconnecting},
		{models.LinkEventReset, btcore.PhaseIdle},
	}

	for _, c := range cases {
		phase, ok := phaseForEvent(c.event)
		if !ok {
			t.Errorf("phaseForEvent(%s) not mapped", c.event)
			continue
		}
		if phase != c.phase {
			t.Errorf("phaseForEvent(%s) = %s, want %s", c.event, phase, c.phase)
		}
	}

	if _, ok := phaseForEvent(models.LinkEvent("bogus")); ok {
		t.Error("unknown event must not map to a phase")
	}
}

func TestApplyEventHappyPath(t *testing.T) {
	state := btcore.NewConnectionState()

	sequence := []struct {
		event models.LinkEvent
		phase btcore.ConnectionPhase
	}{
		{models.LinkEventDiscovered, btcore.PhaseDiscovery},
		{models.LinkEventConnectRequested, btcore.PhaseConnecting},
		{models.LinkEventConnected, btcore.PhaseConnected},
		{models.LinkEventAuthStarted, btcore.PhaseAuthenticating},
		{models.LinkEventEncryptionStarted, btcore.PhaseSettingUpEncryption},
		{models.LinkEventEncrypted, btcore.PhaseFullyConnected},
		{models.LinkEventServicesRequested, btcore.PhaseServiceDiscovery},
		{models.LinkEventServicesDone, btcore.PhaseReady},
		{models.LinkEventMaintain, btcore.PhaseMaintaining},
	}

	for i, step := range sequence {
		previous := state.Phase()
		got, accepted := applyEvent(&state, step.event)
		if !accepted {
			t.Fatalf("step %d: event %s rejected in phase %s", i, step.event, previous)
		}
		if got != previous {
			t.Errorf("step %d: applyEvent returned previous %s, want %s", i, got, previous)
		}
		if state.Phase() != step.phase {
			t.Errorf("step %d: phase = %s, want %s", i, state.Phase(), step.phase)
		}
	}
}

func TestApplyEventRejectionLeavesState(t *testing.T) {
	state := btcore.NewConnectionState()

	// Encryption cannot start from idle
	previous, accepted := applyEvent(&state, models.LinkEventEncryptionStarted)
	if accepted {
		t.Fatal("encryption_started must be rejected from idle")
	}
	if previous != btcore.PhaseIdle {
		t.Errorf("previous = %s, want idle", previous)
	}
	if state.Phase() != btcore.PhaseIdle {
		t.Errorf("rejected event changed phase to %s", state.Phase())
	}

	if _, accepted := applyEvent(&state, models.LinkEvent("bogus")); accepted {
		t.Error("unknown event must be rejected")
	}
}

func TestApplyEventResetFromAnywhere(t *testing.T) {
	phases := []models.LinkEvent{
		models.LinkEventDiscovered,
		models.LinkEventConnectRequested,
		models.LinkEventConnected,
		models.LinkEventAuthStarted,
	}

	for i := range phases {
		state := btcore.NewConnectionState()
		for _, ev := range phases[:i+1] {
			if _, accepted := applyEvent(&state, ev); !accepted {
				t.Fatalf("setup event %s rejected", ev)
			}
		}

		if _, accepted := applyEvent(&state, models.LinkEventReset); !accepted {
			t.Errorf("reset rejected from phase %s", state.Phase())
		}
		if state.Phase() != btcore.PhaseIdle {
			t.Errorf("after reset phase = %s, want idle", state.Phase())
		}
		if state.IsConnected() || state.IsAuthenticated() {
			t.Error("reset must clear connected and authenticated")
		}
	}
}

func TestApplyEventConnectionBits(t *testing.T) {
	state := btcore.NewConnectionState()

	for _, ev := range []models.LinkEvent{
		models.LinkEventDiscovered,
		models.LinkEventConnectRequested,
		models.LinkEventConnected,
	} {
		if _, accepted := applyEvent(&state, ev); !accepted {
			t.Fatalf("event %s rejected", ev)
		}
	}
	if !state.IsConnected() {
		t.Error("connected event must set the connected bit")
	}
	if state.IsAuthenticated() {
		t.Error("authenticated must not be set before encryption completes")
	}

	for _, ev := range []models.LinkEvent{
		models.LinkEventAuthStarted,
		models.LinkEventEncryptionStarted,
		models.LinkEventEncrypted,
	} {
		if _, accepted := applyEvent(&state, ev); !accepted {
			t.Fatalf("event %s rejected", ev)
		}
	}
	if !state.IsAuthenticated() {
		t.Error("encrypted event must set the authenticated bit")
	}

	if _, accepted := applyEvent(&state, models.LinkEventServicesRequested); !accepted {
		t.Fatal("services_requested rejected")
	}
	if _, accepted := applyEvent(&state, models.LinkEventFailed); !accepted {
		t.Fatal("failed event rejected")
	}
	if state.IsConnected() || state.IsAuthenticated() {
		t.Error("failure must clear connected and authenticated")
	}
}

func TestParseLinkSubject(t *testing.T) {
	adapter, event, err := parseLinkSubject("bluetooth.adapter.hci0.link.connected")
	if err != nil {
		t.Fatalf("parseLinkSubject: %v", err)
	}
	if adapter != "hci0" {
		t.Errorf("adapter = %q, want hci0", adapter)
	}
	if event != models.LinkEventConnected {
		t.Errorf("event = %q, want connected", event)
	}

	for _, subject := range []string{
		"bluetooth.adapter.hci0.uplink.connected",
		"bluetooth.hci0.link.connected",
		"bluetooth.adapter.hci0.link",
	} {
		if _, _, err := parseLinkSubject(subject); err == nil {
			t.Errorf("subject %q must be rejected", subject)
		}
	}
}
