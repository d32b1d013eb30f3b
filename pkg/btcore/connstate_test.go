package btcore

import "testing"

func TestConnHandle(t *testing.T) {
	h, err := NewConnHandle(0x0042)
	if err != nil {
		t.Fatalf("NewConnHandle failed: %v", err)
	}
	if h.Raw() != 0x0042 {
		t.Errorf("expected 0x0042, got 0x%04X", h.Raw())
	}

	// Round trip through the raw representation.
	if ConnHandle(h.Raw()) != h {
		t.Error("round trip changed the handle")
	}

	// Boundaries.
	if _, err := NewConnHandle(0x0000); err != nil {
		t.Errorf("0x0000 must be accepted: %v", err)
	}
	if _, err := NewConnHandle(MaxConnHandle); err != nil {
		t.Errorf("0x0EFF must be accepted: %v", err)
	}
	if _, err := NewConnHandle(0x0F00); err == nil {
		t.Error("0x0F00 must be rejected")
	}
	if _, err := NewConnHandle(0xFFFF); err == nil {
		t.Error("0xFFFF must be rejected")
	}
}

func TestNewConnectionState(t *testing.T) {
	state := NewConnectionState()
	if state.Phase() != PhaseIdle {
		t.Errorf("expected initial phase idle, got %s", state.Phase())
	}
	if state.IsConnected() || state.IsAuthenticated() {
		t.Error("new state must not report connected or authenticated")
	}
	if state.LinkQuality() != 0 {
		t.Errorf("expected zero link quality, got %d", state.LinkQuality())
	}
	if _, ok := state.ConnectionHandle(); ok {
		t.Error("new state must not report a connection handle")
	}
}

func TestConnectionStateFlags(t *testing.T) {
	state := NewConnectionState()

	state.SetConnected(true)
	if !state.IsConnected() {
		t.Error("connected flag not set")
	}
	state.SetAuthenticated(true)
	if !state.IsAuthenticated() {
		t.Error("authenticated flag not set")
	}

	// The two bits are independent.
	state.SetConnected(false)
	if state.IsConnected() {
		t.Error("connected flag not cleared")
	}
	if !state.IsAuthenticated() {
		t.Error("clearing connected must not clear authenticated")
	}
}

func TestConnectionStateRemoteDevice(t *testing.T) {
	state := NewConnectionState()

	rec, err := NewDeviceRecord(testAddr, []byte("Remote"))
	if err != nil {
		t.Fatalf("NewDeviceRecord failed: %v", err)
	}
	state.SetRemoteDevice(rec)

	if string(state.RemoteDevice().Name()) != "Remote" {
		t.Error("remote device not stored")
	}
	if state.RemoteAddr() != testAddr {
		t.Errorf("expected remote address %s, got %s", testAddr, state.RemoteAddr())
	}

	other := BDAddr{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	state.SetRemoteAddr(other)
	if state.RemoteAddr() != other {
		t.Error("SetRemoteAddr did not update the embedded record")
	}
}

func TestConnectionStateHandle(t *testing.T) {
	state := NewConnectionState()

	h, _ := NewConnHandle(0x0042)
	state.SetConnectionHandle(h)
	got, ok := state.ConnectionHandle()
	if !ok || got != h {
		t.Errorf("expected handle 0x0042, got 0x%04X (ok=%v)", got.Raw(), ok)
	}

	// Zero reads back as absent.
	state.SetConnectionHandle(0)
	if _, ok := state.ConnectionHandle(); ok {
		t.Error("zero handle must read back as absent")
	}
}

func TestConnectionStateLinkTypeAndQuality(t *testing.T) {
	state := NewConnectionState()

	state.SetLinkType(LinkTypeACL)
	if state.LinkType() != LinkTypeACL {
		t.Errorf("expected ACL, got 0x%02x", state.LinkType())
	}
	state.SetLinkType(LinkTypeSCO)
	if state.LinkType() != LinkTypeSCO {
		t.Errorf("expected SCO, got 0x%02x", state.LinkType())
	}

	state.SetLinkQuality(85)
	if state.LinkQuality() != 85 {
		t.Errorf("expected link quality 85, got %d", state.LinkQuality())
	}
	state.SetLinkQuality(255)
	if state.LinkQuality() != 255 {
		t.Errorf("expected link quality 255, got %d", state.LinkQuality())
	}
}

func TestHappyPathSequence(t *testing.T) {
	state := NewConnectionState()
	path := []ConnectionPhase{
		PhaseDiscovery, PhaseConnecting, PhaseConnected, PhaseAuthenticating,
		PhaseSettingUpEncryption, PhaseFullyConnected, PhaseServiceDiscovery,
		PhaseReady, PhaseMaintaining, PhaseDisconnecting, PhaseIdle,
	}

	for _, next := range path {
		if !state.AdvanceToPhase(next) {
			t.Fatalf("transition %s -> %s rejected", state.Phase(), next)
		}
		if state.Phase() != next {
			t.Fatalf("expected phase %s, got %s", next, state.Phase())
		}
	}
}

func TestAllValidTransitions(t *testing.T) {
	expected := map[ConnectionPhase][]ConnectionPhase{
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
		PhaseDisconnecting:       {},
	}

	for current := PhaseIdle; current <= PhaseDisconnecting; current++ {
		allowed := map[ConnectionPhase]bool{PhaseIdle: true}
		for _, next := range expected[current] {
			allowed[next] = true
		}

		for next := PhaseIdle; next <= PhaseDisconnecting; next++ {
			state := NewConnectionState()
			state.SetPhase(current)

			got := state.AdvanceToPhase(next)
			if got != allowed[next] {
				t.Errorf("%s -> %s: expected %v, got %v", current, next, allowed[next], got)
			}
			if got && state.Phase() != next {
				t.Errorf("%s -> %s: accepted but phase is %s", current, next, state.Phase())
			}
			if !got && state.Phase() != current {
				t.Errorf("%s -> %s: rejected but phase changed to %s", current, next, state.Phase())
			}
		}
	}
}

func TestEmergencyIdleTransition(t *testing.T) {
	for p := PhaseIdle; p <= PhaseDisconnecting; p++ {
		state := NewConnectionState()
		state.SetPhase(p)
		if !state.AdvanceToPhase(PhaseIdle) {
			t.Errorf("emergency reset from %s rejected", p)
		}
		if state.Phase() != PhaseIdle {
			t.Errorf("emergency reset from %s left phase %s", p, state.Phase())
		}
	}
}

func TestInvalidTransitionLeavesPhase(t *testing.T) {
	tests := []struct {
		current, next ConnectionPhase
	}{
		{PhaseIdle, PhaseConnected},
		{PhaseIdle, PhaseReady},
		{PhaseDiscovery, PhaseConnected},
		{PhaseConnecting, PhaseAuthenticating},
		{PhaseConnected, PhaseReady},
		{PhaseDisconnecting, PhaseReconnecting},
		{PhaseDisconnecting, PhaseConnecting},
		{PhaseFailed, PhaseConnecting},
		{PhaseReady, PhaseConnecting},
	}

	for _, tt := range tests {
		state := NewConnectionState()
		state.SetPhase(tt.current)
		if state.AdvanceToPhase(tt.next) {
			t.Errorf("transition %s -> %s should be rejected", tt.current, tt.next)
		}
		if state.Phase() != tt.current {
			t.Errorf("rejected transition mutated phase to %s", state.Phase())
		}
	}
}

func TestErrorRecoveryPath(t *testing.T) {
	state := NewConnectionState()

	// Connect attempt fails, retry through Reconnecting.
	for _, next := range []ConnectionPhase{PhaseDiscovery, PhaseConnecting, PhaseFailed, PhaseReconnecting, PhaseConnecting, PhaseConnected} {
		if !state.AdvanceToPhase(next) {
			t.Fatalf("transition %s -> %s rejected", state.Phase(), next)
		}
	}

	// Maintaining can drop back into reconnection.
	state.SetPhase(PhaseMaintaining)
	if !state.AdvanceToPhase(PhaseReconnecting) {
		t.Fatal("maintaining -> reconnecting rejected")
	}
	if !state.AdvanceToPhase(PhaseFailed) {
		t.Fatal("reconnecting -> failed rejected")
	}
}

func TestPhasePredicates(t *testing.T) {
	connected := map[ConnectionPhase]bool{
		PhaseConnected: true, PhaseAuthenticating: true, PhaseSettingUpEncryption: true,
		PhaseFullyConnected: true, PhaseServiceDiscovery: true, PhaseReady: true, PhaseMaintaining: true,
	}
	secure := map[ConnectionPhase]bool{
		PhaseFullyConnected: true, PhaseServiceDiscovery: true, PhaseReady: true, PhaseMaintaining: true,
	}
	ready := map[ConnectionPhase]bool{
		PhaseReady: true, PhaseMaintaining: true,
	}

	for p := PhaseIdle; p <= PhaseDisconnecting; p++ {
		if p.IsConnected() != connected[p] {
			t.Errorf("%s: IsConnected expected %v", p, connected[p])
		}
		if p.IsSecure() != secure[p] {
			t.Errorf("%s: IsSecure expected %v", p, secure[p])
		}
		if p.IsReady() != ready[p] {
			t.Errorf("%s: IsReady expected %v", p, ready[p])
		}
	}
}

func TestParseConnectionPhase(t *testing.T) {
	for p := PhaseIdle; p <= PhaseDisconnecting; p++ {
		got, ok := ParseConnectionPhase(p.String())
		if !ok || got != p {
			t.Errorf("ParseConnectionPhase(%q) = %v, %v", p.String(), got, ok)
		}
	}
	if _, ok := ParseConnectionPhase("bogus"); ok {
		t.Error("unknown phase name must not parse")
	}
}

func TestOutOfRangePhaseReadsAsIdle(t *testing.T) {
	state := NewConnectionState()
	state.phase = 200
	if state.Phase() != PhaseIdle {
		t.Errorf("expected out-of-range phase to read as idle, got %s", state.Phase())
	}
}
