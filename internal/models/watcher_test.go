package models

import "testing"

func TestWatcherMatches(t *testing.T) {
	mac := MACAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	other := MACAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	all := &Watcher{}
	if !all.Matches("hci0", mac) || !all.Matches("hci1", other) {
		t.Error("watcher without filters must match everything")
	}

	byAdapter := &Watcher{Adapter: "hci0"}
	if !byAdapter.Matches("hci0", mac) {
		t.Error("adapter filter must match its adapter")
	}
	if byAdapter.Matches("hci1", mac) {
		t.Error("adapter filter must reject other adapters")
	}

	byMAC := &Watcher{MACAddr: &mac}
	if !byMAC.Matches("hci0", mac) {
		t.Error("mac filter must match its peer")
	}
	if byMAC.Matches("hci0", other) {
		t.Error("mac filter must reject other peers")
	}

	disabled := &Watcher{IsDisabled: true}
	if disabled.Matches("hci0", mac) {
		t.Error("disabled watcher must not match")
	}
}
