package bluez

import (
	"testing"

	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

func TestMACFromDevicePath(t *testing.T) {
	addr, ok := macFromDevicePath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	if !ok {
		t.Fatal("expected a parseable device path")
	}
	want := btcore.BDAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if addr != want {
		t.Errorf("addr = %s, want %s", addr, want)
	}

	for _, path := range []string{
		"/org/bluez/hci0",
		"/org/bluez/hci0/dev_ZZ_BB_CC_DD_EE_FF",
		"/org/bluez/hci0/dev_AA_BB",
		"",
	} {
		if _, ok := macFromDevicePath(path); ok {
			t.Errorf("path %q must not parse", path)
		}
	}
}

func TestAdapterFromDevicePath(t *testing.T) {
	cases := map[string]string{
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF": "hci0",
		"/org/bluez/hci1":                       "hci1",
		"/org/freedesktop/thing":                "",
		"": "",
	}
	for path, want := range cases {
		if got := adapterFromDevicePath(path); got != want {
			t.Errorf("adapterFromDevicePath(%q) = %q, want %q", path, got, want)
		}
	}
}
