// Package bluez bridges a local BlueZ adapter onto the message bus:
// it watches org.bluez.Device1 objects over D-Bus and publishes the
// resulting link events for the tracker to consume.
package bluez

import (
	"strings"

	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

const (
	bluezService    = "org.bluez"
	deviceIface     = "org.bluez.Device1"
	adapterIface    = "org.bluez.Adapter1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

// macFromDevicePath extracts the peer address from a BlueZ device object
// path of the form /org/bluez/<adapter>/dev_XX_XX_XX_XX_XX_XX.
func macFromDevicePath(path string) (btcore.BDAddr, bool) {
	idx := strings.LastIndex(path, "/dev_")
	if idx < 0 {
		return btcore.BDAddr{}, false
	}
	mac := strings.ReplaceAll(path[idx+5:], "_", ":")
	addr, err := btcore.ParseBDAddr(mac)
	if err != nil {
		return btcore.BDAddr{}, false
	}
	return addr, true
}

// adapterFromDevicePath extracts the adapter name from a BlueZ device
// object path.
func adapterFromDevicePath(path string) string {
	const prefix = "/org/bluez/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
