//go:build linux

package bluez

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/config"
	"github.com/bluetooth-registry/bt-registry-server/internal/models"
)

// Bridge watches one BlueZ adapter over the system bus and publishes
// link events for every device it manages.
type Bridge struct {
	nc      *nats.Conn
	cfg     *config.BluezConfig
	bus     *dbus.Conn
	adapter dbus.ObjectPath

	// connected tracks the last known Connected property per device
	// path so property floods produce one event per edge.
	connected map[dbus.ObjectPath]bool
}

// NewBridge creates an adapter bridge
func NewBridge(nc *nats.Conn, cfg *config.BluezConfig) *Bridge {
	return &Bridge{
		nc:        nc,
		cfg:       cfg,
		adapter:   dbus.ObjectPath("/org/bluez/" + cfg.Adapter),
		connected: make(map[dbus.ObjectPath]bool),
	}
}

// Run connects to the system bus, starts discovery, and forwards device
// signals until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	bus, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	b.bus = bus
	defer bus.Close()

	if err := b.startDiscovery(ctx); err != nil {
		return err
	}
	defer func() {
		_ = bus.Object(bluezService, b.adapter).Call(adapterIface+".StopDiscovery", 0).Err
	}()

	sigCh := make(chan *dbus.Signal, 64)
	bus.Signal(sigCh)
	defer bus.RemoveSignal(sigCh)

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(objManagerIface), dbus.WithMatchMember("InterfacesAdded")},
		{dbus.WithMatchInterface(propsIface), dbus.WithMatchMember("PropertiesChanged")},
	}
	for _, m := range matches {
		if err := bus.AddMatchSignal(m...); err != nil {
			return fmt.Errorf("add match signal: %w", err)
		}
	}
	defer func() {
		for _, m := range matches {
			_ = bus.RemoveMatchSignal(m...)
		}
	}()

	if err := b.primeKnownDevices(); err != nil {
		log.Warn().Err(err).Msg("Failed to prime known devices")
	}

	log.Info().
		Str("adapter", b.cfg.Adapter).
		Msg("Adapter bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sigCh:
			if sig == nil {
				continue
			}
			b.handleSignal(sig)
		}
	}
}

// startDiscovery enables device discovery on the adapter. The discovery
// TTL only bounds how long we wait for the adapter to appear.
func (b *Bridge) startDiscovery(ctx context.Context) error {
	deadline := time.Now().Add(b.cfg.DiscoveryTTL)
	obj := b.bus.Object(bluezService, b.adapter)

	for {
		err := obj.Call(adapterIface+".StartDiscovery", 0).Err
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("start discovery on %s: %w", b.cfg.Adapter, err)
		}

		log.Warn().Err(err).Str("adapter", b.cfg.Adapter).Msg("Adapter not ready, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// primeKnownDevices publishes a discovery sighting for every device
// BlueZ already manages on our adapter.
func (b *Bridge) primeKnownDevices() error {
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.bus.Object(bluezService, dbus.ObjectPath("/")).Call(objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return fmt.Errorf("GetManagedObjects: %w", call.Err)
	}
	if err := call.Store(&objs); err != nil {
		return fmt.Errorf("decode GetManagedObjects: %w", err)
	}

	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		b.emitDevice(path, props, models.LinkEventDiscovered)
	}
	return nil
}

func (b *Bridge) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case objManagerIface + ".InterfacesAdded":
		if len(sig.Body) < 2 {
			return
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		props, ok := ifaces[deviceIface]
		if !ok {
			return
		}
		b.emitDevice(path, props, models.LinkEventDiscovered)

	case propsIface + ".PropertiesChanged":
		if len(sig.Body) < 2 {
			return
		}
		iface, _ := sig.Body[0].(string)
		if iface != deviceIface {
			return
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		b.handleDeviceChange(sig.Path, changed)
	}
}

// handleDeviceChange translates a Device1 property change into link events.
// BlueZ only exposes the outcome of pairing and service discovery, so the
// intermediate handshake events are synthesized on each edge.
func (b *Bridge) handleDeviceChange(path dbus.ObjectPath, changed map[string]dbus.Variant) {
	if adapterFromDevicePath(string(path)) != b.cfg.Adapter {
		return
	}

	if v, ok := changed["Connected"]; ok {
		connected, _ := v.Value().(bool)
		was := b.connected[path]
		b.connected[path] = connected

		switch {
		case connected && !was:
			b.emitDevice(path, changed, models.LinkEventConnectRequested)
			b.emitDevice(path, changed, models.LinkEventConnected)
		case !connected && was:
			b.emitDevice(path, changed, models.LinkEventDisconnect)
			b.emitDevice(path, changed, models.LinkEventReset)
		}
	}

	if v, ok := changed["Paired"]; ok {
		if paired, _ := v.Value().(bool); paired {
			b.emitDevice(path, changed, models.LinkEventAuthStarted)
			b.emitDevice(path, changed, models.LinkEventEncryptionStarted)
			b.emitDevice(path, changed, models.LinkEventEncrypted)
		}
	}

	if v, ok := changed["ServicesResolved"]; ok {
		if resolved, _ := v.Value().(bool); resolved {
			b.emitDevice(path, changed, models.LinkEventServicesRequested)
			b.emitDevice(path, changed, models.LinkEventServicesDone)
		}
	}

	// An RSSI update on a connected device is a liveness signal; on an
	// unconnected one it is just another sighting.
	if _, ok := changed["RSSI"]; ok {
		if b.connected[path] {
			b.emitDevice(path, changed, models.LinkEventMaintain)
		} else {
			b.emitDevice(path, changed, models.LinkEventDiscovered)
		}
	}
}

// emitDevice builds a link event from the device properties and publishes it
func (b *Bridge) emitDevice(path dbus.ObjectPath, props map[string]dbus.Variant, event models.LinkEvent) {
	addr, ok := macFromDevicePath(string(path))
	if !ok {
		log.Debug().Str("path", string(path)).Msg("Skipping device with unparseable path")
		return
	}
	adapter := adapterFromDevicePath(string(path))
	if adapter != b.cfg.Adapter {
		return
	}

	msg := models.LinkEventMessage{
		Adapter:    adapter,
		MACAddr:    models.MACAddr(addr),
		Event:      event,
		ObservedAt: time.Now(),
	}

	if v, ok := props["Name"]; ok {
		msg.Name, _ = v.Value().(string)
	} else if v, ok := props["Alias"]; ok {
		msg.Name, _ = v.Value().(string)
	}
	if v, ok := props["Class"]; ok {
		if class, ok := v.Value().(uint32); ok {
			msg.ClassOfDev = &class
		}
	}
	if v, ok := props["RSSI"]; ok {
		if rssi, ok := v.Value().(int16); ok {
			r := int(rssi)
			msg.RSSI = &r
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal link event")
		return
	}

	subject := fmt.Sprintf("bluetooth.adapter.%s.link.%s", adapter, event)
	if err := b.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish link event")
		return
	}

	log.Debug().
		Str("mac", msg.MACAddr.String()).
		Str("event", string(event)).
		Msg("Published link event")
}
