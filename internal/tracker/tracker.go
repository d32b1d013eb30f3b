package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/config"
	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/internal/storage"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// Tracker consumes link events from adapter bridges and drives each
// peer's connection state machine, persisting sessions and publishing
// phase notifications.
type Tracker struct {
	nc    *nats.Conn
	store storage.Store
	cfg   *config.RegistryConfig
	subs  []*nats.Subscription
}

// NewTracker creates a link tracker
func NewTracker(nc *nats.Conn, store storage.Store, cfg *config.RegistryConfig) *Tracker {
	return &Tracker{
		nc:    nc,
		store: store,
		cfg:   cfg,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and the maintenance loop, blocking until
// the context is cancelled.
func (t *Tracker) Start(ctx context.Context) error {
	sub, err := t.nc.Subscribe("bluetooth.adapter.*.link.*", t.handleLinkEvent)
	if err != nil {
		return fmt.Errorf("subscribe link events: %w", err)
	}
	t.subs = append(t.subs, sub)

	log.Info().
		Int("subscriptions", len(t.subs)).
		Msg("Link tracker started")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, sub := range t.subs {
				sub.Unsubscribe()
			}
			return ctx.Err()

		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

// sweep closes stale sessions and prunes old event logs
func (t *Tracker) sweep(ctx context.Context) {
	closed, err := t.store.CloseStaleLinkSessions(ctx, time.Now().Add(-t.cfg.SessionStaleAfter))
	if err != nil {
		log.Error().Err(err).Msg("Failed to close stale sessions")
	} else if closed > 0 {
		log.Info().Int64("sessions", closed).Msg("Closed stale link sessions")
	}

	pruned, err := t.store.DeleteEventLogsBefore(ctx, time.Now().Add(-t.cfg.EventRetention))
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune event logs")
	} else if pruned > 0 {
		log.Debug().Int64("events", pruned).Msg("Pruned old event logs")
	}
}

// handleLinkEvent handles one link event message
func (t *Tracker) handleLinkEvent(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received link event")

	var ev models.LinkEventMessage
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to unmarshal link event")
		return
	}

	// The subject carries the adapter and event name; the body wins
	// when both are present.
	if ev.Adapter == "" || ev.Event == "" {
		adapter, event, err := parseLinkSubject(msg.Subject)
		if err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("Bad link event subject")
			return
		}
		if ev.Adapter == "" {
			ev.Adapter = adapter
		}
		if ev.Event == "" {
			ev.Event = event
		}
	}

	ctx := context.Background()
	if err := t.processEvent(ctx, &ev); err != nil {
		log.Error().
			Err(err).
			Str("mac", ev.MACAddr.String()).
			Str("event", string(ev.Event)).
			Msg("Failed to process link event")
	}
}

// parseLinkSubject extracts adapter and event from
// bluetooth.adapter.<adapter>.link.<event>
func parseLinkSubject(subject string) (string, models.LinkEvent, error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 5 || parts[0] != "bluetooth" || parts[1] != "adapter" || parts[3] != "link" {
		return "", "", fmt.Errorf("unexpected subject %q", subject)
	}
	return parts[2], models.LinkEvent(parts[4]), nil
}

// processEvent updates the peer, the session state machine, and the
// event log for one link event.
func (t *Tracker) processEvent(ctx context.Context, ev *models.LinkEventMessage) error {
	peer, err := t.findOrRegisterPeer(ctx, ev)
	if err != nil {
		return err
	}
	if peer == nil {
		// Unregistered peer and no capacity to register it
		return nil
	}

	t.refreshPeerSighting(ctx, peer, ev)

	session, state, err := t.sessionForEvent(ctx, peer, ev)
	if err != nil {
		return err
	}
	if session == nil {
		// Event needs no session (e.g. a discovery sighting)
		return nil
	}

	previous, accepted := applyEvent(state, ev.Event)

	if accepted {
		t.applyLinkDetails(state, ev)
		if err := t.persistTransition(ctx, peer, session, state, ev); err != nil {
			return err
		}

		t.logEvent(ctx, peer, session, models.EventTypePhaseChange, models.EventLevelDebug,
			fmt.Sprintf("%s -> %s on %s", previous, state.Phase(), ev.Event))
	} else {
		log.Warn().
			Str("mac", ev.MACAddr.String()).
			Str("event", string(ev.Event)).
			Str("phase", previous.String()).
			Msg("Transition rejected")

		t.logEvent(ctx, peer, session, models.EventTypeTransitionRejected, models.EventLevelWarning,
			fmt.Sprintf("event %s rejected in phase %s", ev.Event, previous))
	}

	t.publishPhase(peer, state, ev, previous, accepted)
	return nil
}

// findOrRegisterPeer looks the peer up, registering it on first sighting
// if the adapter's bonded list has room.
func (t *Tracker) findOrRegisterPeer(ctx context.Context, ev *models.LinkEventMessage) (*models.Peer, error) {
	peer, err := t.store.GetPeerByMAC(ctx, ev.Adapter, ev.MACAddr)
	if err == nil {
		return peer, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	if ev.Event != models.LinkEventDiscovered {
		// Only discovery registers new peers
		return nil, nil
	}

	count, err := t.store.CountPeers(ctx, ev.Adapter)
	if err != nil {
		return nil, err
	}
	if count >= int64(t.cfg.MaxPeersPerAdapter) {
		log.Warn().
			Str("adapter", ev.Adapter).
			Str("mac", ev.MACAddr.String()).
			Msg("Adapter peer list full, discovery ignored")
		return nil, nil
	}

	name := ev.Name
	if name == "" {
		name = ev.MACAddr.String()
	}
	if len(name) > btcore.MaxDeviceNameLen {
		name = name[:btcore.MaxDeviceNameLen]
	}

	rec, err := btcore.NewDeviceRecord(ev.MACAddr.BDAddr(), []byte(name))
	if err != nil {
		return nil, fmt.Errorf("build device record: %w", err)
	}
	rec.AddFlag(btcore.FlagRecentlyDiscovered)

	peer = &models.Peer{
		MACAddr: ev.MACAddr,
		Adapter: ev.Adapter,
		Name:    name,
	}
	if err := peer.SetRecord(&rec); err != nil {
		return nil, err
	}

	if err := t.store.CreatePeer(ctx, peer); err != nil {
		return nil, err
	}

	log.Info().
		Str("adapter", ev.Adapter).
		Str("mac", ev.MACAddr.String()).
		Str("name", name).
		Msg("Peer discovered and registered")

	t.logEvent(ctx, peer, nil, models.EventTypeDiscovered, models.EventLevelInfo, "peer discovered")
	return peer, nil
}

// refreshPeerSighting updates the peer's sighting metadata from the event
func (t *Tracker) refreshPeerSighting(ctx context.Context, peer *models.Peer, ev *models.LinkEventMessage) {
	now := ev.ObservedAt
	if now.IsZero() {
		now = time.Now()
	}

	peer.LastSeenAt = &now
	if ev.RSSI != nil {
		peer.RSSI = ev.RSSI
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		log.Error().Err(err).Str("mac", peer.MACAddr.String()).Msg("Corrupt peer record")
		return
	}

	rec.SetLastSeen(uint32(now.Unix()))
	if ev.ClassOfDev != nil {
		cod := *ev.ClassOfDev
		rec.SetClassOfDevice(btcore.ClassOfDevice{byte(cod), byte(cod >> 8), byte(cod >> 16)})
	}

	if err := peer.SetRecord(&rec); err != nil {
		log.Error().Err(err).Str("mac", peer.MACAddr.String()).Msg("Failed to re-encode peer record")
		return
	}

	if err := t.store.UpdatePeer(ctx, peer); err != nil {
		log.Error().Err(err).Str("mac", peer.MACAddr.String()).Msg("Failed to update peer sighting")
	}
}

// sessionForEvent returns the open session for the peer, creating one
// when a connect request arrives. Discovery sightings outside a session
// return nil.
func (t *Tracker) sessionForEvent(ctx context.Context, peer *models.Peer, ev *models.LinkEventMessage) (*models.LinkSession, *btcore.ConnectionState, error) {
	session, err := t.store.GetOpenLinkSession(ctx, ev.Adapter, ev.MACAddr)
	if err == nil {
		state, err := session.DecodeState()
		if err != nil {
			return nil, nil, err
		}
		return session, &state, nil
	}
	if err != storage.ErrNotFound {
		return nil, nil, err
	}

	if ev.Event != models.LinkEventConnectRequested {
		return nil, nil, nil
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		return nil, nil, err
	}

	state := btcore.NewConnectionState()
	state.SetRemoteDevice(rec)

	session = &models.LinkSession{
		PeerID:  peer.ID,
		MACAddr: peer.MACAddr,
		Adapter: peer.Adapter,
	}
	if err := session.SetState(&state); err != nil {
		return nil, nil, err
	}
	if err := t.store.CreateLinkSession(ctx, session); err != nil {
		return nil, nil, err
	}

	return session, &state, nil
}

// applyLinkDetails copies optional link details from the event into the state
func (t *Tracker) applyLinkDetails(state *btcore.ConnectionState, ev *models.LinkEventMessage) {
	if ev.ConnHandle != nil {
		if handle, err := btcore.NewConnHandle(*ev.ConnHandle); err == nil {
			state.SetConnectionHandle(handle)
		} else {
			log.Warn().
				Uint16("handle", *ev.ConnHandle).
				Msg("Adapter reported invalid connection handle")
		}
	}
	if ev.LinkQuality != nil {
		state.SetLinkQuality(*ev.LinkQuality)
	}
}

// persistTransition saves the session and peer after an accepted transition
func (t *Tracker) persistTransition(ctx context.Context, peer *models.Peer, session *models.LinkSession, state *btcore.ConnectionState, ev *models.LinkEventMessage) error {
	now := ev.ObservedAt
	if now.IsZero() {
		now = time.Now()
	}
	session.LastActivityAt = now

	phase := state.Phase()
	if phase == btcore.PhaseIdle {
		session.EndedAt = &now
	}

	if err := session.SetState(state); err != nil {
		return err
	}
	if err := t.store.UpdateLinkSession(ctx, session); err != nil {
		return err
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		return err
	}

	switch phase {
	case btcore.PhaseConnected:
		params := rec.ConnectionParams()
		if handle, ok := state.ConnectionHandle(); ok {
			params.ConnectionHandle = handle
		}
		params.ConnectedAt = uint32(now.Unix())
		params.LastActivity = uint32(now.Unix())
		if ev.RSSI != nil {
			params.RSSI = int8(*ev.RSSI)
		}
		rec.UpdateConnectionParams(params)
		peer.LastConnectedAt = &now
		rec.SetLastConnected(uint32(now.Unix()))

		t.logEvent(ctx, peer, session, models.EventTypeLinkEstablished, models.EventLevelInfo, "link established")

	case btcore.PhaseFullyConnected:
		security := rec.SecurityInfo()
		security.Authenticated = 1
		security.Encrypted = 1
		rec.UpdateSecurityInfo(security)
		if peer.PairedAt == nil {
			peer.PairedAt = &now
		}

	case btcore.PhaseReconnecting:
		rec.RemoveFlag(btcore.FlagConnected)
		t.logEvent(ctx, peer, session, models.EventTypeLinkLost, models.EventLevelWarning, ev.Reason)

	case btcore.PhaseFailed:
		rec.RemoveFlag(btcore.FlagConnected)
		t.logEvent(ctx, peer, session, models.EventTypeLinkFailed, models.EventLevelError, ev.Reason)

	case btcore.PhaseIdle:
		rec.RemoveFlag(btcore.FlagConnected)
	}

	if err := peer.SetRecord(&rec); err != nil {
		return err
	}

	return t.store.UpdatePeer(ctx, peer)
}

// publishPhase publishes a phase notification for the peer
func (t *Tracker) publishPhase(peer *models.Peer, state *btcore.ConnectionState, ev *models.LinkEventMessage, previous btcore.ConnectionPhase, accepted bool) {
	notification := models.PhaseNotification{
		Adapter:   peer.Adapter,
		MACAddr:   peer.MACAddr,
		Phase:     state.Phase().String(),
		Previous:  previous.String(),
		Event:     ev.Event,
		Accepted:  accepted,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(notification)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal phase notification")
		return
	}

	subject := fmt.Sprintf("registry.peer.%s.phase", strings.ReplaceAll(peer.MACAddr.String(), ":", ""))
	if err := t.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish phase notification")
	}
}

// logEvent records an event row, logging on failure instead of erroring
func (t *Tracker) logEvent(ctx context.Context, peer *models.Peer, session *models.LinkSession, eventType models.EventType, level models.EventLevel, desc string) {
	if desc == "" {
		desc = string(eventType)
	}

	event := &models.EventLog{
		PeerID:      &peer.ID,
		MACAddr:     &peer.MACAddr,
		Adapter:     peer.Adapter,
		Type:        eventType,
		Level:       level,
		Code:        string(eventType),
		Description: desc,
	}
	if session != nil {
		event.SessionID = &session.ID
	}

	if err := t.store.CreateEventLog(ctx, event); err != nil {
		log.Error().Err(err).Msg("Failed to create event log")
	}
}
