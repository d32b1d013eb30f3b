package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/internal/storage"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
	"github.com/bluetooth-registry/bt-registry-server/pkg/crypto"
)

// ========== Peer handlers ==========

// HandleListPeers lists peers
func (s *RESTServer) HandleListPeers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	var filters storage.PeerFilters
	if adapter := r.URL.Query().Get("adapter"); adapter != "" {
		filters.Adapter = &adapter
	}
	if devType := r.URL.Query().Get("device_type"); devType != "" {
		filters.DeviceType = &devType
	}
	if paired := r.URL.Query().Get("paired"); paired != "" {
		v := paired == "true"
		filters.Paired = &v
	}
	if connected := r.URL.Query().Get("connected"); connected != "" {
		v := connected == "true"
		filters.Connected = &v
	}

	peers, total, err := s.store.ListPeers(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"peers": peers,
		"total": total,
	})
}

// HandleCreatePeer registers a new peer
func (s *RESTServer) HandleCreatePeer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		MACAddr     string `json:"mac_addr" validate:"required,mac"`
		Adapter     string `json:"adapter" validate:"required"`
		Name        string `json:"name" validate:"required,max=32"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := btcore.ParseBDAddr(req.MACAddr)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid MAC address")
		return
	}

	// The bonded list is bounded per adapter
	count, err := s.store.CountPeers(ctx, req.Adapter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if count >= int64(s.config.Registry.MaxPeersPerAdapter) {
		s.respondError(w, http.StatusConflict, "adapter peer list is full")
		return
	}

	rec, err := btcore.NewDeviceRecord(addr, []byte(req.Name))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	peer := &models.Peer{
		MACAddr:     models.MACAddr(addr),
		Adapter:     req.Adapter,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := peer.SetRecord(&rec); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.CreatePeer(ctx, peer); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "peer already registered")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logPeerEvent(ctx, peer, models.EventTypePeerCreated, "peer registered")

	s.respondJSON(w, http.StatusCreated, peer)
}

// HandleGetPeer gets a peer with its decoded record
func (s *RESTServer) HandleGetPeer(w http.ResponseWriter, r *http.Request) {
	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"peer":   peer,
		"record": recordView(&rec),
	})
}

// HandleUpdatePeer updates peer metadata
func (s *RESTServer) HandleUpdatePeer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" validate:"max=32"`
		Description string `json:"description"`
		IsDisabled  *bool  `json:"is_disabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Name != "" {
		if err := rec.SetName([]byte(req.Name)); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		peer.Name = req.Name
	}
	if req.Description != "" {
		peer.Description = req.Description
	}
	if req.IsDisabled != nil {
		peer.IsDisabled = *req.IsDisabled
	}

	if err := peer.SetRecord(&rec); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.UpdatePeer(ctx, peer); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, peer)
}

// HandleDeletePeer removes a peer
func (s *RESTServer) HandleDeletePeer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid peer id")
		return
	}

	if err := s.store.DeletePeer(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "peer not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSetPairingKey sets a peer's pairing key
func (s *RESTServer) HandleSetPairingKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Key string `json:"key" validate:"required,max=128"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := hex.DecodeString(req.Key)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "pairing key must be hex encoded")
		return
	}

	if err := s.applyPairingKey(ctx, peer, key); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, peer)
}

// HandleGeneratePairingKey generates and stores a fresh pairing key
func (s *RESTServer) HandleGeneratePairingKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Length int `json:"length"`
	}

	// Body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Length = 0
	}
	if req.Length == 0 {
		req.Length = s.config.Registry.DefaultPairingKeyLen
	}

	key, err := crypto.GeneratePairingKey(req.Length)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.applyPairingKey(ctx, peer, key); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The key is returned once, at generation time only
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"peer": peer,
		"key":  hex.EncodeToString(key),
	})
}

// HandleSetClassOfDevice sets a peer's class of device
func (s *RESTServer) HandleSetClassOfDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		ClassOfDevice string `json:"class_of_device" validate:"required,len=6"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cod, err := hex.DecodeString(req.ClassOfDevice)
	if err != nil || len(cod) != 3 {
		s.respondError(w, http.StatusBadRequest, "class of device must be 3 hex bytes")
		return
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec.SetClassOfDevice(btcore.ClassOfDevice{cod[0], cod[1], cod[2]})

	if err := peer.SetRecord(&rec); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.UpdatePeer(ctx, peer); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"peer":        peer,
		"device_type": rec.DeviceType().String(),
	})
}

// HandleSetFlags sets and clears peer flag bits
func (s *RESTServer) HandleSetFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	peer, ok := s.peerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Set   uint8 `json:"set"`
		Clear uint8 `json:"clear"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := peer.DecodeRecord()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec.AddFlag(btcore.DeviceFlag(req.Set))
	rec.RemoveFlag(btcore.DeviceFlag(req.Clear))

	if err := peer.SetRecord(&rec); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.UpdatePeer(ctx, peer); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, peer)
}

// ========== Peer helpers ==========

// peerFromRequest loads the peer addressed by the {id} route parameter
func (s *RESTServer) peerFromRequest(w http.ResponseWriter, r *http.Request) (*models.Peer, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid peer id")
		return nil, false
	}

	peer, err := s.store.GetPeer(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "peer not found")
			return nil, false
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	return peer, true
}

// applyPairingKey stores the key in the record and marks the peer paired
func (s *RESTServer) applyPairingKey(ctx context.Context, peer *models.Peer, key []byte) error {
	rec, err := peer.DecodeRecord()
	if err != nil {
		return err
	}

	if err := rec.SetPairingKey(key); err != nil {
		return err
	}
	rec.AddFlag(btcore.FlagPaired)

	if err := peer.SetRecord(&rec); err != nil {
		return err
	}

	now := time.Now()
	peer.PairedAt = &now

	if err := s.store.UpdatePeer(ctx, peer); err != nil {
		return err
	}

	s.logPeerEvent(ctx, peer, models.EventTypePaired, "pairing key stored")
	return nil
}

// logPeerEvent records a peer event, logging on failure instead of erroring
func (s *RESTServer) logPeerEvent(ctx context.Context, peer *models.Peer, eventType models.EventType, desc string) {
	event := &models.EventLog{
		PeerID:      &peer.ID,
		MACAddr:     &peer.MACAddr,
		Adapter:     peer.Adapter,
		Type:        eventType,
		Level:       models.EventLevelInfo,
		Code:        string(eventType),
		Description: desc,
	}

	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Warn().Err(err).Str("peer", peer.MACAddr.String()).Msg("Failed to record event")
	}
}

// recordView flattens a device record for API responses
func recordView(rec *btcore.DeviceRecord) map[string]interface{} {
	params := rec.ConnectionParams()
	security := rec.SecurityInfo()

	return map[string]interface{}{
		"addr":             rec.Addr().String(),
		"name":             string(rec.Name()),
		"device_type":      rec.DeviceType().String(),
		"flags":            uint8(rec.Flags()),
		"paired":           rec.IsPaired(),
		"connected":        rec.IsConnected(),
		"trusted":          rec.IsTrusted(),
		"connection_count": rec.ConnectionCount(),
		"last_seen":        rec.LastSeen(),
		"last_connected":   rec.LastConnected(),
		"vendor_id":        rec.VendorID(),
		"product_id":       rec.ProductID(),
		"version":          rec.Version(),
		"connection": map[string]interface{}{
			"handle":             params.ConnectionHandle,
			"interval":           params.ConnectionInterval,
			"latency":            params.ConnectionLatency,
			"supervision_timeout": params.SupervisionTimeout,
			"link_type":          params.LinkType,
			"encryption_enabled": params.EncryptionEnabled,
			"rssi":               params.RSSI,
		},
		"security": map[string]interface{}{
			"level":         security.SecurityLevel,
			"authenticated": security.Authenticated != 0,
			"encrypted":     security.Encrypted != 0,
		},
	}
}
