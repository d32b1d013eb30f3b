package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/internal/storage"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// ========== Link session handlers ==========

// HandleListPeerSessions lists a peer's link sessions
func (s *RESTServer) HandleListPeerSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid peer id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, total, err := s.store.ListLinkSessions(ctx, id, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    total,
	})
}

// HandleGetSession gets a link session with its decoded state
func (s *RESTServer) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := s.store.GetLinkSession(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	state, err := session.DecodeState()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"state":   stateView(&state),
	})
}

// HandleListEvents lists event logs
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	var filters storage.EventLogFilters

	if pid := r.URL.Query().Get("peer_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid peer_id")
			return
		}
		filters.PeerID = &id
	}

	if sid := r.URL.Query().Get("session_id"); sid != "" {
		id, err := uuid.Parse(sid)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid session_id")
			return
		}
		filters.SessionID = &id
	}

	if mac := r.URL.Query().Get("mac_addr"); mac != "" {
		addr, err := btcore.ParseBDAddr(mac)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid mac_addr")
			return
		}
		m := models.MACAddr(addr)
		filters.MACAddr = &m
	}

	if adapter := r.URL.Query().Get("adapter"); adapter != "" {
		filters.Adapter = &adapter
	}

	if t := r.URL.Query().Get("type"); t != "" {
		eventType := models.EventType(t)
		filters.Type = &eventType
	}

	if l := r.URL.Query().Get("level"); l != "" {
		level := models.EventLevel(l)
		filters.Level = &level
	}

	if start := r.URL.Query().Get("start"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid start time")
			return
		}
		filters.StartTime = &t
	}

	if end := r.URL.Query().Get("end"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid end time")
			return
		}
		filters.EndTime = &t
	}

	events, total, err := s.store.ListEventLogs(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// stateView flattens a connection state for API responses
func stateView(state *btcore.ConnectionState) map[string]interface{} {
	view := map[string]interface{}{
		"phase":         state.Phase().String(),
		"remote_addr":   state.RemoteAddr().String(),
		"connected":     state.IsConnected(),
		"authenticated": state.IsAuthenticated(),
		"link_quality":  state.LinkQuality(),
		"link_type":     state.LinkType(),
	}

	if handle, ok := state.ConnectionHandle(); ok {
		view["conn_handle"] = handle.Raw()
	}

	return view
}
