package api

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/internal/storage"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// HTTPIntegration is a watcher's webhook configuration
type HTTPIntegration struct {
	Enabled  bool              `json:"enabled"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
	Timeout  int               `json:"timeout"` // seconds
}

// MQTTIntegration is a watcher's MQTT broker configuration
type MQTTIntegration struct {
	Enabled      bool   `json:"enabled"`
	BrokerURL    string `json:"brokerUrl"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	TopicPattern string `json:"topicPattern"`
	QoS          byte   `json:"qos"`
	TLS          bool   `json:"tls"`
}

// HandleListWatchers lists watchers
func (s *RESTServer) HandleListWatchers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	watchers, err := s.store.ListWatchers(ctx, false)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"result":     watchers,
		"totalCount": len(watchers),
	})
}

// HandleCreateWatcher creates a watcher
func (s *RESTServer) HandleCreateWatcher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name        string `json:"name" validate:"required,max=64"`
		Description string `json:"description" validate:"max=255"`
		Adapter     string `json:"adapter" validate:"max=16"`
		MACAddr     string `json:"macAddr" validate:"mac"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	watcher := &models.Watcher{
		Name:        req.Name,
		Description: req.Description,
		Adapter:     req.Adapter,
	}

	if req.MACAddr != "" {
		addr, err := btcore.ParseBDAddr(req.MACAddr)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid mac address")
			return
		}
		mac := models.MACAddr(addr)
		watcher.MACAddr = &mac
	}

	if err := s.store.CreateWatcher(ctx, watcher); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "watcher already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, watcher)
}

// HandleGetWatcher gets a watcher
func (s *RESTServer) HandleGetWatcher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, watcher)
}

// HandleUpdateWatcher updates a watcher
func (s *RESTServer) HandleUpdateWatcher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Adapter     *string `json:"adapter"`
		MACAddr     *string `json:"macAddr"`
		IsDisabled  *bool   `json:"isDisabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		watcher.Name = *req.Name
	}
	if req.Description != nil {
		watcher.Description = *req.Description
	}
	if req.Adapter != nil {
		watcher.Adapter = *req.Adapter
	}
	if req.MACAddr != nil {
		if *req.MACAddr == "" {
			watcher.MACAddr = nil
		} else {
			addr, err := btcore.ParseBDAddr(*req.MACAddr)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid mac address")
				return
			}
			mac := models.MACAddr(addr)
			watcher.MACAddr = &mac
		}
	}
	if req.IsDisabled != nil {
		watcher.IsDisabled = *req.IsDisabled
	}

	if err := s.store.UpdateWatcher(ctx, watcher); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, watcher)
}

// HandleDeleteWatcher deletes a watcher
func (s *RESTServer) HandleDeleteWatcher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	if err := s.store.DeleteWatcher(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "watcher deleted",
	})
}

// HandleGetIntegrations returns a watcher's integration configurations
func (s *RESTServer) HandleGetIntegrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var httpConfig HTTPIntegration
	var mqttConfig MQTTIntegration

	if watcher.HTTPIntegration != nil && len(*watcher.HTTPIntegration) > 0 {
		httpBytes, _ := json.Marshal(*watcher.HTTPIntegration)
		json.Unmarshal(httpBytes, &httpConfig)
	}

	if watcher.MQTTIntegration != nil && len(*watcher.MQTTIntegration) > 0 {
		mqttBytes, _ := json.Marshal(*watcher.MQTTIntegration)
		json.Unmarshal(mqttBytes, &mqttConfig)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"http": httpConfig,
		"mqtt": mqttConfig,
	})
}

// HandleUpdateHTTPIntegration updates a watcher's webhook configuration
func (s *RESTServer) HandleUpdateHTTPIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	var req HTTPIntegration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled && req.Endpoint == "" {
		s.respondError(w, http.StatusBadRequest, "endpoint is required when integration is enabled")
		return
	}

	if req.Timeout == 0 {
		req.Timeout = 30
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpIntegration := models.Variables{
		"enabled":  req.Enabled,
		"endpoint": req.Endpoint,
		"headers":  req.Headers,
		"timeout":  req.Timeout,
	}

	watcher.HTTPIntegration = &httpIntegration

	if err := s.store.UpdateWatcher(ctx, watcher); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "HTTP integration updated successfully",
	})
}

// HandleUpdateMQTTIntegration updates a watcher's MQTT configuration
func (s *RESTServer) HandleUpdateMQTTIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	var req MQTTIntegration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled {
		if req.BrokerURL == "" {
			s.respondError(w, http.StatusBadRequest, "broker URL is required when integration is enabled")
			return
		}
		if req.TopicPattern == "" {
			req.TopicPattern = "registry/{watcher_id}/peer/{mac}/phase"
		}
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	mqttIntegration := models.Variables{
		"enabled":      req.Enabled,
		"brokerUrl":    req.BrokerURL,
		"username":     req.Username,
		"password":     req.Password,
		"topicPattern": req.TopicPattern,
		"qos":          req.QoS,
		"tls":          req.TLS,
	}

	watcher.MQTTIntegration = &mqttIntegration

	if err := s.store.UpdateWatcher(ctx, watcher); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().
		Str("watcherID", id.String()).
		Bool("enabled", req.Enabled).
		Msg("MQTT integration configuration updated")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "MQTT integration updated successfully",
	})
}

// HandleTestMQTTIntegration connects to the watcher's broker once to
// verify the configuration.
func (s *RESTServer) HandleTestMQTTIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid watcher id")
		return
	}

	watcher, err := s.store.GetWatcher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "watcher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := testMQTTIntegration(watcher); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("MQTT test failed: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "MQTT integration test successful",
	})
}

func testMQTTIntegration(watcher *models.Watcher) error {
	var config MQTTIntegration
	if watcher.MQTTIntegration == nil || len(*watcher.MQTTIntegration) == 0 {
		return fmt.Errorf("MQTT integration not configured")
	}

	configBytes, _ := json.Marshal(*watcher.MQTTIntegration)
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return fmt.Errorf("invalid MQTT integration config: %v", err)
	}

	if !config.Enabled {
		return fmt.Errorf("MQTT integration is disabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(fmt.Sprintf("bt-registry-test-%s", watcher.ID))

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	if config.TLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true, // TODO: take a CA bundle from the watcher config
		})
	}

	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()

	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}

	client.Disconnect(250)
	return nil
}
