// Package integration forwards phase notifications to external systems
// configured per watcher: HTTP webhooks and MQTT brokers.
package integration

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/internal/storage"
)

// watcherRefreshInterval bounds how stale the in-memory watcher list can get
const watcherRefreshInterval = 30 * time.Second

// ForwarderService fans phase notifications out to watcher integrations
type ForwarderService struct {
	nc    *nats.Conn
	store storage.Store

	// MQTT client pool, one per watcher
	mqttClients map[uuid.UUID]mqtt.Client
	clientsMu   sync.RWMutex

	// Cached enabled watchers
	watchers   []*models.Watcher
	watchersMu sync.RWMutex

	httpClient *http.Client
}

// NewForwarderService creates a forwarder service
func NewForwarderService(nc *nats.Conn, store storage.Store) *ForwarderService {
	return &ForwarderService{
		nc:          nc,
		store:       store,
		mqttClients: make(map[uuid.UUID]mqtt.Client),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Start runs the forwarder until the context is cancelled
func (s *ForwarderService) Start(ctx context.Context) error {
	if err := s.refreshWatchers(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to load watchers")
	}

	sub, err := s.nc.Subscribe("registry.peer.*.phase", s.handlePhaseNotification)
	if err != nil {
		return fmt.Errorf("subscribe to phase notifications: %w", err)
	}

	log.Info().Msg("Integration forwarder service started")

	ticker := time.NewTicker(watcherRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
			s.closeAllMQTTConnections()
			return nil

		case <-ticker.C:
			if err := s.refreshWatchers(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to refresh watchers")
			}
		}
	}
}

// refreshWatchers reloads the enabled watcher list from storage
func (s *ForwarderService) refreshWatchers(ctx context.Context) error {
	watchers, err := s.store.ListWatchers(ctx, true)
	if err != nil {
		return err
	}

	s.watchersMu.Lock()
	s.watchers = watchers
	s.watchersMu.Unlock()
	return nil
}

// handlePhaseNotification fans one notification out to all matching watchers
func (s *ForwarderService) handlePhaseNotification(msg *nats.Msg) {
	var notification models.PhaseNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Error().Err(err).Msg("Failed to parse phase notification")
		return
	}

	s.watchersMu.RLock()
	watchers := s.watchers
	s.watchersMu.RUnlock()

	for _, watcher := range watchers {
		if !watcher.Matches(notification.Adapter, notification.MACAddr) {
			continue
		}

		if config := s.httpConfig(watcher); config != nil && config.Enabled {
			go s.forwardToHTTP(watcher, config, notification)
		}
		if config := s.mqttConfig(watcher); config != nil && config.Enabled {
			go s.forwardToMQTT(watcher, config, notification)
		}
	}
}

// forwardToHTTP posts the notification to the watcher's webhook
func (s *ForwarderService) forwardToHTTP(watcher *models.Watcher, config *HTTPConfig, notification models.PhaseNotification) {
	forwardData := map[string]interface{}{
		"watcherID":   watcher.ID.String(),
		"watcherName": watcher.Name,
		"adapter":     notification.Adapter,
		"macAddr":     notification.MACAddr.String(),
		"phase":       notification.Phase,
		"previous":    notification.Previous,
		"event":       notification.Event,
		"accepted":    notification.Accepted,
		"timestamp":   notification.Timestamp,
	}

	jsonData, err := json.Marshal(forwardData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal forward data")
		return
	}

	req, err := http.NewRequest("POST", config.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().
			Err(err).
			Str("endpoint", config.Endpoint).
			Msg("Failed to forward notification to HTTP")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", config.Endpoint).
			Msg("HTTP forward failed")
	} else {
		log.Debug().
			Str("mac", notification.MACAddr.String()).
			Str("endpoint", config.Endpoint).
			Msg("Notification forwarded to HTTP")
	}
}

// forwardToMQTT publishes the notification to the watcher's broker
func (s *ForwarderService) forwardToMQTT(watcher *models.Watcher, config *MQTTConfig, notification models.PhaseNotification) {
	client := s.getMQTTClient(watcher.ID)
	if client == nil {
		client = s.createMQTTClient(watcher.ID, config)
		if client == nil {
			return
		}
	}

	topic := config.TopicPattern
	topic = strings.ReplaceAll(topic, "{watcher_id}", watcher.ID.String())
	topic = strings.ReplaceAll(topic, "{mac}", strings.ReplaceAll(notification.MACAddr.String(), ":", ""))
	topic = strings.ReplaceAll(topic, "{adapter}", notification.Adapter)

	forwardData := map[string]interface{}{
		"watcherID": watcher.ID.String(),
		"adapter":   notification.Adapter,
		"macAddr":   notification.MACAddr.String(),
		"phase":     notification.Phase,
		"previous":  notification.Previous,
		"event":     notification.Event,
		"accepted":  notification.Accepted,
		"timestamp": notification.Timestamp,
	}

	jsonData, err := json.Marshal(forwardData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal MQTT data")
		return
	}

	token := client.Publish(topic, config.QoS, false, jsonData)
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			log.Error().
				Err(err).
				Str("topic", topic).
				Msg("Failed to publish to MQTT")
		} else {
			log.Debug().
				Str("mac", notification.MACAddr.String()).
				Str("topic", topic).
				Msg("Notification forwarded to MQTT")
		}
	} else {
		log.Error().
			Str("topic", topic).
			Msg("MQTT publish timeout")
	}
}

// getMQTTClient returns the watcher's pooled client if still connected
func (s *ForwarderService) getMQTTClient(watcherID uuid.UUID) mqtt.Client {
	s.clientsMu.RLock()
	client, exists := s.mqttClients[watcherID]
	s.clientsMu.RUnlock()

	if exists && client.IsConnected() {
		return client
	}

	return nil
}

// createMQTTClient connects a new client for the watcher and pools it
func (s *ForwarderService) createMQTTClient(watcherID uuid.UUID, config *MQTTConfig) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(fmt.Sprintf("bt-registry-watcher-%s", watcherID))

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	if config.TLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true, // TODO: take a CA bundle from the watcher config
		})
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().
			Str("watcherID", watcherID.String()).
			Msg("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().
			Err(err).
			Str("watcherID", watcherID.String()).
			Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	if token.WaitTimeout(10*time.Second) && token.Error() == nil {
		s.clientsMu.Lock()
		s.mqttClients[watcherID] = client
		s.clientsMu.Unlock()
		return client
	}

	log.Error().
		Err(token.Error()).
		Str("watcherID", watcherID.String()).
		Msg("Failed to connect MQTT client")

	return nil
}

// closeAllMQTTConnections disconnects the pooled clients
func (s *ForwarderService) closeAllMQTTConnections() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for watcherID, client := range s.mqttClients {
		if client.IsConnected() {
			client.Disconnect(250)
		}
		delete(s.mqttClients, watcherID)

		log.Info().
			Str("watcherID", watcherID.String()).
			Msg("MQTT client disconnected")
	}
}

// Integration configuration, decoded from the watcher's stored Variables

type HTTPConfig struct {
	Enabled  bool              `json:"enabled"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
	Timeout  int               `json:"timeout"`
}

type MQTTConfig struct {
	Enabled      bool   `json:"enabled"`
	BrokerURL    string `json:"brokerUrl"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	TopicPattern string `json:"topicPattern"`
	QoS          byte   `json:"qos"`
	TLS          bool   `json:"tls"`
}

func (s *ForwarderService) httpConfig(watcher *models.Watcher) *HTTPConfig {
	if watcher.HTTPIntegration == nil {
		return nil
	}

	var config HTTPConfig
	configBytes, _ := json.Marshal(*watcher.HTTPIntegration)
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return nil
	}

	return &config
}

func (s *ForwarderService) mqttConfig(watcher *models.Watcher) *MQTTConfig {
	if watcher.MQTTIntegration == nil {
		return nil
	}

	var config MQTTConfig
	configBytes, _ := json.Marshal(*watcher.MQTTIntegration)
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return nil
	}

	return &config
}
