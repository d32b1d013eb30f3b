package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Registry RegistryConfig `yaml:"registry"`
	Bluez    BluezConfig    `yaml:"bluez"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RegistryConfig represents peer registry configuration
type RegistryConfig struct {
	// MaxPeersPerAdapter caps how many peers the tracker keeps in its
	// in-memory bonded list per adapter.
	MaxPeersPerAdapter int `yaml:"max_peers_per_adapter"`

	// DefaultPairingKeyLen is the key length used when the API is asked
	// to generate a pairing key without an explicit length.
	DefaultPairingKeyLen int `yaml:"default_pairing_key_len"`

	// SessionStaleAfter marks link sessions with no activity as lost.
	SessionStaleAfter time.Duration `yaml:"session_stale_after"`

	// EventRetention bounds how far back the event log is kept.
	EventRetention time.Duration `yaml:"event_retention"`
}

// BluezConfig represents BlueZ adapter bridge configuration
type BluezConfig struct {
	Adapter      string        `yaml:"adapter"`
	DiscoveryTTL time.Duration `yaml:"discovery_ttl"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply environment overrides
	cfg.applyEnvOverrides()

	if err := cfg.validateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if adapter := os.Getenv("BLUEZ_ADAPTER"); adapter != "" {
		c.Bluez.Adapter = adapter
	}
}

// validateAndSetDefaults fills in defaults and rejects nonsense values
func (c *Config) validateAndSetDefaults() error {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 5 * time.Second
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Registry.MaxPeersPerAdapter == 0 {
		c.Registry.MaxPeersPerAdapter = 10
	}
	if c.Registry.MaxPeersPerAdapter < 1 {
		return fmt.Errorf("invalid max_peers_per_adapter: %d", c.Registry.MaxPeersPerAdapter)
	}

	if c.Registry.DefaultPairingKeyLen == 0 {
		c.Registry.DefaultPairingKeyLen = 16
	}
	if c.Registry.DefaultPairingKeyLen < 1 || c.Registry.DefaultPairingKeyLen > 64 {
		return fmt.Errorf("invalid default_pairing_key_len: %d", c.Registry.DefaultPairingKeyLen)
	}

	if c.Registry.SessionStaleAfter == 0 {
		c.Registry.SessionStaleAfter = 2 * time.Minute
	}
	if c.Registry.EventRetention == 0 {
		c.Registry.EventRetention = 30 * 24 * time.Hour
	}

	if c.Bluez.Adapter == "" {
		c.Bluez.Adapter = "hci0"
	}
	if c.Bluez.DiscoveryTTL == 0 {
		c.Bluez.DiscoveryTTL = 30 * time.Second
	}

	return nil
}
