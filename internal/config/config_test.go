package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  name: bt-registry
  version: "1.0.0"
database:
  dsn: postgres://localhost/registry?sslmode=disable
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("unexpected default NATS URL: %s", cfg.NATS.URL)
	}
	if cfg.Registry.MaxPeersPerAdapter != 10 {
		t.Errorf("expected default peer cap 10, got %d", cfg.Registry.MaxPeersPerAdapter)
	}
	if cfg.Registry.DefaultPairingKeyLen != 16 {
		t.Errorf("expected default pairing key len 16, got %d", cfg.Registry.DefaultPairingKeyLen)
	}
	if cfg.Bluez.Adapter != "hci0" {
		t.Errorf("expected default adapter hci0, got %s", cfg.Bluez.Adapter)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Errorf("unexpected access token TTL: %v", cfg.JWT.AccessTokenTTL)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
api:
  host: 0.0.0.0
  port: 9090
registry:
  max_peers_per_adapter: 4
  default_pairing_key_len: 32
  session_stale_after: 45s
bluez:
  adapter: hci1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.API.Port)
	}
	if cfg.Registry.MaxPeersPerAdapter != 4 {
		t.Errorf("expected peer cap 4, got %d", cfg.Registry.MaxPeersPerAdapter)
	}
	if cfg.Registry.SessionStaleAfter != 45*time.Second {
		t.Errorf("unexpected stale timeout: %v", cfg.Registry.SessionStaleAfter)
	}
	if cfg.Bluez.Adapter != "hci1" {
		t.Errorf("expected adapter hci1, got %s", cfg.Bluez.Adapter)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://file-dsn
nats:
  url: nats://file:4222
`)

	t.Setenv("DATABASE_URL", "postgres://env-dsn")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("BLUEZ_ADAPTER", "hci2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.DSN != "postgres://env-dsn" {
		t.Errorf("DATABASE_URL override not applied: %s", cfg.Database.DSN)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("NATS_URL override not applied: %s", cfg.NATS.URL)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("JWT_SECRET override not applied")
	}
	if cfg.Bluez.Adapter != "hci2" {
		t.Errorf("BLUEZ_ADAPTER override not applied: %s", cfg.Bluez.Adapter)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
registry:
  default_pairing_key_len: 65
`)
	if _, err := Load(path); err == nil {
		t.Error("pairing key length over 64 must be rejected")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must be rejected")
	}
}
