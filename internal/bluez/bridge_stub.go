//go:build !linux

package bluez

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/bluetooth-registry/bt-registry-server/internal/config"
)

// Bridge requires BlueZ, which is Linux-only
type Bridge struct{}

func NewBridge(_ *nats.Conn, _ *config.BluezConfig) *Bridge {
	return &Bridge{}
}

func (b *Bridge) Run(_ context.Context) error {
	return errors.New("bluez bridge is only supported on linux")
}
