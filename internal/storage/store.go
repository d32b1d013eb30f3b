package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error)

	// Peer methods
	CreatePeer(ctx context.Context, peer *models.Peer) error
	GetPeer(ctx context.Context, id uuid.UUID) (*models.Peer, error)
	GetPeerByMAC(ctx context.Context, adapter string, mac models.MACAddr) (*models.Peer, error)
	UpdatePeer(ctx context.Context, peer *models.Peer) error
	DeletePeer(ctx context.Context, id uuid.UUID) error
	ListPeers(ctx context.Context, filters PeerFilters, limit, offset int) ([]*models.Peer, int64, error)
	CountPeers(ctx context.Context, adapter string) (int64, error)

	// Link session methods
	CreateLinkSession(ctx context.Context, session *models.LinkSession) error
	GetLinkSession(ctx context.Context, id uuid.UUID) (*models.LinkSession, error)
	GetOpenLinkSession(ctx context.Context, adapter string, mac models.MACAddr) (*models.LinkSession, error)
	UpdateLinkSession(ctx context.Context, session *models.LinkSession) error
	ListLinkSessions(ctx context.Context, peerID uuid.UUID, limit, offset int) ([]*models.LinkSession, int64, error)
	CloseStaleLinkSessions(ctx context.Context, staleBefore time.Time) (int64, error)

	// Watcher methods
	CreateWatcher(ctx context.Context, watcher *models.Watcher) error
	GetWatcher(ctx context.Context, id uuid.UUID) (*models.Watcher, error)
	UpdateWatcher(ctx context.Context, watcher *models.Watcher) error
	DeleteWatcher(ctx context.Context, id uuid.UUID) error
	ListWatchers(ctx context.Context, enabledOnly bool) ([]*models.Watcher, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error)
	DeleteEventLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close the store
	Close() error
}

// PeerFilters represents filters for peer listing
type PeerFilters struct {
	Adapter    *string
	DeviceType *string
	Paired     *bool
	Connected  *bool
}

// EventLogFilters represents filters for event logs
type EventLogFilters struct {
	PeerID    *uuid.UUID
	SessionID *uuid.UUID
	MACAddr   *models.MACAddr
	Adapter   *string
	Type      *models.EventType
	Level     *models.EventLevel
	StartTime *time.Time
	EndTime   *time.Time
}
