package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// CreatePeer creates a new peer
func (s *PostgresStore) CreatePeer(ctx context.Context, peer *models.Peer) error {
	if peer.ID == uuid.Nil {
		peer.ID = uuid.New()
	}
	if len(peer.Record) != btcore.DeviceRecordSize {
		return ErrInvalidData
	}

	now := time.Now()
	peer.CreatedAt = now
	peer.UpdatedAt = now

	query := `
		INSERT INTO peers (
			id, created_at, updated_at, mac_addr, adapter, name, description,
			record, device_type, flags, connection_count, is_disabled,
			paired_at, last_seen_at, last_connected_at, rssi
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		peer.ID, peer.CreatedAt, peer.UpdatedAt, peer.MACAddr, peer.Adapter,
		peer.Name, peer.Description, peer.Record, peer.DeviceType, peer.Flags,
		peer.ConnectionCount, peer.IsDisabled, peer.PairedAt, peer.LastSeenAt,
		peer.LastConnectedAt, peer.RSSI,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

const peerColumns = `id, created_at, updated_at, mac_addr, adapter, name, description,
	record, device_type, flags, connection_count, is_disabled,
	paired_at, last_seen_at, last_connected_at, rssi`

func scanPeer(row interface{ Scan(...interface{}) error }) (*models.Peer, error) {
	peer := &models.Peer{}
	err := row.Scan(
		&peer.ID, &peer.CreatedAt, &peer.UpdatedAt, &peer.MACAddr, &peer.Adapter,
		&peer.Name, &peer.Description, &peer.Record, &peer.DeviceType, &peer.Flags,
		&peer.ConnectionCount, &peer.IsDisabled, &peer.PairedAt, &peer.LastSeenAt,
		&peer.LastConnectedAt, &peer.RSSI,
	)
	if err != nil {
		return nil, err
	}
	return peer, nil
}

// GetPeer gets a peer by ID
func (s *PostgresStore) GetPeer(ctx context.Context, id uuid.UUID) (*models.Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM peers WHERE id = $1`

	peer, err := scanPeer(s.getDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return peer, err
}

// GetPeerByMAC gets a peer by adapter and MAC address
func (s *PostgresStore) GetPeerByMAC(ctx context.Context, adapter string, mac models.MACAddr) (*models.Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM peers WHERE adapter = $1 AND mac_addr = $2`

	peer, err := scanPeer(s.getDB().QueryRowContext(ctx, query, adapter, mac))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return peer, err
}

// UpdatePeer updates a peer
func (s *PostgresStore) UpdatePeer(ctx context.Context, peer *models.Peer) error {
	if len(peer.Record) != btcore.DeviceRecordSize {
		return ErrInvalidData
	}

	peer.UpdatedAt = time.Now()

	query := `
		UPDATE peers SET
			updated_at = $2, name = $3, description = $4, record = $5,
			device_type = $6, flags = $7, connection_count = $8, is_disabled = $9,
			paired_at = $10, last_seen_at = $11, last_connected_at = $12, rssi = $13
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		peer.ID, peer.UpdatedAt, peer.Name, peer.Description, peer.Record,
		peer.DeviceType, peer.Flags, peer.ConnectionCount, peer.IsDisabled,
		peer.PairedAt, peer.LastSeenAt, peer.LastConnectedAt, peer.RSSI,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeletePeer deletes a peer
func (s *PostgresStore) DeletePeer(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM peers WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListPeers lists peers with filters
func (s *PostgresStore) ListPeers(ctx context.Context, filters PeerFilters, limit, offset int) ([]*models.Peer, int64, error) {
	query := "SELECT COUNT(*) FROM peers WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Adapter != nil {
		argCount++
		query += fmt.Sprintf(" AND adapter = $%d", argCount)
		args = append(args, *filters.Adapter)
	}

	if filters.DeviceType != nil {
		argCount++
		query += fmt.Sprintf(" AND device_type = $%d", argCount)
		args = append(args, *filters.DeviceType)
	}

	if filters.Paired != nil {
		argCount++
		if *filters.Paired {
			query += fmt.Sprintf(" AND flags & $%d != 0", argCount)
		} else {
			query += fmt.Sprintf(" AND flags & $%d = 0", argCount)
		}
		args = append(args, uint8(btcore.FlagPaired))
	}

	if filters.Connected != nil {
		argCount++
		if *filters.Connected {
			query += fmt.Sprintf(" AND flags & $%d != 0", argCount)
		} else {
			query += fmt.Sprintf(" AND flags & $%d = 0", argCount)
		}
		args = append(args, uint8(btcore.FlagConnected))
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	selectQuery := strings.Replace(query, "SELECT COUNT(*)", "SELECT "+peerColumns, 1)

	argCount++
	selectQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	selectQuery += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var peers []*models.Peer
	for rows.Next() {
		peer, err := scanPeer(rows)
		if err != nil {
			return nil, 0, err
		}
		peers = append(peers, peer)
	}

	return peers, count, rows.Err()
}

// CountPeers counts peers on an adapter
func (s *PostgresStore) CountPeers(ctx context.Context, adapter string) (int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM peers WHERE adapter = $1", adapter).Scan(&count)
	return count, err
}
