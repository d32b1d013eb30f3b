package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// CreateLinkSession creates a new link session
func (s *PostgresStore) CreateLinkSession(ctx context.Context, session *models.LinkSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if len(session.State) != btcore.ConnectionStateSize {
		return ErrInvalidData
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = now
	}

	query := `
		INSERT INTO link_sessions (
			id, created_at, updated_at, peer_id, mac_addr, adapter,
			state, phase, conn_handle, link_quality,
			started_at, last_activity_at, ended_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		session.ID, session.CreatedAt, session.UpdatedAt, session.PeerID,
		session.MACAddr, session.Adapter, session.State, session.Phase,
		session.ConnHandle, session.LinkQuality, session.StartedAt,
		session.LastActivityAt, session.EndedAt,
	)

	return err
}

const sessionColumns = `id, created_at, updated_at, peer_id, mac_addr, adapter,
	state, phase, conn_handle, link_quality, started_at, last_activity_at, ended_at`

func scanLinkSession(row interface{ Scan(...interface{}) error }) (*models.LinkSession, error) {
	session := &models.LinkSession{}
	err := row.Scan(
		&session.ID, &session.CreatedAt, &session.UpdatedAt, &session.PeerID,
		&session.MACAddr, &session.Adapter, &session.State, &session.Phase,
		&session.ConnHandle, &session.LinkQuality, &session.StartedAt,
		&session.LastActivityAt, &session.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetLinkSession gets a link session by ID
func (s *PostgresStore) GetLinkSession(ctx context.Context, id uuid.UUID) (*models.LinkSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM link_sessions WHERE id = $1`

	session, err := scanLinkSession(s.getDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return session, err
}

// GetOpenLinkSession gets the open session for a peer, if any
func (s *PostgresStore) GetOpenLinkSession(ctx context.Context, adapter string, mac models.MACAddr) (*models.LinkSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM link_sessions
		WHERE adapter = $1 AND mac_addr = $2 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1`

	session, err := scanLinkSession(s.getDB().QueryRowContext(ctx, query, adapter, mac))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return session, err
}

// UpdateLinkSession updates a link session
func (s *PostgresStore) UpdateLinkSession(ctx context.Context, session *models.LinkSession) error {
	if len(session.State) != btcore.ConnectionStateSize {
		return ErrInvalidData
	}

	session.UpdatedAt = time.Now()

	query := `
		UPDATE link_sessions SET
			updated_at = $2, state = $3, phase = $4, conn_handle = $5,
			link_quality = $6, last_activity_at = $7, ended_at = $8
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		session.ID, session.UpdatedAt, session.State, session.Phase,
		session.ConnHandle, session.LinkQuality, session.LastActivityAt,
		session.EndedAt,
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

// ListLinkSessions lists sessions for a peer
func (s *PostgresStore) ListLinkSessions(ctx context.Context, peerID uuid.UUID, limit, offset int) ([]*models.LinkSession, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM link_sessions WHERE peer_id = $1", peerID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM link_sessions
		WHERE peer_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, peerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*models.LinkSession
	for rows.Next() {
		session, err := scanLinkSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}

	return sessions, count, rows.Err()
}

// CloseStaleLinkSessions ends open sessions with no activity since staleBefore
func (s *PostgresStore) CloseStaleLinkSessions(ctx context.Context, staleBefore time.Time) (int64, error) {
	query := `
		UPDATE link_sessions SET
			updated_at = NOW(), ended_at = NOW(), phase = 'idle'
		WHERE ended_at IS NULL AND last_activity_at < $1`

	result, err := s.getDB().ExecContext(ctx, query, staleBefore)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
