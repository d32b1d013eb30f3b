package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
)

// CreateEventLog creates an event log entry
func (s *PostgresStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO event_logs (
			id, created_at, peer_id, session_id, mac_addr, adapter,
			type, level, code, description, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var mac []byte
	if event.MACAddr != nil {
		mac = (*event.MACAddr)[:]
	}

	_, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.CreatedAt, event.PeerID, event.SessionID,
		mac, event.Adapter, event.Type, event.Level, event.Code,
		event.Description, event.Details,
	)

	return err
}

// ListEventLogs lists event logs with filters
func (s *PostgresStore) ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error) {
	// Build query with filters
	query := "SELECT COUNT(*) FROM event_logs WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.PeerID != nil {
		argCount++
		query += fmt.Sprintf(" AND peer_id = $%d", argCount)
		args = append(args, *filters.PeerID)
	}

	if filters.SessionID != nil {
		argCount++
		query += fmt.Sprintf(" AND session_id = $%d", argCount)
		args = append(args, *filters.SessionID)
	}

	if filters.MACAddr != nil {
		argCount++
		query += fmt.Sprintf(" AND mac_addr = $%d", argCount)
		args = append(args, (*filters.MACAddr)[:])
	}

	if filters.Adapter != nil {
		argCount++
		query += fmt.Sprintf(" AND adapter = $%d", argCount)
		args = append(args, *filters.Adapter)
	}

	if filters.Type != nil {
		argCount++
		query += fmt.Sprintf(" AND type = $%d", argCount)
		args = append(args, *filters.Type)
	}

	if filters.Level != nil {
		argCount++
		query += fmt.Sprintf(" AND level = $%d", argCount)
		args = append(args, *filters.Level)
	}

	if filters.StartTime != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filters.StartTime)
	}

	if filters.EndTime != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filters.EndTime)
	}

	// Get count
	var count int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	// Get rows
	selectQuery := strings.Replace(query, "SELECT COUNT(*)",
		"SELECT id, created_at, peer_id, session_id, mac_addr, adapter, type, level, code, description, details", 1)

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

	var events []*models.EventLog
	for rows.Next() {
		event := &models.EventLog{}
		var mac []byte

		err := rows.Scan(
			&event.ID, &event.CreatedAt, &event.PeerID, &event.SessionID,
			&mac, &event.Adapter, &event.Type, &event.Level, &event.Code,
			&event.Description, &event.Details,
		)
		if err != nil {
			return nil, 0, err
		}

		if mac != nil {
			event.MACAddr = &models.MACAddr{}
			copy((*event.MACAddr)[:], mac)
		}

		events = append(events, event)
	}

	return events, count, rows.Err()
}

// DeleteEventLogsBefore removes event logs older than the cutoff
func (s *PostgresStore) DeleteEventLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.getDB().ExecContext(ctx,
		"DELETE FROM event_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
