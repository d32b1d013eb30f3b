package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluetooth-registry/bt-registry-server/internal/models"
)

// CreateWatcher creates a new watcher
func (s *PostgresStore) CreateWatcher(ctx context.Context, watcher *models.Watcher) error {
	if watcher.ID == uuid.Nil {
		watcher.ID = uuid.New()
	}

	now := time.Now()
	watcher.CreatedAt = now
	watcher.UpdatedAt = now

	query := `
		INSERT INTO watchers (
			id, created_at, updated_at, name, description, adapter, mac_addr,
			http_integration, mqtt_integration, is_disabled
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		watcher.ID, watcher.CreatedAt, watcher.UpdatedAt, watcher.Name,
		watcher.Description, watcher.Adapter, watcher.MACAddr,
		watcher.HTTPIntegration, watcher.MQTTIntegration, watcher.IsDisabled,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetWatcher gets a watcher by ID
func (s *PostgresStore) GetWatcher(ctx context.Context, id uuid.UUID) (*models.Watcher, error) {
	query := `
		SELECT id, created_at, updated_at, name, description, adapter, mac_addr,
		       http_integration, mqtt_integration, is_disabled
		FROM watchers
		WHERE id = $1`

	watcher := &models.Watcher{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&watcher.ID, &watcher.CreatedAt, &watcher.UpdatedAt, &watcher.Name,
		&watcher.Description, &watcher.Adapter, &watcher.MACAddr,
		&watcher.HTTPIntegration, &watcher.MQTTIntegration, &watcher.IsDisabled,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return watcher, err
}

// UpdateWatcher updates a watcher
func (s *PostgresStore) UpdateWatcher(ctx context.Context, watcher *models.Watcher) error {
	watcher.UpdatedAt = time.Now()

	query := `
		UPDATE watchers SET
			updated_at = $2, name = $3, description = $4, adapter = $5,
			mac_addr = $6, http_integration = $7, mqtt_integration = $8,
			is_disabled = $9
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		watcher.ID, watcher.UpdatedAt, watcher.Name, watcher.Description,
		watcher.Adapter, watcher.MACAddr, watcher.HTTPIntegration,
		watcher.MQTTIntegration, watcher.IsDisabled,
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

// DeleteWatcher deletes a watcher
func (s *PostgresStore) DeleteWatcher(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM watchers WHERE id = $1", id)
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

// ListWatchers lists watchers, optionally only the enabled ones
func (s *PostgresStore) ListWatchers(ctx context.Context, enabledOnly bool) ([]*models.Watcher, error) {
	query := `
		SELECT id, created_at, updated_at, name, description, adapter, mac_addr,
		       http_integration, mqtt_integration, is_disabled
		FROM watchers`

	if enabledOnly {
		query += " WHERE is_disabled = false"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watchers []*models.Watcher
	for rows.Next() {
		watcher := &models.Watcher{}
		err := rows.Scan(
			&watcher.ID, &watcher.CreatedAt, &watcher.UpdatedAt, &watcher.Name,
			&watcher.Description, &watcher.Adapter, &watcher.MACAddr,
			&watcher.HTTPIntegration, &watcher.MQTTIntegration, &watcher.IsDisabled,
		)
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, watcher)
	}

	return watchers, rows.Err()
}
