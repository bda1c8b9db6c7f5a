package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/journeyhq/journey/pkg/persistence"
)

// GetRecord returns one record document or ErrRecordNotFound.
func (p *Persistence) GetRecord(ctx context.Context, collection, id string) (map[string]any, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM records WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, persistence.ErrRecordNotFound)
		}

		return nil, fmt.Errorf("failed to query record %s/%s: %w", collection, id, err)
	}

	record := map[string]any{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s/%s: %w", collection, id, err)
	}

	return record, nil
}

// AddRecord stores a new record document and returns its generated id.
func (p *Persistence) AddRecord(ctx context.Context, collection string, data map[string]any) (string, error) {
	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
		data["id"] = id
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}

	now := time.Now().UTC()

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, collection, id, encoded, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert record %s/%s: %w", collection, id, err)
	}

	return id, nil
}

// UpdateRecord merges a partial patch into an existing record's document.
func (p *Persistence) UpdateRecord(ctx context.Context, collection, id string, patch map[string]any) error {
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE records
		SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2
	`, collection, id, encoded, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update record %s/%s: %w", collection, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, persistence.ErrRecordNotFound)
	}

	return nil
}
