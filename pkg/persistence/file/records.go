package file

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/journeyhq/journey/pkg/persistence"
)

// GetRecord returns one record document or ErrRecordNotFound.
func (p *Persistence) GetRecord(ctx context.Context, collection, id string) (map[string]any, error) {
	if !recordCollections[collection] {
		return nil, fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, collection)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	record := map[string]any{}

	found, err := p.readJSON(p.dir("records", collection, id+".json"), &record)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, persistence.ErrRecordNotFound)
	}

	return record, nil
}

// AddRecord stores a new record document and returns its generated id.
func (p *Persistence) AddRecord(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !recordCollections[collection] {
		return "", fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, collection)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
		data["id"] = id
	}

	if err := p.writeJSON(p.dir("records", collection, id+".json"), data); err != nil {
		return "", err
	}

	return id, nil
}

// UpdateRecord merges a partial patch into an existing record document.
func (p *Persistence) UpdateRecord(ctx context.Context, collection, id string, patch map[string]any) error {
	if !recordCollections[collection] {
		return fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, collection)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	record := map[string]any{}

	found, err := p.readJSON(p.dir("records", collection, id+".json"), &record)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%s/%s: %w", collection, id, persistence.ErrRecordNotFound)
	}

	for k, v := range patch {
		record[k] = v
	}

	return p.writeJSON(p.dir("records", collection, id+".json"), record)
}
