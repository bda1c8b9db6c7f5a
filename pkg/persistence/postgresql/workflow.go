package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
)

// Workflows returns all workflow definitions.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , is_active
		  , start_node_id
		  , nodes
		  , created_at
		  , updated_at
		FROM workflows
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// WorkflowByID returns one definition or ErrWorkflowNotFound.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , is_active
		  , start_node_id
		  , nodes
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	def, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workflow %s: %w", id, persistence.ErrWorkflowNotFound)
		}

		return nil, err
	}

	return def, nil
}

// SaveWorkflow upserts a definition.
func (p *Persistence) SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error {
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	nodes, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, is_active, start_node_id, nodes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			start_node_id = EXCLUDED.start_node_id,
			nodes = EXCLUDED.nodes,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		def.ID, def.Name, def.Description, def.IsActive, def.StartNodeID, nodes, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", def.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a definition.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		def   models.WorkflowDefinition
		nodes []byte
	)

	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Description,
		&def.IsActive,
		&def.StartNodeID,
		&nodes,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &def.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes for workflow %s: %w", def.ID, err)
	}

	return &def, nil
}
