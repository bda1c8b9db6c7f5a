package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
)

// Workflows returns every stored workflow definition.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.listIDs(p.dir("workflows"))
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		var def models.WorkflowDefinition

		found, err := p.readJSON(p.dir("workflows", id+".json"), &def)
		if err != nil {
			return nil, err
		}

		if found {
			workflows = append(workflows, &def)
		}
	}

	return workflows, nil
}

// WorkflowByID returns one definition or ErrWorkflowNotFound.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var def models.WorkflowDefinition

	found, err := p.readJSON(p.dir("workflows", id+".json"), &def)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("workflow %s: %w", id, persistence.ErrWorkflowNotFound)
	}

	return &def, nil
}

// SaveWorkflow stores a definition, stamping UpdatedAt.
func (p *Persistence) SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	return p.writeJSON(p.dir("workflows", def.ID+".json"), def)
}

// DeleteWorkflow removes a definition file.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.dir("workflows", id+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("workflow %s: %w", id, persistence.ErrWorkflowNotFound)
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
