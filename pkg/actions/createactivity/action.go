// Package createactivity provides the create_activity action.
package createactivity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/journeyhq/journey/pkg/actions/audit"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/template"
)

const defaultActivityType = "note"

// Action logs a custom activity on the enrollment's target.
type Action struct {
	config *models.CreateActivityConfig
	store  persistence.RecordStore
}

func NewAction(config *models.CreateActivityConfig, store persistence.RecordStore) *Action {
	return &Action{config: config, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "create_activity_action")

	activityType := a.config.ActivityType
	if activityType == "" {
		activityType = defaultActivityType
	}

	description := template.Resolve(a.config.Description, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)

	activityID, err := audit.Record(ctx, a.store, executionCtx, activityType, audit.StatusCompleted, description, nil)
	if err != nil {
		return nil, fmt.Errorf("create_activity: %w", err)
	}

	logger.InfoContext(ctx, "Activity created", "activity_id", activityID, "activity_type", activityType)

	return map[string]any{"last_activity_id": activityID}, nil
}
