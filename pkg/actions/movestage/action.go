// Package movestage provides the move_to_stage action.
package movestage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/journeyhq/journey/pkg/actions/audit"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/template"
)

var ErrNoDealTarget = errors.New("move_to_stage: no deal id configured and target is not a deal")

// Action moves a deal to a pipeline stage.
type Action struct {
	config *models.MoveStageConfig
	store  persistence.RecordStore
}

func NewAction(config *models.MoveStageConfig, store persistence.RecordStore) *Action {
	return &Action{config: config, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "move_to_stage_action")

	resolve := func(s string) string {
		return template.Resolve(s, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
	}

	dealID := resolve(a.config.DealID)
	if dealID == "" || a.config.DealID == "" {
		if executionCtx.TargetType != models.TargetTypeDeal {
			return nil, ErrNoDealTarget
		}

		dealID = executionCtx.TargetID
	}

	stageID := resolve(a.config.StageID)

	patch := map[string]any{"stage_id": stageID}
	if a.config.PipelineID != "" {
		patch["pipeline_id"] = resolve(a.config.PipelineID)
	}

	if err := a.store.UpdateRecord(ctx, models.CollectionDeals, dealID, patch); err != nil {
		return nil, fmt.Errorf("move_to_stage: %w", err)
	}

	logger.InfoContext(ctx, "Deal moved", "deal_id", dealID, "stage_id", stageID)

	_, err := audit.Record(ctx, a.store, executionCtx, "deal_stage_changed", audit.StatusCompleted,
		"Moved deal to stage "+stageID,
		map[string]any{"deal_id": dealID, "stage_id": stageID},
	)
	if err != nil {
		return nil, fmt.Errorf("move_to_stage: failed to record activity: %w", err)
	}

	return map[string]any{"last_stage_id": stageID}, nil
}
