// Package assigndeal provides the assign_deal action.
package assigndeal

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

var ErrNoDealTarget = errors.New("assign_deal: no deal id configured and target is not a deal")

// Action reassigns a deal to an owner, a team, or both.
type Action struct {
	config *models.AssignDealConfig
	store  persistence.RecordStore
}

func NewAction(config *models.AssignDealConfig, store persistence.RecordStore) *Action {
	return &Action{config: config, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "assign_deal_action")

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

	patch := map[string]any{}

	if a.config.AssigneeID != "" {
		patch["owner_id"] = resolve(a.config.AssigneeID)
	}

	if a.config.TeamID != "" {
		patch["team_id"] = resolve(a.config.TeamID)
	}

	if err := a.store.UpdateRecord(ctx, models.CollectionDeals, dealID, patch); err != nil {
		return nil, fmt.Errorf("assign_deal: %w", err)
	}

	logger.InfoContext(ctx, "Deal reassigned", "deal_id", dealID)

	_, err := audit.Record(ctx, a.store, executionCtx, "deal_assigned", audit.StatusCompleted,
		"Reassigned deal",
		map[string]any{"deal_id": dealID, "assignment": patch},
	)
	if err != nil {
		return nil, fmt.Errorf("assign_deal: failed to record activity: %w", err)
	}

	return map[string]any{"last_assigned_deal_id": dealID}, nil
}
