// Package updatedeal provides the update_deal action.
package updatedeal

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

var ErrNoDealTarget = errors.New("update_deal: no deal id configured and target is not a deal")

// Action applies a partial patch to a deal record. String values in the
// patch may carry {{...}} placeholders.
type Action struct {
	config *models.UpdateDealConfig
	store  persistence.RecordStore
}

func NewAction(config *models.UpdateDealConfig, store persistence.RecordStore) *Action {
	return &Action{config: config, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "update_deal_action")

	dealID, err := resolveDealID(a.config.DealID, executionCtx)
	if err != nil {
		return nil, err
	}

	patch := make(map[string]any, len(a.config.Updates))

	for field, value := range a.config.Updates {
		if str, ok := value.(string); ok {
			patch[field] = template.Resolve(str, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
		} else {
			patch[field] = value
		}
	}

	if err := a.store.UpdateRecord(ctx, models.CollectionDeals, dealID, patch); err != nil {
		return nil, fmt.Errorf("update_deal: %w", err)
	}

	logger.InfoContext(ctx, "Deal updated", "deal_id", dealID, "fields", len(patch))

	_, err = audit.Record(ctx, a.store, executionCtx, "deal_updated", audit.StatusCompleted,
		fmt.Sprintf("Updated %d deal field(s)", len(patch)),
		map[string]any{"deal_id": dealID, "updates": patch},
	)
	if err != nil {
		return nil, fmt.Errorf("update_deal: failed to record activity: %w", err)
	}

	return map[string]any{"last_updated_deal_id": dealID}, nil
}

// resolveDealID prefers the configured id and falls back to the enrollment
// target when the workflow runs against a deal.
func resolveDealID(configured string, executionCtx protocol.ExecutionContext) (string, error) {
	if configured != "" {
		resolved := template.Resolve(configured, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
		if resolved != "" {
			return resolved, nil
		}
	}

	if executionCtx.TargetType == models.TargetTypeDeal {
		return executionCtx.TargetID, nil
	}

	return "", ErrNoDealTarget
}
