// Package audit writes activity records for side effects performed by
// actions, so every automated mutation leaves a visible trail on the target.
package audit

import (
	"context"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
)

// Activity outcome statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record stores one activity document describing what an action did to the
// enrollment's target. Failures are returned to the caller; the engine treats
// them as action failures because a mutation without its trail is worse than
// a retried mutation.
func Record(
	ctx context.Context,
	store persistence.RecordStore,
	executionCtx protocol.ExecutionContext,
	activityType, status, description string,
	details map[string]any,
) (string, error) {
	doc := map[string]any{
		"activity_type": activityType,
		"status":        status,
		"description":   description,
		"target_type":   string(executionCtx.TargetType),
		"target_id":     executionCtx.TargetID,
		"enrollment_id": executionCtx.EnrollmentID,
		"workflow_id":   executionCtx.WorkflowID,
		"automated":     true,
		"occurred_at":   time.Now().UTC().Format(time.RFC3339),
	}

	for key, value := range details {
		doc[key] = value
	}

	return store.AddRecord(ctx, models.CollectionActivities, doc)
}
