// Package createtask provides the create_task action.
package createtask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/journeyhq/journey/pkg/actions/audit"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/template"
)

// Action creates a task record linked to the enrollment's target.
type Action struct {
	config *models.CreateTaskConfig
	store  persistence.RecordStore
}

func NewAction(config *models.CreateTaskConfig, store persistence.RecordStore) *Action {
	return &Action{config: config, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "create_task_action")

	resolve := func(s string) string {
		return template.Resolve(s, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
	}

	task := map[string]any{
		"title":       resolve(a.config.Title),
		"description": resolve(a.config.Description),
		"status":      "open",
	}

	// Tasks link back to deals and contacts only; a workflow enrolled on a
	// task produces a standalone task, not one pointing at another task.
	if executionCtx.TargetType == models.TargetTypeDeal || executionCtx.TargetType == models.TargetTypeContact {
		task["target_type"] = string(executionCtx.TargetType)
		task["target_id"] = executionCtx.TargetID
	}

	if a.config.AssigneeID != "" {
		task["assignee_id"] = resolve(a.config.AssigneeID)
	}

	if a.config.DueInDays > 0 {
		due := time.Now().UTC().AddDate(0, 0, a.config.DueInDays)
		task["due_at"] = due.Format(time.RFC3339)
	}

	taskID, err := a.store.AddRecord(ctx, models.CollectionTasks, task)
	if err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", taskID, "title", task["title"])

	_, err = audit.Record(ctx, a.store, executionCtx, "task_created", audit.StatusCompleted,
		fmt.Sprintf("Created task: %v", task["title"]),
		map[string]any{"task_id": taskID},
	)
	if err != nil {
		return nil, fmt.Errorf("create_task: failed to record activity: %w", err)
	}

	return map[string]any{
		"last_created_task_id":    taskID,
		"last_created_task_title": task["title"],
	}, nil
}
