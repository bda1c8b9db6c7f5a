// Package protocol defines the contracts between the engine and the action
// implementations it dispatches to.
package protocol

import (
	"context"
	"log/slog"

	"github.com/journeyhq/journey/pkg/models"
)

// ExecutionContext carries everything an action may read while executing one
// node: the enrollment identity, the target record snapshot, and the context
// accumulated by earlier nodes. Actions must treat Target and Context as
// read-only; new values are reported through the returned delta.
type ExecutionContext struct {
	EnrollmentID string
	WorkflowID   string
	TargetType   models.TargetType
	TargetID     string
	Target       map[string]any
	Context      map[string]any
}

// Action executes one node's side effect. The returned map is a context
// delta: the engine merges it into the enrollment context, it never replaces
// the whole map. A nil delta is fine.
type Action interface {
	Execute(ctx context.Context, executionCtx ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds an Action from its validated typed configuration.
type ActionFactory interface {
	Create(config models.ActionConfig) (Action, error)
	Kind() models.ActionKind
}
