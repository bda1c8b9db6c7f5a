package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/otelhelper"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/registry"
)

// Outcome is the normalized result of executing one node, whatever its type.
type Outcome struct {
	Success      bool
	NextNodeID   string
	ShouldWait   bool
	WaitUntil    time.Time
	Err          error
	ContextDelta map[string]any
}

// Dispatcher routes one node to the component that executes it. Panics and
// errors from sub-components are converted into a failed Outcome so the
// driver's disposition logic is uniform across node types.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewDispatcher(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		logger:   logger.With("module", "dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, node *models.Node, executionCtx protocol.ExecutionContext) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Success: false, Err: fmt.Errorf("node %s panicked: %v", node.ID, r)}
		}
	}()

	switch node.Type {
	case models.NodeTypeTrigger:
		// Entry marker; nothing to execute.
		return Outcome{Success: true}
	case models.NodeTypeAction:
		return d.dispatchAction(ctx, node, executionCtx)
	case models.NodeTypeCondition:
		return d.dispatchCondition(node, executionCtx)
	case models.NodeTypeDelay:
		return Outcome{
			Success:    true,
			ShouldWait: true,
			WaitUntil:  ComputeWait(node, time.Now().UTC()),
		}
	case models.NodeTypeEnd:
		return Outcome{Success: true}
	default:
		return Outcome{Success: false, Err: fmt.Errorf("%w: %q on node %s", ErrUnknownNodeType, node.Type, node.ID)}
	}
}

func (d *Dispatcher) dispatchAction(ctx context.Context, node *models.Node, executionCtx protocol.ExecutionContext) Outcome {
	ctx, span := otel.Tracer("journey.engine").Start(ctx, "action.execute")
	defer span.End()

	span.SetAttributes(
		attribute.String(otelhelper.EnrollmentIDKey, executionCtx.EnrollmentID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Action)),
	)

	action, err := d.registry.CreateAction(node.Action, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return Outcome{Success: false, Err: fmt.Errorf("node %s: %w", node.ID, err)}
	}

	delta, err := action.Execute(ctx, executionCtx, d.logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return Outcome{Success: false, Err: err}
	}

	return Outcome{Success: true, ContextDelta: delta}
}

func (d *Dispatcher) dispatchCondition(node *models.Node, executionCtx protocol.ExecutionContext) Outcome {
	result, err := EvaluateConditions(
		node.Conditions,
		node.Operator,
		executionCtx.TargetType,
		executionCtx.Target,
		executionCtx.Context,
		d.logger,
	)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("node %s: %w", node.ID, err)}
	}

	next := node.FalseNextID
	if result {
		next = node.TrueNextID
	}

	if next == "" {
		return Outcome{Success: false, Err: fmt.Errorf("node %s (branch %t): %w", node.ID, result, ErrMissingBranch)}
	}

	return Outcome{
		Success:      true,
		NextNodeID:   next,
		ContextDelta: map[string]any{"last_condition_result": result},
	}
}
