package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/journeyhq/journey/pkg/eventbus"
	"github.com/journeyhq/journey/pkg/events"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
)

const (
	// MaxNodesPerExecution bounds one invocation. Exhausting it is a
	// cooperative yield, not a failure: the enrollment stays active and the
	// next trigger continues from the persisted position.
	MaxNodesPerExecution = 100

	// maxNodeVisits is the loop-detection threshold: a node id seen more
	// than this many times in the visit history fails the enrollment.
	maxNodeVisits = 5

	debounceWindow = time.Second

	// completedNodeID is persisted as the current node once the graph has
	// no further successor.
	completedNodeID = "completed"
)

// Driver walks an enrollment through its workflow graph. Run is idempotent
// and safe to call redundantly: non-active enrollments and rapid duplicate
// invocations degrade to no-ops, so an at-least-once trigger substrate never
// corrupts state.
type Driver struct {
	persistence persistence.Persistence
	dispatcher  *Dispatcher
	eventBus    eventbus.EventBus
	claimer     Claimer
	workerID    string
	logger      *slog.Logger
}

func NewDriver(
	p persistence.Persistence,
	dispatcher *Dispatcher,
	bus eventbus.EventBus,
	claimer Claimer,
	workerID string,
	logger *slog.Logger,
) *Driver {
	if claimer == nil {
		claimer = NoopClaimer{}
	}

	return &Driver{
		persistence: p,
		dispatcher:  dispatcher,
		eventBus:    bus,
		claimer:     claimer,
		workerID:    workerID,
		logger:      logger.With("module", "engine"),
	}
}

// Run advances one enrollment until it completes, pauses, fails, or exhausts
// the node budget. Duplicate invocations within the debounce window are
// dropped.
func (d *Driver) Run(ctx context.Context, enrollmentID string) error {
	return d.run(ctx, enrollmentID, true)
}

// Resume is Run without the debounce. Continuation triggers (a budget yield,
// a resumer wake) come from the system itself and may legitimately arrive
// within the debounce window of the step that produced them; dropping those
// would strand the enrollment, since nothing re-triggers an active one.
func (d *Driver) Resume(ctx context.Context, enrollmentID string) error {
	return d.run(ctx, enrollmentID, false)
}

func (d *Driver) run(ctx context.Context, enrollmentID string, debounce bool) error {
	release, acquired, err := d.claimer.Claim(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to claim enrollment %s: %w", enrollmentID, err)
	}

	if !acquired {
		d.logger.DebugContext(ctx, "Enrollment already claimed, skipping", "enrollment_id", enrollmentID)

		return nil
	}

	defer release()

	enrollment, err := d.persistence.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to load enrollment %s: %w", enrollmentID, err)
	}

	if enrollment.Status != models.EnrollmentStatusActive {
		d.logger.DebugContext(ctx, "Enrollment not active, nothing to do",
			"enrollment_id", enrollmentID, "status", enrollment.Status)

		return nil
	}

	now := time.Now().UTC()
	if debounce && enrollment.LastExecutedAt != nil && now.Sub(*enrollment.LastExecutedAt) < debounceWindow {
		d.logger.DebugContext(ctx, "Duplicate invocation within debounce window, skipping",
			"enrollment_id", enrollmentID)

		return nil
	}

	if err := d.execute(ctx, enrollment); err != nil {
		return d.failEnrollment(ctx, enrollment, err)
	}

	return nil
}

// execute runs the node loop. Every returned error fails the enrollment; the
// deferred recover keeps that guarantee even for panics outside dispatch.
func (d *Driver) execute(ctx context.Context, enrollment *models.Enrollment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("execution panicked: %v", r)
		}
	}()

	def, err := d.loadDefinition(ctx, enrollment)
	if err != nil {
		return err
	}

	if def == nil {
		// Workflow deactivated: close out quietly.
		return d.complete(ctx, enrollment)
	}

	target, err := d.loadTarget(ctx, enrollment)
	if err != nil {
		return err
	}

	for nodesExecuted := 0; nodesExecuted < MaxNodesPerExecution; nodesExecuted++ {
		if enrollment.CurrentNodeID == "" || enrollment.CurrentNodeID == completedNodeID {
			return d.complete(ctx, enrollment)
		}

		node, ok := def.Nodes[enrollment.CurrentNodeID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, enrollment.CurrentNodeID)
		}

		if enrollment.VisitCount(node.ID) > maxNodeVisits {
			return fmt.Errorf("%w: node %q visited %d times", ErrLoopDetected, node.ID, enrollment.VisitCount(node.ID))
		}

		done, err := d.executeNode(ctx, enrollment, node, target)
		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}

	// Budget exhausted: persist position and hand the rest to the next
	// invocation.
	now := time.Now().UTC()
	enrollment.LastExecutedAt = &now

	if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to persist enrollment after budget yield: %w", err)
	}

	d.logger.InfoContext(ctx, "Node budget exhausted, yielding",
		"enrollment_id", enrollment.ID, "current_node_id", enrollment.CurrentNodeID)

	d.publish(ctx, enrollment.ID, events.EnrollmentTriggered{
		BaseEvent:  d.baseEvent(events.EnrollmentTriggeredEvent, enrollment.ID),
		WorkflowID: enrollment.WorkflowID,
		TargetType: enrollment.TargetType,
		TargetID:   enrollment.TargetID,
		Reason:     events.ReasonBudgetYield,
	})

	return nil
}

// executeNode dispatches one node and applies successor selection. It
// reports done=true when the invocation must stop (wait or completion).
func (d *Driver) executeNode(
	ctx context.Context,
	enrollment *models.Enrollment,
	node *models.Node,
	target map[string]any,
) (bool, error) {
	executionCtx := protocol.ExecutionContext{
		EnrollmentID: enrollment.ID,
		WorkflowID:   enrollment.WorkflowID,
		TargetType:   enrollment.TargetType,
		TargetID:     enrollment.TargetID,
		Target:       target,
		Context:      enrollment.Context,
	}

	started := time.Now().UTC()
	outcome := d.dispatcher.Dispatch(ctx, node, executionCtx)
	now := time.Now().UTC()

	d.publishNodeExecuted(ctx, enrollment, node, outcome, now.Sub(started))

	if !outcome.Success {
		if node.ErrorNextID == "" {
			enrollment.RecordStep(node.ID, now, models.StepResultFailed, outcome.Err.Error())

			return false, outcome.Err
		}

		// Routed failure: take the error branch and keep going.
		enrollment.RecordStep(node.ID, now, models.StepResultFailed, outcome.Err.Error())
		enrollment.ErrorCount++
		enrollment.LastError = outcome.Err.Error()
		enrollment.CurrentNodeID = node.ErrorNextID
		enrollment.LastExecutedAt = &now

		d.logger.WarnContext(ctx, "Node failed, following error branch",
			"enrollment_id", enrollment.ID, "node_id", node.ID, "error", outcome.Err)

		if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
			return false, fmt.Errorf("failed to persist enrollment: %w", err)
		}

		return false, nil
	}

	enrollment.MergeContext(outcome.ContextDelta)
	enrollment.RecordStep(node.ID, now, models.StepResultSuccess, "")
	enrollment.LastExecutedAt = &now

	if outcome.ShouldWait {
		return true, d.pause(ctx, enrollment, node, outcome.WaitUntil)
	}

	next := outcome.NextNodeID
	if next == "" {
		next = node.NextID
	}

	if next == "" {
		next = completedNodeID
	}

	enrollment.CurrentNodeID = next

	if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return false, fmt.Errorf("failed to persist enrollment: %w", err)
	}

	return false, nil
}

// pause transitions to waiting. The current node advances past the delay
// before pausing so the resumer lands on its successor, not back on the
// delay.
func (d *Driver) pause(ctx context.Context, enrollment *models.Enrollment, node *models.Node, wakeAt time.Time) error {
	next := node.NextID
	if next == "" {
		next = completedNodeID
	}

	enrollment.Status = models.EnrollmentStatusWaiting
	enrollment.CurrentNodeID = next
	enrollment.NextExecutionAt = &wakeAt

	if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to persist waiting enrollment: %w", err)
	}

	d.logger.InfoContext(ctx, "Enrollment paused",
		"enrollment_id", enrollment.ID, "node_id", node.ID, "wake_at", wakeAt)

	d.publish(ctx, enrollment.ID, events.EnrollmentWaiting{
		BaseEvent:  d.baseEvent(events.EnrollmentWaitingEvent, enrollment.ID),
		WorkflowID: enrollment.WorkflowID,
		NodeID:     node.ID,
		WakeAt:     wakeAt,
	})

	return nil
}

func (d *Driver) complete(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.CurrentNodeID = completedNodeID
	enrollment.NextExecutionAt = nil
	enrollment.LastExecutedAt = &now

	if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to persist completed enrollment: %w", err)
	}

	d.logger.InfoContext(ctx, "Enrollment completed",
		"enrollment_id", enrollment.ID, "nodes_executed", len(enrollment.ExecutionPath))

	d.publish(ctx, enrollment.ID, events.EnrollmentCompleted{
		BaseEvent:     d.baseEvent(events.EnrollmentCompletedEvent, enrollment.ID),
		WorkflowID:    enrollment.WorkflowID,
		NodesExecuted: len(enrollment.ExecutionPath),
	})

	return nil
}

func (d *Driver) failEnrollment(ctx context.Context, enrollment *models.Enrollment, cause error) error {
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusFailed
	enrollment.ErrorCount++
	enrollment.LastError = cause.Error()
	enrollment.NextExecutionAt = nil
	enrollment.LastExecutedAt = &now

	if err := d.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to persist failed enrollment: %w", err))
	}

	d.logger.ErrorContext(ctx, "Enrollment failed",
		"enrollment_id", enrollment.ID, "node_id", enrollment.CurrentNodeID, "error", cause)

	d.publish(ctx, enrollment.ID, events.EnrollmentFailed{
		BaseEvent:  d.baseEvent(events.EnrollmentFailedEvent, enrollment.ID),
		WorkflowID: enrollment.WorkflowID,
		NodeID:     enrollment.CurrentNodeID,
		Error:      cause.Error(),
	})

	return cause
}

// loadDefinition returns (nil, nil) for an inactive workflow so the caller
// can close the enrollment out instead of executing it.
func (d *Driver) loadDefinition(ctx context.Context, enrollment *models.Enrollment) (*models.WorkflowDefinition, error) {
	def, err := d.persistence.WorkflowByID(ctx, enrollment.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, enrollment.WorkflowID)
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", enrollment.WorkflowID, err)
	}

	if !def.IsActive {
		return nil, nil
	}

	return def, nil
}

func (d *Driver) loadTarget(ctx context.Context, enrollment *models.Enrollment) (map[string]any, error) {
	target, err := d.persistence.GetRecord(ctx, enrollment.TargetType.Collection(), enrollment.TargetID)
	if err != nil {
		if persistence.IsRecordNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, enrollment.TargetType, enrollment.TargetID)
		}

		return nil, fmt.Errorf("failed to load target %s/%s: %w", enrollment.TargetType, enrollment.TargetID, err)
	}

	return target, nil
}

func (d *Driver) publishNodeExecuted(
	ctx context.Context,
	enrollment *models.Enrollment,
	node *models.Node,
	outcome Outcome,
	duration time.Duration,
) {
	result := models.StepResultSuccess
	errMsg := ""

	if !outcome.Success {
		result = models.StepResultFailed
		errMsg = outcome.Err.Error()
	}

	d.publish(ctx, enrollment.ID, events.NodeExecuted{
		BaseEvent:  d.baseEvent(events.NodeExecutedEvent, enrollment.ID),
		WorkflowID: enrollment.WorkflowID,
		NodeID:     node.ID,
		NodeType:   node.Type,
		Result:     result,
		Error:      errMsg,
		DurationMs: duration.Milliseconds(),
	})
}

func (d *Driver) baseEvent(eventType events.EventType, enrollmentID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, enrollmentID)
	base.WorkerID = d.workerID

	return base
}

func (d *Driver) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.eventBus == nil {
		return
	}

	if err := d.eventBus.Publish(ctx, key, event); err != nil {
		d.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
