// Package events defines event types for enrollment lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/journeyhq/journey/pkg/models"
)

type EventType string

// Kafka topics.
const EnrollmentTopic = "journey.enrollments" // Topic for enrollment lifecycle events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Trigger reasons carried on EnrollmentTriggered. Continuation reasons
// (resume, budget yield) come from the system itself and must advance the
// enrollment even when it just executed; external reasons are debounced.
const (
	ReasonManual      = "manual"
	ReasonResume      = "resume"
	ReasonBudgetYield = "budget_yield"
)

const (
	EnrollmentTriggeredEvent EventType = "enrollment.triggered"
	EnrollmentWaitingEvent   EventType = "enrollment.waiting"
	EnrollmentCompletedEvent EventType = "enrollment.completed"
	EnrollmentFailedEvent    EventType = "enrollment.failed"
	NodeExecutedEvent        EventType = "enrollment.node.executed"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	EnrollmentID string         `json:"enrollment_id"`
	WorkerID     string         `json:"worker_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// EnrollmentTriggered asks a worker to advance an enrollment. It carries
// only the enrollment id; workers load fresh state from persistence, so a
// duplicate or stale delivery degrades to a no-op.
type EnrollmentTriggered struct {
	BaseEvent

	WorkflowID string            `json:"workflow_id"`
	TargetType models.TargetType `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Reason     string            `json:"reason,omitempty"`
}

func (e EnrollmentTriggered) GetType() EventType {
	return EnrollmentTriggeredEvent
}

// EnrollmentWaiting reports that an enrollment paused on a delay node.
type EnrollmentWaiting struct {
	BaseEvent

	WorkflowID string    `json:"workflow_id"`
	NodeID     string    `json:"node_id"`
	WakeAt     time.Time `json:"wake_at"`
}

func (e EnrollmentWaiting) GetType() EventType {
	return EnrollmentWaitingEvent
}

type EnrollmentCompleted struct {
	BaseEvent

	WorkflowID    string `json:"workflow_id"`
	NodesExecuted int    `json:"nodes_executed"`
}

func (e EnrollmentCompleted) GetType() EventType {
	return EnrollmentCompletedEvent
}

type EnrollmentFailed struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`
	Error      string `json:"error"`
}

func (e EnrollmentFailed) GetType() EventType {
	return EnrollmentFailedEvent
}

// NodeExecuted reports a single node step, success or failure.
type NodeExecuted struct {
	BaseEvent

	WorkflowID string            `json:"workflow_id"`
	NodeID     string            `json:"node_id"`
	NodeType   models.NodeType   `json:"node_type"`
	Result     models.StepResult `json:"result"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

func (e NodeExecuted) GetType() EventType {
	return NodeExecutedEvent
}

// ContinuationReason reports whether a trigger reason is a system
// continuation rather than an external (re)trigger.
func ContinuationReason(reason string) bool {
	return reason == ReasonResume || reason == ReasonBudgetYield
}

func NewBaseEvent(eventType EventType, enrollmentID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		EnrollmentID: enrollmentID,
		Metadata:     make(map[string]any),
	}
}
