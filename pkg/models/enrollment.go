package models

import "time"

// EnrollmentStatus represents the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusWaiting   EnrollmentStatus = "waiting"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusFailed    EnrollmentStatus = "failed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Terminal reports whether the status will never change again. Terminal
// enrollments are never re-entered by the engine.
func (s EnrollmentStatus) Terminal() bool {
	switch s {
	case EnrollmentStatusCompleted, EnrollmentStatusFailed, EnrollmentStatusCancelled:
		return true
	}

	return false
}

// StepResult is the outcome of one node execution in the audit trail.
type StepResult string

const (
	StepResultSuccess StepResult = "success"
	StepResultFailed  StepResult = "failed"
)

// ExecutionStep is one append-only audit entry of the execution path.
type ExecutionStep struct {
	NodeID    string     `json:"node_id"`
	Timestamp time.Time  `json:"timestamp"`
	Result    StepResult `json:"result"`
	Error     string     `json:"error,omitempty"`
}

// Enrollment is one execution instance of a WorkflowDefinition bound to one
// target record. It is the unit of persistence and of concurrency: the engine
// loads it, advances it node by node, and writes it back after every node.
type Enrollment struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id" validate:"required"`
	TargetType TargetType `json:"target_type" validate:"required"`
	TargetID   string     `json:"target_id"   validate:"required"`

	Status        EnrollmentStatus `json:"status"`
	CurrentNodeID string           `json:"current_node_id"`

	// VisitedNodes is append-only history, not a set: branches may legally
	// re-enter earlier nodes. More than 5 visits of one node id is treated
	// as an infinite loop.
	VisitedNodes  []string        `json:"visited_nodes"`
	ExecutionPath []ExecutionStep `json:"execution_path"`
	Context       map[string]any  `json:"context"`

	NextExecutionAt *time.Time `json:"next_execution_at,omitempty"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`

	ErrorCount int    `json:"error_count"`
	LastError  string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEnrollment creates an active enrollment positioned at the definition's
// start node.
func NewEnrollment(id string, def *WorkflowDefinition, targetType TargetType, targetID string) *Enrollment {
	now := time.Now().UTC()

	return &Enrollment{
		ID:            id,
		WorkflowID:    def.ID,
		TargetType:    targetType,
		TargetID:      targetID,
		Status:        EnrollmentStatusActive,
		CurrentNodeID: def.StartNodeID,
		VisitedNodes:  []string{},
		ExecutionPath: []ExecutionStep{},
		Context:       map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// VisitCount returns how many times the given node id appears in the visit
// history.
func (e *Enrollment) VisitCount(nodeID string) int {
	count := 0

	for _, id := range e.VisitedNodes {
		if id == nodeID {
			count++
		}
	}

	return count
}

// MergeContext merges a context delta into the enrollment context. Existing
// keys are overwritten; the delta never replaces the map wholesale.
func (e *Enrollment) MergeContext(delta map[string]any) {
	if len(delta) == 0 {
		return
	}

	if e.Context == nil {
		e.Context = make(map[string]any, len(delta))
	}

	for k, v := range delta {
		e.Context[k] = v
	}
}

// RecordStep appends an audit entry and the node visit in one step.
func (e *Enrollment) RecordStep(nodeID string, at time.Time, result StepResult, errMsg string) {
	e.VisitedNodes = append(e.VisitedNodes, nodeID)
	e.ExecutionPath = append(e.ExecutionPath, ExecutionStep{
		NodeID:    nodeID,
		Timestamp: at,
		Result:    result,
		Error:     errMsg,
	})
}
