// Package web provides the HTTP handlers and request types for the
// workflow API.
package web

import "github.com/journeyhq/journey/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow
// definition. The node graph is submitted whole; partial graph edits go
// through UpdateWorkflowRequest with a replacement graph.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"          validate:"required,min=3"`
	Description string                  `json:"description"`
	IsActive    bool                    `json:"is_active"`
	StartNodeID string                  `json:"start_node_id" validate:"required"`
	Nodes       map[string]*models.Node `json:"nodes"         validate:"required,min=1"`
}

// UpdateWorkflowRequest is the request body for updating a workflow
// definition. All fields are optional to support partial updates; a non-nil
// Nodes replaces the whole graph.
type UpdateWorkflowRequest struct {
	Name        *string                 `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                 `json:"description,omitempty"`
	IsActive    *bool                   `json:"is_active,omitempty"`
	StartNodeID *string                 `json:"start_node_id,omitempty"`
	Nodes       map[string]*models.Node `json:"nodes,omitempty"`
}

// EnrollRequest is the request body for manually enrolling a record into a
// workflow.
type EnrollRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
	TargetType string `json:"target_type" validate:"required,oneof=deal contact task"`
	TargetID   string `json:"target_id"   validate:"required"`
}

// EnrollmentResponse is the API view of an enrollment, including its audit
// trail.
type EnrollmentResponse struct {
	ID            string                  `json:"id"`
	WorkflowID    string                  `json:"workflow_id"`
	TargetType    models.TargetType       `json:"target_type"`
	TargetID      string                  `json:"target_id"`
	Status        models.EnrollmentStatus `json:"status"`
	CurrentNodeID string                  `json:"current_node_id"`
	VisitedNodes  []string                `json:"visited_nodes"`
	ExecutionPath []models.ExecutionStep  `json:"execution_path"`
	Context       map[string]any          `json:"context"`
	ErrorCount    int                     `json:"error_count"`
	LastError     string                  `json:"last_error,omitempty"`
}

// TransformEnrollmentResponse builds the API view of an enrollment.
func TransformEnrollmentResponse(enrollment *models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:            enrollment.ID,
		WorkflowID:    enrollment.WorkflowID,
		TargetType:    enrollment.TargetType,
		TargetID:      enrollment.TargetID,
		Status:        enrollment.Status,
		CurrentNodeID: enrollment.CurrentNodeID,
		VisitedNodes:  enrollment.VisitedNodes,
		ExecutionPath: enrollment.ExecutionPath,
		Context:       enrollment.Context,
		ErrorCount:    enrollment.ErrorCount,
		LastError:     enrollment.LastError,
	}
}
