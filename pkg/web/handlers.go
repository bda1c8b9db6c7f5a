package web

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/journeyhq/journey/pkg/eventbus"
	"github.com/journeyhq/journey/pkg/events"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/registry"
)

// APIHandlers exposes workflow definitions and enrollments over HTTP.
type APIHandlers struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	registry    *registry.Registry
	eventBus    eventbus.EventBus
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	validator *validator.Validate,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		validator:   validator,
		registry:    registry,
		eventBus:    eventBus,
	}
}

// GetWorkflows handles GET /workflows.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

// GetWorkflow handles GET /workflows/:id.
func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	def, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(def)
}

// CreateWorkflow handles POST /workflows. The document is validated against
// the wire schema first, then the decoded graph is checked structurally.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := models.ValidateDefinitionDocument(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	def := &models.WorkflowDefinition{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		StartNodeID: req.StartNodeID,
		Nodes:       req.Nodes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := def.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), def); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

// UpdateWorkflow handles PATCH /workflows/:id. A non-nil Nodes replaces the
// whole graph and is re-validated structurally.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	def, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	var req UpdateWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Name != nil {
		def.Name = *req.Name
	}

	if req.Description != nil {
		def.Description = *req.Description
	}

	if req.IsActive != nil {
		def.IsActive = *req.IsActive
	}

	if req.StartNodeID != nil {
		def.StartNodeID = *req.StartNodeID
	}

	if req.Nodes != nil {
		def.Nodes = req.Nodes
	}

	if err := def.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	def.UpdatedAt = time.Now().UTC()

	if err := h.persistence.SaveWorkflow(c.Context(), def); err != nil {
		return internalError(c, err)
	}

	return c.JSON(def)
}

// DeleteWorkflow handles DELETE /workflows/:id.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if _, err := h.persistence.WorkflowByID(c.Context(), c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetWorkflowEnrollments handles GET /workflows/:id/enrollments.
func (h *APIHandlers) GetWorkflowEnrollments(c fiber.Ctx) error {
	if _, err := h.persistence.WorkflowByID(c.Context(), c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	enrollments, err := h.persistence.Enrollments(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	response := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		response = append(response, TransformEnrollmentResponse(enrollment))
	}

	return c.JSON(response)
}

// GetEnrollment handles GET /enrollments/:id.
func (h *APIHandlers) GetEnrollment(c fiber.Ctx) error {
	enrollment, err := h.persistence.EnrollmentByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(TransformEnrollmentResponse(enrollment))
}

// CreateEnrollment handles POST /enrollments: it enrolls one record into a
// workflow and publishes the trigger event the workers consume.
func (h *APIHandlers) CreateEnrollment(c fiber.Ctx) error {
	var req EnrollRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	targetType, err := models.ParseTargetType(req.TargetType)
	if err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.persistence.WorkflowByID(c.Context(), req.WorkflowID)
	if err != nil {
		return handleStoreError(c, err)
	}

	if !def.IsActive {
		return conflict(c, "workflow is not active")
	}

	if _, err := h.persistence.GetRecord(c.Context(), targetType.Collection(), req.TargetID); err != nil {
		return handleStoreError(c, err)
	}

	enrollment := models.NewEnrollment(uuid.New().String(), def, targetType, req.TargetID)

	if err := h.persistence.SaveEnrollment(c.Context(), enrollment); err != nil {
		return internalError(c, err)
	}

	event := events.EnrollmentTriggered{
		BaseEvent:  events.NewBaseEvent(events.EnrollmentTriggeredEvent, enrollment.ID),
		WorkflowID: def.ID,
		TargetType: targetType,
		TargetID:   req.TargetID,
		Reason:     events.ReasonManual,
	}

	if err := h.eventBus.Publish(c.Context(), enrollment.ID, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformEnrollmentResponse(enrollment))
}

// CancelEnrollment handles POST /enrollments/:id/cancel. Terminal
// enrollments cannot be cancelled.
func (h *APIHandlers) CancelEnrollment(c fiber.Ctx) error {
	enrollment, err := h.persistence.EnrollmentByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	if enrollment.Status.Terminal() {
		return conflict(c, "enrollment already reached a terminal status")
	}

	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.NextExecutionAt = nil

	if err := h.persistence.SaveEnrollment(c.Context(), enrollment); err != nil {
		return internalError(c, err)
	}

	return c.JSON(TransformEnrollmentResponse(enrollment))
}

// GetActions handles GET /actions: the action kinds available to workflow
// builders.
func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.ActionKinds()})
}

// HealthCheck handles GET /health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		checks["persistence"] = err.Error()
		healthy = false
	} else {
		checks["persistence"] = "ok"
	}

	status := "healthy"
	code := fiber.StatusOK

	if !healthy {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}
