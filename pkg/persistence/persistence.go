// Package persistence provides the data storage abstraction for workflow
// definitions, enrollments, and business records.
package persistence

import (
	"context"
	"time"

	"github.com/journeyhq/journey/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error)
	WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error
	DeleteWorkflow(ctx context.Context, id string) error
}

// EnrollmentRepository stores enrollments. The engine reads and writes whole
// enrollment documents; DueEnrollments backs the resumer sweep.
type EnrollmentRepository interface {
	Enrollments(ctx context.Context, workflowID string) ([]*models.Enrollment, error)
	EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error)
	SaveEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error)
}

// RecordStore is the contract to the external record services. Records are
// loosely-typed documents; the engine never interprets fields it does not
// use. Update applies a partial patch; it never replaces the document.
type RecordStore interface {
	GetRecord(ctx context.Context, collection, id string) (map[string]any, error)
	AddRecord(ctx context.Context, collection string, data map[string]any) (string, error)
	UpdateRecord(ctx context.Context, collection, id string, patch map[string]any) error
}

// Persistence aggregates every storage concern behind one handle.
type Persistence interface {
	WorkflowRepository
	EnrollmentRepository
	RecordStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
