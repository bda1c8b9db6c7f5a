package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/journeyhq/journey/pkg/models"
)

// MockPersistence is a mock implementation of the persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowDefinition), args.Error(1)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowDefinition), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, def *models.WorkflowDefinition) error {
	args := m.Called(ctx, def)

	return args.Error(0)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) Enrollments(ctx context.Context, workflowID string) ([]*models.Enrollment, error) {
	args := m.Called(ctx, workflowID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Enrollment), args.Error(1)
}

func (m *MockPersistence) EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Enrollment), args.Error(1)
}

func (m *MockPersistence) SaveEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	args := m.Called(ctx, enrollment)

	return args.Error(0)
}

func (m *MockPersistence) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error) {
	args := m.Called(ctx, now, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Enrollment), args.Error(1)
}

func (m *MockPersistence) GetRecord(ctx context.Context, collection, id string) (map[string]any, error) {
	args := m.Called(ctx, collection, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockPersistence) AddRecord(ctx context.Context, collection string, data map[string]any) (string, error) {
	args := m.Called(ctx, collection, data)

	return args.String(0), args.Error(1)
}

func (m *MockPersistence) UpdateRecord(ctx context.Context, collection, id string, patch map[string]any) error {
	args := m.Called(ctx, collection, id, patch)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
