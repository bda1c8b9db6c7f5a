package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
)

// Enrollments returns enrollments, optionally filtered by workflow id.
func (p *Persistence) Enrollments(ctx context.Context, workflowID string) ([]*models.Enrollment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.loadEnrollments(func(e *models.Enrollment) bool {
		return workflowID == "" || e.WorkflowID == workflowID
	})
}

// EnrollmentByID returns one enrollment or ErrEnrollmentNotFound.
func (p *Persistence) EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var enrollment models.Enrollment

	found, err := p.readJSON(p.dir("enrollments", id+".json"), &enrollment)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("enrollment %s: %w", id, persistence.ErrEnrollmentNotFound)
	}

	return &enrollment, nil
}

// SaveEnrollment stores an enrollment, stamping UpdatedAt.
func (p *Persistence) SaveEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}

	enrollment.UpdatedAt = now

	return p.writeJSON(p.dir("enrollments", enrollment.ID+".json"), enrollment)
}

// DueEnrollments returns waiting enrollments whose wake time has passed,
// oldest wake time first.
func (p *Persistence) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	due, err := p.loadEnrollments(func(e *models.Enrollment) bool {
		return e.Status == models.EnrollmentStatusWaiting &&
			e.NextExecutionAt != nil &&
			!e.NextExecutionAt.After(now)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextExecutionAt.Before(*due[j].NextExecutionAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (p *Persistence) loadEnrollments(keep func(*models.Enrollment) bool) ([]*models.Enrollment, error) {
	ids, err := p.listIDs(p.dir("enrollments"))
	if err != nil {
		return nil, err
	}

	enrollments := make([]*models.Enrollment, 0, len(ids))

	for _, id := range ids {
		var enrollment models.Enrollment

		found, err := p.readJSON(p.dir("enrollments", id+".json"), &enrollment)
		if err != nil {
			return nil, err
		}

		if found && keep(&enrollment) {
			enrollments = append(enrollments, &enrollment)
		}
	}

	return enrollments, nil
}
