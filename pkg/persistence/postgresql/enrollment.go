package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
)

const enrollmentColumns = `
	id
  , workflow_id
  , target_type
  , target_id
  , status
  , current_node_id
  , visited_nodes
  , execution_path
  , context
  , next_execution_at
  , last_executed_at
  , error_count
  , last_error
  , created_at
  , updated_at
`

// Enrollments returns enrollments, optionally filtered by workflow id.
func (p *Persistence) Enrollments(ctx context.Context, workflowID string) ([]*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments"
	args := []any{}

	if workflowID != "" {
		query += " WHERE workflow_id = $1"
		args = append(args, workflowID)
	}

	query += " ORDER BY created_at DESC"

	return p.queryEnrollments(ctx, query, args...)
}

// EnrollmentByID returns one enrollment or ErrEnrollmentNotFound.
func (p *Persistence) EnrollmentByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1"

	enrollment, err := scanEnrollment(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("enrollment %s: %w", id, persistence.ErrEnrollmentNotFound)
		}

		return nil, persistence.NewEnrollmentError("GetByID", id, err)
	}

	return enrollment, nil
}

// SaveEnrollment upserts an enrollment document.
func (p *Persistence) SaveEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}

	enrollment.UpdatedAt = now

	visited, err := json.Marshal(enrollment.VisitedNodes)
	if err != nil {
		return persistence.NewEnrollmentError("Save", enrollment.ID, err)
	}

	path, err := json.Marshal(enrollment.ExecutionPath)
	if err != nil {
		return persistence.NewEnrollmentError("Save", enrollment.ID, err)
	}

	contextData, err := json.Marshal(enrollment.Context)
	if err != nil {
		return persistence.NewEnrollmentError("Save", enrollment.ID, err)
	}

	query := `
		INSERT INTO enrollments (
			id, workflow_id, target_type, target_id, status, current_node_id,
			visited_nodes, execution_path, context,
			next_execution_at, last_executed_at, error_count, last_error,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_node_id = EXCLUDED.current_node_id,
			visited_nodes = EXCLUDED.visited_nodes,
			execution_path = EXCLUDED.execution_path,
			context = EXCLUDED.context,
			next_execution_at = EXCLUDED.next_execution_at,
			last_executed_at = EXCLUDED.last_executed_at,
			error_count = EXCLUDED.error_count,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.WorkflowID,
		enrollment.TargetType,
		enrollment.TargetID,
		enrollment.Status,
		enrollment.CurrentNodeID,
		visited,
		path,
		contextData,
		enrollment.NextExecutionAt,
		enrollment.LastExecutedAt,
		enrollment.ErrorCount,
		enrollment.LastError,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	)
	if err != nil {
		return persistence.NewEnrollmentError("Save", enrollment.ID, err)
	}

	return nil
}

// DueEnrollments returns waiting enrollments whose wake time has passed,
// oldest wake time first.
func (p *Persistence) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + `
		FROM enrollments
		WHERE status = $1 AND next_execution_at IS NOT NULL AND next_execution_at <= $2
		ORDER BY next_execution_at ASC
	`
	args := []any{models.EnrollmentStatusWaiting, now}

	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	return p.queryEnrollments(ctx, query, args...)
}

func (p *Persistence) queryEnrollments(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	enrollments := make([]*models.Enrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}

		enrollments = append(enrollments, enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var (
		enrollment  models.Enrollment
		visited     []byte
		path        []byte
		contextData []byte
		nextAt      sql.NullTime
		lastAt      sql.NullTime
	)

	err := row.Scan(
		&enrollment.ID,
		&enrollment.WorkflowID,
		&enrollment.TargetType,
		&enrollment.TargetID,
		&enrollment.Status,
		&enrollment.CurrentNodeID,
		&visited,
		&path,
		&contextData,
		&nextAt,
		&lastAt,
		&enrollment.ErrorCount,
		&enrollment.LastError,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(visited, &enrollment.VisitedNodes); err != nil {
		return nil, fmt.Errorf("failed to decode visited nodes for enrollment %s: %w", enrollment.ID, err)
	}

	if err := json.Unmarshal(path, &enrollment.ExecutionPath); err != nil {
		return nil, fmt.Errorf("failed to decode execution path for enrollment %s: %w", enrollment.ID, err)
	}

	if err := json.Unmarshal(contextData, &enrollment.Context); err != nil {
		return nil, fmt.Errorf("failed to decode context for enrollment %s: %w", enrollment.ID, err)
	}

	if nextAt.Valid {
		t := nextAt.Time.UTC()
		enrollment.NextExecutionAt = &t
	}

	if lastAt.Valid {
		t := lastAt.Time.UTC()
		enrollment.LastExecutedAt = &t
	}

	return &enrollment, nil
}
