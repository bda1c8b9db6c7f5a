// Package resumer wakes paused enrollments whose delay has elapsed. It
// periodically sweeps waiting enrollments with a due wake time, flips them
// back to active, and re-publishes the trigger event the workers consume.
// Duplicate wakes are harmless: the engine treats redundant triggers as
// no-ops.
package resumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/journeyhq/journey/pkg/eventbus"
	"github.com/journeyhq/journey/pkg/events"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
)

const DefaultBatchSize = 100

type Resumer struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
	batchSize   int
	cron        *cron.Cron
}

func New(p persistence.Persistence, bus eventbus.EventBus, batchSize int, logger *slog.Logger) *Resumer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Resumer{
		persistence: p,
		eventBus:    bus,
		logger:      logger.With("module", "resumer"),
		batchSize:   batchSize,
		cron:        cron.New(),
	}
}

// Start schedules the sweep on the given cron expression (e.g. "@every 30s")
// and runs it until Stop is called.
func (r *Resumer) Start(ctx context.Context, schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid resume schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Resumer started", "schedule", schedule, "batch_size", r.batchSize)

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (r *Resumer) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep wakes one batch of due enrollments and returns how many it woke.
// A failure on one enrollment does not stop the rest of the batch.
func (r *Resumer) Sweep(ctx context.Context) (int, error) {
	due, err := r.persistence.DueEnrollments(ctx, time.Now().UTC(), r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query due enrollments: %w", err)
	}

	woken := 0

	for _, enrollment := range due {
		if err := r.wake(ctx, enrollment); err != nil {
			r.logger.ErrorContext(ctx, "Failed to wake enrollment",
				"enrollment_id", enrollment.ID, "error", err)

			continue
		}

		woken++
	}

	if woken > 0 {
		r.logger.InfoContext(ctx, "Woke due enrollments", "count", woken)
	}

	return woken, nil
}

func (r *Resumer) wake(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.NextExecutionAt = nil

	if err := r.persistence.SaveEnrollment(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to persist woken enrollment: %w", err)
	}

	event := events.EnrollmentTriggered{
		BaseEvent:  events.NewBaseEvent(events.EnrollmentTriggeredEvent, enrollment.ID),
		WorkflowID: enrollment.WorkflowID,
		TargetType: enrollment.TargetType,
		TargetID:   enrollment.TargetID,
		Reason:     events.ReasonResume,
	}

	if err := r.eventBus.Publish(ctx, enrollment.ID, event); err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	return nil
}
