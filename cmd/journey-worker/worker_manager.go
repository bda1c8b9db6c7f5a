package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/journeyhq/journey/pkg/engine"
	"github.com/journeyhq/journey/pkg/eventbus"
	"github.com/journeyhq/journey/pkg/events"
	"github.com/journeyhq/journey/pkg/otelhelper"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/registry"
)

// WorkerManager subscribes to enrollment triggers and drives the engine.
type WorkerManager struct {
	id       string
	logger   *slog.Logger
	driver   *engine.Driver
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	claimer engine.Claimer,
	registry *registry.Registry,
	logger *slog.Logger,
) *WorkerManager {
	logger = logger.With("module", "journey-worker", "worker_id", id)

	tracer, err := otelhelper.NewTracer(context.Background(), "journey-worker")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)

		tracer = noop.NewTracerProvider().Tracer("journey-worker")
	}

	dispatcher := engine.NewDispatcher(registry, logger)

	return &WorkerManager{
		id:       id,
		logger:   logger,
		driver:   engine.NewDriver(store, dispatcher, eventBus, claimer, id, logger),
		eventBus: eventBus,
		tracer:   tracer,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.eventBus.Handle(events.EnrollmentTriggeredEvent, w.handleEnrollmentTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleEnrollmentTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.EnrollmentTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for EnrollmentTriggered")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "enrollment.run",
		attribute.String(otelhelper.EnrollmentIDKey, triggeredEvent.EnrollmentID),
		attribute.String(otelhelper.WorkflowIDKey, triggeredEvent.WorkflowID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"enrollment_id", triggeredEvent.EnrollmentID,
		"workflow_id", triggeredEvent.WorkflowID,
		"reason", triggeredEvent.Reason,
	)
	logger.InfoContext(ctx, "Processing enrollment trigger")

	// Continuation triggers skip the debounce: the enrollment just executed,
	// so the debounce would drop them and nothing else would pick it back up.
	run := w.driver.Run
	if events.ContinuationReason(triggeredEvent.Reason) {
		run = w.driver.Resume
	}

	if err := run(ctx, triggeredEvent.EnrollmentID); err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Enrollment run failed", "error", err)

		return err
	}

	return nil
}
