package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/journeyhq/journey/pkg/actions/createactivity"
	"github.com/journeyhq/journey/pkg/actions/sendemail"
	"github.com/journeyhq/journey/pkg/actions/webhook"
	"github.com/journeyhq/journey/pkg/eventbus"
	"github.com/journeyhq/journey/pkg/events"
	"github.com/journeyhq/journey/pkg/mocks"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence/file"
	"github.com/journeyhq/journey/pkg/registry"
	"github.com/journeyhq/journey/pkg/transport"
)

func newTestEngine(t *testing.T) (*Driver, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := testLogger()

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(sendemail.NewFactory(transport.NewLogMailer(logger), store))
	reg.RegisterAction(createactivity.NewFactory(store))
	reg.RegisterAction(webhook.NewFactory())

	driver := NewDriver(store, NewDispatcher(reg, logger), nil, NoopClaimer{}, "worker-test", logger)

	return driver, store
}

func seedDeal(t *testing.T, store *file.Persistence, fields map[string]any) string {
	t.Helper()

	id, err := store.AddRecord(context.Background(), models.CollectionDeals, fields)
	require.NoError(t, err)

	return id
}

func seedEnrollment(t *testing.T, store *file.Persistence, def *models.WorkflowDefinition, dealID string) *models.Enrollment {
	t.Helper()

	require.NoError(t, store.SaveWorkflow(context.Background(), def))

	enrollment := models.NewEnrollment(uuid.New().String(), def, models.TargetTypeDeal, dealID)
	require.NoError(t, store.SaveEnrollment(context.Background(), enrollment))

	return enrollment
}

func vipDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:          "wf-vip",
		Name:        "VIP routing",
		IsActive:    true,
		StartNodeID: "start",
		Nodes: map[string]*models.Node{
			"start": {ID: "start", Type: models.NodeTypeTrigger, NextID: "check"},
			"check": {
				ID:   "check",
				Type: models.NodeTypeCondition,
				Conditions: []models.Condition{
					{Field: "value", Operator: models.OpGreaterThan, Value: 10000},
				},
				Operator:    models.ConditionOperatorAnd,
				TrueNextID:  "email-vip",
				FalseNextID: "email-standard",
			},
			"email-vip": {
				ID:     "email-vip",
				Type:   models.NodeTypeAction,
				Action: models.ActionSendEmail,
				Config: map[string]any{"to": "vip@example.com", "subject": "VIP deal", "body": "{{deal.title}}"},
			},
			"email-standard": {
				ID:     "email-standard",
				Type:   models.NodeTypeAction,
				Action: models.ActionSendEmail,
				Config: map[string]any{"to": "sales@example.com", "subject": "New deal", "body": "{{deal.title}}"},
			},
		},
	}
}

func TestDriver_Run_EndToEnd(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme renewal", "value": 12000, "status": "active"})
	enrollment := seedEnrollment(t, store, vipDefinition(), dealID)

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	require.Len(t, final.ExecutionPath, 3)
	assert.Equal(t, []string{"start", "check", "email-vip"}, final.VisitedNodes)

	for _, step := range final.ExecutionPath {
		assert.Equal(t, models.StepResultSuccess, step.Result)
	}

	assert.Equal(t, true, final.Context["last_condition_result"])
	assert.Equal(t, "vip@example.com", final.Context["last_email_to"])
}

func TestDriver_Run_FalseBranch(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Small deal", "value": 500, "status": "active"})
	enrollment := seedEnrollment(t, store, vipDefinition(), dealID)

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	assert.Equal(t, []string{"start", "check", "email-standard"}, final.VisitedNodes)
}

func TestDriver_Run_NonActiveIsNoOp(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"value": 1})
	enrollment := seedEnrollment(t, store, vipDefinition(), dealID)

	enrollment.Status = models.EnrollmentStatusCompleted
	require.NoError(t, store.SaveEnrollment(context.Background(), enrollment))

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Empty(t, final.ExecutionPath)
}

func TestDriver_Run_DebouncesDuplicateInvocation(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"value": 1})
	enrollment := seedEnrollment(t, store, vipDefinition(), dealID)

	now := time.Now().UTC()
	enrollment.LastExecutedAt = &now
	require.NoError(t, store.SaveEnrollment(context.Background(), enrollment))

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Empty(t, final.ExecutionPath)
	assert.Equal(t, models.EnrollmentStatusActive, final.Status)
}

func TestDriver_Run_DelayPausesEnrollment(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := &models.WorkflowDefinition{
		ID:          "wf-delay",
		Name:        "Cool off",
		IsActive:    true,
		StartNodeID: "start",
		Nodes: map[string]*models.Node{
			"start": {ID: "start", Type: models.NodeTypeTrigger, NextID: "wait"},
			"wait":  {ID: "wait", Type: models.NodeTypeDelay, DelayDays: 1, NextID: "note"},
			"note": {
				ID: "note", Type: models.NodeTypeAction,
				Action: models.ActionCreateActivity,
				Config: map[string]any{"description": "followed up"},
			},
		},
	}

	enrollment := seedEnrollment(t, store, def, dealID)
	before := time.Now().UTC()

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	paused, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusWaiting, paused.Status)
	assert.Equal(t, "note", paused.CurrentNodeID)
	require.NotNil(t, paused.NextExecutionAt)
	assert.WithinDuration(t, before.Add(24*time.Hour), *paused.NextExecutionAt, time.Minute)

	// The delay is the last node executed in this invocation.
	assert.Equal(t, []string{"start", "wait"}, paused.VisitedNodes)

	// Resume as the resumer would: flip to active past the debounce window.
	past := time.Now().UTC().Add(-2 * time.Second)
	paused.Status = models.EnrollmentStatusActive
	paused.NextExecutionAt = nil
	paused.LastExecutedAt = &past
	require.NoError(t, store.SaveEnrollment(context.Background(), paused))

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	assert.Equal(t, []string{"start", "wait", "note"}, final.VisitedNodes)
}

func TestDriver_Run_ZeroDurationDelayStillPauses(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := &models.WorkflowDefinition{
		ID:          "wf-zero-delay",
		Name:        "Zero delay",
		IsActive:    true,
		StartNodeID: "wait",
		Nodes: map[string]*models.Node{
			"wait": {ID: "wait", Type: models.NodeTypeDelay, NextID: "done"},
			"done": {ID: "done", Type: models.NodeTypeEnd},
		},
	}

	enrollment := seedEnrollment(t, store, def, dealID)
	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	paused, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaiting, paused.Status)
}

func chainDefinition(length int) *models.WorkflowDefinition {
	nodes := make(map[string]*models.Node, length)

	for i := range length {
		node := &models.Node{
			ID:     fmt.Sprintf("step-%03d", i),
			Type:   models.NodeTypeAction,
			Action: models.ActionCreateActivity,
			Config: map[string]any{"description": "step"},
		}
		if i < length-1 {
			node.NextID = fmt.Sprintf("step-%03d", i+1)
		}

		nodes[node.ID] = node
	}

	return &models.WorkflowDefinition{
		ID:          "wf-chain",
		Name:        "Long chain",
		IsActive:    true,
		StartNodeID: "step-000",
		Nodes:       nodes,
	}
}

func TestDriver_BudgetYieldThenResumeCompletes(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	logger := testLogger()

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(createactivity.NewFactory(store))

	bus := &mocks.MockEventBus{}

	var triggers []events.EnrollmentTriggered

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if triggered, ok := args.Get(2).(eventbus.Event).(events.EnrollmentTriggered); ok {
				triggers = append(triggers, triggered)
			}
		}).
		Return(nil)

	driver := NewDriver(store, NewDispatcher(reg, logger), bus, NoopClaimer{}, "worker-test", logger)

	chainLength := MaxNodesPerExecution + 5
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})
	enrollment := seedEnrollment(t, store, chainDefinition(chainLength), dealID)

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	yielded, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, yielded.Status)
	assert.Len(t, yielded.ExecutionPath, MaxNodesPerExecution)
	assert.Equal(t, fmt.Sprintf("step-%03d", MaxNodesPerExecution), yielded.CurrentNodeID)

	// The yield re-publishes its own trigger so a worker picks the rest up.
	require.Len(t, triggers, 1)
	assert.Equal(t, enrollment.ID, triggers[0].EnrollmentID)
	assert.Equal(t, events.ReasonBudgetYield, triggers[0].Reason)

	// A plain Run inside the debounce window drops the trigger; the
	// continuation path has to go through Resume.
	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	stalled, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Len(t, stalled.ExecutionPath, MaxNodesPerExecution)

	// Resume skips the debounce and finishes the remaining nodes even though
	// the first invocation just ran.
	require.NoError(t, driver.Resume(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	assert.Len(t, final.ExecutionPath, chainLength)
	assert.Equal(t, "completed", final.CurrentNodeID)
}

func TestDriver_Run_LoopDetection(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := &models.WorkflowDefinition{
		ID:          "wf-loop",
		Name:        "Self loop",
		IsActive:    true,
		StartNodeID: "spin",
		Nodes: map[string]*models.Node{
			"spin": {
				ID: "spin", Type: models.NodeTypeAction,
				Action: models.ActionCreateActivity,
				Config: map[string]any{"description": "spinning"},
				NextID: "spin",
			},
		},
	}

	enrollment := seedEnrollment(t, store, def, dealID)

	err := driver.Run(context.Background(), enrollment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoopDetected)

	final, loadErr := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, loadErr)

	assert.Equal(t, models.EnrollmentStatusFailed, final.Status)
	assert.Contains(t, final.LastError, "infinite loop")
	assert.Equal(t, 1, final.ErrorCount)

	// The node runs while its visit count stays at the threshold, and the
	// enrollment fails on the attempt after the count exceeds it.
	assert.Equal(t, maxNodeVisits+1, final.VisitCount("spin"))
}

func TestDriver_Run_ErrorBranch(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := &models.WorkflowDefinition{
		ID:          "wf-error-branch",
		Name:        "Webhook with fallback",
		IsActive:    true,
		StartNodeID: "hook",
		Nodes: map[string]*models.Node{
			"hook": {
				ID: "hook", Type: models.NodeTypeAction,
				Action: models.ActionWebhook,
				// Unroutable port: the call fails fast.
				Config:      map[string]any{"url": "http://127.0.0.1:1"},
				ErrorNextID: "fallback",
			},
			"fallback": {
				ID: "fallback", Type: models.NodeTypeAction,
				Action: models.ActionCreateActivity,
				Config: map[string]any{"description": "webhook failed, noted"},
			},
		},
	}

	enrollment := seedEnrollment(t, store, def, dealID)
	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	assert.Equal(t, []string{"hook", "fallback"}, final.VisitedNodes)
	assert.Equal(t, 1, final.ErrorCount)
	assert.NotEmpty(t, final.LastError)

	require.Len(t, final.ExecutionPath, 2)
	assert.Equal(t, models.StepResultFailed, final.ExecutionPath[0].Result)
	assert.NotEmpty(t, final.ExecutionPath[0].Error)
	assert.Equal(t, models.StepResultSuccess, final.ExecutionPath[1].Result)
}

func TestDriver_Run_ActionFailureWithoutErrorBranchFails(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := &models.WorkflowDefinition{
		ID:          "wf-hard-fail",
		Name:        "Webhook without fallback",
		IsActive:    true,
		StartNodeID: "hook",
		Nodes: map[string]*models.Node{
			"hook": {
				ID: "hook", Type: models.NodeTypeAction,
				Action: models.ActionWebhook,
				Config: map[string]any{"url": "http://127.0.0.1:1"},
			},
		},
	}

	enrollment := seedEnrollment(t, store, def, dealID)

	err := driver.Run(context.Background(), enrollment.ID)
	require.Error(t, err)

	final, loadErr := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, loadErr)
	assert.Equal(t, models.EnrollmentStatusFailed, final.Status)
	assert.NotEmpty(t, final.LastError)
}

func TestDriver_Run_InactiveWorkflowCompletes(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := vipDefinition()
	def.IsActive = false

	enrollment := seedEnrollment(t, store, def, dealID)
	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, final.Status)
	assert.Empty(t, final.ExecutionPath)
}

func TestDriver_Run_MissingWorkflowFails(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	enrollment := models.NewEnrollment(uuid.New().String(), vipDefinition(), models.TargetTypeDeal, dealID)
	require.NoError(t, store.SaveEnrollment(context.Background(), enrollment))

	err := driver.Run(context.Background(), enrollment.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	final, loadErr := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, loadErr)
	assert.Equal(t, models.EnrollmentStatusFailed, final.Status)
}

func TestDriver_Run_MissingTargetFails(t *testing.T) {
	driver, store := newTestEngine(t)
	enrollment := seedEnrollment(t, store, vipDefinition(), "ghost-deal")

	err := driver.Run(context.Background(), enrollment.ID)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	final, loadErr := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, loadErr)
	assert.Equal(t, models.EnrollmentStatusFailed, final.Status)
}

func TestDriver_Run_MissingNodeFails(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme"})

	def := vipDefinition()
	def.StartNodeID = "nowhere"

	enrollment := seedEnrollment(t, store, def, dealID)

	err := driver.Run(context.Background(), enrollment.ID)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestDriver_Run_ExecutionPathRoundTrip(t *testing.T) {
	driver, store := newTestEngine(t)
	dealID := seedDeal(t, store, map[string]any{"title": "Acme renewal", "value": 12000, "status": "active"})
	enrollment := seedEnrollment(t, store, vipDefinition(), dealID)

	require.NoError(t, driver.Run(context.Background(), enrollment.ID))

	// Reload from disk: the persisted audit trail must replay the same
	// ordering the in-memory run produced.
	final, err := store.EnrollmentByID(context.Background(), enrollment.ID)
	require.NoError(t, err)

	require.Len(t, final.ExecutionPath, 3)

	for i, nodeID := range []string{"start", "check", "email-vip"} {
		assert.Equal(t, nodeID, final.ExecutionPath[i].NodeID)
	}

	for i := 1; i < len(final.ExecutionPath); i++ {
		assert.False(t, final.ExecutionPath[i].Timestamp.Before(final.ExecutionPath[i-1].Timestamp))
	}
}
