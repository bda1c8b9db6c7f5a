package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/persistence/file"
)

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func testDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:          id,
		Name:        "Follow up",
		IsActive:    true,
		StartNodeID: "start",
		Nodes: map[string]*models.Node{
			"start": {ID: "start", Type: models.NodeTypeTrigger, NextID: "done"},
			"done":  {ID: "done", Type: models.NodeTypeEnd},
		},
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	def := testDefinition("wf-1")
	require.NoError(t, store.SaveWorkflow(ctx, def))

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Follow up", loaded.Name)
	assert.Equal(t, "start", loaded.StartNodeID)
	require.Contains(t, loaded.Nodes, "done")
	assert.Equal(t, models.NodeTypeEnd, loaded.Nodes["done"].Type)

	all, err := store.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))

	_, err = store.WorkflowByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestEnrollmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	enr := models.NewEnrollment("enr-1", testDefinition("wf-1"), models.TargetTypeDeal, "deal-1")
	enr.RecordStep("start", time.Now().UTC(), models.StepResultSuccess, "")
	require.NoError(t, store.SaveEnrollment(ctx, enr))

	loaded, err := store.EnrollmentByID(ctx, "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, loaded.Status)
	require.Len(t, loaded.ExecutionPath, 1)
	assert.Equal(t, "start", loaded.ExecutionPath[0].NodeID)

	_, err = store.EnrollmentByID(ctx, "ghost")
	assert.True(t, persistence.IsEnrollmentNotFound(err))
}

func TestDueEnrollments(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	recent := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	waitingPast := models.NewEnrollment("due-old", testDefinition("wf-1"), models.TargetTypeDeal, "d1")
	waitingPast.Status = models.EnrollmentStatusWaiting
	waitingPast.NextExecutionAt = &past

	waitingRecent := models.NewEnrollment("due-new", testDefinition("wf-1"), models.TargetTypeDeal, "d2")
	waitingRecent.Status = models.EnrollmentStatusWaiting
	waitingRecent.NextExecutionAt = &recent

	notDue := models.NewEnrollment("not-due", testDefinition("wf-1"), models.TargetTypeDeal, "d3")
	notDue.Status = models.EnrollmentStatusWaiting
	notDue.NextExecutionAt = &future

	active := models.NewEnrollment("active", testDefinition("wf-1"), models.TargetTypeDeal, "d4")

	for _, e := range []*models.Enrollment{waitingPast, waitingRecent, notDue, active} {
		require.NoError(t, store.SaveEnrollment(ctx, e))
	}

	due, err := store.DueEnrollments(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-old", due[0].ID)
	assert.Equal(t, "due-new", due[1].ID)

	limited, err := store.DueEnrollments(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "due-old", limited[0].ID)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	id, err := store.AddRecord(ctx, models.CollectionDeals, map[string]any{
		"title": "Acme renewal",
		"value": 15000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	deal, err := store.GetRecord(ctx, models.CollectionDeals, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme renewal", deal["title"])

	require.NoError(t, store.UpdateRecord(ctx, models.CollectionDeals, id, map[string]any{
		"stage_id": "won",
	}))

	deal, err = store.GetRecord(ctx, models.CollectionDeals, id)
	require.NoError(t, err)
	assert.Equal(t, "won", deal["stage_id"])
	assert.Equal(t, "Acme renewal", deal["title"]) // patch, not replace

	_, err = store.GetRecord(ctx, models.CollectionDeals, "ghost")
	assert.True(t, persistence.IsRecordNotFound(err))

	_, err = store.GetRecord(ctx, "invoices", "x")
	assert.ErrorIs(t, err, persistence.ErrUnknownCollection)
}
