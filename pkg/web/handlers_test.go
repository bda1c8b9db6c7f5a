package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/journeyhq/journey/pkg/mocks"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence/file"
	"github.com/journeyhq/journey/pkg/registry"
	"github.com/journeyhq/journey/pkg/web"
)

type testAPI struct {
	app   *fiber.App
	store *file.Persistence
	bus   *mocks.MockEventBus
}

func setupTestApp(t *testing.T) *testAPI {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	handlers := web.NewAPIHandlers(
		store,
		validator.New(validator.WithRequiredStructEnabled()),
		registry.NewRegistry(logger),
		bus,
	)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/enrollments", handlers.GetWorkflowEnrollments)

	e := app.Group("/enrollments")
	e.Post("/", handlers.CreateEnrollment)
	e.Get("/:id", handlers.GetEnrollment)
	e.Post("/:id/cancel", handlers.CancelEnrollment)

	app.Get("/actions", handlers.GetActions)
	app.Get("/health", handlers.HealthCheck)

	return &testAPI{app: app, store: store, bus: bus}
}

func validDefinitionBody() map[string]any {
	return map[string]any{
		"name":          "Deal Follow-up",
		"description":   "Follows up on new deals",
		"is_active":     true,
		"start_node_id": "start",
		"nodes": map[string]any{
			"start": map[string]any{"type": "trigger", "next_id": "done"},
			"done":  map[string]any{"type": "end"},
		},
	}
}

func (a *testAPI) seedWorkflow(t *testing.T, active bool) *models.WorkflowDefinition {
	t.Helper()

	def := &models.WorkflowDefinition{
		ID:          "wf-seeded",
		Name:        "Seeded",
		IsActive:    active,
		StartNodeID: "start",
		Nodes: map[string]*models.Node{
			"start": {ID: "start", Type: models.NodeTypeTrigger},
		},
	}
	require.NoError(t, a.store.SaveWorkflow(context.Background(), def))

	return def
}

func (a *testAPI) request(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewBuffer(encoded)
		}
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mutate         func(body map[string]any)
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "name too short",
			mutate:         func(body map[string]any) { body["name"] = "Hi" },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "schema rejects unknown node type",
			mutate: func(body map[string]any) {
				body["nodes"].(map[string]any)["start"].(map[string]any)["type"] = "hologram"
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "dangling successor",
			mutate: func(body map[string]any) {
				body["nodes"].(map[string]any)["start"].(map[string]any)["next_id"] = "missing"
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := setupTestApp(t)

			body := tt.requestBody
			if body == nil {
				document := validDefinitionBody()
				if tt.mutate != nil {
					tt.mutate(document)
				}

				body = document
			}

			resp := api.request(t, http.MethodPost, "/workflows", body)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				created := decode[models.WorkflowDefinition](t, resp)
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, "Deal Follow-up", created.Name)
				assert.Len(t, created.Nodes, 2)
			} else {
				_ = resp.Body.Close()
			}
		})
	}
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, true)

		name := "Renamed"
		resp := api.request(t, http.MethodPatch, "/workflows/"+def.ID, web.UpdateWorkflowRequest{Name: &name})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		updated := decode[models.WorkflowDefinition](t, resp)
		assert.Equal(t, "Renamed", updated.Name)
		assert.True(t, updated.IsActive)
		assert.Equal(t, "start", updated.StartNodeID)
	})

	t.Run("deactivate", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, true)

		inactive := false
		resp := api.request(t, http.MethodPatch, "/workflows/"+def.ID, web.UpdateWorkflowRequest{IsActive: &inactive})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, decode[models.WorkflowDefinition](t, resp).IsActive)
	})

	t.Run("graph replacement is validated", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, true)

		resp := api.request(t, http.MethodPatch, "/workflows/"+def.ID, web.UpdateWorkflowRequest{
			Nodes: map[string]*models.Node{
				"other": {ID: "other", Type: models.NodeTypeEnd},
			},
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("workflow not found", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		name := "Renamed"
		resp := api.request(t, http.MethodPatch, "/workflows/missing", web.UpdateWorkflowRequest{Name: &name})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	api := setupTestApp(t)
	def := api.seedWorkflow(t, true)

	resp := api.request(t, http.MethodDelete, "/workflows/"+def.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = api.request(t, http.MethodDelete, "/workflows/"+def.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPIHandlers_CreateEnrollment(t *testing.T) {
	t.Parallel()

	t.Run("enrolls and publishes trigger", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, true)

		dealID, err := api.store.AddRecord(context.Background(), models.CollectionDeals, map[string]any{
			"name": "Acme renewal", "value": 12000,
		})
		require.NoError(t, err)

		api.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		resp := api.request(t, http.MethodPost, "/enrollments", web.EnrollRequest{
			WorkflowID: def.ID,
			TargetType: "deal",
			TargetID:   dealID,
		})

		require.Equal(t, http.StatusCreated, resp.StatusCode)

		enrollment := decode[web.EnrollmentResponse](t, resp)
		assert.NotEmpty(t, enrollment.ID)
		assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
		assert.Equal(t, "start", enrollment.CurrentNodeID)

		api.bus.AssertExpectations(t)
	})

	t.Run("inactive workflow is rejected", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, false)

		resp := api.request(t, http.MethodPost, "/enrollments", web.EnrollRequest{
			WorkflowID: def.ID,
			TargetType: "deal",
			TargetID:   "deal-1",
		})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("missing target record", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)
		def := api.seedWorkflow(t, true)

		resp := api.request(t, http.MethodPost, "/enrollments", web.EnrollRequest{
			WorkflowID: def.ID,
			TargetType: "contact",
			TargetID:   "ghost",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("unknown workflow", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)

		resp := api.request(t, http.MethodPost, "/enrollments", web.EnrollRequest{
			WorkflowID: "missing",
			TargetType: "deal",
			TargetID:   "deal-1",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("invalid target type", func(t *testing.T) {
		t.Parallel()

		api := setupTestApp(t)

		resp := api.request(t, http.MethodPost, "/enrollments", web.EnrollRequest{
			WorkflowID: "wf",
			TargetType: "planet",
			TargetID:   "earth",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestAPIHandlers_CancelEnrollment(t *testing.T) {
	t.Parallel()

	api := setupTestApp(t)
	def := api.seedWorkflow(t, true)

	enrollment := models.NewEnrollment("enr-1", def, models.TargetTypeDeal, "deal-1")
	require.NoError(t, api.store.SaveEnrollment(context.Background(), enrollment))

	resp := api.request(t, http.MethodPost, "/enrollments/enr-1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.EnrollmentStatusCancelled, decode[web.EnrollmentResponse](t, resp).Status)

	// A second cancel hits a terminal enrollment.
	resp = api.request(t, http.MethodPost, "/enrollments/enr-1/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPIHandlers_GetWorkflowEnrollments(t *testing.T) {
	t.Parallel()

	api := setupTestApp(t)
	def := api.seedWorkflow(t, true)

	for _, id := range []string{"enr-1", "enr-2"} {
		enrollment := models.NewEnrollment(id, def, models.TargetTypeDeal, "deal-"+id)
		require.NoError(t, api.store.SaveEnrollment(context.Background(), enrollment))
	}

	resp := api.request(t, http.MethodGet, "/workflows/"+def.ID+"/enrollments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]web.EnrollmentResponse](t, resp), 2)

	resp = api.request(t, http.MethodGet, "/workflows/missing/enrollments", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	api := setupTestApp(t)

	resp := api.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}
