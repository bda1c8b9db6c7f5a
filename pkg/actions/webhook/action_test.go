package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeyhq/journey/pkg/actions/webhook"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testExecutionContext() protocol.ExecutionContext {
	return protocol.ExecutionContext{
		EnrollmentID: "enr-1",
		WorkflowID:   "wf-1",
		TargetType:   models.TargetTypeDeal,
		TargetID:     "deal-1",
		Target:       map[string]any{"title": "Acme renewal"},
		Context:      map[string]any{"score": 87.0},
	}
}

func TestAction_Execute(t *testing.T) {
	var (
		gotMethod string
		gotAuth   string
		gotBody   map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	config := &models.WebhookConfig{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer {{context.score}}"},
		Payload: map[string]any{
			"deal":  "{{deal.title}}",
			"fixed": 1,
		},
	}

	delta, err := webhook.NewAction(config).Execute(context.Background(), testExecutionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer 87", gotAuth)
	assert.Equal(t, "Acme renewal", gotBody["deal"])
	assert.EqualValues(t, 1, gotBody["fixed"])

	assert.Equal(t, http.StatusOK, delta["last_webhook_status"])
	response, ok := delta["last_webhook_response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, response["received"])
}

func TestAction_Execute_DefaultPayload(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	config := &models.WebhookConfig{URL: server.URL}

	_, err := webhook.NewAction(config).Execute(context.Background(), testExecutionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "enr-1", gotBody["enrollment_id"])
	assert.Equal(t, "deal", gotBody["target_type"])
	assert.Equal(t, "deal-1", gotBody["target_id"])
}

func TestAction_Execute_Non2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config := &models.WebhookConfig{URL: server.URL}

	_, err := webhook.NewAction(config).Execute(context.Background(), testExecutionContext(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestAction_Execute_ConnectionRefused(t *testing.T) {
	config := &models.WebhookConfig{URL: "http://127.0.0.1:1"}

	_, err := webhook.NewAction(config).Execute(context.Background(), testExecutionContext(), testLogger())
	require.Error(t, err)
}

func TestFactory(t *testing.T) {
	factory := webhook.NewFactory()
	assert.Equal(t, models.ActionWebhook, factory.Kind())

	action, err := factory.Create(&models.WebhookConfig{URL: "http://example.com"})
	require.NoError(t, err)
	assert.NotNil(t, action)

	_, err = factory.Create(&models.SendEmailConfig{To: "a@b.c"})
	require.Error(t, err)
}
