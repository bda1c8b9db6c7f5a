// Package webhook provides the webhook action, which notifies an external
// system over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/template"
)

const defaultTimeout = 30 * time.Second

// Action delivers a JSON payload to the configured URL. Any non-2xx response
// is a failure so the workflow's error branch can react to it.
type Action struct {
	config *models.WebhookConfig
	client *http.Client
}

func NewAction(config *models.WebhookConfig) *Action {
	return &Action{
		config: config,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "webhook_action")

	resolve := func(s string) string {
		return template.Resolve(s, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
	}

	url := resolve(a.config.URL)

	method := strings.ToUpper(a.config.Method)
	if method == "" {
		method = http.MethodPost
	}

	body, err := a.buildBody(executionCtx, resolve)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.config.Headers {
		req.Header.Set(key, resolve(value))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook: request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook: failed to read response body: %w", err)
	}

	logger.InfoContext(ctx, "Webhook delivered",
		"url", url,
		"status_code", resp.StatusCode,
		"body_length", len(responseBytes),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}

	var responseBody any
	if err := json.Unmarshal(responseBytes, &responseBody); err != nil {
		responseBody = string(responseBytes)
	}

	return map[string]any{
		"last_webhook_status":   resp.StatusCode,
		"last_webhook_response": responseBody,
	}, nil
}

// buildBody renders the configured payload, falling back to a snapshot of the
// enrollment when no payload is configured.
func (a *Action) buildBody(executionCtx protocol.ExecutionContext, resolve func(string) string) (io.Reader, error) {
	payload := a.config.Payload
	if payload == nil {
		payload = map[string]any{
			"enrollment_id": executionCtx.EnrollmentID,
			"workflow_id":   executionCtx.WorkflowID,
			"target_type":   string(executionCtx.TargetType),
			"target_id":     executionCtx.TargetID,
			"context":       executionCtx.Context,
		}
	} else {
		rendered := make(map[string]any, len(payload))

		for key, value := range payload {
			if str, ok := value.(string); ok {
				rendered[key] = resolve(str)
			} else {
				rendered[key] = value
			}
		}

		payload = rendered
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("webhook: failed to encode payload: %w", err)
	}

	return bytes.NewReader(encoded), nil
}
