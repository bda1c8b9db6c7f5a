package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind identifies a concrete side-effecting action.
type ActionKind string

const (
	ActionSendEmail      ActionKind = "send_email"
	ActionCreateTask     ActionKind = "create_task"
	ActionUpdateDeal     ActionKind = "update_deal"
	ActionAssignDeal     ActionKind = "assign_deal"
	ActionMoveToStage    ActionKind = "move_to_stage"
	ActionCreateActivity ActionKind = "create_activity"
	ActionWebhook        ActionKind = "webhook"
)

var ErrUnknownActionKind = errors.New("unknown action kind")

// ActionConfig is the typed configuration of one action node. Raw node
// configs arrive as loose JSON objects; they are decoded into a concrete
// config struct and validated when the definition is loaded, not when the
// node executes.
type ActionConfig interface {
	Kind() ActionKind
	Validate() error
}

// SendEmailConfig configures a send_email action. String fields may contain
// {{...}} placeholders resolved against the target record and run context.
type SendEmailConfig struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (SendEmailConfig) Kind() ActionKind { return ActionSendEmail }

func (c SendEmailConfig) Validate() error {
	if c.To == "" {
		return errors.New("send_email: 'to' is required")
	}

	return nil
}

// CreateTaskConfig configures a create_task action. DueInDays, when positive,
// schedules the task due date relative to execution time.
type CreateTaskConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueInDays   int    `json:"due_in_days"`
	AssigneeID  string `json:"assignee_id"`
}

func (CreateTaskConfig) Kind() ActionKind { return ActionCreateTask }

func (c CreateTaskConfig) Validate() error {
	if c.Title == "" {
		return errors.New("create_task: 'title' is required")
	}

	if c.DueInDays < 0 {
		return errors.New("create_task: 'due_in_days' must not be negative")
	}

	return nil
}

// UpdateDealConfig configures an update_deal action. DealID overrides the
// enrollment target when the workflow runs against a non-deal record.
type UpdateDealConfig struct {
	DealID  string         `json:"deal_id"`
	Updates map[string]any `json:"updates"`
}

func (UpdateDealConfig) Kind() ActionKind { return ActionUpdateDeal }

func (c UpdateDealConfig) Validate() error {
	if len(c.Updates) == 0 {
		return errors.New("update_deal: 'updates' must contain at least one field")
	}

	return nil
}

// AssignDealConfig configures an assign_deal action.
type AssignDealConfig struct {
	DealID     string `json:"deal_id"`
	AssigneeID string `json:"assignee_id"`
	TeamID     string `json:"team_id"`
}

func (AssignDealConfig) Kind() ActionKind { return ActionAssignDeal }

func (c AssignDealConfig) Validate() error {
	if c.AssigneeID == "" && c.TeamID == "" {
		return errors.New("assign_deal: one of 'assignee_id' or 'team_id' is required")
	}

	return nil
}

// MoveStageConfig configures a move_to_stage action.
type MoveStageConfig struct {
	DealID     string `json:"deal_id"`
	StageID    string `json:"stage_id"`
	PipelineID string `json:"pipeline_id"`
}

func (MoveStageConfig) Kind() ActionKind { return ActionMoveToStage }

func (c MoveStageConfig) Validate() error {
	if c.StageID == "" {
		return errors.New("move_to_stage: 'stage_id' is required")
	}

	return nil
}

// CreateActivityConfig configures a create_activity action.
type CreateActivityConfig struct {
	ActivityType string `json:"activity_type"`
	Description  string `json:"description"`
}

func (CreateActivityConfig) Kind() ActionKind { return ActionCreateActivity }

func (c CreateActivityConfig) Validate() error {
	if c.Description == "" {
		return errors.New("create_activity: 'description' is required")
	}

	return nil
}

// WebhookConfig configures a webhook action. Payload values and header
// values may contain {{...}} placeholders.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Payload map[string]any    `json:"payload"`
}

func (WebhookConfig) Kind() ActionKind { return ActionWebhook }

func (c WebhookConfig) Validate() error {
	if c.URL == "" {
		return errors.New("webhook: 'url' is required")
	}

	return nil
}

// ParseActionConfig decodes a raw node config into the typed config for the
// given action kind and validates it.
func ParseActionConfig(kind ActionKind, raw map[string]any) (ActionConfig, error) {
	var cfg ActionConfig

	switch kind {
	case ActionSendEmail:
		cfg = &SendEmailConfig{}
	case ActionCreateTask:
		cfg = &CreateTaskConfig{}
	case ActionUpdateDeal:
		cfg = &UpdateDealConfig{}
	case ActionAssignDeal:
		cfg = &AssignDealConfig{}
	case ActionMoveToStage:
		cfg = &MoveStageConfig{}
	case ActionCreateActivity:
		cfg = &CreateActivityConfig{}
	case ActionWebhook:
		cfg = &WebhookConfig{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, kind)
	}

	if err := decodeConfig(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s config: %w", kind, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeConfig(raw map[string]any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}
