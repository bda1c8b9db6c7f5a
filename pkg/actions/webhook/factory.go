package webhook

import (
	"fmt"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/protocol"
)

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (f *Factory) Create(config models.ActionConfig) (protocol.Action, error) {
	webhookConfig, ok := config.(*models.WebhookConfig)
	if !ok {
		return nil, fmt.Errorf("webhook: unexpected config type %T", config)
	}

	return NewAction(webhookConfig), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionWebhook
}
