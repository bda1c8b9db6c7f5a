package sendemail

import (
	"fmt"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/transport"
)

func NewFactory(mailer transport.Mailer, store persistence.RecordStore) *Factory {
	return &Factory{mailer: mailer, store: store}
}

type Factory struct {
	mailer transport.Mailer
	store  persistence.RecordStore
}

func (f *Factory) Create(config models.ActionConfig) (protocol.Action, error) {
	emailConfig, ok := config.(*models.SendEmailConfig)
	if !ok {
		return nil, fmt.Errorf("send_email: unexpected config type %T", config)
	}

	return NewAction(emailConfig, f.mailer, f.store), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionSendEmail
}
