package assigndeal

import (
	"fmt"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
)

func NewFactory(store persistence.RecordStore) *Factory {
	return &Factory{store: store}
}

type Factory struct {
	store persistence.RecordStore
}

func (f *Factory) Create(config models.ActionConfig) (protocol.Action, error) {
	assignConfig, ok := config.(*models.AssignDealConfig)
	if !ok {
		return nil, fmt.Errorf("assign_deal: unexpected config type %T", config)
	}

	return NewAction(assignConfig, f.store), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionAssignDeal
}
