package updatedeal

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
	dealConfig, ok := config.(*models.UpdateDealConfig)
	if !ok {
		return nil, fmt.Errorf("update_deal: unexpected config type %T", config)
	}

	return NewAction(dealConfig, f.store), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionUpdateDeal
}
