package movestage

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
	stageConfig, ok := config.(*models.MoveStageConfig)
	if !ok {
		return nil, fmt.Errorf("move_to_stage: unexpected config type %T", config)
	}

	return NewAction(stageConfig, f.store), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionMoveToStage
}
