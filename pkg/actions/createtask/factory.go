package createtask

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
	taskConfig, ok := config.(*models.CreateTaskConfig)
	if !ok {
		return nil, fmt.Errorf("create_task: unexpected config type %T", config)
	}

	return NewAction(taskConfig, f.store), nil
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionCreateTask
}
