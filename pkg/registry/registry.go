// Package registry maps action kinds to their factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[models.ActionKind]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[models.ActionKind]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.Kind()] = factory
}

// CreateAction parses and validates the raw node config for the given kind,
// then asks the registered factory to build the action.
func (r *Registry) CreateAction(kind models.ActionKind, rawConfig map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[kind]
	if !ok {
		return nil, fmt.Errorf("action kind %q not registered", kind)
	}

	config, err := models.ParseActionConfig(kind, rawConfig)
	if err != nil {
		return nil, err
	}

	return factory.Create(config)
}

// ActionKinds returns the registered kinds, for surfacing in the API.
func (r *Registry) ActionKinds() []models.ActionKind {
	kinds := make([]models.ActionKind, 0, len(r.actionFactories))
	for kind := range r.actionFactories {
		kinds = append(kinds, kind)
	}

	return kinds
}
