// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"log/slog"

	"github.com/journeyhq/journey/pkg/actions/assigndeal"
	"github.com/journeyhq/journey/pkg/actions/createactivity"
	"github.com/journeyhq/journey/pkg/actions/createtask"
	"github.com/journeyhq/journey/pkg/actions/movestage"
	"github.com/journeyhq/journey/pkg/actions/sendemail"
	"github.com/journeyhq/journey/pkg/actions/updatedeal"
	"github.com/journeyhq/journey/pkg/actions/webhook"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/registry"
	"github.com/journeyhq/journey/pkg/transport"
)

// NewRegistry builds the action registry with every native action.
func NewRegistry(logger *slog.Logger, store persistence.Persistence, mailer transport.Mailer) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(sendemail.NewFactory(mailer, store))
	reg.RegisterAction(createtask.NewFactory(store))
	reg.RegisterAction(updatedeal.NewFactory(store))
	reg.RegisterAction(assigndeal.NewFactory(store))
	reg.RegisterAction(movestage.NewFactory(store))
	reg.RegisterAction(createactivity.NewFactory(store))
	reg.RegisterAction(webhook.NewFactory())

	return reg
}

// NewMailer returns the relay-backed mailer when an endpoint is configured
// and a log-only mailer otherwise.
func NewMailer(relayURL string, logger *slog.Logger) transport.Mailer {
	if relayURL != "" {
		return transport.NewRelayMailer(relayURL)
	}

	return transport.NewLogMailer(logger)
}
