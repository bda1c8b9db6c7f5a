package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/journeyhq/journey/pkg/channels/gochannel"
	"github.com/journeyhq/journey/pkg/channels/kafka"
	"github.com/journeyhq/journey/pkg/eventbus"
)

// NewEventBus wires the event bus onto Kafka when brokers are configured and
// onto an in-process channel otherwise. The in-process channel only connects
// components of the same process, so it suits single-binary deployments and
// development.
func NewEventBus(kafkaBrokers string, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	if kafkaBrokers != "" {
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}

	pub, sub, err := gochannel.CreateChannel(wmLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
	}

	return eventbus.NewWatermillEventBus(pub, sub)
}
