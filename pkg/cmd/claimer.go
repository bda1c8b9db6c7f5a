package cmd

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/journeyhq/journey/pkg/engine"
)

// NewClaimer returns a Redis-backed claimer when a Redis URL is configured.
// Without one, workers run unclaimed and rely on the engine's idempotent
// no-op behavior for duplicate triggers.
func NewClaimer(redisURL string, logger *slog.Logger) engine.Claimer {
	if redisURL == "" {
		return engine.NoopClaimer{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return engine.NewRedisClaimer(redis.NewClient(opts), logger)
}
