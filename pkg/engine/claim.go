package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claimer hands out best-effort execution claims per enrollment so that
// duplicate deliveries of the same trigger collapse into one run. A lost
// claim is never an error: the engine stays correct without it, the claim
// only reduces wasted duplicate work.
type Claimer interface {
	Claim(ctx context.Context, enrollmentID string) (release func(), acquired bool, err error)
}

// NoopClaimer always grants the claim. Used in single-process deployments
// and in tests.
type NoopClaimer struct{}

func (NoopClaimer) Claim(_ context.Context, _ string) (func(), bool, error) {
	return func() {}, true, nil
}

const claimTTL = 30 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisClaimer implements Claimer with a SET NX lock. The TTL bounds how
// long a crashed worker can hold a claim; release only deletes the key when
// the stored token still matches, so an expired claim never releases a
// successor's lock.
type RedisClaimer struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisClaimer(client *redis.Client, logger *slog.Logger) *RedisClaimer {
	return &RedisClaimer{
		client: client,
		logger: logger.With("module", "redis_claimer"),
	}
}

func (c *RedisClaimer) Claim(ctx context.Context, enrollmentID string) (func(), bool, error) {
	key := "journey:claim:" + enrollmentID
	token := uuid.New().String()

	acquired, err := c.client.SetNX(ctx, key, token, claimTTL).Result()
	if err != nil {
		// Redis being down must not stop execution; run unclaimed.
		c.logger.WarnContext(ctx, "Claim attempt failed, running unclaimed", "enrollment_id", enrollmentID, "error", err)

		return func() {}, true, nil
	}

	if !acquired {
		return func() {}, false, nil
	}

	release := func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), c.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			c.logger.Warn("Failed to release claim", "enrollment_id", enrollmentID, "error", err)
		}
	}

	return release, true, nil
}
