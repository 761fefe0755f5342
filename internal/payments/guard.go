package payments

import (
	"context"
	"fmt"
	"time"

	"tourly/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

const luaClaimDelivery = `
-- KEYS[1] = claim key
-- ARGV[1] = ttl_seconds
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("SET", KEYS[1], "1", "EX", tonumber(ARGV[1]))
return 1
`

// WebhookGuard drops duplicate deliveries of the same gateway event before
// they reach the booking service. Without Redis every delivery is let through.
type WebhookGuard struct {
	redis  *redis.Client
	ttl    time.Duration
	script *redis.Script
}

func NewWebhookGuard(redisClient *redis.Client, ttl time.Duration) *WebhookGuard {
	if ttl <= 0 {
		ttl = constants.TTL_WEBHOOK_CLAIM
	}
	return &WebhookGuard{
		redis:  redisClient,
		ttl:    ttl,
		script: redis.NewScript(luaClaimDelivery),
	}
}

// Claim reports whether this is the first delivery of eventID.
func (g *WebhookGuard) Claim(ctx context.Context, source, eventID string) (bool, error) {
	if g == nil || g.redis == nil {
		return true, nil
	}
	claimed, err := g.script.Run(ctx, g.redis, []string{constants.BuildWebhookClaimKey(source, eventID)}, int(g.ttl.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook delivery: %w", err)
	}
	return claimed == 1, nil
}

// Release forgets a claim so the gateway's retry is processed again.
func (g *WebhookGuard) Release(ctx context.Context, source, eventID string) error {
	if g == nil || g.redis == nil {
		return nil
	}
	if err := g.redis.Del(ctx, constants.BuildWebhookClaimKey(source, eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release webhook claim: %w", err)
	}
	return nil
}
