package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Pattern: tourly:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "tourly"
)

// ================== CAPACITY MODULE ==================

const (
	// Availability read model; invalidated on every counter write
	CACHE_KEY_AVAILABILITY = CACHE_PREFIX + ":capacity:availability:" // + operation-id:slot-id|all

	PATTERN_INVALIDATE_OPERATION_AVAILABILITY = CACHE_KEY_AVAILABILITY // + operation-id + :*
)

const (
	TTL_AVAILABILITY = 30 * time.Second
)

// ================== PAYMENTS MODULE ==================

const (
	// Claimed webhook deliveries, one per gateway event
	KEY_WEBHOOK_CLAIM = CACHE_PREFIX + ":payments:webhook:" // + source:event-id
)

const (
	TTL_WEBHOOK_CLAIM = 24 * time.Hour
)

// ================== RATE LIMIT ==================

const (
	KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + client-ip:limit-type
)

// ================== KEY BUILDERS ==================

// BuildAvailabilityKey returns the key for one slot, or for the whole operation when slotID is empty.
func BuildAvailabilityKey(operationID, slotID string) string {
	if slotID == "" {
		slotID = "all"
	}
	return fmt.Sprintf("%s%s:%s", CACHE_KEY_AVAILABILITY, operationID, slotID)
}

// BuildOperationAvailabilityPattern matches every availability key of one operation.
func BuildOperationAvailabilityPattern(operationID string) string {
	return PATTERN_INVALIDATE_OPERATION_AVAILABILITY + operationID + ":*"
}

func BuildWebhookClaimKey(source, eventID string) string {
	return fmt.Sprintf("%s%s:%s", KEY_WEBHOOK_CLAIM, source, eventID)
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s%s:%s", KEY_RATE_LIMIT, clientIP, limitType)
}
