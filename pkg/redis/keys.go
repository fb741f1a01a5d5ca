package redis

import "strings"

// Every key the engine writes lives under one namespace so a shared Redis can
// be flushed or inspected per service.
const keyNamespace = "sm"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

// IdempotencyKey is where a replayable response or processed webhook marker
// is stored.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// LockKey names a cluster-wide mutex such as the cron worker's.
func (c *Client) LockKey(name string) string {
	return joinKey(lockPrefix, name)
}

func rateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
