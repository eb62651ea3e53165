package redis

import "strings"

// Every key lives under orders:<area>:... so a shared Redis can be scanned
// or flushed per area.
const (
	keyNamespace = "orders"

	areaIdempotency = "idempotency"
	areaRateLimit   = "rate_limit"
	areaSession     = "session"
	areaLock        = "lock"
)

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(areaIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(areaRateLimit, scope)
}

// LockKey scopes a mutex, e.g. LockKey("import", shopName).
func (c *Client) LockKey(scope, id string) string {
	return key(areaLock, scope, id)
}

// AccessSessionKey is keyed by the access token jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return key(areaSession, "access", accessID)
}
