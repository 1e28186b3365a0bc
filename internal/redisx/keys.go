package redisx

import "time"

const (
	// OAuth credentials for the accounting platform, one hash per
	// deployment: fields code, access_token, refresh_token.
	KeyAuth = "freefinance:auth"

	// Single-writer lock around the refresh-token grant.
	KeyRefreshLock = "freefinance:auth:refresh-lock"

	// Dedup processed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLRefreshLock = 30 * time.Second
)
