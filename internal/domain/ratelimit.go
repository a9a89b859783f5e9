package domain

import "time"

// RateLimitInfo is the execution backend's answer to the pre-flight
// rate limit probe. It is produced fresh for every invocation and never
// persisted; a stale reset time is worse than none.
type RateLimitInfo struct {
	// Limited reports whether the backend is currently rate limited.
	Limited bool `json:"limited"`

	// ResetAt is when the limit is expected to lift, if the backend
	// reports one.
	ResetAt *time.Time `json:"reset_at,omitempty"`

	// Message is the backend's human-readable description of the limit.
	Message string `json:"message,omitempty"`
}
