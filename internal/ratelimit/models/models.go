// Package models holds the rate limiting result and response shapes.
package models

import (
	"math"
	"time"
)

// RateLimitResult is the outcome of a single bucket check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Denied builds a rejection that resets at resetAt.
func Denied(limit int, resetAt, now time.Time) *RateLimitResult {
	retry := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return &RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}

// RateLimitExceededResponse is the API response when a client is throttled.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"` // seconds
}
