package models

import (
	"time"
)

// Outcome is the top-level verdict of a verification.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDenied   Outcome = "denied"
)

// DenialReason explains a denied verification. Approved attempts carry ReasonNone.
type DenialReason string

const (
	ReasonNone               DenialReason = ""
	ReasonNotFound           DenialReason = "not_found"
	ReasonMethodDisabled     DenialReason = "method_disabled"
	ReasonExpiredToken       DenialReason = "expired_token"
	ReasonInvalidCredential  DenialReason = "invalid_credential"
	ReasonLocationNotAllowed DenialReason = "location_not_allowed"
	ReasonTimeNotAllowed     DenialReason = "time_not_allowed"
	ReasonQuotaExceeded      DenialReason = "quota_exceeded"
	ReasonLocked             DenialReason = "locked"
)

func (r DenialReason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}

// CountsAsFailure reports whether the reason feeds the lockout counter.
// Only wrong credentials do; being locked out never extends the lock.
func (r DenialReason) CountsAsFailure() bool {
	return r == ReasonInvalidCredential
}

// AttemptContext is what the caller reported about the request.
type AttemptContext struct {
	Location  *Coordinates `json:"location,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	CallerIP  string       `json:"caller_ip,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
	Device    string       `json:"device,omitempty"`
}

// AccessAttempt is one immutable audit log entry.
// Entries for a profile are ordered by (Timestamp, Sequence).
type AccessAttempt struct {
	ID          AttemptID
	Sequence    int64
	ProfileID   ProfileID
	MethodKind  MethodKind
	Outcome     Outcome
	Reason      DenialReason
	AccessLevel AccessLevel
	Context     AttemptContext
	Scenario    ScenarioType
	// LockedUntil is set on the entry whose failure triggered a lock.
	LockedUntil     *time.Time
	DisclosedFields []string
}

// Timestamp is the server time the attempt was recorded at.
func (a AccessAttempt) Timestamp() time.Time { return a.Context.Timestamp }

// TriggeredLock reports whether this entry started a lock.
func (a AccessAttempt) TriggeredLock() bool { return a.LockedUntil != nil }

// Before orders attempts by (Timestamp, Sequence).
func (a AccessAttempt) Before(b AccessAttempt) bool {
	if !a.Context.Timestamp.Equal(b.Context.Timestamp) {
		return a.Context.Timestamp.Before(b.Context.Timestamp)
	}
	return a.Sequence < b.Sequence
}

// LockState is the derived lock status of a profile.
type LockState struct {
	IsLocked    bool
	LockedUntil time.Time
}

// Unlocked is the zero lock state.
var Unlocked = LockState{}

// LockedAt reports a lock that is active at now. Expiry is lazy: the state
// flips to unlocked once now reaches LockedUntil.
func LockedAt(until, now time.Time) LockState {
	if until.IsZero() || !now.Before(until) {
		return Unlocked
	}
	return LockState{IsLocked: true, LockedUntil: until}
}

// HistoryPage is a newest-first slice of a profile's audit log.
type HistoryPage struct {
	Attempts []AccessAttempt
	Total    int
	Page     int
	Limit    int
}
