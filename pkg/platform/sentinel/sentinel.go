package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into decisions or domain errors.
//
//   - ErrNotFound: the profile, method, or token does not exist
//   - ErrConflict: a uniqueness rule was violated (second active profile, token digest clash)
//   - ErrExpired: a token exists but is past its expiry
//   - ErrDisabled: a method exists but has been switched off
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrDisabled    = errors.New("disabled")
	ErrUnavailable = errors.New("unavailable")
)
