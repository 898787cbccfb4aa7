package models

import (
	"github.com/google/uuid"

	dErrors "lifeline/pkg/domain-errors"
)

// ProfileID identifies an EmergencyAccessProfile.
type ProfileID uuid.UUID

// PatientID identifies the patient that owns a profile.
type PatientID uuid.UUID

// AttemptID identifies one AccessAttempt in the audit log.
type AttemptID uuid.UUID

func NewProfileID() ProfileID { return ProfileID(uuid.New()) }
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) String() string { return uuid.UUID(id).String() }
func (id PatientID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) String() string { return uuid.UUID(id).String() }
func (id AttemptID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseProfileID parses external input into a ProfileID.
// Returns CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s, "profile_id")
	return ProfileID(u), err
}

// ParsePatientID parses external input into a PatientID.
func ParsePatientID(s string) (PatientID, error) {
	u, err := parseUUID(s, "patient_id")
	return PatientID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}
