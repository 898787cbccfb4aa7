package models

import (
	"time"
)

// VerificationRequest is what a responder terminal presents.
// ProfileRef may be nil for QR and NFC, whose credential locates the profile.
type VerificationRequest struct {
	ProfileRef *ProfileID
	MethodKind MethodKind
	Credential string
	Scenario   ScenarioType
	Context    RequestContext
}

// RequestContext is the caller-reported circumstances of a request.
type RequestContext struct {
	Lat          float64
	Lon          float64
	HasLocation  bool
	TimestampUTC time.Time
	CallerIP     string
	UserAgent    string
}

// Coordinates returns the reported location, if any.
func (c RequestContext) Coordinates() *Coordinates {
	if !c.HasLocation {
		return nil
	}
	return &Coordinates{Lat: c.Lat, Lon: c.Lon}
}

// VerificationResult is the tagged outcome of Verify.
// Disclosed is non-nil only for approved results.
type VerificationResult struct {
	Decision    Outcome
	Reason      DenialReason
	AccessLevel AccessLevel
	Disclosed   *DataSlice
	AttemptID   AttemptID
	ProfileID   ProfileID
	LockedUntil *time.Time
	GrantToken  string
	GrantExpiry time.Time
}

func (r *VerificationResult) Approved() bool { return r.Decision == OutcomeApproved }

// Approved builds an approval.
func Approved(level AccessLevel, data *DataSlice) *VerificationResult {
	return &VerificationResult{Decision: OutcomeApproved, AccessLevel: level, Disclosed: data}
}

// Denied builds a denial.
func Denied(reason DenialReason) *VerificationResult {
	return &VerificationResult{Decision: OutcomeDenied, Reason: reason}
}

// DataSlice is the projection of a profile disclosed at an access level.
// Fields outside the level stay at their zero value and are omitted from JSON.
type DataSlice struct {
	Level  AccessLevel `json:"access_level"`
	Fields []string    `json:"fields"`

	Name              string             `json:"name,omitempty"`
	Age               *int               `json:"age,omitempty"`
	BloodType         string             `json:"bloodType,omitempty"`
	CriticalAllergies []string           `json:"criticalAllergies,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`

	ActiveConditions    []string      `json:"activeConditions,omitempty"`
	CurrentMedications  []string      `json:"currentMedications,omitempty"`
	PrimaryCareProvider *CareProvider `json:"primaryCareProvider,omitempty"`

	EmergencyInstructions  string            `json:"emergencyInstructions,omitempty"`
	OrganDonor             *bool             `json:"organDonor,omitempty"`
	DNRStatus              *bool             `json:"dnrStatus,omitempty"`
	LivingWillReference    string            `json:"livingWillReference,omitempty"`
	MedicalPowerOfAttorney *EmergencyContact `json:"medicalPowerOfAttorney,omitempty"`
	InsuranceProvider      string            `json:"insuranceProvider,omitempty"`
	PrimaryHospital        string            `json:"primaryHospital,omitempty"`
}
