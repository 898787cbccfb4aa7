package models

import (
	"maps"
	"slices"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// Default security thresholds applied to new profiles.
const (
	DefaultMaxDailyAccess        = 10
	DefaultAutoLockAfterFailures = 3
	DefaultLockDuration          = time.Hour
	DefaultFailureWindow         = 15 * time.Minute
)

// EmergencyAccessProfile is the per-patient emergency access configuration.
// Profiles are never hard-deleted; Deactivate flips IsActive.
type EmergencyAccessProfile struct {
	ID                 ProfileID
	PatientID          PatientID
	Methods            map[MethodKind]AccessMethod
	Location           LocationRestriction
	Time               TimeRestriction
	Alerts             MedicalAlerts
	Scenarios          []EmergencyScenario
	Security           SecurityPolicy
	DefaultAccessLevel AccessLevel
	Notifications      NotificationPreferences
	Patient            PatientRecord
	IsActive           bool
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SecurityPolicy holds the abuse thresholds of a profile.
type SecurityPolicy struct {
	MaxDailyAccess        int           `json:"max_daily_access"`
	AutoLockAfterFailures int           `json:"auto_lock_after_failures"`
	LockDuration          time.Duration `json:"lock_duration"`
	FailureWindow         time.Duration `json:"failure_window"`
}

// DefaultSecurityPolicy returns the thresholds used when a patient sets nothing.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		MaxDailyAccess:        DefaultMaxDailyAccess,
		AutoLockAfterFailures: DefaultAutoLockAfterFailures,
		LockDuration:          DefaultLockDuration,
		FailureWindow:         DefaultFailureWindow,
	}
}

// NotificationPreferences gate which domain events are emitted for a profile.
type NotificationPreferences struct {
	NotifyOnAccess       bool `json:"notify_on_access"`
	NotifyOnFailedAccess bool `json:"notify_on_failed_access"`
}

// PatientRecord is the identity and care-team data that may be disclosed.
type PatientRecord struct {
	Name                string             `json:"name"`
	DateOfBirth         time.Time          `json:"date_of_birth"`
	EmergencyContacts   []EmergencyContact `json:"emergency_contacts"`
	PrimaryCareProvider *CareProvider      `json:"primary_care_provider,omitempty"`
	PrimaryHospital     string             `json:"primary_hospital,omitempty"`
	InsuranceProvider   string             `json:"insurance_provider,omitempty"`
}

// EmergencyContact is a person to reach during an emergency.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	Email        string `json:"email,omitempty"`
	Primary      bool   `json:"primary"`
}

// CareProvider is a clinician or practice responsible for the patient.
type CareProvider struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Org   string `json:"org,omitempty"`
}

// MedicalAlerts is the clinical summary responders may see.
type MedicalAlerts struct {
	BloodType              string            `json:"blood_type"`
	CriticalAllergies      []string          `json:"critical_allergies"`
	ActiveConditions       []string          `json:"active_conditions"`
	CurrentMedications     []string          `json:"current_medications"`
	EmergencyInstructions  string            `json:"emergency_instructions,omitempty"`
	OrganDonor             *bool             `json:"organ_donor,omitempty"`
	DNRStatus              bool              `json:"dnr_status"`
	LivingWillReference    string            `json:"living_will_reference,omitempty"`
	MedicalPowerOfAttorney *EmergencyContact `json:"medical_power_of_attorney,omitempty"`
}

// NewProfile creates an active profile with default thresholds and no methods.
func NewProfile(patientID PatientID, patient PatientRecord, now time.Time) (*EmergencyAccessProfile, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient_id is required")
	}
	p := &EmergencyAccessProfile{
		ID:                 NewProfileID(),
		PatientID:          patientID,
		Methods:            make(map[MethodKind]AccessMethod),
		Security:           DefaultSecurityPolicy(),
		DefaultAccessLevel: AccessLevelBasic,
		Notifications:      NotificationPreferences{NotifyOnAccess: true, NotifyOnFailedAccess: true},
		Patient:            patient,
		IsActive:           true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants a stored profile must hold.
func (p *EmergencyAccessProfile) Validate() error {
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile id is required")
	}
	if !p.DefaultAccessLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid default access level")
	}
	if p.Security.MaxDailyAccess <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max_daily_access must be positive")
	}
	if p.Security.AutoLockAfterFailures <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "auto_lock_after_failures must be positive")
	}
	if p.Security.LockDuration <= 0 || p.Security.FailureWindow <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "lock duration and failure window must be positive")
	}
	for kind, m := range p.Methods {
		if m == nil || m.Kind() != kind {
			return dErrors.New(dErrors.CodeInvariantViolation, "method map key does not match method kind")
		}
	}
	if err := p.Location.Validate(); err != nil {
		return err
	}
	if err := p.Time.Validate(); err != nil {
		return err
	}
	for _, s := range p.Scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Method returns the configured method of a kind.
func (p *EmergencyAccessProfile) Method(kind MethodKind) (AccessMethod, bool) {
	m, ok := p.Methods[kind]
	return m, ok
}

// SetMethod installs m as the single live method of its kind.
func (p *EmergencyAccessProfile) SetMethod(m AccessMethod, now time.Time) {
	if p.Methods == nil {
		p.Methods = make(map[MethodKind]AccessMethod)
	}
	p.Methods[m.Kind()] = m
	p.touch(now)
}

// Scenario returns the configured scenario of a type.
func (p *EmergencyAccessProfile) Scenario(t ScenarioType) (EmergencyScenario, bool) {
	for _, s := range p.Scenarios {
		if s.Type == t {
			return s, true
		}
	}
	return EmergencyScenario{}, false
}

// ResolveAccessLevel returns the scenario's level when the scenario is
// configured with one, otherwise the profile default.
func (p *EmergencyAccessProfile) ResolveAccessLevel(t ScenarioType) AccessLevel {
	if t != "" {
		if s, ok := p.Scenario(t); ok && s.AccessLevel.IsValid() {
			return s.AccessLevel
		}
	}
	return p.DefaultAccessLevel
}

// Deactivate soft-disables the profile.
func (p *EmergencyAccessProfile) Deactivate(now time.Time) {
	p.IsActive = false
	p.touch(now)
}

func (p *EmergencyAccessProfile) touch(now time.Time) {
	p.UpdatedAt = now
	p.Version++
}

// Clone returns a deep-enough copy for stores that hand out values.
func (p *EmergencyAccessProfile) Clone() *EmergencyAccessProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Methods = maps.Clone(p.Methods)
	c.Scenarios = slices.Clone(p.Scenarios)
	c.Location.Geofences = slices.Clone(p.Location.Geofences)
	c.Time.Weekdays = slices.Clone(p.Time.Weekdays)
	c.Patient.EmergencyContacts = slices.Clone(p.Patient.EmergencyContacts)
	c.Alerts.CriticalAllergies = slices.Clone(p.Alerts.CriticalAllergies)
	c.Alerts.ActiveConditions = slices.Clone(p.Alerts.ActiveConditions)
	c.Alerts.CurrentMedications = slices.Clone(p.Alerts.CurrentMedications)
	return &c
}
