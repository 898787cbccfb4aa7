package handler

import (
	"strings"
	"time"

	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/service/methods"
	"lifeline/internal/emergency/service/profile"
	dErrors "lifeline/pkg/domain-errors"
)

const maxCredentialLength = 4096

// Location is a reported responder position.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AccessRequest is the body of POST /emergency/access.
type AccessRequest struct {
	ProfileID  string    `json:"profile_id,omitempty"`
	Method     string    `json:"method"`
	Credential string    `json:"credential"`
	Scenario   string    `json:"scenario,omitempty"`
	Location   *Location `json:"location,omitempty"`
	// Timestamp is the terminal's clock. It is recorded but never used for
	// time restrictions.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	parsedProfileID *models.ProfileID
	parsedMethod    models.MethodKind
	parsedScenario  models.ScenarioType
}

// Validate implements httputil.Validatable.
func (r *AccessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Credential) > maxCredentialLength {
		return dErrors.New(dErrors.CodeValidation, "credential is too long")
	}

	kind, err := models.ParseMethodKind(strings.TrimSpace(r.Method))
	if err != nil {
		return err
	}
	r.parsedMethod = kind

	if r.ProfileID = strings.TrimSpace(r.ProfileID); r.ProfileID != "" {
		id, err := models.ParseProfileID(r.ProfileID)
		if err != nil {
			return err
		}
		r.parsedProfileID = &id
	} else if !kind.IsTokenLookup() {
		return dErrors.New(dErrors.CodeValidation, "profile_id is required for this method")
	}

	if r.Credential == "" {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}

	scenario, err := models.ParseScenarioType(strings.TrimSpace(r.Scenario))
	if err != nil {
		return err
	}
	r.parsedScenario = scenario
	return nil
}

// ToModel builds the engine request. Caller metadata comes from the context.
func (r *AccessRequest) ToModel(clientIP, userAgent string) *models.VerificationRequest {
	req := &models.VerificationRequest{
		ProfileRef: r.parsedProfileID,
		MethodKind: r.parsedMethod,
		Credential: r.Credential,
		Scenario:   r.parsedScenario,
		Context: models.RequestContext{
			CallerIP:  clientIP,
			UserAgent: userAgent,
		},
	}
	if r.Location != nil {
		req.Context.Lat, req.Context.Lon, req.Context.HasLocation = r.Location.Lat, r.Location.Lon, true
	}
	if r.Timestamp != nil {
		req.Context.TimestampUTC = r.Timestamp.UTC()
	}
	return req
}

// MethodRequest is the body of POST /emergency/profiles/{id}/methods/{kind}.
// Only the fields of the addressed kind are read.
type MethodRequest struct {
	TTLSeconds     int      `json:"ttl_seconds,omitempty"`
	TagID          string   `json:"tag_id,omitempty"`
	Modality       string   `json:"modality,omitempty"`
	Template       string   `json:"template,omitempty"`
	NationalID     string   `json:"national_id,omitempty"`
	GuardianPhones []string `json:"guardian_phones,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *MethodRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must not be negative")
	}
	return nil
}

// Params converts the body to registry params for kind.
func (r *MethodRequest) Params(kind models.MethodKind) (methods.Params, error) {
	ttl := time.Duration(r.TTLSeconds) * time.Second
	switch kind {
	case models.MethodQRCode:
		return methods.QRCodeParams{TTL: ttl}, nil
	case models.MethodNFC:
		return methods.NFCParams{TagID: r.TagID}, nil
	case models.MethodBiometric:
		return methods.BiometricParams{Modality: models.BiometricModality(r.Modality), Template: r.Template}, nil
	case models.MethodNationalID:
		return methods.NationalIDParams{Number: r.NationalID}, nil
	case models.MethodOTP:
		return methods.OTPFallbackParams{GuardianPhones: r.GuardianPhones, TTL: ttl}, nil
	}
	return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported method kind")
}

// MethodStateRequest is the body of PATCH /emergency/profiles/{id}/methods/{kind}.
type MethodStateRequest struct {
	Enabled *bool `json:"enabled"`
}

// Validate implements httputil.Validatable.
func (r *MethodStateRequest) Validate() error {
	if r == nil || r.Enabled == nil {
		return dErrors.New(dErrors.CodeValidation, "enabled is required")
	}
	return nil
}

// SettingsRequest carries profile settings. Omitted sections are unchanged.
type SettingsRequest struct {
	DefaultAccessLevel *models.AccessLevel             `json:"default_access_level,omitempty"`
	Security           *SecurityRequest                `json:"security,omitempty"`
	Location           *models.LocationRestriction     `json:"location_restriction,omitempty"`
	Time               *models.TimeRestriction         `json:"time_restriction,omitempty"`
	Scenarios          []models.EmergencyScenario      `json:"scenarios,omitempty"`
	Notifications      *models.NotificationPreferences `json:"notifications,omitempty"`
	Alerts             *models.MedicalAlerts           `json:"medical_alerts,omitempty"`
	Patient            *models.PatientRecord           `json:"patient,omitempty"`
}

// SecurityRequest expresses durations in minutes.
type SecurityRequest struct {
	MaxDailyAccess        int `json:"max_daily_access"`
	AutoLockAfterFailures int `json:"auto_lock_after_failures"`
	LockDurationMinutes   int `json:"lock_duration_minutes"`
	FailureWindowMinutes  int `json:"failure_window_minutes"`
}

// Validate implements httputil.Validatable. Deep checks run in the service.
func (r *SettingsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.DefaultAccessLevel != nil && !r.DefaultAccessLevel.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "default_access_level is invalid")
	}
	return nil
}

// ToSettings converts the body to a partial update.
func (r *SettingsRequest) ToSettings() profile.Settings {
	st := profile.Settings{
		DefaultAccessLevel: r.DefaultAccessLevel,
		Location:           r.Location,
		Time:               r.Time,
		Scenarios:          r.Scenarios,
		Notifications:      r.Notifications,
		Alerts:             r.Alerts,
		Patient:            r.Patient,
	}
	if r.Security != nil {
		st.Security = &models.SecurityPolicy{
			MaxDailyAccess:        r.Security.MaxDailyAccess,
			AutoLockAfterFailures: r.Security.AutoLockAfterFailures,
			LockDuration:          time.Duration(r.Security.LockDurationMinutes) * time.Minute,
			FailureWindow:         time.Duration(r.Security.FailureWindowMinutes) * time.Minute,
		}
	}
	return st
}

// SetupRequest is the body of POST /emergency/profiles.
type SetupRequest struct {
	PatientID    string               `json:"patient_id"`
	Patient      models.PatientRecord `json:"patient"`
	EnableQRCode bool                 `json:"enable_qr_code"`
	SettingsRequest

	parsedPatientID models.PatientID
}

// Validate implements httputil.Validatable.
func (r *SetupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	id, err := models.ParsePatientID(strings.TrimSpace(r.PatientID))
	if err != nil {
		return err
	}
	r.parsedPatientID = id
	if strings.TrimSpace(r.Patient.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "patient.name is required")
	}
	return r.SettingsRequest.Validate()
}

// ToModel builds the service request.
func (r *SetupRequest) ToModel() profile.SetupRequest {
	return profile.SetupRequest{
		PatientID:    r.parsedPatientID,
		Patient:      r.Patient,
		Settings:     r.ToSettings(),
		EnableQRCode: r.EnableQRCode,
	}
}

// TestAlertRequest is the body of POST /emergency/profiles/{id}/test-alert.
type TestAlertRequest struct {
	Scenario string `json:"scenario,omitempty"`

	parsedScenario models.ScenarioType
}

// Validate implements httputil.Validatable.
func (r *TestAlertRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	s, err := models.ParseScenarioType(strings.TrimSpace(r.Scenario))
	if err != nil {
		return err
	}
	r.parsedScenario = s
	return nil
}
