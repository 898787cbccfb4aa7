package handler

import (
	"net/http"
	"time"

	"lifeline/internal/emergency/grant"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/service/methods"
	"lifeline/internal/emergency/service/profile"
)

// AccessResponse is the body returned for a decided access request.
type AccessResponse struct {
	Decision       string            `json:"decision"`
	Reason         string            `json:"reason,omitempty"`
	AccessLevel    string            `json:"access_level,omitempty"`
	Data           *models.DataSlice `json:"data,omitempty"`
	AttemptID      string            `json:"attempt_id"`
	LockedUntil    *time.Time        `json:"locked_until,omitempty"`
	GrantToken     string            `json:"grant_token,omitempty"`
	GrantExpiresAt *time.Time        `json:"grant_expires_at,omitempty"`
}

// FromResult maps an engine result to its response body.
func FromResult(r *models.VerificationResult) *AccessResponse {
	resp := &AccessResponse{
		Decision:    string(r.Decision),
		AccessLevel: string(r.AccessLevel),
		Data:        r.Disclosed,
		AttemptID:   r.AttemptID.String(),
		LockedUntil: r.LockedUntil,
		GrantToken:  r.GrantToken,
	}
	if !r.Approved() {
		resp.Reason = r.Reason.String()
	}
	if r.GrantToken != "" {
		exp := r.GrantExpiry
		resp.GrantExpiresAt = &exp
	}
	return resp
}

// statusForResult picks the HTTP status of a decision. Denials are not errors
// and always carry a body.
func statusForResult(r *models.VerificationResult) int {
	if r.Approved() {
		return http.StatusOK
	}
	switch r.Reason {
	case models.ReasonNotFound:
		return http.StatusNotFound
	case models.ReasonLocked:
		return http.StatusLocked
	case models.ReasonQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}

// MethodResponse is returned once when a method is issued. Secret is the
// only copy of a QR token or OTP.
type MethodResponse struct {
	ProfileID string     `json:"profile_id"`
	Kind      string     `json:"kind"`
	Secret    string     `json:"secret,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func fromHandle(h *methods.MethodHandle) *MethodResponse {
	return &MethodResponse{
		ProfileID: h.ProfileID.String(),
		Kind:      string(h.Kind),
		Secret:    h.Secret,
		ExpiresAt: h.ExpiresAt,
	}
}

// AttemptResponse is one history entry.
type AttemptResponse struct {
	ID              string                `json:"id"`
	Method          string                `json:"method"`
	Decision        string                `json:"decision"`
	Reason          string                `json:"reason,omitempty"`
	AccessLevel     string                `json:"access_level,omitempty"`
	Scenario        string                `json:"scenario,omitempty"`
	Context         models.AttemptContext `json:"context"`
	LockedUntil     *time.Time            `json:"locked_until,omitempty"`
	DisclosedFields []string              `json:"disclosed_fields,omitempty"`
}

// HistoryResponse is a page of history, newest first.
type HistoryResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

func fromHistory(p *models.HistoryPage) *HistoryResponse {
	resp := &HistoryResponse{
		Attempts: make([]AttemptResponse, 0, len(p.Attempts)),
		Total:    p.Total,
		Page:     p.Page,
		Limit:    p.Limit,
	}
	for _, a := range p.Attempts {
		item := AttemptResponse{
			ID:              a.ID.String(),
			Method:          string(a.MethodKind),
			Decision:        string(a.Outcome),
			AccessLevel:     string(a.AccessLevel),
			Scenario:        string(a.Scenario),
			Context:         a.Context,
			LockedUntil:     a.LockedUntil,
			DisclosedFields: a.DisclosedFields,
		}
		if a.Outcome == models.OutcomeDenied {
			item.Reason = a.Reason.String()
		}
		resp.Attempts = append(resp.Attempts, item)
	}
	return resp
}

// ProfileResponse is the patient-facing view of a profile. Method secrets
// and digests are never returned.
type ProfileResponse struct {
	ID                 string                         `json:"id"`
	PatientID          string                         `json:"patient_id"`
	IsActive           bool                           `json:"is_active"`
	DefaultAccessLevel string                         `json:"default_access_level"`
	Methods            []MethodSummary                `json:"methods"`
	Security           SecurityRequest                `json:"security"`
	Location           models.LocationRestriction     `json:"location_restriction"`
	Time               models.TimeRestriction         `json:"time_restriction"`
	Scenarios          []models.EmergencyScenario     `json:"scenarios"`
	Notifications      models.NotificationPreferences `json:"notifications"`
	Version            int                            `json:"version"`
	UpdatedAt          time.Time                      `json:"updated_at"`
	QRCode             *MethodResponse                `json:"qr_code,omitempty"`
}

// MethodSummary describes a configured method.
type MethodSummary struct {
	Kind       string     `json:"kind"`
	Enabled    bool       `json:"enabled"`
	UseCount   int        `json:"use_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func fromProfile(p *models.EmergencyAccessProfile) *ProfileResponse {
	resp := &ProfileResponse{
		ID:                 p.ID.String(),
		PatientID:          p.PatientID.String(),
		IsActive:           p.IsActive,
		DefaultAccessLevel: string(p.DefaultAccessLevel),
		Methods:            []MethodSummary{},
		Security: SecurityRequest{
			MaxDailyAccess:        p.Security.MaxDailyAccess,
			AutoLockAfterFailures: p.Security.AutoLockAfterFailures,
			LockDurationMinutes:   int(p.Security.LockDuration / time.Minute),
			FailureWindowMinutes:  int(p.Security.FailureWindow / time.Minute),
		},
		Location:      p.Location,
		Time:          p.Time,
		Scenarios:     p.Scenarios,
		Notifications: p.Notifications,
		Version:       p.Version,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, kind := range models.AllMethodKinds {
		m, ok := p.Method(kind)
		if !ok {
			continue
		}
		st := m.State()
		summary := MethodSummary{
			Kind:       string(kind),
			Enabled:    st.Enabled,
			UseCount:   st.UseCount,
			LastUsedAt: st.LastUsedAt,
		}
		if exp, ok := m.Expiry(); ok {
			summary.ExpiresAt = &exp
		}
		resp.Methods = append(resp.Methods, summary)
	}
	return resp
}

func fromSetup(r *profile.SetupResult) *ProfileResponse {
	resp := fromProfile(r.Profile)
	if r.QRCode != nil {
		resp.QRCode = fromHandle(r.QRCode)
	}
	return resp
}

// AlertPreviewResponse describes a test alert.
type AlertPreviewResponse struct {
	Scenario    string   `json:"scenario,omitempty"`
	AccessLevel string   `json:"access_level"`
	Recipients  []string `json:"recipients"`
}

// GrantResponse is the re-projected slice behind a valid grant.
type GrantResponse struct {
	ProfileID   string            `json:"profile_id"`
	AttemptID   string            `json:"attempt_id"`
	AccessLevel string            `json:"access_level"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Data        *models.DataSlice `json:"data"`
}

func fromGrant(c *grant.Claims, data *models.DataSlice) *GrantResponse {
	return &GrantResponse{
		ProfileID:   c.ProfileID,
		AttemptID:   c.AttemptID,
		AccessLevel: c.AccessLevel,
		ExpiresAt:   c.ExpiresAt.Time,
		Data:        data,
	}
}
