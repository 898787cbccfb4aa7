package verification

import (
	"context"
	"errors"
	"time"

	"lifeline/internal/emergency/device"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/service/disclosure"
	"lifeline/internal/emergency/service/lockout"
	"lifeline/internal/emergency/service/restriction"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/phone"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// decision is a recorded outcome plus the side effects deferred until the
// audit entry is durable.
type decision struct {
	result  *models.VerificationResult
	attempt *models.AccessAttempt
	events  []audit.Event
}

func (s *Service) newAttempt(ctx context.Context, req *models.VerificationRequest, profileID models.ProfileID, now time.Time) *models.AccessAttempt {
	return &models.AccessAttempt{
		ID:         models.NewAttemptID(),
		ProfileID:  profileID,
		MethodKind: req.MethodKind,
		Scenario:   req.Scenario,
		Context: models.AttemptContext{
			Location:  req.Context.Coordinates(),
			Timestamp: now,
			CallerIP:  req.Context.CallerIP,
			UserAgent: req.Context.UserAgent,
			Device:    deviceLabel(ctx, req.Context.UserAgent),
		},
	}
}

func deviceLabel(ctx context.Context, userAgent string) string {
	label := device.ParseUserAgent(userAgent)
	if terminal := requestcontext.TerminalID(ctx); terminal != "" {
		return terminal + " (" + label + ")"
	}
	return label
}

// recordNotFound handles a request whose credential names no profile.
func (s *Service) recordNotFound(ctx context.Context, req *models.VerificationRequest, profileID models.ProfileID, now time.Time) (*decision, error) {
	attempt := s.newAttempt(ctx, req, profileID, now)
	return s.deny(ctx, nil, attempt, models.ReasonNotFound)
}

// decide runs the ordered checks while the profile lock is held. The first
// failing check wins.
func (s *Service) decide(ctx context.Context, req *models.VerificationRequest, profileID models.ProfileID, now time.Time) (*decision, error) {
	attempt := s.newAttempt(ctx, req, profileID, now)

	profile, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.deny(ctx, nil, attempt, models.ReasonNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load emergency profile")
	}
	if !profile.IsActive {
		return s.deny(ctx, nil, attempt, models.ReasonNotFound)
	}

	lock, err := s.lockout.IsLocked(ctx, profileID)
	if err != nil {
		return nil, asInternal(err, "failed to read lock state")
	}
	if lock.IsLocked {
		d, err := s.deny(ctx, profile, attempt, models.ReasonLocked)
		if err != nil {
			return nil, err
		}
		until := lock.LockedUntil
		d.result.LockedUntil = &until
		return d, nil
	}

	today, err := s.auditLog.CountToday(ctx, profileID, s.quotaLocation(profile))
	if err != nil {
		return nil, err
	}
	if today >= profile.Security.MaxDailyAccess {
		return s.deny(ctx, profile, attempt, models.ReasonQuotaExceeded)
	}

	if !restriction.LocationAllowed(profile, attempt.Context.Location) {
		return s.deny(ctx, profile, attempt, models.ReasonLocationNotAllowed)
	}
	if !restriction.TimeAllowed(profile, now) {
		return s.deny(ctx, profile, attempt, models.ReasonTimeNotAllowed)
	}

	method, _ := profile.Method(req.MethodKind)
	if !s.methods.Compare(req.MethodKind, method, req.Credential) {
		// A rotated QR token is stale, not a guess, and does not count toward lockout.
		if s.methods.IsRetired(req.MethodKind, method, req.Credential) {
			return s.deny(ctx, profile, attempt, models.ReasonExpiredToken)
		}
		return s.denyInvalidCredential(ctx, profile, attempt, now)
	}
	if !method.State().Enabled {
		return s.deny(ctx, profile, attempt, models.ReasonMethodDisabled)
	}
	if models.IsExpiredAt(method, now) {
		return s.deny(ctx, profile, attempt, models.ReasonExpiredToken)
	}

	return s.approve(ctx, profile, attempt, now)
}

// denyInvalidCredential records a wrong credential and starts a lock when
// this failure reaches the profile threshold.
func (s *Service) denyInvalidCredential(ctx context.Context, profile *models.EmergencyAccessProfile, attempt *models.AccessAttempt, now time.Time) (*decision, error) {
	lastLock, err := s.auditLog.LastLock(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	since := lockout.FailureWindowStart(now, profile.Security.FailureWindow, lastLock)
	prior, err := s.auditLog.RecentFailures(ctx, profile.ID, since)
	if err != nil {
		return nil, err
	}
	if prior+1 >= profile.Security.AutoLockAfterFailures {
		until := now.Add(profile.Security.LockDuration)
		attempt.LockedUntil = &until
	}
	return s.deny(ctx, profile, attempt, models.ReasonInvalidCredential)
}

// deny appends a denial. profile is nil when no active profile was found.
func (s *Service) deny(ctx context.Context, profile *models.EmergencyAccessProfile, attempt *models.AccessAttempt, reason models.DenialReason) (*decision, error) {
	attempt.Outcome = models.OutcomeDenied
	attempt.Reason = reason
	if _, err := s.auditLog.Append(ctx, attempt); err != nil {
		return nil, err
	}

	result := models.Denied(reason)
	result.AttemptID = attempt.ID
	result.ProfileID = attempt.ProfileID
	if attempt.LockedUntil != nil {
		until := *attempt.LockedUntil
		result.LockedUntil = &until
	}

	d := &decision{result: result, attempt: attempt}
	if profile != nil && profile.Notifications.NotifyOnFailedAccess {
		d.events = s.denialEvents(ctx, profile, attempt)
	}
	return d, nil
}

func (s *Service) denialEvents(ctx context.Context, profile *models.EmergencyAccessProfile, attempt *models.AccessAttempt) []audit.Event {
	denied := eventFor(audit.EventAccessDenied, attempt)
	denied.ActorID = requestcontext.TerminalID(ctx)
	denied.Severity = audit.SeverityWarning
	if !attempt.TriggeredLock() {
		return []audit.Event{denied}
	}

	denied.Severity = audit.SeverityCritical
	locked := eventFor(audit.EventLockoutTriggered, attempt)
	locked.ActorID = denied.ActorID
	locked.Severity = audit.SeverityCritical
	locked.Recipients = contactPhones(profile, false)
	return []audit.Event{denied, locked}
}

func (s *Service) approve(ctx context.Context, profile *models.EmergencyAccessProfile, attempt *models.AccessAttempt, now time.Time) (*decision, error) {
	level := profile.ResolveAccessLevel(attempt.Scenario)
	data := disclosure.Project(profile, level, now)

	// Single-use methods are consumed before anything is disclosed.
	if err := s.methods.MarkUsed(ctx, profile, attempt.MethodKind); err != nil {
		return nil, asInternal(err, "failed to record method use")
	}

	attempt.Outcome = models.OutcomeApproved
	attempt.Reason = models.ReasonNone
	attempt.AccessLevel = level
	attempt.DisclosedFields = data.Fields
	if _, err := s.auditLog.Append(ctx, attempt); err != nil {
		return nil, err
	}

	result := models.Approved(level, data)
	result.AttemptID = attempt.ID
	result.ProfileID = profile.ID
	if s.grants != nil {
		token, exp, err := s.grants.Issue(attempt, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access grant")
		}
		result.GrantToken, result.GrantExpiry = token, exp
	}

	d := &decision{result: result, attempt: attempt}
	if profile.Notifications.NotifyOnAccess {
		granted := eventFor(audit.EventAccessGranted, attempt)
		granted.ActorID = requestcontext.TerminalID(ctx)
		if scenario, ok := profile.Scenario(attempt.Scenario); ok && scenario.AutoNotifyContacts {
			granted.Recipients = contactPhones(profile, true)
			granted.Severity = audit.SeverityCritical
		}
		d.events = append(d.events, granted)
	}
	return d, nil
}

func (s *Service) quotaLocation(profile *models.EmergencyAccessProfile) *time.Location {
	if profile.Time.Timezone != "" {
		if loc, err := profile.Time.Location(); err == nil {
			return loc
		}
	}
	return s.config.QuotaLocation()
}

// contactPhones lists the phones of the profile's emergency contacts, primary
// contacts first. With all unset only primary contacts are returned, falling
// back to everyone when none is marked primary.
func contactPhones(profile *models.EmergencyAccessProfile, all bool) []string {
	var primary, rest []string
	for _, c := range profile.Patient.EmergencyContacts {
		if c.Phone == "" {
			continue
		}
		if c.Primary {
			primary = append(primary, c.Phone)
		} else {
			rest = append(rest, c.Phone)
		}
	}
	if !all && len(primary) > 0 {
		return phone.DedupeList(primary)
	}
	return phone.DedupeList(append(primary, rest...))
}
