// Package handler exposes the emergency access engine over HTTP. Callers are
// authenticated by the hosting API; this adapter only parses, delegates, and
// maps results.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/emergency/grant"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/service/disclosure"
	"lifeline/internal/emergency/service/methods"
	"lifeline/internal/emergency/service/profile"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/httputil"
	"lifeline/pkg/requestcontext"
)

// Verifier decides emergency access requests.
type Verifier interface {
	Verify(ctx context.Context, req *models.VerificationRequest) (*models.VerificationResult, error)
}

// ProfileService manages profile lifecycle.
type ProfileService interface {
	Setup(ctx context.Context, req profile.SetupRequest) (*profile.SetupResult, error)
	Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error)
	UpdateSettings(ctx context.Context, id models.ProfileID, settings profile.Settings) (*models.EmergencyAccessProfile, error)
	Deactivate(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error)
	TestAlert(ctx context.Context, id models.ProfileID, scenario models.ScenarioType) (*profile.AlertPreview, error)
}

// MethodService issues and toggles access methods.
type MethodService interface {
	RegisterOrRotate(ctx context.Context, profileID models.ProfileID, p methods.Params) (*methods.MethodHandle, error)
	SetEnabled(ctx context.Context, profileID models.ProfileID, kind models.MethodKind, enabled bool) error
}

// HistoryService pages the audit log.
type HistoryService interface {
	History(ctx context.Context, profileID models.ProfileID, page, limit int) (*models.HistoryPage, error)
}

// GrantValidator checks grants issued on approval.
type GrantValidator interface {
	Validate(token string, now time.Time) (*grant.Claims, error)
}

// Handler wires emergency endpoints to the engine services.
type Handler struct {
	verifier Verifier
	profiles ProfileService
	methods  MethodService
	history  HistoryService
	grants   GrantValidator
	logger   *slog.Logger
}

// New constructs a handler. grants may be nil, which disables GET /emergency/grant.
func New(verifier Verifier, profiles ProfileService, methodSvc MethodService, history HistoryService, grants GrantValidator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifier: verifier,
		profiles: profiles,
		methods:  methodSvc,
		history:  history,
		grants:   grants,
		logger:   logger,
	}
}

// Register mounts the emergency endpoints on the router. manage wraps the
// profile-management routes; access and grant routes are left to the host's
// own terminal authentication.
func (h *Handler) Register(r chi.Router, manage ...func(http.Handler) http.Handler) {
	r.Post("/emergency/access", h.HandleAccess)
	if h.grants != nil {
		r.Get("/emergency/grant", h.HandleGrant)
	}

	r.Group(func(r chi.Router) {
		r.Use(manage...)
		r.Post("/emergency/profiles", h.HandleSetup)
		r.Route("/emergency/profiles/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetProfile)
			r.Patch("/", h.HandleUpdateSettings)
			r.Delete("/", h.HandleDeactivate)
			r.Post("/test-alert", h.HandleTestAlert)
			r.Get("/history", h.HandleHistory)
			r.Post("/methods/{kind}", h.HandleRotateMethod)
			r.Patch("/methods/{kind}", h.HandleSetMethodState)
		})
	})
}

// HandleAccess handles POST /emergency/access. Every decided request returns
// a body, approved or not.
func (h *Handler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.verifier.Verify(ctx, req.ToModel(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "emergency access failed",
			"request_id", requestID,
			"method", req.Method,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, statusForResult(result), FromResult(result))
}

// HandleGrant handles GET /emergency/grant with a bearer grant.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing access grant"))
		return
	}

	now := requestcontext.Now(ctx)
	claims, err := h.grants.Validate(strings.TrimSpace(token), now)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profileID, err := claims.ProfileIDValue()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid access grant"))
		return
	}
	level, err := claims.Level()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid access grant"))
		return
	}

	p, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !p.IsActive {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "emergency profile is no longer active"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromGrant(claims, disclosure.Project(p, level, now)))
}

// HandleSetup handles POST /emergency/profiles.
func (h *Handler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.profiles.Setup(ctx, req.ToModel())
	if err != nil {
		h.logWriteError(ctx, "emergency profile setup failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "emergency profile created",
		"request_id", requestID,
		"profile_id", result.Profile.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromSetup(result))
}

// HandleGetProfile handles GET /emergency/profiles/{id}.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), profileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfile(p))
}

// HandleUpdateSettings handles PATCH /emergency/profiles/{id}.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SettingsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	p, err := h.profiles.UpdateSettings(ctx, profileID, req.ToSettings())
	if err != nil {
		h.logWriteError(ctx, "emergency profile update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfile(p))
}

// HandleDeactivate handles DELETE /emergency/profiles/{id}.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Deactivate(ctx, profileID)
	if err != nil {
		h.logWriteError(ctx, "emergency profile deactivation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfile(p))
}

// HandleTestAlert handles POST /emergency/profiles/{id}/test-alert.
func (h *Handler) HandleTestAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TestAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	preview, err := h.profiles.TestAlert(ctx, profileID, req.parsedScenario)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, &AlertPreviewResponse{
		Scenario:    string(preview.Scenario),
		AccessLevel: string(preview.AccessLevel),
		Recipients:  preview.Recipients,
	})
}

// HandleHistory handles GET /emergency/profiles/{id}/history?page=&limit=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.history.History(ctx, profileID, page, limit)
	if err != nil {
		h.logWriteError(ctx, "access history failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromHistory(result))
}

// HandleRotateMethod handles POST /emergency/profiles/{id}/methods/{kind}.
func (h *Handler) HandleRotateMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	kind, err := models.ParseMethodKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[MethodRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	params, err := req.Params(kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	handle, err := h.methods.RegisterOrRotate(ctx, profileID, params)
	if err != nil {
		h.logWriteError(ctx, "access method rotation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromHandle(handle))
}

// HandleSetMethodState handles PATCH /emergency/profiles/{id}/methods/{kind}.
func (h *Handler) HandleSetMethodState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	kind, err := models.ParseMethodKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[MethodStateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.methods.SetEnabled(ctx, profileID, kind, *req.Enabled); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profileID(w http.ResponseWriter, r *http.Request) (models.ProfileID, bool) {
	id, err := models.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return models.ProfileID{}, false
	}
	return id, true
}

func (h *Handler) logWriteError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.CodeOf(err) == "" {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, key+" must be a non-negative integer")
	}
	return v, nil
}
