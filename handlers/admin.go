// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/panelsurvey/analytics"
	"github.com/danielhkuo/panelsurvey/auth"
	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/metrics"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
)

type AdminHandler struct {
	store     *store.SQLStore
	dashboard *analytics.Dashboard
	cfg       cliparse.Config
	now       func() time.Time
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config) *AdminHandler {
	st := store.NewSQLStore(db)

	var summarizer *analytics.Summarizer
	if cfg.OpenAIKey != "" {
		summarizer = analytics.NewSummarizer(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}

	return &AdminHandler{
		store:     st,
		dashboard: analytics.NewDashboard(st, summarizer),
		cfg:       cfg,
		now:       time.Now,
	}
}

// audit records an admin event; failures are logged and ignored
func (h *AdminHandler) audit(ctx context.Context, event, entityType, entityID string, payload map[string]any) {
	err := h.store.LogEvent(ctx, models.AuditEvent{
		ActorType:  models.ActorAdmin,
		ActorID:    "admin",
		EventType:  event,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
	})
	if err != nil {
		slog.Warn("failed to write audit event", "event", event, "error", err)
	}
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Password required")
		return
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.AdminSessionSecret)

	if err := auth.CheckPassword(h.cfg.AdminPasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrNoPassword) {
			slog.Error("admin login attempted but ADMIN_PASSWORD_HASH is not set")
		}
		h.audit(r.Context(), "login_failed", "admin", "", map[string]any{"ip_hash": ipHash})
		metrics.RecordAdminAction("login_failed")
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, expires, err := auth.IssueAdminToken(h.cfg.AdminSessionSecret, h.now())
	if err != nil {
		slog.Error("failed to issue admin token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.AdminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(auth.AdminSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.audit(r.Context(), "login_success", "admin", "", map[string]any{"ip_hash": ipHash})
	metrics.RecordAdminAction("login")
	middleware.JSONResponse(w, http.StatusOK, models.AdminLoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires,
	})
}

// Logout handles POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Success: true})
}

// Overview handles GET /api/admin/dashboard/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.dashboard.Overview(r.Context())
	if err != nil {
		writeStoreError(w, "overview", err)
		return
	}
	h.humanize(ov.RecentRespondents)
	middleware.JSONResponse(w, http.StatusOK, models.OverviewResponse{Success: true, Overview: *ov})
}

// Funnel handles GET /api/admin/dashboard/funnel
func (h *AdminHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	f, err := h.dashboard.Funnel(r.Context())
	if err != nil {
		writeStoreError(w, "funnel", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.FunnelResponse{Success: true, Funnel: f})
}

// Respondents handles GET /api/admin/dashboard/respondents
// Query: search, phase, start_date, end_date (YYYY-MM-DD, inclusive), page, page_size
func (h *AdminHandler) Respondents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.RespondentFilter{
		Search:   q.Get("search"),
		Phase:    q.Get("phase"),
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("page_size"), store.DefaultPageSize),
	}
	f.PageSize = min(max(f.PageSize, 1), store.MaxPageSize)
	f.Page = max(f.Page, 1)

	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		f.StartDate = &t
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		end := t.AddDate(0, 0, 1)
		f.EndDate = &end
	}

	list, total, err := h.store.ListRespondents(r.Context(), f)
	if err != nil {
		writeStoreError(w, "list respondents", err)
		return
	}
	h.humanize(list)

	middleware.JSONResponse(w, http.StatusOK, models.RespondentListResponse{
		Success:     true,
		Respondents: list,
		Total:       total,
		Page:        f.Page,
		PageSize:    f.PageSize,
		TotalPages:  (total + f.PageSize - 1) / f.PageSize,
	})
}

func (h *AdminHandler) humanize(list []models.RespondentSummary) {
	now := h.now()
	for i := range list {
		list[i].LastSeenAgo = humanize.RelTime(list[i].LastSeenAt, now, "ago", "from now")
	}
}

func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Questions handles GET /api/admin/dashboard/questions?phase=&affiliation=&country=
func (h *AdminHandler) Questions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phase := q.Get("phase")
	if phase == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "phase is required")
		return
	}

	counts, likert, err := h.dashboard.Questions(r.Context(), phase, analytics.Filter{
		Affiliation: q.Get("affiliation"),
		Country:     q.Get("country"),
	})
	if err != nil {
		writeStoreError(w, "question analytics", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.QuestionAnalyticsResponse{
		Success:       true,
		OptionCounts:  counts,
		LikertSummary: likert,
	})
}

// GetSummary handles GET /api/admin/dashboard/ai-summary
func (h *AdminHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.LatestSummary(r.Context())
	if err != nil {
		writeStoreError(w, "latest summary", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.AISummaryResponse{Success: true, Summary: summary})
}

// GenerateSummary handles POST /api/admin/dashboard/ai-summary
func (h *AdminHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.GenerateSummary(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, analytics.ErrSummaryDisabled):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "AI summary is not configured")
		return
	case errors.Is(err, analytics.ErrNoAnswers):
		middleware.ErrorResponse(w, http.StatusBadRequest, "There are no answers to summarize yet")
		return
	case errors.Is(err, store.ErrUnavailable):
		writeStoreError(w, "generate summary", err)
		return
	default:
		slog.Error("failed to generate summary", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "The AI service failed to produce a summary")
		return
	}

	metrics.RecordAdminAction("ai_summary")
	middleware.JSONResponse(w, http.StatusOK, models.AISummaryResponse{Success: true, Summary: summary})
}

// confirmed checks the typed confirmation phrase and writes 400 if it is
// missing or wrong.
func (h *AdminHandler) confirmed(w http.ResponseWriter, r *http.Request) bool {
	var req models.ConfirmRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil || !auth.ConfirmPhrase(h.cfg.ConfirmPhrase, req.Intent) {
		middleware.ErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Type %q to confirm this action", h.cfg.ConfirmPhrase))
		return false
	}
	return true
}

// ClearData handles POST /api/admin/dashboard/clear-data (soft delete all)
func (h *AdminHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "data_cleared", "respondents hidden", h.store.SoftDeleteAll)
}

// RestoreData handles POST /api/admin/dashboard/restore-data
func (h *AdminHandler) RestoreData(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "data_restored", "respondents restored", h.store.RestoreAll)
}

// PermanentDelete handles POST /api/admin/dashboard/permanent-delete
func (h *AdminHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "data_purged", "respondents permanently deleted", h.store.PurgeDeleted)
}

func (h *AdminHandler) bulk(w http.ResponseWriter, r *http.Request, event, what string, op func(context.Context) (int, error)) {
	if !h.confirmed(w, r) {
		return
	}

	n, err := op(r.Context())
	if err != nil {
		writeStoreError(w, event, err)
		return
	}

	slog.Info("admin data operation", "event", event, "count", n)
	h.audit(r.Context(), event, "respondent", "", map[string]any{"count": n})
	metrics.RecordAdminAction(event)
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("%d %s", n, what),
		Count:   n,
	})
}

// DeleteRespondent handles DELETE /api/admin/respondents/{id} (soft delete)
func (h *AdminHandler) DeleteRespondent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.store.SoftDeleteRespondent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Respondent not found")
		return
	}
	if err != nil {
		writeStoreError(w, "delete respondent", err)
		return
	}

	h.audit(r.Context(), "respondent_deleted", "respondent", id, nil)
	metrics.RecordAdminAction("respondent_deleted")
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Success: true, Count: 1})
}

// AuditLog handles GET /api/admin/audit?limit=
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListEvents(r.Context(), queryInt(r.URL.Query().Get("limit"), store.DefaultPageSize))
	if err != nil {
		writeStoreError(w, "audit log", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.AuditLogResponse{Success: true, Events: events})
}
