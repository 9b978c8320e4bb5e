// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/handlers"
	"github.com/danielhkuo/panelsurvey/middleware"
)

// RegisterBurst is how many registrations a client may make back to back
const RegisterBurst = 5

// NewRouter wires every route. limiter throttles registration and admin
// login per client IP.
func NewRouter(db *sql.DB, cfg cliparse.Config, limiter *middleware.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	respondentHandler := handlers.NewRespondentHandler(db, cfg)
	surveyHandler := handlers.NewSurveyHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db, cfg)

	log := middleware.WithLogging
	admin := middleware.RequireAdmin(cfg.AdminSessionSecret)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Respondent flow
	mux.HandleFunc("POST /api/respondent/start", log(limiter.Limit(respondentHandler.Start)))
	mux.HandleFunc("GET /api/respondent/resume", log(respondentHandler.Resume))
	mux.HandleFunc("POST /api/logout", log(respondentHandler.Logout))

	mux.HandleFunc("GET /api/survey/questions", log(surveyHandler.GetQuestions))
	mux.HandleFunc("GET /api/survey/phases/{code}", log(surveyHandler.OpenPhase))
	mux.HandleFunc("POST /api/responses/save", log(surveyHandler.SaveAnswers))
	mux.HandleFunc("POST /api/phase/complete", log(surveyHandler.CompletePhase))

	// Admin session
	mux.HandleFunc("POST /api/admin/login", log(limiter.Limit(adminHandler.Login)))
	mux.HandleFunc("POST /api/admin/logout", log(adminHandler.Logout))

	// Dashboard (admin only)
	mux.HandleFunc("GET /api/admin/dashboard/overview", log(admin(adminHandler.Overview)))
	mux.HandleFunc("GET /api/admin/dashboard/funnel", log(admin(adminHandler.Funnel)))
	mux.HandleFunc("GET /api/admin/dashboard/respondents", log(admin(adminHandler.Respondents)))
	mux.HandleFunc("GET /api/admin/dashboard/questions", log(admin(adminHandler.Questions)))
	mux.HandleFunc("GET /api/admin/dashboard/ai-summary", log(admin(adminHandler.GetSummary)))
	mux.HandleFunc("POST /api/admin/dashboard/ai-summary", log(admin(adminHandler.GenerateSummary)))

	// Data management (admin only, confirmation phrase required)
	mux.HandleFunc("POST /api/admin/dashboard/clear-data", log(admin(adminHandler.ClearData)))
	mux.HandleFunc("POST /api/admin/dashboard/restore-data", log(admin(adminHandler.RestoreData)))
	mux.HandleFunc("POST /api/admin/dashboard/permanent-delete", log(admin(adminHandler.PermanentDelete)))
	mux.HandleFunc("DELETE /api/admin/respondents/{id}", log(admin(adminHandler.DeleteRespondent)))

	mux.HandleFunc("GET /api/admin/audit", log(admin(adminHandler.AuditLog)))
	mux.HandleFunc("GET /api/admin/export", log(admin(adminHandler.Export)))
	mux.HandleFunc("POST /api/admin/import", log(admin(adminHandler.Import)))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("panelsurvey API v1"))
	})

	return mux
}
