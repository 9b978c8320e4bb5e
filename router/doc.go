// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the panel survey API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	limiter := middleware.NewRateLimiter(cfg.RegisterRate, router.RegisterBurst)
	mux := router.NewRouter(db, cfg, limiter)

# Endpoints

Operations:

	GET /health  - Database ping
	GET /metrics - Prometheus metrics

Respondent flow (X-Session-Token after start):

	POST /api/respondent/start       - Register or sign in again (rate limited)
	GET  /api/respondent/resume      - Progress, saved answers, resume point
	POST /api/logout                 - Respondent sign-out (client drops its token)
	GET  /api/survey/questions       - Questions of ?phase=
	GET  /api/survey/phases/{code}   - Phase view with steps (409 if locked)
	POST /api/responses/save         - Autosave
	POST /api/phase/complete         - Validate and finalize a phase

Admin (cookie or bearer token from login):

	POST   /api/admin/login                        - Rate limited
	POST   /api/admin/logout
	GET    /api/admin/dashboard/overview
	GET    /api/admin/dashboard/funnel
	GET    /api/admin/dashboard/respondents
	GET    /api/admin/dashboard/questions
	GET    /api/admin/dashboard/ai-summary
	POST   /api/admin/dashboard/ai-summary         - Generate a new summary
	POST   /api/admin/dashboard/clear-data         - Confirmation required
	POST   /api/admin/dashboard/restore-data       - Confirmation required
	POST   /api/admin/dashboard/permanent-delete   - Confirmation required
	DELETE /api/admin/respondents/{id}
	GET    /api/admin/audit
	GET    /api/admin/export
	POST   /api/admin/import

Every API route goes through middleware.WithLogging, which also feeds the
request metrics.
*/
package router
