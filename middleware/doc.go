// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs completion (method, path, status, duration_ms) and records the
request in the panelsurvey_http_* Prometheus metrics, labelled by the
matched route pattern.

# Admin Sessions

	admin := middleware.RequireAdmin(cfg.AdminSessionSecret)
	mux.HandleFunc("GET /api/admin/export", middleware.WithLogging(admin(h.Export)))

The token is read from the admin_session cookie or an Authorization:
Bearer header.

# Rate Limiting

	rl := middleware.NewRateLimiter(cfg.RegisterRate, 5)
	go rl.Run(ctx, time.Minute)
	mux.HandleFunc("POST /api/respondent/start", middleware.WithLogging(rl.Limit(h.Start)))

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.RedirectResponse(w, http.StatusConflict, "message", resumePoint)

DecodeAndValidate parses a body and checks its validate struct tags:

	var req models.StartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Handles X-Forwarded-For and X-Real-IP; used for rate limiting and hashed
into admin login audit events.
*/
package middleware
