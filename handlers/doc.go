// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the panel survey API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - RespondentHandler: registration by name and phone, session resume
  - SurveyHandler: phase views, question lists, autosave and phase completion
  - AdminHandler: login, dashboard analytics, AI summary, data management,
    audit log, export and import

Handlers are created via constructor functions that accept *sql.DB and Config:

	surveyHandler := handlers.NewSurveyHandler(db, cfg)

# Respondent Sessions

POST /api/respondent/start returns a session token. Every later respondent
call sends it in the X-Session-Token header (GET requests may use ?token=
instead). An unknown, closed or deleted session answers 401 and the client
signs in again with the same phone number, which resumes the same record.

# Phase Gating

Phases unlock in order. Opening or saving into a phase that is locked or
already completed answers 409 with a redirect to the respondent's resume
point:

	{"error": "Conflict", "message": "...", "redirect": {"resume_phase": "P2", "resume_step": 0, "done": false}}

Validation failures answer 400 and name the offending question_code.

# Admin

Admin endpoints sit behind middleware.RequireAdmin. Login sets an HttpOnly
cookie and also returns the token for Authorization: Bearer use. Bulk data
operations (clear, restore, permanent delete) require the configured
confirmation phrase in the request body:

	{"intent": "saya setuju"}

Every admin mutation is written to the audit log. Audit failures are logged
and never fail the request.
*/
package handlers
