// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the panel survey API server.

Respondents sign in with a name and phone number, then answer a multi-phase
questionnaire in small steps. Answers autosave as they go, phases unlock in
order, and a returning respondent lands exactly where they left off.
Administrators get a dashboard with funnel and per-question analytics, an AI
written summary, data management and CSV/XLSX export and import.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=survey.db ADMIN_SESSION_SECRET=... go run .

A .env file in the working directory is loaded first when present. To seed
the questionnaire at startup:

	go run . -q questionnaire.yaml

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - ADMIN_SESSION_SECRET (--session-secret): signs admin sessions

Optional settings:

  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - ADMIN_PASSWORD_HASH (--admin-hash): bcrypt hash; admin login is off without it
  - PORT (-p): Server port (default: 3318)
  - QUESTIONNAIRE_FILE (-q): YAML questionnaire to seed
  - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL: AI summary

See package cliparse for the full list.

# Architecture

  - handlers: HTTP request handlers (respondent, survey, admin, exchange)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin sessions, rate limiting, validation
  - survey: Registration, resume, phase gating, autosave and completion rules
  - store: SQL persistence for SQLite and PostgreSQL
  - analytics: Dashboard aggregation and AI summaries
  - exchange: CSV/XLSX export and import
  - questionnaire: YAML questionnaire loading and seeding
  - autosave, client: Client-side debounced autosave over the HTTP API
  - phone, auth, metrics, models, db, cliparse: supporting packages

Logs are JSON unless stderr is a terminal.
*/
package main
