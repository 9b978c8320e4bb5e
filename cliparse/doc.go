// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type (sqlite or postgres)
	--session-secret  Admin session signing secret
	--admin-hash      bcrypt hash of the admin password
	-q                Questionnaire YAML file
	--step-size       Questions per step
	--debounce        Autosave quiet period

# Environment Variables

Flags fall back to environment variables:

	PORT                 → -p (default 3318)
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t (default sqlite)
	ADMIN_SESSION_SECRET → --session-secret
	ADMIN_PASSWORD_HASH  → --admin-hash
	QUESTIONNAIRE_FILE   → -q
	STEP_SIZE            → --step-size (default 3)
	AUTOSAVE_DEBOUNCE    → --debounce (default 1800ms)

Environment only:

	CONFIRM_PHRASE       typed to confirm bulk deletes (default "saya setuju")
	REGISTER_RATE        registrations per second per IP (default 2)
	PHONE_COUNTRY_CODE   default 62
	PHONE_MIN_DIGITS     default 10
	PHONE_MAX_DIGITS     default 15
	OPENAI_API_KEY       enables AI summaries
	OPENAI_MODEL         default gpt-4o-mini
	OPENAI_BASE_URL      for OpenAI-compatible servers

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing
  - ADMIN_SESSION_SECRET is missing
  - the database type, step size, debounce, rate or phone bounds are invalid
*/
package cliparse
