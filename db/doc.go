// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

Open accepts "sqlite" (modernc.org/sqlite, no cgo) or "postgres" (lib/pq)
and pings with exponential backoff until the server answers:

	conn, err := db.Open(ctx, db.TypeSQLite, "survey.db")

SQLite connections are limited to one so writes never see SQLITE_BUSY.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs on both databases.

# Tables

  - respondent: one row per normalized phone number
  - survey_phase, survey_question: the questionnaire
  - response_session: session tokens per respondent
  - phase_progress: status, last step and completion per phase
  - survey_answer: one row per respondent and question
  - audit_log: respondent and admin events
  - ai_insight: generated dashboard summaries

# Relationships

	respondent 1──* response_session
	respondent 1──* phase_progress *──1 survey_phase
	respondent 1──* survey_answer  *──1 survey_question *──1 survey_phase
*/
package db
