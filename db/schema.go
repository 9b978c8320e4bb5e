// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is kept to the subset shared by PostgreSQL and SQLite.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DropSchema removes every table. Used by the test harness.
func DropSchema(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS ai_insight;
		DROP TABLE IF EXISTS audit_log;
		DROP TABLE IF EXISTS survey_answer;
		DROP TABLE IF EXISTS phase_progress;
		DROP TABLE IF EXISTS response_session;
		DROP TABLE IF EXISTS survey_question;
		DROP TABLE IF EXISTS survey_phase;
		DROP TABLE IF EXISTS respondent;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

const Schema = `
-- Respondents
CREATE TABLE IF NOT EXISTS respondent (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    phone_raw TEXT NOT NULL DEFAULT '',
    phone_normalized TEXT NOT NULL UNIQUE,
    current_phase TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deleted')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_respondent_status ON respondent(status);
CREATE INDEX IF NOT EXISTS idx_respondent_created_at ON respondent(created_at);

-- Phases (panels)
CREATE TABLE IF NOT EXISTS survey_phase (
    id TEXT PRIMARY KEY,
    phase_code TEXT NOT NULL UNIQUE,
    phase_name TEXT NOT NULL,
    sort_order INTEGER NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

-- Questions
CREATE TABLE IF NOT EXISTS survey_question (
    id TEXT PRIMARY KEY,
    phase_id TEXT NOT NULL REFERENCES survey_phase(id) ON DELETE CASCADE,
    question_code TEXT NOT NULL UNIQUE,
    prompt TEXT NOT NULL,
    help_text TEXT NOT NULL DEFAULT '',
    question_type TEXT NOT NULL CHECK (question_type IN ('single_choice', 'multi_select', 'likert', 'short_text', 'long_text')),
    options_json TEXT NOT NULL DEFAULT '[]',
    selection_min INTEGER NOT NULL DEFAULT 0,
    selection_max INTEGER NOT NULL DEFAULT 0,
    is_required BOOLEAN NOT NULL DEFAULT FALSE,
    show_if_json TEXT,
    follow_up_json TEXT,
    sort_order INTEGER NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_survey_question_phase ON survey_question(phase_id, sort_order);

-- Sessions
CREATE TABLE IF NOT EXISTS response_session (
    id TEXT PRIMARY KEY,
    respondent_id TEXT NOT NULL REFERENCES respondent(id) ON DELETE CASCADE,
    session_token TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
    last_phase TEXT NOT NULL DEFAULT '',
    last_step INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_response_session_respondent ON response_session(respondent_id, status);

-- Phase progress (authoritative resume state)
CREATE TABLE IF NOT EXISTS phase_progress (
    respondent_id TEXT NOT NULL REFERENCES respondent(id) ON DELETE CASCADE,
    phase_id TEXT NOT NULL REFERENCES survey_phase(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'not_started' CHECK (status IN ('not_started', 'in_progress', 'completed')),
    last_step INTEGER NOT NULL DEFAULT 0,
    completion_percent INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP,
    completed_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (respondent_id, phase_id)
);

-- Answers, one per respondent and question
CREATE TABLE IF NOT EXISTS survey_answer (
    respondent_id TEXT NOT NULL REFERENCES respondent(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES survey_question(id) ON DELETE CASCADE,
    phase_id TEXT NOT NULL REFERENCES survey_phase(id) ON DELETE CASCADE,
    session_id TEXT,
    answer_json TEXT NOT NULL,
    is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
    answered_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (respondent_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_survey_answer_phase ON survey_answer(respondent_id, phase_id);

-- Audit log
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    actor_type TEXT NOT NULL,
    actor_id TEXT,
    event_type TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT,
    payload_json TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);

-- AI summaries
CREATE TABLE IF NOT EXISTS ai_insight (
    id TEXT PRIMARY KEY,
    summary_text TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`
