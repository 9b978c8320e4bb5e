// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Respondent status constants
const (
	RespondentActive  = "active"
	RespondentDeleted = "deleted"
)

// Phase progress status constants
const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

// Session status constants
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Terminal markers. The resume point reports PhaseDone once every phase is
// completed; the respondent record stores CurrentPhaseCompleted.
const (
	PhaseDone             = "done"
	CurrentPhaseCompleted = "completed"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiSelect  QuestionType = "multi_select"
	QuestionLikert       QuestionType = "likert"
	QuestionShortText    QuestionType = "short_text"
	QuestionLongText     QuestionType = "long_text"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultiSelect, QuestionLikert, QuestionShortText, QuestionLongText:
		return true
	}
	return false
}

// Audit actor types
const (
	ActorRespondent = "respondent"
	ActorAdmin      = "admin"
	ActorSystem     = "system"
)

// Domain types

type Respondent struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name"`
	PhoneRaw        string    `json:"-"`
	PhoneNormalized string    `json:"phone_normalized"`
	CurrentPhase    string    `json:"current_phase"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

type Phase struct {
	ID        string `json:"id"`
	Code      string `json:"phase_code"`
	Name      string `json:"phase_name"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"is_active"`
}

// ShowIf makes a question visible only while the answer to QuestionCode
// shares at least one value with AnswerIn.
type ShowIf struct {
	QuestionCode string   `json:"question_code" yaml:"question_code"`
	AnswerIn     []string `json:"answer_in" yaml:"answer_in"`
}

// FollowUp declares that QuestionCode is only shown when this question's
// answer includes Option (the "Other, please specify" pattern).
type FollowUp struct {
	Option       string `json:"option" yaml:"option"`
	QuestionCode string `json:"question_code" yaml:"question_code"`
}

type Question struct {
	ID           string       `json:"id"`
	PhaseID      string       `json:"phase_id"`
	Code         string       `json:"question_code"`
	Prompt       string       `json:"prompt"`
	HelpText     string       `json:"help_text,omitempty"`
	Type         QuestionType `json:"question_type"`
	Options      []string     `json:"options,omitempty"`
	SelectionMin int          `json:"selection_min,omitempty"`
	SelectionMax int          `json:"selection_max,omitempty"`
	Required     bool         `json:"is_required"`
	ShowIf       *ShowIf      `json:"show_if,omitempty"`
	FollowUp     *FollowUp    `json:"follow_up,omitempty"`
	SortOrder    int          `json:"sort_order"`
	Active       bool         `json:"is_active"`
}

type Answer struct {
	RespondentID string      `json:"respondent_id"`
	QuestionID   string      `json:"question_id"`
	QuestionCode string      `json:"question_code"`
	PhaseID      string      `json:"phase_id"`
	SessionID    string      `json:"-"`
	Value        AnswerValue `json:"value"`
	Finalized    bool        `json:"is_finalized"`
	AnsweredAt   time.Time   `json:"answered_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type PhaseProgress struct {
	RespondentID      string     `json:"respondent_id"`
	PhaseID           string     `json:"phase_id"`
	Status            string     `json:"status"`
	LastStep          int        `json:"last_step"`
	CompletionPercent int        `json:"completion_percent"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Session struct {
	ID             string     `json:"id"`
	RespondentID   string     `json:"respondent_id"`
	Token          string     `json:"-"`
	Status         string     `json:"status"`
	LastPhase      string     `json:"last_phase,omitempty"`
	LastStep       int        `json:"last_step"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type AuditEvent struct {
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id,omitempty"`
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ResumePoint is where a respondent lands: a phase and a step within it, or
// Done once every phase is completed.
type ResumePoint struct {
	PhaseCode string `json:"resume_phase"`
	Step      int    `json:"resume_step"`
	Done      bool   `json:"done"`
}

// Error response

type ErrorResponse struct {
	Error        string       `json:"error"`
	Message      string       `json:"message,omitempty"`
	QuestionCode string       `json:"question_code,omitempty"`
	Redirect     *ResumePoint `json:"redirect,omitempty"`
}
