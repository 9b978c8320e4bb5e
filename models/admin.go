// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

type RespondentSummary struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name"`
	PhoneNormalized string    `json:"phone_normalized"`
	CurrentPhase    string    `json:"current_phase"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
	LastSeenAgo     string    `json:"last_seen_ago,omitempty"`
}

type RespondentFilter struct {
	Search    string
	Phase     string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

type RespondentListResponse struct {
	Success     bool                `json:"success"`
	Respondents []RespondentSummary `json:"respondents"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
}

// Funnel counts respondents by how far they got
type Funnel struct {
	Registered    int            `json:"registered"`
	Started       int            `json:"started"`
	CompletedAll  int            `json:"completed_all"`
	PhaseReached  map[string]int `json:"phase_reached"`
	PhaseFinished map[string]int `json:"phase_finished"`
}

type FunnelResponse struct {
	Success bool   `json:"success"`
	Funnel  Funnel `json:"funnel"`
}

type PhaseStat struct {
	PhaseCode      string  `json:"phase_code"`
	PhaseName      string  `json:"phase_name"`
	SortOrder      int     `json:"sort_order"`
	NotStarted     int     `json:"not_started"`
	InProgress     int     `json:"in_progress"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

type BreakdownRow struct {
	Affiliation string `json:"affiliation"`
	Country     string `json:"country_base"`
	Count       int    `json:"count"`
}

type Overview struct {
	TotalRespondents     int                 `json:"total_respondents"`
	Funnel               Funnel              `json:"funnel"`
	PhaseStats           []PhaseStat         `json:"phase_stats"`
	AffiliationBreakdown []BreakdownRow      `json:"affiliation_breakdown"`
	RecentRespondents    []RespondentSummary `json:"recent_respondents"`
}

type OverviewResponse struct {
	Success  bool     `json:"success"`
	Overview Overview `json:"overview"`
}

type OptionCount struct {
	QuestionCode   string       `json:"question_code"`
	Prompt         string       `json:"prompt"`
	QuestionType   QuestionType `json:"question_type"`
	Option         string       `json:"opt_value"`
	SelectionCount int          `json:"selection_count"`
}

type LikertSummary struct {
	QuestionCode  string  `json:"question_code"`
	Prompt        string  `json:"prompt"`
	AvgScore      float64 `json:"avg_score"`
	ResponseCount int     `json:"response_count"`
	MinScore      float64 `json:"min_score"`
	MaxScore      float64 `json:"max_score"`
}

type QuestionAnalyticsResponse struct {
	Success       bool            `json:"success"`
	OptionCounts  []OptionCount   `json:"option_counts"`
	LikertSummary []LikertSummary `json:"likert_summary"`
}

// ResponseRecord is one answer joined with its respondent, question and
// phase, as used by exports, imports and analytics.
type ResponseRecord struct {
	RespondentID     string       `json:"respondent_id"`
	FullName         string       `json:"full_name"`
	PhoneNormalized  string       `json:"phone_normalized"`
	RespondentStatus string       `json:"-"`
	PhaseCode        string       `json:"phase_code"`
	QuestionCode     string       `json:"question_code"`
	QuestionPrompt   string       `json:"question_prompt"`
	QuestionType     QuestionType `json:"question_type"`
	Value            AnswerValue  `json:"answer"`
	Finalized        bool         `json:"is_finalized"`
	AnsweredAt       time.Time    `json:"answered_at"`
}

type AISummaryResponse struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
}

type AuditLogResponse struct {
	Success bool         `json:"success"`
	Events  []AuditEvent `json:"events"`
}
