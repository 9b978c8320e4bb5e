// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Request types

type StartRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

// Answers maps question_code -> raw JSON value. Values are decoded against
// the question's declared type on the server.
type SaveAnswersRequest struct {
	PhaseCode string                     `json:"phase_code" validate:"required"`
	Step      int                        `json:"step" validate:"gte=0"`
	Answers   map[string]json.RawMessage `json:"answers" validate:"required,min=1"`
}

type CompletePhaseRequest struct {
	PhaseCode string                     `json:"phase_code" validate:"required"`
	Answers   map[string]json.RawMessage `json:"answers,omitempty"`
}

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// ConfirmRequest carries the typed phrase that destructive admin
// operations require.
type ConfirmRequest struct {
	Intent string `json:"intent" validate:"required"`
}

// Response types

type StartResponse struct {
	Success      bool   `json:"success"`
	IsNew        bool   `json:"is_new"`
	RespondentID string `json:"respondent_id"`
	SessionToken string `json:"session_token"`
	ResumePoint
}

type PhaseWithProgress struct {
	Phase
	Progress PhaseProgress `json:"progress"`
}

type ResumeResponse struct {
	Success        bool                   `json:"success"`
	Respondent     Respondent             `json:"respondent"`
	Session        Session                `json:"session"`
	Phases         []PhaseWithProgress    `json:"phases"`
	SavedResponses map[string]AnswerValue `json:"saved_responses"`
	Resume         ResumePoint            `json:"resume"`
}

type QuestionsResponse struct {
	Questions []Question `json:"questions"`
}

type PhaseViewResponse struct {
	Success           bool                   `json:"success"`
	Phase             Phase                  `json:"phase"`
	Status            string                 `json:"status"`
	Steps             [][]Question           `json:"steps"`
	CurrentStep       int                    `json:"current_step"`
	Answers           map[string]AnswerValue `json:"answers"`
	VisibleCodes      []string               `json:"visible_codes"`
	CompletionPercent int                    `json:"completion_percent"`
}

type SaveAnswersResponse struct {
	Success     bool      `json:"success"`
	SavedCount  int       `json:"saved_count"`
	Skipped     int       `json:"skipped_count"`
	LastSavedAt time.Time `json:"last_saved_at"`
}

type CompletePhaseResponse struct {
	Success        bool   `json:"success"`
	PhaseCompleted string `json:"phase_completed"`
	NextPhase      string `json:"next_phase"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type AdminLoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
