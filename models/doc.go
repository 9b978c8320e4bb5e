// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - StartRequest: full_name, phone
  - SaveAnswersRequest: phase_code, step, answers (question_code -> raw JSON)
  - CompletePhaseRequest: phase_code, answers
  - AdminLoginRequest: password
  - ConfirmRequest: intent (the typed confirmation phrase)

# Response Types

Types for JSON responses:

  - StartResponse, ResumeResponse: session token, progress and resume point
  - PhaseViewResponse: steps, saved answers, visible question codes
  - SaveAnswersResponse, CompletePhaseResponse
  - OverviewResponse, FunnelResponse, RespondentListResponse,
    QuestionAnalyticsResponse, AISummaryResponse, AuditLogResponse
  - ErrorResponse: error, message, question_code, redirect

# Domain Types

  - Respondent, Session: identity by normalized phone and session token
  - Phase, Question, ShowIf, FollowUp: the questionnaire
  - PhaseProgress, ResumePoint: where a respondent is
  - Answer, AnswerValue: a typed answer (text, number or list)
  - AuditEvent

# Answer Values

AnswerValue keeps the JSON shape the client sent: a string, a number or a
list of strings. ParseAnswerValue reads spreadsheet cells, accepting JSON
and falling back to plain text.

# Constants

Progress:

	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"

Question types:

	single_choice, multi_select, likert, short_text, long_text

Terminal markers:

	PhaseDone             = "done"       // resume point and next_phase
	CurrentPhaseCompleted = "completed"  // respondent.current_phase
*/
package models
