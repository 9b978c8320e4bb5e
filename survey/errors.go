// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
)

var (
	ErrInvalidName       = errors.New("full name is required (minimum 2 characters)")
	ErrInvalidSession    = errors.New("session not found or expired")
	ErrSessionClosed     = errors.New("session is no longer active")
	ErrPhaseNotFound     = errors.New("phase not found")
	ErrQuestionNotFound  = errors.New("question not found in phase")
	ErrRespondentMissing = errors.New("respondent not found")

	// ErrUnavailable marks a retryable storage failure
	ErrUnavailable = store.ErrUnavailable
)

// ValidationError describes the first question that blocks advancing
type ValidationError struct {
	QuestionCode string
	Prompt       string
	Message      string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PhaseLockedError is returned when a respondent asks for a phase they may
// not enter yet (or any more); Redirect is where they belong.
type PhaseLockedError struct {
	Requested string
	Redirect  models.ResumePoint
}

func (e *PhaseLockedError) Error() string {
	return fmt.Sprintf("phase %s is locked, continue at %s", e.Requested, e.Redirect.PhaseCode)
}

// InvalidAnswerError rejects a value that does not fit its question
type InvalidAnswerError struct {
	QuestionCode string
	Reason       string
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer for %s: %s", e.QuestionCode, e.Reason)
}
