// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package survey implements the respondent progress state machine.

The pure pieces have no I/O and are safe to call anywhere:

  - Resolve picks the single phase and step a respondent lands on
  - Guard applies the phase lock before a phase is rendered or written
  - IsVisible and Visibility evaluate conditional questions and follow-ups
  - Partition splits a phase's questions into fixed-size steps
  - ValidateStep and ValidatePhase check required and multi-select bounds
  - CoerceAnswer checks a raw JSON value against its question's type

Service wires them to a store.Store:

	svc := survey.NewService(st, phone.DefaultPolicy(), survey.DefaultStepSize)
	reg, err := svc.Register(ctx, "Ani", "0812-3456-7890")
	view, err := svc.OpenPhase(ctx, reg.Session.Token, reg.Resume.PhaseCode)

# Phase states

Each (respondent, phase) moves one way only:

	not_started → in_progress → completed

SaveAnswers moves a phase to in_progress. CompletePhase validates the whole
phase, completes it, finalizes its answers and prepares the next phase in a
single transaction. Finalized answers are never rewritten by SaveAnswers.

# Errors

Handlers map the returned errors:

	ErrInvalidName, *ValidationError, *InvalidAnswerError   400
	ErrInvalidSession, ErrSessionClosed                     401
	ErrPhaseNotFound, ErrRespondentMissing                  404
	*PhaseLockedError                                       409 with redirect
	ErrUnavailable                                          503
*/
package survey
