// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/panelsurvey/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// unavailable marks a driver failure as retryable while keeping the cause
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Store is the persistence surface the survey core depends on. Every
// mutating call is idempotent by (respondent, question) or (respondent,
// phase).
type Store interface {
	FindRespondentByPhone(ctx context.Context, phoneKey string) (*models.Respondent, error)
	GetRespondent(ctx context.Context, id string) (*models.Respondent, error)
	// UpsertRespondent creates the respondent for r.PhoneNormalized or
	// refreshes its name and last-seen time. created reports which happened.
	UpsertRespondent(ctx context.Context, r models.Respondent) (resp *models.Respondent, created bool, err error)
	SetRespondentCurrentPhase(ctx context.Context, respondentID, phaseCode string) error

	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	GetActiveSession(ctx context.Context, respondentID string) (*models.Session, error)
	CreateSession(ctx context.Context, respondentID string) (*models.Session, error)
	TouchSession(ctx context.Context, sessionID, phaseCode string, step int) error
	CompleteSession(ctx context.Context, sessionID string) error

	ListActivePhasesOrdered(ctx context.Context) ([]models.Phase, error)
	GetPhaseByCode(ctx context.Context, code string) (*models.Phase, error)
	ListQuestions(ctx context.Context, phaseID string) ([]models.Question, error)

	GetProgress(ctx context.Context, respondentID string) ([]models.PhaseProgress, error)
	// UpsertProgress never moves a row backwards: completed rows are left
	// alone and in_progress never returns to not_started.
	UpsertProgress(ctx context.Context, p models.PhaseProgress) error
	// EnsureProgress inserts a not_started row if none exists
	EnsureProgress(ctx context.Context, respondentID, phaseID string) error

	// UpsertAnswers writes answers keyed by (respondent, question), skipping
	// finalized rows. It returns the number of rows written.
	UpsertAnswers(ctx context.Context, answers []models.Answer) (int, error)
	FinalizeAnswers(ctx context.Context, respondentID, phaseID string) error
	GetAnswers(ctx context.Context, respondentID string) ([]models.Answer, error)

	LogEvent(ctx context.Context, ev models.AuditEvent) error

	// InTx runs fn against a Store bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}

// AdminStore backs the dashboard, data management, import/export and
// questionnaire seeding.
type AdminStore interface {
	ListRespondents(ctx context.Context, f models.RespondentFilter) ([]models.RespondentSummary, int, error)
	CountRespondents(ctx context.Context) (int, error)
	ListAllProgress(ctx context.Context) ([]models.PhaseProgress, error)
	ListAllPhases(ctx context.Context) ([]models.Phase, error)
	ListAllQuestions(ctx context.Context) ([]models.Question, error)
	// ListResponses returns answers of non-deleted respondents; an empty
	// phaseCode means every phase.
	ListResponses(ctx context.Context, phaseCode string) ([]models.ResponseRecord, error)
	ListRespondentsForExport(ctx context.Context) ([]models.RespondentSummary, error)

	SoftDeleteAll(ctx context.Context) (int, error)
	RestoreAll(ctx context.Context) (int, error)
	PurgeDeleted(ctx context.Context) (int, error)
	SoftDeleteRespondent(ctx context.Context, id string) error

	ImportRespondent(ctx context.Context, r models.Respondent) error
	ImportAnswer(ctx context.Context, a models.Answer) error

	UpsertPhase(ctx context.Context, p models.Phase) (*models.Phase, error)
	UpsertQuestion(ctx context.Context, q models.Question) (*models.Question, error)

	SaveInsight(ctx context.Context, summary string) error
	LatestInsight(ctx context.Context) (string, error)

	// ListEvents returns the newest audit events first
	ListEvents(ctx context.Context, limit int) ([]models.AuditEvent, error)
}
