// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/panelsurvey/models"
)

// querier is the subset of *sql.DB and *sql.Tx the store needs
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store and AdminStore over database/sql. Queries use
// $N placeholders and upsert syntax understood by PostgreSQL and SQLite.
type SQLStore struct {
	db   *sql.DB
	q    querier
	inTx bool
	now  func() time.Time
}

var (
	_ Store      = (*SQLStore)(nil)
	_ AdminStore = (*SQLStore)(nil)
)

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db, now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// WithClock replaces the time source, for tests
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	c := *s
	c.now = now
	return &c
}

func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	txStore := &SQLStore{db: s.db, q: tx, inTx: true, now: s.now}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

// Respondents

const respondentColumns = `id, full_name, phone_raw, phone_normalized, current_phase, status, created_at, updated_at, last_seen_at`

func scanRespondent(row interface{ Scan(...any) error }) (*models.Respondent, error) {
	var r models.Respondent
	err := row.Scan(&r.ID, &r.FullName, &r.PhoneRaw, &r.PhoneNormalized, &r.CurrentPhase,
		&r.Status, &r.CreatedAt, &r.UpdatedAt, &r.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) FindRespondentByPhone(ctx context.Context, phoneKey string) (*models.Respondent, error) {
	r, err := scanRespondent(s.q.QueryRowContext(ctx, `
		SELECT `+respondentColumns+` FROM respondent WHERE phone_normalized = $1
	`, phoneKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find respondent", err)
	}
	return r, nil
}

func (s *SQLStore) GetRespondent(ctx context.Context, id string) (*models.Respondent, error) {
	r, err := scanRespondent(s.q.QueryRowContext(ctx, `
		SELECT `+respondentColumns+` FROM respondent WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get respondent", err)
	}
	return r, nil
}

func (s *SQLStore) UpsertRespondent(ctx context.Context, r models.Respondent) (*models.Respondent, bool, error) {
	now := s.now()
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}

	// Insert first so that two registrations racing on the same phone key
	// resolve to one row.
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO respondent (id, full_name, phone_raw, phone_normalized, current_phase, status, created_at, updated_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
		ON CONFLICT (phone_normalized) DO NOTHING
	`, id, r.FullName, r.PhoneRaw, r.PhoneNormalized, r.CurrentPhase, models.RespondentActive, now)
	if err != nil {
		return nil, false, unavailable("insert respondent", err)
	}

	created := false
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created = true
	} else {
		_, err = s.q.ExecContext(ctx, `
			UPDATE respondent
			SET full_name = $1, status = $2, updated_at = $3, last_seen_at = $3
			WHERE phone_normalized = $4
		`, r.FullName, models.RespondentActive, now, r.PhoneNormalized)
		if err != nil {
			return nil, false, unavailable("update respondent", err)
		}
	}

	resp, err := s.FindRespondentByPhone(ctx, r.PhoneNormalized)
	if err != nil {
		return nil, false, err
	}
	return resp, created, nil
}

func (s *SQLStore) SetRespondentCurrentPhase(ctx context.Context, respondentID, phaseCode string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE respondent SET current_phase = $1, updated_at = $2 WHERE id = $3
	`, phaseCode, s.now(), respondentID)
	if err != nil {
		return unavailable("set current phase", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sessions

const sessionColumns = `id, respondent_id, session_token, status, last_phase, last_step, last_activity_at, created_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var ss models.Session
	err := row.Scan(&ss.ID, &ss.RespondentID, &ss.Token, &ss.Status, &ss.LastPhase, &ss.LastStep,
		&ss.LastActivityAt, &ss.CreatedAt, &ss.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

func (s *SQLStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	ss, err := scanSession(s.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM response_session WHERE session_token = $1
	`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}
	return ss, nil
}

func (s *SQLStore) GetActiveSession(ctx context.Context, respondentID string) (*models.Session, error) {
	ss, err := scanSession(s.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM response_session
		WHERE respondent_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, respondentID, models.SessionActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get active session", err)
	}
	return ss, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, respondentID string) (*models.Session, error) {
	now := s.now()
	ss := &models.Session{
		ID:             uuid.NewString(),
		RespondentID:   respondentID,
		Token:          uuid.NewString(),
		Status:         models.SessionActive,
		LastActivityAt: now,
		CreatedAt:      now,
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO response_session (id, respondent_id, session_token, status, last_phase, last_step, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, '', 0, $5, $5)
	`, ss.ID, ss.RespondentID, ss.Token, ss.Status, now)
	if err != nil {
		return nil, unavailable("create session", err)
	}
	return ss, nil
}

func (s *SQLStore) TouchSession(ctx context.Context, sessionID, phaseCode string, step int) error {
	var err error
	if phaseCode == "" {
		_, err = s.q.ExecContext(ctx, `
			UPDATE response_session SET last_activity_at = $1 WHERE id = $2
		`, s.now(), sessionID)
	} else {
		_, err = s.q.ExecContext(ctx, `
			UPDATE response_session SET last_activity_at = $1, last_phase = $2, last_step = $3 WHERE id = $4
		`, s.now(), phaseCode, step, sessionID)
	}
	if err != nil {
		return unavailable("touch session", err)
	}
	return nil
}

func (s *SQLStore) CompleteSession(ctx context.Context, sessionID string) error {
	now := s.now()
	_, err := s.q.ExecContext(ctx, `
		UPDATE response_session SET status = $1, completed_at = $2, last_activity_at = $2 WHERE id = $3
	`, models.SessionCompleted, now, sessionID)
	if err != nil {
		return unavailable("complete session", err)
	}
	return nil
}

// Phases and questions

func (s *SQLStore) listPhases(ctx context.Context, activeOnly bool) ([]models.Phase, error) {
	query := `SELECT id, phase_code, phase_name, sort_order, is_active FROM survey_phase`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, phase_code`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("list phases", err)
	}
	defer rows.Close()

	phases := []models.Phase{}
	for rows.Next() {
		var p models.Phase
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.SortOrder, &p.Active); err != nil {
			return nil, unavailable("scan phase", err)
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list phases", err)
	}
	return phases, nil
}

func (s *SQLStore) ListActivePhasesOrdered(ctx context.Context) ([]models.Phase, error) {
	return s.listPhases(ctx, true)
}

func (s *SQLStore) ListAllPhases(ctx context.Context) ([]models.Phase, error) {
	return s.listPhases(ctx, false)
}

func (s *SQLStore) GetPhaseByCode(ctx context.Context, code string) (*models.Phase, error) {
	var p models.Phase
	err := s.q.QueryRowContext(ctx, `
		SELECT id, phase_code, phase_name, sort_order, is_active FROM survey_phase WHERE phase_code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Name, &p.SortOrder, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get phase", err)
	}
	return &p, nil
}

const questionColumns = `id, phase_id, question_code, prompt, help_text, question_type, options_json,
	selection_min, selection_max, is_required, show_if_json, follow_up_json, sort_order, is_active`

func scanQuestion(row interface{ Scan(...any) error }) (*models.Question, error) {
	var (
		q          models.Question
		optionsRaw string
		showIfRaw  sql.NullString
		followRaw  sql.NullString
	)
	err := row.Scan(&q.ID, &q.PhaseID, &q.Code, &q.Prompt, &q.HelpText, &q.Type, &optionsRaw,
		&q.SelectionMin, &q.SelectionMax, &q.Required, &showIfRaw, &followRaw, &q.SortOrder, &q.Active)
	if err != nil {
		return nil, unavailable("scan question", err)
	}

	// Decode failures are bad data and stay unwrapped
	if optionsRaw != "" {
		if err := json.Unmarshal([]byte(optionsRaw), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.Code, err)
		}
	}
	if showIfRaw.Valid && showIfRaw.String != "" {
		q.ShowIf = &models.ShowIf{}
		if err := json.Unmarshal([]byte(showIfRaw.String), q.ShowIf); err != nil {
			return nil, fmt.Errorf("question %s show_if: %w", q.Code, err)
		}
	}
	if followRaw.Valid && followRaw.String != "" {
		q.FollowUp = &models.FollowUp{}
		if err := json.Unmarshal([]byte(followRaw.String), q.FollowUp); err != nil {
			return nil, fmt.Errorf("question %s follow_up: %w", q.Code, err)
		}
	}
	return &q, nil
}

func (s *SQLStore) queryQuestions(ctx context.Context, query string, args ...any) ([]models.Question, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list questions", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list questions", err)
	}
	return questions, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, phaseID string) ([]models.Question, error) {
	return s.queryQuestions(ctx, `
		SELECT `+questionColumns+` FROM survey_question
		WHERE phase_id = $1 AND is_active = TRUE
		ORDER BY sort_order, question_code
	`, phaseID)
}

func (s *SQLStore) ListAllQuestions(ctx context.Context) ([]models.Question, error) {
	return s.queryQuestions(ctx, `
		SELECT q.id, q.phase_id, q.question_code, q.prompt, q.help_text, q.question_type, q.options_json,
			q.selection_min, q.selection_max, q.is_required, q.show_if_json, q.follow_up_json, q.sort_order, q.is_active
		FROM survey_question q
		JOIN survey_phase p ON p.id = q.phase_id
		ORDER BY p.sort_order, q.sort_order, q.question_code
	`)
}

// Progress

const progressColumns = `respondent_id, phase_id, status, last_step, completion_percent, started_at, completed_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (*models.PhaseProgress, error) {
	var p models.PhaseProgress
	err := row.Scan(&p.RespondentID, &p.PhaseID, &p.Status, &p.LastStep, &p.CompletionPercent,
		&p.StartedAt, &p.CompletedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLStore) queryProgress(ctx context.Context, query string, args ...any) ([]models.PhaseProgress, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("get progress", err)
	}
	defer rows.Close()

	progress := []models.PhaseProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, unavailable("scan progress", err)
		}
		progress = append(progress, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get progress", err)
	}
	return progress, nil
}

func (s *SQLStore) GetProgress(ctx context.Context, respondentID string) ([]models.PhaseProgress, error) {
	return s.queryProgress(ctx, `
		SELECT `+progressColumns+` FROM phase_progress WHERE respondent_id = $1
	`, respondentID)
}

func (s *SQLStore) UpsertProgress(ctx context.Context, p models.PhaseProgress) error {
	now := s.now()
	if p.Status == models.ProgressInProgress && p.StartedAt == nil {
		p.StartedAt = &now
	}
	if p.Status == models.ProgressCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO phase_progress (respondent_id, phase_id, status, last_step, completion_percent, started_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (respondent_id, phase_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_step = EXCLUDED.last_step,
			completion_percent = EXCLUDED.completion_percent,
			started_at = COALESCE(phase_progress.started_at, EXCLUDED.started_at),
			completed_at = COALESCE(EXCLUDED.completed_at, phase_progress.completed_at),
			updated_at = EXCLUDED.updated_at
		WHERE phase_progress.status <> 'completed'
			AND NOT (phase_progress.status = 'in_progress' AND EXCLUDED.status = 'not_started')
	`, p.RespondentID, p.PhaseID, p.Status, p.LastStep, p.CompletionPercent, p.StartedAt, p.CompletedAt, now)
	if err != nil {
		return unavailable("upsert progress", err)
	}
	return nil
}

func (s *SQLStore) EnsureProgress(ctx context.Context, respondentID, phaseID string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO phase_progress (respondent_id, phase_id, status, last_step, completion_percent, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4)
		ON CONFLICT (respondent_id, phase_id) DO NOTHING
	`, respondentID, phaseID, models.ProgressNotStarted, s.now())
	if err != nil {
		return unavailable("ensure progress", err)
	}
	return nil
}

// Answers

func (s *SQLStore) UpsertAnswers(ctx context.Context, answers []models.Answer) (int, error) {
	now := s.now()
	written := 0
	for _, a := range answers {
		value, err := json.Marshal(a.Value)
		if err != nil {
			return written, fmt.Errorf("encode answer %s: %w", a.QuestionID, err)
		}

		res, err := s.q.ExecContext(ctx, `
			INSERT INTO survey_answer (respondent_id, question_id, phase_id, session_id, answer_json, is_finalized, answered_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6)
			ON CONFLICT (respondent_id, question_id) DO UPDATE SET
				phase_id = EXCLUDED.phase_id,
				session_id = EXCLUDED.session_id,
				answer_json = EXCLUDED.answer_json,
				answered_at = EXCLUDED.answered_at,
				updated_at = EXCLUDED.updated_at
			WHERE survey_answer.is_finalized = FALSE
		`, a.RespondentID, a.QuestionID, a.PhaseID, nullString(a.SessionID), string(value), now)
		if err != nil {
			return written, unavailable("upsert answer", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}
	return written, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) FinalizeAnswers(ctx context.Context, respondentID, phaseID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE survey_answer SET is_finalized = TRUE, updated_at = $1
		WHERE respondent_id = $2 AND phase_id = $3 AND is_finalized = FALSE
	`, s.now(), respondentID, phaseID)
	if err != nil {
		return unavailable("finalize answers", err)
	}
	return nil
}

func (s *SQLStore) GetAnswers(ctx context.Context, respondentID string) ([]models.Answer, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT a.respondent_id, a.question_id, q.question_code, a.phase_id, a.session_id,
			a.answer_json, a.is_finalized, a.answered_at, a.updated_at
		FROM survey_answer a
		JOIN survey_question q ON q.id = a.question_id
		WHERE a.respondent_id = $1
		ORDER BY q.sort_order, q.question_code
	`, respondentID)
	if err != nil {
		return nil, unavailable("get answers", err)
	}
	defer rows.Close()

	answers := []models.Answer{}
	for rows.Next() {
		var (
			a         models.Answer
			sessionID sql.NullString
			raw       string
		)
		if err := rows.Scan(&a.RespondentID, &a.QuestionID, &a.QuestionCode, &a.PhaseID, &sessionID,
			&raw, &a.Finalized, &a.AnsweredAt, &a.UpdatedAt); err != nil {
			return nil, unavailable("scan answer", err)
		}
		a.SessionID = sessionID.String
		if err := json.Unmarshal([]byte(raw), &a.Value); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", a.QuestionCode, err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get answers", err)
	}
	return answers, nil
}

// Audit

func (s *SQLStore) LogEvent(ctx context.Context, ev models.AuditEvent) error {
	var payload sql.NullString
	if len(ev.Payload) > 0 {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("encode audit payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_type, actor_id, event_type, entity_type, entity_id, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), ev.ActorType, nullString(ev.ActorID), ev.EventType, ev.EntityType,
		nullString(ev.EntityID), payload, createdAt)
	if err != nil {
		return unavailable("log event", err)
	}
	return nil
}
