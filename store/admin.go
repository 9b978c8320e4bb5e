// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/panelsurvey/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// whereBuilder accumulates AND-ed conditions with numbered placeholders
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (s *SQLStore) ListRespondents(ctx context.Context, f models.RespondentFilter) ([]models.RespondentSummary, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}

	w := &whereBuilder{}
	w.add("status = ?", models.RespondentActive)
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		w.add("(LOWER(full_name) LIKE LOWER(?) OR phone_normalized LIKE ?)", pattern, pattern)
	}
	if f.Phase != "" {
		w.add("current_phase = ?", f.Phase)
	}
	if f.StartDate != nil {
		w.add("created_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		w.add("created_at < ?", f.EndDate.UTC())
	}

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM respondent`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, unavailable("count respondents", err)
	}

	limit := w.next()
	offset := fmt.Sprintf("$%d", len(w.args)+2)
	args := append(w.args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, full_name, phone_normalized, current_phase, status, created_at, last_seen_at
		FROM respondent`+w.String()+`
		ORDER BY created_at DESC, id
		LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, 0, unavailable("list respondents", err)
	}
	defer rows.Close()

	list, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func scanSummaries(rows *sql.Rows) ([]models.RespondentSummary, error) {
	list := []models.RespondentSummary{}
	for rows.Next() {
		var r models.RespondentSummary
		if err := rows.Scan(&r.ID, &r.FullName, &r.PhoneNormalized, &r.CurrentPhase, &r.Status,
			&r.CreatedAt, &r.LastSeenAt); err != nil {
			return nil, unavailable("scan respondent", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list respondents", err)
	}
	return list, nil
}

func (s *SQLStore) CountRespondents(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM respondent WHERE status = $1`, models.RespondentActive).Scan(&n)
	if err != nil {
		return 0, unavailable("count respondents", err)
	}
	return n, nil
}

func (s *SQLStore) ListRespondentsForExport(ctx context.Context) ([]models.RespondentSummary, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, full_name, phone_normalized, current_phase, status, created_at, last_seen_at
		FROM respondent
		WHERE status = $1
		ORDER BY created_at, id
	`, models.RespondentActive)
	if err != nil {
		return nil, unavailable("export respondents", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListAllProgress returns progress rows of active respondents only
func (s *SQLStore) ListAllProgress(ctx context.Context) ([]models.PhaseProgress, error) {
	return s.queryProgress(ctx, `
		SELECT pp.respondent_id, pp.phase_id, pp.status, pp.last_step, pp.completion_percent,
			pp.started_at, pp.completed_at, pp.updated_at
		FROM phase_progress pp
		JOIN respondent r ON r.id = pp.respondent_id
		WHERE r.status = $1
	`, models.RespondentActive)
}

func (s *SQLStore) ListResponses(ctx context.Context, phaseCode string) ([]models.ResponseRecord, error) {
	w := &whereBuilder{}
	w.add("r.status = ?", models.RespondentActive)
	if phaseCode != "" {
		w.add("p.phase_code = ?", phaseCode)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT r.id, r.full_name, r.phone_normalized, r.status, p.phase_code, q.question_code,
			q.prompt, q.question_type, a.answer_json, a.is_finalized, a.answered_at
		FROM survey_answer a
		JOIN respondent r ON r.id = a.respondent_id
		JOIN survey_question q ON q.id = a.question_id
		JOIN survey_phase p ON p.id = a.phase_id`+w.String()+`
		ORDER BY r.created_at, r.id, p.sort_order, q.sort_order
	`, w.args...)
	if err != nil {
		return nil, unavailable("list responses", err)
	}
	defer rows.Close()

	records := []models.ResponseRecord{}
	for rows.Next() {
		var (
			rec models.ResponseRecord
			raw string
		)
		if err := rows.Scan(&rec.RespondentID, &rec.FullName, &rec.PhoneNormalized, &rec.RespondentStatus,
			&rec.PhaseCode, &rec.QuestionCode, &rec.QuestionPrompt, &rec.QuestionType, &raw,
			&rec.Finalized, &rec.AnsweredAt); err != nil {
			return nil, unavailable("scan response", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Value); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", rec.QuestionCode, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list responses", err)
	}
	return records, nil
}

// Data management

func (s *SQLStore) setAllStatus(ctx context.Context, op, from, to string) (int, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE respondent SET status = $1, updated_at = $2 WHERE status = $3
	`, to, s.now(), from)
	if err != nil {
		return 0, unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(op, err)
	}
	return int(n), nil
}

func (s *SQLStore) SoftDeleteAll(ctx context.Context) (int, error) {
	return s.setAllStatus(ctx, "soft delete respondents", models.RespondentActive, models.RespondentDeleted)
}

func (s *SQLStore) RestoreAll(ctx context.Context) (int, error) {
	return s.setAllStatus(ctx, "restore respondents", models.RespondentDeleted, models.RespondentActive)
}

// PurgeDeleted physically removes soft-deleted respondents. Child rows are
// deleted explicitly since SQLite does not enforce foreign keys by default.
func (s *SQLStore) PurgeDeleted(ctx context.Context) (int, error) {
	var purged int
	err := s.InTx(ctx, func(st Store) error {
		tx := st.(*SQLStore)
		for _, table := range []string{"survey_answer", "phase_progress", "response_session"} {
			_, err := tx.q.ExecContext(ctx, `
				DELETE FROM `+table+` WHERE respondent_id IN (SELECT id FROM respondent WHERE status = $1)
			`, models.RespondentDeleted)
			if err != nil {
				return unavailable("purge "+table, err)
			}
		}

		res, err := tx.q.ExecContext(ctx, `DELETE FROM respondent WHERE status = $1`, models.RespondentDeleted)
		if err != nil {
			return unavailable("purge respondents", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return unavailable("purge respondents", err)
		}
		purged = int(n)
		return nil
	})
	return purged, err
}

func (s *SQLStore) SoftDeleteRespondent(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE respondent SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4
	`, models.RespondentDeleted, s.now(), id, models.RespondentActive)
	if err != nil {
		return unavailable("soft delete respondent", err)
	}
	return requireRow(res)
}

// Import

// ImportRespondent upserts by phone key, keeping the imported creation time
// when one is given.
func (s *SQLStore) ImportRespondent(ctx context.Context, r models.Respondent) error {
	now := s.now()
	created := r.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO respondent (id, full_name, phone_raw, phone_normalized, current_phase, status, created_at, updated_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (phone_normalized) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			current_phase = CASE WHEN EXCLUDED.current_phase = '' THEN respondent.current_phase ELSE EXCLUDED.current_phase END,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), r.FullName, r.PhoneRaw, r.PhoneNormalized, r.CurrentPhase, models.RespondentActive,
		created.UTC(), now)
	if err != nil {
		return unavailable("import respondent", err)
	}
	return nil
}

// ImportAnswer writes a finalized answer, overwriting whatever is stored
func (s *SQLStore) ImportAnswer(ctx context.Context, a models.Answer) error {
	value, err := json.Marshal(a.Value)
	if err != nil {
		return fmt.Errorf("encode answer %s: %w", a.QuestionCode, err)
	}

	now := s.now()
	answered := a.AnsweredAt
	if answered.IsZero() {
		answered = now
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO survey_answer (respondent_id, question_id, phase_id, session_id, answer_json, is_finalized, answered_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, TRUE, $5, $6)
		ON CONFLICT (respondent_id, question_id) DO UPDATE SET
			answer_json = EXCLUDED.answer_json,
			is_finalized = TRUE,
			answered_at = EXCLUDED.answered_at,
			updated_at = EXCLUDED.updated_at
	`, a.RespondentID, a.QuestionID, a.PhaseID, string(value), answered.UTC(), now)
	if err != nil {
		return unavailable("import answer", err)
	}
	return nil
}

// Questionnaire

func (s *SQLStore) UpsertPhase(ctx context.Context, p models.Phase) (*models.Phase, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO survey_phase (id, phase_code, phase_name, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phase_code) DO UPDATE SET
			phase_name = EXCLUDED.phase_name,
			sort_order = EXCLUDED.sort_order,
			is_active = EXCLUDED.is_active
	`, uuid.NewString(), p.Code, p.Name, p.SortOrder, p.Active)
	if err != nil {
		return nil, unavailable("upsert phase", err)
	}
	return s.GetPhaseByCode(ctx, p.Code)
}

func (s *SQLStore) UpsertQuestion(ctx context.Context, q models.Question) (*models.Question, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	if q.Options == nil {
		options = []byte("[]")
	}
	showIf, err := optionalJSON(q.ShowIf)
	if err != nil {
		return nil, fmt.Errorf("encode show_if: %w", err)
	}
	followUp, err := optionalJSON(q.FollowUp)
	if err != nil {
		return nil, fmt.Errorf("encode follow_up: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO survey_question (id, phase_id, question_code, prompt, help_text, question_type, options_json,
			selection_min, selection_max, is_required, show_if_json, follow_up_json, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (question_code) DO UPDATE SET
			phase_id = EXCLUDED.phase_id,
			prompt = EXCLUDED.prompt,
			help_text = EXCLUDED.help_text,
			question_type = EXCLUDED.question_type,
			options_json = EXCLUDED.options_json,
			selection_min = EXCLUDED.selection_min,
			selection_max = EXCLUDED.selection_max,
			is_required = EXCLUDED.is_required,
			show_if_json = EXCLUDED.show_if_json,
			follow_up_json = EXCLUDED.follow_up_json,
			sort_order = EXCLUDED.sort_order,
			is_active = EXCLUDED.is_active
	`, uuid.NewString(), q.PhaseID, q.Code, q.Prompt, q.HelpText, q.Type, string(options),
		q.SelectionMin, q.SelectionMax, q.Required, showIf, followUp, q.SortOrder, q.Active)
	if err != nil {
		return nil, unavailable("upsert question", err)
	}

	stored, err := scanQuestion(s.q.QueryRowContext(ctx, `
		SELECT `+questionColumns+` FROM survey_question WHERE question_code = $1
	`, q.Code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func optionalJSON(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *models.ShowIf:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *models.FollowUp:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// AI insights

func (s *SQLStore) SaveInsight(ctx context.Context, summary string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ai_insight (id, summary_text, created_at) VALUES ($1, $2, $3)
	`, uuid.NewString(), summary, s.now())
	if err != nil {
		return unavailable("save insight", err)
	}
	return nil
}

func (s *SQLStore) LatestInsight(ctx context.Context) (string, error) {
	var summary string
	err := s.q.QueryRowContext(ctx, `
		SELECT summary_text FROM ai_insight ORDER BY created_at DESC LIMIT 1
	`).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", unavailable("latest insight", err)
	}
	return summary, nil
}

// Audit log

func (s *SQLStore) ListEvents(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT actor_type, actor_id, event_type, entity_type, entity_id, payload_json, created_at
		FROM audit_log
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, unavailable("list events", err)
	}
	defer rows.Close()

	events := []models.AuditEvent{}
	for rows.Next() {
		var (
			ev                models.AuditEvent
			actorID, entityID sql.NullString
			payload           sql.NullString
		)
		if err := rows.Scan(&ev.ActorType, &actorID, &ev.EventType, &ev.EntityType, &entityID,
			&payload, &ev.CreatedAt); err != nil {
			return nil, unavailable("scan event", err)
		}
		ev.ActorID = actorID.String
		ev.EntityID = entityID.String
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list events", err)
	}
	return events, nil
}
