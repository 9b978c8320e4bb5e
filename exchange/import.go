// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/phone"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/survey"
)

// maxRowErrors bounds the per-row problems reported back
const maxRowErrors = 50

// ImportStore is what Import needs from storage
type ImportStore interface {
	FindRespondentByPhone(ctx context.Context, phoneKey string) (*models.Respondent, error)
	ListAllQuestions(ctx context.Context) ([]models.Question, error)
	ImportRespondent(ctx context.Context, r models.Respondent) error
	ImportAnswer(ctx context.Context, a models.Answer) error
	UpsertProgress(ctx context.Context, p models.PhaseProgress) error
}

type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Report struct {
	Kind     Kind       `json:"type"`
	Rows     int        `json:"rows"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

func (r *Report) skip(row int, format string, args ...any) {
	r.Skipped++
	if len(r.Errors) < maxRowErrors {
		// Data rows start on line 2, after the header
		r.Errors = append(r.Errors, RowError{Row: row + 2, Reason: fmt.Sprintf(format, args...)})
	}
}

type Importer struct {
	store  ImportStore
	policy phone.Policy
}

func NewImporter(st ImportStore, policy phone.Policy) *Importer {
	return &Importer{store: st, policy: policy}
}

// Import upserts rows by phone key. Bad rows are skipped and reported;
// storage failures abort.
func (im *Importer) Import(ctx context.Context, kind Kind, t Table) (*Report, error) {
	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	switch kind {
	case KindRespondents:
		return im.importRespondents(ctx, t)
	case KindResponses:
		return im.importResponses(ctx, t)
	}
	return nil, ErrUnknownKind
}

func (im *Importer) importRespondents(ctx context.Context, t Table) (*Report, error) {
	cols := t.columns()
	if !cols.has("phone_normalized", "phone") {
		return nil, errors.New("missing phone_normalized column")
	}

	rep := &Report{Kind: KindRespondents, Rows: len(t.Rows)}
	for i, row := range t.Rows {
		res := im.policy.Validate(cols.get(row, "phone_normalized", "phone"))
		if !res.Valid {
			rep.skip(i, "invalid phone number")
			continue
		}

		name := cols.get(row, "full_name", "name")
		if name == "" {
			name = "Unknown"
		}
		r := models.Respondent{
			FullName:        name,
			PhoneRaw:        res.Normalized,
			PhoneNormalized: res.Normalized,
			CurrentPhase:    cols.get(row, "current_phase"),
			CreatedAt:       parseTime(cols.get(row, "created_at")),
		}
		if err := im.store.ImportRespondent(ctx, r); err != nil {
			return rep, err
		}
		rep.Imported++
	}
	return rep, nil
}

type progressKey struct{ respondent, phase string }

func (im *Importer) importResponses(ctx context.Context, t Table) (*Report, error) {
	cols := t.columns()
	for _, required := range []string{"question_code", "answer"} {
		if !cols.has(required) {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}
	if !cols.has("phone_normalized", "phone") {
		return nil, errors.New("missing phone_normalized column")
	}

	questions, err := im.store.ListAllQuestions(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byCode[q.Code] = q
	}

	rep := &Report{Kind: KindResponses, Rows: len(t.Rows)}
	respondents := map[string]string{}
	touched := map[progressKey]bool{}

	for i, row := range t.Rows {
		key := im.policy.Normalize(cols.get(row, "phone_normalized", "phone"))
		code := cols.get(row, "question_code")
		if key == "" || code == "" {
			rep.skip(i, "phone_normalized and question_code are required")
			continue
		}

		q, ok := byCode[code]
		if !ok {
			rep.skip(i, "unknown question %q", code)
			continue
		}

		respondentID, ok := respondents[key]
		if !ok {
			r, err := im.store.FindRespondentByPhone(ctx, key)
			if errors.Is(err, store.ErrNotFound) {
				rep.skip(i, "no respondent with phone %s", key)
				continue
			}
			if err != nil {
				return rep, err
			}
			respondentID = r.ID
			respondents[key] = respondentID
		}

		value, err := models.ParseAnswerValue(cols.get(row, "answer"))
		if err != nil {
			rep.skip(i, "answer for %s is empty", code)
			continue
		}
		if value, err = survey.CheckAnswer(q, value); err != nil {
			rep.skip(i, "%v", err)
			continue
		}

		err = im.store.ImportAnswer(ctx, models.Answer{
			RespondentID: respondentID,
			QuestionID:   q.ID,
			QuestionCode: q.Code,
			PhaseID:      q.PhaseID,
			Value:        value,
			AnsweredAt:   parseTime(cols.get(row, "answered_at")),
		})
		if err != nil {
			return rep, err
		}
		touched[progressKey{respondentID, q.PhaseID}] = true
		rep.Imported++
	}

	// Exported answers come from finished phases
	for k := range touched {
		err := im.store.UpsertProgress(ctx, models.PhaseProgress{
			RespondentID:      k.respondent,
			PhaseID:           k.phase,
			Status:            models.ProgressCompleted,
			CompletionPercent: 100,
		})
		if err != nil {
			return rep, err
		}
	}

	slog.Info("responses imported", "rows", rep.Rows, "imported", rep.Imported, "phases_completed", len(touched))
	return rep, nil
}

// parseTime accepts RFC 3339 and plain dates; anything else is zero
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
