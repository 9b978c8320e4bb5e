// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package exchange

import (
	"strconv"
	"time"

	"github.com/danielhkuo/panelsurvey/models"
)

var respondentHeader = []string{"id", "full_name", "phone_normalized", "current_phase", "status", "created_at", "last_seen_at"}

var responseHeader = []string{
	"respondent_id", "full_name", "phone_normalized", "phase_code", "question_code",
	"question_prompt", "question_type", "answer", "is_finalized", "answered_at",
}

func RespondentsTable(list []models.RespondentSummary) Table {
	t := Table{Header: respondentHeader, Rows: make([][]string, 0, len(list))}
	for _, r := range list {
		t.Rows = append(t.Rows, []string{
			r.ID, r.FullName, r.PhoneNormalized, r.CurrentPhase, r.Status,
			stamp(r.CreatedAt), stamp(r.LastSeenAt),
		})
	}
	return t
}

// ResponsesTable writes answers JSON-encoded so that lists and numbers
// survive a round trip through Import.
func ResponsesTable(records []models.ResponseRecord) Table {
	t := Table{Header: responseHeader, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		answer, err := r.Value.MarshalJSON()
		if err != nil {
			answer = []byte(r.Value.String())
		}
		t.Rows = append(t.Rows, []string{
			r.RespondentID, r.FullName, r.PhoneNormalized, r.PhaseCode, r.QuestionCode,
			r.QuestionPrompt, string(r.QuestionType), string(answer),
			strconv.FormatBool(r.Finalized), stamp(r.AnsweredAt),
		})
	}
	return t
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
