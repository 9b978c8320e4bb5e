// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/panelsurvey/models"
)

const (
	LikertMin         = 1
	LikertMax         = 7
	MaxShortTextRunes = 500
	MaxLongTextRunes  = 5000
)

// CoerceAnswer decodes raw JSON and checks it against the question's type
func CoerceAnswer(q models.Question, raw json.RawMessage) (models.AnswerValue, error) {
	var v models.AnswerValue
	if err := json.Unmarshal(raw, &v); err != nil {
		reason := "malformed value"
		if errors.Is(err, models.ErrNullAnswer) {
			reason = "value cannot be null"
		}
		return models.AnswerValue{}, &InvalidAnswerError{QuestionCode: q.Code, Reason: reason}
	}
	return CheckAnswer(q, v)
}

// CheckAnswer validates an already decoded value, normalizing where the
// intent is unambiguous (a likert score sent as "5", a single choice sent
// as a one-element list).
func CheckAnswer(q models.Question, v models.AnswerValue) (models.AnswerValue, error) {
	invalid := func(reason string) (models.AnswerValue, error) {
		return models.AnswerValue{}, &InvalidAnswerError{QuestionCode: q.Code, Reason: reason}
	}

	switch q.Type {
	case models.QuestionSingleChoice:
		if v.Kind == models.KindList && len(v.List) == 1 {
			v = models.TextValue(v.List[0])
		}
		if v.Kind == models.KindNumber {
			v = models.TextValue(v.String())
		}
		if v.Kind != models.KindText {
			return invalid("expected a single option")
		}
		if v.Text != "" && len(q.Options) > 0 && !slices.Contains(q.Options, v.Text) {
			return invalid("unknown option " + strconv.Quote(v.Text))
		}
		return v, nil

	case models.QuestionMultiSelect:
		if v.Kind == models.KindText {
			if v.Text == "" {
				return models.ListValue(), nil
			}
			v = models.ListValue(v.Text)
		}
		if v.Kind != models.KindList {
			return invalid("expected a list of options")
		}
		seen := make(map[string]bool, len(v.List))
		out := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if len(q.Options) > 0 && !slices.Contains(q.Options, item) {
				return invalid("unknown option " + strconv.Quote(item))
			}
			if !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
		return models.ListValue(out...), nil

	case models.QuestionLikert:
		n := v.Number
		switch v.Kind {
		case models.KindNumber:
		case models.KindText:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
			if err != nil {
				return invalid("expected a score")
			}
			n = parsed
		default:
			return invalid("expected a score")
		}
		if n != math.Trunc(n) || n < LikertMin || n > LikertMax {
			return invalid("score must be a whole number from 1 to 7")
		}
		return models.NumberValue(n), nil

	case models.QuestionShortText, models.QuestionLongText:
		if v.Kind == models.KindNumber {
			v = models.TextValue(v.String())
		}
		if v.Kind != models.KindText {
			return invalid("expected text")
		}
		limit := MaxShortTextRunes
		if q.Type == models.QuestionLongText {
			limit = MaxLongTextRunes
		}
		if utf8.RuneCountInString(v.Text) > limit {
			return invalid("text is too long (max " + strconv.Itoa(limit) + " characters)")
		}
		return v, nil
	}

	return invalid("unsupported question type " + string(q.Type))
}
