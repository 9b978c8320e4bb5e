// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"slices"

	"github.com/danielhkuo/panelsurvey/models"
)

// Answers maps question_code -> current value
type Answers map[string]models.AnswerValue

// answerSet coerces a parent answer into a set of strings. A missing answer
// is the set {""}, so unanswered parents hide dependents unless a rule lists
// the empty string explicitly.
func answerSet(answers Answers, code string) []string {
	v, ok := answers[code]
	if !ok || v.Kind == 0 {
		return []string{""}
	}
	return v.Strings()
}

// IsVisible evaluates a show_if rule against the current answers
func IsVisible(rule *models.ShowIf, answers Answers) bool {
	if rule == nil {
		return true
	}
	have := answerSet(answers, rule.QuestionCode)
	for _, want := range rule.AnswerIn {
		if slices.Contains(have, want) {
			return true
		}
	}
	return false
}

type followUpTrigger struct {
	parentCode string
	option     string
}

// Visibility evaluates show_if rules plus declared follow-up questions for one
// phase's question list.
type Visibility struct {
	triggers map[string][]followUpTrigger
}

func NewVisibility(questions []models.Question) Visibility {
	v := Visibility{triggers: make(map[string][]followUpTrigger)}
	for _, q := range questions {
		if q.FollowUp == nil || q.FollowUp.QuestionCode == "" {
			continue
		}
		v.triggers[q.FollowUp.QuestionCode] = append(v.triggers[q.FollowUp.QuestionCode], followUpTrigger{
			parentCode: q.Code,
			option:     q.FollowUp.Option,
		})
	}
	return v
}

// Visible reports whether q is live given answers
func (v Visibility) Visible(q models.Question, answers Answers) bool {
	if !IsVisible(q.ShowIf, answers) {
		return false
	}
	triggers, ok := v.triggers[q.Code]
	if !ok {
		return true
	}
	// Any one triggering parent is enough
	for _, t := range triggers {
		if slices.Contains(answerSet(answers, t.parentCode), t.option) {
			return true
		}
	}
	return false
}

// VisibleCodes lists the codes of the visible questions, in order
func (v Visibility) VisibleCodes(questions []models.Question, answers Answers) []string {
	codes := make([]string, 0, len(questions))
	for _, q := range questions {
		if v.Visible(q, answers) {
			codes = append(codes, q.Code)
		}
	}
	return codes
}
