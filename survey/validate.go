// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"fmt"

	"github.com/danielhkuo/panelsurvey/models"
)

// ValidateStep checks the visible questions of one step. Required questions
// must be answered; visible multi-selects with an answer (or required ones)
// must respect their selection bounds.
func ValidateStep(step []models.Question, answers Answers, vis Visibility) *ValidationError {
	for _, q := range step {
		if !vis.Visible(q, answers) {
			continue
		}

		val, answered := answers[q.Code]
		empty := !answered || val.IsEmpty()

		if q.Required && empty {
			return &ValidationError{
				QuestionCode: q.Code,
				Prompt:       q.Prompt,
				Message:      fmt.Sprintf("Please answer: %q", q.Prompt),
			}
		}

		if q.Type == models.QuestionMultiSelect && !empty {
			n := 0
			if val.Kind == models.KindList {
				n = len(val.List)
			}
			if q.SelectionMin > 0 && n < q.SelectionMin {
				return &ValidationError{
					QuestionCode: q.Code,
					Prompt:       q.Prompt,
					Message:      fmt.Sprintf("Please select at least %d option(s) for: %q", q.SelectionMin, q.Prompt),
				}
			}
			if q.SelectionMax > 0 && n > q.SelectionMax {
				return &ValidationError{
					QuestionCode: q.Code,
					Prompt:       q.Prompt,
					Message:      fmt.Sprintf("Please select at most %d option(s) for: %q", q.SelectionMax, q.Prompt),
				}
			}
		}
	}
	return nil
}

// ValidatePhase runs ValidateStep over every step of a phase and returns the
// first failure.
func ValidatePhase(questions []models.Question, stepSize int, answers Answers) *ValidationError {
	vis := NewVisibility(questions)
	for _, step := range Partition(questions, stepSize) {
		if err := ValidateStep(step, answers, vis); err != nil {
			return err
		}
	}
	return nil
}

// CompletionPercent is the share of visible questions that hold an answer.
// Completion itself is the only way to reach 100.
func CompletionPercent(questions []models.Question, answers Answers) int {
	vis := NewVisibility(questions)
	visible, answered := 0, 0
	for _, q := range questions {
		if !vis.Visible(q, answers) {
			continue
		}
		visible++
		if v, ok := answers[q.Code]; ok && !v.IsEmpty() {
			answered++
		}
	}
	if visible == 0 {
		return 0
	}
	return min(answered*100/visible, 99)
}
