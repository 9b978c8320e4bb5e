// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/panelsurvey/models"
)

func TestIsVisible(t *testing.T) {
	rule := &models.ShowIf{QuestionCode: "affiliation_type", AnswerIn: []string{"Academia"}}

	tests := []struct {
		name    string
		rule    *models.ShowIf
		answers Answers
		want    bool
	}{
		{"no rule", nil, Answers{}, true},
		{"parent unanswered", rule, Answers{}, false},
		{"parent other value", rule, Answers{"affiliation_type": models.TextValue("Industry")}, false},
		{"parent matches", rule, Answers{"affiliation_type": models.TextValue("Academia")}, true},
		{"multi-select parent contains value", rule, Answers{"affiliation_type": models.ListValue("Industry", "Academia")}, true},
		{"multi-select parent without value", rule, Answers{"affiliation_type": models.ListValue("Industry")}, false},
		{"empty list parent", rule, Answers{"affiliation_type": models.ListValue()}, false},
		{"numeric parent", &models.ShowIf{QuestionCode: "score", AnswerIn: []string{"7"}}, Answers{"score": models.NumberValue(7)}, true},
		{
			"rule allowing empty matches unanswered",
			&models.ShowIf{QuestionCode: "affiliation_type", AnswerIn: []string{""}},
			Answers{},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.rule, tt.answers))
		})
	}
}

func TestVisibility_FollowUp(t *testing.T) {
	questions := []models.Question{
		{Code: "affiliation", Type: models.QuestionSingleChoice, FollowUp: &models.FollowUp{Option: "Other", QuestionCode: "affiliation_other"}},
		{Code: "affiliation_other", Type: models.QuestionShortText},
		{Code: "tools", Type: models.QuestionMultiSelect, FollowUp: &models.FollowUp{Option: "Other", QuestionCode: "tools_other"}},
		{Code: "tools_other", Type: models.QuestionShortText},
		{Code: "free", Type: models.QuestionLongText},
	}
	vis := NewVisibility(questions)

	assert.Equal(t, []string{"affiliation", "tools", "free"}, vis.VisibleCodes(questions, Answers{}))

	answers := Answers{
		"affiliation": models.TextValue("Other"),
		"tools":       models.ListValue("Excel"),
	}
	assert.Equal(t, []string{"affiliation", "affiliation_other", "tools", "free"}, vis.VisibleCodes(questions, answers))

	answers["tools"] = models.ListValue("Excel", "Other")
	assert.True(t, vis.Visible(questions[3], answers))
}
