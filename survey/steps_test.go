// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/panelsurvey/models"
)

func numberedQuestions(n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{Code: fmt.Sprintf("q%d", i+1), SortOrder: i + 1}
	}
	return qs
}

func stepCodes(step []models.Question) []string {
	out := make([]string, len(step))
	for i, q := range step {
		out[i] = q.Code
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"empty", 0, 3, []int{}},
		{"exact multiple", 6, 3, []int{3, 3}},
		{"short last step", 7, 3, []int{3, 3, 1}},
		{"fewer than one step", 2, 3, []int{2}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"invalid size falls back to default", 4, 0, []int{3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := numberedQuestions(tt.n)
			steps := Partition(qs, tt.size)

			got := make([]int, len(steps))
			var flat []string
			for i, s := range steps {
				got[i] = len(s)
				flat = append(flat, stepCodes(s)...)
			}
			assert.Equal(t, tt.sizes, got)
			// Every question appears once, in order
			assert.Equal(t, stepCodes(qs), append([]string{}, flat...))
		})
	}
}

func TestPartition_StepsDoNotAlias(t *testing.T) {
	steps := Partition(numberedQuestions(6), 3)
	steps[0] = append(steps[0], models.Question{Code: "extra"})
	assert.Equal(t, "q4", steps[1][0].Code)
}

func TestClampStep(t *testing.T) {
	assert.Equal(t, 0, ClampStep(-1, 3))
	assert.Equal(t, 2, ClampStep(2, 3))
	assert.Equal(t, 2, ClampStep(9, 3))
	assert.Equal(t, 0, ClampStep(4, 0))
}
