// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import "github.com/danielhkuo/panelsurvey/models"

// DefaultStepSize is the number of questions shown per step
const DefaultStepSize = 3

// Partition splits an ordered question list into contiguous steps of at most
// size questions. The last step may be shorter. An empty list has no steps.
func Partition(questions []models.Question, size int) [][]models.Question {
	if size < 1 {
		size = DefaultStepSize
	}

	steps := make([][]models.Question, 0, (len(questions)+size-1)/size)
	for start := 0; start < len(questions); start += size {
		end := min(start+size, len(questions))
		steps = append(steps, questions[start:end:end])
	}
	return steps
}

// ClampStep keeps a stored step index inside [0, stepCount-1]
func ClampStep(step, stepCount int) int {
	if stepCount <= 0 || step < 0 {
		return 0
	}
	if step >= stepCount {
		return stepCount - 1
	}
	return step
}
