// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/models"
)

func testPhases() []models.Phase {
	// Deliberately out of order to exercise sorting
	return []models.Phase{
		{ID: "id3", Code: "P3", SortOrder: 3, Active: true},
		{ID: "id1", Code: "P1", SortOrder: 1, Active: true},
		{ID: "id2", Code: "P2", SortOrder: 2, Active: true},
	}
}

func progress(entries ...models.PhaseProgress) map[string]models.PhaseProgress {
	return ProgressByPhase(entries)
}

func row(phaseID, status string, lastStep int) models.PhaseProgress {
	return models.PhaseProgress{PhaseID: phaseID, Status: status, LastStep: lastStep}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		phases   []models.Phase
		progress map[string]models.PhaseProgress
		want     models.ResumePoint
	}{
		{
			name:     "no progress rows starts at first phase",
			phases:   testPhases(),
			progress: progress(),
			want:     models.ResumePoint{PhaseCode: "P1"},
		},
		{
			name:   "all not started",
			phases: testPhases()[1:],
			progress: progress(
				row("id1", models.ProgressNotStarted, 0),
				row("id2", models.ProgressNotStarted, 0),
			),
			want: models.ResumePoint{PhaseCode: "P1"},
		},
		{
			name:   "in progress resumes at last step",
			phases: testPhases(),
			progress: progress(
				row("id1", models.ProgressCompleted, 2),
				row("id2", models.ProgressInProgress, 1),
				row("id3", models.ProgressNotStarted, 0),
			),
			want: models.ResumePoint{PhaseCode: "P2", Step: 1},
		},
		{
			name:   "not started ignores a stale step",
			phases: testPhases(),
			progress: progress(
				row("id1", models.ProgressCompleted, 2),
				row("id2", models.ProgressNotStarted, 4),
			),
			want: models.ResumePoint{PhaseCode: "P2"},
		},
		{
			name:   "unknown status blocks later phases",
			phases: testPhases(),
			progress: progress(
				row("id1", models.ProgressCompleted, 0),
				row("id2", "archived", 3),
				row("id3", models.ProgressCompleted, 0),
			),
			want: models.ResumePoint{PhaseCode: "P2"},
		},
		{
			name:   "missing row after completed phase",
			phases: testPhases(),
			progress: progress(
				row("id1", models.ProgressCompleted, 0),
				row("id2", models.ProgressCompleted, 0),
			),
			want: models.ResumePoint{PhaseCode: "P3"},
		},
		{
			name:   "all completed is done",
			phases: testPhases()[1:],
			progress: progress(
				row("id1", models.ProgressCompleted, 0),
				row("id2", models.ProgressCompleted, 0),
			),
			want: DonePoint(),
		},
		{
			name:     "no phases is done",
			phases:   nil,
			progress: progress(),
			want:     DonePoint(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.phases, tt.progress))
		})
	}
}

func TestGuard(t *testing.T) {
	t.Run("unknown phase", func(t *testing.T) {
		_, err := Guard(testPhases(), progress(), "P9")
		assert.ErrorIs(t, err, ErrPhaseNotFound)
	})

	t.Run("first phase is always open", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(), "P1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, "P1", d.Phase.Code)
	})

	t.Run("jumping ahead redirects to the phase in progress", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(
			row("id1", models.ProgressCompleted, 0),
			row("id2", models.ProgressInProgress, 1),
		), "P3")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ResumePoint{PhaseCode: "P2", Step: 1}, d.Redirect)
	})

	t.Run("earliest incomplete phase wins", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(), "P3")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, "P1", d.Redirect.PhaseCode)
	})

	t.Run("completed phase redirects to resume point", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(
			row("id1", models.ProgressCompleted, 0),
		), "P1")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, "P2", d.Redirect.PhaseCode)
	})

	t.Run("completed phase after everything is done", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(
			row("id1", models.ProgressCompleted, 0),
			row("id2", models.ProgressCompleted, 0),
			row("id3", models.ProgressCompleted, 0),
		), "P2")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.True(t, d.Redirect.Done)
	})

	t.Run("next phase opens after previous completes", func(t *testing.T) {
		d, err := Guard(testPhases(), progress(
			row("id1", models.ProgressCompleted, 0),
		), "P2")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}
