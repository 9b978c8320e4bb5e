// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"cmp"
	"slices"

	"github.com/danielhkuo/panelsurvey/models"
)

// ProgressByPhase indexes progress rows by phase ID
func ProgressByPhase(rows []models.PhaseProgress) map[string]models.PhaseProgress {
	m := make(map[string]models.PhaseProgress, len(rows))
	for _, p := range rows {
		m[p.PhaseID] = p
	}
	return m
}

// sortedPhases returns a copy ordered by sort order, ties broken by code
func sortedPhases(phases []models.Phase) []models.Phase {
	sorted := slices.Clone(phases)
	slices.SortStableFunc(sorted, func(a, b models.Phase) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return sorted
}

// DonePoint is the terminal resume point
func DonePoint() models.ResumePoint {
	return models.ResumePoint{PhaseCode: models.PhaseDone, Done: true}
}

// Resolve computes where a respondent should land. The first phase (by sort
// order) without a completed progress row wins; an in_progress row resumes at
// its last recorded step. Unknown statuses count as not completed. If every
// phase is completed the result is Done.
func Resolve(phases []models.Phase, progress map[string]models.PhaseProgress) models.ResumePoint {
	for _, ph := range sortedPhases(phases) {
		p := progress[ph.ID]
		switch p.Status {
		case models.ProgressCompleted:
			continue
		case models.ProgressInProgress:
			return models.ResumePoint{PhaseCode: ph.Code, Step: max(p.LastStep, 0)}
		default:
			return models.ResumePoint{PhaseCode: ph.Code}
		}
	}
	return DonePoint()
}

// Decision is the outcome of Guard
type Decision struct {
	Allowed  bool
	Phase    models.Phase
	Redirect models.ResumePoint
}

// Guard decides whether a respondent may enter the requested phase. Any
// earlier phase that is not completed redirects there; a phase that is
// already completed redirects to the resume point.
func Guard(phases []models.Phase, progress map[string]models.PhaseProgress, requested string) (Decision, error) {
	sorted := sortedPhases(phases)

	idx := slices.IndexFunc(sorted, func(ph models.Phase) bool { return ph.Code == requested })
	if idx < 0 {
		return Decision{}, ErrPhaseNotFound
	}
	target := sorted[idx]

	for _, ph := range sorted[:idx] {
		if progress[ph.ID].Status != models.ProgressCompleted {
			return Decision{Phase: target, Redirect: Resolve(sorted[:idx], progress)}, nil
		}
	}

	if progress[target.ID].Status == models.ProgressCompleted {
		return Decision{Phase: target, Redirect: Resolve(sorted, progress)}, nil
	}

	return Decision{Allowed: true, Phase: target}, nil
}
