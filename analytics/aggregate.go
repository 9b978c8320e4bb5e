// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/danielhkuo/panelsurvey/models"
)

// Question codes whose answers segment the dashboard
const (
	AffiliationCode = "affiliation"
	CountryCode     = "country_base"
)

// Unknown labels respondents who have not answered a segmenting question
const Unknown = "Unknown"

// Funnel counts how far respondents got. total is the number of active
// respondents; progress must only cover active respondents.
func Funnel(total int, phases []models.Phase, progress []models.PhaseProgress) models.Funnel {
	f := models.Funnel{
		Registered:    total,
		PhaseReached:  make(map[string]int, len(phases)),
		PhaseFinished: make(map[string]int, len(phases)),
	}

	codeByID := make(map[string]string, len(phases))
	for _, p := range phases {
		codeByID[p.ID] = p.Code
		f.PhaseReached[p.Code] = 0
		f.PhaseFinished[p.Code] = 0
	}

	started := map[string]bool{}
	finished := map[string]int{}
	for _, pp := range progress {
		code, ok := codeByID[pp.PhaseID]
		if !ok {
			continue
		}
		f.PhaseReached[code]++
		switch pp.Status {
		case models.ProgressCompleted:
			f.PhaseFinished[code]++
			finished[pp.RespondentID]++
			started[pp.RespondentID] = true
		case models.ProgressInProgress:
			started[pp.RespondentID] = true
		}
	}

	f.Started = len(started)
	if len(phases) > 0 {
		for _, n := range finished {
			if n >= len(phases) {
				f.CompletedAll++
			}
		}
	}
	return f
}

// PhaseStats summarizes progress per phase. Respondents without a progress
// row for a phase count as not started.
func PhaseStats(total int, phases []models.Phase, progress []models.PhaseProgress) []models.PhaseStat {
	index := make(map[string]int, len(phases))
	stats := make([]models.PhaseStat, len(phases))
	for i, p := range phases {
		index[p.ID] = i
		stats[i] = models.PhaseStat{PhaseCode: p.Code, PhaseName: p.Name, SortOrder: p.SortOrder}
	}

	for _, pp := range progress {
		i, ok := index[pp.PhaseID]
		if !ok {
			continue
		}
		switch pp.Status {
		case models.ProgressCompleted:
			stats[i].Completed++
		case models.ProgressInProgress:
			stats[i].InProgress++
		}
	}

	for i := range stats {
		stats[i].NotStarted = max(total-stats[i].InProgress-stats[i].Completed, 0)
		if total > 0 {
			stats[i].CompletionRate = round2(float64(stats[i].Completed) * 100 / float64(total))
		}
	}
	return stats
}

// Attributes are the segmenting answers of one respondent
type Attributes struct {
	Affiliation string
	Country     string
}

// RespondentAttributes extracts affiliation and country per respondent
func RespondentAttributes(records []models.ResponseRecord) map[string]Attributes {
	out := map[string]Attributes{}
	for _, r := range records {
		if r.QuestionCode != AffiliationCode && r.QuestionCode != CountryCode {
			continue
		}
		a, ok := out[r.RespondentID]
		if !ok {
			a = Attributes{Affiliation: Unknown, Country: Unknown}
		}
		if r.QuestionCode == AffiliationCode {
			a.Affiliation = r.Value.String()
		} else {
			a.Country = r.Value.String()
		}
		out[r.RespondentID] = a
	}
	return out
}

// Breakdown counts respondents per (affiliation, country), largest first
func Breakdown(attrs map[string]Attributes) []models.BreakdownRow {
	counts := map[Attributes]int{}
	for _, a := range attrs {
		counts[a]++
	}

	rows := make([]models.BreakdownRow, 0, len(counts))
	for a, n := range counts {
		rows = append(rows, models.BreakdownRow{Affiliation: a.Affiliation, Country: a.Country, Count: n})
	}
	slices.SortFunc(rows, func(x, y models.BreakdownRow) int {
		return cmp.Or(
			cmp.Compare(y.Count, x.Count),
			cmp.Compare(x.Affiliation, y.Affiliation),
			cmp.Compare(x.Country, y.Country),
		)
	})
	return rows
}

// Filter restricts question analytics to one segment. Empty fields match
// everyone.
type Filter struct {
	Affiliation string
	Country     string
}

func (f Filter) match(a Attributes) bool {
	if f.Affiliation != "" && a.Affiliation != f.Affiliation {
		return false
	}
	if f.Country != "" && a.Country != f.Country {
		return false
	}
	return true
}

type likertAcc struct {
	prompt   string
	sum      float64
	count    int
	min, max float64
}

// QuestionStats aggregates option counts for choice questions and score
// summaries for likert questions. Option counts are ordered by question code
// then by count, descending.
func QuestionStats(records []models.ResponseRecord, attrs map[string]Attributes, f Filter) ([]models.OptionCount, []models.LikertSummary) {
	type optKey struct{ code, option string }
	options := map[optKey]int{}
	meta := map[string]models.ResponseRecord{}
	likert := map[string]*likertAcc{}

	for _, r := range records {
		a, ok := attrs[r.RespondentID]
		if !ok {
			a = Attributes{Affiliation: Unknown, Country: Unknown}
		}
		if !f.match(a) {
			continue
		}

		switch r.QuestionType {
		case models.QuestionSingleChoice, models.QuestionMultiSelect:
			meta[r.QuestionCode] = r
			for _, opt := range r.Value.Strings() {
				if opt != "" {
					options[optKey{r.QuestionCode, opt}]++
				}
			}
		case models.QuestionLikert:
			if r.Value.Kind != models.KindNumber {
				continue
			}
			n := r.Value.Number
			acc, ok := likert[r.QuestionCode]
			if !ok {
				acc = &likertAcc{prompt: r.QuestionPrompt, min: n, max: n}
				likert[r.QuestionCode] = acc
			}
			acc.sum += n
			acc.count++
			acc.min = math.Min(acc.min, n)
			acc.max = math.Max(acc.max, n)
		}
	}

	counts := make([]models.OptionCount, 0, len(options))
	for k, n := range options {
		m := meta[k.code]
		counts = append(counts, models.OptionCount{
			QuestionCode:   k.code,
			Prompt:         m.QuestionPrompt,
			QuestionType:   m.QuestionType,
			Option:         k.option,
			SelectionCount: n,
		})
	}
	slices.SortFunc(counts, func(x, y models.OptionCount) int {
		return cmp.Or(
			cmp.Compare(x.QuestionCode, y.QuestionCode),
			cmp.Compare(y.SelectionCount, x.SelectionCount),
			cmp.Compare(x.Option, y.Option),
		)
	})

	summaries := make([]models.LikertSummary, 0, len(likert))
	for code, acc := range likert {
		summaries = append(summaries, models.LikertSummary{
			QuestionCode:  code,
			Prompt:        acc.prompt,
			AvgScore:      round2(acc.sum / float64(acc.count)),
			ResponseCount: acc.count,
			MinScore:      acc.min,
			MaxScore:      acc.max,
		})
	}
	slices.SortFunc(summaries, func(x, y models.LikertSummary) int {
		return cmp.Compare(x.QuestionCode, y.QuestionCode)
	})

	return counts, summaries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
