// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
)

// RecentLimit is how many respondents the overview lists
const RecentLimit = 10

// ErrSummaryDisabled is returned when no language model is configured
var ErrSummaryDisabled = errors.New("AI summary is not configured")

// Dashboard computes admin analytics from the admin store. Concurrent
// requests for the same view share one computation.
type Dashboard struct {
	store      store.AdminStore
	summarizer *Summarizer
	group      singleflight.Group
}

// NewDashboard creates a dashboard. summarizer may be nil, which disables
// AI summaries.
func NewDashboard(st store.AdminStore, summarizer *Summarizer) *Dashboard {
	return &Dashboard{store: st, summarizer: summarizer}
}

// Overview gathers totals, funnel, phase stats, segments and recent
// respondents.
func (d *Dashboard) Overview(ctx context.Context) (*models.Overview, error) {
	v, err, shared := d.group.Do("overview", func() (any, error) {
		return d.overview(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("overview computation shared")
	}
	return v.(*models.Overview), nil
}

func (d *Dashboard) overview(ctx context.Context) (*models.Overview, error) {
	var (
		total    int
		phases   []models.Phase
		progress []models.PhaseProgress
		records  []models.ResponseRecord
		recent   []models.RespondentSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = d.store.CountRespondents(gctx)
		return err
	})
	g.Go(func() (err error) {
		phases, err = d.activePhases(gctx)
		return err
	})
	g.Go(func() (err error) {
		progress, err = d.store.ListAllProgress(gctx)
		return err
	})
	g.Go(func() (err error) {
		records, err = d.store.ListResponses(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		recent, _, err = d.store.ListRespondents(gctx, models.RespondentFilter{Page: 1, PageSize: RecentLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}

	return &models.Overview{
		TotalRespondents:     total,
		Funnel:               Funnel(total, phases, progress),
		PhaseStats:           PhaseStats(total, phases, progress),
		AffiliationBreakdown: Breakdown(RespondentAttributes(records)),
		RecentRespondents:    recent,
	}, nil
}

// Funnel returns only the response funnel
func (d *Dashboard) Funnel(ctx context.Context) (models.Funnel, error) {
	v, err, _ := d.group.Do("funnel", func() (any, error) {
		total, err := d.store.CountRespondents(ctx)
		if err != nil {
			return nil, err
		}
		phases, err := d.activePhases(ctx)
		if err != nil {
			return nil, err
		}
		progress, err := d.store.ListAllProgress(ctx)
		if err != nil {
			return nil, err
		}
		return Funnel(total, phases, progress), nil
	})
	if err != nil {
		return models.Funnel{}, fmt.Errorf("failed to load funnel: %w", err)
	}
	return v.(models.Funnel), nil
}

// Questions returns per-question analytics for one phase, optionally
// restricted to a segment. An unknown phase returns store.ErrNotFound.
func (d *Dashboard) Questions(ctx context.Context, phaseCode string, f Filter) ([]models.OptionCount, []models.LikertSummary, error) {
	phases, err := d.store.ListAllPhases(ctx)
	if err != nil {
		return nil, nil, err
	}
	found := false
	for _, p := range phases {
		if p.Code == phaseCode {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("phase %q: %w", phaseCode, store.ErrNotFound)
	}

	// Segments come from every phase, the counts from this one
	all, err := d.store.ListResponses(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	attrs := RespondentAttributes(all)

	inPhase := make([]models.ResponseRecord, 0, len(all))
	for _, r := range all {
		if r.PhaseCode == phaseCode {
			inPhase = append(inPhase, r)
		}
	}

	counts, likert := QuestionStats(inPhase, attrs, f)
	return counts, likert, nil
}

// LatestSummary returns the most recent stored AI summary, or "" if none
func (d *Dashboard) LatestSummary(ctx context.Context) (string, error) {
	s, err := d.store.LatestInsight(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return s, err
}

// GenerateSummary asks the language model to summarize every answer of
// non-deleted respondents and stores the result.
func (d *Dashboard) GenerateSummary(ctx context.Context) (string, error) {
	if d.summarizer == nil {
		return "", ErrSummaryDisabled
	}

	records, err := d.store.ListResponses(ctx, "")
	if err != nil {
		return "", err
	}

	summary, err := d.summarizer.Summarize(ctx, BuildDigest(records))
	if err != nil {
		return "", err
	}

	if err := d.store.SaveInsight(ctx, summary); err != nil {
		return "", err
	}
	return summary, nil
}

func (d *Dashboard) activePhases(ctx context.Context) ([]models.Phase, error) {
	all, err := d.store.ListAllPhases(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0:0]
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}
