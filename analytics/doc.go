// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package analytics computes the admin dashboard.

The aggregation functions (Funnel, PhaseStats, Breakdown, QuestionStats,
BuildDigest) are pure and work on rows already loaded from the store. They
never see deleted respondents because the store filters them out.

Dashboard wires them to a store.AdminStore:

	d := analytics.NewDashboard(st, analytics.NewSummarizer(key, "gpt-4o-mini", ""))
	ov, err := d.Overview(ctx)
	counts, likert, err := d.Questions(ctx, "P2", analytics.Filter{Affiliation: "Academia"})
	summary, err := d.GenerateSummary(ctx)

Overview loads its inputs concurrently and concurrent callers share one
computation.

# Segments

Respondents are segmented by their answers to the "affiliation" and
"country_base" questions; a respondent who has not answered one is
"Unknown" for it.
*/
package analytics
