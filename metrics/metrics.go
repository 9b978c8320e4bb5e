// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "panelsurvey"

var (
	// registrations counts respondent sign-ins.
	// Labels: kind (new, returning)
	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "respondent",
		Name:      "registrations_total",
		Help:      "Respondent registrations by kind",
	}, []string{"kind"})

	// answersSaved counts answer rows written by autosave.
	// Labels: result (written, skipped)
	answersSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "answers_saved_total",
		Help:      "Answers received by autosave, by whether they were written",
	}, []string{"result"})

	// phaseCompletions counts completed phases.
	// Labels: phase
	phaseCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "phase_completions_total",
		Help:      "Phases completed by respondents",
	}, []string{"phase"})

	// phaseRedirects counts requests bounced by the phase lock.
	// Labels: phase (the phase that was requested)
	phaseRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "phase_redirects_total",
		Help:      "Requests for a locked phase that were redirected",
	}, []string{"phase"})

	// validationFailures counts rejected step or phase submissions.
	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "validation_failures_total",
		Help:      "Phase completions rejected by validation",
	})

	// autosaveAttempts counts client-side autosave cycles.
	// Labels: result (ok, error)
	autosaveAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "autosave",
		Name:      "attempts_total",
		Help:      "Autosave attempts by result",
	}, []string{"result"})

	// adminActions counts administrative operations.
	// Labels: action
	adminActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "admin",
		Name:      "actions_total",
		Help:      "Administrative operations by action",
	}, []string{"action"})

	// httpRequests counts handled requests.
	// Labels: method, route, status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// httpDuration measures request latency.
	// Labels: method, route
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})
)

func RecordRegistration(isNew bool) {
	kind := "returning"
	if isNew {
		kind = "new"
	}
	registrations.WithLabelValues(kind).Inc()
}

func RecordAnswersSaved(written, skipped int) {
	answersSaved.WithLabelValues("written").Add(float64(written))
	answersSaved.WithLabelValues("skipped").Add(float64(skipped))
}

func RecordPhaseCompletion(phase string) {
	phaseCompletions.WithLabelValues(phase).Inc()
}

func RecordPhaseRedirect(phase string) {
	phaseRedirects.WithLabelValues(phase).Inc()
}

func RecordValidationFailure() {
	validationFailures.Inc()
}

func RecordAutosave(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	autosaveAttempts.WithLabelValues(result).Inc()
}

func RecordAdminAction(action string) {
	adminActions.WithLabelValues(action).Inc()
}

// RecordRequest observes one HTTP request. route should be the mux pattern,
// not the raw path, to keep label cardinality bounded.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
