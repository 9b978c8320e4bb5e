// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics holds the Prometheus collectors for panelsurvey.

Collectors are registered on the default registry at init and exposed by the
router at GET /metrics. Callers use the Record* helpers rather than touching
collectors directly:

	metrics.RecordPhaseCompletion("P1")
	metrics.RecordRequest(r.Method, r.Pattern, status, time.Since(start))
*/
package metrics
