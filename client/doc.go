// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is a Go client for the respondent API.

Start stores the session token and sends it on every later call. Client
satisfies autosave.Saver, so a front end can hand it straight to a
Coordinator:

	c := client.New("http://localhost:3318")
	start, err := c.Start(ctx, "Ani Wijaya", "0812-3456-7890")
	view, err := c.OpenPhase(ctx, start.PhaseCode)
	if to, ok := client.RedirectFor(err); ok {
		// open to.PhaseCode at to.Step instead
	}

Server errors come back as *APIError. 429 and 503 answers are retried with
exponential backoff; everything else is returned as is.
*/
package client
