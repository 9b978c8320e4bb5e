// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package autosave buffers a respondent's edits and persists them in the
background.

A Coordinator belongs to one phase of one session. Set keeps the edit in
memory and (re)starts a quiet-period timer; when it fires, every answered
question of the phase is sent through the Saver. Only one save runs at a
time; edits made during a save trigger another one after it. Failed saves
are logged and retried with the next edit or transition.

	c := autosave.New(apiClient, autosave.Config{
		PhaseCode: view.Phase.Code,
		Questions: view.Questions,
		StepSize:  3,
		Step:      view.CurrentStep,
		Answers:   saved,
	})
	c.Set("affiliation", models.TextValue("Academia"))
	err := c.Advance(ctx)       // validates the step, saves best effort
	res, err := c.Complete(ctx) // requires a successful save first
*/
package autosave
