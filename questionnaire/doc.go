// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package questionnaire loads phases and questions from YAML and seeds them
into the store.

	f, err := questionnaire.LoadFile(cfg.QuestionnaireFile)
	res, err := questionnaire.Seed(ctx, st, f)

Load rejects unknown keys, invalid question types, dangling show_if and
follow_up references and inconsistent selection bounds. Seeding upserts by
code, so running it on every start is safe.
*/
package questionnaire
