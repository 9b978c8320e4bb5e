// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists respondents, sessions, progress and answers.

Store is what the survey workflow needs; AdminStore adds the dashboard, data
management, import/export and questionnaire seeding queries. SQLStore
implements both over database/sql and runs unchanged on PostgreSQL and
SQLite:

	st := store.NewSQLStore(conn)
	err := st.InTx(ctx, func(tx store.Store) error {
		// every call on tx shares one transaction
		return tx.FinalizeAnswers(ctx, respondentID, phaseID)
	})

# Errors

Lookups that find nothing return ErrNotFound. Driver failures are wrapped
with ErrUnavailable so callers can report them as retryable:

	if errors.Is(err, store.ErrUnavailable) {
		// 503, please try again
	}

# Timestamps

All timestamps are written by the store in UTC. The schema declares no
database-side defaults so both drivers behave the same.
*/
package store
