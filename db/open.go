// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database types accepted by Open
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

const openMaxElapsed = 30 * time.Second

func newOpenBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = openMaxElapsed
	return bo
}

// Open connects to the configured database and waits for it to answer a
// ping, retrying with exponential backoff while the server comes up.
func Open(ctx context.Context, dbType, url string) (*sql.DB, error) {
	driver, dsn, err := driverFor(dbType, url)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if driver == TypeSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		// and keeps in-memory databases shared.
		conn.SetMaxOpenConns(1)
	}

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := conn.PingContext(ctx); err != nil {
			slog.Warn("database ping failed", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(newOpenBackoff(), ctx))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

func driverFor(dbType, url string) (driver, dsn string, err error) {
	switch dbType {
	case TypePostgres:
		return TypePostgres, url, nil
	case TypeSQLite, "":
		return TypeSQLite, withSQLiteTimeFormat(url), nil
	}
	return "", "", fmt.Errorf("unsupported database type %q (use sqlite or postgres)", dbType)
}

// withSQLiteTimeFormat stores timestamps in a sortable layout instead of
// time.Time.String
func withSQLiteTimeFormat(url string) string {
	if strings.Contains(url, "_time_format=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_time_format=sqlite"
}
