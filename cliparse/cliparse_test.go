// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("ADMIN_SESSION_SECRET", "test-secret")
}

func TestParseFlags_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ParseFlags([]string{})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, DefaultStepSize, cfg.StepSize)
	assert.Equal(t, DefaultAutosaveDebounce, cfg.AutosaveDebounce)
	assert.Equal(t, DefaultConfirmPhrase, cfg.ConfirmPhrase)
	assert.Equal(t, "62", cfg.Phone.CountryCode)
	assert.Equal(t, 10, cfg.Phone.MinDigits)
	assert.Equal(t, 15, cfg.Phone.MaxDigits)
	assert.Empty(t, cfg.OpenAIKey)
}

func TestParseFlags_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("STEP_SIZE", "5")
	t.Setenv("AUTOSAVE_DEBOUNCE", "500ms")
	t.Setenv("PHONE_COUNTRY_CODE", "44")
	t.Setenv("PHONE_MIN_DIGITS", "11")
	t.Setenv("PHONE_MAX_DIGITS", "13")
	t.Setenv("CONFIRM_PHRASE", "i agree")
	t.Setenv("REGISTER_RATE", "0.5")

	cfg, err := ParseFlags([]string{})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, 5, cfg.StepSize)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDebounce)
	assert.Equal(t, "44", cfg.Phone.CountryCode)
	assert.Equal(t, 11, cfg.Phone.MinDigits)
	assert.Equal(t, 13, cfg.Phone.MaxDigits)
	assert.Equal(t, "i agree", cfg.ConfirmPhrase)
	assert.Equal(t, 0.5, cfg.RegisterRate)
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STEP_SIZE", "5")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-session-secret", "s1", "-step-size", "2", "-debounce", "1s"})
	require.NoError(t, err)

	// CLI should override env
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2, cfg.StepSize)
	assert.Equal(t, time.Second, cfg.AutosaveDebounce)
	assert.Equal(t, "s1", cfg.AdminSessionSecret)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"ADMIN_SESSION_SECRET": "s"},
		},
		{
			name: "missing session secret",
			env:  map[string]string{"DATABASE_URL": "file:test.db"},
		},
		{
			name: "invalid port",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s", "PORT": "abc"},
		},
		{
			name: "unknown database type",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s", "DATABASE_TYPE": "mysql"},
		},
		{
			name: "bad debounce",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s", "AUTOSAVE_DEBOUNCE": "soon"},
		},
		{
			name: "inverted phone bounds",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s", "PHONE_MIN_DIGITS": "14", "PHONE_MAX_DIGITS": "10"},
		},
		{
			name: "zero step size",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s"},
			args: []string{"-step-size", "-1"},
		},
		{
			name: "unknown flag",
			env:  map[string]string{"DATABASE_URL": "x", "ADMIN_SESSION_SECRET": "s"},
			args: []string{"-nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("ADMIN_SESSION_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ParseFlags(tt.args)
			assert.Error(t, err)
		})
	}
}
