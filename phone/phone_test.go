// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"local trunk prefix", "0812 3456 7890", "6281234567890"},
		{"plus country code", "+62 812-3456-7890", "6281234567890"},
		{"bare country code", "6281234567890", "6281234567890"},
		{"parentheses and dots", "(0812).3456.7890", "6281234567890"},
		{"bare subscriber number", "81234567890", "6281234567890"},
		{"short input left alone", "12345", "12345"},
		{"surrounding whitespace", "  0812 3456 7890  ", "6281234567890"},
		{"repeated plus", "++62 812 3456 7890", "6281234567890"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := DefaultPolicy()

	inputs := []string{
		"0812 3456 7890",
		"+62 812-3456-7890",
		"81234567890",
		"12345",
		"++123",
		"+0123",
		"00812345678",
		"abc-def",
		"0",
		"+",
		"62",
		"  +  0 8 1 2 ",
		"0812\n3456",
		"+\n12",
		"+\n0",
		"+\u00a012",
		"\u00a00812 3456 7890\r\n",
	}

	for _, raw := range inputs {
		once := p.Normalize(raw)
		assert.Equal(t, once, p.Normalize(once), "input %q", raw)
	}
}

func TestValidate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name       string
		raw        string
		valid      bool
		normalized string
	}{
		{"valid local", "0812 3456 7890", true, "6281234567890"},
		{"valid international", "+6281234567", true, "6281234567"},
		{"empty", "   ", false, ""},
		{"too short", "0812", false, "62812"},
		{"too long", "0812345678901234", false, "62812345678901234"},
		{"letters", "0812-CALL-ME", false, "62812CALLME"},
		{"country code only", "+62 12", false, "6212"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Validate(tt.raw)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.normalized, res.Normalized)
			if tt.valid {
				assert.Empty(t, res.Reason)
			} else {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestCustomPolicyBounds(t *testing.T) {
	p := Policy{CountryCode: "44", MinDigits: 8, MaxDigits: 16}

	res := p.Validate("07700 900123")
	assert.True(t, res.Valid)
	assert.Equal(t, "447700900123", res.Normalized)
}
