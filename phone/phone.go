// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package phone

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy describes the canonical form of a phone key. MinDigits and MaxDigits
// bound the total length including the country code.
type Policy struct {
	CountryCode string
	MinDigits   int
	MaxDigits   int
}

// DefaultPolicy is the Indonesian numbering policy (62 + subscriber number)
func DefaultPolicy() Policy {
	return Policy{CountryCode: "62", MinDigits: 10, MaxDigits: 15}
}

// Result is the outcome of Validate. Normalized is always populated with the
// best-effort normalization, even when Valid is false.
type Result struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized"`
	Reason     string `json:"reason,omitempty"`
}

// bareSubscriberMin is the shortest input treated as a subscriber number
// that is missing its country code
const bareSubscriberMin = 9

// dropRune reports separators removed anywhere in the input
func dropRune(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("-().", r)
}

// Normalize canonicalizes raw input into a digit string key.
// Normalize(Normalize(x)) == Normalize(x).
func (p Policy) Normalize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, raw)

	cleaned = strings.TrimLeft(cleaned, "+")

	// Trunk prefix 0 -> country code
	if strings.HasPrefix(cleaned, "0") {
		cleaned = p.CountryCode + cleaned[1:]
	}

	if !strings.HasPrefix(cleaned, p.CountryCode) && len(cleaned) >= bareSubscriberMin {
		cleaned = p.CountryCode + cleaned
	}

	return cleaned
}

// IsValidKey checks an already normalized key
func (p Policy) IsValidKey(key string) bool {
	if key == "" || !isDigits(key) {
		return false
	}
	if !strings.HasPrefix(key, p.CountryCode) {
		return false
	}
	return len(key) >= p.MinDigits && len(key) <= p.MaxDigits
}

// Validate normalizes raw and reports whether the result is an acceptable key
func (p Policy) Validate(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Valid: false, Reason: "Phone number is required."}
	}

	normalized := p.Normalize(raw)
	if !p.IsValidKey(normalized) {
		return Result{
			Valid:      false,
			Normalized: normalized,
			Reason: fmt.Sprintf("Please enter a valid phone number with country code %s (%d-%d digits, e.g. 0812 3456 7890).",
				p.CountryCode, p.MinDigits, p.MaxDigits),
		}
	}

	return Result{Valid: true, Normalized: normalized}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
