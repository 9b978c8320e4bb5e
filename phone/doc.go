// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package phone turns free-text phone input into the canonical key used to
identify respondents.

# Normalization

	p := phone.DefaultPolicy()
	p.Normalize("+62 812-3456-7890") // "6281234567890"
	p.Normalize("0812 3456 7890")    // "6281234567890"

Steps, in order: strip whitespace, dashes, dots and parentheses; strip
leading '+'; rewrite a leading trunk '0' to the country code; prepend the
country code to bare subscriber numbers of nine or more digits.

Normalize is idempotent, which matters because it is reapplied on every
registration.

# Validation

Validate never fails hard. It always returns the normalized form together
with a validity flag and a human readable reason:

	res := p.Validate(input)
	if !res.Valid {
		// show res.Reason
	}
*/
package phone
