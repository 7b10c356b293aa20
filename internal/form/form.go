// Package form turns raw form values into typed values with a documented
// fallback instead of a validation error.
//
// The quote form is intentionally forgiving: a visitor who types "about 3000"
// into the electricity box still gets a quote (for 0 kWh) rather than an
// error page. Every coercion goes through one of these helpers so the policy
// is visible in one place:
//
//	field            parser  fallback  rejects
//	electricity_kwh  Float   0.0       unparsable, negative, NaN, ±Inf, > 1e7
//	gas_kwh          Float   0.0       unparsable, negative, NaN, ±Inf, > 1e7
//	occupants        Int     1         unparsable, < 1
//	home_size        Choice  medium    anything not small/medium/large
//	ev_charging      Bool    false     anything not in the truthy set
//	smart_home       Bool    false     anything not in the truthy set
package form

import (
	"math"
	"strconv"
	"strings"
)

// Float parses a number in [0, ceiling], or returns fallback. Negative zero
// comes back as plain zero.
func Float(raw string, ceiling, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > ceiling {
		return fallback
	}
	if v == 0 {
		return 0
	}
	return v
}

// Int parses an integer >= floor, or returns fallback.
func Int(raw string, floor, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < floor {
		return fallback
	}
	return v
}

// Bool treats yes/true/on/1 (any case) as true and everything else,
// including an absent checkbox, as false.
func Bool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "on", "1", "y":
		return true
	}
	return false
}

// Choice returns raw (lower-cased) if it is one of allowed, else fallback.
func Choice(raw string, fallback string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

// LooksLikeEmail is the deliberately loose email shape check used by both
// registration and quote submission: an "@" and a "." somewhere.
func LooksLikeEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// NormalizeEmail trims and lower-cases an email so it can be used as a username.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
