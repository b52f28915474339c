package model

import (
	"math"
	"strconv"
	"strings"
)

// ParseCents converts decimal string amounts (dollars) to cents (int64).
// Use for APIs that return amounts in major currency units (e.g., "99.00" = $99.00).
// WooCommerce REST API v3 returns prices in this format.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f * 100))
}

// ParseMinorUnits converts string amounts already in minor units to int64.
// Use for APIs that return amounts in minor currency units (e.g., "8900" = 8900 cents = $89.00).
// WooCommerce Store API uses this format for all price fields.
// Examples: "8900" → 8900, "123456" → 123456, "" → 0
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to handle potential decimal values, then truncate
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// FormatMinorUnits renders a minor-unit amount as a two-decimal major-unit string.
// The partner system sends every amount in minor units; WooCommerce order fields expect decimals.
// Examples: 9900 → "99.00", 5 → "0.05", -150 → "-1.50"
func FormatMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	major := strconv.FormatInt(amount/100, 10)
	minor := strconv.FormatInt(amount%100, 10)
	if len(minor) < 2 {
		minor = strings.Repeat("0", 2-len(minor)) + minor
	}
	return sign + major + "." + minor
}
