package util

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney coerces a PAR cell to a non-negative decimal. Exports deliver
// either plain numbers or annotated strings like "USD 1,250,000" or
// "$1.5k"; everything but digits and a single decimal point is stripped.
// Unparseable or negative input resolves to zero, never an error.
func ParseMoney(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	s = strings.ReplaceAll(s, ",", "")
	var b strings.Builder
	dotSeen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dotSeen:
			dotSeen = true
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseDuration coerces a Stage Duration cell to a non-negative day count.
// Non-numeric or negative input defaults to zero.
func ParseDuration(raw string) int {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

// FormatMoney renders a value the way the dashboard displays it:
// $1.5M, $250K, or $980 for small amounts.
func FormatMoney(d decimal.Decimal) string {
	v := d.InexactFloat64()
	switch {
	case v >= 1_000_000:
		return "$" + strconv.FormatFloat(v/1_000_000, 'f', 1, 64) + "M"
	case v >= 1_000:
		return "$" + strconv.FormatFloat(v/1_000, 'f', 0, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(v, 'f', 0, 64)
	}
}
