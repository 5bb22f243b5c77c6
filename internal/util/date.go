package util

import (
	"strconv"
	"strings"
	"time"
)

// DateOrder is the locale hint that breaks the tie for ambiguous numeric
// dates like 2/10/26. Different upstream columns in the same export use
// different conventions, so the hint is per column, not per file.
type DateOrder int

const (
	MonthFirst DateOrder = iota
	DayFirst
)

// ParseDateOrder maps a config value ("MDY"/"DMY") to a DateOrder.
func ParseDateOrder(value string) DateOrder {
	if strings.EqualFold(strings.TrimSpace(value), "DMY") {
		return DayFirst
	}
	return MonthFirst
}

// ExportDateLayout is the fixed human-readable form dates serialize in.
const ExportDateLayout = "02-Jan-2006"

// nativeLayouts are renderings of spreadsheet datetime cells rather than
// user-typed dates. Values arriving this way carry a known upstream
// transposition defect and get corrected by FixTransposedDate.
var nativeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// ParseDate parses a date cell. The bool result is false for blank or
// unparseable input; there is no epoch fallback.
//
// Strings with three numeric parts separated by / or - are disambiguated
// structurally first: a first part > 12 must be the day, a second part > 12
// must be the day, and only a fully ambiguous pair falls back to the order
// hint. Two-digit years expand by adding 2000.
func ParseDate(raw string, order DateOrder) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range nativeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FixTransposedDate(t), true
		}
	}

	if t, ok := parseNumericParts(s, order); ok {
		return t, true
	}

	if t, err := time.Parse(ExportDateLayout, s); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// ParseDateValue accepts a value that already arrived as a real datetime
// (an xlsx date cell) and applies the transposition correction.
func ParseDateValue(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	return FixTransposedDate(t), true
}

// FixTransposedDate corrects a known upstream spreadsheet defect: ambiguous
// two-part dates re-interpreted with month and day swapped. A day component
// that could itself be a month (<= 12) combined with a month that cannot be
// a US-convention ambiguity survivor (> 2 here, matching the observed
// defect window) means the parts were transposed.
func FixTransposedDate(t time.Time) time.Time {
	day := t.Day()
	month := int(t.Month())
	if day <= 12 && month > 2 {
		return time.Date(t.Year(), time.Month(day), month, 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseNumericParts(s string, order DateOrder) (time.Time, bool) {
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	year := nums[2]
	if year < 100 {
		year += 2000
	}

	var day, month int
	switch {
	case nums[0] > 12:
		day, month = nums[0], nums[1]
	case nums[1] > 12:
		day, month = nums[1], nums[0]
	case order == DayFirst:
		day, month = nums[0], nums[1]
	default:
		day, month = nums[1], nums[0]
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		// Normalized overflow (e.g. 31 Feb) means the input was not a date.
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders an optional date in the canonical export form.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(ExportDateLayout)
}
