package util

import (
	"testing"
	"time"
)

func TestParseDateString(t *testing.T) {
	cases := []struct {
		name  string
		input string
		order DateOrder
		want  string
		ok    bool
	}{
		{name: "first part forces day-first", input: "27/1/2026", order: MonthFirst, want: "2026-01-27", ok: true},
		{name: "second part forces month-first", input: "1/27/2026", order: DayFirst, want: "2026-01-27", ok: true},
		{name: "ambiguous uses month-first hint", input: "2/10/26", order: MonthFirst, want: "2026-02-10", ok: true},
		{name: "ambiguous uses day-first hint", input: "2/10/26", order: DayFirst, want: "2026-10-02", ok: true},
		{name: "dash separator", input: "27-1-2026", order: MonthFirst, want: "2026-01-27", ok: true},
		{name: "two digit year expands", input: "3/4/25", order: DayFirst, want: "2025-04-03", ok: true},
		{name: "export layout round trip", input: "27-Jan-2026", order: MonthFirst, want: "2026-01-27", ok: true},
		{name: "impossible day rejected", input: "31/2/2026", order: DayFirst, want: "", ok: false},
		{name: "blank", input: "", order: MonthFirst, want: "", ok: false},
		{name: "not a date", input: "pending", order: MonthFirst, want: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input, tc.order)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got.Format("2006-01-02") != tc.want {
				t.Fatalf("got %s want %s", got.Format("2006-01-02"), tc.want)
			}
		})
	}
}

func TestParseDateNativeAppliesTransposition(t *testing.T) {
	// 2026-05-08 rendered from a datetime cell: day 8 <= 12, month 5 > 2,
	// so the upstream writer had transposed the parts. Corrected to Aug 5.
	got, ok := ParseDate("2026-05-08 00:00:00", MonthFirst)
	if !ok {
		t.Fatal("expected parse")
	}
	if got.Format("2006-01-02") != "2026-08-05" {
		t.Fatalf("got %s", got.Format("2006-01-02"))
	}

	// Day > 12 cannot be a transposed month; value stands.
	got, ok = ParseDate("2026-05-14", MonthFirst)
	if !ok {
		t.Fatal("expected parse")
	}
	if got.Format("2006-01-02") != "2026-05-14" {
		t.Fatalf("got %s", got.Format("2006-01-02"))
	}
}

func TestFixTransposedDate(t *testing.T) {
	in := time.Date(2026, time.March, 7, 10, 30, 0, 0, time.UTC)
	out := FixTransposedDate(in)
	if out.Format("2006-01-02") != "2026-07-03" {
		t.Fatalf("got %s", out.Format("2006-01-02"))
	}

	// January and February months are inside the ambiguity window and stay.
	in = time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC)
	out = FixTransposedDate(in)
	if out.Format("2006-01-02") != "2026-02-07" {
		t.Fatalf("got %s", out.Format("2006-01-02"))
	}
}

func TestFormatDate(t *testing.T) {
	if FormatDate(nil) != "" {
		t.Fatal("nil should format empty")
	}
	d := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(&d); got != "27-Jan-2026" {
		t.Fatalf("got %s", got)
	}
}
