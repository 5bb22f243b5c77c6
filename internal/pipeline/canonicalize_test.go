package pipeline

import (
	"errors"
	"testing"

	"solpipe/internal"
	"solpipe/internal/util"
)

func defaultHints() DateHints {
	return DateHints{CloseDate: util.MonthFirst, TeamDates: util.DayFirst}
}

func TestCanonicalizeAliases(t *testing.T) {
	table := internal.RawTable{
		Headers: []string{"Opp Name", "Sales Stage", "Account", "PAR Value", "Stage Duration", "Close Date", "Unnamed: 6", "Region Code"},
		Rows: [][]string{
			{"Acme Refresh", "Stage 2", "Acme Corp", "$1,250,000", "45", "3/15/2026", "x", "EMEA"},
		},
	}

	records, err := Canonicalize(table, defaultHints())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len=%d", len(records))
	}

	o := records[0]
	if o.Name != "Acme Refresh" || o.Stage != "Stage 2" || o.AccountName != "Acme Corp" {
		t.Fatalf("aliased columns not mapped: %+v", o)
	}
	if o.PAR.String() != "1250000" {
		t.Fatalf("PAR=%s", o.PAR)
	}
	if o.StageDuration != 45 {
		t.Fatalf("duration=%d", o.StageDuration)
	}
	if o.CloseDate == nil || o.CloseDate.Format("2006-01-02") != "2026-03-15" {
		t.Fatalf("close date=%v", o.CloseDate)
	}
	if o.OwnerRole != "" {
		t.Fatalf("unrecognized Region Code should be dropped, got %q", o.OwnerRole)
	}
}

func TestCanonicalizeDefaults(t *testing.T) {
	table := internal.RawTable{
		Headers: []string{"Opportunity Name"},
		Rows:    [][]string{{"Bare Minimum Deal"}},
	}

	records, err := Canonicalize(table, defaultHints())
	if err != nil {
		t.Fatal(err)
	}

	o := records[0]
	if o.Status != internal.StatusUnassigned {
		t.Fatalf("status=%q", o.Status)
	}
	if o.Product != internal.ProductUnclassified {
		t.Fatalf("product=%q", o.Product)
	}
	if !o.PAR.IsZero() || o.StageDuration != 0 {
		t.Fatalf("numeric defaults: par=%s duration=%d", o.PAR, o.StageDuration)
	}
	if o.CloseDate != nil || o.ReceivedBySolutions != nil || o.ClosedBySolutions != nil {
		t.Fatal("dates should default to nil")
	}
	if o.SolutionsNotes != "" || o.Tasks != "" || o.ActionItems != "" || o.CommentsResults != "" {
		t.Fatal("team fields should default to empty")
	}
}

func TestCanonicalizeMissingKeyColumn(t *testing.T) {
	table := internal.RawTable{
		Headers: []string{"Stage", "Account Name", "Opportunity PAR"},
		Rows:    [][]string{{"Stage 2", "Acme", "100"}},
	}

	records, err := Canonicalize(table, defaultHints())
	if !errors.Is(err, ErrMissingKeyColumn) {
		t.Fatalf("err=%v", err)
	}
	if records != nil {
		t.Fatal("no partial output on rejected input")
	}
}

func TestCanonicalizeFirstMatchWinsOnDuplicateHeaders(t *testing.T) {
	table := internal.RawTable{
		Headers: []string{"Opportunity Name", "Opp Name", "Status"},
		Rows:    [][]string{{"Primary", "Shadow", "Working"}},
	}

	records, err := Canonicalize(table, defaultHints())
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Name != "Primary" {
		t.Fatalf("name=%q", records[0].Name)
	}
	if records[0].Status != "Working" {
		t.Fatalf("status=%q", records[0].Status)
	}
}

func TestCanonicalizeShortRows(t *testing.T) {
	table := internal.RawTable{
		Headers: []string{"Opportunity Name", "Stage", "Notes"},
		Rows: [][]string{
			{"Trimmed Row"},
			{"Full Row", "Stage 3", "ok"},
		},
	}

	records, err := Canonicalize(table, defaultHints())
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Stage != "" || records[0].Notes != "" {
		t.Fatalf("short row should pad with defaults: %+v", records[0])
	}
	if records[1].Stage != "Stage 3" || records[1].Notes != "ok" {
		t.Fatalf("full row mangled: %+v", records[1])
	}
}
