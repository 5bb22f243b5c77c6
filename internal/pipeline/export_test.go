package pipeline

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solpipe/internal"
)

func exportFixture() []internal.Opportunity {
	closeDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	o := internal.NewOpportunity()
	o.Name = "Acme Refresh"
	o.Stage = "Stage 2"
	o.AccountName = "Acme Corp"
	o.PAR = decimal.RequireFromString("1250000.5")
	o.StageDuration = 45
	o.CloseDate = &closeDate
	o.Status = internal.StatusWorking
	o.SolutionsNotes = "keep this"
	return []internal.Opportunity{o}
}

func TestExportXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXLSX(exportFixture(), &buf); err != nil {
		t.Fatal(err)
	}

	table, err := parseXLSX(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Headers) != len(internal.AllCols) {
		t.Fatalf("headers=%d want %d", len(table.Headers), len(internal.AllCols))
	}
	for i, h := range internal.AllCols {
		if table.Headers[i] != h {
			t.Fatalf("header[%d]=%q want %q", i, table.Headers[i], h)
		}
	}

	if len(table.Rows) != 1 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	row := table.Rows[0]
	if row[4] != "Acme Refresh" {
		t.Fatalf("name=%q", row[4])
	}
	if row[9] != "15-Mar-2026" {
		t.Fatalf("close date=%q", row[9])
	}
	if row[15] != "keep this" {
		t.Fatalf("solutions notes=%q", row[15])
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(exportFixture(), &buf); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d", len(records))
	}
	if records[0][7] != internal.ColOpportunityPAR {
		t.Fatalf("header[7]=%q", records[0][7])
	}
	// PAR serializes as the exact decimal, not a float rendering.
	if records[1][7] != "1250000.5" {
		t.Fatalf("par=%q", records[1][7])
	}
	if records[1][9] != "15-Mar-2026" {
		t.Fatalf("close date=%q", records[1][9])
	}
}
