package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"solpipe/internal"
	"solpipe/internal/config"
	"solpipe/internal/storage"
)

func TestSmokeEmailToMasterfile(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "masterfile.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rawBlob, err := os.ReadFile(filepath.Join("testdata", "sample_export.eml"))
	if err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(tmp, "fixture.eml")
	if err := os.WriteFile(rawPath, rawBlob, 0o644); err != nil {
		t.Fatal(err)
	}

	email, err := db.UpsertEmail("imap", "<export-20260302@example.com>", "Weekly Pipeline Export", "sf-reports@example.com", "2026-03-02T09:15:00Z", "hash", rawPath, EmailStatusFetched)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{CloseDateOrder: "MDY", TeamDateOrder: "DMY"}
	proc := NewProcessingService(db, cfg)
	res, err := proc.ProcessEmail(email)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != EmailStatusMerged {
		t.Fatalf("status=%s", res.Status)
	}
	if res.Stats.Added != 2 || res.Stats.Total != 2 {
		t.Fatalf("stats=%+v", res.Stats)
	}

	records, err := db.LoadMasterfile()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d", len(records))
	}

	acme := records[0]
	if acme.Name != "Acme Refresh" || acme.PAR.String() != "1250000" || acme.StageDuration != 45 {
		t.Fatalf("acme=%+v", acme)
	}
	if acme.CloseDate == nil || acme.CloseDate.Format("2006-01-02") != "2026-03-15" {
		t.Fatalf("close date=%v", acme.CloseDate)
	}
	if records[1].Status != internal.StatusUnassigned {
		t.Fatalf("status=%q", records[1].Status)
	}

	row, err := db.MustEmailByProviderMessageID("imap", "<export-20260302@example.com>")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != EmailStatusMerged {
		t.Fatalf("email status=%s", row.Status)
	}

	out := filepath.Join(tmp, "masterfile.xlsx")
	if err := ExportXLSXFile(records, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}

func TestProcessEmailSkipsUnrelatedMail(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "masterfile.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	raw := []byte("From: someone@example.com\r\n" +
		"Subject: Lunch on Thursday?\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Are you free around noon?\r\n")
	rawPath := filepath.Join(tmp, "lunch.eml")
	if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	email, err := db.UpsertEmail("imap", "<lunch-1@example.com>", "Lunch on Thursday?", "someone@example.com", "2026-03-02T09:15:00Z", "hash", rawPath, EmailStatusFetched)
	if err != nil {
		t.Fatal(err)
	}

	proc := NewProcessingService(db, config.Config{})
	res, err := proc.ProcessEmail(email)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != EmailStatusSkipped {
		t.Fatalf("status=%s", res.Status)
	}

	records, err := db.LoadMasterfile()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatal("masterfile must stay untouched")
	}
}
