package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"solpipe/internal"
	"solpipe/internal/config"
	"solpipe/internal/storage"
)

// Email status transitions driven by processing.
const (
	EmailStatusFetched     = "fetched"
	EmailStatusMerged      = "merged"
	EmailStatusSkipped     = "skipped"
	EmailStatusUnsupported = "unsupported_format"
	EmailStatusRejected    = "rejected"
)

// ProcessingService reconciles CRM exports, whatever path they arrive by,
// into the persisted masterfile.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	EmailID int
	Status  string
	Stats   internal.MergeStats
}

// MergeTable canonicalizes an extracted table and merges it into the
// stored masterfile. On any error the stored dataset is left untouched.
func (s *ProcessingService) MergeTable(table internal.RawTable, source string) (internal.MergeStats, error) {
	incoming, err := Canonicalize(table, HintsFromConfig(s.cfg))
	if err != nil {
		return internal.MergeStats{}, err
	}

	master, err := s.db.LoadMasterfile()
	if err != nil {
		return internal.MergeStats{}, err
	}

	merged, stats := Merge(master, incoming)
	if err := s.db.ReplaceMasterfile(merged); err != nil {
		return internal.MergeStats{}, err
	}

	traceID := uuid.NewString()
	if err := s.db.InsertMergeRun(traceID, source, stats); err != nil {
		return internal.MergeStats{}, err
	}

	slog.Info("masterfile merged",
		"trace_id", traceID,
		"source", source,
		"updated", stats.Updated,
		"added", stats.Added,
		"removed", stats.Removed,
		"total", stats.Total,
	)
	return stats, nil
}

// MergeFile merges an export file from disk.
func (s *ProcessingService) MergeFile(path string) (internal.MergeStats, error) {
	table, source, err := ExtractTableFromFile(path)
	if err != nil {
		return internal.MergeStats{}, err
	}
	return s.MergeTable(table, string(source)+":"+path)
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

// ProcessPending works through fetched mail in batches. A structural
// failure on one message stops the batch so it can be looked at rather
// than silently skipped.
func (s *ProcessingService) ProcessPending(limit int, provider string) (int, error) {
	pending, err := s.db.ListEmailsByStatus(EmailStatusFetched, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		if _, err := s.ProcessEmail(email); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// ProcessEmail extracts the export from one stored message and merges it.
// Mail that is not a pipeline report is skipped; a report in a form we
// cannot ingest (PDF print) is marked unsupported. Neither is an error and
// neither touches the stored masterfile.
func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("read raw mail: %w", err)
	}

	table, source, env, err := ExtractTableFromEmailRaw(raw)
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		_ = s.db.UpdateEmailStatus(email.ID, EmailStatusUnsupported)
		slog.Warn("report arrived in unsupported format", "email_id", email.ID, "detail", err)
		return ProcessResult{EmailID: email.ID, Status: EmailStatusUnsupported}, nil
	case errors.Is(err, ErrNoTable):
		_ = s.db.UpdateEmailStatus(email.ID, EmailStatusSkipped)
		return ProcessResult{EmailID: email.ID, Status: EmailStatusSkipped}, nil
	case err != nil:
		return ProcessResult{}, err
	}

	subject := email.Subject
	if env.GetHeader("Subject") != "" {
		subject = env.GetHeader("Subject")
	}
	detect := DetectReportEmail(subject, env.Text, env.HTML, attachmentNames(env))
	if !detect.IsReport {
		_ = s.db.UpdateEmailStatus(email.ID, EmailStatusSkipped)
		slog.Info("mail skipped, not a pipeline report", "email_id", email.ID, "score", detect.Score)
		return ProcessResult{EmailID: email.ID, Status: EmailStatusSkipped}, nil
	}

	stats, err := s.MergeTable(table, "email:"+email.MessageID+":"+string(source))
	if err != nil {
		if errors.Is(err, ErrMissingKeyColumn) {
			_ = s.db.UpdateEmailStatus(email.ID, EmailStatusRejected)
			slog.Warn("export rejected", "email_id", email.ID, "error", err)
			return ProcessResult{EmailID: email.ID, Status: EmailStatusRejected}, nil
		}
		return ProcessResult{}, err
	}

	if err := s.db.UpdateEmailStatus(email.ID, EmailStatusMerged); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{EmailID: email.ID, Status: EmailStatusMerged, Stats: stats}, nil
}

func attachmentNames(env *enmime.Envelope) []string {
	out := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		name := att.FileName
		if name == "" {
			name = "attachment"
		}
		out = append(out, name)
	}
	return out
}
