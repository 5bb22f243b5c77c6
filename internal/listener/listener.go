// Package listener polls the team mailbox for fresh CRM exports, merges
// them into the masterfile, and drops a refreshed workbook in the output
// directory.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"solpipe/internal/config"
	"solpipe/internal/connectors"
	gmailconnector "solpipe/internal/connectors/gmail"
	imapconnector "solpipe/internal/connectors/imap"
	"solpipe/internal/pipeline"
	"solpipe/internal/storage"
)

type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			slog.Error("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processed, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport && processed > 0 {
		if err := s.exportMasterfile(); err != nil {
			return err
		}
	}

	slog.Info("listener cycle done",
		"provider", provider,
		"fetched", fetchResult.Fetched,
		"stored", fetchResult.Stored,
		"processed", processed,
	)
	return nil
}

// exportMasterfile writes the current masterfile workbook after merges so
// the shared drive always holds the latest reconciled state.
func (s *Service) exportMasterfile() error {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	filename := fmt.Sprintf("masterfile_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	if err := pipeline.ExportXLSXFile(records, outputPath); err != nil {
		return err
	}

	slog.Info("masterfile exported", "path", outputPath, "rows", len(records))
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
