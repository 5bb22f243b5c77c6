package connectors

import (
	"log/slog"

	"solpipe/internal/storage"
)

// FetchService pulls new mail and lands it in the raw store. Messages the
// pipeline already worked through (any status past fetched) are left alone
// so a re-fetch never resets processing state.
type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return result, err
		}
		if existing != nil && existing.Status != "fetched" {
			result.Known++
			continue
		}
		if _, err := s.store.Store(msg); err != nil {
			return result, err
		}
		result.Stored++
	}

	slog.Info("mailbox fetch complete",
		"label", label,
		"fetched", result.Fetched,
		"stored", result.Stored,
		"known", result.Known,
	)
	return result, nil
}
