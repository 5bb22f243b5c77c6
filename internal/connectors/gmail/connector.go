package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"solpipe/internal"
	"solpipe/internal/config"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

// FetchInbox lists up to max messages under the label and downloads each in
// raw form. Header metadata comes from the raw bytes themselves, the same
// parse the processing layer repeats, so one API call per message suffices.
func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.fetchRaw(ref.Id)
		if err != nil {
			return nil, err
		}
		if len(msg.Raw) == 0 {
			continue
		}
		out = append(out, msg)
	}

	return out, nil
}

func (c *Connector) fetchRaw(id string) (internal.FetchedMailMessage, error) {
	resp, err := c.service.Users.Messages.Get("me", id).Format("raw").Do()
	if err != nil {
		return internal.FetchedMailMessage{}, err
	}
	if resp.Raw == "" {
		return internal.FetchedMailMessage{}, nil
	}

	raw, err := decodeBase64URL(resp.Raw)
	if err != nil {
		return internal.FetchedMailMessage{}, err
	}

	msg := internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  id,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		Raw:        raw,
	}
	if resp.InternalDate > 0 {
		msg.ReceivedAt = time.UnixMilli(resp.InternalDate).UTC().Format(time.RFC3339)
	}

	// A malformed envelope still gets stored; downstream will skip it.
	if env, err := enmime.ReadEnvelope(bytes.NewReader(raw)); err == nil {
		if id := env.GetHeader("Message-ID"); id != "" {
			msg.MessageID = id
		}
		msg.Subject = env.GetHeader("Subject")
		msg.From = env.GetHeader("From")
	}

	return msg, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
