// Package gmail lists PDF attachments of a Gmail mailbox label and fetches their bytes.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/sources/google"
	"github.com/markdave123-py/integraldb/internal/models"
)

var _ core.SourceLister = (*Lister)(nil)

const (
	userID      = "me"
	maxPageSize = 500
)

type Config struct {
	Label      string // label to list, INBOX when empty
	MaxResults int64  // messages inspected per pass
}

type Lister struct {
	svc    *gmailapi.Service
	cfg    Config
	logger *slog.Logger
}

func NewLister(svc *gmailapi.Service, cfg Config, logger *slog.Logger) *Lister {
	if cfg.Label == "" {
		cfg.Label = "INBOX"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{svc: svc, cfg: cfg, logger: logger.With("origin", models.OriginMail)}
}

func (l *Lister) Origin() models.Origin { return models.OriginMail }

// List walks the label newest first, up to MaxResults messages, and returns one record per PDF attachment.
// A message that cannot be read is logged and skipped; a failed page fails the whole listing.
func (l *Lister) List(ctx context.Context) ([]models.SourceRecord, error) {
	var (
		records   []models.SourceRecord
		seen      int64
		pageToken string
	)

	for seen < l.cfg.MaxResults {
		call := l.svc.Users.Messages.List(userID).
			LabelIds(l.cfg.Label).
			MaxResults(min(l.cfg.MaxResults-seen, maxPageSize)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("%w: gmail list messages: %w", core.ErrSourceList, google.WrapError(err))
		}

		for _, m := range resp.Messages {
			if seen >= l.cfg.MaxResults {
				break
			}
			seen++

			msg, err := l.svc.Users.Messages.Get(userID, m.Id).Format("full").Context(ctx).Do()
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %w", core.ErrSourceList, ctx.Err())
				}
				l.logger.Warn("skipping unreadable message", "message_id", m.Id, "rate_limited", google.IsRateLimited(err), "err", google.WrapError(err))
				continue
			}
			records = append(records, attachmentRecords(msg)...)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Messages) == 0 {
			break
		}
	}

	l.logger.Debug("gmail listing complete", "messages", seen, "attachments", len(records))
	return records, nil
}

// Fetch downloads and decodes one attachment.
func (l *Lister) Fetch(ctx context.Context, rec models.SourceRecord) ([]byte, error) {
	msgID, attID, ok := strings.Cut(rec.Identity, ":")
	if !ok || msgID == "" || attID == "" {
		return nil, fmt.Errorf("%w: malformed attachment identity %q", core.ErrFetch, rec.Identity)
	}

	att, err := l.svc.Users.Messages.Attachments.Get(userID, msgID, attID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: gmail attachment %s: %w", core.ErrFetch, rec.DisplayName, google.WrapError(err))
	}

	data, err := decodeData(att.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode attachment %s: %w", core.ErrFetch, rec.DisplayName, err)
	}
	return data, nil
}

// attachmentRecords collects PDF attachments from every nested part of a message.
func attachmentRecords(msg *gmailapi.Message) []models.SourceRecord {
	var out []models.SourceRecord
	var walk func(p *gmailapi.MessagePart)
	walk = func(p *gmailapi.MessagePart) {
		if p == nil {
			return
		}
		if p.Body != nil && p.Body.AttachmentId != "" && isPDF(p.Filename) {
			identity := msg.Id + ":" + p.Body.AttachmentId
			ct := p.MimeType
			if ct == "" || ct == "application/octet-stream" {
				ct = "application/pdf"
			}
			out = append(out, models.SourceRecord{
				Origin:      models.OriginMail,
				Identity:    identity,
				DisplayName: p.Filename,
				Fingerprint: identity, // attachments never change once sent
				ContentType: ct,
			})
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(msg.Payload)
	return out
}

func isPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// decodeData accepts padded and unpadded base64url.
func decodeData(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
