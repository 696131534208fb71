// Package drive lists PDFs and Google Docs in a Drive account and downloads them as PDF bytes.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/sources/google"
	"github.com/markdave123-py/integraldb/internal/models"
)

var _ core.SourceLister = (*Lister)(nil)

// Drive MIME types.
const (
	MimeTypePDF       = "application/pdf"
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
)

const listQuery = "(mimeType='" + MimeTypePDF + "' or mimeType='" + MimeTypeGoogleDoc + "') and trashed = false"

// MaxDownloadSize caps a single download.
const MaxDownloadSize = 100 << 20

type Lister struct {
	svc      *driveapi.Service
	pageSize int64
	logger   *slog.Logger
}

func NewLister(svc *driveapi.Service, pageSize int64, logger *slog.Logger) *Lister {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{svc: svc, pageSize: pageSize, logger: logger.With("origin", models.OriginDrive)}
}

func (l *Lister) Origin() models.Origin { return models.OriginDrive }

// List returns every PDF and Google Doc visible to the account, following all pages.
func (l *Lister) List(ctx context.Context) ([]models.SourceRecord, error) {
	var records []models.SourceRecord

	err := l.svc.Files.List().
		Q(listQuery).
		PageSize(l.pageSize).
		Fields("nextPageToken, files(id,name,mimeType,modifiedTime)").
		Pages(ctx, func(page *driveapi.FileList) error {
			for _, f := range page.Files {
				records = append(records, models.SourceRecord{
					Origin:      models.OriginDrive,
					Identity:    f.Id,
					DisplayName: DisplayName(f.Name),
					Fingerprint: f.ModifiedTime,
					ContentType: f.MimeType,
				})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("%w: drive list files: %w", core.ErrSourceList, google.WrapError(err))
	}

	l.logger.Debug("drive listing complete", "files", len(records))
	return records, nil
}

// Fetch downloads a PDF directly, or exports a Google Doc to PDF.
func (l *Lister) Fetch(ctx context.Context, rec models.SourceRecord) ([]byte, error) {
	var (
		resp *http.Response
		err  error
	)
	switch rec.ContentType {
	case MimeTypeGoogleDoc:
		resp, err = l.svc.Files.Export(rec.Identity, MimeTypePDF).Context(ctx).Download()
	default:
		resp, err = l.svc.Files.Get(rec.Identity).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", core.ErrFetch, rec.DisplayName, google.WrapError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrFetch, rec.DisplayName, err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrFetch, rec.DisplayName, MaxDownloadSize)
	}
	return data, nil
}

// DisplayName is the file stem with a .pdf extension, since every fetch yields PDF bytes.
func DisplayName(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = name
	}
	return stem + ".pdf"
}
