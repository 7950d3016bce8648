package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"vr-theatre-marketplace/internal/models"
)

// QRArchive keeps a copy of every issued ticket's QR image in object storage,
// so support can resend codes without re-rendering them.
type QRArchive struct {
	storage StorageServiceInterface
	qr      *QRGenerator
	logger  *slog.Logger
}

// NewQRArchive creates an archive writing to storage
func NewQRArchive(storage StorageServiceInterface, qr *QRGenerator, logger *slog.Logger) *QRArchive {
	return &QRArchive{
		storage: storage,
		qr:      qr,
		logger:  logger.With("component", "qr_archive"),
	}
}

// archiveKey is the object key for a ticket code
func archiveKey(code string) string {
	return fmt.Sprintf("tickets/%s.png", code)
}

// Store uploads QR images for the tickets that are not archived yet.
// Failures are logged per ticket and counted.
func (a *QRArchive) Store(ctx context.Context, tickets []*models.Ticket) (stored int, failed int) {
	for _, t := range tickets {
		key := archiveKey(t.Code)

		exists, err := a.storage.Exists(ctx, key)
		if err != nil {
			a.logger.WarnContext(ctx, "failed to check archived QR", "ticket_id", t.ID, "error", err)
		}
		if exists {
			continue
		}

		png, err := a.qr.PNG(t.Code)
		if err != nil {
			a.logger.ErrorContext(ctx, "failed to render QR", "ticket_id", t.ID, "error", err)
			failed++
			continue
		}

		url, err := a.storage.Upload(ctx, key, bytes.NewReader(png), "image/png", int64(len(png)))
		if err != nil {
			a.logger.ErrorContext(ctx, "failed to archive QR", "ticket_id", t.ID, "error", err)
			failed++
			continue
		}
		a.logger.DebugContext(ctx, "QR archived", "ticket_id", t.ID, "url", url)
		stored++
	}
	return stored, failed
}

// URL returns where a ticket's archived QR lives
func (a *QRArchive) URL(code string) string {
	return a.storage.GetURL(archiveKey(code))
}
