package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

// archiveEvent is the audit event recorded after each export. Entries with
// this event are left out of the exports themselves.
const archiveEvent = "archive.audit"

// AuditArchiver copies one UTC day of the audit log to object storage as
// JSONL. Rows are not deleted from the primary store.
type AuditArchiver struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditArchiver creates an AuditArchiver.
func NewAuditArchiver(writer domain.BlobWriter, audit domain.AuditStore, logger *slog.Logger) *AuditArchiver {
	return &AuditArchiver{
		writer: writer,
		audit:  audit,
		logger: logger.With(slog.String("component", "audit_archiver")),
	}
}

// ArchiveDay uploads the entries of day's UTC date to
// audit/YYYY/MM/DD.jsonl and returns how many were written. An empty day
// uploads nothing.
func (a *AuditArchiver) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	entries, err := a.audit.List(ctx, domain.ListOpts{Since: &start, Until: &end})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Event != archiveEvent {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(kept)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath(start)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	if err := a.audit.Log(ctx, archiveEvent, map[string]any{
		"path":  path,
		"count": len(kept),
		"day":   start.Format(time.DateOnly),
	}); err != nil {
		return len(kept), fmt.Errorf("s3blob: archive audit log: %w", err)
	}
	return len(kept), nil
}

// Run archives the previous UTC day every interval until ctx is done.
func (a *AuditArchiver) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			day := now.UTC().Add(-24 * time.Hour)
			n, err := a.ArchiveDay(ctx, day)
			if err != nil {
				a.logger.Warn("s3blob: audit archive failed",
					slog.String("day", day.Format(time.DateOnly)),
					slog.String("error", err.Error()),
				)
				continue
			}
			a.logger.Info("s3blob: audit archived",
				slog.String("day", day.Format(time.DateOnly)),
				slog.Int("count", n),
			)
		}
	}
}

// archivePath returns the object key for day, e.g. audit/2026/03/01.jsonl.
func archivePath(day time.Time) string {
	return fmt.Sprintf("audit/%s.jsonl", day.Format("2006/01/02"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
