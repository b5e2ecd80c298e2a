package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.objects == nil {
		w.objects = make(map[string][]byte)
	}
	w.objects[path] = b
	return nil
}

type memAudit struct {
	entries []domain.AuditEntry
	logged  []string
	since   time.Time
	until   time.Time
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.logged = append(a.logged, event)
	return nil
}

func (a *memAudit) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	a.since, a.until = *opts.Since, *opts.Until
	return append([]domain.AuditEntry(nil), a.entries...), nil
}

func TestArchiveDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	audit := &memAudit{entries: []domain.AuditEntry{
		{ID: 1, Event: "trade.buy", CreatedAt: day},
		{ID: 2, Event: archiveEvent, CreatedAt: day},
		{ID: 3, Event: "trade.sell", CreatedAt: day},
	}}
	w := &memWriter{}
	a := NewAuditArchiver(w, audit, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := a.ArchiveDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ArchiveDay: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if !audit.since.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", audit.since)
	}
	if audit.until.Day() != 1 || audit.until.Hour() != 23 {
		t.Errorf("until = %v", audit.until)
	}

	body, ok := w.objects["audit/2026/03/01.jsonl"]
	if !ok {
		t.Fatalf("objects = %v", w.objects)
	}
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("jsonl lines = %d, want 2", lines)
	}
	if len(audit.logged) != 1 || audit.logged[0] != archiveEvent {
		t.Errorf("logged = %v", audit.logged)
	}
}

func TestArchiveDayEmpty(t *testing.T) {
	audit := &memAudit{}
	w := &memWriter{}
	a := NewAuditArchiver(w, audit, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := a.ArchiveDay(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Fatalf("ArchiveDay = %d, %v", n, err)
	}
	if len(w.objects) != 0 || len(audit.logged) != 0 {
		t.Errorf("empty day wrote %v, logged %v", w.objects, audit.logged)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Errorf("got %q", got)
	}
	if got := normaliseEndpoint("https://s3.example.com", false); got != "https://s3.example.com" {
		t.Errorf("got %q", got)
	}
	if got := normaliseEndpoint("localhost:9000", true); got != "https://localhost:9000" {
		t.Errorf("got %q", got)
	}
}
