package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/cvdrop/internal/extract"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
	"github.com/dharsanguruparan/cvdrop/internal/queue"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
)

func newTestProcessor() (*Processor, *storage.MemoryBackend) {
	store := storage.NewMemoryBackend()
	return newProcessorOn(store), store
}

func newProcessorOn(store storage.Backend) *Processor {
	ex := extract.New(extract.ProbeCapabilities(nil), logging.Discard())
	svc := ingest.NewService(ex, store, extract.Thresholds{MinTextLength: 10, MinWordCount: 2}, ingest.WithLogger(logging.Discard()))
	return NewProcessor(svc, logging.Discard())
}

// metadataOutage fails the first n metadata writes.
type metadataOutage struct {
	*storage.MemoryBackend
	n int
}

func (m *metadataOutage) SaveJSON(ctx context.Context, folder, name string, v any) (string, error) {
	if m.n > 0 {
		m.n--
		return "", errors.New("metadata store unavailable")
	}
	return m.MemoryBackend.SaveJSON(ctx, folder, name, v)
}

func TestHandleIngest(t *testing.T) {
	p, store := newTestProcessor()
	for _, payload := range []queue.IngestPayload{
		{RequestID: "r1", FileName: "cv.txt", Data: []byte("Jane Doe, Go engineer in Paris"), Form: map[string]any{"nom": "Doe"}},
		{RequestID: "r2", FileName: "cv.pdf", Data: []byte("not a pdf")},
	} {
		task, err := queue.NewTask(payload, 1)
		if err != nil {
			t.Fatalf("NewTask: %v", err)
		}
		if err := p.handleIngest(context.Background(), task); err != nil {
			t.Fatalf("%s: handleIngest: %v", payload.RequestID, err)
		}
	}
	if n, _ := store.Count(context.Background(), ingest.OriginalsFolder); n != 2 {
		t.Fatalf("expected both originals stored, got %d", n)
	}
}

func TestHandleIngestBadPayload(t *testing.T) {
	p, _ := newTestProcessor()
	err := p.handleIngest(context.Background(), asynq.NewTask(queue.IngestTask, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandlerRoutesIngestTask(t *testing.T) {
	p, store := newTestProcessor()
	task, _ := queue.NewTask(queue.IngestPayload{FileName: "cv.txt", Data: []byte("hello world from a test")}, 0)
	if err := p.Handler().ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if n, _ := store.Count(context.Background(), ingest.OriginalsFolder); n != 1 {
		t.Fatalf("expected one stored original, got %d", n)
	}
}

func TestHandleIngestRetryReusesUploadID(t *testing.T) {
	store := &metadataOutage{MemoryBackend: storage.NewMemoryBackend(), n: 2}
	p := newProcessorOn(store)
	id := uuid.NewString()
	task, err := queue.NewTask(queue.IngestPayload{
		RequestID: id,
		FileName:  "cv.txt",
		Data:      []byte("Jane Doe, Go engineer in Paris"),
	}, 3)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if err := p.handleIngest(context.Background(), task); err == nil {
		t.Fatal("expected the first attempt to fail")
	}
	if err := p.handleIngest(context.Background(), task); err != nil {
		t.Fatalf("retry: %v", err)
	}

	ctx := context.Background()
	if n, _ := store.Count(ctx, ingest.OriginalsFolder); n != 1 {
		t.Fatalf("expected one stored original after retry, got %d", n)
	}
	details, err := p.svc.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if details.Metadata.UploadID != id || !details.TextAvailable {
		t.Fatalf("unexpected details: %+v", details)
	}
}
