package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dharsanguruparan/cvdrop/internal/extract"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
	"github.com/dharsanguruparan/cvdrop/internal/model"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
)

func TestRunIngestsEveryJob(t *testing.T) {
	store := storage.NewMemoryBackend()
	ex := extract.New(extract.ProbeCapabilities(nil), logging.Discard())
	svc := ingest.NewService(ex, store, extract.Thresholds{MinTextLength: 5, MinWordCount: 1}, ingest.WithLogger(logging.Discard()))

	var jobs []Job
	for i := 0; i < 10; i++ {
		jobs = append(jobs, Job{
			Source:  fmt.Sprintf("cv-%d.txt", i),
			Request: ingest.Request{Data: []byte(fmt.Sprintf("candidate number %d", i)), FileName: fmt.Sprintf("cv-%d.txt", i)},
		})
	}
	jobs = append(jobs, Job{Source: "broken.pdf", Request: ingest.Request{Data: []byte("nope"), FileName: "broken.pdf"}})

	outcomes := New(svc, 3, logging.Discard()).Run(context.Background(), jobs)
	if len(outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Source != jobs[i].Source || o.Err != nil || o.Result == nil {
			t.Fatalf("outcome %d: %+v", i, o)
		}
	}
	if !outcomes[10].Result.Degraded() || outcomes[0].Result.Degraded() {
		t.Fatalf("unexpected degraded flags")
	}
	if n, _ := store.Count(context.Background(), ingest.OriginalsFolder); n != len(jobs) {
		t.Fatalf("stored %d originals, want %d", n, len(jobs))
	}
}

// blockingIngester parks every call until release is closed.
type blockingIngester struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	once    sync.Once
}

func (b *blockingIngester) Ingest(ctx context.Context, req ingest.Request) (*model.Result, error) {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &model.Result{UploadID: req.FileName, Stage: model.StageCompleted}, nil
}

func TestRunStopsOnCancel(t *testing.T) {
	ing := &blockingIngester{started: make(chan struct{}), release: make(chan struct{})}
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Source: fmt.Sprint(i), Request: ingest.Request{FileName: fmt.Sprint(i)}}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []Outcome)
	go func() { done <- New(ing, 1, logging.Discard()).Run(ctx, jobs) }()

	<-ing.started
	cancel()
	close(ing.release)
	outcomes := <-done

	if outcomes[0].Err != nil || outcomes[0].Result == nil {
		t.Fatalf("running job must finish: %+v", outcomes[0])
	}
	if !errors.Is(outcomes[len(outcomes)-1].Err, context.Canceled) {
		t.Fatalf("expected skipped job to report cancellation, got %+v", outcomes[len(outcomes)-1])
	}
	if int(ing.calls.Load()) != 1 {
		t.Fatalf("expected a single started job, got %d", ing.calls.Load())
	}
}
