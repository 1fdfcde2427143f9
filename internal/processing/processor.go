// Package processing runs many ingestions side by side on a fixed pool of
// goroutines. Each submission is independent, so workers share nothing but
// the storage namespace.
package processing

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/model"
)

// Ingester is the orchestrator entry point the pool drives.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*model.Result, error)
}

// Job is one submission. Source names it in outcomes, usually a file path.
type Job struct {
	Source  string
	Request ingest.Request
}

// Outcome pairs a job with what the orchestrator returned for it.
type Outcome struct {
	Source string
	Result *model.Result
	Err    error
}

// Processor consumes Jobs with a fixed number of workers.
type Processor struct {
	ingester Ingester
	workers  int
	log      logrus.FieldLogger
}

// New builds a Processor. A non-positive worker count means one.
func New(ingester Ingester, workers int, log logrus.FieldLogger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{ingester: ingester, workers: workers, log: log}
}

// Run ingests every job and returns the outcomes in job order. Once ctx is
// cancelled no new job is started; jobs already running finish, and the
// skipped ones report ctx.Err().
func (p *Processor) Run(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	queue := make(chan int, p.workers*4)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, jobs, queue, outcomes)
		}()
	}

feed:
	for i := range jobs {
		select {
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				outcomes[j] = Outcome{Source: jobs[j].Source, Err: ctx.Err()}
			}
			break feed
		case queue <- i:
		}
	}
	close(queue)
	wg.Wait()
	return outcomes
}

func (p *Processor) worker(ctx context.Context, jobs []Job, queue <-chan int, outcomes []Outcome) {
	for i := range queue {
		job := jobs[i]
		if err := ctx.Err(); err != nil {
			outcomes[i] = Outcome{Source: job.Source, Err: err}
			continue
		}
		res, err := p.ingester.Ingest(ctx, job.Request)
		outcomes[i] = Outcome{Source: job.Source, Result: res, Err: err}
		entry := p.log.WithField("source", job.Source)
		switch {
		case err != nil:
			entry.WithError(err).Error("batch ingestion failed")
		case res.Degraded():
			entry.WithField("upload_id", res.UploadID).Warn("batch upload stored without extracted text")
		default:
			entry.WithField("upload_id", res.UploadID).Debug("batch upload ingested")
		}
	}
}
