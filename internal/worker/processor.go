// Package worker runs queued ingestions inside the asynq server loop.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	svc *ingest.Service
	log logrus.FieldLogger
}

// NewProcessor constructs a worker processor.
func NewProcessor(svc *ingest.Service, log logrus.FieldLogger) *Processor {
	return &Processor{svc: svc, log: log}
}

// Handler registers the ingest job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestTask, p.handleIngest)
	return mux
}

// handleIngest runs one queued submission. A degraded result is final: the
// file is already stored, so only an error from the fallback writes is
// handed back to asynq for a retry. The request id doubles as the upload id,
// so a retry overwrites the record of the failed attempt.
func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodePayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := p.log.WithFields(logrus.Fields{"request_id": payload.RequestID, "file_name": payload.FileName})

	res, err := p.svc.Ingest(ctx, ingest.Request{
		ID:          payload.RequestID,
		Data:        payload.Data,
		FileName:    payload.FileName,
		ContentType: payload.ContentType,
		Form:        payload.Form,
	})
	if err != nil {
		log.WithError(err).Error("queued ingestion failed")
		return err
	}
	log = log.WithField("upload_id", res.UploadID)
	if res.Degraded() {
		log.WithField("error", res.Error).Warn("queued upload stored without extracted text")
		return nil
	}
	log.WithField("bytes", len(payload.Data)).Info("queued upload processed")
	return nil
}
