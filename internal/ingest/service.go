// Package ingest runs one submission through extraction, the quality gate
// and persistence, and reads stored upload records back.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/extract"
	"github.com/dharsanguruparan/cvdrop/internal/model"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
)

// TextExtractor is the part of the extraction dispatcher the pipeline uses.
type TextExtractor interface {
	Extract(data []byte, fileName string) (string, error)
	Method(fileName string) string
}

// Request is one submission. The bytes are assumed to have passed the
// ingress file validator.
type Request struct {
	// ID, when it is a valid UUID, is used as the upload id instead of a
	// fresh one, so a retried submission rewrites the same record.
	ID          string
	Data        []byte
	FileName    string
	ContentType string
	Form        map[string]any
}

// Service is the ingestion orchestrator.
type Service struct {
	extractor  TextExtractor
	store      storage.Backend
	thresholds extract.Thresholds
	log        logrus.FieldLogger
	newID      func() string
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for stage transitions and outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithIDSource replaces the UUID generator.
func WithIDSource(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock replaces time.Now for upload timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService wires the orchestrator.
func NewService(ex TextExtractor, store storage.Backend, th extract.Thresholds, opts ...Option) *Service {
	s := &Service{
		extractor:  ex,
		store:      store,
		thresholds: th,
		log:        logrus.StandardLogger(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the storage backend artifacts are written to.
func (s *Service) Backend() storage.Backend {
	return s.store
}

// Ingest extracts, scores and persists one submission. A failed extraction
// or write ends on the degraded branch: the original file and an error
// metadata record are still stored and the result carries Error. An error is
// returned only when that fallback itself could not be written, together with
// whatever partial result exists.
//
// Once started the pipeline runs to an end state; cancelling ctx does not
// interrupt it.
func (s *Service) Ingest(ctx context.Context, req Request) (*model.Result, error) {
	r := &run{
		svc: s,
		ctx: context.WithoutCancel(ctx),
		req: req,
		id:  s.uploadID(req.ID),
	}
	r.log = s.log.WithField("upload_id", r.id)
	return r.execute()
}

func (s *Service) uploadID(requested string) string {
	if id, err := uuid.Parse(requested); err == nil {
		return id.String()
	}
	return s.newID()
}

// run holds the state of one ingestion as it moves through the stages.
type run struct {
	svc *Service
	ctx context.Context
	req Request
	log logrus.FieldLogger

	id       string
	fileName string
	stage    model.Stage
	text     string
	stats    *model.Stats
	cause    error
	result   *model.Result
	cvStored bool
}

func (r *run) execute() (*model.Result, error) {
	r.enter(model.StageReceived)
	r.fileName = StoredFileName(r.req.FileName, r.id)
	r.result = &model.Result{UploadID: r.id, CVFilename: r.fileName}

	for {
		switch r.stage {
		case model.StageReceived:
			r.enter(model.StageExtracting)
		case model.StageExtracting:
			text, err := r.svc.extractor.Extract(r.req.Data, r.fileName)
			if err != nil {
				r.fail(err)
				continue
			}
			r.text = text
			r.enter(model.StageValidatingText)
		case model.StageValidatingText:
			stats := extract.Analyze(r.text, r.svc.thresholds)
			r.stats = &stats
			if !stats.IsValid {
				r.text = SentinelText
			}
			r.enter(model.StagePersisting)
		case model.StagePersisting:
			if err := r.persist(); err != nil {
				r.fail(err)
				continue
			}
			r.enter(model.StageCompleted)
		case model.StageCompleted:
			r.result.ExtractionStats = r.stats
			r.result.Stage = r.stage
			r.log.WithFields(logrus.Fields{
				"file_name":  r.fileName,
				"characters": r.stats.CharacterCount,
				"words":      r.stats.WordCount,
				"is_valid":   r.stats.IsValid,
			}).Info("upload ingested")
			return r.result, nil
		case model.StageDegradedPersist:
			if err := r.persistDegraded(); err != nil {
				r.result.Stage = r.stage
				r.log.WithFields(logrus.Fields{"cause": r.cause, "error": err}).Error("degraded persistence failed")
				return r.result, err
			}
			r.enter(model.StageCompletedWithError)
		case model.StageCompletedWithError:
			r.result.Stage = r.stage
			r.log.WithFields(logrus.Fields{"file_name": r.fileName, "error": r.cause}).Warn("upload ingested with error")
			return r.result, nil
		default:
			return r.result, fmt.Errorf("ingest %s: unknown stage %q", r.id, r.stage)
		}
	}
}

func (r *run) enter(stage model.Stage) {
	r.stage = stage
	r.log.WithField("stage", stage).Debug("ingest stage")
}

func (r *run) fail(err error) {
	r.cause = err
	r.result.Error = err.Error()
	r.enter(model.StageDegradedPersist)
}

func (r *run) persist() error {
	if err := r.storeOriginal(); err != nil {
		return err
	}
	path, err := r.svc.store.SaveText(r.ctx, r.id, TextFileName(r.id), r.text)
	if err != nil {
		return fmt.Errorf("save extracted text: %w", err)
	}
	url, err := r.svc.store.Locate(r.ctx, r.id, TextFileName(r.id))
	if err != nil {
		return fmt.Errorf("locate extracted text: %w", err)
	}
	r.result.TextPath, r.result.TextURL = path, url

	md := r.metadata()
	md.ExtractionStats = r.stats
	return r.storeMetadata(md)
}

// persistDegraded keeps the submitted file and records the failure. The
// original is written again only if the first attempt did not succeed.
func (r *run) persistDegraded() error {
	r.result.TextPath, r.result.TextURL = "", ""
	r.result.ExtractionStats = nil
	if !r.cvStored {
		if err := r.storeOriginal(); err != nil {
			return err
		}
	}
	md := r.metadata()
	md.ExtractionError = r.cause.Error()
	return r.storeMetadata(md)
}

func (r *run) storeOriginal() error {
	path, err := r.svc.store.SaveBlob(r.ctx, OriginalsFolder, r.fileName, r.req.Data)
	if err != nil {
		return fmt.Errorf("save original file: %w", err)
	}
	r.cvStored = true
	url, err := r.svc.store.Locate(r.ctx, OriginalsFolder, r.fileName)
	if err != nil {
		return fmt.Errorf("locate original file: %w", err)
	}
	r.result.CVPath, r.result.CVURL = path, url
	return nil
}

func (r *run) storeMetadata(md *model.Metadata) error {
	name := MetadataFileName(r.id)
	path, err := r.svc.store.SaveJSON(r.ctx, r.id, name, md)
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	url, err := r.svc.store.Locate(r.ctx, r.id, name)
	if err != nil {
		return fmt.Errorf("locate metadata: %w", err)
	}
	r.result.DataPath, r.result.DataURL = path, url
	return nil
}

func (r *run) metadata() *model.Metadata {
	form := r.req.Form
	if form == nil {
		form = map[string]any{}
	}
	return &model.Metadata{
		UploadID:         r.id,
		FormData:         form,
		CVFilename:       r.fileName,
		OriginalFilename: r.req.FileName,
		ContentType:      r.req.ContentType,
		Size:             int64(len(r.req.Data)),
		UploadTimestamp:  r.svc.now().UTC().Format(time.RFC3339),
		ExtractionMethod: r.svc.extractor.Method(r.fileName),
	}
}
