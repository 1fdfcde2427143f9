package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/config"
	"github.com/dharsanguruparan/cvdrop/internal/extract"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
)

// Setup builds a Service from configuration: the capability table is probed
// once here, and the storage backend is selected and prepared.
func Setup(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Service, error) {
	caps := extract.ProbeCapabilities(cfg.Extraction.Disabled)
	log.WithFields(logrus.Fields{
		"pdf_primary":   caps.PDFPrimary,
		"pdf_secondary": caps.PDFSecondary,
		"word":          caps.Word,
	}).Info("extraction capabilities")

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if obj, ok := store.(*storage.ObjectBackend); ok && !obj.Configured() {
		log.Warn("object storage has no credentials; every write will fail")
	}

	th := extract.Thresholds{
		MinTextLength: cfg.Extraction.MinTextLength,
		MinWordCount:  cfg.Extraction.MinWordCount,
	}
	return NewService(extract.New(caps, log), store, th, WithLogger(log)), nil
}
