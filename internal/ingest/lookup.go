package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/cvdrop/internal/model"
	"github.com/dharsanguruparan/cvdrop/internal/schema"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
)

var (
	// ErrUploadNotFound is returned when no record exists for an id.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrCorruptRecord is returned when stored metadata fails its schema.
	ErrCorruptRecord = errors.New("corrupt upload record")
)

// Lookup reads the metadata of an upload back and reports which of its
// artifacts are present.
func (s *Service) Lookup(ctx context.Context, id string) (*model.UploadDetails, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUploadNotFound
	}
	raw, err := s.store.Load(ctx, id, MetadataFileName(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", id, err)
	}
	if err := schema.CheckMetadata(raw); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptRecord, id, err)
	}
	md, err := DecodeMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptRecord, id, err)
	}

	details := &model.UploadDetails{UploadID: id, Metadata: md}
	if details.TextAvailable, err = s.store.Exists(ctx, id, TextFileName(id)); err != nil {
		return nil, fmt.Errorf("check extracted text %s: %w", id, err)
	}
	if details.CVAvailable, err = s.store.Exists(ctx, OriginalsFolder, md.CVFilename); err != nil {
		return nil, fmt.Errorf("check original file %s: %w", id, err)
	}
	return details, nil
}

// Text returns the stored extracted text of an upload.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrUploadNotFound
	}
	data, err := s.store.Load(ctx, id, TextFileName(id))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrUploadNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load extracted text %s: %w", id, err)
	}
	return string(data), nil
}

// Stats counts the stored originals.
func (s *Service) Stats(ctx context.Context) (*model.UploadStats, error) {
	n, err := s.store.Count(ctx, OriginalsFolder)
	if err != nil {
		return nil, fmt.Errorf("count uploads: %w", err)
	}
	return &model.UploadStats{TotalUploads: n, StorageBackend: s.store.Kind()}, nil
}

// DecodeMetadata parses a metadata document, keeping form numbers as
// json.Number so they match what was submitted.
func DecodeMetadata(data []byte) (*model.Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var md model.Metadata
	if err := dec.Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &md, nil
}
