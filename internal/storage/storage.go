// Package storage persists upload artifacts. Every backend addresses an
// artifact by a folder and a file name and hands back a locator the caller
// can give to a client: a filesystem path, a public URL, or an object URL.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/cvdrop/internal/config"
)

var (
	// ErrNotFound is returned by Load for an artifact that was never stored.
	ErrNotFound = errors.New("artifact not found")
	// ErrNotConfigured is returned by the object backend when it has no
	// credentials.
	ErrNotConfigured = errors.New("object storage not configured")
	// ErrInvalidKey rejects folder or file names that would leave the
	// storage namespace.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Backend is the storage contract used by the ingestion pipeline. Save
// operations return the locator of the stored artifact.
type Backend interface {
	SaveBlob(ctx context.Context, folder, name string, data []byte) (string, error)
	SaveJSON(ctx context.Context, folder, name string, v any) (string, error)
	SaveText(ctx context.Context, folder, name, text string) (string, error)
	// Locate returns the public locator of an artifact without touching it.
	Locate(ctx context.Context, folder, name string) (string, error)
	Load(ctx context.Context, folder, name string) ([]byte, error)
	Exists(ctx context.Context, folder, name string) (bool, error)
	// Count returns the number of artifacts stored directly in folder.
	Count(ctx context.Context, folder string) (int, error)
	Kind() string
}

// New builds the backend selected by cfg.Storage.Backend. The object backend
// gets its bucket created when credentials are present.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		return NewLocalBackend(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix), nil
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	case config.BackendObject:
		b, err := NewObjectBackend(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if b.Configured() {
			if err := b.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// EncodeJSON renders v the way metadata documents are stored: two-space
// indentation, HTML characters and non-ASCII text left as is, and a
// trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}
