package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// LocalBackend writes artifacts under a root directory and exposes them under
// a public URL prefix served by the HTTP API.
type LocalBackend struct {
	root   string
	prefix string
}

// NewLocalBackend returns a backend rooted at dir. Locators are
// prefix/folder/name.
func NewLocalBackend(dir, prefix string) *LocalBackend {
	if prefix == "" {
		prefix = "/"
	}
	return &LocalBackend{root: dir, prefix: prefix}
}

// Root is the directory artifacts are written under.
func (b *LocalBackend) Root() string { return b.root }

// Kind implements Backend.
func (b *LocalBackend) Kind() string { return "local" }

// SaveBlob implements Backend. The returned locator is the filesystem path.
func (b *LocalBackend) SaveBlob(ctx context.Context, folder, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(b.root, filepath.FromSlash(key))
	if err := writeFileAtomic(dest, data); err != nil {
		return "", fmt.Errorf("save %s: %w", key, err)
	}
	return dest, nil
}

// SaveJSON implements Backend.
func (b *LocalBackend) SaveJSON(ctx context.Context, folder, name string, v any) (string, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		return "", err
	}
	return b.SaveBlob(ctx, folder, name, data)
}

// SaveText implements Backend.
func (b *LocalBackend) SaveText(ctx context.Context, folder, name, text string) (string, error) {
	return b.SaveBlob(ctx, folder, name, []byte(text))
}

// Locate implements Backend.
func (b *LocalBackend) Locate(_ context.Context, folder, name string) (string, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	return path.Join(b.prefix, key), nil
}

// Load implements Backend.
func (b *LocalBackend) Load(ctx context.Context, folder, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}

// Exists implements Backend.
func (b *LocalBackend) Exists(_ context.Context, folder, name string) (bool, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(b.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// Count implements Backend. A folder that does not exist yet holds nothing.
func (b *LocalBackend) Count(_ context.Context, folder string) (int, error) {
	if err := checkFolder(folder); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(filepath.Join(b.root, filepath.FromSlash(folder)))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", folder, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !isTemp(e.Name()) {
			n++
		}
	}
	return n, nil
}

const tempSuffix = ".partial"

func isTemp(name string) bool {
	return filepath.Ext(name) == tempSuffix
}

// writeFileAtomic writes data next to dest and renames it into place, so a
// reader never sees a half-written artifact.
func writeFileAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*"+tempSuffix)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
