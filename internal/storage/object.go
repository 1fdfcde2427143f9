package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/cvdrop/internal/config"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	textContentType = "text/plain; charset=utf-8"
)

// ObjectBackend stores artifacts in a MinIO/S3 bucket under folder/name keys.
type ObjectBackend struct {
	client     *minio.Client
	bucket     string
	region     string
	configured bool
}

// NewObjectBackend creates a MinIO client from the storage settings. Without
// an access key and secret the backend is built but refuses every operation
// with ErrNotConfigured.
func NewObjectBackend(cfg config.StorageConfig) (*ObjectBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &ObjectBackend{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		configured: cfg.AccessKey != "" && cfg.SecretKey != "",
	}, nil
}

// Configured reports whether credentials were supplied.
func (s *ObjectBackend) Configured() bool { return s.configured }

// Kind implements Backend.
func (s *ObjectBackend) Kind() string { return "object" }

// EnsureBucket makes sure the bucket exists before use.
func (s *ObjectBackend) EnsureBucket(ctx context.Context) error {
	if !s.configured {
		return ErrNotConfigured
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// SaveBlob implements Backend. The content type is derived from the name.
func (s *ObjectBackend) SaveBlob(ctx context.Context, folder, name string, data []byte) (string, error) {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.put(ctx, folder, name, data, contentType)
}

// SaveJSON implements Backend.
func (s *ObjectBackend) SaveJSON(ctx context.Context, folder, name string, v any) (string, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		return "", err
	}
	return s.put(ctx, folder, name, data, jsonContentType)
}

// SaveText implements Backend.
func (s *ObjectBackend) SaveText(ctx context.Context, folder, name, text string) (string, error) {
	return s.put(ctx, folder, name, []byte(text), textContentType)
}

func (s *ObjectBackend) put(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	if !s.configured {
		return "", ErrNotConfigured
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.url(key), nil
}

// Locate implements Backend.
func (s *ObjectBackend) Locate(_ context.Context, folder, name string) (string, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	return s.url(key), nil
}

// Load implements Backend.
func (s *ObjectBackend) Load(ctx context.Context, folder, name string) ([]byte, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf, nil
}

// Exists implements Backend.
func (s *ObjectBackend) Exists(ctx context.Context, folder, name string) (bool, error) {
	if !s.configured {
		return false, ErrNotConfigured
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return false, err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

// Count implements Backend.
func (s *ObjectBackend) Count(ctx context.Context, folder string) (int, error) {
	if !s.configured {
		return 0, ErrNotConfigured
	}
	if err := checkFolder(folder); err != nil {
		return 0, err
	}
	n := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: folder + "/"}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list %s: %w", folder, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			n++
		}
	}
	return n, nil
}

func (s *ObjectBackend) url(key string) string {
	u := *s.client.EndpointURL()
	u.Path = path.Join("/", s.bucket, key)
	return u.String()
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
