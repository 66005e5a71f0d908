// Package storage keeps project images in an object storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/devfolio/portfolio/config"
	"github.com/google/uuid"
)

const (
	BackendMinio = "minio"
	BackendGCS   = "gcs"

	imagePrefix = "projects/"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Object is an open object body with its metadata.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage stores project images on an ObjectStorage backend.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// New builds the backend selected by cfg. It returns nil, nil when no
// backend is configured.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return NewStorage(client), nil
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// UploadImage stores an image under a fresh key derived from filename's
// extension and returns the key.
func (s *Storage) UploadImage(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mime.TypeByExtension(ext)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%q is not an image", filename)
	}

	key := imagePrefix + uuid.NewString() + ext
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// OpenImage opens an image previously stored by UploadImage. Keys outside
// the image prefix are reported as missing.
func (s *Storage) OpenImage(ctx context.Context, key string) (Object, error) {
	if !IsImageKey(key) {
		return Object{}, ErrObjectNotFound
	}
	return s.backend.Open(ctx, key)
}

// DeleteImage removes an image. Missing objects are not an error.
func (s *Storage) DeleteImage(ctx context.Context, key string) error {
	if !IsImageKey(key) {
		return nil
	}
	err := s.backend.Delete(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return err
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func (s *Storage) Close() error {
	return s.backend.Close()
}

// IsImageKey reports whether key names an object managed by UploadImage.
func IsImageKey(key string) bool {
	if !strings.HasPrefix(key, imagePrefix) || len(key) == len(imagePrefix) {
		return false
	}
	return path.Clean(key) == key && !strings.Contains(key, "..")
}
