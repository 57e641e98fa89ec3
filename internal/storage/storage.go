package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"forecast_srv/internal/config"

	"github.com/sirupsen/logrus"
)

// ErrNotExist is returned by Get when the key is absent from storage.
var ErrNotExist = errors.New("file does not exist")

// Storage is the file store behind the report lifecycle. Keys are the
// generated report file names. Delete is idempotent: removing a missing
// key is not an error.
type Storage interface {
	// Save writes a file to storage under key.
	Save(ctx context.Context, key string, reader io.Reader) error

	// Get retrieves a file from storage.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file from storage. A missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present in storage.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewStorageFromConfig builds the configured storage backend wrapped with
// the logging decorator.
func NewStorageFromConfig(cfg config.Config, logger *logrus.Logger) (Storage, error) {
	var (
		backend Storage
		err     error
	)

	switch cfg.Storage.Type {
	case "local":
		backend, err = NewLocalStorage(cfg.Storage.BasePath)
	case "s3":
		backend, err = NewS3Storage(cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewLoggingMiddleware(backend, logger), nil
}
