// Package storage persists uploaded listing images. Two backends:
// local disk (files land in a fixed directory served at /images/) and
// an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/secondchance/backend/internal/config"
)

// Store saves uploaded files and returns the reference kept on the item
type Store interface {
	// Save persists the file under its original filename and returns
	// the reference to store. Identical filenames overwrite each other;
	// that collision is an accepted limitation of the upload scheme.
	Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	// Delete removes a previously saved file by its reference
	Delete(ctx context.Context, reference string) error
}

// New builds the store selected by cfg.Backend ("local" or "s3")
func New(cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
