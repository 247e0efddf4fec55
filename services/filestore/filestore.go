// Package filestore implements core.FileStore on the local filesystem and on S3 compatible object storage.
package filestore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// New returns the FileStore of the configured backend.
func New(ctx context.Context, conf core.StorageConfig) (core.FileStore, error) {
	switch conf.Backend {
	case BackendLocal, "":
		return NewLocalStore(conf.Dir)
	case BackendS3:
		return NewS3Store(ctx, conf)
	default:
		return nil, errors.Errorf("unknown storage backend %q", conf.Backend)
	}
}
