package core

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrFileNotFound is returned by a FileStore when no object is stored under a key.
var ErrFileNotFound = NewNotFoundError("file not found")

// FileStore stores uploaded files under opaque keys.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey rejects keys that could escape the store root.
func CleanKey(key string) (string, error) {
	if key == "" || key[0] == '/' {
		return "", errors.Errorf("invalid file key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", errors.Errorf("invalid file key %q", key)
		}
	}
	return key, nil
}
