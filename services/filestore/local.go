package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
)

// LocalStore keeps files under a root directory.
type LocalStore struct {
	root string
}

var _ core.FileStore = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(key string) (string, error) {
	key, err := core.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Save writes to a temporary file first so that readers never see partial content.
func (s *LocalStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return errors.Wrap(err, "creating file dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp), ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), fp), "moving file")
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fp, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
