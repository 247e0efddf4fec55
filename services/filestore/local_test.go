package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "papers/conf-1/paper.pdf"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.Equal(t, core.ErrFileNotFound, err)

	// deleting a missing file is a no-op
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStoreInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../secret", "papers/../../x", "papers//x", "./x"} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, store.Save(ctx, key, strings.NewReader("x"), 1, ""))
			_, err := store.Open(ctx, key)
			assert.Error(t, err)
			assert.Error(t, store.Delete(ctx, key))
		})
	}
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), core.StorageConfig{Backend: BackendLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	store, err = New(context.Background(), core.StorageConfig{
		Backend:     BackendS3,
		S3Bucket:    "papers",
		S3Region:    "us-east-1",
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "minio",
		S3SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	_, err = New(context.Background(), core.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
