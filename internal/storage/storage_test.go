package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agriland/marketplace/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromRef(t *testing.T) {
	tests := []struct {
		ref string
		key string
		ok  bool
	}{
		{"/uploads/abc.jpg", "abc.jpg", true},
		{"/uploads/images/abc.jpg", "images/abc.jpg", true},
		{"/uploads/../etc/passwd", "", false},
		{"/uploads/", "", false},
		{"/uploads/a//b", "", false},
		{"/uploads/a\\b", "", false},
		{"https://example.com/abc.jpg", "", false},
	}
	for _, tt := range tests {
		key, ok := KeyFromRef(tt.ref)
		assert.Equal(t, tt.ok, ok, tt.ref)
		assert.Equal(t, tt.key, key, tt.ref)
	}
	assert.Equal(t, "/uploads/abc.jpg", Ref("abc.jpg"))
}

func TestLocalBackend_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	s, err := Open(context.Background(), config.StorageConfig{Backend: config.StorageBackendLocal, LocalDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := s.Put(ctx, "deeds/plot.pdf", strings.NewReader("deed"), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/deeds/plot.pdf", ref)

	rc, err := s.Get(ctx, "deeds/plot.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "deed", string(body))

	require.NoError(t, s.DeleteRef(ctx, ref))
	require.NoError(t, s.DeleteRef(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, "deeds", "plot.pdf"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Get(ctx, "deeds/plot.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, s.DeleteRef(ctx, "https://elsewhere/x.jpg"))
}

func TestLocalBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, backend.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, ""))
	_, err = backend.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalBackend_PutHonoursCancellation(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, backend.Put(ctx, "a.txt", strings.NewReader("x"), 1, ""), context.Canceled)
	_, err = backend.Get(context.Background(), "a.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
