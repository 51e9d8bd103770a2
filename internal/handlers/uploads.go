package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/agriland/marketplace/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BlobReader opens stored objects by key.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Uploads streams stored listing files. It is mounted at storage.RefPrefix so
// every reference a listing carries is directly fetchable.
func Uploads(blobs BlobReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := storage.ValidKey(chi.URLParam(r, "*"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid file path")
			return
		}

		rc, err := blobs.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				writeError(w, http.StatusNotFound, "file not found")
				return
			}
			logger.Error("failed to open upload", zap.String("key", key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read file")
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			logger.Warn("upload stream interrupted", zap.String("key", key), zap.Error(err))
		}
	}
}

// Health answers 200 while check succeeds and 503 otherwise.
func Health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}
