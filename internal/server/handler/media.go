package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
)

// maxUploadSize caps multipart media uploads at 10 MiB.
const maxUploadSize = 10 << 20

// MediaService defines the methods the media handler requires from the
// service layer.
type MediaService interface {
	Upload(ctx context.Context, campaignID, contentType string, data io.Reader) (domain.MediaObject, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// MediaHandler serves campaign media upload and download endpoints.
type MediaHandler struct {
	media  MediaService
	logger *slog.Logger
}

// NewMediaHandler creates a MediaHandler with the given service.
func NewMediaHandler(media MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:  media,
		logger: logger,
	}
}

// UploadMedia stores one image for a campaign from a multipart form with a
// "file" part and a "campaign_id" field.
// POST /api/media
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	campaignID := r.FormValue("campaign_id")
	if campaignID == "" {
		writeError(w, http.StatusBadRequest, "campaign_id form field required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file form field required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	obj, err := h.media.Upload(r.Context(), campaignID, contentType, file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: media upload failed",
			slog.String("campaign_id", campaignID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to upload media: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"key":          obj.Key,
		"url":          obj.URL,
		"content_type": obj.ContentType,
		"size":         obj.Size,
	})
}

// PresignMedia returns a time-limited download URL for a stored object.
// GET /api/media/presign?key=campaigns/...
func (h *MediaHandler) PresignMedia(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter required")
		return
	}

	url, err := h.media.PresignGet(r.Context(), key, 15*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: media presign failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to presign media")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
