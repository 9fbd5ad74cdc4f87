package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundrail/fundrail/internal/domain"
)

// allowedMediaTypes maps accepted upload content types to object key
// extensions. Campaign media is images only.
var allowedMediaTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// MediaService stores campaign cover and gallery images in the blob store
// under campaign-scoped keys.
type MediaService struct {
	store  domain.MediaStore
	logger *slog.Logger
}

// NewMediaService creates a MediaService.
func NewMediaService(store domain.MediaStore, logger *slog.Logger) *MediaService {
	return &MediaService{
		store:  store,
		logger: logger.With(slog.String("component", "media_service")),
	}
}

// Upload stores one media object for a campaign and returns its metadata.
// Keys are campaigns/{campaignID}/{uuid}{ext}; unsupported content types
// are rejected before the body is read.
func (s *MediaService) Upload(ctx context.Context, campaignID, contentType string, data io.Reader) (domain.MediaObject, error) {
	ext, ok := allowedMediaTypes[contentType]
	if !ok {
		return domain.MediaObject{}, fmt.Errorf("media_service: unsupported content type %q", contentType)
	}
	if campaignID == "" {
		return domain.MediaObject{}, fmt.Errorf("media_service: campaign id is required")
	}

	key := fmt.Sprintf("campaigns/%s/%s%s", campaignID, uuid.NewString(), ext)

	obj, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return domain.MediaObject{}, fmt.Errorf("media_service: upload: %w", err)
	}

	s.logger.InfoContext(ctx, "media_service: media uploaded",
		slog.String("campaign_id", campaignID),
		slog.String("key", obj.Key),
		slog.Int64("size", obj.Size),
	)

	return obj, nil
}

// PresignGet returns a time-limited download URL for a stored object.
func (s *MediaService) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("media_service: presign %q: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("media_service: presign %q: %w", key, domain.ErrNotFound)
	}

	url, err := s.store.PresignGet(ctx, key, expiry)
	if err != nil {
		return "", fmt.Errorf("media_service: presign %q: %w", key, err)
	}
	return url, nil
}
