package domain

import (
	"context"
	"io"
	"time"
)

// MediaObject describes a stored campaign media asset.
type MediaObject struct {
	Key          string
	URL          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// MediaStore uploads and serves campaign media (covers, gallery images).
type MediaStore interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) (MediaObject, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
