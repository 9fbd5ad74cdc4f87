package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fundrail/fundrail/internal/domain"
)

// mediaPartSize is the multipart upload part size. 8 MiB keeps typical
// images in a single part.
const mediaPartSize int64 = 8 * 1024 * 1024

// MediaStore implements domain.MediaStore on an S3-compatible backend.
type MediaStore struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
}

// NewMediaStore creates a MediaStore uploading into the client's bucket.
func NewMediaStore(c *Client) *MediaStore {
	return &MediaStore{
		client:        c.S3(),
		presign:       s3.NewPresignClient(c.S3()),
		bucket:        c.bucket,
		publicBaseURL: c.publicBaseURL,
	}
}

// Put uploads a media object. Large payloads go through the multipart
// upload manager, which splits and uploads parts concurrently.
func (m *MediaStore) Put(ctx context.Context, key string, data io.Reader, contentType string) (domain.MediaObject, error) {
	// The upload manager handles both cases: payloads under the part size
	// go up as a single PutObject, larger ones as concurrent parts.
	uploader := manager.NewUploader(m.client, func(u *manager.Uploader) {
		u.PartSize = mediaPartSize
	})

	out, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.MediaObject{}, fmt.Errorf("s3blob: upload media %s: %w", key, err)
	}

	obj := domain.MediaObject{
		Key:         key,
		ContentType: contentType,
	}
	if m.publicBaseURL != "" {
		obj.URL = m.publicBaseURL + "/" + key
	} else if out.Location != "" {
		obj.URL = out.Location
	}

	// HeadObject fills in the stored size and timestamp.
	head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		obj.Size = aws.ToInt64(head.ContentLength)
		obj.LastModified = aws.ToTime(head.LastModified)
	}

	return obj, nil
}

// PresignGet returns a time-limited GET URL for a media object.
func (m *MediaStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := m.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3blob: presign media %s: %w", key, err)
	}
	return req.URL, nil
}

// Exists reports whether a media object is present in the bucket.
func (m *MediaStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound interface{ ErrorCode() string }
		if errors.As(err, &notFound) && (notFound.ErrorCode() == "NotFound" || notFound.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("s3blob: head media %s: %w", key, err)
	}
	return true, nil
}

// Compile-time interface check.
var _ domain.MediaStore = (*MediaStore)(nil)
