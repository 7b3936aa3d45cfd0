package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/config"
)

// MaxPictureSize caps profile picture uploads.
const MaxPictureSize = 5 << 20

// ErrUnsupportedImage is returned for content types that are not accepted as pictures.
var ErrUnsupportedImage = errors.New("unsupported image type")

var pictureExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ObjectStorage is implemented by each supported object store.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error

	// PublicURL is the address clients use to fetch key.
	PublicURL(key string) string
}

// NewBackend connects to the configured store. It returns nil for the "none" backend.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "minio":
		client, err := NewMinioClient(cfg.Minio, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Pictures stores profile pictures under pictures/<user id>/.
type Pictures struct {
	backend ObjectStorage
}

func NewPictures(backend ObjectStorage) *Pictures {
	return &Pictures{backend: backend}
}

// Upload stores a picture for userID and returns its public URL. Every upload
// gets a fresh key so cached copies of the previous picture are never served.
func (p *Pictures) Upload(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := pictureExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	key := fmt.Sprintf("pictures/%s/%s.%s", userID, uuid.NewString(), ext)
	if err := p.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return p.backend.PublicURL(key), nil
}

// Remove deletes a picture previously returned by Upload. URLs that do not
// point into this store are ignored.
func (p *Pictures) Remove(ctx context.Context, pictureURL string) error {
	prefix := p.backend.PublicURL("")
	if pictureURL == "" || !strings.HasPrefix(pictureURL, prefix) {
		return nil
	}
	return p.backend.Delete(ctx, strings.TrimPrefix(pictureURL, prefix))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
