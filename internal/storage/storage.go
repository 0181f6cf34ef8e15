package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

var allowedAvatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrUnsupportedImageType is returned for avatar uploads that are not a
// recognized image content type.
var ErrUnsupportedImageType = errors.New("unsupported image type")

// AvatarStore keeps one avatar object per user on top of an
// ObjectStorage backend.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore for the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads a user's avatar and returns its object key. Re-uploading
// overwrites the previous avatar for that user and content type.
func (s *AvatarStore) Put(ctx context.Context, username string, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}
	key := avatarKey(username, ext)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Open opens a reader for a previously stored avatar object.
func (s *AvatarStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes a stored avatar object.
func (s *AvatarStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func avatarKey(username, ext string) string {
	return fmt.Sprintf("avatars/%s%s", username, ext)
}
