package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/social-hub/pkg/supabase"
)

var (
	ErrConflict      = errors.New("media: object already exists")
	ErrUnknownBucket = errors.New("media: unknown bucket")
	ErrInvalidFile   = errors.New("media: invalid file")
)

// Object is one stored file.
type Object struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage is bucketed object storage. Upload with upsert false must fail
// with an error matching ErrConflict when the path exists.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error
	PublicURL(bucket, path string) string
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Remove(ctx context.Context, bucket string, paths []string) error
}

// RemoteStorage adapts the hosted storage API.
type RemoteStorage struct {
	storage *supabase.StorageClient
}

func NewRemoteStorage(client *supabase.Client) *RemoteStorage {
	return &RemoteStorage{storage: client.Storage()}
}

func (r *RemoteStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error {
	err := r.storage.From(bucket).Upload(ctx, path, data, contentType, upsert)
	if errors.Is(err, supabase.ErrConflict) {
		return fmt.Errorf("%w: %s/%s", ErrConflict, bucket, path)
	}
	return err
}

func (r *RemoteStorage) PublicURL(bucket, path string) string {
	return r.storage.From(bucket).PublicURL(path)
}

func (r *RemoteStorage) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	files, err := r.storage.From(bucket).List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(files))
	for _, f := range files {
		out = append(out, Object{Name: f.Name, Size: f.Size(), UpdatedAt: f.UpdatedAt})
	}
	return out, nil
}

func (r *RemoteStorage) Remove(ctx context.Context, bucket string, paths []string) error {
	return r.storage.From(bucket).Remove(ctx, paths)
}
