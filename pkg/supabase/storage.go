package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Storage returns a storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// StorageClient handles object storage operations.
type StorageClient struct {
	client *Client
}

// From returns a bucket client.
func (s *StorageClient) From(bucket string) *BucketClient {
	return &BucketClient{client: s.client, bucket: bucket}
}

// BucketClient handles operations inside one bucket.
type BucketClient struct {
	client *Client
	bucket string
}

// FileObject is one entry of a bucket listing.
type FileObject struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	UpdatedAt time.Time      `json:"updated_at"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

// Size reads the object size from its metadata, zero when absent.
func (f FileObject) Size() int64 {
	if v, ok := f.Metadata["size"].(float64); ok {
		return int64(v)
	}
	return 0
}

// Upload writes data at path. With upsert false an existing object is a
// conflict (errors.Is(err, ErrConflict)).
func (b *BucketClient) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.client.baseURL, b.bucket, escapePath(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	if upsert {
		req.Header.Set("x-upsert", "true")
	}

	_, err = b.client.do(req)
	return err
}

// PublicURL returns the deterministic public URL of path.
func (b *BucketClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.client.baseURL, b.bucket, escapePath(path))
}

// List returns the objects under prefix.
func (b *BucketClient) List(ctx context.Context, prefix string) ([]FileObject, error) {
	reqURL := fmt.Sprintf("%s/storage/v1/object/list/%s", b.client.baseURL, b.bucket)
	req, err := b.client.jsonRequest(ctx, http.MethodPost, reqURL, map[string]any{
		"prefix": prefix,
		"limit":  100,
		"offset": 0,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	})
	if err != nil {
		return nil, err
	}

	resp, err := b.client.do(req)
	if err != nil {
		return nil, err
	}

	var objects []FileObject
	if err := resp.JSON(&objects); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return objects, nil
}

// Remove deletes the given paths.
func (b *BucketClient) Remove(ctx context.Context, paths []string) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s", b.client.baseURL, b.bucket)
	req, err := b.client.jsonRequest(ctx, http.MethodDelete, reqURL, map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}
	_, err = b.client.do(req)
	return err
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
