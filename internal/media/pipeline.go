// Package media moves image files into bucketed storage and derives CDN
// URLs for them.
package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

// Bucket names.
const (
	BucketAvatars  = "avatars"
	BucketPosts    = "posts"
	BucketListings = "listings"
)

const MaxFileSize = 10 << 20

// bucketUpsert records which buckets overwrite an existing object.
var bucketUpsert = map[string]bool{
	BucketAvatars:  true,
	BucketPosts:    false,
	BucketListings: false,
}

var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Upload struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
	ContentID string `json:"content_id"`
}

// UploadResult is the outcome of one file of a batch.
type UploadResult struct {
	Index  int     `json:"index"`
	Upload *Upload `json:"upload,omitempty"`
	Error  string  `json:"error,omitempty"`
	Err    error   `json:"-"`
}

type Option func(*Pipeline)

// WithConcurrency bounds the number of uploads UploadMany runs at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.limit = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

type Pipeline struct {
	storage Storage
	log     *logger.CanonicalLogger
	metrics *metrics.Metrics
	limit   int
	newName func() string
}

func NewPipeline(storage Storage, log *logger.CanonicalLogger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{
		storage: storage,
		log:     log.Component("media"),
		limit:   4,
		newName: func() string { return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload stores file under ownerID in bucket. optionalID replaces the
// generated file name; the extension always follows the file.
func (p *Pipeline) Upload(ctx context.Context, bucket, ownerID string, file File, optionalID string) wrapper.Result[Upload] {
	up, err := p.upload(ctx, bucket, ownerID, file, optionalID)
	p.metrics.Upload(bucket, err == nil)
	if err != nil {
		p.log.Error("upload failed",
			logger.String(logger.FieldBucket, bucket),
			logger.String(logger.FieldUserID, ownerID),
			logger.Err(err),
		)
		return wrapper.Fail[Upload](err)
	}
	p.log.Debug("uploaded",
		logger.String(logger.FieldBucket, bucket),
		logger.String(logger.FieldPath, up.Path),
		logger.String(logger.FieldContentID, up.ContentID),
	)
	return wrapper.Ok(up)
}

func (p *Pipeline) upload(ctx context.Context, bucket, ownerID string, file File, optionalID string) (Upload, error) {
	upsert, ok := bucketUpsert[bucket]
	if !ok {
		return Upload{}, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	if err := checkFile(file); err != nil {
		return Upload{}, err
	}

	name := optionalID
	if name == "" {
		name = p.newName()
	}
	objectPath, err := BuildPath(ownerID, name+extension(file))
	if err != nil {
		return Upload{}, err
	}

	if err := p.storage.Upload(ctx, bucket, objectPath, file.Data, file.ContentType, upsert); err != nil {
		return Upload{}, fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}

	publicURL := p.storage.PublicURL(bucket, objectPath)
	return Upload{
		Bucket:    bucket,
		Path:      objectPath,
		PublicURL: publicURL,
		ContentID: ContentID(publicURL),
	}, nil
}

// UploadMany uploads files concurrently. A failed file does not cancel or
// roll back the others; the result holds one entry per input, in input order.
func (p *Pipeline) UploadMany(ctx context.Context, bucket, ownerID string, files []File) wrapper.Result[[]UploadResult] {
	results := make([]UploadResult, len(files))
	g := new(errgroup.Group)
	g.SetLimit(p.limit)

	for i, f := range files {
		g.Go(func() error {
			res := UploadResult{Index: i}
			up, err := p.Upload(ctx, bucket, ownerID, f, "").Unwrap()
			if err != nil {
				res.Err = err
				res.Error = err.Error()
			} else {
				res.Upload = &up
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := wrapper.Ok(results)
	for _, r := range results {
		if r.Err != nil {
			out = out.WithWarning(fmt.Sprintf("file %d: %s", r.Index, r.Error))
		}
	}
	return out
}

// List returns the objects ownerID stored in bucket.
func (p *Pipeline) List(ctx context.Context, bucket, ownerID string) wrapper.Result[[]Object] {
	if _, ok := bucketUpsert[bucket]; !ok {
		return wrapper.Fail[[]Object](fmt.Errorf("%w: %q", ErrUnknownBucket, bucket))
	}
	objects, err := p.storage.List(ctx, bucket, ownerID)
	if objects == nil && err == nil {
		objects = []Object{}
	}
	return wrapper.From(objects, err)
}

func (p *Pipeline) Remove(ctx context.Context, bucket string, paths []string) wrapper.Result[int] {
	if _, ok := bucketUpsert[bucket]; !ok {
		return wrapper.Fail[int](fmt.Errorf("%w: %q", ErrUnknownBucket, bucket))
	}
	if len(paths) == 0 {
		return wrapper.Ok(0)
	}
	if err := p.storage.Remove(ctx, bucket, paths); err != nil {
		p.log.Error("remove failed", logger.String(logger.FieldBucket, bucket), logger.Err(err))
		return wrapper.Fail[int](err)
	}
	return wrapper.Ok(len(paths))
}

func checkFile(f File) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	if len(f.Data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidFile, len(f.Data), MaxFileSize)
	}
	if f.ContentType != "" && !strings.HasPrefix(f.ContentType, "image/") {
		return fmt.Errorf("%w: content type %q is not an image", ErrInvalidFile, f.ContentType)
	}
	return nil
}

func extension(f File) string {
	if ext := strings.ToLower(path.Ext(f.Name)); ext != "" {
		return ext
	}
	if ext, ok := contentTypeExt[strings.ToLower(f.ContentType)]; ok {
		return ext
	}
	return ".jpg"
}
