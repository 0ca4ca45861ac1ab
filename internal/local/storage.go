package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Alwanly/social-hub/internal/media"
)

// PublicPrefix is the URL path DiskStorage objects are served under.
const PublicPrefix = "/storage/v1/object/public"

// DiskStorage keeps buckets as directories under root.
type DiskStorage struct {
	root    string
	baseURL string
}

func NewDiskStorage(root, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root is the directory holding the buckets.
func (d *DiskStorage) Root() string { return d.root }

func (d *DiskStorage) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\.`) {
		return "", fmt.Errorf("%w: bucket %q", media.ErrInvalidFile, bucket)
	}
	return filepath.Join(d.root, bucket), nil
}

func (d *DiskStorage) resolve(bucket, objectPath string) (string, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + filepath.FromSlash(objectPath))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: empty path in %s", media.ErrInvalidFile, bucket)
	}
	return filepath.Join(dir, clean), nil
}

func (d *DiskStorage) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string, upsert bool) error {
	target, err := d.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	if !upsert {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s/%s", media.ErrConflict, bucket, objectPath)
		}
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (d *DiskStorage) PublicURL(bucket, objectPath string) string {
	return d.baseURL + PublicPrefix + "/" + bucket + "/" + strings.TrimPrefix(objectPath, "/")
}

func (d *DiskStorage) List(ctx context.Context, bucket, prefix string) ([]media.Object, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		if dir, err = d.resolve(bucket, prefix); err != nil {
			return nil, err
		}
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []media.Object{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]media.Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, media.Object{Name: e.Name(), Size: info.Size(), UpdatedAt: info.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *DiskStorage) Remove(ctx context.Context, bucket string, paths []string) error {
	for _, p := range paths {
		target, err := d.resolve(bucket, p)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
