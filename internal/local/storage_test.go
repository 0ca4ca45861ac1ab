package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alwanly/social-hub/internal/media"
)

func TestDiskStorageConflictAndUpsert(t *testing.T) {
	ctx := context.Background()
	s, err := NewDiskStorage(t.TempDir(), "http://127.0.0.1:8090/")
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "posts", "u1/a.jpg", []byte("one"), "image/jpeg", false))
	require.ErrorIs(t, s.Upload(ctx, "posts", "u1/a.jpg", []byte("two"), "image/jpeg", false), media.ErrConflict)

	require.NoError(t, s.Upload(ctx, "avatars", "u1/avatar.jpg", []byte("one"), "image/jpeg", true))
	require.NoError(t, s.Upload(ctx, "avatars", "u1/avatar.jpg", []byte("three"), "image/jpeg", true))

	objs, err := s.List(ctx, "avatars", "u1")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, int64(5), objs[0].Size)

	require.Equal(t, "http://127.0.0.1:8090/storage/v1/object/public/posts/u1/a.jpg", s.PublicURL("posts", "u1/a.jpg"))
	require.Equal(t, "u1/a", media.ContentID(s.PublicURL("posts", "u1/a.jpg")))

	require.NoError(t, s.Remove(ctx, "posts", []string{"u1/a.jpg", "u1/missing.jpg"}))
	objs, err = s.List(ctx, "posts", "u1")
	require.NoError(t, err)
	require.Empty(t, objs)
}

func TestDiskStorageStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDiskStorage(root, "")
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "posts", "../../escape.jpg", []byte("x"), "image/jpeg", false))
	objs, err := s.List(ctx, "posts", "")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, "escape.jpg", objs[0].Name)

	require.ErrorIs(t, s.Upload(ctx, "../etc", "a.jpg", []byte("x"), "", false), media.ErrInvalidFile)
}

func TestPipelineOverDiskStorage(t *testing.T) {
	s, err := NewDiskStorage(t.TempDir(), "http://hub")
	require.NoError(t, err)
	p := media.NewPipeline(s, nil)

	up, err := p.Upload(context.Background(), media.BucketPosts, "u9", media.File{
		Name: "pic.png", ContentType: "image/png", Data: []byte{1, 2, 3},
	}, "fixed").Unwrap()
	require.NoError(t, err)
	require.Equal(t, "u9/fixed.png", up.Path)
	require.Equal(t, "u9/fixed", up.ContentID)
}
