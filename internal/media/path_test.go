package media

import (
	"errors"
	"strings"
	"testing"
)

func TestContentID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://x.supabase.co/storage/v1/object/public/posts/u1/abc.jpg", "u1/abc"},
		{"https://x.supabase.co/storage/v1/object/public/avatars/u1/avatar.png?t=123", "u1/avatar"},
		{"http://127.0.0.1:8090/storage/v1/object/public/listings/u2/a.b.webp", "u2/a.b"},
		{"u1/abc.jpg", "u1/abc"},
		{"u1/abc", "u1/abc"},
	}
	for _, tt := range tests {
		if got := ContentID(tt.in); got != tt.want {
			t.Errorf("ContentID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPathRoundTrip(t *testing.T) {
	p, err := BuildPath("user-7", "1700000000-abcd1234.jpg")
	if err != nil {
		t.Fatal(err)
	}
	url := "https://x.supabase.co/storage/v1/object/public/posts/" + p
	id := ContentID(url)
	if id != "user-7/1700000000-abcd1234" {
		t.Fatalf("id = %q", id)
	}
	if strings.Contains(id, ".") || strings.Contains(id, "posts/") || strings.Contains(id, "storage") {
		t.Fatalf("id %q kept extension or prefix", id)
	}
}

func TestBuildPathRejectsTraversal(t *testing.T) {
	for _, owner := range []string{"", "..", "a/b", `a\b`} {
		if _, err := BuildPath(owner, "f.jpg"); !errors.Is(err, ErrInvalidFile) {
			t.Errorf("owner %q: err = %v", owner, err)
		}
	}
}
