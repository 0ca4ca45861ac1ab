package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const publicMarker = "/object/public/"

// BuildPath joins owner and file name into an object path.
func BuildPath(ownerID, name string) (string, error) {
	for _, part := range []string{ownerID, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, "/\\") {
			return "", fmt.Errorf("%w: invalid path segment %q", ErrInvalidFile, part)
		}
	}
	return ownerID + "/" + name, nil
}

// ContentID reduces a public storage URL, or a bare object path, to the
// object path without bucket, storage prefix, query or extension.
// ".../object/public/posts/u1/abc.jpg?x=1" becomes "u1/abc".
func ContentID(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	if i := strings.Index(p, publicMarker); i >= 0 {
		p = p[i+len(publicMarker):]
		if j := strings.IndexByte(p, '/'); j >= 0 {
			p = p[j+1:]
		}
	}
	p = strings.TrimPrefix(p, "/")
	return strings.TrimSuffix(p, path.Ext(p))
}
