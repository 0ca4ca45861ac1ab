package realtime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownKind       = errors.New("realtime: unknown channel kind")
	ErrMissingKey        = errors.New("realtime: channel kind needs a key")
	ErrUnsupportedFilter = errors.New("realtime: unsupported filter")
)

// Kind names a family of channels.
type Kind string

const (
	KindPosts         Kind = "posts"
	KindComments      Kind = "comments"
	KindLikes         Kind = "likes"
	KindMessages      Kind = "messages"
	KindNotifications Kind = "notifications"
	KindSpaces        Kind = "spaces"
	KindTopics        Kind = "topics"
	KindListings      Kind = "listings"
	KindDeals         Kind = "deals"
)

type kindSpec struct {
	table       string
	keyColumn   string
	keyRequired bool
}

var kinds = map[Kind]kindSpec{
	KindPosts:         {table: "posts"},
	KindComments:      {table: "comments", keyColumn: "post_id"},
	KindLikes:         {table: "likes", keyColumn: "post_id"},
	KindMessages:      {table: "messages", keyColumn: "chat_id", keyRequired: true},
	KindNotifications: {table: "notifications", keyColumn: "user_id", keyRequired: true},
	KindSpaces:        {table: "spaces"},
	KindTopics:        {table: "topics"},
	KindListings:      {table: "listings"},
	KindDeals:         {table: "deals"},
}

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{KindPosts, KindComments, KindLikes, KindMessages, KindNotifications, KindSpaces, KindTopics, KindListings, KindDeals}
}

// Binding selects the row changes a channel receives.
type Binding struct {
	Schema string
	Table  string
	Filter string // column=eq.value, empty for the whole table
}

// ChannelName joins kind and key parts with ":".
func ChannelName(kind Kind, keyParts ...string) string {
	parts := make([]string, 0, len(keyParts)+1)
	parts = append(parts, string(kind))
	parts = append(parts, keyParts...)
	return strings.Join(parts, ":")
}

// Resolve returns the channel name and binding of kind for keyParts. The first
// key part filters kinds that have a key column.
func Resolve(kind Kind, keyParts ...string) (string, Binding, error) {
	spec, ok := kinds[kind]
	if !ok {
		return "", Binding{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for _, p := range keyParts {
		if p == "" {
			return "", Binding{}, fmt.Errorf("%w: empty key part for %s", ErrMissingKey, kind)
		}
	}
	if spec.keyRequired && len(keyParts) == 0 {
		return "", Binding{}, fmt.Errorf("%w: %s", ErrMissingKey, kind)
	}

	b := Binding{Schema: "public", Table: spec.table}
	if spec.keyColumn != "" && len(keyParts) > 0 {
		b.Filter = spec.keyColumn + "=eq." + keyParts[0]
	}
	return ChannelName(kind, keyParts...), b, nil
}

// ParseFilter splits a column=eq.value filter. Only equality is supported.
func ParseFilter(filter string) (column, value string, err error) {
	column, rest, ok := strings.Cut(filter, "=")
	if !ok || column == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFilter, filter)
	}
	value, ok = strings.CutPrefix(rest, "eq.")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFilter, filter)
	}
	return column, value, nil
}

// Matches reports whether ev passes the binding. Deletes are matched on the
// old row.
func (b Binding) Matches(ev Event) bool {
	if b.Table != "" && ev.Table != b.Table {
		return false
	}
	if b.Filter == "" {
		return true
	}
	column, value, err := ParseFilter(b.Filter)
	if err != nil {
		return false
	}
	row := ev.New
	if ev.Kind == EventDelete {
		row = ev.Old
	}
	v, ok := row[column]
	return ok && v != nil && fmt.Sprint(v) == value
}

func topicFor(name string) string {
	return "realtime:" + name
}
