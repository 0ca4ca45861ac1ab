package media

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownPreset = errors.New("media: unknown preset")

// Category selects a preset family.
type Category string

const (
	CategoryAvatar  Category = "AVATAR"
	CategoryPost    Category = "POST"
	CategoryListing Category = "LISTING"
)

// Size tags.
const (
	SizeSmall     = "SMALL"
	SizeThumbnail = "THUMBNAIL"
	SizeMedium    = "MEDIUM"
	SizeLarge     = "LARGE"
)

var presets = map[Category]map[string]string{
	CategoryAvatar: {
		SizeSmall:  "w_64,h_64,c_fill,g_face,f_auto",
		SizeMedium: "w_150,h_150,c_fill,g_face,f_auto",
		SizeLarge:  "w_400,h_400,c_fill,g_face,f_auto",
	},
	CategoryPost: {
		SizeThumbnail: "w_300,h_200,c_fill,f_auto",
		SizeMedium:    "w_600,c_limit,f_auto,q_auto",
		SizeLarge:     "w_1200,c_limit,f_auto,q_auto",
	},
	CategoryListing: {
		SizeThumbnail: "w_200,h_200,c_fill,f_auto",
		SizeMedium:    "w_500,h_500,c_fill,f_auto",
		SizeLarge:     "w_1000,c_limit,f_auto,q_auto",
	},
}

// Transformation returns the preset string for a category and size tag.
func Transformation(category Category, size string) (string, error) {
	sizes, ok := presets[Category(strings.ToUpper(string(category)))]
	if !ok {
		return "", fmt.Errorf("%w: category %q", ErrUnknownPreset, category)
	}
	t, ok := sizes[strings.ToUpper(size)]
	if !ok {
		return "", fmt.Errorf("%w: size %q for %s", ErrUnknownPreset, size, category)
	}
	return t, nil
}

// Sizes lists the size tags of a category in sorted order.
func Sizes(category Category) []string {
	sizes := presets[Category(strings.ToUpper(string(category)))]
	out := make([]string, 0, len(sizes))
	for s := range sizes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CDN builds delivery URLs of the form
// https://<host>/<cloud>/image/<deliveryType>/<transformation>/<contentID>.
type CDN struct {
	Host         string
	CloudName    string
	DeliveryType string
}

func (c CDN) URL(contentID string, category Category, size string) (string, error) {
	if contentID == "" {
		return "", fmt.Errorf("media: empty content id")
	}
	t, err := Transformation(category, size)
	if err != nil {
		return "", err
	}
	delivery := c.DeliveryType
	if delivery == "" {
		delivery = "upload"
	}
	return fmt.Sprintf("https://%s/%s/image/%s/%s/%s", c.Host, c.CloudName, delivery, t, contentID), nil
}

// DeriveURLs maps every size tag of category to its URL. It is pure: the
// same inputs always give the same map.
func (c CDN) DeriveURLs(contentID string, category Category) (map[string]string, error) {
	sizes := Sizes(category)
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: category %q", ErrUnknownPreset, category)
	}
	out := make(map[string]string, len(sizes))
	for _, s := range sizes {
		u, err := c.URL(contentID, category, s)
		if err != nil {
			return nil, err
		}
		out[s] = u
	}
	return out, nil
}
