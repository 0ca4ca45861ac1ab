package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const (
	tableListings = "listings"
	tableDeals    = "deals"

	listingActive = "active"
)

// ListingQuery filters the marketplace. Only active listings are returned.
type ListingQuery struct {
	Category string
	Search   string
	Page
}

func (f *Facade) Listings(ctx context.Context, q ListingQuery) wrapper.Result[[]models.Listing] {
	filters := []Filter{Eq("status", listingActive)}
	if q.Category != "" {
		filters = append(filters, Eq("category", q.Category))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		filters = append(filters, ILike("title", "*"+strings.ReplaceAll(s, "*", "")+"*"))
	}
	listings, err := selectAll[models.Listing](ctx, f.backend, tableListings, newestFirst(q.Page, filters...))
	return finish(f, "listings", listings, err)
}

func (f *Facade) GetListing(ctx context.Context, id string) wrapper.Result[models.Listing] {
	if err := required("id", id); err != nil {
		return wrapper.Fail[models.Listing](err)
	}
	l, err := selectOne[models.Listing](ctx, f.backend, tableListings, Eq("id", id))
	return finish(f, "get_listing", l, err)
}

func (f *Facade) CreateListing(ctx context.Context, l models.Listing) wrapper.Result[models.Listing] {
	if err := required("user_id", l.UserID, "title", strings.TrimSpace(l.Title)); err != nil {
		return wrapper.Fail[models.Listing](err)
	}
	if l.Price < 0 {
		return wrapper.Fail[models.Listing](fmt.Errorf("%w: price must not be negative", ErrInvalidArgument))
	}
	if l.Status == "" {
		l.Status = listingActive
	}
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	created, err := insertOne(ctx, f.backend, tableListings, l)
	return finish(f, "create_listing", created, err)
}

func (f *Facade) DeleteListing(ctx context.Context, id, userID string) wrapper.Result[bool] {
	if err := required("id", id, "user_id", userID); err != nil {
		return wrapper.Fail[bool](err)
	}
	err := deleteOwned[models.Listing](ctx, f.backend, tableListings, id, userID)
	return finish(f, "delete_listing", err == nil, err)
}

// Deals returns deals that have not expired, newest first.
func (f *Facade) Deals(ctx context.Context, page Page) wrapper.Result[[]models.Deal] {
	deals, err := selectAll[models.Deal](ctx, f.backend, tableDeals, newestFirst(page))
	if err != nil {
		return finish[[]models.Deal](f, "deals", nil, err)
	}
	now := f.now()
	live := deals[:0]
	for _, d := range deals {
		if d.ExpiresAt == nil || d.ExpiresAt.After(now) {
			live = append(live, d)
		}
	}
	return wrapper.Ok(live)
}

func (f *Facade) CreateDeal(ctx context.Context, d models.Deal) wrapper.Result[models.Deal] {
	if err := required("user_id", d.UserID, "title", strings.TrimSpace(d.Title)); err != nil {
		return wrapper.Fail[models.Deal](err)
	}
	if d.DiscountPercent < 0 || d.DiscountPercent > 100 {
		return wrapper.Fail[models.Deal](fmt.Errorf("%w: discount must be within 0..100", ErrInvalidArgument))
	}
	created, err := insertOne(ctx, f.backend, tableDeals, d)
	return finish(f, "create_deal", created, err)
}
