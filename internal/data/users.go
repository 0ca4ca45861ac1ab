package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const tableUsers = "users"

func (f *Facade) GetUser(ctx context.Context, id string) wrapper.Result[models.Profile] {
	if err := required("id", id); err != nil {
		return wrapper.Fail[models.Profile](err)
	}
	p, err := selectOne[models.Profile](ctx, f.backend, tableUsers, Eq("id", id))
	return finish(f, "get_user", p, err)
}

// SearchUsers matches term against username and full name.
func (f *Facade) SearchUsers(ctx context.Context, term string, page Page) wrapper.Result[[]models.Profile] {
	term = strings.TrimSpace(term)
	if term == "" {
		return wrapper.Ok([]models.Profile{})
	}
	page = page.normalize()
	pattern := "*" + strings.ReplaceAll(term, "*", "") + "*"

	byName, err := selectAll[models.Profile](ctx, f.backend, tableUsers, Query{
		Filters: []Filter{ILike("username", pattern)},
		Orders:  []Order{{Column: "username", Ascending: true}},
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		return finish[[]models.Profile](f, "search_users", nil, err)
	}
	if len(byName) >= page.Limit {
		return wrapper.Ok(byName)
	}

	byFullName, err := selectAll[models.Profile](ctx, f.backend, tableUsers, Query{
		Filters: []Filter{ILike("full_name", pattern)},
		Orders:  []Order{{Column: "username", Ascending: true}},
		Limit:   page.Limit,
	})
	if err != nil {
		return finish[[]models.Profile](f, "search_users", nil, err)
	}

	seen := make(map[string]bool, len(byName))
	for _, p := range byName {
		seen[p.ID] = true
	}
	for _, p := range byFullName {
		if len(byName) >= page.Limit {
			break
		}
		if !seen[p.ID] {
			seen[p.ID] = true
			byName = append(byName, p)
		}
	}
	return wrapper.Ok(byName)
}

func (f *Facade) CreateProfile(ctx context.Context, p models.Profile) wrapper.Result[models.Profile] {
	if err := required("id", p.ID, "username", p.Username); err != nil {
		return wrapper.Fail[models.Profile](err)
	}
	created, err := insertOne(ctx, f.backend, tableUsers, p)
	return finish(f, "create_profile", created, err)
}

func (f *Facade) UpdateProfile(ctx context.Context, userID string, fields models.ProfileUpdate) wrapper.Result[models.Profile] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[models.Profile](err)
	}
	patch := fields.Fields()
	if len(patch) == 0 {
		return f.GetUser(ctx, userID)
	}
	p, err := updateOne[models.Profile](ctx, f.backend, tableUsers, patch, Eq("id", userID))
	if err != nil {
		err = fmt.Errorf("update profile %s: %w", userID, err)
	}
	return finish(f, "update_profile", p, err)
}

func (f *Facade) profilesByID(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	return selectAll[models.Profile](ctx, f.backend, tableUsers, Query{
		Filters: []Filter{In("id", anys(ids))},
		Orders:  []Order{{Column: "username", Ascending: true}},
	})
}
