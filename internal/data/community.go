package data

import (
	"context"
	"errors"
	"strings"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const (
	tableTopics       = "topics"
	tableSpaces       = "spaces"
	tableSpaceMembers = "space_members"
)

func (f *Facade) Topics(ctx context.Context, page Page) wrapper.Result[[]models.Topic] {
	page = page.normalize()
	topics, err := selectAll[models.Topic](ctx, f.backend, tableTopics, Query{
		Orders: []Order{{Column: "posts_count", Ascending: false}, {Column: "name", Ascending: true}},
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	return finish(f, "topics", topics, err)
}

func (f *Facade) CreateTopic(ctx context.Context, t models.Topic) wrapper.Result[models.Topic] {
	t.Name = strings.TrimSpace(t.Name)
	if err := required("name", t.Name, "created_by", t.CreatedBy); err != nil {
		return wrapper.Fail[models.Topic](err)
	}
	created, err := insertOne(ctx, f.backend, tableTopics, t)
	return finish(f, "create_topic", created, err)
}

func (f *Facade) Spaces(ctx context.Context, page Page) wrapper.Result[[]models.Space] {
	spaces, err := selectAll[models.Space](ctx, f.backend, tableSpaces, newestFirst(page))
	return finish(f, "spaces", spaces, err)
}

// CreateSpace inserts the space and makes its creator the owner. A failed
// membership insert leaves the space in place and is reported as a warning.
func (f *Facade) CreateSpace(ctx context.Context, s models.Space) wrapper.Result[models.Space] {
	s.Name = strings.TrimSpace(s.Name)
	if err := required("name", s.Name, "created_by", s.CreatedBy); err != nil {
		return wrapper.Fail[models.Space](err)
	}
	created, err := insertOne(ctx, f.backend, tableSpaces, s)
	if err != nil {
		return finish[models.Space](f, "create_space", models.Space{}, err)
	}
	res := wrapper.Ok(created)
	_, err = insertOne(ctx, f.backend, tableSpaceMembers, models.SpaceMember{
		SpaceID: created.ID,
		UserID:  s.CreatedBy,
		Role:    "owner",
	})
	if err != nil {
		res = res.WithWarning("space created but owner membership failed: " + err.Error())
	}
	return res
}

// JoinSpace is idempotent; joining twice keeps the existing membership.
func (f *Facade) JoinSpace(ctx context.Context, spaceID, userID string) wrapper.Result[models.SpaceMember] {
	if err := required("space_id", spaceID, "user_id", userID); err != nil {
		return wrapper.Fail[models.SpaceMember](err)
	}
	m, err := insertOne(ctx, f.backend, tableSpaceMembers, models.SpaceMember{
		SpaceID: spaceID,
		UserID:  userID,
		Role:    "member",
	})
	if errors.Is(err, ErrConflict) {
		m, err = selectOne[models.SpaceMember](ctx, f.backend, tableSpaceMembers,
			Eq("space_id", spaceID), Eq("user_id", userID))
	}
	return finish(f, "join_space", m, err)
}

// LeaveSpace is idempotent like Unfollow.
func (f *Facade) LeaveSpace(ctx context.Context, spaceID, userID string) wrapper.Result[bool] {
	if err := required("space_id", spaceID, "user_id", userID); err != nil {
		return wrapper.Fail[bool](err)
	}
	err := f.backend.Delete(ctx, tableSpaceMembers, []Filter{Eq("space_id", spaceID), Eq("user_id", userID)})
	return finish(f, "leave_space", err == nil, err)
}
